package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name:  "empty map returns empty struct",
			input: map[string]any{},
			want:  &Params{},
		},
		{
			name: "extensions only",
			input: map[string]any{
				"extensions": []any{"httpfs", "json"},
			},
			want: &Params{
				Extensions: []string{"httpfs", "json"},
			},
		},
		{
			name: "settings only",
			input: map[string]any{
				"settings": map[string]any{
					"threads":        "4",
					"temp_directory": "/tmp/duck",
				},
			},
			want: &Params{
				Settings: map[string]string{
					"threads":        "4",
					"temp_directory": "/tmp/duck",
				},
			},
		},
		{
			name: "numeric setting values become strings",
			input: map[string]any{
				"settings": map[string]any{"threads": 8},
			},
			want: &Params{
				Settings: map[string]string{"threads": "8"},
			},
		},
		{
			name: "unknown key is rejected",
			input: map[string]any{
				"secrets": []any{},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Extensions, got.Extensions)
			assert.Equal(t, tt.want.Settings, got.Settings)
		})
	}
}
