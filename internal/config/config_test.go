package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/achillesduck/pkg/adapter"
	_ "github.com/leapstack-labs/achillesduck/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/achillesduck/pkg/adapters/postgres"
)

func TestApplyTargetDefaults(t *testing.T) {
	tests := []struct {
		name   string
		target TargetConfig
		want   TargetConfig
	}{
		{
			name:   "empty target becomes duckdb file in data dir",
			target: TargetConfig{},
			want:   TargetConfig{Type: "duckdb", Schema: "main", Database: "/app/data/synpuf"},
		},
		{
			name:   "explicit duckdb file is kept",
			target: TargetConfig{Type: "DuckDB", Database: ":memory:"},
			want:   TargetConfig{Type: "duckdb", Schema: "main", Database: ":memory:"},
		},
		{
			name:   "postgres gets port schema and database name",
			target: TargetConfig{Type: "postgres", Host: "db"},
			want:   TargetConfig{Type: "postgres", Host: "db", Port: 5432, Schema: "public", Database: "synpuf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.target
			ApplyTargetDefaults(&got, "", "synpuf")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyTargetDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyTargetDefaults(nil, "", "x") })
}

func TestDatabasePath(t *testing.T) {
	assert.Equal(t, "/app/data/synpuf", DatabasePath("", "synpuf"))
	assert.Equal(t, "/tmp/x/synpuf", DatabasePath("/tmp/x", "synpuf"))
}

func TestValidateTarget(t *testing.T) {
	assert.NoError(t, ValidateTarget(&TargetConfig{Type: "duckdb"}))
	assert.NoError(t, ValidateTarget(&TargetConfig{Type: "postgres", Host: "localhost"}))

	assert.Error(t, ValidateTarget(nil))
	assert.EqualError(t, ValidateTarget(&TargetConfig{}), "target type is required")
	assert.Error(t, ValidateTarget(&TargetConfig{Type: "postgres"}))

	err := ValidateTarget(&TargetConfig{Type: "oracle"})
	var unknown *adapter.UnknownAdapterError
	assert.ErrorAs(t, err, &unknown)
}
