package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/achillesduck/internal/scripts"
	"github.com/leapstack-labs/achillesduck/internal/testutil"
	"github.com/leapstack-labs/achillesduck/pkg/core"
)

func ids(analyses []core.Analysis) []string {
	out := make([]string, len(analyses))
	for i, a := range analyses {
		out[i] = a.ID
	}
	return out
}

func TestLoad_FiltersAndOrders(t *testing.T) {
	csv := `analysis_id,analysis_name,category,is_default
3,Number of persons by gender,Person,1
x,Custom analysis,Person,1
2,Number of persons by year of birth,Person,1
1,Number of persons,Person,0
10,Number of persons by ethnicity,Person,1
,Missing id,Person,1
4,Ignored true,Person,true
`
	analyses, err := Load(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "2", "3", "10"}, ids(analyses))
	assert.Equal(t, "Custom analysis", analyses[0].Name)
	for _, a := range analyses {
		assert.True(t, a.IsDefault)
	}
}

func TestLoad_OrderingExample(t *testing.T) {
	csv := "analysis_id,analysis_name,is_default\n3,C,1\nx,X,1\n2,B,1\n"
	analyses, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "2", "3"}, ids(analyses))
}

func TestLoad_StableForEqualKeys(t *testing.T) {
	csv := "analysis_id,is_default\nb,1\n007,1\na,1\n7,1\n"
	analyses, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "007", "7"}, ids(analyses))
}

func TestLoad_LargeIDsDoNotOverflow(t *testing.T) {
	csv := "analysis_id,is_default\n99999999999999999999999,1\n5,1\n"
	analyses, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "99999999999999999999999"}, ids(analyses))
}

func TestLoad_ColumnOrderAndMissingName(t *testing.T) {
	csv := "is_default,analysis_id\n1,200\n1,100\n"
	analyses, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.Equal(t, core.Analysis{ID: "100", IsDefault: true}, analyses[0])
}

func TestLoad_ShortRowsSkipped(t *testing.T) {
	csv := "analysis_id,analysis_name,is_default\n1,Short\n2,Full,1\n"
	analyses, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(analyses))
}

func TestLoad_ByteOrderMark(t *testing.T) {
	csv := "\uFEFFanalysis_id,analysis_name,is_default\n1,One,1\n"
	analyses, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(analyses))
}

func TestLoad_QuotedFields(t *testing.T) {
	csv := "analysis_id,analysis_name,is_default\n1,\"Persons, by \"\"gender\"\"\",1\n"
	analyses, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, `Persons, by "gender"`, analyses[0].Name)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		msg  string
	}{
		{"empty", "", "empty"},
		{"no id column", "id,is_default\n1,1\n", "header must contain"},
		{"no default column", "analysis_id,analysis_name\n1,a\n", "header must contain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.csv))
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_NoDefaults(t *testing.T) {
	analyses, err := Load(strings.NewReader("analysis_id,is_default\n1,0\n"))
	require.NoError(t, err)
	assert.Empty(t, analyses)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "achilles_analysis_details.csv")
	require.NoError(t, os.WriteFile(path, []byte("analysis_id,analysis_name,is_default\n2,B,1\n1,A,1\n"), 0o600))

	logger, rec := testutil.NewRecordingLogger()
	analyses, err := LoadFile(context.Background(), scripts.NewFS(), path, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(analyses))

	entry, ok := rec.Find("Loaded 2 analyses with is_default=1")
	require.True(t, ok)
	assert.Equal(t, path, entry.Attrs["path"])
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	_, err := LoadFile(context.Background(), scripts.NewFS(), path, nil)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, path, le.Path)
	assert.ErrorIs(t, err, scripts.ErrNotFound)
}

func TestLoadFile_BadHeaderCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600))

	_, err := LoadFile(context.Background(), scripts.NewFS(), path, nil)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, path, le.Path)
}
