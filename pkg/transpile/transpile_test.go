package transpile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspile_DuckDB(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "achilles analysis shape",
			sql: `SELECT 0 AS analysis_id, CAST('Oxford' AS VARCHAR(255)) AS stratum_1, COUNT_BIG(DISTINCT person_id) AS count_value
INTO achilles_scratch.temp_achilles_0
FROM cdm.person;`,
			want: []string{
				"CREATE TABLE achilles_scratch.temp_achilles_0 AS SELECT 0 AS analysis_id, CAST('Oxford' AS VARCHAR(255)) AS stratum_1, COUNT(DISTINCT person_id) AS count_value FROM cdm.person",
			},
		},
		{
			name: "temp table select into",
			sql:  "SELECT person_id INTO #rawData FROM cdm.person",
			want: []string{"CREATE TEMPORARY TABLE rawData AS SELECT person_id FROM cdm.person"},
		},
		{
			name: "drop if object exists",
			sql:  "IF OBJECT_ID('tempdb..#tmp', 'U') IS NOT NULL DROP TABLE #tmp",
			want: []string{"DROP TABLE IF EXISTS tmp"},
		},
		{
			name: "top to limit",
			sql:  "SELECT TOP 10 person_id FROM cdm.person ORDER BY person_id",
			want: []string{"SELECT person_id FROM cdm.person ORDER BY person_id LIMIT 10"},
		},
		{
			name: "top in subquery",
			sql:  "SELECT * FROM (SELECT TOP (5) x FROM t) s",
			want: []string{"SELECT * FROM (SELECT x FROM t LIMIT 5) s"},
		},
		{
			name: "null handling and lengths",
			sql:  "SELECT ISNULL(a, 0), LEN(b), GETDATE()",
			want: []string{"SELECT COALESCE(a, 0), LENGTH(b), CURRENT_TIMESTAMP"},
		},
		{
			name: "nested calls",
			sql:  "SELECT ISNULL(LEN(x), 0), ISNULL(end_date, GETDATE())",
			want: []string{"SELECT COALESCE(LENGTH(x), 0), COALESCE(end_date, CURRENT_TIMESTAMP)"},
		},
		{
			name: "newid",
			sql:  "SELECT NEWID()",
			want: []string{"SELECT UUID()"},
		},
		{
			name: "dateadd",
			sql:  "SELECT DATEADD(dd, 30, observation_date)",
			want: []string{"SELECT (observation_date + INTERVAL (30) DAY)"},
		},
		{
			name: "datediff",
			sql:  "SELECT DATEDIFF(day, a, b)",
			want: []string{"SELECT DATE_DIFF('day', a, b)"},
		},
		{
			name: "charindex",
			sql:  "SELECT CHARINDEX('x', name)",
			want: []string{"SELECT STRPOS(name, 'x')"},
		},
		{
			name: "convert with max length",
			sql:  "SELECT CONVERT(VARCHAR(MAX), x)",
			want: []string{"SELECT CAST(x AS VARCHAR)"},
		},
		{
			name: "float cast",
			sql:  "SELECT CAST(x AS FLOAT)",
			want: []string{"SELECT CAST(x AS DOUBLE)"},
		},
		{
			name: "bracket identifiers",
			sql:  "SELECT [count value] FROM [dbo].[t]",
			want: []string{`SELECT "count value" FROM "dbo"."t"`},
		},
		{
			name: "string concatenation",
			sql:  "SELECT 'a' + name",
			want: []string{"SELECT 'a' || name"},
		},
		{
			name: "unicode string prefix",
			sql:  "SELECT N'abc'",
			want: []string{"SELECT 'abc'"},
		},
		{
			name: "table hints",
			sql:  "SELECT a FROM t WITH (NOLOCK)",
			want: []string{"SELECT a FROM t"},
		},
		{
			name: "iif",
			sql:  "SELECT IIF(a > 1, 'y', 'n')",
			want: []string{"SELECT CASE WHEN a > 1 THEN 'y' ELSE 'n' END"},
		},
		{
			name: "create temp table with identity",
			sql:  "CREATE TABLE #t (id INT IDENTITY(1,1), name NVARCHAR(50), d DATETIME)",
			want: []string{"CREATE TEMPORARY TABLE t (id INT, name VARCHAR(50), d TIMESTAMP)"},
		},
		{
			name: "insert column list",
			sql:  "INSERT INTO t (a, b) SELECT a, b FROM s",
			want: []string{"INSERT INTO t (a, b) SELECT a, b FROM s"},
		},
		{
			name: "session noise and batches",
			sql:  "SET NOCOUNT ON;\nUSE cdm;\nSELECT 1;\nGO\nSELECT 2",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "string contents untouched",
			sql:  "SELECT 'ISNULL(x) + TOP 1 [y]'",
			want: []string{"SELECT 'ISNULL(x) + TOP 1 [y]'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transpile(tt.sql, "tsql", "duckdb", Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranspile_Postgres(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "datediff days and year part",
			sql:  "SELECT DATEDIFF(dd, a, b), YEAR(d)",
			want: "SELECT (CAST(b AS DATE) - CAST(a AS DATE)), CAST(EXTRACT(YEAR FROM d) AS INTEGER)",
		},
		{
			name: "dateadd months",
			sql:  "SELECT DATEADD(month, 1, d)",
			want: "SELECT (d + (1) * INTERVAL '1 month')",
		},
		{
			name: "float cast",
			sql:  "SELECT CAST(x AS FLOAT)",
			want: "SELECT CAST(x AS DOUBLE PRECISION)",
		},
		{
			name: "newid",
			sql:  "SELECT NEWID()",
			want: "SELECT GEN_RANDOM_UUID()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transpile(tt.sql, "tsql", "postgres", Options{})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestTranspile_IdentityDialect(t *testing.T) {
	got, err := Transpile("SELECT TOP 5 a FROM t; SET NOCOUNT ON", "tsql", "tsql", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT TOP 5 a FROM t", "SET NOCOUNT ON"}, got)
}

func TestTranspile_Empty(t *testing.T) {
	for _, sql := range []string{"", "   \n", "-- only a comment", "SET NOCOUNT ON;"} {
		got, err := Transpile(sql, "tsql", "duckdb", Options{})
		require.NoError(t, err, sql)
		assert.Empty(t, got, sql)
	}
}

func TestTranspile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		target string
		msg    string
	}{
		{"unterminated string", "SELECT 'abc", "duckdb", "unterminated string literal"},
		{"unclosed parenthesis", "SELECT COUNT(*", "duckdb", "unclosed parenthesis"},
		{"stray parenthesis", "SELECT 1)", "duckdb", "unexpected closing parenthesis"},
		{"unknown datepart", "SELECT DATEADD(fortnight, 1, d)", "duckdb", "unknown datepart"},
		{"charindex start", "SELECT CHARINDEX('a', b, 2)", "duckdb", "start position"},
		{"top percent", "SELECT TOP 10 PERCENT a FROM t", "duckdb", "PERCENT"},
		{"postgres datediff weeks", "SELECT DATEDIFF(week, a, b)", "postgres", "not supported for postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transpile(tt.sql, "tsql", tt.target, Options{})
			var te *TranslationError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, 1, te.Line)
			assert.Contains(t, te.Message, tt.msg)
		})
	}
}

func TestTranspile_UnknownDialect(t *testing.T) {
	_, err := Transpile("SELECT 1", "tsql", "oracle", Options{})

	var ude *UnknownDialectError
	require.ErrorAs(t, err, &ude)
	assert.Equal(t, "oracle", ude.Name)
	assert.Contains(t, ude.Available, "duckdb")
}

func TestTranspile_UnsupportedSource(t *testing.T) {
	_, err := Transpile("SELECT 1", "mysql", "duckdb", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestTranspile_DialectNamesCaseInsensitive(t *testing.T) {
	got, err := Transpile("SELECT LEN(a)", "TSQL", "DuckDB", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT LENGTH(a)"}, got)
}

func TestTranspiler_Translate(t *testing.T) {
	tr := New(Options{})
	got, err := tr.Translate("SELECT COUNT_BIG(*) FROM t", "tsql", "duckdb")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT COUNT(*) FROM t"}, got)
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"duckdb", "postgres", "tsql"}, List())

	d, ok := Get("DUCKDB")
	require.True(t, ok)
	assert.Same(t, DuckDB, d)
}
