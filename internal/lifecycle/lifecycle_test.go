package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/achillesduck/pkg/adapter"
)

// mockConn is a BaseSQLAdapter over sqlmock that reports a fixed dialect.
type mockConn struct {
	adapter.BaseSQLAdapter
	dialect string
}

func (c *mockConn) DialectName() string { return c.dialect }

func newMockConn(t *testing.T, dialect string) (*mockConn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &mockConn{BaseSQLAdapter: adapter.BaseSQLAdapter{DB: db}, dialect: dialect}, mock
}

func TestInitialize_DuckDB(t *testing.T) {
	conn, mock := newMockConn(t, "duckdb")
	mock.ExpectExec("SET memory_limit='10GB'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP SCHEMA IF EXISTS achilles_scratch CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE IF EXISTS results.achilles_results").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE IF EXISTS results.achilles_analysis").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE SCHEMA achilles_scratch").WillReturnResult(sqlmock.NewResult(0, 0))

	m, err := New(Config{MemoryLimit: DefaultMemoryLimit})
	require.NoError(t, err)

	require.NoError(t, m.Initialize(context.Background(), conn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitialize_SkipsMemoryLimitOutsideDuckDB(t *testing.T) {
	m, err := New(Config{MemoryLimit: "4GB", ResultTables: []string{"results.achilles_results"}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"DROP SCHEMA IF EXISTS achilles_scratch CASCADE",
		"DROP TABLE IF EXISTS results.achilles_results",
		"CREATE SCHEMA achilles_scratch",
	}, m.InitializeStatements("postgres"))

	assert.Equal(t, "SET memory_limit='4GB'", m.InitializeStatements("duckdb")[0])
}

func TestInitialize_EmptyMemoryLimit(t *testing.T) {
	m, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "DROP SCHEMA IF EXISTS achilles_scratch CASCADE", m.InitializeStatements("duckdb")[0])
}

func TestInitialize_StopsAtFirstFailure(t *testing.T) {
	conn, mock := newMockConn(t, "duckdb")
	mock.ExpectExec("DROP SCHEMA IF EXISTS achilles_scratch CASCADE").WillReturnError(errors.New("database is locked"))

	m, err := New(Config{})
	require.NoError(t, err)

	err = m.Initialize(context.Background(), conn)

	var se *StatementError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "DROP SCHEMA IF EXISTS achilles_scratch CASCADE", se.SQL)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeMerge(t *testing.T) {
	conn, mock := newMockConn(t, "duckdb")
	merge := "CREATE TABLE results.achilles_results AS SELECT * FROM achilles_scratch.temp_achilles_0;"
	mock.ExpectExec(merge).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP SCHEMA IF EXISTS achilles_scratch CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))

	m, err := New(Config{})
	require.NoError(t, err)

	require.NoError(t, m.FinalizeMerge(context.Background(), conn, merge))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeMerge_FailureKeepsScratch(t *testing.T) {
	conn, mock := newMockConn(t, "duckdb")
	mock.ExpectExec("SELECT broken;").WillReturnError(errors.New("Binder Error"))

	m, err := New(Config{})
	require.NoError(t, err)

	err = m.FinalizeMerge(context.Background(), conn, "SELECT broken;")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "scratch schema must not be dropped after a failed merge")
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		msg  string
	}{
		{"qualified scratch", Config{ScratchSchema: "a.b"}, "invalid scratch schema"},
		{"injected scratch", Config{ScratchSchema: "x; DROP TABLE y"}, "invalid scratch schema"},
		{"bad result table", Config{ResultTables: []string{"results.achilles results"}}, "invalid result table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	m, err := New(Config{ScratchSchema: "scratch_1", ResultTables: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "scratch_1", m.ScratchSchema())
	assert.Equal(t, []string{
		"DROP SCHEMA IF EXISTS scratch_1 CASCADE",
		"CREATE SCHEMA scratch_1",
	}, m.InitializeStatements("postgres"))
}

const tableExistsSQL = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'results' AND table_name = '%s'"

func TestResultCounts(t *testing.T) {
	conn, mock := newMockConn(t, "duckdb")
	mock.ExpectQuery(fmt.Sprintf(tableExistsSQL, "achilles_results")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT(*) FROM results.achilles_results").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1250))
	mock.ExpectQuery(fmt.Sprintf(tableExistsSQL, "achilles_analysis")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	m, err := New(Config{})
	require.NoError(t, err)

	counts, err := m.ResultCounts(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"results.achilles_results": 1250}, counts,
		"tables the merge did not create are left out")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultCounts_QueryError(t *testing.T) {
	conn, mock := newMockConn(t, "duckdb")
	mock.ExpectQuery(fmt.Sprintf(tableExistsSQL, "achilles_results")).WillReturnError(errors.New("catalog unavailable"))

	m, err := New(Config{})
	require.NoError(t, err)

	_, err = m.ResultCounts(context.Background(), conn)
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Contains(t, stmtErr.SQL, "information_schema.tables")
	assert.Contains(t, err.Error(), "catalog unavailable")
}
