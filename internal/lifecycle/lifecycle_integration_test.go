package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/achillesduck/pkg/adapter"
	"github.com/leapstack-labs/achillesduck/pkg/adapters/duckdb"
)

func openDuckDB(t *testing.T) adapter.Adapter {
	t.Helper()
	a := duckdb.New(nil)
	require.NoError(t, a.Connect(context.Background(), adapter.Config{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func schemaExists(t *testing.T, a adapter.Adapter, schema string) bool {
	t.Helper()
	rows, err := a.Query(context.Background(),
		"SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = '"+schema+"'")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var n int
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&n))
	return n > 0
}

func TestInitialize_TwiceIsNoOp(t *testing.T) {
	ctx := context.Background()
	a := openDuckDB(t)
	m, err := New(Config{MemoryLimit: DefaultMemoryLimit})
	require.NoError(t, err)

	require.NoError(t, m.Initialize(ctx, a))
	require.NoError(t, a.Exec(ctx, "CREATE TABLE achilles_scratch.leftover AS SELECT 1 AS x"))

	require.NoError(t, m.Initialize(ctx, a))
	assert.True(t, schemaExists(t, a, "achilles_scratch"))

	err = a.Exec(ctx, "SELECT * FROM achilles_scratch.leftover")
	assert.Error(t, err, "tables from the earlier run must be gone")
}

func TestLifecycle_FullCycle(t *testing.T) {
	ctx := context.Background()
	a := openDuckDB(t)
	m, err := New(Config{})
	require.NoError(t, err)

	require.NoError(t, m.Initialize(ctx, a))
	require.NoError(t, a.Exec(ctx, "CREATE TABLE achilles_scratch.temp_achilles_0 AS SELECT 0 AS analysis_id, 42 AS count_value"))

	merge := "CREATE SCHEMA IF NOT EXISTS results;\n" +
		"CREATE TABLE results.achilles_results AS SELECT * FROM achilles_scratch.temp_achilles_0;"
	require.NoError(t, m.FinalizeMerge(ctx, a, merge))

	assert.False(t, schemaExists(t, a, "achilles_scratch"))

	rows, err := a.Query(ctx, "SELECT count_value FROM results.achilles_results")
	require.NoError(t, err)
	var v int
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&v))
	require.NoError(t, rows.Close())
	assert.Equal(t, 42, v)

	counts, err := m.ResultCounts(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"results.achilles_results": 1}, counts)

	// A fresh Initialize drops the previous results.
	require.NoError(t, m.Initialize(ctx, a))
	assert.Error(t, a.Exec(ctx, "SELECT * FROM results.achilles_results"))
}
