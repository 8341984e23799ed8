package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/achillesduck/internal/state"
	"github.com/leapstack-labs/achillesduck/pkg/core"
)

func openStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRun_RecordsHistoryOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	fx := newFixture(t, threeAnalyses, defaultScripts(), "SELECT 1")
	o := fx.orchestrator(t, store)

	run, err := o.Run(ctx, fx.conn.opener())
	require.NoError(t, err)

	rec, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, rec.Status)
	assert.Equal(t, "synpuf", rec.Database)
	assert.Equal(t, 3, rec.Executed)
	assert.NotNil(t, rec.CompletedAt)

	units, err := store.GetUnitRunsForRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, units, 4)
	for i, id := range []string{"A", "B", "C", core.MergeUnitID} {
		assert.Equal(t, id, units[i].UnitID)
		assert.Equal(t, i+1, units[i].Position)
		assert.Equal(t, core.UnitRunStatusSuccess, units[i].Status, id)
	}
	assert.Equal(t, "SELECT 'Oxford' AS src INTO achilles_scratch.t_a;", units[0].SQL)
	assert.Equal(t, "First", units[0].UnitName)
}

func TestRun_RecordsHistoryOnAbort(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	analyses := defaultScripts()
	delete(analyses, "B")
	fx := newFixture(t, threeAnalyses, analyses, "SELECT 1")
	o := fx.orchestrator(t, store)

	run, err := o.Run(ctx, fx.conn.opener())
	require.Error(t, err)

	rec, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, rec.Status)
	assert.Equal(t, 1, rec.Executed)
	assert.Contains(t, rec.Error, "SQL file not found for analysis B")

	units, err := store.GetUnitRunsForRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, units, 4)

	got := make([]core.UnitRunStatus, len(units))
	for i, u := range units {
		got[i] = u.Status
	}
	assert.Equal(t, []core.UnitRunStatus{
		core.UnitRunStatusSuccess,
		core.UnitRunStatusFailed,
		core.UnitRunStatusSkipped,
		core.UnitRunStatusSkipped,
	}, got)
	assert.Contains(t, units[2].Error, "run aborted")
}

func TestNopHistory(t *testing.T) {
	ctx := context.Background()
	var h NopHistory

	run, err := h.CreateRun(ctx, "db")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, core.RunStatusRunning, run.Status)

	ur := &core.UnitRun{UnitID: "1"}
	require.NoError(t, h.RecordUnitRun(ctx, ur))
	assert.NotEmpty(t, ur.ID)

	n, err := h.SkipPendingUnits(ctx, run.ID, "x")
	require.NoError(t, err)
	assert.Zero(t, n)
}
