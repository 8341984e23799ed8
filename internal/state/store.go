// Package state records pipeline run history in SQLite.
// It tracks runs and the execution of every unit (analysis or merge)
// within a run.
package state

import (
	"context"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// Store persists run history.
type Store interface {
	// CreateRun starts a new run against database with status running.
	CreateRun(ctx context.Context, database string) (*core.Run, error)
	// CompleteRun records the final status of a run.
	CompleteRun(ctx context.Context, id string, status core.RunStatus, executed int, errMsg string) error
	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*core.Run, error)
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*core.Run, error)

	// RecordUnitRun inserts a unit run and assigns its ID.
	RecordUnitRun(ctx context.Context, ur *core.UnitRun) error
	// UpdateUnitRun moves a unit run to status.
	UpdateUnitRun(ctx context.Context, id string, status core.UnitRunStatus, sql, errMsg string, executionMS int64) error
	// GetUnitRunsForRun returns the unit runs of a run in execution order.
	GetUnitRunsForRun(ctx context.Context, runID string) ([]*core.UnitRun, error)
	// SkipPendingUnits marks every pending unit of a run as skipped.
	SkipPendingUnits(ctx context.Context, runID, reason string) (int64, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
