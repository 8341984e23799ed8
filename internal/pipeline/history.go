package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// History records runs and unit outcomes. *state.SQLiteStore implements it.
type History interface {
	CreateRun(ctx context.Context, database string) (*core.Run, error)
	CompleteRun(ctx context.Context, id string, status core.RunStatus, executed int, errMsg string) error
	RecordUnitRun(ctx context.Context, ur *core.UnitRun) error
	UpdateUnitRun(ctx context.Context, id string, status core.UnitRunStatus, sql, errMsg string, executionMS int64) error
	SkipPendingUnits(ctx context.Context, runID, reason string) (int64, error)
}

// NopHistory keeps nothing. Runs still get an ID.
type NopHistory struct{}

// CreateRun returns a run with a fresh ID.
func (NopHistory) CreateRun(_ context.Context, database string) (*core.Run, error) {
	return &core.Run{
		ID:        uuid.New().String(),
		Database:  database,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}, nil
}

// CompleteRun does nothing.
func (NopHistory) CompleteRun(context.Context, string, core.RunStatus, int, string) error { return nil }

// RecordUnitRun assigns an ID and does nothing else.
func (NopHistory) RecordUnitRun(_ context.Context, ur *core.UnitRun) error {
	if ur.ID == "" {
		ur.ID = uuid.New().String()
	}
	return nil
}

// UpdateUnitRun does nothing.
func (NopHistory) UpdateUnitRun(context.Context, string, core.UnitRunStatus, string, string, int64) error {
	return nil
}

// SkipPendingUnits does nothing.
func (NopHistory) SkipPendingUnits(context.Context, string, string) (int64, error) { return 0, nil }
