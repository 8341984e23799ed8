package core

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one pipeline execution session.
type Run struct {
	ID          string
	Database    string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	Executed    int
}

// UnitRunStatus represents the status of a single unit (analysis or merge) execution.
type UnitRunStatus string

// Unit run status constants.
const (
	UnitRunStatusPending UnitRunStatus = "pending"
	UnitRunStatusRunning UnitRunStatus = "running"
	UnitRunStatusSuccess UnitRunStatus = "success"
	UnitRunStatusFailed  UnitRunStatus = "failed"
	UnitRunStatusSkipped UnitRunStatus = "skipped"
)

// UnitRun represents the execution of one unit within a run.
type UnitRun struct {
	ID          string
	RunID       string
	UnitID      string
	UnitName    string
	Position    int
	Status      UnitRunStatus
	SQL         string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	ExecutionMS int64
}
