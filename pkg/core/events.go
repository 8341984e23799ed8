package core

import "time"

// Event names emitted by the pipeline.
const (
	EventRunStart      = "run_start"
	EventCatalogLoaded = "catalog_loaded"
	EventUnitStart     = "unit_start"
	EventUnitComplete  = "unit_complete"
	EventUnitFailed    = "unit_failed"
	EventMergeStart    = "merge_start"
	EventMergeComplete = "merge_complete"
	EventRunComplete   = "run_complete"
	EventRunFailed     = "run_failed"
)

// RunEvent is a progress notification from a pipeline run. Renderers turn
// these into console text, markdown or JSON lines.
type RunEvent struct {
	Event      string           `json:"event"`
	RunID      string           `json:"run_id,omitempty"`
	Database   string           `json:"database,omitempty"`
	Index      int              `json:"index,omitempty"`
	Total      int              `json:"total,omitempty"`
	UnitID     string           `json:"unit_id,omitempty"`
	UnitName   string           `json:"unit_name,omitempty"`
	File       string           `json:"file,omitempty"`
	SQL        string           `json:"sql,omitempty"`
	Status     string           `json:"status,omitempty"`
	Error      string           `json:"error,omitempty"`
	Executed   int              `json:"executed,omitempty"`
	ElapsedMS  int64            `json:"elapsed_ms,omitempty"`
	ResultRows map[string]int64 `json:"result_rows,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}
