// Package metrics records per-unit outcomes of a pipeline run and pushes
// them to a Prometheus Pushgateway when the run ends.
//
// The pipeline depends only on the Recorder interface. Nop is used when no
// gateway is configured, so recording is always safe.
package metrics

import (
	"context"
	"time"
)

// Recorder receives run instrumentation.
type Recorder interface {
	// ObserveUnit records one executed unit with its final status.
	ObserveUnit(status string, d time.Duration)
	// RunFinished records the outcome of the whole run.
	RunFinished(success bool)
	// Flush delivers collected metrics, if the backend needs it.
	Flush(ctx context.Context) error
}

// Nop discards everything.
type Nop struct{}

// ObserveUnit does nothing.
func (Nop) ObserveUnit(string, time.Duration) {}

// RunFinished does nothing.
func (Nop) RunFinished(bool) {}

// Flush does nothing.
func (Nop) Flush(context.Context) error { return nil }
