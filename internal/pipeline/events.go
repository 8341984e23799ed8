package pipeline

import (
	"time"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// EventSink receives run progress.
type EventSink interface {
	Emit(ev core.RunEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev core.RunEvent)

// Emit calls f(ev).
func (f EventSinkFunc) Emit(ev core.RunEvent) { f(ev) }

type discardSink struct{}

func (discardSink) Emit(core.RunEvent) {}

func (o *Orchestrator) emit(run *Run, ev core.RunEvent) {
	ev.RunID = run.ID
	ev.Database = o.cfg.Database
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	o.events.Emit(ev)
}
