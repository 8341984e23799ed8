package output

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// RunPrinter renders pipeline run events as they happen.
type RunPrinter struct {
	r *Renderer
}

// NewRunPrinter creates a RunPrinter writing through r.
func NewRunPrinter(r *Renderer) *RunPrinter {
	return &RunPrinter{r: r}
}

// Emit renders one event.
func (p *RunPrinter) Emit(ev core.RunEvent) {
	switch p.r.EffectiveMode() {
	case ModeJSON:
		_ = p.r.JSONLine(ev)
	case ModeMarkdown:
		p.markdown(ev)
	default:
		p.text(ev)
	}
}

func (p *RunPrinter) text(ev core.RunEvent) {
	r, s := p.r, p.r.styles
	switch ev.Event {
	case core.EventRunStart:
		r.Println(s.Header.Render("Running analyses for " + ev.Database))
		r.Println(r.Muted("run " + ev.RunID))
	case core.EventCatalogLoaded:
		r.Printf("Loaded %d analyses with is_default=1\n", ev.Total)
	case core.EventUnitStart:
		r.Println("")
		r.Println(s.Bold.Render(fmt.Sprintf("[%d/%d] Analysis %s: %s", ev.Index, ev.Total, ev.UnitID, ev.UnitName)))
		r.Println(r.Muted("File: " + ev.File))
	case core.EventUnitComplete:
		r.SQL(ev.SQL)
		r.StatusLine(StatusSuccess, "Successfully executed "+r.Muted(elapsed(ev.ElapsedMS)))
	case core.EventUnitFailed:
		r.StatusLine(StatusFailed, fmt.Sprintf("Failed: %s", ev.UnitID))
	case core.EventMergeStart:
		r.Println("")
		r.Println(s.Bold.Render("Executing merge script: " + ev.File))
	case core.EventMergeComplete:
		r.SQL(ev.SQL)
		r.StatusLine(StatusSuccess, "Merge completed "+r.Muted(elapsed(ev.ElapsedMS)))
		for _, table := range sortedTables(ev.ResultRows) {
			r.Println(r.Muted(fmt.Sprintf("  %s: %d rows", table, ev.ResultRows[table])))
		}
	case core.EventRunComplete:
		r.Println("")
		r.StatusLine(StatusSuccess, fmt.Sprintf("Successfully executed %d analyses", ev.Executed))
	case core.EventRunFailed:
		r.Println("")
		r.StatusLine(ev.Status, fmt.Sprintf("Run %s after %d analyses", ev.Status, ev.Executed))
	}
}

func (p *RunPrinter) markdown(ev core.RunEvent) {
	r := p.r
	switch ev.Event {
	case core.EventRunStart:
		r.Println(FormatHeader(1, "Achilles run: "+ev.Database))
		r.Println("")
		r.Println(FormatKeyValue("Run", ev.RunID))
	case core.EventCatalogLoaded:
		r.Println(FormatKeyValue("Analyses", fmt.Sprintf("%d", ev.Total)))
	case core.EventUnitStart:
		r.Println("")
		r.Println(FormatHeader(2, fmt.Sprintf("[%d/%d] Analysis %s: %s", ev.Index, ev.Total, ev.UnitID, ev.UnitName)))
		r.Println("")
		r.Println(FormatKeyValue("File", ev.File))
	case core.EventUnitComplete, core.EventMergeComplete:
		r.Println(FormatKeyValue("Status", ev.Status))
		r.Println(FormatKeyValue("Elapsed", elapsed(ev.ElapsedMS)))
		for _, table := range sortedTables(ev.ResultRows) {
			r.Println(FormatKeyValue(table, fmt.Sprintf("%d rows", ev.ResultRows[table])))
		}
		r.Println("")
		r.SQL(ev.SQL)
	case core.EventUnitFailed:
		r.Println(FormatKeyValue("Status", ev.Status))
	case core.EventMergeStart:
		r.Println("")
		r.Println(FormatHeader(2, "Merge"))
		r.Println("")
		r.Println(FormatKeyValue("File", ev.File))
	case core.EventRunComplete:
		r.Println("")
		r.Printf("Successfully executed %d analyses\n", ev.Executed)
	case core.EventRunFailed:
		r.Println("")
		r.Println(FormatKeyValue("Run", ev.Status))
		r.Println(FormatKeyValue("Executed", fmt.Sprintf("%d", ev.Executed)))
	}
}

func sortedTables(rows map[string]int64) []string {
	return slices.Sorted(maps.Keys(rows))
}

func elapsed(ms int64) string {
	return "(" + (time.Duration(ms) * time.Millisecond).String() + ")"
}
