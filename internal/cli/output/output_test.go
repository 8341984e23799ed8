package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{"bogus", true, ModeText},
		{ModeText, false, ModeText},
		{ModeMarkdown, true, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestOutputMode_IsValid(t *testing.T) {
	for _, m := range ValidModes {
		assert.True(t, OutputMode(m).IsValid(), m)
	}
	assert.True(t, OutputMode("").IsValid())
	assert.False(t, OutputMode("yaml").IsValid())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Runs", FormatHeader(2, "Runs"))
	assert.Equal(t, "# Runs", FormatHeader(0, "Runs"))
	assert.Equal(t, "- **File:** 7.sql", FormatKeyValue("File", "7.sql"))
}

func TestRenderer_NonTTYHasNoANSI(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)

	r.Header(1, "Analyses")
	r.Success("done")
	r.Error("broken")
	r.SQL("SELECT 1;")

	assert.False(t, ansi.MatchString(out.String()+errOut.String()))
	assert.Contains(t, out.String(), "✓ done")
	assert.Contains(t, errOut.String(), "✗ broken")
}

func TestRenderer_MarkdownSQLIsFenced(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)

	r.SQL("SELECT 1;")

	assert.Equal(t, "```sql\nSELECT 1;\n```\n", out.String())
}

func TestRenderer_Failure(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)

	r.Failure("Execution failed for analysis 7: Persons", "Catalog Error: no table", "Failed during conversion")

	s := out.String()
	assert.Equal(t, 3, strings.Count(s, Banner))
	assert.Contains(t, s, "ERROR: Execution failed for analysis 7: Persons")
	assert.Contains(t, s, "Error details: Catalog Error: no table")
	assert.Contains(t, s, "Converted SQL:\nFailed during conversion")
}

func TestRenderer_Table(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)

	r.Table([]string{"ID", "Name"}, [][]string{{"1", "Persons"}, {"2", "Gender"}})

	s := out.String()
	assert.Contains(t, s, "| 1 | Persons |")
	assert.Contains(t, s, "| 2 | Gender |")
}

func runEvents() []core.RunEvent {
	return []core.RunEvent{
		{Event: core.EventRunStart, RunID: "r1", Database: "synpuf"},
		{Event: core.EventCatalogLoaded, Total: 2},
		{Event: core.EventUnitStart, Index: 1, Total: 2, UnitID: "7", UnitName: "Persons", File: "7.sql"},
		{Event: core.EventUnitComplete, Index: 1, Total: 2, UnitID: "7", SQL: "SELECT 7;", Status: "success", ElapsedMS: 12},
		{Event: core.EventMergeStart, UnitID: "merge", File: "merge.sql"},
		{Event: core.EventMergeComplete, UnitID: "merge", SQL: "SELECT 'm';", Status: "success",
			ResultRows: map[string]int64{"results.achilles_results": 42, "results.achilles_analysis": 3}},
		{Event: core.EventRunComplete, Executed: 2, Status: "completed"},
	}
}

func TestRunPrinter_Text(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)
	p := NewRunPrinter(r)

	for _, ev := range runEvents() {
		p.Emit(ev)
	}

	s := out.String()
	assert.Contains(t, s, "Loaded 2 analyses with is_default=1")
	assert.Contains(t, s, "[1/2] Analysis 7: Persons")
	assert.Contains(t, s, "File: 7.sql")
	assert.Contains(t, s, "SELECT 7;")
	assert.Contains(t, s, "✓ Successfully executed (12ms)")
	assert.Contains(t, s, "Executing merge script: merge.sql")
	assert.Contains(t, s, "Successfully executed 2 analyses")
	assert.Contains(t, s, "results.achilles_results: 42 rows")
	assert.Less(t, strings.Index(s, "results.achilles_analysis"), strings.Index(s, "results.achilles_results"),
		"result tables are listed in name order")
	assert.Less(t, strings.Index(s, "[1/2]"), strings.Index(s, "SELECT 7;"))
}

func TestRunPrinter_Markdown(t *testing.T) {
	r, out, _ := newTestRenderer(ModeAuto, false)
	p := NewRunPrinter(r)

	for _, ev := range runEvents() {
		p.Emit(ev)
	}

	s := out.String()
	assert.Contains(t, s, "# Achilles run: synpuf")
	assert.Contains(t, s, "## [1/2] Analysis 7: Persons")
	assert.Contains(t, s, "```sql\nSELECT 7;\n```")
	assert.Contains(t, s, "- **results.achilles_results:** 42 rows")
	assert.Equal(t, 0, strings.Count(s, "```")%2)
	assert.False(t, ansi.MatchString(s))
}

func TestRunPrinter_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, true)
	p := NewRunPrinter(r)

	for _, ev := range runEvents() {
		p.Emit(ev)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(runEvents()))

	var ev core.RunEvent
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &ev))
	assert.Equal(t, core.EventUnitStart, ev.Event)
	assert.Equal(t, "7", ev.UnitID)
	assert.Equal(t, 2, ev.Total)
}
