package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/achillesduck/internal/cli/output"
	"github.com/leapstack-labs/achillesduck/internal/pipeline"
)

// ListItem is the JSON form of one planned analysis.
type ListItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the analyses a run would execute",
		Long: `List every catalog analysis with is_default=1 in execution order, with the
script path it is read from and whether that script exists.

A run aborts at the first missing script, so "missing" entries mark where a
run would stop.

Use --output to override: auto, text, markdown, json`,
		Example: `  # List analyses
  achillesduck list

  # List analyses as JSON
  achillesduck list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	p, cleanup, err := cmdCtx.NewPipeline(cmd.Context(), PipelineOptions{})
	if err != nil {
		return err
	}
	defer cleanup()

	plan, err := p.Orchestrator.Plan(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		items := make([]ListItem, 0, len(plan))
		for _, u := range plan {
			items = append(items, ListItem{ID: u.Analysis.ID, Name: u.Analysis.Name, Path: u.Path, Exists: u.Exists})
		}
		return r.JSON(items)
	}

	r.Header(1, fmt.Sprintf("Analyses (%d total)", len(plan)))
	r.Println("")
	r.Table([]string{"#", "ID", "Name", "Script"}, planRows(plan))

	if missing := countMissing(plan); missing > 0 {
		r.Println("")
		r.StatusLine(output.StatusFailed, fmt.Sprintf("%d analyses have no script", missing))
	}
	return nil
}

func planRows(plan []pipeline.PlannedUnit) [][]string {
	rows := make([][]string, 0, len(plan))
	for i, u := range plan {
		script := u.Path
		if !u.Exists {
			script += " (missing)"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), u.Analysis.ID, u.Analysis.Name, script})
	}
	return rows
}

func countMissing(plan []pipeline.PlannedUnit) int {
	n := 0
	for _, u := range plan {
		if !u.Exists {
			n++
		}
	}
	return n
}
