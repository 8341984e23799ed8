package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/achillesduck/internal/cli/output"
)

// RenderOutput is the JSON form of a rendered unit.
type RenderOutput struct {
	Unit       string   `json:"unit"`
	Path       string   `json:"path"`
	Statements []string `json:"statements"`
	SQL        string   `json:"sql"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <analysis-id|merge>",
		Short: "Print the converted SQL of one analysis without executing it",
		Long: `Run placeholder substitution, hint removal and dialect conversion on one
analysis script, or on the merge script, and print the result.

Nothing is executed. This is useful for checking what a failing analysis
actually sends to the database.

Output adapts to environment:
  - Terminal: Plain SQL
  - Piped/Scripted: Markdown with code block`,
		Example: `  # Render analysis 1
  achillesduck render 1

  # Render the merge script
  achillesduck render merge

  # Render as JSON
  achillesduck render 1 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0])
		},
	}

	return cmd
}

func runRender(cmd *cobra.Command, unitID string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	p, cleanup, err := cmdCtx.NewPipeline(cmd.Context(), PipelineOptions{})
	if err != nil {
		return err
	}
	defer cleanup()

	path, err := p.Orchestrator.ScriptPath(unitID)
	if err != nil {
		return err
	}
	batch, err := p.Orchestrator.Render(cmd.Context(), unitID)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", unitID, err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(RenderOutput{
			Unit:       unitID,
			Path:       path,
			Statements: batch.Statements,
			SQL:        batch.SQL,
		})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Rendered SQL: "+unitID))
		r.Println("")
		r.Println(output.FormatKeyValue("File", path))
		r.Println("")
		r.SQL(batch.SQL)
	default:
		// Text mode: just output the SQL directly
		r.Println(batch.SQL)
	}

	return nil
}
