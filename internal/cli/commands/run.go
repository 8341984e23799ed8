package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/achillesduck/internal/cli/output"
	"github.com/leapstack-labs/achillesduck/internal/pipeline"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every catalog analysis and merge the results",
		Long: `Execute the Achilles analyses against the results database.

The database is initialized (scratch schema created, result tables dropped),
then every analysis with is_default=1 is converted and executed in catalog
order. After the last analysis the merge script builds the result tables and
the scratch schema is dropped.

The first failure aborts the run: the failing analysis, its converted SQL and
the database error are printed and the command exits with status 1.

Output adapts to environment:
  - Terminal: Styled progress
  - Piped/Scripted: Markdown format
  - --output json: one JSON event per line`,
		Example: `  # Run against /app/data/synpuf
  DATABASE_NAME=synpuf achillesduck run

  # Run against a database outside the data directory
  achillesduck run --database-name synpuf --database ./synpuf.duckdb

  # Stream JSON progress events
  achillesduck run -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd)
		},
	}

	return cmd
}

func runRun(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	p, cleanup, err := cmdCtx.NewPipeline(cmd.Context(), PipelineOptions{
		Events:  output.NewRunPrinter(r),
		History: true,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := p.Orchestrator.Run(cmd.Context(), p.Open)
	if err != nil {
		reportFailure(r, err)
		return err
	}
	cmdCtx.Logger.Info("run completed", "run_id", run.ID, "executed", run.Executed)
	return nil
}

// reportFailure prints the diagnostic block for a failed run. In JSON mode
// the run_failed event already carries the error.
func reportFailure(r *output.Renderer, err error) {
	if r.EffectiveMode() == output.ModeJSON {
		return
	}

	var (
		missing *pipeline.MissingScriptError
		unit    *pipeline.UnitError
		merge   *pipeline.MergeError
		initErr *pipeline.InitializeError
		exec    *pipeline.ExecutionError
	)
	switch {
	case errors.As(err, &merge):
		sql := ""
		if errors.As(merge.Err, &exec) {
			sql = exec.SQL
		}
		if errors.As(merge.Err, &missing) {
			r.Failure("Merge script not found", "expected file "+missing.Path, "")
			return
		}
		r.Failure("Merge script execution failed", merge.Err.Error(), sql)
	case errors.As(err, &missing):
		r.Failure(fmt.Sprintf("SQL file not found for analysis %s", missing.UnitID), "expected file "+missing.Path, "")
	case errors.As(err, &unit):
		r.Failure(fmt.Sprintf("Execution failed for analysis %s: %s", unit.Analysis.ID, unit.Analysis.Name),
			unit.Err.Error(), unit.BatchText())
	case errors.As(err, &initErr):
		r.Failure("Failed to initialize database", initErr.Err.Error(), "")
	default:
		r.Failure("Run aborted", err.Error(), "")
	}
}
