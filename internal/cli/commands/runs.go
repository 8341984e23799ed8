package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/achillesduck/internal/cli/output"
	"github.com/leapstack-labs/achillesduck/internal/state"
	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show run history",
		Long: `Show recorded pipeline runs, newest first.

With a run ID, show every unit of that run: its status, duration and error.
Units after the failing one are recorded as skipped.`,
		Example: `  # Recent runs
  achillesduck runs

  # Units of one run
  achillesduck runs 3f1c0a52-7f4e-4c83-9d0e-1b2d6f0c9a11

  # As JSON
  achillesduck runs --limit 5 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runRunDetail(cmd, args[0])
			}
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show")

	return cmd
}

func openHistory(cmdCtx *CommandContext) (*state.SQLiteStore, error) {
	if cmdCtx.Cfg.StatePath == "" {
		return nil, errors.New("run history is disabled (state_path is empty)")
	}
	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openHistory(cmdCtx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}

	r.Header(1, fmt.Sprintf("Runs (%d shown)", len(runs)))
	r.Println("")
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Database,
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			runDuration(run),
			fmt.Sprintf("%d", run.Executed),
			run.Error,
		})
	}
	r.Table([]string{"Run", "Database", "Status", "Started", "Duration", "Executed", "Error"}, rows)
	return nil
}

func runRunDetail(cmd *cobra.Command, runID string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openHistory(cmdCtx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	units, err := store.GetUnitRunsForRun(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			Run   *core.Run       `json:"run"`
			Units []*core.UnitRun `json:"units"`
		}{run, units})
	}

	r.Header(1, "Run "+run.ID)
	r.Println("")
	r.StatusLine(string(run.Status), fmt.Sprintf("%s: %s, %d analyses executed", run.Database, run.Status, run.Executed))
	if run.Error != "" {
		r.Println(r.Muted(run.Error))
	}
	r.Println("")

	rows := make([][]string, 0, len(units))
	for _, u := range units {
		rows = append(rows, []string{
			fmt.Sprintf("%d", u.Position+1),
			u.UnitID,
			u.UnitName,
			string(u.Status),
			(time.Duration(u.ExecutionMS) * time.Millisecond).String(),
			u.Error,
		})
	}
	r.Table([]string{"#", "Unit", "Name", "Status", "Time", "Error"}, rows)
	return nil
}

func runDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
