package pipeline

// run.go - Execution of a full pipeline run

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/leapstack-labs/achillesduck/internal/catalog"
	"github.com/leapstack-labs/achillesduck/internal/lifecycle"
	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// State is the position of a run in its lifecycle.
type State int

// Run states. Aborted and Complete are terminal.
const (
	StateUninitialized State = iota
	StateInitialized
	StateExecuting
	StateMerging
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateExecuting:
		return "executing"
	case StateMerging:
		return "merging"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Run is the context of one pipeline execution.
type Run struct {
	ID       string
	State    State
	Analyses []core.Analysis
	// Current is the 1-based position of the analysis being executed.
	Current  int
	Executed int
	// LastBatch is the last batch handed to the engine.
	LastBatch string
	StartedAt time.Time

	conn        Conn
	initialized bool
	units       []*core.UnitRun // one per analysis, then the merge unit
}

// Run executes the pipeline on a connection obtained from open. The
// connection is closed before Run returns. The returned Run is non-nil
// whenever the run was started, including on failure.
func (o *Orchestrator) Run(ctx context.Context, open Opener) (*Run, error) {
	o.logger.Info("starting run", "database", o.cfg.Database)

	rec, err := o.history.CreateRun(ctx, o.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	run := &Run{ID: rec.ID, State: StateUninitialized, StartedAt: rec.StartedAt}
	o.logger.Debug("created run", "run_id", run.ID)
	o.emit(run, core.RunEvent{Event: core.EventRunStart})

	runErr := o.execute(ctx, run, open)

	// Bookkeeping outlives a cancelled run.
	bg := context.WithoutCancel(ctx)

	if runErr != nil && o.cfg.CleanupOnFailure && run.initialized {
		if err := o.lifecycle.DropScratch(bg, run.conn); err != nil {
			o.logger.Warn("failed to drop scratch schema after failure", "run_id", run.ID, "error", err)
		}
	}
	if run.conn != nil {
		if err := run.conn.Close(); err != nil {
			o.logger.Warn("failed to close database", "run_id", run.ID, "error", err)
			if runErr == nil {
				runErr = fmt.Errorf("failed to close database: %w", err)
			}
		}
		run.conn = nil
	}

	if runErr != nil {
		o.fail(bg, run, runErr)
	} else {
		o.complete(bg, run)
	}

	if err := o.metrics.Flush(bg); err != nil {
		o.logger.Warn("failed to push metrics", "run_id", run.ID, "error", err)
	}
	return run, runErr
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, open Opener) error {
	conn, err := open(ctx)
	if err != nil {
		return &InitializeError{Err: err}
	}
	run.conn = conn

	if err := o.lifecycle.Initialize(ctx, conn); err != nil {
		return &InitializeError{Err: statementError(err)}
	}
	run.initialized = true
	run.State = StateInitialized

	analyses, err := catalog.LoadFile(ctx, o.source, o.cfg.CatalogPath, o.logger)
	if err != nil {
		return err
	}
	run.Analyses = analyses
	o.recordPending(ctx, run)
	o.emit(run, core.RunEvent{Event: core.EventCatalogLoaded, Total: len(analyses)})

	for i, a := range analyses {
		if err := o.executeUnit(ctx, run, i, a); err != nil {
			return err
		}
	}
	return o.merge(ctx, run)
}

func (o *Orchestrator) executeUnit(ctx context.Context, run *Run, i int, a core.Analysis) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before analysis %s: %w", a.ID, err)
	}
	run.State = StateExecuting
	run.Current = i + 1

	ev := core.RunEvent{
		Index:    i + 1,
		Total:    len(run.Analyses),
		UnitID:   a.ID,
		UnitName: a.Name,
	}
	scriptPath, err := o.AnalysisPath(a.ID)
	if err != nil {
		uerr := &UnitError{Analysis: a, Index: i + 1, Err: err}
		o.unitFailed(ctx, run, i, ev, "", uerr, 0)
		return uerr
	}
	file := path.Base(scriptPath)
	ev.File = file

	raw, err := o.readScript(ctx, a.ID, scriptPath)
	if err != nil {
		var missing *MissingScriptError
		if !errors.As(err, &missing) {
			err = &UnitError{Analysis: a, Index: i + 1, File: file, Err: err}
		}
		o.unitFailed(ctx, run, i, ev, "", err, 0)
		return err
	}

	o.logger.Info("executing analysis", "run_id", run.ID, "index", i+1, "total", len(run.Analyses),
		"analysis_id", a.ID, "name", a.Name)
	start := time.Now()
	o.updateUnit(ctx, run, i, core.UnitRunStatusRunning, "", "", 0)
	ev.Event = core.EventUnitStart
	o.emit(run, ev)

	batch, err := o.pre.Preprocess(ctx, file, raw)
	if err != nil {
		uerr := &UnitError{Analysis: a, Index: i + 1, File: file, Err: err}
		o.unitFailed(ctx, run, i, ev, "", uerr, time.Since(start))
		return uerr
	}

	run.LastBatch = batch.SQL
	if err := run.conn.Exec(ctx, batch.SQL); err != nil {
		uerr := &UnitError{
			Analysis: a,
			Index:    i + 1,
			File:     file,
			SQL:      batch.SQL,
			Err:      &ExecutionError{SQL: batch.SQL, Err: err},
		}
		o.unitFailed(ctx, run, i, ev, batch.SQL, uerr, time.Since(start))
		return uerr
	}

	elapsed := time.Since(start)
	run.Executed++
	o.updateUnit(ctx, run, i, core.UnitRunStatusSuccess, batch.SQL, "", elapsed.Milliseconds())
	o.metrics.ObserveUnit(string(core.UnitRunStatusSuccess), elapsed)

	ev.Event = core.EventUnitComplete
	ev.SQL = batch.SQL
	ev.Status = string(core.UnitRunStatusSuccess)
	ev.ElapsedMS = elapsed.Milliseconds()
	o.emit(run, ev)
	return nil
}

func (o *Orchestrator) merge(ctx context.Context, run *Run) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before merge: %w", err)
	}
	run.State = StateMerging
	idx := len(run.Analyses)
	scriptPath := o.cfg.MergeScript
	ev := core.RunEvent{UnitID: core.MergeUnitID, UnitName: core.MergeUnitID, File: path.Base(scriptPath)}

	raw, err := o.readScript(ctx, core.MergeUnitID, scriptPath)
	if err != nil {
		var missing *MissingScriptError
		if errors.As(err, &missing) {
			missing.Merge = true
		}
		merr := &MergeError{Err: err}
		o.unitFailed(ctx, run, idx, ev, "", merr, 0)
		return merr
	}

	o.logger.Info("executing merge", "run_id", run.ID, "script", scriptPath)
	start := time.Now()
	o.updateUnit(ctx, run, idx, core.UnitRunStatusRunning, "", "", 0)
	ev.Event = core.EventMergeStart
	o.emit(run, ev)

	batch, err := o.pre.Preprocess(ctx, ev.File, raw)
	if err != nil {
		merr := &MergeError{Err: err}
		o.unitFailed(ctx, run, idx, ev, "", merr, time.Since(start))
		return merr
	}

	run.LastBatch = batch.SQL
	if err := o.lifecycle.FinalizeMerge(ctx, run.conn, batch.SQL); err != nil {
		merr := &MergeError{Err: statementError(err)}
		o.unitFailed(ctx, run, idx, ev, batch.SQL, merr, time.Since(start))
		return merr
	}

	elapsed := time.Since(start)
	o.updateUnit(ctx, run, idx, core.UnitRunStatusSuccess, batch.SQL, "", elapsed.Milliseconds())
	o.metrics.ObserveUnit(string(core.UnitRunStatusSuccess), elapsed)
	ev.ResultRows = o.resultCounts(ctx, run)

	ev.Event = core.EventMergeComplete
	ev.SQL = batch.SQL
	ev.Status = string(core.UnitRunStatusSuccess)
	ev.ElapsedMS = elapsed.Milliseconds()
	o.emit(run, ev)
	return nil
}

// resultCounts reads back the row count of each result table. Counting is
// informational: connections that cannot query are skipped and errors are
// logged.
func (o *Orchestrator) resultCounts(ctx context.Context, run *Run) map[string]int64 {
	q, ok := run.conn.(lifecycle.Querier)
	if !ok {
		return nil
	}
	counts, err := o.lifecycle.ResultCounts(ctx, q)
	if err != nil {
		o.logger.Warn("failed to count result rows", "run_id", run.ID, "error", err)
		return nil
	}
	for table, n := range counts {
		o.logger.Info("result table", "run_id", run.ID, "table", table, "rows", n)
	}
	return counts
}

// recordPending records one pending unit per analysis plus the merge unit.
func (o *Orchestrator) recordPending(ctx context.Context, run *Run) {
	run.units = make([]*core.UnitRun, 0, len(run.Analyses)+1)
	add := func(id, name string) {
		ur := &core.UnitRun{
			RunID:    run.ID,
			UnitID:   id,
			UnitName: name,
			Position: len(run.units) + 1,
			Status:   core.UnitRunStatusPending,
		}
		if err := o.history.RecordUnitRun(ctx, ur); err != nil {
			o.logger.Warn("failed to record unit run", "run_id", run.ID, "unit_id", id, "error", err)
		}
		run.units = append(run.units, ur)
	}
	for _, a := range run.Analyses {
		add(a.ID, a.Name)
	}
	add(core.MergeUnitID, core.MergeUnitID)
}

func (o *Orchestrator) updateUnit(ctx context.Context, run *Run, idx int, status core.UnitRunStatus, sql, errMsg string, ms int64) {
	if idx >= len(run.units) || run.units[idx].ID == "" {
		return
	}
	ur := run.units[idx]
	ur.Status = status
	if err := o.history.UpdateUnitRun(context.WithoutCancel(ctx), ur.ID, status, sql, errMsg, ms); err != nil {
		o.logger.Warn("failed to update unit run", "run_id", run.ID, "unit_id", ur.UnitID, "error", err)
	}
}

func (o *Orchestrator) unitFailed(ctx context.Context, run *Run, idx int, ev core.RunEvent, sql string, err error, elapsed time.Duration) {
	o.updateUnit(ctx, run, idx, core.UnitRunStatusFailed, sql, err.Error(), elapsed.Milliseconds())
	o.metrics.ObserveUnit(string(core.UnitRunStatusFailed), elapsed)

	ev.Event = core.EventUnitFailed
	ev.SQL = sql
	ev.Status = string(core.UnitRunStatusFailed)
	ev.Error = err.Error()
	ev.ElapsedMS = elapsed.Milliseconds()
	o.emit(run, ev)
}

func (o *Orchestrator) fail(ctx context.Context, run *Run, runErr error) {
	run.State = StateAborted
	status := core.RunStatusFailed
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		status = core.RunStatusCancelled
	}
	o.logger.Error("run failed", "run_id", run.ID, "executed", run.Executed, "error", runErr.Error())

	if _, err := o.history.SkipPendingUnits(ctx, run.ID, "run aborted: "+runErr.Error()); err != nil {
		o.logger.Warn("failed to skip pending units", "run_id", run.ID, "error", err)
	}
	if err := o.history.CompleteRun(ctx, run.ID, status, run.Executed, runErr.Error()); err != nil {
		o.logger.Warn("failed to complete run", "run_id", run.ID, "error", err)
	}
	o.metrics.RunFinished(false)
	o.emit(run, core.RunEvent{
		Event:    core.EventRunFailed,
		Status:   string(status),
		Error:    runErr.Error(),
		Executed: run.Executed,
	})
}

func (o *Orchestrator) complete(ctx context.Context, run *Run) {
	run.State = StateComplete
	o.logger.Info("run completed", "run_id", run.ID, "executed", run.Executed)

	if err := o.history.CompleteRun(ctx, run.ID, core.RunStatusCompleted, run.Executed, ""); err != nil {
		o.logger.Warn("failed to complete run", "run_id", run.ID, "error", err)
	}
	o.metrics.RunFinished(true)
	o.emit(run, core.RunEvent{
		Event:     core.EventRunComplete,
		Status:    string(core.RunStatusCompleted),
		Executed:  run.Executed,
		ElapsedMS: time.Since(run.StartedAt).Milliseconds(),
	})
}

// statementError exposes a failed lifecycle statement as an ExecutionError.
func statementError(err error) error {
	var se *lifecycle.StatementError
	if errors.As(err, &se) {
		return &ExecutionError{SQL: se.SQL, Err: se.Err}
	}
	return err
}
