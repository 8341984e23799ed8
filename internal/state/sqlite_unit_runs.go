package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/achillesduck/pkg/core"
)

// RecordUnitRun inserts a unit run. An empty ID is generated and an empty
// status defaults to pending.
func (s *SQLiteStore) RecordUnitRun(ctx context.Context, ur *core.UnitRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if ur.ID == "" {
		ur.ID = generateID()
	}
	if ur.Status == "" {
		ur.Status = core.UnitRunStatusPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO unit_runs (id, run_id, unit_id, unit_name, position, status, sql, error, started_at, completed_at, execution_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ur.ID, ur.RunID, ur.UnitID, ur.UnitName, ur.Position, string(ur.Status),
		nullString(ur.SQL), nullString(ur.Error), nullTime(&ur.StartedAt), nullTime(ur.CompletedAt), ur.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record unit run: %w", err)
	}
	return nil
}

// UpdateUnitRun moves a unit run to status. Entering running stamps
// started_at; entering success, failed or skipped stamps completed_at.
// Empty sql or errMsg leave the stored values unchanged.
func (s *SQLiteStore) UpdateUnitRun(ctx context.Context, id string, status core.UnitRunStatus, sqlText, errMsg string, executionMS int64) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := formatTime(time.Now())
	var startedAt, completedAt any
	switch status {
	case core.UnitRunStatusRunning:
		startedAt = now
	case core.UnitRunStatusSuccess, core.UnitRunStatusFailed, core.UnitRunStatusSkipped:
		completedAt = now
	}

	s.logger.Debug("updating unit run", slog.String("id", id), slog.String("status", string(status)))

	_, err := s.db.ExecContext(ctx,
		`UPDATE unit_runs SET
			status = ?,
			sql = COALESCE(?, sql),
			error = COALESCE(?, error),
			started_at = COALESCE(started_at, ?),
			completed_at = COALESCE(?, completed_at),
			execution_ms = ?
		 WHERE id = ?`,
		string(status), nullString(sqlText), nullString(errMsg), startedAt, completedAt, executionMS, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update unit run: %w", err)
	}
	return nil
}

// GetUnitRunsForRun returns the unit runs of a run ordered by position.
func (s *SQLiteStore) GetUnitRunsForRun(ctx context.Context, runID string) ([]*core.UnitRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, unit_id, unit_name, position, status, sql, error, started_at, completed_at, execution_ms
		 FROM unit_runs WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unit runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.UnitRun
	for rows.Next() {
		var (
			ur          core.UnitRun
			status      string
			sqlText     sql.NullString
			errMsg      sql.NullString
			startedAt   sql.NullString
			completedAt sql.NullString
		)
		if err := rows.Scan(&ur.ID, &ur.RunID, &ur.UnitID, &ur.UnitName, &ur.Position, &status,
			&sqlText, &errMsg, &startedAt, &completedAt, &ur.ExecutionMS); err != nil {
			return nil, fmt.Errorf("failed to scan unit run: %w", err)
		}
		ur.Status = core.UnitRunStatus(status)
		ur.SQL = sqlText.String
		ur.Error = errMsg.String

		started, err := parseNullTime(startedAt)
		if err != nil {
			return nil, err
		}
		if started != nil {
			ur.StartedAt = *started
		}
		if ur.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, err
		}
		out = append(out, &ur)
	}
	return out, rows.Err()
}

// SkipPendingUnits marks the pending units of a run as skipped with reason
// and reports how many were changed.
func (s *SQLiteStore) SkipPendingUnits(ctx context.Context, runID, reason string) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE unit_runs SET status = ?, error = ?, completed_at = ? WHERE run_id = ? AND status = ?`,
		string(core.UnitRunStatusSkipped), nullString(reason), formatTime(time.Now()),
		runID, string(core.UnitRunStatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to skip pending units: %w", err)
	}
	return res.RowsAffected()
}
