package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one pass of the skim over an input.
type Run struct {
	RunID          string          `json:"run_id"`
	Input          string          `json:"input"`
	IsMC           bool            `json:"is_mc"`
	IsPP           bool            `json:"is_pp"`
	Stream         string          `json:"stream"`
	GlobalTag      string          `json:"global_tag"`
	ConfigJSON     json.RawMessage `json:"config_json,omitempty"`
	EventsRead     int             `json:"events_read"`
	EventsSelected int             `json:"events_selected"`
	Status         string          `json:"status"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	StartedAt      int64           `json:"started_at"`
	FinishedAt     *int64          `json:"finished_at,omitempty"`
}

// StartRun inserts r in the running state. An empty RunID is replaced by
// a fresh UUID.
func (db *DB) StartRun(ctx context.Context, r *Run) error {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.StartedAt == 0 {
		r.StartedAt = db.clock.Now().UnixNano()
	}
	if r.Stream == "" {
		r.Stream = "any"
	}
	r.Status = RunRunning

	var cfg interface{}
	if len(r.ConfigJSON) > 0 {
		cfg = string(r.ConfigJSON)
	}
	return retryOnBusy(func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO skim_runs (
				run_id, input, is_mc, is_pp, stream, global_tag, config_json,
				status, started_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, r.Input, r.IsMC, r.IsPP, r.Stream, r.GlobalTag, cfg,
			r.Status, r.StartedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run %s: %w", r.RunID, err)
		}
		return nil
	})
}

// FinishRun records the event counts and the final status. A non-nil
// runErr marks the run failed.
func (db *DB) FinishRun(ctx context.Context, runID string, read, selected int, runErr error) error {
	status, msg := RunCompleted, interface{}(nil)
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	return retryOnBusy(func() error {
		res, err := db.ExecContext(ctx, `
			UPDATE skim_runs
			SET events_read = ?, events_selected = ?, status = ?, error_message = ?, finished_at = ?
			WHERE run_id = ?`,
			read, selected, status, msg, db.clock.Now().UnixNano(), runID,
		)
		if err != nil {
			return fmt.Errorf("finish run %s: %w", runID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
}

const runColumns = `run_id, input, is_mc, is_pp, stream, global_tag, config_json,
	events_read, events_selected, status, error_message, started_at, finished_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var cfg, msg sql.NullString
	var finished sql.NullInt64
	if err := s.Scan(
		&r.RunID, &r.Input, &r.IsMC, &r.IsPP, &r.Stream, &r.GlobalTag, &cfg,
		&r.EventsRead, &r.EventsSelected, &r.Status, &msg, &r.StartedAt, &finished,
	); err != nil {
		return nil, err
	}
	if cfg.Valid {
		r.ConfigJSON = json.RawMessage(cfg.String)
	}
	r.ErrorMessage = msg.String
	if finished.Valid {
		v := finished.Int64
		r.FinishedAt = &v
	}
	return &r, nil
}

// GetRun returns one run. A missing run yields an error wrapping
// sql.ErrNoRows.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM skim_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first, at most limit of them
// (all when limit <= 0).
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM skim_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run with its records and accumulators.
func (db *DB) DeleteRun(ctx context.Context, runID string) error {
	return retryOnBusy(func() error {
		res, err := db.ExecContext(ctx, `DELETE FROM skim_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run %s: %w", runID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
}
