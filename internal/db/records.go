package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DickyChant/topskim/internal/output"
)

// recordBatch is the number of records buffered per insert transaction.
const recordBatch = 256

// RecordStore appends the output records of one run. It buffers records
// and inserts them in batches; Close flushes the remainder.
type RecordStore struct {
	db      *DB
	runID   string
	pending []*output.Record
	seq     int
}

// NewRecordStore returns a store for the records of runID.
func NewRecordStore(db *DB, runID string) *RecordStore {
	return &RecordStore{db: db, runID: runID}
}

// WriteRecord buffers r, flushing once a batch is full. The record is
// copied so callers may reuse it.
func (s *RecordStore) WriteRecord(ctx context.Context, r *output.Record) error {
	cp := *r
	s.pending = append(s.pending, &cp)
	if len(s.pending) >= recordBatch {
		return s.Flush(ctx)
	}
	return nil
}

// Count returns the number of records accepted so far.
func (s *RecordStore) Count() int { return s.seq + len(s.pending) }

// Flush inserts the buffered records in one transaction.
func (s *RecordStore) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	err := retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO skim_records (
				run_id, seq, run, lumi, event, nlep, llm, nbjet, weight, bdt, record_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for i, r := range s.pending {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode record %d:%d:%d: %w", r.Run, r.Lumi, r.Event, err)
			}
			if _, err := stmt.ExecContext(ctx,
				s.runID, s.seq+i, r.Run, r.Lumi, r.Event, r.NLep, r.LLM, r.NBJet, r.Weight, r.BDT, string(payload),
			); err != nil {
				return fmt.Errorf("insert record %d:%d:%d: %w", r.Run, r.Lumi, r.Event, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("flush records of run %s: %w", s.runID, err)
	}
	s.seq += len(s.pending)
	s.pending = s.pending[:0]
	return nil
}

// Close flushes the buffered records.
func (s *RecordStore) Close() error {
	return s.Flush(context.Background())
}

// ListRecords returns the records of runID in write order.
func (db *DB) ListRecords(ctx context.Context, runID string) ([]output.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT record_json FROM skim_records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []output.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var r output.Record
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(out), err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountRecords returns the number of stored records of runID.
func (db *DB) CountRecords(ctx context.Context, runID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM skim_records WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
