package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DickyChant/topskim/internal/hist"
)

// wgtSumSlot is the skim_weights slot that holds the nominal weight sum.
const wgtSumSlot = -1

func parseKind(s string) (hist.Kind, error) {
	for _, k := range []hist.Kind{hist.KindH1, hist.KindH2, hist.KindCounter} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown accumulator kind %q", s)
}

// SaveAggregator stores the bookings, every filled bin and the weight sums
// of agg under runID, replacing whatever the run held before.
func (db *DB) SaveAggregator(ctx context.Context, runID string, agg *hist.Aggregator) error {
	return retryOnBusy(func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		for _, q := range []string{
			`DELETE FROM skim_bins WHERE run_id = ?`,
			`DELETE FROM skim_bookings WHERE run_id = ?`,
			`DELETE FROM skim_weights WHERE run_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, runID); err != nil {
				return fmt.Errorf("clear accumulators: %w", err)
			}
		}

		for i, b := range agg.Bookings() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO skim_bookings (run_id, name, kind, title, nx, xmin, xmax, ny, ymin, ymax, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, b.Name, b.Kind.String(), b.Title, b.NX, b.XMin, b.XMax, b.NY, b.YMin, b.YMax, i,
			); err != nil {
				return fmt.Errorf("insert booking %s: %w", b.Name, err)
			}
		}

		bins, err := tx.PrepareContext(ctx, `
			INSERT INTO skim_bins (
				run_id, name, category, cell, x, y, entries,
				sumw, sumw2, sumwx, sumwx2, sumwy, sumwy2, sumwxy
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare bins: %w", err)
		}
		defer bins.Close()
		insert := func(k hist.Key, c hist.Cell) error {
			if _, err := bins.ExecContext(ctx, runID, k.Name, k.Category, c.Index, c.X, c.Y, c.Entries,
				c.SumW, c.SumW2, c.SumWX, c.SumWX2, c.SumWY, c.SumWY2, c.SumWXY); err != nil {
				return fmt.Errorf("insert bin of %s: %w", k, err)
			}
			return nil
		}

		for _, e := range agg.Entries() {
			if e.Kind != hist.KindCounter {
				for _, c := range e.Cells() {
					if err := insert(e.Key, c); err != nil {
						return err
					}
				}
				continue
			}
			t := e.Counter
			for s := 0; s < t.Stages(); s++ {
				for w := 0; w < t.Slots(); w++ {
					if v := t.Value(s, w); v != 0 {
						c := hist.Cell{X: float64(s), Y: float64(w)}
						c.Entries, c.SumW = 1, v
						if err := insert(e.Key, c); err != nil {
							return err
						}
					}
				}
			}
		}

		weights := agg.Weights()
		if _, err := tx.ExecContext(ctx, `INSERT INTO skim_weights (run_id, slot, sumw) VALUES (?, ?, ?)`,
			runID, wgtSumSlot, weights.WgtSum); err != nil {
			return fmt.Errorf("insert wgtsum: %w", err)
		}
		for i, v := range weights.AllWgtSum {
			if _, err := tx.ExecContext(ctx, `INSERT INTO skim_weights (run_id, slot, sumw) VALUES (?, ?, ?)`,
				runID, i, v); err != nil {
				return fmt.Errorf("insert allwgtsum[%d]: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// LoadAggregator rebuilds the accumulators of runID. Histogram cells come
// back with their entries and weighted moments as saved.
func (db *DB) LoadAggregator(ctx context.Context, runID string) (*hist.Aggregator, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, kind, title, nx, xmin, xmax, ny, ymin, ymax
		FROM skim_bookings WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	var bookings []hist.Booking
	for rows.Next() {
		var b hist.Booking
		var kind string
		if err := rows.Scan(&b.Name, &kind, &b.Title, &b.NX, &b.XMin, &b.XMax, &b.NY, &b.YMin, &b.YMax); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if b.Kind, err = parseKind(kind); err != nil {
			rows.Close()
			return nil, err
		}
		bookings = append(bookings, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bookings: %w", err)
	}
	if len(bookings) == 0 {
		return nil, fmt.Errorf("accumulators of run %s: %w", runID, sql.ErrNoRows)
	}

	agg, err := hist.New(bookings...)
	if err != nil {
		return nil, fmt.Errorf("rebuild bookings: %w", err)
	}

	rows, err = db.QueryContext(ctx, `
		SELECT name, category, cell, x, y, entries,
			sumw, sumw2, sumwx, sumwx2, sumwy, sumwy2, sumwxy
		FROM skim_bins WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query bins: %w", err)
	}
	for rows.Next() {
		var name, cat string
		var c hist.Cell
		if err := rows.Scan(&name, &cat, &c.Index, &c.X, &c.Y, &c.Entries,
			&c.SumW, &c.SumW2, &c.SumWX, &c.SumWX2, &c.SumWY, &c.SumWY2, &c.SumWXY); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan bin: %w", err)
		}
		b, _ := agg.Booking(name)
		if b.Kind == hist.KindCounter {
			agg.FillFiducial(name, int(c.X), int(c.Y), c.SumW, cat)
			continue
		}
		if err := agg.AddCell(name, cat, c); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bins: %w", err)
	}

	rows, err = db.QueryContext(ctx, `SELECT slot, sumw FROM skim_weights WHERE run_id = ? ORDER BY slot`, runID)
	if err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}
	defer rows.Close()
	w := &hist.Weights{}
	for rows.Next() {
		var slot int
		var v float64
		if err := rows.Scan(&slot, &v); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		if slot == wgtSumSlot {
			w.WgtSum = v
			continue
		}
		w.AllWgtSum = append(w.AllWgtSum, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	agg.Weights().Merge(w)
	return agg, nil
}
