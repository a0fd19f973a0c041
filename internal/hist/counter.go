package hist

import (
	"github.com/DickyChant/topskim/internal/monitoring"
)

// Counter is a fiducial counter: one row per stage, one column per weight
// slot. Columns grow on demand.
type Counter struct {
	rows    [][]float64
	entries int64
}

// NewCounter returns an empty counter with the given number of stages.
func NewCounter(stages int) *Counter {
	return &Counter{rows: make([][]float64, stages)}
}

// Stages returns the number of rows.
func (c *Counter) Stages() int { return len(c.rows) }

// Slots returns the widest row length.
func (c *Counter) Slots() int {
	n := 0
	for _, r := range c.rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// Add accumulates w into (stage, slot).
func (c *Counter) Add(stage, slot int, w float64) {
	row := c.rows[stage]
	for len(row) <= slot {
		row = append(row, 0)
	}
	row[slot] += w
	c.rows[stage] = row
	c.entries++
}

// Value returns the sum at (stage, slot), zero when never filled.
func (c *Counter) Value(stage, slot int) float64 {
	if stage < 0 || stage >= len(c.rows) || slot < 0 || slot >= len(c.rows[stage]) {
		return 0
	}
	return c.rows[stage][slot]
}

// Entries returns the number of Add calls.
func (c *Counter) Entries() int64 { return c.entries }

// Merge adds o into c. Stage counts must agree; extra rows of o are ignored.
func (c *Counter) Merge(o *Counter) {
	for s := 0; s < len(c.rows) && s < len(o.rows); s++ {
		for slot, v := range o.rows[s] {
			row := c.rows[s]
			for len(row) <= slot {
				row = append(row, 0)
			}
			row[slot] += v
			c.rows[s] = row
		}
	}
	c.entries += o.entries
}

// Weights tracks the systematic weight slots of a run. The slot count is
// taken from the first event that carries weights and is fixed thereafter.
type Weights struct {
	n int

	// WgtSum is the sum of nominal event weights.
	WgtSum float64
	// AllWgtSum is the per-slot weight sum.
	AllWgtSum []float64

	warn monitoring.OnceLogger
}

// Count returns the number of slots, 0 before discovery.
func (w *Weights) Count() int { return w.n }

// Slots normalizes one event's raw weight vector to the run's slot count:
// missing entries weigh 1, surplus entries are dropped. Before any event
// carried weights a single nominal slot of 1 is returned.
func (w *Weights) Slots(raw []float64) []float64 {
	if w.n == 0 {
		if len(raw) == 0 {
			return []float64{1}
		}
		w.n = len(raw)
		monitoring.Logf("hist: %d weight slots", w.n)
	}
	out := make([]float64, w.n)
	for i := range out {
		out[i] = 1
	}
	copy(out, raw)
	if len(raw) != w.n && len(raw) > 0 {
		w.warn.Logf("count", "hist: event carries %d weights, run has %d slots; missing slots weigh 1", len(raw), w.n)
	}
	return out
}

// Add accumulates one event's slots. slots[0] is the nominal weight.
func (w *Weights) Add(slots []float64) {
	if len(slots) == 0 {
		return
	}
	w.WgtSum += slots[0]
	for len(w.AllWgtSum) < len(slots) {
		w.AllWgtSum = append(w.AllWgtSum, 0)
	}
	for i, v := range slots {
		w.AllWgtSum[i] += v
	}
}

// Merge adds the sums of o.
func (w *Weights) Merge(o *Weights) {
	if w.n == 0 {
		w.n = o.n
	}
	w.WgtSum += o.WgtSum
	for len(w.AllWgtSum) < len(o.AllWgtSum) {
		w.AllWgtSum = append(w.AllWgtSum, 0)
	}
	for i, v := range o.AllWgtSum {
		w.AllWgtSum[i] += v
	}
}
