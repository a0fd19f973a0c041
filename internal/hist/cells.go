package hist

import (
	"fmt"

	"go-hep.org/x/hep/hbook"
)

// TotalCell addresses the whole-histogram distribution, overflows
// included. Outflow k is at OutflowCell(k); bins use their index.
const TotalCell = -1

// OutflowCell returns the cell index of the k-th outflow distribution:
// underflow and overflow for 1-D histograms, the eight surrounding regions
// for 2-D ones.
func OutflowCell(k int) int { return -2 - k }

// Moments are the weighted sums of one histogram cell.
type Moments struct {
	Entries int64
	SumW    float64
	SumW2   float64
	SumWX   float64
	SumWX2  float64
	SumWY   float64
	SumWY2  float64
	SumWXY  float64
}

// Cell is one non-empty cell of a histogram. X and Y are the bin centre,
// zero for the total and outflow cells.
type Cell struct {
	Index int
	X, Y  float64
	Moments
}

func moments1(d hbook.Dist1D) Moments {
	return Moments{
		Entries: d.Dist.N,
		SumW:    d.Dist.SumW,
		SumW2:   d.Dist.SumW2,
		SumWX:   d.Stats.SumWX,
		SumWX2:  d.Stats.SumWX2,
	}
}

func moments2(d hbook.Dist2D) Moments {
	m := moments1(d.X)
	m.SumWY = d.Y.Stats.SumWX
	m.SumWY2 = d.Y.Stats.SumWX2
	m.SumWXY = d.Stats.SumWXY
	return m
}

func (m Moments) dist1() hbook.Dist1D {
	var d hbook.Dist1D
	d.Dist = hbook.Dist0D{N: m.Entries, SumW: m.SumW, SumW2: m.SumW2}
	d.Stats.SumWX = m.SumWX
	d.Stats.SumWX2 = m.SumWX2
	return d
}

func (m Moments) dist2() hbook.Dist2D {
	var d hbook.Dist2D
	d.X = m.dist1()
	d.Y = m.dist1()
	d.Y.Stats.SumWX = m.SumWY
	d.Y.Stats.SumWX2 = m.SumWY2
	d.Stats.SumWXY = m.SumWXY
	return d
}

func addDist1(dst *hbook.Dist1D, o hbook.Dist1D) {
	dst.Dist.N += o.Dist.N
	dst.Dist.SumW += o.Dist.SumW
	dst.Dist.SumW2 += o.Dist.SumW2
	dst.Stats.SumWX += o.Stats.SumWX
	dst.Stats.SumWX2 += o.Stats.SumWX2
}

func addDist2(dst *hbook.Dist2D, o hbook.Dist2D) {
	addDist1(&dst.X, o.X)
	addDist1(&dst.Y, o.Y)
	dst.Stats.SumWXY += o.Stats.SumWXY
}

// addH1 sums src into dst; both share a booking.
func addH1(dst, src *hbook.H1D) {
	bng := &dst.Binning
	for i := range src.Binning.Bins {
		addDist1(&bng.Bins[i].Dist, src.Binning.Bins[i].Dist)
	}
	for i := range src.Binning.Outflows {
		addDist1(&bng.Outflows[i], src.Binning.Outflows[i])
	}
	addDist1(&bng.Dist, src.Binning.Dist)
}

func addH2(dst, src *hbook.H2D) {
	bng := &dst.Binning
	for i := range src.Binning.Bins {
		addDist2(&bng.Bins[i].Dist, src.Binning.Bins[i].Dist)
	}
	for i := range src.Binning.Outflows {
		addDist2(&bng.Outflows[i], src.Binning.Outflows[i])
	}
	addDist2(&bng.Dist, src.Binning.Dist)
}

// Cells returns the total cell followed by the non-empty outflow and bin
// cells of a histogram entry. Counters have no cells.
func (e Entry) Cells() []Cell {
	var out []Cell
	switch e.Kind {
	case KindH1:
		bng := &e.H1.Binning
		out = append(out, Cell{Index: TotalCell, Moments: moments1(bng.Dist)})
		for k := range bng.Outflows {
			if d := bng.Outflows[k]; d.Dist.N > 0 {
				out = append(out, Cell{Index: OutflowCell(k), Moments: moments1(d)})
			}
		}
		for i := range bng.Bins {
			b := &bng.Bins[i]
			if b.Entries() > 0 {
				out = append(out, Cell{Index: i, X: b.XMid(), Moments: moments1(b.Dist)})
			}
		}
	case KindH2:
		bng := &e.H2.Binning
		out = append(out, Cell{Index: TotalCell, Moments: moments2(bng.Dist)})
		for k := range bng.Outflows {
			if d := bng.Outflows[k]; d.X.Dist.N > 0 {
				out = append(out, Cell{Index: OutflowCell(k), Moments: moments2(d)})
			}
		}
		for i := range bng.Bins {
			b := &bng.Bins[i]
			if b.Entries() > 0 {
				out = append(out, Cell{Index: i, X: b.XMid(), Y: b.YMid(), Moments: moments2(b.Dist)})
			}
		}
	}
	return out
}

// AddCell adds the moments of c to the matching cell of the histogram
// name in category cat, creating the bucket when needed.
func (a *Aggregator) AddCell(name, cat string, c Cell) error {
	b, ok := a.bookings[name]
	if !ok {
		return fmt.Errorf("cell of %s: not booked", name)
	}
	k := Key{name, cat}
	switch b.Kind {
	case KindH1:
		bng := &a.h1For(k, b).Binning
		switch {
		case c.Index == TotalCell:
			addDist1(&bng.Dist, c.dist1())
		case c.Index >= 0 && c.Index < len(bng.Bins):
			addDist1(&bng.Bins[c.Index].Dist, c.dist1())
		case c.Index <= OutflowCell(0) && OutflowCell(0)-c.Index < len(bng.Outflows):
			addDist1(&bng.Outflows[OutflowCell(0)-c.Index], c.dist1())
		default:
			return fmt.Errorf("cell of %s: index %d out of range", k, c.Index)
		}
	case KindH2:
		bng := &a.h2For(k, b).Binning
		switch {
		case c.Index == TotalCell:
			addDist2(&bng.Dist, c.dist2())
		case c.Index >= 0 && c.Index < len(bng.Bins):
			addDist2(&bng.Bins[c.Index].Dist, c.dist2())
		case c.Index <= OutflowCell(0) && OutflowCell(0)-c.Index < len(bng.Outflows):
			addDist2(&bng.Outflows[OutflowCell(0)-c.Index], c.dist2())
		default:
			return fmt.Errorf("cell of %s: index %d out of range", k, c.Index)
		}
	default:
		return fmt.Errorf("cell of %s: %s buckets have no cells", k, b.Kind)
	}
	return nil
}
