package hist

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/hbook"

	"github.com/DickyChant/topskim/internal/monitoring"
)

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })
	return &lines
}

func newAgg(t *testing.T) *Aggregator {
	t.Helper()
	a, err := New(
		H1("mll", "m(ll)", 40, 0, 200),
		H2("jetavsphi", "η vs φ", 10, -2.5, 2.5, 10, -math.Pi, math.Pi),
		CounterBooking("fidcounter", "fiducial", 5),
	)
	require.NoError(t, err)
	return a
}

func h1Sums(a *Aggregator, name, cat string) []float64 {
	h := a.H1D(name, cat)
	if h == nil {
		return nil
	}
	out := make([]float64, len(h.Binning.Bins))
	for i, b := range h.Binning.Bins {
		out[i] = b.SumW()
	}
	return out
}

func TestBookingValidation(t *testing.T) {
	_, err := New(H1("x", "", 0, 0, 1))
	assert.Error(t, err)
	_, err = New(H1("x", "", 10, 1, 1))
	assert.Error(t, err)
	_, err = New(H2("x", "", 10, 0, 1, 0, 0, 1))
	assert.Error(t, err)
	_, err = New(H1("x", "", 10, 0, 1), H1("x", "", 10, 0, 1))
	assert.Error(t, err)
	_, err = New(CounterBooking("f", "", 5))
	assert.NoError(t, err)
}

func TestFill_LazyPerCategory(t *testing.T) {
	a := newAgg(t)
	assert.Nil(t, a.H1D("mll", "mm"))

	a.Fill("mll", 91, 2, "mm", "mm0pfb")
	a.Fill("mll", 91, 1, "mm")

	mm := a.H1D("mll", "mm")
	require.NotNil(t, mm)
	assert.Equal(t, int64(2), mm.Entries())
	assert.InDelta(t, 3, mm.SumW(), 1e-12)
	assert.InDelta(t, 2, a.H1D("mll", "mm0pfb").SumW(), 1e-12)
	assert.Nil(t, a.H1D("mll", "ee"))
}

func TestFill_OutOfRangeGoesToOutflows(t *testing.T) {
	a := newAgg(t)
	a.Fill("mll", 500, 1, "ee")
	a.Fill("mll", -3, 0.5, "ee")
	a.Fill2D("jetavsphi", 3, -4, 1, "ee")

	for _, s := range h1Sums(a, "mll", "ee") {
		assert.Equal(t, 0.0, s)
	}
	h := a.H1D("mll", "ee")
	assert.Equal(t, 0.5, h.Binning.Outflows[0].SumW())
	assert.Equal(t, 1.0, h.Binning.Outflows[1].SumW())
	assert.InDelta(t, 1.5, h.SumW(), 1e-12)
	assert.Equal(t, int64(2), h.Entries())

	h2 := a.H2D("jetavsphi", "ee")
	assert.InDelta(t, 1, h2.SumW(), 1e-12)
	for _, b := range h2.Binning.Bins {
		assert.Equal(t, 0.0, b.SumW())
	}
}

func TestFill_UnknownAndMismatchedDroppedOnce(t *testing.T) {
	logs := captureLogs(t)
	a := newAgg(t)

	a.Fill("nope", 1, 1, "mm")
	a.Fill("nope", 2, 1, "mm")
	a.Fill2D("mll", 1, 1, 1, "mm")
	a.Fill("mll", math.NaN(), 1, "mm")
	a.Fill("mll", math.Inf(1), 1, "mm")
	a.FillFiducial("fidcounter", 7, 0, 1, "gen")

	assert.Empty(t, a.Entries())
	assert.Len(t, *logs, 4)
	assert.Contains(t, (*logs)[0], "nope")
}

func TestFillFiducial(t *testing.T) {
	a := newAgg(t)
	a.FillFiducial("fidcounter", 0, 0, 1.5, "gen", "lep")
	a.FillFiducial("fidcounter", 0, 2, 0.5, "gen")
	a.FillFiducial("fidcounter", 4, 1, 2, "gen")

	c := a.Counter("fidcounter", "gen")
	require.NotNil(t, c)
	assert.Equal(t, 5, c.Stages())
	assert.Equal(t, 3, c.Slots())
	assert.Equal(t, 1.5, c.Value(0, 0))
	assert.Equal(t, 0.5, c.Value(0, 2))
	assert.Equal(t, 2.0, c.Value(4, 1))
	assert.Equal(t, 0.0, c.Value(3, 0))
	assert.Equal(t, 0.0, c.Value(9, 9))
	assert.Equal(t, int64(3), c.Entries())
	assert.Equal(t, 1.5, a.Counter("fidcounter", "lep").Value(0, 0))
}

func TestWeights_FirstCountPolicy(t *testing.T) {
	captureLogs(t)
	var w Weights

	assert.Equal(t, []float64{1}, w.Slots(nil))
	assert.Equal(t, 0, w.Count())

	assert.Equal(t, []float64{0.9, 1.1, 1.2}, w.Slots([]float64{0.9, 1.1, 1.2}))
	assert.Equal(t, 3, w.Count())

	assert.Equal(t, []float64{0.5, 1, 1}, w.Slots([]float64{0.5}))
	assert.Equal(t, []float64{2, 3, 4}, w.Slots([]float64{2, 3, 4, 5}))
	assert.Equal(t, []float64{1, 1, 1}, w.Slots(nil))

	w.Add([]float64{0.5, 1, 2})
	w.Add([]float64{1, 1, 1})
	assert.InDelta(t, 1.5, w.WgtSum, 1e-12)
	assert.Equal(t, []float64{1.5, 2, 3}, w.AllWgtSum)
}

func fillSample(a *Aggregator, seed float64) {
	for i := 0; i < 20; i++ {
		x := math.Mod(seed*float64(i+1)*7.3, 200)
		a.Fill("mll", x, 0.5+seed, "mm")
		a.Fill2D("jetavsphi", math.Mod(x, 2)-1, math.Mod(x, 3)-1.5, 1, "ee")
		a.FillFiducial("fidcounter", i%5, i%3, seed, "gen")
	}
	a.Weights().Add(a.Weights().Slots([]float64{seed, 2 * seed}))
}

func TestMerge_CommutativeAndAssociative(t *testing.T) {
	captureLogs(t)
	build := func(seeds ...float64) *Aggregator {
		out := newAgg(t)
		for _, s := range seeds {
			part := newAgg(t)
			fillSample(part, s)
			require.NoError(t, out.Merge(part))
		}
		return out
	}

	ab := build(1.3, 2.7)
	ba := build(2.7, 1.3)
	abc := build(1.3, 2.7, 0.4)

	left := build(1.3, 2.7)
	c := build(0.4)
	require.NoError(t, left.Merge(c))

	for i, s := range h1Sums(ab, "mll", "mm") {
		assert.InDelta(t, s, h1Sums(ba, "mll", "mm")[i], 1e-9)
	}
	for i, s := range h1Sums(abc, "mll", "mm") {
		assert.InDelta(t, s, h1Sums(left, "mll", "mm")[i], 1e-9)
	}
	assert.InDelta(t, abc.H2D("jetavsphi", "ee").SumW(), left.H2D("jetavsphi", "ee").SumW(), 1e-9)
	for s := 0; s < 5; s++ {
		for slot := 0; slot < 3; slot++ {
			assert.InDelta(t, abc.Counter("fidcounter", "gen").Value(s, slot),
				left.Counter("fidcounter", "gen").Value(s, slot), 1e-9)
		}
	}
	assert.InDelta(t, 1.3+2.7+0.4, abc.Weights().WgtSum, 1e-9)
	assert.InDelta(t, 2*(1.3+2.7+0.4), abc.Weights().AllWgtSum[1], 1e-9)

	// a single sample merged into an empty aggregator keeps its sums
	direct := newAgg(t)
	fillSample(direct, 1.3)
	via := build(1.3)
	assert.Equal(t, h1Sums(direct, "mll", "mm"), h1Sums(via, "mll", "mm"))
}

// event is one histogram fill.
type event struct{ x, y, w float64 }

var shardEvents = []event{
	{41, 0.2, 1}, {49, -0.3, 1}, {91, 1.1, 0.5}, {92.5, 2.4, 2},
	{250, 0.1, 1.5}, {-1, -3, 0.7}, {3, 0.4, 1}, {91.2, -2.9, 0.25},
}

func fillEvents(a *Aggregator, evs []event) {
	for _, e := range evs {
		a.Fill("mll", e.x, e.w, "mm")
		a.Fill2D("jetavsphi", e.y, e.x/40, e.w, "ee")
	}
}

// requireSameH1 compares entries and weighted moments of every cell.
func requireSameH1(t *testing.T, want, got *hbook.H1D) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Entries(), got.Entries())
	assert.InDelta(t, want.SumW(), got.SumW(), 1e-9)
	assert.InDelta(t, want.SumW2(), got.SumW2(), 1e-9)
	assert.InDelta(t, want.SumWX(), got.SumWX(), 1e-9)
	assert.InDelta(t, want.SumWX2(), got.SumWX2(), 1e-9)
	for i := range want.Binning.Bins {
		w, g := want.Binning.Bins[i], got.Binning.Bins[i]
		assert.Equal(t, w.Entries(), g.Entries(), "bin %d", i)
		assert.InDelta(t, w.SumW(), g.SumW(), 1e-9, "bin %d", i)
		assert.InDelta(t, w.SumW2(), g.SumW2(), 1e-9, "bin %d", i)
		assert.InDelta(t, w.Dist.Stats.SumWX, g.Dist.Stats.SumWX, 1e-9, "bin %d", i)
	}
	for k := range want.Binning.Outflows {
		w, g := &want.Binning.Outflows[k], &got.Binning.Outflows[k]
		assert.Equal(t, w.Entries(), g.Entries(), "outflow %d", k)
		assert.InDelta(t, w.SumW2(), g.SumW2(), 1e-9, "outflow %d", k)
	}
}

func requireSameH2(t *testing.T, want, got *hbook.H2D) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Entries(), got.Entries())
	assert.InDelta(t, want.SumW2(), got.SumW2(), 1e-9)
	assert.InDelta(t, want.SumWXY(), got.SumWXY(), 1e-9)
	assert.InDelta(t, want.SumWY2(), got.SumWY2(), 1e-9)
	for i := range want.Binning.Bins {
		w, g := want.Binning.Bins[i], got.Binning.Bins[i]
		assert.Equal(t, w.Entries(), g.Entries(), "bin %d", i)
		assert.InDelta(t, w.SumW(), g.SumW(), 1e-9, "bin %d", i)
		assert.InDelta(t, w.SumW2(), g.SumW2(), 1e-9, "bin %d", i)
	}
}

func TestMerge_MatchesSingleAggregator(t *testing.T) {
	direct := newAgg(t)
	fillEvents(direct, shardEvents)

	for _, split := range []int{0, 1, 3, len(shardEvents)} {
		t.Run(fmt.Sprintf("split%d", split), func(t *testing.T) {
			a, b := newAgg(t), newAgg(t)
			fillEvents(a, shardEvents[:split])
			fillEvents(b, shardEvents[split:])

			merged := newAgg(t)
			require.NoError(t, merged.Merge(a))
			require.NoError(t, merged.Merge(b))

			requireSameH1(t, direct.H1D("mll", "mm"), merged.H1D("mll", "mm"))
			requireSameH2(t, direct.H2D("jetavsphi", "ee"), merged.H2D("jetavsphi", "ee"))
		})
	}
}

func TestCells_RoundTrip(t *testing.T) {
	src := newAgg(t)
	fillEvents(src, shardEvents)
	src.FillFiducial("fidcounter", 0, 0, 1, "gen")

	dst := newAgg(t)
	for _, e := range src.Entries() {
		cells := e.Cells()
		if e.Kind == KindCounter {
			assert.Empty(t, cells)
			continue
		}
		require.NotEmpty(t, cells)
		assert.Equal(t, TotalCell, cells[0].Index)
		for _, c := range cells {
			require.NoError(t, dst.AddCell(e.Key.Name, e.Key.Category, c))
		}
	}
	requireSameH1(t, src.H1D("mll", "mm"), dst.H1D("mll", "mm"))
	requireSameH2(t, src.H2D("jetavsphi", "ee"), dst.H2D("jetavsphi", "ee"))

	assert.Error(t, dst.AddCell("nope", "mm", Cell{Index: TotalCell}))
	assert.Error(t, dst.AddCell("mll", "mm", Cell{Index: 40}))
	assert.Error(t, dst.AddCell("mll", "mm", Cell{Index: OutflowCell(2)}))
	assert.Error(t, dst.AddCell("fidcounter", "gen", Cell{Index: 0}))
	assert.NoError(t, dst.AddCell("jetavsphi", "ee", Cell{Index: OutflowCell(7)}))
}

func TestMerge_AdoptsAndRejectsBookings(t *testing.T) {
	a := newAgg(t)
	o, err := New(H1("extra", "", 5, 0, 5))
	require.NoError(t, err)
	o.Fill("extra", 1, 1, "x")
	require.NoError(t, a.Merge(o))
	_, ok := a.Booking("extra")
	assert.True(t, ok)
	assert.NotNil(t, a.H1D("extra", "x"))

	bad, err := New(H1("mll", "", 10, 0, 100))
	require.NoError(t, err)
	assert.Error(t, a.Merge(bad))
}

func TestEntries_SortedNonEmpty(t *testing.T) {
	a := newAgg(t)
	a.Fill("mll", 10, 1, "mm", "ee")
	a.FillFiducial("fidcounter", 0, 0, 1, "gen")

	var keys []string
	for _, e := range a.Entries() {
		keys = append(keys, e.Key.String())
	}
	assert.Equal(t, []string{"fidcounter_gen", "mll_ee", "mll_mm"}, keys)
}

func TestWriteYODA(t *testing.T) {
	a := newAgg(t)
	a.Fill("mll", 91, 1, "mm")
	a.Fill2D("jetavsphi", 0, 0, 1, "mm")
	a.FillFiducial("fidcounter", 1, 0, 1, "gen")
	a.Weights().Add(a.Weights().Slots([]float64{1, 2}))

	var buf bytes.Buffer
	require.NoError(t, a.WriteYODA(&buf))
	out := buf.String()
	for _, want := range []string{"YODA_HISTO1D", "YODA_HISTO2D", "wgtsum", "allwgtsum", "mll_mm", "jetavsphi_mm", "fidcounter_gen"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "mll_ee")
}
