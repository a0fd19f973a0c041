// Package hist accumulates weighted 1-D and 2-D histograms and fiducial
// counter tables, each keyed by name and category.
package hist

import (
	"fmt"
	"math"
	"sort"

	"go-hep.org/x/hep/hbook"

	"github.com/DickyChant/topskim/internal/monitoring"
)

// Kind is the accumulator type a booking creates.
type Kind int

const (
	KindH1 Kind = iota
	KindH2
	KindCounter
)

func (k Kind) String() string {
	switch k {
	case KindH1:
		return "h1"
	case KindH2:
		return "h2"
	case KindCounter:
		return "counter"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Booking declares an accumulator. Counters use NX as the stage count.
type Booking struct {
	Name       string
	Kind       Kind
	Title      string
	NX         int
	XMin, XMax float64
	NY         int
	YMin, YMax float64
}

// H1 books a 1-D histogram.
func H1(name, title string, n int, min, max float64) Booking {
	return Booking{Name: name, Kind: KindH1, Title: title, NX: n, XMin: min, XMax: max}
}

// H2 books a 2-D histogram.
func H2(name, title string, nx int, xmin, xmax float64, ny int, ymin, ymax float64) Booking {
	return Booking{Name: name, Kind: KindH2, Title: title, NX: nx, XMin: xmin, XMax: xmax, NY: ny, YMin: ymin, YMax: ymax}
}

// CounterBooking books a stage × weight-slot table.
func CounterBooking(name, title string, stages int) Booking {
	return Booking{Name: name, Kind: KindCounter, Title: title, NX: stages}
}

func (b Booking) validate() error {
	switch {
	case b.Name == "":
		return fmt.Errorf("booking without name")
	case b.NX <= 0:
		return fmt.Errorf("booking %s: bins must be positive", b.Name)
	case b.Kind != KindCounter && b.XMax <= b.XMin:
		return fmt.Errorf("booking %s: empty x range", b.Name)
	case b.Kind == KindH2 && (b.NY <= 0 || b.YMax <= b.YMin):
		return fmt.Errorf("booking %s: bad y axis", b.Name)
	}
	return nil
}

// Key addresses one bucket.
type Key struct {
	Name     string
	Category string
}

func (k Key) String() string { return k.Name + "_" + k.Category }

// Aggregator owns every bucket of a run. Buckets are created lazily the
// first time a (name, category) pair is filled. It is not safe for
// concurrent use; shards run their own aggregator and are merged.
type Aggregator struct {
	bookings map[string]Booking
	order    []string

	h1  map[Key]*hbook.H1D
	h2  map[Key]*hbook.H2D
	fid map[Key]*Counter

	weights Weights
	warn    monitoring.OnceLogger
}

// New returns an aggregator with the given bookings.
func New(bookings ...Booking) (*Aggregator, error) {
	a := &Aggregator{
		bookings: make(map[string]Booking),
		h1:       make(map[Key]*hbook.H1D),
		h2:       make(map[Key]*hbook.H2D),
		fid:      make(map[Key]*Counter),
	}
	for _, b := range bookings {
		if err := a.Book(b); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Book adds a booking. Rebooking a name is an error.
func (a *Aggregator) Book(b Booking) error {
	if err := b.validate(); err != nil {
		return err
	}
	if _, ok := a.bookings[b.Name]; ok {
		return fmt.Errorf("booking %s: already booked", b.Name)
	}
	a.bookings[b.Name] = b
	a.order = append(a.order, b.Name)
	return nil
}

// Booking returns the booking for name.
func (a *Aggregator) Booking(name string) (Booking, bool) {
	b, ok := a.bookings[name]
	return b, ok
}

// Bookings returns every booking in booking order.
func (a *Aggregator) Bookings() []Booking {
	out := make([]Booking, len(a.order))
	for i, n := range a.order {
		out[i] = a.bookings[n]
	}
	return out
}

func (a *Aggregator) lookup(name string, kind Kind) (Booking, bool) {
	b, ok := a.bookings[name]
	if !ok {
		a.warn.Logf("unknown:"+name, "hist: dropping fills of unbooked %q", name)
		return b, false
	}
	if b.Kind != kind {
		a.warn.Logf("kind:"+name, "hist: %q is booked as %s, dropping %s fill", name, b.Kind, kind)
		return b, false
	}
	return b, true
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func (a *Aggregator) h1For(k Key, b Booking) *hbook.H1D {
	h, ok := a.h1[k]
	if !ok {
		h = hbook.NewH1D(b.NX, b.XMin, b.XMax)
		h.Annotation()["name"] = k.String()
		h.Annotation()["title"] = b.Title
		a.h1[k] = h
	}
	return h
}

func (a *Aggregator) h2For(k Key, b Booking) *hbook.H2D {
	h, ok := a.h2[k]
	if !ok {
		h = hbook.NewH2D(b.NX, b.XMin, b.XMax, b.NY, b.YMin, b.YMax)
		h.Annotation()["name"] = k.String()
		h.Annotation()["title"] = b.Title
		a.h2[k] = h
	}
	return h
}

// Fill adds (x, w) to the 1-D histogram name in each category. Values
// outside the booked range land in the underflow and overflow
// distributions.
func (a *Aggregator) Fill(name string, x, w float64, cats ...string) {
	b, ok := a.lookup(name, KindH1)
	if !ok {
		return
	}
	if !finite(x) {
		a.warn.Logf("nan:"+name, "hist: dropping non-finite fill of %q", name)
		return
	}
	for _, c := range cats {
		a.h1For(Key{name, c}, b).Fill(x, w)
	}
}

// Fill2D adds (x, y, w) to the 2-D histogram name in each category.
func (a *Aggregator) Fill2D(name string, x, y, w float64, cats ...string) {
	b, ok := a.lookup(name, KindH2)
	if !ok {
		return
	}
	if !finite(x) || !finite(y) {
		a.warn.Logf("nan:"+name, "hist: dropping non-finite fill of %q", name)
		return
	}
	for _, c := range cats {
		a.h2For(Key{name, c}, b).Fill(x, y, w)
	}
}

// FillFiducial adds w to (stage, slot) of the counter name in each
// category.
func (a *Aggregator) FillFiducial(name string, stage, slot int, w float64, cats ...string) {
	b, ok := a.lookup(name, KindCounter)
	if !ok {
		return
	}
	if stage < 0 || stage >= b.NX || slot < 0 {
		a.warn.Logf(fmt.Sprintf("range:%s", name), "hist: %q stage %d slot %d out of range", name, stage, slot)
		return
	}
	for _, c := range cats {
		k := Key{name, c}
		t, ok := a.fid[k]
		if !ok {
			t = NewCounter(b.NX)
			a.fid[k] = t
		}
		t.Add(stage, slot, w)
	}
}

// H1D returns the 1-D bucket or nil.
func (a *Aggregator) H1D(name, cat string) *hbook.H1D { return a.h1[Key{name, cat}] }

// H2D returns the 2-D bucket or nil.
func (a *Aggregator) H2D(name, cat string) *hbook.H2D { return a.h2[Key{name, cat}] }

// Counter returns the counter bucket or nil.
func (a *Aggregator) Counter(name, cat string) *Counter { return a.fid[Key{name, cat}] }

// Weights returns the weight-slot state.
func (a *Aggregator) Weights() *Weights { return &a.weights }

// Entry is one non-empty bucket.
type Entry struct {
	Key     Key
	Kind    Kind
	H1      *hbook.H1D
	H2      *hbook.H2D
	Counter *Counter
}

// Entries returns the buckets with at least one fill, sorted by name then
// category.
func (a *Aggregator) Entries() []Entry {
	var out []Entry
	for k, h := range a.h1 {
		if h.Entries() > 0 {
			out = append(out, Entry{Key: k, Kind: KindH1, H1: h})
		}
	}
	for k, h := range a.h2 {
		if h.Entries() > 0 {
			out = append(out, Entry{Key: k, Kind: KindH2, H2: h})
		}
	}
	for k, t := range a.fid {
		if t.Entries() > 0 {
			out = append(out, Entry{Key: k, Kind: KindCounter, Counter: t})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Name != out[j].Key.Name {
			return out[i].Key.Name < out[j].Key.Name
		}
		return out[i].Key.Category < out[j].Key.Category
	})
	return out
}

// Merge adds every bucket and weight sum of o into a. Histograms are
// summed cell by cell, so entries and every weighted moment match a single
// aggregator filled with both event sets. Bookings missing
// from a are adopted; conflicting bookings are an error.
func (a *Aggregator) Merge(o *Aggregator) error {
	for _, name := range o.order {
		ob := o.bookings[name]
		if b, ok := a.bookings[name]; ok {
			if b != ob {
				return fmt.Errorf("merge %s: incompatible bookings", name)
			}
			continue
		}
		if err := a.Book(ob); err != nil {
			return err
		}
	}
	for k, h := range o.h1 {
		addH1(a.h1For(k, a.bookings[k.Name]), h)
	}
	for k, h := range o.h2 {
		addH2(a.h2For(k, a.bookings[k.Name]), h)
	}
	for k, t := range o.fid {
		dst, ok := a.fid[k]
		if !ok {
			dst = NewCounter(t.Stages())
			a.fid[k] = dst
		}
		dst.Merge(t)
	}
	a.weights.Merge(&o.weights)
	return nil
}
