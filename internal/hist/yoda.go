package hist

import (
	"fmt"
	"io"

	"go-hep.org/x/hep/hbook"
)

// CounterH2D renders a counter as a stage × slot histogram.
func CounterH2D(name string, c *Counter) *hbook.H2D {
	slots := c.Slots()
	if slots == 0 {
		slots = 1
	}
	h := hbook.NewH2D(c.Stages(), 0, float64(c.Stages()), slots, 0, float64(slots))
	h.Annotation()["name"] = name
	for s := 0; s < c.Stages(); s++ {
		for w := 0; w < slots; w++ {
			if v := c.Value(s, w); v != 0 {
				h.Fill(float64(s)+0.5, float64(w)+0.5, v)
			}
		}
	}
	return h
}

// WeightsH1D renders the weight sums as the wgtsum and allwgtsum
// histograms.
func WeightsH1D(w *Weights) (wgtsum, allwgtsum *hbook.H1D) {
	wgtsum = hbook.NewH1D(1, 0, 1)
	wgtsum.Annotation()["name"] = "wgtsum"
	wgtsum.Fill(0.5, w.WgtSum)

	n := len(w.AllWgtSum)
	if n == 0 {
		n = 1
	}
	allwgtsum = hbook.NewH1D(n, 0, float64(n))
	allwgtsum.Annotation()["name"] = "allwgtsum"
	for i, v := range w.AllWgtSum {
		allwgtsum.Fill(float64(i)+0.5, v)
	}
	return wgtsum, allwgtsum
}

type yodaMarshaler interface {
	MarshalYODA() ([]byte, error)
}

// WriteYODA writes the weight sums and every non-empty bucket in YODA
// text format.
func (a *Aggregator) WriteYODA(w io.Writer) error {
	wgt, all := WeightsH1D(&a.weights)
	objs := []yodaMarshaler{wgt, all}
	for _, e := range a.Entries() {
		switch e.Kind {
		case KindH1:
			objs = append(objs, e.H1)
		case KindH2:
			objs = append(objs, e.H2)
		case KindCounter:
			objs = append(objs, CounterH2D(e.Key.String(), e.Counter))
		}
	}
	for _, o := range objs {
		raw, err := o.MarshalYODA()
		if err != nil {
			return fmt.Errorf("marshal yoda: %w", err)
		}
		if _, err := w.Write(raw); err != nil {
			return fmt.Errorf("write yoda: %w", err)
		}
	}
	return nil
}
