// Package pileup provides the per-event ambient momentum density (ρ) used to
// subtract pileup and underlying event from lepton isolation sums.
package pileup

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Region edges in pseudorapidity. Region 0 is reserved.
var regionEdges = [...]float64{-3.0, -2.1, -1.3, 1.3, 2.1, 3.0}

// NumRegions is the number of usable regions (1..6).
const NumRegions = 6

// RegionIndex maps a pseudorapidity to its density region. Intervals are
// closed below and open above; [-3.0,-2.1) and [-2.1,-1.3) share region 2.
func RegionIndex(eta float64) int {
	switch {
	case eta < regionEdges[0]:
		return 1
	case eta < regionEdges[2]:
		return 2
	case eta < regionEdges[3]:
		return 3
	case eta < regionEdges[4]:
		return 4
	case eta < regionEdges[5]:
		return 5
	default:
		return 6
	}
}

// Table serves the density for one event. The backing slice is borrowed from
// the event source and only valid until the next Reset.
type Table struct {
	values []float64
	ok     bool
}

// Reset installs this event's density vector. A nil vector puts the table in
// the unavailable state.
func (t *Table) Reset(values []float64) {
	t.values = values
	t.ok = values != nil
}

// Available reports whether the event carried a density vector.
func (t *Table) Available() bool { return t != nil && t.ok }

// Values returns the raw density vector for output.
func (t *Table) Values() []float64 {
	if t == nil {
		return nil
	}
	return t.values
}

// Density returns ρ for the region containing eta. The second result is false
// when the table is unavailable or the vector is too short for the region.
// A nil table is unavailable.
func (t *Table) Density(eta float64) (float64, bool) {
	if t == nil || !t.ok {
		return 0, false
	}
	idx := RegionIndex(eta)
	if idx >= len(t.values) {
		return 0, false
	}
	return t.values[idx], true
}

// Grid parameters for GlobalDensity.
const (
	gridEtaStep = 0.5
	gridPhiBins = 6
)

// Particle is the minimal view GlobalDensity needs.
type Particle interface {
	PtEtaPhi() (pt, eta, phi float64)
}

// GlobalDensity estimates an event-wide ρ as the median transverse momentum
// per unit area over an η×φ grid covering |η| < etaMax. Empty cells take part
// in the median with zero density. Returns 0 when etaMax is not positive.
func GlobalDensity[P Particle](particles []P, etaMax float64) float64 {
	nEta := int(math.Ceil(2 * etaMax / gridEtaStep))
	if nEta <= 0 {
		return 0
	}
	cells := make([]float64, nEta*gridPhiBins)
	phiStep := 2 * math.Pi / gridPhiBins
	for _, p := range particles {
		pt, eta, phi := p.PtEtaPhi()
		if math.Abs(eta) >= etaMax {
			continue
		}
		ie := int((eta + etaMax) / gridEtaStep)
		if ie >= nEta {
			ie = nEta - 1
		}
		ip := int((phi + math.Pi) / phiStep)
		if ip < 0 {
			ip = 0
		}
		if ip >= gridPhiBins {
			ip = gridPhiBins - 1
		}
		cells[ie*gridPhiBins+ip] += pt
	}
	area := (2 * etaMax / float64(nEta)) * phiStep
	for i := range cells {
		cells[i] /= area
	}
	sort.Float64s(cells)
	return stat.Quantile(0.5, stat.Empirical, cells, nil)
}
