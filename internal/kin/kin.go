// Package kin holds the four-momentum arithmetic shared by the skim: angular
// separations, transverse sums and rapidity moments of final states.
package kin

import (
	"math"

	"go-hep.org/x/hep/fmom"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// P4 is a Cartesian four-momentum in GeV.
type P4 struct {
	Px, Py, Pz, E float64
}

// PtEtaPhiM builds a four-momentum from collider coordinates.
func PtEtaPhiM(pt, eta, phi, m float64) P4 {
	v := fmom.NewPtEtaPhiM(pt, eta, phi, m)
	return P4{Px: v.Px(), Py: v.Py(), Pz: v.Pz(), E: v.E()}
}

func (p P4) vec() fmom.PxPyPzE {
	return fmom.NewPxPyPzE(p.Px, p.Py, p.Pz, p.E)
}

// IsZero reports whether all components vanish. Unmatched truth vectors are zero.
func (p P4) IsZero() bool {
	return p.Px == 0 && p.Py == 0 && p.Pz == 0 && p.E == 0
}

// Add returns p+q.
func (p P4) Add(q P4) P4 {
	return P4{Px: p.Px + q.Px, Py: p.Py + q.Py, Pz: p.Pz + q.Pz, E: p.E + q.E}
}

// Scale returns p multiplied by f in every component.
func (p P4) Scale(f float64) P4 {
	return P4{Px: p.Px * f, Py: p.Py * f, Pz: p.Pz * f, E: p.E * f}
}

// Pt is the transverse momentum.
func (p P4) Pt() float64 {
	return math.Hypot(p.Px, p.Py)
}

// Eta is the pseudorapidity, 0 for a vector without transverse momentum.
func (p P4) Eta() float64 {
	if p.Px == 0 && p.Py == 0 {
		return 0
	}
	v := p.vec()
	return v.Eta()
}

// Phi is the azimuth in (-π, π], 0 for a vector without transverse momentum.
func (p P4) Phi() float64 {
	if p.Px == 0 && p.Py == 0 {
		return 0
	}
	v := p.vec()
	return v.Phi()
}

// M is the invariant mass. Space-like vectors from rounding return -sqrt(-m²).
func (p P4) M() float64 {
	m2 := p.E*p.E - p.Px*p.Px - p.Py*p.Py - p.Pz*p.Pz
	if m2 < 0 {
		return -math.Sqrt(-m2)
	}
	return math.Sqrt(m2)
}

// Rapidity is 0.5·ln((E+pz)/(E−pz)); 0 when undefined.
func (p P4) Rapidity() float64 {
	num, den := p.E+p.Pz, p.E-p.Pz
	if num <= 0 || den <= 0 {
		return 0
	}
	return 0.5 * math.Log(num/den)
}

// DeltaPhi returns φa−φb wrapped to (−π, π].
func DeltaPhi(a, b P4) float64 {
	return WrapPhi(a.Phi() - b.Phi())
}

// DeltaR returns the η-φ distance between two four-momenta.
func DeltaR(a, b P4) float64 {
	if a.Pt() == 0 || b.Pt() == 0 {
		return DeltaREtaPhi(a.Eta(), a.Phi(), b.Eta(), b.Phi())
	}
	va, vb := a.vec(), b.vec()
	return fmom.DeltaR(&va, &vb)
}

// DeltaREtaPhi is DeltaR on precomputed directions, used in the isolation loops.
func DeltaREtaPhi(eta1, phi1, eta2, phi2 float64) float64 {
	deta := eta1 - eta2
	dphi := WrapPhi(phi1 - phi2)
	return math.Sqrt(deta*deta + dphi*dphi)
}

// WrapPhi folds an angle difference into (−π, π].
func WrapPhi(dphi float64) float64 {
	for dphi > math.Pi {
		dphi -= 2 * math.Pi
	}
	for dphi <= -math.Pi {
		dphi += 2 * math.Pi
	}
	return dphi
}

// Sum adds the four-momenta.
func Sum(ps ...P4) P4 {
	var s P4
	for _, p := range ps {
		s = s.Add(p)
	}
	return s
}

// HT is the scalar sum of transverse momenta.
func HT(ps []P4) float64 {
	pts := make([]float64, len(ps))
	for i, p := range ps {
		pts[i] = p.Pt()
	}
	return floats.Sum(pts)
}

// MHT is the magnitude of the vector sum of transverse momenta.
func MHT(ps []P4) float64 {
	return Sum(ps...).Pt()
}

// Moments summarises the rapidity distribution of a final state.
type Moments struct {
	Mean    float64
	Std     float64 // population standard deviation
	MaxSpan float64 // largest pairwise |Δy|
}

// RapidityMoments computes the moments over ps. An empty collection yields
// zero moments.
func RapidityMoments(ps []P4) Moments {
	if len(ps) == 0 {
		return Moments{}
	}
	ys := make([]float64, len(ps))
	for i, p := range ps {
		ys[i] = p.Rapidity()
	}
	mean, std := stat.PopMeanStdDev(ys, nil)
	return Moments{
		Mean:    mean,
		Std:     std,
		MaxSpan: floats.Max(ys) - floats.Min(ys),
	}
}
