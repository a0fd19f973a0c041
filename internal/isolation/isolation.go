// Package isolation builds the per-event particle-flow collection and computes
// cone and mini isolation sums around lepton candidates.
package isolation

import (
	"math"

	"github.com/DickyChant/topskim/internal/kin"
)

// Kind classifies a particle-flow candidate.
type Kind int

const (
	Other Kind = iota
	ChargedHadron
	Photon
	NeutralHadron
)

func (k Kind) String() string {
	switch k {
	case ChargedHadron:
		return "ch"
	case Photon:
		return "pho"
	case NeutralHadron:
		return "nh"
	default:
		return "other"
	}
}

// Particle-flow id codes as stored in the input.
const (
	pfChargedHadron = 1
	pfPhoton        = 4
	pfNeutralHadron = 5
)

const (
	chargedPionMass = 0.13957
	neutralKaonMass = 0.497
)

// KindFromID maps a particle-flow id to its Kind.
func KindFromID(id int) Kind {
	switch id {
	case pfChargedHadron:
		return ChargedHadron
	case pfPhoton:
		return Photon
	case pfNeutralHadron:
		return NeutralHadron
	default:
		return Other
	}
}

// MassFromID returns the rest mass assigned to a particle-flow id. Masses are
// not stored in the input.
func MassFromID(id int) float64 {
	switch {
	case id == pfPhoton:
		return 0
	case id >= pfNeutralHadron:
		return neutralKaonMass
	default:
		return chargedPionMass
	}
}

// Particle is one particle-flow candidate. Pt, Eta and Phi are kept alongside
// the four-momentum so the cone loops avoid recomputing them.
type Particle struct {
	Kind Kind
	P4   kin.P4
	Pt   float64
	Eta  float64
	Phi  float64
}

// NewParticle builds a particle from its input id and direction.
func NewParticle(id int, pt, eta, phi float64) Particle {
	return Particle{
		Kind: KindFromID(id),
		P4:   kin.PtEtaPhiM(pt, eta, phi, MassFromID(id)),
		Pt:   pt,
		Eta:  eta,
		Phi:  phi,
	}
}

// PtEtaPhi satisfies pileup.Particle.
func (p Particle) PtEtaPhi() (float64, float64, float64) { return p.Pt, p.Eta, p.Phi }

// Collection is the event's particle list. Reset keeps the backing array so
// steady-state events do not allocate.
type Collection struct {
	Particles []Particle
}

// Reset empties the collection, keeping its capacity.
func (c *Collection) Reset() {
	c.Particles = c.Particles[:0]
}

// Add appends a particle.
func (c *Collection) Add(p Particle) {
	c.Particles = append(c.Particles, p)
}

// Len returns the number of particles.
func (c *Collection) Len() int { return len(c.Particles) }

// Calculator computes isolation sums. SelfDR is the footprint radius below
// which a particle is treated as the candidate itself.
type Calculator struct {
	SelfDR    float64
	MinRadius float64
	MaxRadius float64
}

// NewCalculator returns a calculator with the standard footprint and mini
// isolation bounds.
func NewCalculator() Calculator {
	return Calculator{SelfDR: 0.01, MinRadius: 0.05, MaxRadius: 0.2}
}

// FullCone sums particle pT within each radius of dir, excluding the
// footprint. The result has one entry per radius in the order given.
func (c Calculator) FullCone(cands []Particle, dir kin.P4, radii ...float64) []float64 {
	sums := make([]float64, len(radii))
	eta, phi := dir.Eta(), dir.Phi()
	for i := range cands {
		p := &cands[i]
		dr := kin.DeltaREtaPhi(eta, phi, p.Eta, p.Phi)
		if dr < c.SelfDR {
			continue
		}
		for k, r := range radii {
			if dr < r {
				sums[k] += p.Pt
			}
		}
	}
	return sums
}

// MiniRadius is scale/pt clamped to [MinRadius, MaxRadius].
func (c Calculator) MiniRadius(pt, scale float64) float64 {
	if pt <= 0 {
		return c.MaxRadius
	}
	return math.Max(c.MinRadius, math.Min(c.MaxRadius, scale/pt))
}

// Mini is the single-cone sum with the pT-adaptive radius.
func (c Calculator) Mini(cands []Particle, dir kin.P4, scale float64) float64 {
	return c.FullCone(cands, dir, c.MiniRadius(dir.Pt(), scale))[0]
}
