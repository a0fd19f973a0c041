// Package reco builds typed lepton and jet candidates from the raw event
// columns and classifies them against the identification criteria.
package reco

import (
	"math"
	"sort"

	"github.com/DickyChant/topskim/internal/config"
	"github.com/DickyChant/topskim/internal/event"
	"github.com/DickyChant/topskim/internal/isolation"
	"github.com/DickyChant/topskim/internal/kin"
	"github.com/DickyChant/topskim/internal/pileup"
)

// Lepton flavors are absolute PDG ids.
const (
	Electron = 11
	Muon     = 13
)

const (
	muonMass     = 0.1057
	electronMass = 0.000511
)

// Lepton is a reconstructed lepton candidate.
type Lepton struct {
	Flavor int
	P4     kin.P4
	Charge int

	ChIso, PhoIso, NhIso float64
	Rho                  float64    // density used for the correction, -1 when unavailable
	IsoFull              float64    // ρ-corrected relative isolation, -1 when undefined
	IsoFullR             [3]float64 // particle-flow cone sums
	MiniIso              float64

	D0, D0Err, Dz float64
	IDFlags       int
	OrigIdx       int
	Matched       bool

	Muon     MuonQuality
	Electron ElectronQuality
}

// Pt is shorthand for the candidate's transverse momentum.
func (l *Lepton) Pt() float64 { return l.P4.Pt() }

// Matcher decides whether a reconstructed direction has a truth partner.
type Matcher interface {
	Matched(p kin.P4) bool
}

// Event carries the per-event inputs the builder shares across flavors.
type Event struct {
	Run       int
	Central   bool
	GlobalRho float64
	Rho       *pileup.Table
	Particles []isolation.Particle
	Truth     Matcher // nil on data
}

// Builder converts raw columns into candidates.
type Builder struct {
	cfg  *config.AnalysisConfig
	cond config.Conditions
	calc isolation.Calculator
}

// NewBuilder returns a builder for the given sample conditions.
func NewBuilder(cfg *config.AnalysisConfig, cond config.Conditions) *Builder {
	return &Builder{
		cfg:  cfg,
		cond: cond,
		calc: isolation.Calculator{
			SelfDR:    cfg.GetSelfExclusionDR(),
			MinRadius: cfg.GetMiniIsoMinRadius(),
			MaxRadius: cfg.GetMiniIsoMaxRadius(),
		},
	}
}

// Calculator exposes the isolation calculator configured for this builder.
func (b *Builder) Calculator() isolation.Calculator { return b.calc }

func (b *Builder) kinematic(p kin.P4) bool {
	return math.Abs(p.Eta()) <= b.cfg.GetLepEtaMax() && p.Pt() >= b.cfg.GetLepPtMin()
}

// finish fills the isolation quantities and truth flag shared by both flavors.
func (b *Builder) finish(l *Lepton, ev *Event) {
	eta := l.P4.Eta()
	rho, ok := ev.Rho.Density(eta)
	switch {
	case ok && b.cond.CorrectIsolation():
		corr := b.cfg.GetRhoCorr(l.Flavor).Eval(rho)
		l.IsoFull = (l.ChIso + l.NhIso + l.PhoIso - corr) / l.P4.Pt()
	default:
		l.IsoFull = -1
	}
	switch {
	case b.cond.PP:
		l.Rho = ev.GlobalRho
	case ok:
		l.Rho = rho
	default:
		l.Rho = -1
	}

	radii := b.cfg.GetIsolationRadii()
	sums := b.calc.FullCone(ev.Particles, l.P4, radii[0], radii[1], radii[2])
	copy(l.IsoFullR[:], sums)
	l.MiniIso = b.calc.Mini(ev.Particles, l.P4, b.cfg.GetMiniIsoScale(l.Flavor))

	if ev.Truth != nil {
		l.Matched = ev.Truth.Matched(l.P4)
	}
}

// Muons builds every kinematically accepted muon (all) and the subset
// passing the tight selection (passed). Both are in input order.
func (b *Builder) Muons(src event.Event, ev *Event) (all, passed []Lepton) {
	pt, eta, phi := src.Floats("muPt"), src.Floats("muEta"), src.Floats("muPhi")
	charge := src.Ints("muCharge")
	chIso, nhIso, phoIso := src.Floats("muPFChIso"), src.Floats("muPFNeuIso"), src.Floats("muPFPhoIso")
	d0, dz := src.Floats("muD0"), src.Floats("muDz")
	typ := src.Ints("muType")
	chi2, hits := src.Floats("muChi2NDF"), src.Ints("muMuonHits")
	stations, layers, pixels := src.Ints("muStations"), src.Ints("muTrkLayers"), src.Ints("muPixelHits")
	innerD0, innerDz := src.Floats("muInnerD0"), src.Floats("muInnerDz")

	n := event.MinLen(len(pt), len(eta), len(phi), len(charge), len(chIso), len(nhIso), len(phoIso),
		len(d0), len(dz), len(typ), len(chi2), len(hits), len(stations), len(layers), len(pixels),
		len(innerD0), len(innerDz))

	for i := 0; i < n; i++ {
		p4 := kin.PtEtaPhiM(pt[i], eta[i], phi[i], muonMass)
		if !b.kinematic(p4) {
			continue
		}
		l := Lepton{
			Flavor:  Muon,
			P4:      p4,
			Charge:  charge[i],
			ChIso:   chIso[i],
			NhIso:   nhIso[i],
			PhoIso:  phoIso[i],
			D0:      d0[i],
			D0Err:   0,
			Dz:      dz[i],
			OrigIdx: i,
			Muon: MuonQuality{
				Type:      typ[i],
				Chi2NDF:   chi2[i],
				MuonHits:  hits[i],
				Stations:  stations[i],
				TrkLayers: layers[i],
				PixelHits: pixels[i],
				InnerD0:   innerD0[i],
				InnerDz:   innerDz[i],
			},
		}
		b.finish(&l, ev)
		all = append(all, l)

		if MuonTight(l.Muon) != GatePassed {
			continue
		}
		l.IDFlags = MuonTightFlag
		passed = append(passed, l)
	}
	return all, passed
}

// endcapScaleShift reports whether the endcap energy-scale factor applies.
func (b *Builder) endcapScaleShift(run int, eta float64) bool {
	return b.cond.IsData &&
		run <= b.cfg.GetFirstEEScaleRun() &&
		math.Abs(eta) >= b.cfg.GetBarrelEndcapGap()[1] &&
		!b.cond.EcalFixed() &&
		!b.cond.Is2015()
}

// Electrons builds every kinematically accepted electron (all) and the subset
// passing the loose working point (passed).
func (b *Builder) Electrons(src event.Event, ev *Event) (all, passed []Lepton) {
	pt, eta, phi := src.Floats("elePt"), src.Floats("eleEta"), src.Floats("elePhi")
	charge := src.Ints("eleCharge")
	isoSuffix := "03"
	if b.cond.Is2015MC() {
		isoSuffix = ""
	}
	chIso := src.Floats("elePFChIso" + isoSuffix)
	nhIso := src.Floats("elePFNeuIso" + isoSuffix)
	phoIso := src.Floats("elePFPhoIso" + isoSuffix)
	d0, d0Err, dz := src.Floats("eleD0"), src.Floats("eleD0Err"), src.Floats("eleDz")
	scEta, sieie := src.Floats("eleSCEta"), src.Floats("eleSigmaIEtaIEta")
	dEta, dPhi := src.Floats("eledEtaAtVtx"), src.Floats("eledPhiAtVtx")
	hoe, eop := src.Floats("eleHoverE"), src.Floats("eleEoverPInv")
	miss := src.Ints("eleMissHits")

	n := event.MinLen(len(pt), len(eta), len(phi), len(charge), len(chIso), len(nhIso), len(phoIso),
		len(d0), len(d0Err), len(dz), len(scEta), len(sieie), len(dEta), len(dPhi), len(hoe),
		len(eop), len(miss))

	gap := b.cfg.GetBarrelEndcapGap()
	for i := 0; i < n; i++ {
		p4 := kin.PtEtaPhiM(pt[i], eta[i], phi[i], electronMass)
		if b.endcapScaleShift(ev.Run, eta[i]) {
			p4 = p4.Scale(b.cfg.GetEEScaleShift())
		}
		aeta := math.Abs(p4.Eta())
		if aeta > gap[0] && aeta < gap[1] {
			continue
		}
		if !b.kinematic(p4) {
			continue
		}
		l := Lepton{
			Flavor:  Electron,
			P4:      p4,
			Charge:  charge[i],
			ChIso:   chIso[i],
			NhIso:   nhIso[i],
			PhoIso:  phoIso[i],
			D0:      d0[i],
			D0Err:   d0Err[i],
			Dz:      dz[i],
			OrigIdx: i,
			Electron: ElectronQuality{
				SCEta:         scEta[i],
				SigmaIEtaIEta: sieie[i],
				DEtaVtx:       dEta[i],
				DPhiVtx:       dPhi[i],
				HoverE:        hoe[i],
				EoverPInv:     eop[i],
				D0:            d0[i],
				Dz:            dz[i],
				MissHits:      miss[i],
			},
		}
		b.finish(&l, ev)
		all = append(all, l)

		barrel := math.Abs(l.Electron.SCEta) < gap[0]
		l.IDFlags = ElectronID(l.Electron, barrel, ev.Central)
		if !IsLoose(l.IDFlags) {
			continue
		}
		passed = append(passed, l)
	}
	return all, passed
}

// SortByPt orders leptons by descending transverse momentum, keeping input
// order among equal values.
func SortByPt(ls []Lepton) {
	sort.SliceStable(ls, func(i, j int) bool {
		return ls[i].P4.Pt() > ls[j].P4.Pt()
	})
}
