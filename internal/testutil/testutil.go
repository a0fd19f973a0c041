// Package testutil provides shared test utilities and event fixtures.
//
// The fixtures build forest-style events column by column so tests across
// the reconstruction, selection and run-loop packages describe events in
// terms of physics objects rather than parallel arrays.
package testutil

import (
	"github.com/DickyChant/topskim/internal/event"
)

// Trigger names used by the PbPb fixtures.
const (
	MuonTrigger     = "HLT_HIL3Mu12_v1"
	ElectronTrigger = "HLT_HIEle20Gsf_v1"
)

// Muon describes one muon row.
type Muon struct {
	Pt, Eta, Phi         float64
	Charge               int
	ChIso, NhIso, PhoIso float64
	D0, Dz               float64
	Type                 int
	Chi2NDF              float64
	MuonHits             int
	Stations             int
	TrkLayers            int
	PixelHits            int
	InnerD0, InnerDz     float64
}

// TightMuon returns a muon passing every tight gate.
func TightMuon(pt, eta, phi float64, charge int) Muon {
	return Muon{
		Pt: pt, Eta: eta, Phi: phi, Charge: charge,
		D0: 0.005, Dz: 0.01,
		Type:      1<<1 | 1<<5,
		Chi2NDF:   1.2,
		MuonHits:  12,
		Stations:  3,
		TrkLayers: 10,
		PixelHits: 3,
		InnerD0:   0.005,
		InnerDz:   0.01,
	}
}

// Electron describes one electron row.
type Electron struct {
	Pt, Eta, Phi         float64
	Charge               int
	ChIso, NhIso, PhoIso float64
	D0, D0Err, Dz        float64
	SCEta                float64
	SigmaIEtaIEta        float64
	DEtaVtx, DPhiVtx     float64
	HoverE, EoverPInv    float64
	MissHits             int
}

// TightElectron returns an electron passing every working point in any
// region and centrality.
func TightElectron(pt, eta, phi float64, charge int) Electron {
	return Electron{
		Pt: pt, Eta: eta, Phi: phi, Charge: charge,
		D0: 0.005, D0Err: 0.001, Dz: 0.01,
		SCEta:         eta,
		SigmaIEtaIEta: 0.009,
		DEtaVtx:       0.001,
		DPhiVtx:       0.01,
		HoverE:        0.005,
		EoverPInv:     0.005,
	}
}

// Jet describes one reconstructed jet row.
type Jet struct {
	Pt, Eta, Phi, M float64
	TrackN          int
	CSV             float64
	SvtxNTrk        int
	SvtxM           float64
	Flavor          int
	FlavorForB      int
}

// Gen describes one generator particle row.
type Gen struct {
	PID, MomPID, GMomPID int
	Pt, Eta, Phi, M      float64
}

// GenJet describes one generator jet row pointing at a reconstructed jet.
type GenJet struct {
	MatchIndex      int
	Pt, Eta, Phi, M float64
}

// EventBuilder accumulates the columns of one event.
type EventBuilder struct {
	f event.Fields
}

// NewEvent returns a PbPb-style event that passes every data-quality filter
// and carries empty object collections.
func NewEvent(run, lumi, evt int) *EventBuilder {
	b := &EventBuilder{f: event.Fields{
		"run":   run,
		"lumi":  lumi,
		"evt":   evt,
		"vz":    0.0,
		"hiBin": 100,

		MuonTrigger:     0,
		ElectronTrigger: 0,

		"phfCoincFilter2Th4":          1,
		"pclusterCompatibilityFilter": 1,
		"pprimaryVertexFilter":        1,
		"phfCoincFilter":              1,
		"HBHENoiseFilterResult":       1,
		"pcollisionEventSelection":    1,
	}}
	for _, name := range floatColumns {
		b.f[name] = []float64{}
	}
	for _, name := range intColumns {
		b.f[name] = []int{}
	}
	return b
}

var floatColumns = []string{
	"muPt", "muEta", "muPhi", "muPFChIso", "muPFNeuIso", "muPFPhoIso", "muD0", "muDz",
	"muChi2NDF", "muInnerD0", "muInnerDz",
	"elePt", "eleEta", "elePhi", "elePFChIso03", "elePFNeuIso03", "elePFPhoIso03",
	"elePFChIso", "elePFNeuIso", "elePFPhoIso", "eleD0", "eleD0Err", "eleDz", "eleSCEta",
	"eleSigmaIEtaIEta", "eledEtaAtVtx", "eledPhiAtVtx", "eleHoverE", "eleEoverPInv",
	"jtpt", "jteta", "jtphi", "jtm", "discr_csvV2", "svtxm",
	"genpt", "geneta", "genphi", "genm",
	"pfPt", "pfEta", "pfPhi",
	"mcPt", "mcEta", "mcPhi", "mcMass",
}

var intColumns = []string{
	"muCharge", "muType", "muMuonHits", "muStations", "muTrkLayers", "muPixelHits",
	"eleCharge", "eleMissHits",
	"trackN", "svtxntrk", "refparton_flavor", "refparton_flavorForB", "genmatchindex",
	"pfId",
	"mcPID", "mcMomPID", "mcGMomPID",
}

func (b *EventBuilder) appendF(name string, v float64) {
	b.f[name] = append(b.f[name].([]float64), v)
}

func (b *EventBuilder) appendI(name string, v int) {
	b.f[name] = append(b.f[name].([]int), v)
}

// Set overrides a field.
func (b *EventBuilder) Set(name string, v any) *EventBuilder {
	b.f[name] = v
	return b
}

// Delete removes a field.
func (b *EventBuilder) Delete(name string) *EventBuilder {
	delete(b.f, name)
	return b
}

// Trigger sets a trigger bit.
func (b *EventBuilder) Trigger(name string, on bool) *EventBuilder {
	v := 0
	if on {
		v = 1
	}
	b.f[name] = v
	return b
}

// HiBin sets the centrality bin (0.5% units).
func (b *EventBuilder) HiBin(v int) *EventBuilder { return b.Set("hiBin", v) }

// Rho sets the density vector.
func (b *EventBuilder) Rho(values ...float64) *EventBuilder { return b.Set("rho", values) }

// Weights sets the generator weight vector.
func (b *EventBuilder) Weights(ws ...float64) *EventBuilder { return b.Set("ttbar_w", ws) }

// Muon appends a muon.
func (b *EventBuilder) Muon(m Muon) *EventBuilder {
	b.appendF("muPt", m.Pt)
	b.appendF("muEta", m.Eta)
	b.appendF("muPhi", m.Phi)
	b.appendI("muCharge", m.Charge)
	b.appendF("muPFChIso", m.ChIso)
	b.appendF("muPFNeuIso", m.NhIso)
	b.appendF("muPFPhoIso", m.PhoIso)
	b.appendF("muD0", m.D0)
	b.appendF("muDz", m.Dz)
	b.appendI("muType", m.Type)
	b.appendF("muChi2NDF", m.Chi2NDF)
	b.appendI("muMuonHits", m.MuonHits)
	b.appendI("muStations", m.Stations)
	b.appendI("muTrkLayers", m.TrkLayers)
	b.appendI("muPixelHits", m.PixelHits)
	b.appendF("muInnerD0", m.InnerD0)
	b.appendF("muInnerDz", m.InnerDz)
	return b
}

// Electron appends an electron. Both isolation variants carry the same sums.
func (b *EventBuilder) Electron(e Electron) *EventBuilder {
	b.appendF("elePt", e.Pt)
	b.appendF("eleEta", e.Eta)
	b.appendF("elePhi", e.Phi)
	b.appendI("eleCharge", e.Charge)
	for _, sfx := range []string{"03", ""} {
		b.appendF("elePFChIso"+sfx, e.ChIso)
		b.appendF("elePFNeuIso"+sfx, e.NhIso)
		b.appendF("elePFPhoIso"+sfx, e.PhoIso)
	}
	b.appendF("eleD0", e.D0)
	b.appendF("eleD0Err", e.D0Err)
	b.appendF("eleDz", e.Dz)
	b.appendF("eleSCEta", e.SCEta)
	b.appendF("eleSigmaIEtaIEta", e.SigmaIEtaIEta)
	b.appendF("eledEtaAtVtx", e.DEtaVtx)
	b.appendF("eledPhiAtVtx", e.DPhiVtx)
	b.appendF("eleHoverE", e.HoverE)
	b.appendF("eleEoverPInv", e.EoverPInv)
	b.appendI("eleMissHits", e.MissHits)
	return b
}

// Jet appends a reconstructed jet.
func (b *EventBuilder) Jet(j Jet) *EventBuilder {
	b.appendF("jtpt", j.Pt)
	b.appendF("jteta", j.Eta)
	b.appendF("jtphi", j.Phi)
	b.appendF("jtm", j.M)
	b.appendI("trackN", j.TrackN)
	b.appendF("discr_csvV2", j.CSV)
	b.appendI("svtxntrk", j.SvtxNTrk)
	b.appendF("svtxm", j.SvtxM)
	b.appendI("refparton_flavor", j.Flavor)
	b.appendI("refparton_flavorForB", j.FlavorForB)
	return b
}

// GenJet appends a generator jet.
func (b *EventBuilder) GenJet(g GenJet) *EventBuilder {
	b.appendI("genmatchindex", g.MatchIndex)
	b.appendF("genpt", g.Pt)
	b.appendF("geneta", g.Eta)
	b.appendF("genphi", g.Phi)
	b.appendF("genm", g.M)
	return b
}

// Gen appends a generator particle.
func (b *EventBuilder) Gen(g Gen) *EventBuilder {
	b.appendI("mcPID", g.PID)
	b.appendI("mcMomPID", g.MomPID)
	b.appendI("mcGMomPID", g.GMomPID)
	b.appendF("mcPt", g.Pt)
	b.appendF("mcEta", g.Eta)
	b.appendF("mcPhi", g.Phi)
	b.appendF("mcMass", g.M)
	return b
}

// PF appends a particle-flow candidate.
func (b *EventBuilder) PF(id int, pt, eta, phi float64) *EventBuilder {
	b.appendI("pfId", id)
	b.appendF("pfPt", pt)
	b.appendF("pfEta", eta)
	b.appendF("pfPhi", phi)
	return b
}

// Fields returns the assembled event.
func (b *EventBuilder) Fields() event.Fields { return b.f }
