package selection

import (
	"math"

	"github.com/DickyChant/topskim/internal/category"
	"github.com/DickyChant/topskim/internal/kin"
	"github.com/DickyChant/topskim/internal/reco"
)

// Dilepton is the system of the two leading selected leptons.
type Dilepton struct {
	Leptons [2]reco.Lepton
	P4      kin.P4

	Pt, Eta, Phi, M float64
	DPhi            float64 // |Δφ|
	DEta            float64 // |Δη|
	SumEta          float64 // η1 + η2

	Code     int // product of the two flavors
	Channel  category.Channel
	SameSign bool
	IsZ      bool // same flavor inside the Z window
}

// DR returns the angular separation of the two leptons.
func (d *Dilepton) DR() float64 { return kin.DeltaR(d.Leptons[0].P4, d.Leptons[1].P4) }

// Acoplanarity returns 1 − |Δφ|/π.
func (d *Dilepton) Acoplanarity() float64 { return 1 - d.DPhi/math.Pi }

// PtSum returns the scalar sum of the lepton transverse momenta.
func (d *Dilepton) PtSum() float64 { return d.Leptons[0].P4.Pt() + d.Leptons[1].P4.Pt() }

// Dilepton forms the dilepton from leptons, which must already be ordered
// by descending pT. Besides requiring two leptons it enforces, on data, that
// same-flavor pairs come from the matching stream and, when blinding is on,
// drops opposite-sign pairs outside the Z window from the blinded runs.
func (e *Engine) Dilepton(leptons []reco.Lepton, run int) (Dilepton, Step) {
	var d Dilepton
	if len(leptons) < 2 {
		return d, StepFewLeptons
	}
	l1, l2 := leptons[0], leptons[1]
	d.Leptons = [2]reco.Lepton{l1, l2}
	d.P4 = l1.P4.Add(l2.P4)
	d.Pt, d.Eta, d.Phi, d.M = d.P4.Pt(), d.P4.Eta(), d.P4.Phi(), d.P4.M()
	d.DPhi = math.Abs(kin.DeltaPhi(l1.P4, l2.P4))
	d.DEta = math.Abs(l1.P4.Eta() - l2.P4.Eta())
	d.SumEta = l1.P4.Eta() + l2.P4.Eta()
	d.Code = l1.Flavor * l2.Flavor
	d.Channel = category.ChannelOf(d.Code)
	d.SameSign = l1.Charge*l2.Charge > 0
	d.IsZ = d.Channel != category.EM && math.Abs(d.M-e.cfg.GetZMass()) < e.cfg.GetZWindow()

	if e.cond.IsData {
		if d.Channel == category.EE && e.stream != StreamElectron {
			return d, StepStreamMismatch
		}
		if d.Channel == category.MM && e.stream != StreamMuon {
			return d, StepStreamMismatch
		}
	}

	if e.cfg.GetBlind() && e.cond.IsData && !d.IsZ && !d.SameSign && run >= e.cfg.GetBlindFromRun() {
		return d, StepBlinded
	}
	return d, StepPassed
}

// LeptonIndices returns the positions of the first and second leptons
// with corrected isolation below isoMax, or -1. The sentinel isolation of
// leptons without a pileup correction counts as isolated.
func LeptonIndices(leptons []reco.Lepton, isoMax float64) (int, int) {
	ind1, ind2 := -1, -1
	for i := range leptons {
		if !(leptons[i].IsoFull < isoMax) {
			continue
		}
		if ind1 < 0 {
			ind1 = i
		} else if ind2 < 0 {
			ind2 = i
			break
		}
	}
	return ind1, ind2
}
