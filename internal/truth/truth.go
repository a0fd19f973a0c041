// Package truth scans generator records for top-decay leptons and b quarks,
// matches reconstructed leptons to them and classifies events against the
// fiducial acceptance.
package truth

import (
	"math"

	"github.com/DickyChant/topskim/internal/config"
	"github.com/DickyChant/topskim/internal/event"
	"github.com/DickyChant/topskim/internal/kin"
)

// PDG ids used in the parentage filters.
const (
	pdgTop = 6
	pdgTau = 15
	pdgW   = 24
)

// Fiducial counter stages.
const (
	StageAll = iota
	StageDilepton
	StageLeptonFiducial
	StageOneB
	StageTwoB
	NumStages
)

// StageLabels names the stages in counter order.
var StageLabels = [NumStages]string{"all", "=2l", "=2l fid", "=2l,>=1b fid", "=2l,>=2b fid"}

// Fiducial holds the truth-level acceptance flags of an event.
type Fiducial struct {
	Dilepton       bool // exactly two top-decay leptons
	LeptonFiducial bool // both within the lepton acceptance
	OneB           bool // lepton fiducial with at least one b proxy
	TwoB           bool // lepton fiducial with at least two b proxies
}

// Passes reports whether the event reaches the given counter stage.
func (f Fiducial) Passes(stage int) bool {
	switch stage {
	case StageAll:
		return true
	case StageDilepton:
		return f.Dilepton
	case StageLeptonFiducial:
		return f.LeptonFiducial
	case StageOneB:
		return f.OneB
	case StageTwoB:
		return f.TwoB
	}
	return false
}

// Associator holds one event's truth collections. Reset is called at the top
// of every event; the slices keep their capacity.
type Associator struct {
	cfg *config.AnalysisConfig

	Leptons  []kin.P4
	BProxies []kin.P4
	// Channel is the product of |pdg id| over truth leptons, 1 when empty.
	Channel int
}

// NewAssociator returns an empty associator.
func NewAssociator(cfg *config.AnalysisConfig) *Associator {
	return &Associator{cfg: cfg, Channel: 1}
}

// Reset clears the truth collections.
func (a *Associator) Reset() {
	a.Leptons = a.Leptons[:0]
	a.BProxies = a.BProxies[:0]
	a.Channel = 1
}

// Build resets the associator and scans the generator record.
func (a *Associator) Build(src event.Event) {
	a.Reset()
	pid, mom, gmom := src.Ints("mcPID"), src.Ints("mcMomPID"), src.Ints("mcGMomPID")
	pt, eta, phi, m := src.Floats("mcPt"), src.Floats("mcEta"), src.Floats("mcPhi"), src.Floats("mcMass")
	n := event.MinLen(len(pid), len(mom), len(gmom), len(pt), len(eta), len(phi), len(m))

	for i := 0; i < n; i++ {
		id, amom, agmom := abs(pid[i]), abs(mom[i]), abs(gmom[i])

		if id < 6 && amom == pdgTop {
			p4 := kin.PtEtaPhiM(pt[i], eta[i], phi[i], m[i])
			if p4.Pt() > a.cfg.GetGenBPtMin() && math.Abs(p4.Eta()) < a.cfg.GetGenBEtaMax() {
				a.BProxies = append(a.BProxies, p4)
			}
		}

		if id == 11 || id == 13 {
			fromW := amom == pdgW && agmom == pdgTop
			tauFeedDown := amom == pdgTau && agmom == pdgW
			if fromW || tauFeedDown {
				a.Leptons = append(a.Leptons, kin.PtEtaPhiM(pt[i], eta[i], phi[i], m[i]))
				a.Channel *= id
			}
		}
	}
}

// Matched reports whether any truth lepton lies within the matching radius.
func (a *Associator) Matched(p kin.P4) bool {
	dr := a.cfg.GetTruthMatchDR()
	for _, l := range a.Leptons {
		if kin.DeltaR(l, p) < dr {
			return true
		}
	}
	return false
}

// Fiducial derives the acceptance flags.
func (a *Associator) Fiducial() Fiducial {
	var f Fiducial
	f.Dilepton = len(a.Leptons) == 2
	if f.Dilepton {
		f.LeptonFiducial = true
		for _, l := range a.Leptons {
			if !(l.Pt() > a.cfg.GetGenLepPtMin() && math.Abs(l.Eta()) < a.cfg.GetGenLepEtaMax()) {
				f.LeptonFiducial = false
			}
		}
	}
	f.OneB = f.LeptonFiducial && len(a.BProxies) > 0
	f.TwoB = f.LeptonFiducial && len(a.BProxies) > 1
	return f
}

// Selected summarises the reconstructed dilepton for the reco-level
// fiducial categories.
type Selected struct {
	Channel      int        // product of the two lepton flavors
	Flavors      [2]int     // 11 or 13
	IsoFull      [2]float64 // corrected isolation of the two leptons
	ETrig, MTrig bool
	NBJets       int // b-tagged lepton-separated jets
}

// RecoCategories returns the reco-level fiducial categories of a selected
// MC event. The dilepton counts as truth-matched when the truth channel
// agrees and the trigger of that channel fired.
func RecoCategories(cfg *config.AnalysisConfig, truthChannel int, fid Fiducial, s Selected) []string {
	matched := truthChannel == s.Channel
	if (truthChannel == 11*11 && !s.ETrig) || (truthChannel == 13*13 && !s.MTrig) {
		matched = false
	}

	iso := true
	for i := 0; i < 2; i++ {
		if !(s.IsoFull[i] < cfg.GetIsoMax(s.Flavors[i])) {
			iso = false
		}
	}

	cats := []string{pick(matched, "lep", "fakelep")}
	if !iso {
		return cats
	}
	cats = append(cats, pick(matched, "isolep", "fakeisolep"))
	if s.NBJets > 0 {
		cats = append(cats, pick(matched && fid.OneB, "isolep1b", "fakeisolep1b"))
		if s.NBJets > 1 {
			cats = append(cats, pick(matched && fid.TwoB, "isolep2b", "fakeisolep2b"))
		}
	}
	return cats
}

func pick(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
