package selection

import (
	"sort"

	"github.com/DickyChant/topskim/internal/kin"
	"github.com/DickyChant/topskim/internal/reco"
)

// JetSortKey orders jets by b-tag discriminant.
type JetSortKey struct {
	CSV float64
}

// KeyOf returns the sort key of a jet.
func KeyOf(j *reco.Jet) JetSortKey { return JetSortKey{CSV: j.CSV} }

// Before reports whether k sorts ahead of o: higher discriminant first.
func (k JetSortKey) Before(o JetSortKey) bool { return k.CSV > o.CSV }

// SortByCSV orders jets by descending discriminant. Equal values keep
// their input order.
func SortByCSV(jets []reco.Jet) {
	sort.SliceStable(jets, func(i, j int) bool {
		return KeyOf(&jets[i]).Before(KeyOf(&jets[j]))
	})
}

// JetLists are the two jet views of a selected event.
type JetLists struct {
	// All holds every qualifying jet, DRSafe filled in.
	All []reco.Jet
	// Separated holds the jets at ΔR ≥ 0.4 from both leptons.
	Separated []reco.Jet
	// NBTagged counts b-tagged separated jets.
	NBTagged int
}

// Jets builds the jet lists for the dilepton. Both lists are ordered by
// descending discriminant. jets is modified in place.
func (e *Engine) Jets(jets []reco.Jet, d *Dilepton) JetLists {
	minDR := e.cfg.GetJetLeptonDR()
	var out JetLists
	for i := range jets {
		j := &jets[i]
		j.DRSafe = kin.DeltaR(j.P4, d.Leptons[0].P4) >= minDR && kin.DeltaR(j.P4, d.Leptons[1].P4) >= minDR
		if j.DRSafe {
			out.Separated = append(out.Separated, *j)
			if j.BTagged {
				out.NBTagged++
			}
		}
	}
	SortByCSV(jets)
	SortByCSV(out.Separated)
	out.All = jets
	return out
}

// Leading returns up to the two highest-discriminant separated jets.
func (l *JetLists) Leading() []reco.Jet {
	if len(l.Separated) > 2 {
		return l.Separated[:2]
	}
	return l.Separated
}

// FinalState is the visible system of the two leptons and the b-tagged
// leading jets.
type FinalState struct {
	Objects  []kin.P4
	HT       float64
	MHT      float64
	Rapidity kin.Moments
}

// FinalState assembles the visible final state.
func (e *Engine) FinalState(d *Dilepton, jets *JetLists) FinalState {
	objs := []kin.P4{d.Leptons[0].P4, d.Leptons[1].P4}
	for _, j := range jets.Leading() {
		if j.BTagged {
			objs = append(objs, j.P4)
		}
	}
	return FinalState{
		Objects:  objs,
		HT:       kin.HT(objs),
		MHT:      kin.MHT(objs),
		Rapidity: kin.RapidityMoments(objs),
	}
}
