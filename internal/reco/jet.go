package reco

import (
	"math"

	"github.com/DickyChant/topskim/internal/event"
	"github.com/DickyChant/topskim/internal/kin"
)

// Jet is a pre-clustered jet passing the quality selection.
type Jet struct {
	P4         kin.P4
	SvtxNTrk   int
	SvtxM      float64
	CSV        float64
	BTagged    bool
	GenP4      kin.P4 // zero when unmatched or on data
	Flavor     int
	FlavorForB int
	DRSafe     bool // separated from both selected leptons
	OrigIdx    int
}

// Jets returns the jets passing the track, pT and |η| requirements in input
// order. On simulation each jet takes the generator jet whose genmatchindex
// points back at it; indices outside the generator arrays are ignored.
func (b *Builder) Jets(src event.Event) []Jet {
	pt, eta, phi, m := src.Floats("jtpt"), src.Floats("jteta"), src.Floats("jtphi"), src.Floats("jtm")
	ntrk := src.Ints("trackN")
	csv := src.Floats("discr_csvV2")
	svNTrk, svM := src.Ints("svtxntrk"), src.Floats("svtxm")
	n := event.MinLen(len(pt), len(eta), len(phi), len(m), len(ntrk), len(csv), len(svNTrk), len(svM))

	var genIdx []int
	var genPt, genEta, genPhi, genM []float64
	var flav, flavB []int
	nGen := 0
	if !b.cond.IsData {
		genIdx = src.Ints("genmatchindex")
		genPt, genEta, genPhi, genM = src.Floats("genpt"), src.Floats("geneta"), src.Floats("genphi"), src.Floats("genm")
		nGen = event.MinLen(len(genIdx), len(genPt), len(genEta), len(genPhi), len(genM))
		flav, flavB = src.Ints("refparton_flavor"), src.Ints("refparton_flavorForB")
	}

	var jets []Jet
	for i := 0; i < n; i++ {
		if ntrk[i] < b.cfg.GetJetMinTracks() {
			continue
		}
		p4 := kin.PtEtaPhiM(pt[i], eta[i], phi[i], m[i])
		if p4.Pt() < b.cfg.GetJetPtMin() || math.Abs(p4.Eta()) > b.cfg.GetJetEtaMax() {
			continue
		}
		j := Jet{
			P4:       p4,
			SvtxNTrk: svNTrk[i],
			SvtxM:    svM[i],
			CSV:      csv[i],
			BTagged:  csv[i] > b.cfg.GetCSVWorkingPoint(),
			OrigIdx:  i,
		}
		if !b.cond.IsData {
			for g := 0; g < nGen; g++ {
				if genIdx[g] == i {
					j.GenP4 = kin.PtEtaPhiM(genPt[g], genEta[g], genPhi[g], genM[g])
					break
				}
			}
			if i < len(flav) {
				j.Flavor = flav[i]
			}
			if i < len(flavB) {
				j.FlavorForB = flavB[i]
			}
		}
		jets = append(jets, j)
	}
	return jets
}
