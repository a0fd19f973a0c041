// Package output defines the per-event reduced record and its writers.
package output

import (
	"github.com/DickyChant/topskim/internal/mva"
	"github.com/DickyChant/topskim/internal/reco"
	"github.com/DickyChant/topskim/internal/selection"
)

// Record is one selected event. Field names follow the branch names of
// the reduced tree consumed by the downstream fits.
type Record struct {
	Run       int       `json:"run"`
	Lumi      int       `json:"lumi"`
	Event     int       `json:"event"`
	IsData    bool      `json:"isData"`
	Weight    float64   `json:"weight"`
	Cenbin    float64   `json:"cenbin"`
	Rho       []float64 `json:"rho"`
	GlobalRho float64   `json:"globalrho"`
	ETrig     int       `json:"etrig"`
	MTrig     int       `json:"mtrig"`

	NLep         int       `json:"nlep"`
	LepPt        []float64 `json:"lep_pt"`
	LepEta       []float64 `json:"lep_eta"`
	LepPhi       []float64 `json:"lep_phi"`
	LepIDFlags   []int     `json:"lep_idflags"`
	LepD0        []float64 `json:"lep_d0"`
	LepD0Err     []float64 `json:"lep_d0err"`
	LepDz        []float64 `json:"lep_dz"`
	LepPhIso     []float64 `json:"lep_phiso"`
	LepChIso     []float64 `json:"lep_chiso"`
	LepNhIso     []float64 `json:"lep_nhiso"`
	LepRho       []float64 `json:"lep_rho"`
	LepPdgID     []int     `json:"lep_pdgId"`
	LepCharge    []int     `json:"lep_charge"`
	LepIsoFull   []float64 `json:"lep_isofull"`
	LepIsoFull20 []float64 `json:"lep_isofull20"`
	LepIsoFull25 []float64 `json:"lep_isofull25"`
	LepIsoFull30 []float64 `json:"lep_isofull30"`
	LepMiniIso   []float64 `json:"lep_miniiso"`
	LepMatched   []bool    `json:"lep_matched"`
	LepInd1      int       `json:"lep_ind1"`
	LepInd2      int       `json:"lep_ind2"`

	LLPt   float64 `json:"llpt"`
	LLEta  float64 `json:"lleta"`
	LLPhi  float64 `json:"llphi"`
	LLM    float64 `json:"llm"`
	DPhi   float64 `json:"dphi"`
	DEta   float64 `json:"deta"`
	SumEta float64 `json:"sumeta"`

	NJet     int       `json:"njet"`
	JetPt    []float64 `json:"jet_pt"`
	JetEta   []float64 `json:"jet_eta"`
	JetPhi   []float64 `json:"jet_phi"`
	JetMass  []float64 `json:"jet_mass"`
	JetCSVv2 []float64 `json:"jet_csvv2"`

	NBJet       int       `json:"nbjet"`
	BJetPt      []float64 `json:"bjet_pt"`
	BJetEta     []float64 `json:"bjet_eta"`
	BJetPhi     []float64 `json:"bjet_phi"`
	BJetMass    []float64 `json:"bjet_mass"`
	BJetCSVv2   []float64 `json:"bjet_csvv2"`
	BJetDRSafe  []bool    `json:"bjet_drSafe"`
	BJetGenPt   []float64 `json:"bjet_genpt"`
	BJetGenEta  []float64 `json:"bjet_geneta"`
	BJetGenPhi  []float64 `json:"bjet_genphi"`
	BJetGenMass []float64 `json:"bjet_genmass"`
	BJetFlavor  []int     `json:"bjet_flavor"`
	BJetFlavorB []int     `json:"bjet_flavorB"`

	HT        float64 `json:"ht"`
	MHT       float64 `json:"mht"`
	APt       float64 `json:"apt"`
	DPhiLLL2  float64 `json:"dphilll2"`
	BDT       float64 `json:"bdt"`
	BDTRarity float64 `json:"bdtrarity"`
	Fisher2   float64 `json:"fisher2"`
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SetTriggers stores the trigger bits.
func (r *Record) SetTriggers(g selection.GateResult) {
	r.ETrig, r.MTrig = b2i(g.ETrig), b2i(g.MTrig)
}

// SetLeptons stores the selected leptons in order and the indices of the
// first two isolated ones.
func (r *Record) SetLeptons(leps []reco.Lepton, isoMax float64) {
	n := len(leps)
	r.NLep = n
	r.LepPt, r.LepEta, r.LepPhi = make([]float64, n), make([]float64, n), make([]float64, n)
	r.LepIDFlags, r.LepPdgID, r.LepCharge = make([]int, n), make([]int, n), make([]int, n)
	r.LepD0, r.LepD0Err, r.LepDz = make([]float64, n), make([]float64, n), make([]float64, n)
	r.LepPhIso, r.LepChIso, r.LepNhIso = make([]float64, n), make([]float64, n), make([]float64, n)
	r.LepRho, r.LepIsoFull, r.LepMiniIso = make([]float64, n), make([]float64, n), make([]float64, n)
	r.LepIsoFull20, r.LepIsoFull25, r.LepIsoFull30 = make([]float64, n), make([]float64, n), make([]float64, n)
	r.LepMatched = make([]bool, n)
	for i := range leps {
		l := &leps[i]
		r.LepPt[i], r.LepEta[i], r.LepPhi[i] = l.P4.Pt(), l.P4.Eta(), l.P4.Phi()
		r.LepIDFlags[i] = l.IDFlags
		r.LepD0[i], r.LepD0Err[i], r.LepDz[i] = l.D0, l.D0Err, l.Dz
		r.LepPhIso[i], r.LepChIso[i], r.LepNhIso[i] = l.PhoIso, l.ChIso, l.NhIso
		r.LepRho[i] = l.Rho
		r.LepPdgID[i] = l.Flavor
		r.LepCharge[i] = l.Charge
		r.LepIsoFull[i] = l.IsoFull
		r.LepIsoFull20[i], r.LepIsoFull25[i], r.LepIsoFull30[i] = l.IsoFullR[0], l.IsoFullR[1], l.IsoFullR[2]
		r.LepMiniIso[i] = l.MiniIso
		r.LepMatched[i] = l.Matched
	}
	r.LepInd1, r.LepInd2 = selection.LeptonIndices(leps, isoMax)
}

// SetDilepton stores the dilepton kinematics.
func (r *Record) SetDilepton(d *selection.Dilepton) {
	r.LLPt, r.LLEta, r.LLPhi, r.LLM = d.Pt, d.Eta, d.Phi, d.M
	r.DPhi, r.DEta, r.SumEta = d.DPhi, d.DEta, d.SumEta
}

// SetJets stores the lepton-separated jets and the full b-tag ordered
// list with its truth information.
func (r *Record) SetJets(lists *selection.JetLists) {
	sep := lists.Separated
	n := len(sep)
	r.NJet = n
	r.JetPt, r.JetEta, r.JetPhi = make([]float64, n), make([]float64, n), make([]float64, n)
	r.JetMass, r.JetCSVv2 = make([]float64, n), make([]float64, n)
	for i := range sep {
		j := &sep[i]
		r.JetPt[i], r.JetEta[i], r.JetPhi[i], r.JetMass[i] = j.P4.Pt(), j.P4.Eta(), j.P4.Phi(), j.P4.M()
		r.JetCSVv2[i] = j.CSV
	}

	all := lists.All
	n = len(all)
	r.NBJet = n
	r.BJetPt, r.BJetEta, r.BJetPhi = make([]float64, n), make([]float64, n), make([]float64, n)
	r.BJetMass, r.BJetCSVv2 = make([]float64, n), make([]float64, n)
	r.BJetDRSafe = make([]bool, n)
	r.BJetGenPt, r.BJetGenEta = make([]float64, n), make([]float64, n)
	r.BJetGenPhi, r.BJetGenMass = make([]float64, n), make([]float64, n)
	r.BJetFlavor, r.BJetFlavorB = make([]int, n), make([]int, n)
	for i := range all {
		j := &all[i]
		r.BJetPt[i], r.BJetEta[i], r.BJetPhi[i], r.BJetMass[i] = j.P4.Pt(), j.P4.Eta(), j.P4.Phi(), j.P4.M()
		r.BJetCSVv2[i] = j.CSV
		r.BJetDRSafe[i] = j.DRSafe
		r.BJetGenPt[i], r.BJetGenEta[i] = j.GenP4.Pt(), j.GenP4.Eta()
		r.BJetGenPhi[i], r.BJetGenMass[i] = j.GenP4.Phi(), j.GenP4.M()
		r.BJetFlavor[i], r.BJetFlavorB[i] = j.Flavor, j.FlavorForB
	}
}

// SetFinalState stores HT and MHT.
func (r *Record) SetFinalState(fs *selection.FinalState) {
	r.HT, r.MHT = fs.HT, fs.MHT
}

// SetScores stores the discriminant inputs written alongside the scores
// and the scores themselves.
func (r *Record) SetScores(f mva.Features, s mva.Scores) {
	r.APt = f.APt
	r.DPhiLLL2 = f.DPhiLL2
	r.BDT, r.BDTRarity, r.Fisher2 = s.BDT, s.Rarity, s.Fisher2
}
