package reco

import "math"

// MuonGate names a step of the tight muon selection.
type MuonGate int

const (
	// GatePassed means every gate passed.
	GatePassed MuonGate = iota
	GateGlobal
	GatePF
	GatePromptTight
	GateStations
	GateTrackerLayers
	GatePixelHits
	GateD0
	GateDz
)

func (g MuonGate) String() string {
	switch g {
	case GatePassed:
		return "passed"
	case GateGlobal:
		return "global"
	case GatePF:
		return "pf"
	case GatePromptTight:
		return "prompt-tight"
	case GateStations:
		return "stations"
	case GateTrackerLayers:
		return "tracker-layers"
	case GatePixelHits:
		return "pixel-hits"
	case GateD0:
		return "d0"
	case GateDz:
		return "dz"
	default:
		return "unknown"
	}
}

// Tight muon thresholds
const (
	muTypeGlobalBit   = 1
	muTypePFBit       = 5
	MuonChi2NDFMax    = 10.0
	MuonStationsMin   = 1 // exclusive
	MuonTrkLayersMin  = 5 // exclusive
	MuonInnerD0Max    = 0.2
	MuonInnerDzMax    = 0.5
	MuonTightFlag     = 1 // IDFlags value of a tight muon
)

// MuonQuality holds the reconstruction quality fields of a muon.
type MuonQuality struct {
	Type      int
	Chi2NDF   float64
	MuonHits  int
	Stations  int
	TrkLayers int
	PixelHits int
	InnerD0   float64
	InnerDz   float64
}

// MuonTight evaluates the tight muon gates in order and returns the first
// one that fails, or GatePassed.
func MuonTight(q MuonQuality) MuonGate {
	if (q.Type>>muTypeGlobalBit)&1 == 0 {
		return GateGlobal
	}
	if (q.Type>>muTypePFBit)&1 == 0 {
		return GatePF
	}
	if !(q.Chi2NDF < MuonChi2NDFMax && q.MuonHits > 0) {
		return GatePromptTight
	}
	if q.Stations <= MuonStationsMin {
		return GateStations
	}
	if q.TrkLayers <= MuonTrkLayersMin {
		return GateTrackerLayers
	}
	if q.PixelHits == 0 {
		return GatePixelHits
	}
	if math.Abs(q.InnerD0) >= MuonInnerD0Max {
		return GateD0
	}
	if math.Abs(q.InnerDz) >= MuonInnerDzMax {
		return GateDz
	}
	return GatePassed
}

// ElectronQuality holds the identification variables of an electron.
type ElectronQuality struct {
	SCEta         float64
	SigmaIEtaIEta float64
	DEtaVtx       float64
	DPhiVtx       float64
	HoverE        float64
	EoverPInv     float64
	D0            float64
	Dz            float64
	MissHits      int
}

// Electron working points, one flag bit each.
const (
	WPVeto = iota
	WPLoose
	WPMedium
	WPTight
	numWP
)

// ElectronCuts is one working point. Every variable must lie strictly below
// its cut except MissHits, which may equal it.
type ElectronCuts struct {
	SigmaIEtaIEta float64
	DEtaVtx       float64
	DPhiVtx       float64
	HoverE        float64
	EoverPInv     float64
	D0            float64
	Dz            float64
	MissHits      int
}

// electronCuts is indexed by [endcap][peripheral][working point]. Thresholds
// follow the 2018 PbPb cut-based electron identification, with the central
// set used for centrality below 30%.
var electronCuts = [2][2][numWP]ElectronCuts{
	// barrel
	{
		// central
		{
			{0.0147, 0.0041, 0.0853, 0.2733, 0.0367, 0.1, 0.2, 3},
			{0.0135, 0.0038, 0.0376, 0.1616, 0.0177, 0.1, 0.2, 1},
			{0.0116, 0.0037, 0.0224, 0.1589, 0.0173, 0.05, 0.1, 1},
			{0.0104, 0.0029, 0.0206, 0.1459, 0.0105, 0.02, 0.1, 1},
		},
		// peripheral
		{
			{0.0113, 0.0037, 0.1280, 0.1814, 0.1065, 0.1, 0.2, 3},
			{0.0107, 0.0035, 0.0327, 0.1268, 0.0774, 0.1, 0.2, 1},
			{0.0101, 0.0033, 0.0210, 0.0311, 0.0701, 0.05, 0.1, 1},
			{0.0099, 0.0026, 0.0170, 0.0067, 0.0077, 0.02, 0.1, 1},
		},
	},
	// endcap
	{
		{
			{0.0482, 0.0097, 0.2348, 0.1898, 0.0300, 0.2, 0.3, 3},
			{0.0466, 0.0063, 0.1186, 0.1317, 0.0201, 0.2, 0.3, 1},
			{0.0418, 0.0062, 0.0373, 0.1092, 0.0133, 0.1, 0.2, 1},
			{0.0358, 0.0051, 0.0266, 0.0925, 0.0065, 0.05, 0.2, 1},
		},
		{
			{0.0376, 0.0074, 0.2085, 0.1138, 0.0237, 0.2, 0.3, 3},
			{0.0339, 0.0067, 0.0838, 0.0977, 0.0193, 0.2, 0.3, 1},
			{0.0316, 0.0051, 0.0384, 0.0810, 0.0192, 0.1, 0.2, 1},
			{0.0288, 0.0044, 0.0266, 0.0655, 0.0123, 0.05, 0.2, 1},
		},
	},
}

// ElectronCutsFor returns the working-point thresholds for a region.
func ElectronCutsFor(barrel, central bool, wp int) ElectronCuts {
	region, cen := 0, 0
	if !barrel {
		region = 1
	}
	if !central {
		cen = 1
	}
	return electronCuts[region][cen][wp]
}

func (c ElectronCuts) pass(q ElectronQuality) bool {
	return q.SigmaIEtaIEta < c.SigmaIEtaIEta &&
		math.Abs(q.DEtaVtx) < c.DEtaVtx &&
		math.Abs(q.DPhiVtx) < c.DPhiVtx &&
		q.HoverE < c.HoverE &&
		math.Abs(q.EoverPInv) < c.EoverPInv &&
		math.Abs(q.D0) < c.D0 &&
		math.Abs(q.Dz) < c.Dz &&
		q.MissHits <= c.MissHits
}

// ElectronID evaluates every working point and sets bit k when working
// point k passes.
func ElectronID(q ElectronQuality, barrel, central bool) int {
	flags := 0
	for wp := WPVeto; wp < numWP; wp++ {
		if ElectronCutsFor(barrel, central, wp).pass(q) {
			flags |= 1 << wp
		}
	}
	return flags
}

// IsLoose reports whether the loose working point bit is set.
func IsLoose(flags int) bool {
	return (flags>>WPLoose)&1 == 1
}
