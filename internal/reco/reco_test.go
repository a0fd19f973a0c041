package reco

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DickyChant/topskim/internal/config"
	"github.com/DickyChant/topskim/internal/isolation"
	"github.com/DickyChant/topskim/internal/kin"
	"github.com/DickyChant/topskim/internal/pileup"
	"github.com/DickyChant/topskim/internal/testutil"
)

var data2018 = config.Conditions{IsData: true, GlobalTag: "103X_dataRun2_Prompt_v2"}
var mc2018 = config.Conditions{GlobalTag: "103X_upgrade2018_realistic_HI_v11"}

func tightQuality() MuonQuality {
	m := testutil.TightMuon(30, 0, 0, 1)
	return MuonQuality{
		Type: m.Type, Chi2NDF: m.Chi2NDF, MuonHits: m.MuonHits, Stations: m.Stations,
		TrkLayers: m.TrkLayers, PixelHits: m.PixelHits, InnerD0: m.InnerD0, InnerDz: m.InnerDz,
	}
}

func TestMuonTight_Gates(t *testing.T) {
	assert.Equal(t, GatePassed, MuonTight(tightQuality()))

	tests := []struct {
		name   string
		mutate func(*MuonQuality)
		want   MuonGate
	}{
		{"not global", func(q *MuonQuality) { q.Type &^= 1 << 1 }, GateGlobal},
		{"not pf", func(q *MuonQuality) { q.Type &^= 1 << 5 }, GatePF},
		{"chi2", func(q *MuonQuality) { q.Chi2NDF = 10 }, GatePromptTight},
		{"no muon hits", func(q *MuonQuality) { q.MuonHits = 0 }, GatePromptTight},
		{"one station", func(q *MuonQuality) { q.Stations = 1 }, GateStations},
		{"five layers", func(q *MuonQuality) { q.TrkLayers = 5 }, GateTrackerLayers},
		{"no pixel hits", func(q *MuonQuality) { q.PixelHits = 0 }, GatePixelHits},
		{"d0", func(q *MuonQuality) { q.InnerD0 = -0.2 }, GateD0},
		{"dz", func(q *MuonQuality) { q.InnerDz = 0.5 }, GateDz},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tightQuality()
			tt.mutate(&q)
			got := MuonTight(q)
			if got != tt.want {
				t.Errorf("MuonTight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMuonTight_SinglePixelFailureRejects(t *testing.T) {
	// everything else far inside the cuts
	q := MuonQuality{
		Type: 1<<1 | 1<<5, Chi2NDF: 0.1, MuonHits: 40, Stations: 4,
		TrkLayers: 15, PixelHits: 0, InnerD0: 0, InnerDz: 0,
	}
	assert.NotEqual(t, GatePassed, MuonTight(q))
	assert.Equal(t, "pixel-hits", MuonTight(q).String())
}

func TestElectronID(t *testing.T) {
	e := testutil.TightElectron(30, 0.5, 0, 1)
	q := ElectronQuality{
		SCEta: e.SCEta, SigmaIEtaIEta: e.SigmaIEtaIEta, DEtaVtx: e.DEtaVtx, DPhiVtx: e.DPhiVtx,
		HoverE: e.HoverE, EoverPInv: e.EoverPInv, D0: e.D0, Dz: e.Dz, MissHits: e.MissHits,
	}

	for _, barrel := range []bool{true, false} {
		for _, central := range []bool{true, false} {
			flags := ElectronID(q, barrel, central)
			assert.Equal(t, 0xF, flags, "barrel=%v central=%v", barrel, central)
			assert.True(t, IsLoose(flags))
		}
	}

	// a shower shape between the peripheral loose and veto cuts keeps veto only
	q.SigmaIEtaIEta = 0.0110
	flags := ElectronID(q, true, false)
	assert.Equal(t, 1<<WPVeto, flags)
	assert.False(t, IsLoose(flags))

	// the central barrel set is looser: veto, loose and medium pass
	assert.Equal(t, 1<<WPVeto|1<<WPLoose|1<<WPMedium, ElectronID(q, true, true))

	assert.False(t, IsLoose(0))
	assert.True(t, IsLoose(1<<WPLoose))
	assert.False(t, IsLoose(1<<WPVeto|1<<WPMedium))
}

func TestElectronCutsFor_Ordering(t *testing.T) {
	// tighter working points never loosen a cut
	for _, barrel := range []bool{true, false} {
		for _, central := range []bool{true, false} {
			for wp := WPLoose; wp <= WPTight; wp++ {
				prev, cur := ElectronCutsFor(barrel, central, wp-1), ElectronCutsFor(barrel, central, wp)
				assert.LessOrEqual(t, cur.SigmaIEtaIEta, prev.SigmaIEtaIEta)
				assert.LessOrEqual(t, cur.DEtaVtx, prev.DEtaVtx)
				assert.LessOrEqual(t, cur.DPhiVtx, prev.DPhiVtx)
				assert.LessOrEqual(t, cur.HoverE, prev.HoverE)
				assert.LessOrEqual(t, cur.EoverPInv, prev.EoverPInv)
				assert.LessOrEqual(t, cur.D0, prev.D0)
				assert.LessOrEqual(t, cur.Dz, prev.Dz)
				assert.LessOrEqual(t, cur.MissHits, prev.MissHits)
			}
		}
	}
}

type matchAll bool

func (m matchAll) Matched(kin.P4) bool { return bool(m) }

func newEvent(rho []float64) *Event {
	tab := &pileup.Table{}
	tab.Reset(rho)
	return &Event{Run: 326500, Rho: tab}
}

func TestMuons_KinematicsAndID(t *testing.T) {
	b := NewBuilder(config.EmptyAnalysisConfig(), data2018)

	failing := testutil.TightMuon(35, 0.2, 0, 1)
	failing.PixelHits = 0
	src := testutil.NewEvent(326500, 1, 1).
		Muon(testutil.TightMuon(30, 0.5, 1, 1)).
		Muon(testutil.TightMuon(19.9, 0.5, 1, 1)). // below pT cut
		Muon(testutil.TightMuon(50, 2.45, 1, 1)).  // outside acceptance
		Muon(failing).
		Fields()

	all, passed := b.Muons(src, newEvent(nil))
	require.Len(t, all, 2)
	require.Len(t, passed, 1)

	assert.Equal(t, 0, passed[0].OrigIdx)
	assert.Equal(t, MuonTightFlag, passed[0].IDFlags)
	assert.Equal(t, Muon, passed[0].Flavor)
	assert.Equal(t, 0.0, passed[0].D0Err)
	assert.Equal(t, 3, all[1].OrigIdx)
	assert.Equal(t, 0, all[1].IDFlags)
}

func TestMuons_ShortColumnTruncates(t *testing.T) {
	b := NewBuilder(config.EmptyAnalysisConfig(), data2018)
	src := testutil.NewEvent(326500, 1, 1).
		Muon(testutil.TightMuon(30, 0.5, 1, 1)).
		Muon(testutil.TightMuon(40, 0.5, 1, 1)).
		Set("muInnerDz", []float64{0.01}).
		Fields()

	all, _ := b.Muons(src, newEvent(nil))
	assert.Len(t, all, 1)

	src = testutil.NewEvent(326500, 1, 1).Muon(testutil.TightMuon(30, 0.5, 1, 1)).Delete("muPt").Fields()
	all, passed := b.Muons(src, newEvent(nil))
	assert.Empty(t, all)
	assert.Empty(t, passed)
}

func TestMuons_IsolationCorrection(t *testing.T) {
	cfg := config.EmptyAnalysisConfig()
	m := testutil.TightMuon(40, 0.5, 1, 1)
	m.ChIso, m.NhIso, m.PhoIso = 20, 5, 3
	src := testutil.NewEvent(326500, 1, 1).Muon(m).Fields()
	rho := []float64{0, 10, 20, 30, 40, 50, 60}

	_, passed := NewBuilder(cfg, data2018).Muons(src, newEvent(rho))
	require.Len(t, passed, 1)
	l := passed[0]
	corr := 0.0013*math.Pow(30+15.83, 2) + 0.29*(30+15.83)
	assert.InDelta(t, (28-corr)/40, l.IsoFull, 1e-9)
	assert.Equal(t, 30.0, l.Rho)

	// no density vector
	_, passed = NewBuilder(cfg, data2018).Muons(src, newEvent(nil))
	assert.Equal(t, -1.0, passed[0].IsoFull)
	assert.Equal(t, -1.0, passed[0].Rho)

	// simulation never corrects, but still records the density
	_, passed = NewBuilder(cfg, mc2018).Muons(src, newEvent(rho))
	assert.Equal(t, -1.0, passed[0].IsoFull)
	assert.Equal(t, 30.0, passed[0].Rho)

	// 2015 data never corrects
	_, passed = NewBuilder(cfg, config.Conditions{IsData: true, GlobalTag: "75X_dataRun2_v13"}).Muons(src, newEvent(rho))
	assert.Equal(t, -1.0, passed[0].IsoFull)

	// pp records the global density
	ev := newEvent(rho)
	ev.GlobalRho = 2.5
	_, passed = NewBuilder(cfg, config.Conditions{IsData: true, PP: true, GlobalTag: "103X"}).Muons(src, ev)
	assert.Equal(t, 2.5, passed[0].Rho)
}

func TestMuons_ParticleIsolationAndTruth(t *testing.T) {
	ev := newEvent(nil)
	ev.Particles = []isolation.Particle{
		isolation.NewParticle(1, 40, 0.5, 1),   // the muon itself
		isolation.NewParticle(1, 2, 0.5, 1.15), // ΔR 0.15
		isolation.NewParticle(4, 1, 0.5, 1.27), // ΔR 0.27
	}
	ev.Truth = matchAll(true)
	src := testutil.NewEvent(326500, 1, 1).Muon(testutil.TightMuon(40, 0.5, 1, 1)).Fields()

	_, passed := NewBuilder(config.EmptyAnalysisConfig(), mc2018).Muons(src, ev)
	require.Len(t, passed, 1)
	l := passed[0]
	assert.InDelta(t, 2, l.IsoFullR[0], 1e-9)
	assert.InDelta(t, 2, l.IsoFullR[1], 1e-9)
	assert.InDelta(t, 3, l.IsoFullR[2], 1e-9)
	// 10/40 clamps to 0.2
	assert.InDelta(t, 2, l.MiniIso, 1e-9)
	assert.True(t, l.Matched)
}

func TestElectrons_GapAndScaleShift(t *testing.T) {
	cfg := config.EmptyAnalysisConfig()
	src := testutil.NewEvent(326500, 1, 1).
		Electron(testutil.TightElectron(30, 0.5, 0, 1)).
		Electron(testutil.TightElectron(30, 1.5, 0, 1)).  // transition gap
		Electron(testutil.TightElectron(18, 1.8, 0, -1)). // endcap, shifted above threshold on data
		Fields()

	all, passed := NewBuilder(cfg, data2018).Electrons(src, newEvent(nil))
	require.Len(t, all, 2)
	require.Len(t, passed, 2)
	assert.InDelta(t, 18*cfg.GetEEScaleShift(), passed[1].P4.Pt(), 1e-9)
	assert.InDelta(t, 1.8, passed[1].P4.Eta(), 1e-9)
	assert.Equal(t, 0xF, passed[0].IDFlags)

	// no shift on simulation
	all, _ = NewBuilder(cfg, mc2018).Electrons(src, newEvent(nil))
	assert.Len(t, all, 1)

	// no shift after the recalibrated run range
	ev := newEvent(nil)
	ev.Run = 327500
	all, _ = NewBuilder(cfg, data2018).Electrons(src, ev)
	assert.Len(t, all, 1)

	// no shift with the fixed calibration
	all, _ = NewBuilder(cfg, config.Conditions{IsData: true, GlobalTag: "103X_fixEcalADCToGeV"}).Electrons(src, newEvent(nil))
	assert.Len(t, all, 1)
}

func TestElectrons_LooseRequired(t *testing.T) {
	bad := testutil.TightElectron(30, 0.5, 0, 1)
	bad.HoverE = 0.5
	src := testutil.NewEvent(326500, 1, 1).Electron(bad).Fields()

	all, passed := NewBuilder(config.EmptyAnalysisConfig(), data2018).Electrons(src, newEvent(nil))
	assert.Len(t, all, 1)
	assert.Empty(t, passed)
}

func TestElectrons_2015MCIsolationVariant(t *testing.T) {
	src := testutil.NewEvent(1, 1, 1).
		Electron(testutil.TightElectron(30, 0.5, 0, 1)).
		Set("elePFChIso03", []float64{1}).
		Set("elePFChIso", []float64{7}).
		Fields()

	_, passed := NewBuilder(config.EmptyAnalysisConfig(), mc2018).Electrons(src, newEvent(nil))
	require.Len(t, passed, 1)
	assert.Equal(t, 1.0, passed[0].ChIso)

	_, passed = NewBuilder(config.EmptyAnalysisConfig(), config.Conditions{GlobalTag: "75X_mcRun2_asymptotic"}).Electrons(src, newEvent(nil))
	require.Len(t, passed, 1)
	assert.Equal(t, 7.0, passed[0].ChIso)
}

func TestSortByPt_Stable(t *testing.T) {
	ls := []Lepton{
		{P4: kin.PtEtaPhiM(20, 0, 0, 0), OrigIdx: 0},
		{P4: kin.PtEtaPhiM(40, 0, 0, 0), OrigIdx: 1},
		{P4: kin.PtEtaPhiM(20, 0, 0, 0), OrigIdx: 2},
		{P4: kin.PtEtaPhiM(30, 0, 0, 0), OrigIdx: 3},
	}
	SortByPt(ls)
	got := []int{ls[0].OrigIdx, ls[1].OrigIdx, ls[2].OrigIdx, ls[3].OrigIdx}
	assert.Equal(t, []int{1, 3, 0, 2}, got)
}

func TestJets(t *testing.T) {
	src := testutil.NewEvent(1, 1, 1).
		Jet(testutil.Jet{Pt: 60, Eta: 0.5, Phi: 1, M: 8, TrackN: 5, CSV: 0.95, SvtxNTrk: 3, SvtxM: 1.8, Flavor: 5, FlavorForB: 5}).
		Jet(testutil.Jet{Pt: 60, Eta: 0.5, Phi: 1, M: 8, TrackN: 1, CSV: 0.95}). // too few tracks
		Jet(testutil.Jet{Pt: 25, Eta: 0.5, Phi: 1, M: 8, TrackN: 5, CSV: 0.2}).  // soft
		Jet(testutil.Jet{Pt: 40, Eta: 2.6, Phi: 1, M: 8, TrackN: 5, CSV: 0.2}).  // forward
		Jet(testutil.Jet{Pt: 45, Eta: -1, Phi: 2, M: 6, TrackN: 3, CSV: 0.5, Flavor: 21}).
		GenJet(testutil.GenJet{MatchIndex: 4, Pt: 44, Eta: -1.1, Phi: 2, M: 5}).
		GenJet(testutil.GenJet{MatchIndex: 17, Pt: 10, Eta: 0, Phi: 0, M: 1}).
		GenJet(testutil.GenJet{MatchIndex: 0, Pt: 58, Eta: 0.45, Phi: 1.05, M: 7}).
		Fields()

	jets := NewBuilder(config.EmptyAnalysisConfig(), mc2018).Jets(src)
	require.Len(t, jets, 2)

	assert.Equal(t, 0, jets[0].OrigIdx)
	assert.True(t, jets[0].BTagged)
	assert.Equal(t, 3, jets[0].SvtxNTrk)
	assert.Equal(t, 1.8, jets[0].SvtxM)
	assert.InDelta(t, 58, jets[0].GenP4.Pt(), 1e-9)
	assert.Equal(t, 5, jets[0].FlavorForB)

	assert.Equal(t, 4, jets[1].OrigIdx)
	assert.False(t, jets[1].BTagged)
	assert.InDelta(t, 44, jets[1].GenP4.Pt(), 1e-9)
	assert.Equal(t, 21, jets[1].Flavor)

	// data never reads truth
	jets = NewBuilder(config.EmptyAnalysisConfig(), data2018).Jets(src)
	require.Len(t, jets, 2)
	assert.True(t, jets[0].GenP4.IsZero())
	assert.Equal(t, 0, jets[0].Flavor)
}
