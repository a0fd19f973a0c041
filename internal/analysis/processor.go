// Package analysis runs the per-event chain: gate, candidate building,
// truth association, dilepton selection, jets, scoring, and the fills and
// record that follow from them.
package analysis

import (
	"fmt"
	"math"

	"github.com/DickyChant/topskim/internal/category"
	"github.com/DickyChant/topskim/internal/config"
	"github.com/DickyChant/topskim/internal/event"
	"github.com/DickyChant/topskim/internal/hist"
	"github.com/DickyChant/topskim/internal/isolation"
	"github.com/DickyChant/topskim/internal/monitoring"
	"github.com/DickyChant/topskim/internal/mva"
	"github.com/DickyChant/topskim/internal/output"
	"github.com/DickyChant/topskim/internal/pileup"
	"github.com/DickyChant/topskim/internal/reco"
	"github.com/DickyChant/topskim/internal/selection"
	"github.com/DickyChant/topskim/internal/truth"
)

// globalRhoEtaMax bounds the grid of the event-wide density estimate.
const globalRhoEtaMax = 5.0

// Options configures a Processor.
type Options struct {
	Config     *config.AnalysisConfig
	Conditions config.Conditions
	Stream     selection.Stream
	Lumi       LumiLookup  // optional
	Scorer     *mva.Scorer // optional; nil scores as missing
}

// Result is the outcome of one event. Record is nil unless the event was
// selected and stays valid until the next call to Process.
type Result struct {
	Gate   selection.GateResult
	Step   selection.Step
	Record *output.Record
}

// Selected reports whether the event produced a record.
func (r Result) Selected() bool { return r.Record != nil }

// Processor holds the per-run state of the event chain. It is not safe for
// concurrent use; shard by event range and merge aggregators instead.
type Processor struct {
	cfg    *config.AnalysisConfig
	cond   config.Conditions
	lumi   LumiLookup
	scorer *mva.Scorer

	engine  *selection.Engine
	builder *reco.Builder
	assoc   *truth.Associator
	agg     *hist.Aggregator

	// event-scoped buffers, reset at the top of Process
	pf  isolation.Collection
	rho pileup.Table
	rec output.Record
}

// NewProcessor builds a processor for src. Trigger names are resolved
// against src once.
func NewProcessor(opts Options, src event.Source) (*Processor, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	agg, err := hist.New(Bookings(opts.Lumi)...)
	if err != nil {
		return nil, fmt.Errorf("book accumulators: %w", err)
	}
	trig := selection.ResolveTriggers(cfg, opts.Conditions.PP, src)
	if trig.Muon == "" {
		monitoring.Logf("analysis: no muon trigger among %v", cfg.GetMuonTriggers(opts.Conditions.PP))
	}
	if trig.Electron == "" {
		monitoring.Logf("analysis: no electron trigger among %v", cfg.GetElectronTriggers(opts.Conditions.PP))
	}
	return &Processor{
		cfg:     cfg,
		cond:    opts.Conditions,
		lumi:    opts.Lumi,
		scorer:  opts.Scorer,
		engine:  selection.NewEngine(cfg, opts.Conditions, opts.Stream, trig),
		builder: reco.NewBuilder(cfg, opts.Conditions),
		assoc:   truth.NewAssociator(cfg),
		agg:     agg,
	}, nil
}

// Aggregator returns the accumulators filled so far.
func (p *Processor) Aggregator() *hist.Aggregator { return p.agg }

// Triggers returns the trigger names resolved at construction.
func (p *Processor) Triggers() selection.Triggers { return p.engine.Triggers() }

func (p *Processor) weights(ev event.Event) []float64 {
	var raw []float64
	if !p.cond.IsData {
		raw = ev.Floats("ttbar_w")
	}
	w := p.agg.Weights()
	slots := w.Slots(raw)
	w.Add(slots)
	return slots
}

func (p *Processor) fillFiducial(fid truth.Fiducial, slots []float64, cats ...string) {
	for stage := 0; stage < truth.NumStages; stage++ {
		if !fid.Passes(stage) {
			continue
		}
		for slot, w := range slots {
			p.agg.FillFiducial(FidCounter, stage, slot, w, cats...)
		}
	}
}

// Process runs the chain on one event.
func (p *Processor) Process(ev event.Event) Result {
	p.pf.Reset()
	p.rec = output.Record{}

	slots := p.weights(ev)

	var fid truth.Fiducial
	if !p.cond.IsData {
		p.assoc.Build(ev)
		fid = p.assoc.Fiducial()
		p.fillFiducial(fid, slots, category.Gen)
	}

	gate := p.engine.Gate(ev)
	if !gate.Passed() {
		return Result{Gate: gate, Step: gate.Step}
	}

	run, _ := ev.Int("run")
	lumi, _ := ev.Int("lumi")
	evt, _ := ev.Int("evt")

	ids, pts, etas, phis := ev.Ints("pfId"), ev.Floats("pfPt"), ev.Floats("pfEta"), ev.Floats("pfPhi")
	for i, n := 0, event.MinLen(len(ids), len(pts), len(etas), len(phis)); i < n; i++ {
		p.pf.Add(isolation.NewParticle(ids[i], pts[i], etas[i], phis[i]))
	}
	globalRho := pileup.GlobalDensity(p.pf.Particles, globalRhoEtaMax)
	p.rho.Reset(ev.Floats("rho"))

	var cenbin float64
	if p.cond.IsData {
		hiBin, _ := ev.Int("hiBin")
		cenbin = 0.5 * float64(hiBin)
	}

	if p.cond.IsData && p.lumi != nil {
		p.fillRate(run, gate)
	}

	rev := &reco.Event{
		Run:       run,
		Central:   !p.cond.PP && cenbin < p.cfg.GetCentralCenbinMax(),
		GlobalRho: globalRho,
		Rho:       &p.rho,
		Particles: p.pf.Particles,
	}
	if !p.cond.IsData {
		rev.Truth = p.assoc
	}

	allMuons, muons := p.builder.Muons(ev, rev)
	allElectrons, electrons := p.builder.Electrons(ev, rev)
	reco.SortByPt(allMuons)
	reco.SortByPt(allElectrons)
	p.monitorMuons(allMuons, slots[0])
	p.monitorElectrons(allElectrons, slots[0])

	leptons := make([]reco.Lepton, 0, len(muons)+len(electrons))
	leptons = append(leptons, muons...)
	leptons = append(leptons, electrons...)
	reco.SortByPt(leptons)

	dil, step := p.engine.Dilepton(leptons, run)
	if step != selection.StepPassed {
		return Result{Gate: gate, Step: step}
	}

	jets := p.engine.Jets(p.builder.Jets(ev), &dil)
	fs := p.engine.FinalState(&dil, &jets)

	if !p.cond.IsData {
		sel := truth.Selected{
			Channel: dil.Code,
			Flavors: [2]int{dil.Leptons[0].Flavor, dil.Leptons[1].Flavor},
			IsoFull: [2]float64{dil.Leptons[0].IsoFull, dil.Leptons[1].IsoFull},
			ETrig:   gate.ETrig,
			MTrig:   gate.MTrig,
			NBJets:  jets.NBTagged,
		}
		p.fillFiducial(fid, slots, truth.RecoCategories(p.cfg, p.assoc.Channel, fid, sel)...)
	}

	key := category.Key{
		Channel: dil.Channel,
		Era:     category.EraOf(run, p.cfg.GetFirstEEScaleRun(), p.cond.PP),
		BTag:    category.BTagOf(jets.NBTagged),
	}
	p.fillSelected(key.Tags(), slots[0], cenbin, &dil, &jets, &fs)

	r := &p.rec
	r.Run, r.Lumi, r.Event = run, lumi, evt
	r.IsData = p.cond.IsData
	r.Weight = slots[0]
	r.Cenbin = cenbin
	r.Rho = append([]float64(nil), p.rho.Values()...)
	r.GlobalRho = globalRho
	r.SetTriggers(gate)
	r.SetLeptons(leptons, p.cfg.GetLepIndexIsoMax())
	r.SetDilepton(&dil)
	r.SetJets(&jets)
	r.SetFinalState(&fs)
	f := mva.NewFeatures(dil.Leptons[0].P4, dil.Leptons[1].P4)
	r.SetScores(f, p.scorer.Score(f))

	return Result{Gate: gate, Step: selection.StepPassed, Record: r}
}

func (p *Processor) fillRate(run int, gate selection.GateResult) {
	bin := p.lumi.RunBin(run)
	l := p.lumi.Lumi(run)
	if bin < 0 || l <= 0 {
		return
	}
	x := float64(bin) + 0.5
	if gate.ETrig {
		p.agg.Fill(RateVsRun, x, 1/l, category.RateElectron)
	}
	if gate.MTrig {
		p.agg.Fill(RateVsRun, x, 1/l, category.RateMuon)
	}
}

// zPair returns the control tag of the two leading candidates when they
// fall in the Z window.
func (p *Processor) zPair(ls []reco.Lepton, base string) (string, bool) {
	if len(ls) < 2 {
		return "", false
	}
	m := ls[0].P4.Add(ls[1].P4).M()
	if math.Abs(m-p.cfg.GetZMass()) >= p.cfg.GetZWindow() {
		return "", false
	}
	return category.Control(base, ls[0].Charge*ls[1].Charge > 0), true
}

func (p *Processor) monitorMuons(all []reco.Lepton, w float64) {
	cat, ok := p.zPair(all, category.ZMuMuControl)
	if !ok {
		return
	}
	for i := 0; i < 2; i++ {
		q := &all[i].Muon
		p.agg.Fill("mmusta", float64(q.Stations), w, cat)
		p.agg.Fill("mtrklay", float64(q.TrkLayers), w, cat)
		p.agg.Fill("mchi2ndf", q.Chi2NDF, w, cat)
		p.agg.Fill("mmuhits", float64(q.MuonHits), w, cat)
		p.agg.Fill("mpxhits", float64(q.PixelHits), w, cat)
		p.agg.Fill("md0", math.Abs(q.InnerD0), w, cat)
		p.agg.Fill("mdz", math.Abs(q.InnerDz), w, cat)
	}
}

func (p *Processor) monitorElectrons(all []reco.Lepton, w float64) {
	base, ok := p.zPair(all, category.ZEEControl)
	if !ok {
		return
	}
	boundary := p.cfg.GetBarrelEndcapGap()[1]
	for i := 0; i < 2; i++ {
		q := &all[i].Electron
		cat := base + category.Region(math.Abs(all[i].P4.Eta()), boundary)
		p.agg.Fill("esihih", q.SigmaIEtaIEta, w, cat)
		p.agg.Fill("edetavtx", math.Abs(q.DEtaVtx), w, cat)
		p.agg.Fill("edphivtx", math.Abs(q.DPhiVtx), w, cat)
		p.agg.Fill("ehoe", q.HoverE, w, cat)
		p.agg.Fill("eempinv", q.EoverPInv, w, cat)
		p.agg.Fill("ed0", math.Abs(q.D0), w, cat)
		p.agg.Fill("edz", math.Abs(q.Dz), w, cat)
	}
}

func (p *Processor) fillSelected(cats []string, w, cenbin float64, d *selection.Dilepton, jets *selection.JetLists, fs *selection.FinalState) {
	for i := range d.Leptons {
		l := &d.Leptons[i]
		pf := fmt.Sprintf("l%d", i+1)
		pt := l.P4.Pt()
		p.agg.Fill(pf+"pt", pt, w, cats...)
		p.agg.Fill(pf+"eta", math.Abs(l.P4.Eta()), w, cats...)
		for j, iso := range [3]float64{l.ChIso, l.PhoIso, l.NhIso} {
			name := pf + isoComponents[j]
			p.agg.Fill(name+"iso", iso, w, cats...)
			p.agg.Fill(name+"reliso", iso/pt, w, cats...)
			p.agg.Fill2D(name+"isovscen", cenbin, iso, w, cats...)
			p.agg.Fill2D(name+"isovsrho", l.Rho, iso, w, cats...)
		}
	}

	p.agg.Fill("acopl", d.Acoplanarity(), w, cats...)
	p.agg.Fill("detall", d.DEta, w, cats...)
	p.agg.Fill("drll", d.DR(), w, cats...)
	p.agg.Fill("mll", d.M, w, cats...)
	p.agg.Fill("ptll", d.Pt, w, cats...)
	p.agg.Fill("ptsum", d.PtSum(), w, cats...)

	p.agg.Fill("npfjets", float64(len(jets.Separated)), w, cats...)
	p.agg.Fill("npfbjets", float64(jets.NBTagged), w, cats...)
	for i, j := range jets.Leading() {
		pf := fmt.Sprintf("pf%dj", i+1)
		p.agg.Fill(pf+"balance", j.P4.Pt()/d.Pt, w, cats...)
		p.agg.Fill(pf+"pt", j.P4.Pt(), w, cats...)
		p.agg.Fill(pf+"eta", math.Abs(j.P4.Eta()), w, cats...)
		p.agg.Fill2D(pf+"etavsphi", j.P4.Eta(), j.P4.Phi(), w, cats...)
		p.agg.Fill(pf+"svtxm", j.SvtxM, w, cats...)
		p.agg.Fill(pf+"svtxntk", float64(j.SvtxNTrk), w, cats...)
		p.agg.Fill(pf+"csv", j.CSV, w, cats...)
	}

	p.agg.Fill("pfrapavg", fs.Rapidity.Mean, w, cats...)
	p.agg.Fill("pfraprms", fs.Rapidity.Std, w, cats...)
	p.agg.Fill("pfrapmaxspan", fs.Rapidity.MaxSpan, w, cats...)
	p.agg.Fill("pfht", fs.HT, w, cats...)
	p.agg.Fill("pfmht", fs.MHT, w, cats...)
}
