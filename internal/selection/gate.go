// Package selection applies the event-level requirements: trigger and
// data-quality gate, dilepton formation with blinding, and the jet lists
// and visible final state derived from the selected leptons.
package selection

import (
	"fmt"
	"math"

	"github.com/DickyChant/topskim/internal/config"
	"github.com/DickyChant/topskim/internal/event"
)

// Stream is the primary dataset an input file was skimmed from. Data files
// from a single-lepton stream are restricted to events consistent with
// that stream so that overlapping triggers are counted once.
type Stream int

const (
	StreamAny Stream = iota
	StreamMuon
	StreamElectron
)

func (s Stream) String() string {
	switch s {
	case StreamMuon:
		return "muon"
	case StreamElectron:
		return "electron"
	}
	return "any"
}

// ParseStream accepts "", "any", "muon" or "electron".
func ParseStream(s string) (Stream, error) {
	switch s {
	case "", "any":
		return StreamAny, nil
	case "muon":
		return StreamMuon, nil
	case "electron":
		return StreamElectron, nil
	}
	return StreamAny, fmt.Errorf("unknown stream %q (want muon, electron or any)", s)
}

// Step identifies the requirement an event failed. The order of the
// constants follows the order in which requirements are evaluated.
type Step int

const (
	StepPassed Step = iota
	StepNoTrigger
	StepMuonStream
	StepElectronStream
	StepVertex
	StepFilter
	StepFewLeptons
	StepStreamMismatch
	StepBlinded
)

var stepNames = [...]string{
	StepPassed:         "passed",
	StepNoTrigger:      "trigger",
	StepMuonStream:     "muon stream",
	StepElectronStream: "electron stream",
	StepVertex:         "vertex z",
	StepFilter:         "event filter",
	StepFewLeptons:     "2 leptons",
	StepStreamMismatch: "dataset channel",
	StepBlinded:        "blinded",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

// Triggers holds the trigger field names resolved against a source. An
// empty name means none of the configured fallbacks exists and the bit
// reads as false.
type Triggers struct {
	Muon     string
	Electron string
}

// ResolveTriggers picks, per flavor, the first configured trigger the
// source carries.
func ResolveTriggers(cfg *config.AnalysisConfig, pp bool, src event.Source) Triggers {
	first := func(names []string) string {
		for _, n := range names {
			if src.HasField(n) {
				return n
			}
		}
		return ""
	}
	return Triggers{
		Muon:     first(cfg.GetMuonTriggers(pp)),
		Electron: first(cfg.GetElectronTriggers(pp)),
	}
}

// Event-quality filters per reconstruction era.
var (
	filters2018 = []string{"phfCoincFilter2Th4", "pclusterCompatibilityFilter", "pprimaryVertexFilter"}
	filters2015 = []string{"phfCoincFilter", "HBHENoiseFilterResult", "pcollisionEventSelection", "pprimaryVertexFilter"}
)

// GateResult is the outcome of the event gate. The trigger bits are filled
// even when the gate fails.
type GateResult struct {
	Step   Step
	Detail string // failing filter name for StepFilter
	ETrig  bool
	MTrig  bool
}

// Passed reports whether every requirement held.
func (g GateResult) Passed() bool { return g.Step == StepPassed }

// Engine evaluates the event-level requirements for one sample.
type Engine struct {
	cfg    *config.AnalysisConfig
	cond   config.Conditions
	stream Stream
	trig   Triggers
}

// NewEngine returns an engine for the given sample.
func NewEngine(cfg *config.AnalysisConfig, cond config.Conditions, stream Stream, trig Triggers) *Engine {
	return &Engine{cfg: cfg, cond: cond, stream: stream, trig: trig}
}

// Triggers returns the resolved trigger names.
func (e *Engine) Triggers() Triggers { return e.trig }

func bit(ev event.Event, name string) bool {
	if name == "" {
		return false
	}
	on, _ := ev.Bool(name)
	return on
}

// Gate evaluates, in order: any trigger, the stream restriction, then on
// data the vertex position and the era's event filters. Evaluation stops at
// the first failure.
func (e *Engine) Gate(ev event.Event) GateResult {
	g := GateResult{
		ETrig: bit(ev, e.trig.Electron),
		MTrig: bit(ev, e.trig.Muon),
	}
	if !g.ETrig && !g.MTrig {
		g.Step = StepNoTrigger
		return g
	}
	switch e.stream {
	case StreamMuon:
		if !g.MTrig || g.ETrig {
			g.Step = StepMuonStream
			return g
		}
	case StreamElectron:
		if !g.ETrig {
			g.Step = StepElectronStream
			return g
		}
	}
	if !e.cond.IsData {
		return g
	}

	var filters []string
	switch {
	case e.cond.Is2018():
		filters = filters2018
	case e.cond.Is2015():
		filters = filters2015
	default:
		return g
	}
	vz, ok := ev.Float("vz")
	if !ok || math.Abs(vz) > e.cfg.GetVzMax(e.cond.Is2018()) {
		g.Step = StepVertex
		return g
	}
	for _, f := range filters {
		if !bit(ev, f) {
			g.Step = StepFilter
			g.Detail = f
			return g
		}
	}
	return g
}
