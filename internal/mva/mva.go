// Package mva evaluates the pretrained dilepton discriminants. A Scorer
// owns the models for the lifetime of a run; scoring does not mutate it.
package mva

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/DickyChant/topskim/internal/kin"
	"github.com/DickyChant/topskim/internal/monitoring"
)

// Missing is reported for every output of an absent model.
const Missing = -99.

// Model maps a feature vector to a score.
type Model interface {
	NumFeatures() int
	Evaluate(features []float64) float64
}

// Rarer is implemented by models that know the background distribution of
// their response.
type Rarer interface {
	// Rarity returns the background cumulative probability below score.
	Rarity(score float64) float64
}

// Features is the discriminant input of one event.
type Features struct {
	L1Pt      float64 // leading lepton pT
	APt       float64 // (pT1 − pT2)/(pT1 + pT2)
	LLPt      float64 // dilepton pT
	AbsLLEta  float64 // |η(ll)|
	AbsDPhi   float64 // |Δφ(l1, l2)| in [0, π]
	SumAbsEta float64 // |η1| + |η2|

	// DPhiLL2 is φ1 − φ2 folded into [0, 2π). It is written to the output
	// record only; the models take AbsDPhi.
	DPhiLL2 float64
}

// NewFeatures derives the features from the two leading leptons.
func NewFeatures(l1, l2 kin.P4) Features {
	pt1, pt2 := l1.Pt(), l2.Pt()
	f := Features{
		L1Pt:      pt1,
		LLPt:      l1.Add(l2).Pt(),
		AbsLLEta:  math.Abs(l1.Add(l2).Eta()),
		AbsDPhi:   math.Abs(kin.DeltaPhi(l1, l2)),
		SumAbsEta: math.Abs(l1.Eta()) + math.Abs(l2.Eta()),
		DPhiLL2:   FoldPhi(l1.Phi() - l2.Phi()),
	}
	if pt1+pt2 > 0 {
		f.APt = (pt1 - pt2) / (pt1 + pt2)
	}
	return f
}

// FoldPhi maps an angle difference into [0, 2π).
func FoldPhi(dphi float64) float64 {
	d := math.Mod(dphi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d
}

// Primary returns the six inputs of the main discriminant in model order.
func (f Features) Primary() []float64 {
	return []float64{f.L1Pt, f.APt, f.LLPt, f.AbsLLEta, f.AbsDPhi, f.SumAbsEta}
}

// Secondary returns the two inputs of the auxiliary linear discriminant.
func (f Features) Secondary() []float64 {
	return []float64{f.LLPt, f.AbsDPhi}
}

// Scores are the discriminant outputs written with each event.
type Scores struct {
	BDT     float64
	Rarity  float64
	Fisher2 float64
}

// Scorer holds the primary and secondary models.
type Scorer struct {
	primary   Model
	secondary Model
}

// NewScorer wraps already constructed models; either may be nil.
func NewScorer(primary, secondary Model) (*Scorer, error) {
	if primary != nil && primary.NumFeatures() != 6 {
		return nil, fmt.Errorf("primary model takes %d features, want 6", primary.NumFeatures())
	}
	if secondary != nil && secondary.NumFeatures() != 2 {
		return nil, fmt.Errorf("secondary model takes %d features, want 2", secondary.NumFeatures())
	}
	return &Scorer{primary: primary, secondary: secondary}, nil
}

// Load reads both models from JSON files. An empty path leaves that model
// absent.
func Load(primaryPath, secondaryPath string) (*Scorer, error) {
	var p, s Model
	var err error
	if primaryPath != "" {
		if p, err = LoadModel(primaryPath); err != nil {
			return nil, err
		}
		monitoring.Logf("mva: loaded primary model %s", primaryPath)
	}
	if secondaryPath != "" {
		if s, err = LoadModel(secondaryPath); err != nil {
			return nil, err
		}
		monitoring.Logf("mva: loaded secondary model %s", secondaryPath)
	}
	return NewScorer(p, s)
}

// Close releases the models. Scoring afterwards yields Missing.
func (s *Scorer) Close() error {
	s.primary, s.secondary = nil, nil
	return nil
}

// Score evaluates the models on f.
func (s *Scorer) Score(f Features) Scores {
	out := Scores{BDT: Missing, Rarity: Missing, Fisher2: Missing}
	if s == nil {
		return out
	}
	if s.primary != nil {
		out.BDT = s.primary.Evaluate(f.Primary())
		if r, ok := s.primary.(Rarer); ok {
			out.Rarity = r.Rarity(out.BDT)
		}
	}
	if s.secondary != nil {
		out.Fisher2 = s.secondary.Evaluate(f.Secondary())
	}
	return out
}

// envelope is the common header of model files.
type envelope struct {
	Type     string          `json:"type"`
	Features []string        `json:"features"`
	Body     json.RawMessage `json:"model"`
}

const maxModelSize = 64 << 20

// LoadModel reads a model file. The "type" field selects "linear" or
// "forest".
func LoadModel(path string) (Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat model %s: %w", path, err)
	}
	if info.Size() > maxModelSize {
		return nil, fmt.Errorf("model %s too large (%d bytes)", path, info.Size())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	var m Model
	switch env.Type {
	case "linear":
		var lm LinearModel
		if err := json.Unmarshal(env.Body, &lm); err != nil {
			return nil, fmt.Errorf("parse linear model %s: %w", path, err)
		}
		m = &lm
	case "forest":
		var fm ForestModel
		if err := json.Unmarshal(env.Body, &fm); err != nil {
			return nil, fmt.Errorf("parse forest model %s: %w", path, err)
		}
		if err := fm.init(); err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
		m = &fm
	default:
		return nil, fmt.Errorf("model %s: unknown type %q", path, env.Type)
	}
	if len(env.Features) != 0 && len(env.Features) != m.NumFeatures() {
		return nil, fmt.Errorf("model %s: %d feature names for %d inputs", path, len(env.Features), m.NumFeatures())
	}
	return m, nil
}
