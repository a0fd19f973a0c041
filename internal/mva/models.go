package mva

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/floats"
)

// LinearModel is a Fisher discriminant: Bias + Σ Coefficients[i]·x[i].
type LinearModel struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// NumFeatures implements Model.
func (m *LinearModel) NumFeatures() int { return len(m.Coefficients) }

// Evaluate implements Model.
func (m *LinearModel) Evaluate(x []float64) float64 {
	return m.Bias + floats.Dot(m.Coefficients, x[:len(m.Coefficients)])
}

// Node is one decision-tree node. Leaves have Left = Right = -1.
type Node struct {
	Feature int     `json:"feature"`
	Cut     float64 `json:"cut"`
	Left    int     `json:"left"`  // x[Feature] < Cut
	Right   int     `json:"right"` // x[Feature] >= Cut
	Value   float64 `json:"value"`
}

func (n *Node) leaf() bool { return n.Left < 0 && n.Right < 0 }

// Tree is a decision tree rooted at node 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.leaf() {
			return n.Value
		}
		if x[n.Feature] < n.Cut {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Background is the response histogram of the training background.
type Background struct {
	Bins   int       `json:"bins"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Counts []float64 `json:"counts"`
}

// ForestModel is a gradient-boosted forest with the bounded response
// 2/(1+exp(−2Σ w·f)) − 1.
type ForestModel struct {
	Inputs     int         `json:"inputs"`
	Trees      []Tree      `json:"trees"`
	Weights    []float64   `json:"weights"`
	Background *Background `json:"background,omitempty"`

	bkg      *hbook.H1D
	bkgTotal float64
}

func (m *ForestModel) init() error {
	if m.Inputs <= 0 {
		return fmt.Errorf("forest: inputs must be positive")
	}
	if len(m.Weights) != 0 && len(m.Weights) != len(m.Trees) {
		return fmt.Errorf("forest: %d weights for %d trees", len(m.Weights), len(m.Trees))
	}
	for ti, t := range m.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("forest: tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.leaf() {
				continue
			}
			if n.Feature < 0 || n.Feature >= m.Inputs {
				return fmt.Errorf("forest: tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			// children must point forward so evaluation terminates
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("forest: tree %d node %d: bad children", ti, ni)
			}
		}
	}
	if b := m.Background; b != nil {
		if b.Bins <= 0 || b.Max <= b.Min || len(b.Counts) != b.Bins {
			return fmt.Errorf("forest: bad background histogram")
		}
		m.bkg = hbook.NewH1D(b.Bins, b.Min, b.Max)
		width := (b.Max - b.Min) / float64(b.Bins)
		for i, c := range b.Counts {
			if c != 0 {
				m.bkg.Fill(b.Min+(float64(i)+0.5)*width, c)
			}
		}
		m.bkgTotal = m.bkg.SumW()
	}
	return nil
}

// NumFeatures implements Model.
func (m *ForestModel) NumFeatures() int { return m.Inputs }

// Evaluate implements Model.
func (m *ForestModel) Evaluate(x []float64) float64 {
	sums := make([]float64, len(m.Trees))
	for i := range m.Trees {
		w := 1.
		if len(m.Weights) > 0 {
			w = m.Weights[i]
		}
		sums[i] = w * m.Trees[i].eval(x)
	}
	s := floats.Sum(sums)
	return 2/(1+math.Exp(-2*s)) - 1
}

// Rarity implements Rarer. Without a background histogram it returns
// Missing.
func (m *ForestModel) Rarity(score float64) float64 {
	if m.bkg == nil || m.bkgTotal <= 0 {
		return Missing
	}
	var below float64
	for _, bin := range m.bkg.Binning.Bins {
		switch {
		case bin.XMax() <= score:
			below += bin.SumW()
		case bin.XMin() < score:
			frac := (score - bin.XMin()) / (bin.XMax() - bin.XMin())
			below += frac * bin.SumW()
		}
	}
	return below / m.bkgTotal
}

// NewForestModel builds a forest in memory, validating it as LoadModel does.
func NewForestModel(inputs int, trees []Tree, weights []float64, bkg *Background) (*ForestModel, error) {
	m := &ForestModel{Inputs: inputs, Trees: trees, Weights: weights, Background: bkg}
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}
