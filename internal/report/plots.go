// Package report renders the accumulators of a run as PNG plots and an
// HTML summary page.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/DickyChant/topskim/internal/hist"
	"github.com/DickyChant/topskim/internal/monitoring"
)

// Plotter writes one PNG per 1-D histogram, overlaying its categories.
type Plotter struct {
	outputDir string

	// Categories restricts the overlaid categories. Empty means all.
	Categories []string
	// Width and Height of each image.
	Width, Height vg.Length
}

// NewPlotter returns a plotter writing into dir, creating it if needed.
func NewPlotter(dir string) (*Plotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot directory: %w", err)
	}
	return &Plotter{outputDir: dir, Width: 8 * vg.Inch, Height: 5 * vg.Inch}, nil
}

// OutputDir returns the directory plots are written to.
func (p *Plotter) OutputDir() string { return p.outputDir }

// selected reports whether cat is in cats. An empty list selects all.
func selected(cats []string, cat string) bool {
	if len(cats) == 0 {
		return true
	}
	for _, c := range cats {
		if c == cat {
			return true
		}
	}
	return false
}

// Plot writes <name>.png for every booked 1-D histogram with at least one
// selected category filled and returns the written paths.
func (p *Plotter) Plot(agg *hist.Aggregator) ([]string, error) {
	byName := make(map[string][]hist.Entry)
	var names []string
	for _, e := range agg.Entries() {
		if e.Kind != hist.KindH1 || !selected(p.Categories, e.Key.Category) {
			continue
		}
		if _, ok := byName[e.Key.Name]; !ok {
			names = append(names, e.Key.Name)
		}
		byName[e.Key.Name] = append(byName[e.Key.Name], e)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		b, _ := agg.Booking(name)
		path, err := p.plotH1(b, byName[name])
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	monitoring.Logf("report: wrote %d plots to %s", len(written), p.outputDir)
	return written, nil
}

func (p *Plotter) plotH1(b hist.Booking, entries []hist.Entry) (string, error) {
	pl := plot.New()
	pl.Title.Text = b.Title
	if pl.Title.Text == "" {
		pl.Title.Text = b.Name
	}
	pl.X.Label.Text = b.Name
	pl.Y.Label.Text = "Events"
	pl.X.Min, pl.X.Max = b.XMin, b.XMax

	colors := generateColors(len(entries))
	for i, e := range entries {
		bins := e.H1.Binning.Bins
		pts := make(plotter.XYs, len(bins))
		for j, bin := range bins {
			pts[j] = plotter.XY{X: bin.XMid(), Y: bin.SumW()}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", fmt.Errorf("line for %s: %w", e.Key, err)
		}
		line.StepStyle = plotter.MidStep
		line.Color = colors[i]
		line.Width = vg.Points(1)
		pl.Add(line)
		pl.Legend.Add(e.Key.Category, line)
	}
	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10

	path := filepath.Join(p.outputDir, b.Name+".png")
	if err := pl.Save(p.Width, p.Height, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// generateColors spreads n colors evenly over the hue circle.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
