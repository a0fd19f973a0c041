package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/DickyChant/topskim/internal/hist"
)

// PageOptions controls the HTML summary.
type PageOptions struct {
	Title string
	// Yield is the histogram whose per-category integral is charted.
	Yield string
	// Histograms are charted bin by bin, one series per category.
	Histograms []string
	// Categories restricts the series of the per-histogram charts.
	Categories []string
	// StageLabels names the counter rows.
	StageLabels []string
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
}

func (o *PageOptions) initOpts() opts.Initialization {
	in := opts.Initialization{PageTitle: o.Title, Width: "100%", Height: "480px"}
	if o.AssetsHost != "" {
		in.AssetsHost = o.AssetsHost
	}
	return in
}

func (o *PageOptions) stageLabel(i int) string {
	if i < len(o.StageLabels) {
		return o.StageLabels[i]
	}
	return strconv.Itoa(i)
}

// WritePage renders the summary page of agg to w.
func WritePage(w io.Writer, agg *hist.Aggregator, o PageOptions) error {
	if o.Title == "" {
		o.Title = "Skim summary"
	}
	page := components.NewPage()
	page.PageTitle = o.Title
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}

	entries := agg.Entries()
	if o.Yield != "" {
		if bar := yieldChart(entries, &o); bar != nil {
			page.AddCharts(bar)
		}
	}
	for _, e := range entries {
		if e.Kind == hist.KindCounter {
			page.AddCharts(counterChart(e, &o))
		}
	}
	page.AddCharts(weightsChart(agg.Weights(), &o))
	for _, name := range o.Histograms {
		if bar := histogramChart(agg, entries, name, &o); bar != nil {
			page.AddCharts(bar)
		}
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func yieldChart(entries []hist.Entry, o *PageOptions) *charts.Bar {
	var cats []string
	var data []opts.BarData
	for _, e := range entries {
		if e.Kind == hist.KindH1 && e.Key.Name == o.Yield {
			cats = append(cats, e.Key.Category)
			data = append(data, opts.BarData{Value: e.H1.SumW()})
		}
	}
	if len(cats) == 0 {
		return nil
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts()),
		charts.WithTitleOpts(opts.Title{Title: "Yields", Subtitle: "weighted entries of " + o.Yield}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(cats).AddSeries(o.Yield, data)
	return bar
}

func counterChart(e hist.Entry, o *PageOptions) *charts.Bar {
	c := e.Counter
	x := make([]string, c.Stages())
	nominal := make([]opts.BarData, c.Stages())
	for s := range x {
		x[s] = o.stageLabel(s)
		nominal[s] = opts.BarData{Value: c.Value(s, 0)}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts()),
		charts.WithTitleOpts(opts.Title{Title: e.Key.String(), Subtitle: fmt.Sprintf("nominal weight, %d slots", c.Slots())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries(e.Key.Category, nominal,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func weightsChart(w *hist.Weights, o *PageOptions) *charts.Bar {
	x := []string{"wgtsum"}
	data := []opts.BarData{{Value: w.WgtSum}}
	for i, v := range w.AllWgtSum {
		x = append(x, "slot "+strconv.Itoa(i))
		data = append(data, opts.BarData{Value: v})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts()),
		charts.WithTitleOpts(opts.Title{Title: "Weight sums"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("sum of weights", data)
	return bar
}

func histogramChart(agg *hist.Aggregator, entries []hist.Entry, name string, o *PageOptions) *charts.Bar {
	b, ok := agg.Booking(name)
	if !ok || b.Kind != hist.KindH1 {
		return nil
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.initOpts()),
		charts.WithTitleOpts(opts.Title{Title: name, Subtitle: b.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	x := make([]string, b.NX)
	width := (b.XMax - b.XMin) / float64(b.NX)
	for i := range x {
		x[i] = strconv.FormatFloat(b.XMin+(float64(i)+0.5)*width, 'g', 4, 64)
	}
	bar.SetXAxis(x)

	series := 0
	for _, e := range entries {
		if e.Kind != hist.KindH1 || e.Key.Name != name || !selected(o.Categories, e.Key.Category) {
			continue
		}
		data := make([]opts.BarData, len(e.H1.Binning.Bins))
		for i, bin := range e.H1.Binning.Bins {
			data[i] = opts.BarData{Value: bin.SumW()}
		}
		bar.AddSeries(e.Key.Category, data)
		series++
	}
	if series == 0 {
		return nil
	}
	return bar
}
