package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/DickyChant/topskim/internal/analysis"
	"github.com/DickyChant/topskim/internal/config"
	"github.com/DickyChant/topskim/internal/db"
	"github.com/DickyChant/topskim/internal/event"
	"github.com/DickyChant/topskim/internal/hist"
	"github.com/DickyChant/topskim/internal/monitoring"
	"github.com/DickyChant/topskim/internal/mva"
	"github.com/DickyChant/topskim/internal/output"
	"github.com/DickyChant/topskim/internal/report"
	"github.com/DickyChant/topskim/internal/selection"
	"github.com/DickyChant/topskim/internal/truth"
)

// runOptions are the flags of the run command.
type runOptions struct {
	input      string
	dbPath     string
	outPath    string
	yodaPath   string
	plotsDir   string
	htmlPath   string
	configPath string
	lumiPath   string

	primaryModel   string
	secondaryModel string

	mc        bool
	pp        bool
	stream    string
	globalTag string
	maxEvents int
	blind     bool
	blindSet  bool
}

// summaryHistograms are charted on the HTML page.
var summaryHistograms = []string{"mll", "ptll", "acopl", "npfbjets", "pfht"}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Skim an event file",
		Long: `Run the skim over a JSON-lines event file. Selected records go to the
SQLite database and, optionally, to a JSON-lines file; the accumulators are
stored with the run and can be exported as YODA, PNG plots and an HTML page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.blindSet = cmd.Flags().Changed("blind")
			return runSkim(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "event file (JSON lines)")
	f.StringVar(&o.dbPath, "db", "topskim.db", "SQLite database path")
	f.StringVarP(&o.outPath, "out", "o", "", "also write selected records to this JSON-lines file")
	f.StringVar(&o.yodaPath, "yoda", "", "write accumulators as YODA to this path")
	f.StringVar(&o.plotsDir, "plots", "", "write PNG histograms to this directory")
	f.StringVar(&o.htmlPath, "html", "", "write an HTML summary to this path")
	f.StringVar(&o.configPath, "config", "", "analysis config (JSON); built-in defaults when empty")
	f.StringVar(&o.lumiPath, "lumi", "", "per-run luminosity table (JSON) enabling the rate monitor")
	f.StringVar(&o.primaryModel, "primary-model", "", "override the six-feature model path")
	f.StringVar(&o.secondaryModel, "secondary-model", "", "override the two-feature model path")
	f.BoolVar(&o.mc, "mc", false, "input is simulation")
	f.BoolVar(&o.pp, "pp", false, "pp reference run (no centrality or era split)")
	f.StringVar(&o.stream, "stream", "any", "primary dataset of data input: muon, electron or any")
	f.StringVar(&o.globalTag, "global-tag", "103X_dataRun2_Prompt_v2", "conditions global tag")
	f.IntVar(&o.maxEvents, "max-events", 0, "stop after this many events (0 for all)")
	f.BoolVar(&o.blind, "blind", true, "blind the opposite-sign signal region on data")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func loadConfig(o runOptions) (*config.AnalysisConfig, error) {
	cfg := config.EmptyAnalysisConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadAnalysisConfig(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.blindSet {
		blind := o.blind
		cfg.Blind = &blind
	}
	if o.primaryModel != "" {
		p := o.primaryModel
		cfg.PrimaryModel = &p
	}
	if o.secondaryModel != "" {
		s := o.secondaryModel
		cfg.SecondaryModel = &s
	}
	return cfg, nil
}

func runSkim(ctx context.Context, o runOptions, out io.Writer) (err error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	stream, err := selection.ParseStream(o.stream)
	if err != nil {
		return err
	}
	cond := config.Conditions{IsData: !o.mc, PP: o.pp, GlobalTag: o.globalTag}

	src, err := event.OpenJSONL(o.input)
	if err != nil {
		return err
	}
	defer src.Close()

	var lumi analysis.LumiLookup
	if o.lumiPath != "" {
		lt, err := analysis.LoadLumiTable(o.lumiPath)
		if err != nil {
			return err
		}
		lumi = lt
	}

	scorer, err := mva.Load(cfg.GetPrimaryModel(), cfg.GetSecondaryModel())
	if err != nil {
		return err
	}
	defer scorer.Close()

	database, err := db.NewDB(o.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	run := &db.Run{
		Input:      o.input,
		IsMC:       o.mc,
		IsPP:       o.pp,
		Stream:     stream.String(),
		GlobalTag:  o.globalTag,
		ConfigJSON: cfgJSON,
	}
	if err := database.StartRun(ctx, run); err != nil {
		return err
	}
	monitoring.Logf("run %s: %s (%d events)", run.RunID, o.input, src.Len())

	// bookkeeping must land even when the loop was interrupted
	done := context.WithoutCancel(ctx)
	var stats analysis.Stats
	defer func() {
		if ferr := database.FinishRun(done, run.RunID, stats.Read, stats.Selected, err); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}()

	proc, err := analysis.NewProcessor(analysis.Options{
		Config:     cfg,
		Conditions: cond,
		Stream:     stream,
		Lumi:       lumi,
		Scorer:     scorer,
	}, src)
	if err != nil {
		return err
	}

	store := db.NewRecordStore(database, run.RunID)
	sinks := analysis.MultiSink{store}
	var jsonl *output.Writer
	if o.outPath != "" {
		if jsonl, err = output.Create(o.outPath); err != nil {
			return err
		}
		sinks = append(sinks, jsonl)
	}

	stats, err = analysis.Run(ctx, src, proc, sinks, o.maxEvents)
	if cerr := store.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if jsonl != nil {
		if cerr := jsonl.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	if err != nil {
		return err
	}

	agg := proc.Aggregator()
	if err := database.SaveAggregator(done, run.RunID, agg); err != nil {
		return err
	}
	if err := writeOutputs(agg, o); err != nil {
		return err
	}
	printSummary(out, run.RunID, stats)
	return nil
}

// writeOutputs renders the optional side outputs of a run.
func writeOutputs(agg *hist.Aggregator, o runOptions) error {
	if o.yodaPath != "" {
		if err := writeFile(o.yodaPath, agg.WriteYODA); err != nil {
			return err
		}
	}
	if o.plotsDir != "" {
		p, err := report.NewPlotter(o.plotsDir)
		if err != nil {
			return err
		}
		if _, err := p.Plot(agg); err != nil {
			return err
		}
	}
	if o.htmlPath != "" {
		page := report.PageOptions{
			Title:       "topskim " + o.input,
			Yield:       "mll",
			Histograms:  summaryHistograms,
			StageLabels: truth.StageLabels[:],
		}
		err := writeFile(o.htmlPath, func(w io.Writer) error {
			return report.WritePage(w, agg, page)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(w io.Writer, runID string, stats analysis.Stats) {
	fmt.Fprintf(w, "run %s: %d events read, %d selected\n", runID, stats.Read, stats.Selected)
	steps := make([]selection.Step, 0, len(stats.Steps))
	for s := range stats.Steps {
		steps = append(steps, s)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	for _, s := range steps {
		fmt.Fprintf(w, "  %-16s %d\n", s, stats.Steps[s])
	}
}
