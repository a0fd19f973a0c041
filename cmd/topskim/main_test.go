package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DickyChant/topskim/internal/db"
	"github.com/DickyChant/topskim/internal/event"
	"github.com/DickyChant/topskim/internal/monitoring"
	"github.com/DickyChant/topskim/internal/output"
	"github.com/DickyChant/topskim/internal/testutil"
)

func init() { monitoring.SetLogger(nil) }

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeEvents writes a muon-stream data file with one Z→μμ candidate and
// one event without leptons.
func writeEvents(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "events.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := event.NewWriter(f)
	require.NoError(t, w.Write(testutil.NewEvent(326500, 4, 100).
		Trigger(testutil.MuonTrigger, true).
		Muon(testutil.TightMuon(45, 0.1, 0, 1)).
		Muon(testutil.TightMuon(45, 0.1, math.Pi, -1)).
		Jet(testutil.Jet{Pt: 40, Eta: 1.8, Phi: 1.5, M: 4, TrackN: 4, CSV: 0.2}).
		Fields()))
	require.NoError(t, w.Write(testutil.NewEvent(326500, 4, 101).
		Trigger(testutil.MuonTrigger, true).
		Fields()))
	require.NoError(t, w.Flush())
	return path
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeEvents(t, dir)
	dbPath := filepath.Join(dir, "skim.db")
	out := filepath.Join(dir, "records.jsonl")
	yoda := filepath.Join(dir, "hists.yoda")
	html := filepath.Join(dir, "summary.html")
	plots := filepath.Join(dir, "plots")

	stdout, err := execute(t, "run",
		"--input", input, "--db", dbPath, "--out", out,
		"--yoda", yoda, "--html", html, "--plots", plots,
		"--stream", "muon",
	)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "2 events read, 1 selected")
	assert.Contains(t, stdout, "2 leptons")

	f, err := os.Open(out)
	require.NoError(t, err)
	recs, err := output.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 100, recs[0].Event)
	assert.Equal(t, 2, recs[0].NLep)
	assert.True(t, recs[0].IsData)

	yodaText, err := os.ReadFile(yoda)
	require.NoError(t, err)
	assert.Contains(t, string(yodaText), "mll_mm")

	page, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(page), "echarts")
	_, err = os.Stat(filepath.Join(plots, "mll.png"))
	assert.NoError(t, err)

	d, err := db.NewDB(dbPath)
	require.NoError(t, err)
	runs, err := d.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, db.RunCompleted, run.Status)
	assert.Equal(t, 2, run.EventsRead)
	assert.Equal(t, 1, run.EventsSelected)
	assert.Equal(t, "muon", run.Stream)
	stored, err := d.ListRecords(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, recs, stored)
	require.NoError(t, d.Close())

	stdout, err = execute(t, "runs", "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, run.RunID)
	assert.Contains(t, stdout, "completed")

	exported := filepath.Join(dir, "export.jsonl")
	exportedYoda := filepath.Join(dir, "export.yoda")
	stdout, err = execute(t, "runs", "export", run.RunID, "--db", dbPath, "--records", exported, "--yoda", exportedYoda)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 1 records")
	again, err := os.ReadFile(exportedYoda)
	require.NoError(t, err)
	assert.Contains(t, string(again), "mll_mm")

	stdout, err = execute(t, "runs", "show", run.RunID, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status": "completed"`)

	_, err = execute(t, "runs", "delete", run.RunID, "--db", dbPath)
	require.NoError(t, err)
	_, err = execute(t, "runs", "show", run.RunID, "--db", dbPath)
	assert.Error(t, err)
}

func TestRunCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "skim.db")

	_, err := execute(t, "run", "--db", dbPath)
	assert.Error(t, err, "input is required")

	_, err = execute(t, "run", "--input", filepath.Join(dir, "missing.jsonl"), "--db", dbPath)
	assert.Error(t, err)

	input := writeEvents(t, dir)
	_, err = execute(t, "run", "--input", input, "--db", dbPath, "--stream", "photon")
	assert.Error(t, err)

	_, err = execute(t, "run", "--input", input, "--db", dbPath, "--config", filepath.Join(dir, "cfg.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "runs", "export", "nope", "--db", dbPath)
	assert.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadConfig(runOptions{blind: false, blindSet: true, primaryModel: "bdt.json"})
	require.NoError(t, err)
	assert.False(t, cfg.GetBlind())
	assert.Equal(t, "bdt.json", cfg.GetPrimaryModel())
	assert.Equal(t, "", cfg.GetSecondaryModel())

	cfg, err = loadConfig(runOptions{blind: false})
	require.NoError(t, err)
	assert.True(t, cfg.GetBlind(), "unset flag keeps the configured default")
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "skim.db")

	stdout, err := execute(t, "migrate", "status", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Current version: 0")
	assert.Contains(t, stdout, "Pending migrations")

	stdout, err = execute(t, "migrate", "up", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Current version: 3")

	stdout, err = execute(t, "migrate", "down", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Current version: 2")

	stdout, err = execute(t, "migrate", "force", "3", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Current version: 3")

	_, err = execute(t, "migrate", "force", "two", "--db", dbPath)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "topskim dev")
}
