package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// LumiLookup maps a run to its monitor bin and integrated luminosity.
type LumiLookup interface {
	// NumRuns is the number of monitor bins.
	NumRuns() int
	// RunBin returns the bin of run, -1 when unknown.
	RunBin(run int) int
	// Lumi returns the luminosity of run, 0 when unknown.
	Lumi(run int) float64
}

// LumiTable is a LumiLookup over a fixed run list. Bins follow run order.
type LumiTable struct {
	runs []int
	lumi map[int]float64
}

// NewLumiTable builds a table from run → luminosity.
func NewLumiTable(lumi map[int]float64) *LumiTable {
	t := &LumiTable{lumi: make(map[int]float64, len(lumi))}
	for run, l := range lumi {
		t.runs = append(t.runs, run)
		t.lumi[run] = l
	}
	sort.Ints(t.runs)
	return t
}

// LoadLumiTable reads a JSON object keyed by run number.
func LoadLumiTable(path string) (*LumiTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lumi table: %w", err)
	}
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse lumi table %s: %w", path, err)
	}
	lumi := make(map[int]float64, len(raw))
	for k, v := range raw {
		run, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("lumi table %s: bad run %q", path, k)
		}
		lumi[run] = v
	}
	return NewLumiTable(lumi), nil
}

// NumRuns implements LumiLookup.
func (t *LumiTable) NumRuns() int { return len(t.runs) }

// RunBin implements LumiLookup.
func (t *LumiTable) RunBin(run int) int {
	i := sort.SearchInts(t.runs, run)
	if i < len(t.runs) && t.runs[i] == run {
		return i
	}
	return -1
}

// Lumi implements LumiLookup.
func (t *LumiTable) Lumi(run int) float64 { return t.lumi[run] }
