package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyAnalysisConfig_Defaults(t *testing.T) {
	cfg := EmptyAnalysisConfig()

	if cfg.GetLepPtMin() != 20 {
		t.Errorf("GetLepPtMin() = %f, want 20", cfg.GetLepPtMin())
	}
	if cfg.GetLepEtaMax() != 2.4 {
		t.Errorf("GetLepEtaMax() = %f, want 2.4", cfg.GetLepEtaMax())
	}
	if got := cfg.GetBarrelEndcapGap(); got != [2]float64{1.4442, 1.5660} {
		t.Errorf("GetBarrelEndcapGap() = %v", got)
	}
	if got := cfg.GetIsolationRadii(); got != [3]float64{0.20, 0.25, 0.30} {
		t.Errorf("GetIsolationRadii() = %v", got)
	}
	if cfg.GetCSVWorkingPoint() != 0.8838 {
		t.Errorf("GetCSVWorkingPoint() = %f, want 0.8838", cfg.GetCSVWorkingPoint())
	}
	if !cfg.GetBlind() {
		t.Error("GetBlind() should default to true")
	}
	if cfg.GetBlindFromRun() != 326887 {
		t.Errorf("GetBlindFromRun() = %d", cfg.GetBlindFromRun())
	}
	if cfg.GetFirstEEScaleRun() != 327402 {
		t.Errorf("GetFirstEEScaleRun() = %d", cfg.GetFirstEEScaleRun())
	}
	assert.InDelta(t, 1.15373, cfg.GetEEScaleShift(), 1e-5)
	assert.Equal(t, 0.26, cfg.GetIsoMax(13))
	assert.Equal(t, 0.16, cfg.GetIsoMax(11))
	assert.Equal(t, 20.0, cfg.GetVzMax(true))
	assert.Equal(t, 15.0, cfg.GetVzMax(false))
	assert.Equal(t, []string{"HLT_HIL3Mu12_v1"}, cfg.GetMuonTriggers(false))
	assert.Equal(t, "HLT_HIL3Mu20_v1", cfg.GetMuonTriggers(true)[0])
	assert.Equal(t, "", cfg.GetPrimaryModel())
}

func TestRhoCorr_Eval(t *testing.T) {
	cfg := EmptyAnalysisConfig()

	mu := cfg.GetRhoCorr(13)
	// 0.0013*(10+15.83)^2 + 0.29*(10+15.83)
	assert.InDelta(t, 0.0013*25.83*25.83+0.29*25.83, mu.Eval(10), 1e-12)

	ele := cfg.GetRhoCorr(11)
	assert.InDelta(t, 0.0011*152.4*152.4-0.14*152.4, ele.Eval(10), 1e-12)
}

func TestLoadAnalysisConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "lep_pt_min": 25.0,
  "blind": false,
  "jet_min_tracks": 3,
  "muon_rho_correction": {"quad": 0.001, "linear": 0.2, "offset": 10},
  "primary_model": "models/bdt.json"
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadAnalysisConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 25.0, cfg.GetLepPtMin())
	assert.False(t, cfg.GetBlind())
	assert.Equal(t, 3, cfg.GetJetMinTracks())
	assert.Equal(t, RhoCorr{Quad: 0.001, Linear: 0.2, Offset: 10}, cfg.GetRhoCorr(13))
	assert.Equal(t, "models/bdt.json", cfg.GetPrimaryModel())

	// unset fields keep defaults
	assert.Equal(t, 2.4, cfg.GetLepEtaMax())
	assert.Equal(t, RhoCorr{Quad: 0.0011, Linear: -0.14, Offset: 142.4}, cfg.GetRhoCorr(11))
}

func TestLoadAnalysisConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "config.yaml", `{}`},
		{"bad json", "bad.json", `{"lep_pt_min": `},
		{"gap order", "gap.json", `{"barrel_endcap_gap": [1.6, 1.4]}`},
		{"radii count", "radii.json", `{"isolation_radii": [0.2, 0.3]}`},
		{"mini bounds", "mini.json", `{"mini_iso_min_radius": 0.3, "mini_iso_max_radius": 0.2}`},
		{"csv range", "csv.json", `{"csv_working_point": 1.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(tmpDir, tt.file)
			require.NoError(t, os.WriteFile(p, []byte(tt.content), 0644))
			_, err := LoadAnalysisConfig(p)
			assert.Error(t, err)
		})
	}

	_, err := LoadAnalysisConfig(filepath.Join(tmpDir, "missing.json"))
	assert.Error(t, err)
}

func TestDefaultsFileMatchesAccessors(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyAnalysisConfig()

	assert.Equal(t, empty.GetLepPtMin(), cfg.GetLepPtMin())
	assert.Equal(t, empty.GetBarrelEndcapGap(), cfg.GetBarrelEndcapGap())
	assert.Equal(t, empty.GetIsolationRadii(), cfg.GetIsolationRadii())
	assert.Equal(t, empty.GetRhoCorr(11), cfg.GetRhoCorr(11))
	assert.Equal(t, empty.GetRhoCorr(13), cfg.GetRhoCorr(13))
	assert.Equal(t, empty.GetCSVWorkingPoint(), cfg.GetCSVWorkingPoint())
	assert.Equal(t, empty.GetBlindFromRun(), cfg.GetBlindFromRun())
	assert.InDelta(t, empty.GetEEScaleShift(), cfg.GetEEScaleShift(), 1e-12)
	assert.Equal(t, empty.GetElectronTriggers(false), cfg.GetElectronTriggers(false))
}
