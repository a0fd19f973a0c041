package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// AnalysisConfig is the on-disk form of the skim thresholds. Every field is
// optional; omitted fields fall back to the defaults returned by the Get*
// accessors, so a partial file only overrides what it names.
type AnalysisConfig struct {
	// Lepton kinematics
	LepPtMin          *float64  `json:"lep_pt_min,omitempty"`
	LepEtaMax         *float64  `json:"lep_eta_max,omitempty"`
	BarrelEndcapGap   []float64 `json:"barrel_endcap_gap,omitempty"` // [barrel max, endcap min]
	EEScaleShift      *float64  `json:"ee_scale_shift,omitempty"`
	FirstEEScaleRun   *int      `json:"first_ee_scale_shift_run,omitempty"`
	CentralCenbinMax  *float64  `json:"central_cenbin_max,omitempty"`
	IsolationRadii    []float64 `json:"isolation_radii,omitempty"`
	SelfExclusionDR   *float64  `json:"self_exclusion_dr,omitempty"`
	MiniIsoMinRadius  *float64  `json:"mini_iso_min_radius,omitempty"`
	MiniIsoMaxRadius  *float64  `json:"mini_iso_max_radius,omitempty"`
	MiniIsoScaleMuon  *float64  `json:"mini_iso_scale_muon,omitempty"`
	MiniIsoScaleEle   *float64  `json:"mini_iso_scale_electron,omitempty"`
	MuonRhoCorr       *RhoCorr  `json:"muon_rho_correction,omitempty"`
	ElectronRhoCorr   *RhoCorr  `json:"electron_rho_correction,omitempty"`
	MuonIsoMax        *float64  `json:"muon_iso_max,omitempty"`
	ElectronIsoMax    *float64  `json:"electron_iso_max,omitempty"`
	LepIndexIsoMax    *float64  `json:"lep_index_iso_max,omitempty"`
	TruthMatchDR      *float64  `json:"truth_match_dr,omitempty"`
	GenBPtMin         *float64  `json:"gen_b_pt_min,omitempty"`
	GenBEtaMax        *float64  `json:"gen_b_eta_max,omitempty"`
	GenLepPtMin       *float64  `json:"gen_lep_pt_min,omitempty"`
	GenLepEtaMax      *float64  `json:"gen_lep_eta_max,omitempty"`
	ZMass             *float64  `json:"z_mass,omitempty"`
	ZWindow           *float64  `json:"z_window,omitempty"`
	Blind             *bool     `json:"blind,omitempty"`
	BlindFromRun      *int      `json:"blind_from_run,omitempty"`
	JetPtMin          *float64  `json:"jet_pt_min,omitempty"`
	JetEtaMax         *float64  `json:"jet_eta_max,omitempty"`
	JetMinTracks      *int      `json:"jet_min_tracks,omitempty"`
	JetLeptonDR       *float64  `json:"jet_lepton_dr,omitempty"`
	CSVWorkingPoint   *float64  `json:"csv_working_point,omitempty"`
	MuonTriggers      []string  `json:"muon_triggers,omitempty"`
	ElectronTriggers  []string  `json:"electron_triggers,omitempty"`
	PPMuonTriggers    []string  `json:"pp_muon_triggers,omitempty"`
	PPElectronTrigger []string  `json:"pp_electron_triggers,omitempty"`
	VzMax2018         *float64  `json:"vz_max_2018,omitempty"`
	VzMax2015         *float64  `json:"vz_max_2015,omitempty"`
	PrimaryModel      *string   `json:"primary_model,omitempty"`
	SecondaryModel    *string   `json:"secondary_model,omitempty"`
}

// RhoCorr is the quadratic pileup correction a·(ρ+o)² + b·(ρ+o).
type RhoCorr struct {
	Quad   float64 `json:"quad"`
	Linear float64 `json:"linear"`
	Offset float64 `json:"offset"`
}

// Eval returns the correction for density rho.
func (r RhoCorr) Eval(rho float64) float64 {
	x := rho + r.Offset
	return r.Quad*x*x + r.Linear*x
}

// EmptyAnalysisConfig returns an AnalysisConfig with all fields unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.BarrelEndcapGap != nil {
		if len(c.BarrelEndcapGap) != 2 || c.BarrelEndcapGap[0] >= c.BarrelEndcapGap[1] {
			return fmt.Errorf("barrel_endcap_gap must be two increasing values, got %v", c.BarrelEndcapGap)
		}
	}
	if c.IsolationRadii != nil && len(c.IsolationRadii) != 3 {
		return fmt.Errorf("isolation_radii must have 3 entries, got %d", len(c.IsolationRadii))
	}
	for _, r := range c.IsolationRadii {
		if r <= 0 {
			return fmt.Errorf("isolation radius must be positive, got %f", r)
		}
	}
	if c.MiniIsoMinRadius != nil && c.MiniIsoMaxRadius != nil && *c.MiniIsoMinRadius > *c.MiniIsoMaxRadius {
		return fmt.Errorf("mini_iso_min_radius (%f) exceeds mini_iso_max_radius (%f)", *c.MiniIsoMinRadius, *c.MiniIsoMaxRadius)
	}
	if c.LepPtMin != nil && *c.LepPtMin < 0 {
		return fmt.Errorf("lep_pt_min must be non-negative, got %f", *c.LepPtMin)
	}
	if c.JetMinTracks != nil && *c.JetMinTracks < 0 {
		return fmt.Errorf("jet_min_tracks must be non-negative, got %d", *c.JetMinTracks)
	}
	if c.CSVWorkingPoint != nil && (*c.CSVWorkingPoint < 0 || *c.CSVWorkingPoint > 1) {
		return fmt.Errorf("csv_working_point must be between 0 and 1, got %f", *c.CSVWorkingPoint)
	}
	return nil
}

// GetLepPtMin returns the lep_pt_min value or the default.
func (c *AnalysisConfig) GetLepPtMin() float64 { return getFloat(c.LepPtMin, 20.) }

// GetLepEtaMax returns the lep_eta_max value or the default.
func (c *AnalysisConfig) GetLepEtaMax() float64 { return getFloat(c.LepEtaMax, 2.4) }

// GetBarrelEndcapGap returns the ECAL transition region boundaries.
func (c *AnalysisConfig) GetBarrelEndcapGap() [2]float64 {
	if len(c.BarrelEndcapGap) != 2 {
		return [2]float64{1.4442, 1.5660}
	}
	return [2]float64{c.BarrelEndcapGap[0], c.BarrelEndcapGap[1]}
}

// GetEEScaleShift returns the endcap electron energy-scale factor.
func (c *AnalysisConfig) GetEEScaleShift() float64 {
	return getFloat(c.EEScaleShift, 6.8182e-2/5.9097e-2)
}

// GetFirstEEScaleRun returns the last run needing the endcap scale shift.
func (c *AnalysisConfig) GetFirstEEScaleRun() int { return getInt(c.FirstEEScaleRun, 327402) }

// GetCentralCenbinMax returns the centrality boundary for central events.
func (c *AnalysisConfig) GetCentralCenbinMax() float64 { return getFloat(c.CentralCenbinMax, 30.) }

// GetIsolationRadii returns the three fixed isolation cone radii.
func (c *AnalysisConfig) GetIsolationRadii() [3]float64 {
	if len(c.IsolationRadii) != 3 {
		return [3]float64{0.20, 0.25, 0.30}
	}
	return [3]float64{c.IsolationRadii[0], c.IsolationRadii[1], c.IsolationRadii[2]}
}

// GetSelfExclusionDR returns the footprint radius excluded from isolation sums.
func (c *AnalysisConfig) GetSelfExclusionDR() float64 { return getFloat(c.SelfExclusionDR, 0.01) }

// GetMiniIsoMinRadius returns the smallest mini-isolation cone.
func (c *AnalysisConfig) GetMiniIsoMinRadius() float64 { return getFloat(c.MiniIsoMinRadius, 0.05) }

// GetMiniIsoMaxRadius returns the largest mini-isolation cone.
func (c *AnalysisConfig) GetMiniIsoMaxRadius() float64 { return getFloat(c.MiniIsoMaxRadius, 0.2) }

// GetMiniIsoScale returns the pT scale (GeV) of the mini-isolation cone for
// the given lepton flavor (11 or 13).
func (c *AnalysisConfig) GetMiniIsoScale(flavor int) float64 {
	if flavor == 11 {
		return getFloat(c.MiniIsoScaleEle, 10.)
	}
	return getFloat(c.MiniIsoScaleMuon, 10.)
}

// GetRhoCorr returns the pileup correction polynomial for the lepton flavor.
func (c *AnalysisConfig) GetRhoCorr(flavor int) RhoCorr {
	if flavor == 11 {
		if c.ElectronRhoCorr != nil {
			return *c.ElectronRhoCorr
		}
		return RhoCorr{Quad: 0.0011, Linear: -0.14, Offset: 142.4}
	}
	if c.MuonRhoCorr != nil {
		return *c.MuonRhoCorr
	}
	return RhoCorr{Quad: 0.0013, Linear: 0.29, Offset: 15.83}
}

// GetIsoMax returns the relative isolation cut used for reco-level fiducial
// categories.
func (c *AnalysisConfig) GetIsoMax(flavor int) float64 {
	if flavor == 11 {
		return getFloat(c.ElectronIsoMax, 0.16)
	}
	return getFloat(c.MuonIsoMax, 0.26)
}

// GetLepIndexIsoMax returns the isolation cut for lep_ind1/lep_ind2.
func (c *AnalysisConfig) GetLepIndexIsoMax() float64 { return getFloat(c.LepIndexIsoMax, 0.16) }

// GetTruthMatchDR returns the lepton truth-matching radius.
func (c *AnalysisConfig) GetTruthMatchDR() float64 { return getFloat(c.TruthMatchDR, 0.1) }

// GetGenBPtMin returns the b-quark proxy pT threshold.
func (c *AnalysisConfig) GetGenBPtMin() float64 { return getFloat(c.GenBPtMin, 30.) }

// GetGenBEtaMax returns the b-quark proxy |eta| threshold.
func (c *AnalysisConfig) GetGenBEtaMax() float64 { return getFloat(c.GenBEtaMax, 2.5) }

// GetGenLepPtMin returns the fiducial truth-lepton pT threshold.
func (c *AnalysisConfig) GetGenLepPtMin() float64 { return getFloat(c.GenLepPtMin, 20.) }

// GetGenLepEtaMax returns the fiducial truth-lepton |eta| threshold.
func (c *AnalysisConfig) GetGenLepEtaMax() float64 { return getFloat(c.GenLepEtaMax, 2.5) }

// GetZMass returns the Z boson mass used for the control window.
func (c *AnalysisConfig) GetZMass() float64 { return getFloat(c.ZMass, 91.) }

// GetZWindow returns the half-width of the Z mass window.
func (c *AnalysisConfig) GetZWindow() float64 { return getFloat(c.ZWindow, 15.) }

// GetBlind returns whether the opposite-sign signal region is blinded on data.
func (c *AnalysisConfig) GetBlind() bool {
	if c.Blind == nil {
		return true
	}
	return *c.Blind
}

// GetBlindFromRun returns the first blinded run.
func (c *AnalysisConfig) GetBlindFromRun() int { return getInt(c.BlindFromRun, 326887) }

// GetJetPtMin returns the jet pT threshold.
func (c *AnalysisConfig) GetJetPtMin() float64 { return getFloat(c.JetPtMin, 30.) }

// GetJetEtaMax returns the jet |eta| threshold.
func (c *AnalysisConfig) GetJetEtaMax() float64 { return getFloat(c.JetEtaMax, 2.4) }

// GetJetMinTracks returns the minimum number of tracks per jet.
func (c *AnalysisConfig) GetJetMinTracks() int { return getInt(c.JetMinTracks, 2) }

// GetJetLeptonDR returns the jet-lepton separation for cross cleaning.
func (c *AnalysisConfig) GetJetLeptonDR() float64 { return getFloat(c.JetLeptonDR, 0.4) }

// GetCSVWorkingPoint returns the b-tag discriminant threshold.
func (c *AnalysisConfig) GetCSVWorkingPoint() float64 { return getFloat(c.CSVWorkingPoint, 0.8838) }

// GetMuonTriggers returns candidate muon trigger fields in priority order.
func (c *AnalysisConfig) GetMuonTriggers(pp bool) []string {
	if pp {
		return getStrings(c.PPMuonTriggers, []string{"HLT_HIL3Mu20_v1", "HLT_HIL3Mu15ForPPRef_v1", "HLT_HIL2Mu15ForPPRef_v1"})
	}
	return getStrings(c.MuonTriggers, []string{"HLT_HIL3Mu12_v1"})
}

// GetElectronTriggers returns candidate electron trigger fields in priority order.
func (c *AnalysisConfig) GetElectronTriggers(pp bool) []string {
	if pp {
		return getStrings(c.PPElectronTrigger, []string{"HLT_HIEle20_WPLoose_Gsf_v1", "HLT_HISinglePhoton20_Eta3p1ForPPRef_v1", "HLT_HISinglePhoton40_Eta3p1ForPPRef_v1"})
	}
	return getStrings(c.ElectronTriggers, []string{"HLT_HIEle20Gsf_v1"})
}

// GetVzMax returns the vertex-z cut for the 2018 (true) or 2015 (false) filter set.
func (c *AnalysisConfig) GetVzMax(is2018 bool) float64 {
	if is2018 {
		return getFloat(c.VzMax2018, 20.)
	}
	return getFloat(c.VzMax2015, 15.)
}

// GetPrimaryModel returns the path of the six-feature model, or "".
func (c *AnalysisConfig) GetPrimaryModel() string {
	if c.PrimaryModel == nil {
		return ""
	}
	return *c.PrimaryModel
}

// GetSecondaryModel returns the path of the two-feature model, or "".
func (c *AnalysisConfig) GetSecondaryModel() string {
	if c.SecondaryModel == nil {
		return ""
	}
	return *c.SecondaryModel
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getStrings(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
