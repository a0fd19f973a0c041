package config

import "strings"

// Conditions describes the sample being processed: data or simulation,
// collision system and the global tag that fixes the calibration era.
type Conditions struct {
	IsData    bool
	PP        bool
	GlobalTag string
}

// Is2018 reports whether the 2018 PbPb reconstruction (103X) is in use.
func (c Conditions) Is2018() bool { return strings.Contains(c.GlobalTag, "103X") }

// Is2015 reports whether the 2015 reconstruction (75X) is in use.
func (c Conditions) Is2015() bool { return strings.Contains(c.GlobalTag, "75X") }

// Is2015MC reports the 2015 simulation tag, which lacks the cone-0.3
// electron isolation variants and uses different pp triggers.
func (c Conditions) Is2015MC() bool { return strings.Contains(c.GlobalTag, "75X_mcRun2") }

// EcalFixed reports whether the ECAL ADC-to-GeV calibration was corrected
// upstream, making the endcap scale shift unnecessary.
func (c Conditions) EcalFixed() bool { return strings.Contains(c.GlobalTag, "fixEcalADCToGeV") }

// CorrectIsolation reports whether the ρ-corrected isolation is defined:
// collision data outside the 2015 era.
func (c Conditions) CorrectIsolation() bool { return c.IsData && !c.Is2015() }
