package config

import "testing"

func TestConditions(t *testing.T) {
	tests := []struct {
		name      string
		c         Conditions
		is2018    bool
		is2015    bool
		is2015MC  bool
		ecalFixed bool
		corrIso   bool
	}{
		{"prompt 2018 data", Conditions{IsData: true, GlobalTag: "103X_dataRun2_Prompt_v2"}, true, false, false, false, true},
		{"rereco 2018 data", Conditions{IsData: true, GlobalTag: "103X_dataRun2_Prompt_fixEcalADCToGeV_v1"}, true, false, false, true, true},
		{"2015 data", Conditions{IsData: true, GlobalTag: "75X_dataRun2_v13"}, false, true, false, false, false},
		{"2015 mc", Conditions{GlobalTag: "75X_mcRun2_asymptotic_ppAt5TeV_v3"}, false, true, true, false, false},
		{"2018 mc", Conditions{GlobalTag: "103X_upgrade2018_realistic_HI_v11"}, true, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Is2018(); got != tt.is2018 {
				t.Errorf("Is2018() = %v, want %v", got, tt.is2018)
			}
			if got := tt.c.Is2015(); got != tt.is2015 {
				t.Errorf("Is2015() = %v, want %v", got, tt.is2015)
			}
			if got := tt.c.Is2015MC(); got != tt.is2015MC {
				t.Errorf("Is2015MC() = %v, want %v", got, tt.is2015MC)
			}
			if got := tt.c.EcalFixed(); got != tt.ecalFixed {
				t.Errorf("EcalFixed() = %v, want %v", got, tt.ecalFixed)
			}
			if got := tt.c.CorrectIsolation(); got != tt.corrIso {
				t.Errorf("CorrectIsolation() = %v, want %v", got, tt.corrIso)
			}
		})
	}
}
