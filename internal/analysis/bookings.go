package analysis

import (
	"fmt"
	"math"

	"github.com/DickyChant/topskim/internal/hist"
	"github.com/DickyChant/topskim/internal/truth"
)

// Accumulator names filled by the processor.
const (
	FidCounter = "fidcounter"
	RateVsRun  = "ratevsrun"
)

var isoComponents = [3]string{"ch", "pho", "nh"}

// Bookings returns the booking table of a run. The rate monitor is only
// booked when a lumi lookup is available.
func Bookings(lumi LumiLookup) []hist.Booking {
	b := []hist.Booking{
		hist.CounterBooking(FidCounter, "Fiducial counter", truth.NumStages),
	}
	if lumi != nil && lumi.NumRuns() > 0 {
		n := lumi.NumRuns()
		b = append(b, hist.H1(RateVsRun, "Rate per run", n, 0, float64(n)))
	}

	for i := 1; i <= 2; i++ {
		pf := fmt.Sprintf("l%d", i)
		b = append(b,
			hist.H1(pf+"pt", "Lepton transverse momentum [GeV]", 20, 20, 200),
			hist.H1(pf+"eta", "Lepton pseudo-rapidity", 20, 0, 2.5),
		)
		for _, comp := range isoComponents {
			b = append(b,
				hist.H1(pf+comp+"iso", "PF "+comp+" isolation", 50, 0, 250),
				hist.H1(pf+comp+"reliso", "Relative PF "+comp+" isolation", 50, 0, 2),
				hist.H2(pf+comp+"isovscen", "PF "+comp+" isolation [GeV] vs centrality bin", 10, 0, 100, 50, 0, 100),
				hist.H2(pf+comp+"isovsrho", "PF "+comp+" isolation [GeV] vs rho", 10, 0, 100, 20, 0, 100),
			)
		}
	}

	b = append(b,
		hist.H1("esihih", "sigma(ietaieta)", 50, 0, 0.06),
		hist.H1("edetavtx", "Delta eta(vtx)", 50, 0, 0.015),
		hist.H1("edphivtx", "Delta phi(vtx) [rad]", 50, 0, 0.015),
		hist.H1("ehoe", "h/e", 50, 0, 0.25),
		hist.H1("eempinv", "|1/E-1/p| [1/GeV]", 50, 0, 0.05),
		hist.H1("ed0", "d0 [cm]", 50, 0, 0.05),
		hist.H1("edz", "dz [cm]", 50, 0, 0.05),

		hist.H1("mmusta", "Muon stations", 15, 0, 15),
		hist.H1("mtrklay", "Tracker layers", 25, 0, 25),
		hist.H1("mchi2ndf", "chi2/ndf", 50, 0, 15),
		hist.H1("mmuhits", "Muon hits", 25, 0, 25),
		hist.H1("mpxhits", "Pixel hits", 15, 0, 15),
		hist.H1("md0", "d0 [cm]", 50, 0, 0.5),
		hist.H1("mdz", "dz [cm]", 50, 0, 1),

		hist.H1("mll", "Dilepton invariant mass [GeV]", 40, 0, 200),
		hist.H1("ptll", "Dilepton transverse momentum [GeV]", 25, 0, 200),
		hist.H1("ptsum", "pT(l)+pT(l') [GeV]", 25, 0, 200),
		hist.H1("acopl", "1-Delta phi(l,l')/pi", 20, 0, 1),
		hist.H1("detall", "Delta eta(l,l')", 20, 0, 4),
		hist.H1("drll", "Delta R(l,l')", 20, 0, 2*math.Pi),

		hist.H1("pfrapavg", "Average rapidity", 25, 0, 2.5),
		hist.H1("pfraprms", "sigma(rapidity)", 50, 0, 2.5),
		hist.H1("pfrapmaxspan", "Maximum rapidity span", 25, 0, 5),
		hist.H1("pfht", "HT [GeV]", 25, 0, 500),
		hist.H1("pfmht", "Missing HT [GeV]", 25, 0, 200),
		hist.H1("npfjets", "Jet multiplicity", 8, 0, 8),
		hist.H1("npfbjets", "b-jet multiplicity", 5, 0, 5),
	)

	for _, ppf := range []string{"1", "2"} {
		pf := "pf" + ppf + "j"
		b = append(b,
			hist.H1(pf+"balance", "R = pT(j)/pT(ll)", 50, 0, 3),
			hist.H1(pf+"pt", "Jet transverse momentum [GeV]", 30, 0, 300),
			hist.H1(pf+"eta", "Jet pseudo-rapidity", 20, 0, 2.5),
			hist.H2(pf+"etavsphi", "Jet azimuthal angle [rad] vs pseudo-rapidity", 100, -2.5, 2.5, 100, -math.Pi, math.Pi),
			hist.H1(pf+"svtxm", "Secondary vertex mass", 25, 0, 6),
			hist.H1(pf+"svtxntk", "Secondary vertex track multiplicity", 5, 0, 5),
			hist.H1(pf+"csv", "CSVv2", 25, 0, 1),
		)
	}
	return b
}
