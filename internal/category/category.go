// Package category enumerates the dimensions events are classified along
// and expands an event's position in them into its overlapping tag set.
package category

// Channel is the dilepton flavor channel.
type Channel int

const (
	ChannelNone Channel = iota
	EE
	MM
	EM
)

func (c Channel) String() string {
	switch c {
	case EE:
		return "ee"
	case MM:
		return "mm"
	case EM:
		return "em"
	}
	return ""
}

// ChannelOf maps the product of two absolute PDG ids to a channel.
func ChannelOf(code int) Channel {
	switch code {
	case 11 * 11:
		return EE
	case 13 * 13:
		return MM
	case 11 * 13:
		return EM
	}
	return ChannelNone
}

// Era splits data taking at the run where the endcap energy scale changed.
// EraNone drops the dimension (pp running).
type Era int

const (
	EraNone Era = iota
	Before
	After
)

func (e Era) String() string {
	switch e {
	case Before:
		return "before"
	case After:
		return "after"
	}
	return ""
}

// EraOf places a run relative to the boundary run.
func EraOf(run, boundary int, pp bool) Era {
	if pp {
		return EraNone
	}
	if run >= boundary {
		return After
	}
	return Before
}

// BTag is the b-tagged jet multiplicity class.
type BTag int

const (
	ZeroB BTag = iota
	GeqOneB
)

func (b BTag) String() string {
	if b == GeqOneB {
		return "geq1pfb"
	}
	return "0pfb"
}

// BTagOf classifies a b-tagged jet count.
func BTagOf(n int) BTag {
	if n > 0 {
		return GeqOneB
	}
	return ZeroB
}

// Key locates an event in the category space.
type Key struct {
	Channel Channel
	Era     Era
	BTag    BTag
}

// Tags returns the tag set of the key: the channel alone, then each
// dimension in order doubles the set with its suffix appended. For
// {MM, After, ZeroB} the result is mm, mm0pfb, mmafter, mmafter0pfb.
func (k Key) Tags() []string {
	return Expand(k.Channel.String(), k.Era.String(), k.BTag.String())
}

// Expand builds the cartesian tag set of base with optional suffixes.
// Empty suffixes are skipped. The order is deterministic: every existing
// tag is followed by its suffixed variant.
func Expand(base string, suffixes ...string) []string {
	tags := []string{base}
	for _, sfx := range suffixes {
		if sfx == "" {
			continue
		}
		next := make([]string, 0, 2*len(tags))
		for _, t := range tags {
			next = append(next, t, t+sfx)
		}
		tags = next
	}
	return tags
}

// All enumerates every tag the dimensions can produce, channel-major. It
// lets writers and reports pre-declare the category space.
func All(pp bool) []string {
	eras := []Era{Before, After}
	if pp {
		eras = []Era{EraNone}
	}
	seen := make(map[string]bool)
	var out []string
	for _, ch := range []Channel{EE, MM, EM} {
		for _, era := range eras {
			for _, b := range []BTag{ZeroB, GeqOneB} {
				for _, t := range (Key{Channel: ch, Era: era, BTag: b}).Tags() {
					if !seen[t] {
						seen[t] = true
						out = append(out, t)
					}
				}
			}
		}
	}
	return out
}

// Fixed categories outside the channel product.
const (
	Gen          = "gen"     // truth-level fiducial counter
	RateElectron = "e"       // rate-vs-run, electron trigger
	RateMuon     = "m"       // rate-vs-run, muon trigger
	ZMuMuControl = "zmmctrl" // muon ID monitors
	ZEEControl   = "zeectrl" // electron ID monitors
)

// Control returns the Z control-region tag, prefixed with "ss" for
// same-sign pairs.
func Control(base string, sameSign bool) string {
	if sameSign {
		return "ss" + base
	}
	return base
}

// Region returns the electron detector-region suffix for |η|.
func Region(absEta, boundary float64) string {
	if absEta >= boundary {
		return "EE"
	}
	return "EB"
}
