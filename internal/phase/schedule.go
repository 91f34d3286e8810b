package phase

import (
	"time"

	"github.com/eigerco/lottery/internal/safemath"
)

// DefaultUnit is the length of one duration unit when none is configured.
const DefaultUnit = 24 * time.Hour

// Schedule holds the phase durations of a round, counted in Unit. Durations
// are converted to seconds only at this boundary, so the rest of the
// system never assumes a particular day length.
type Schedule struct {
	Sales  uint64
	Reveal uint64
	End    uint64
	Unit   time.Duration
}

// Boundaries are the absolute start times of each phase after Sale.
type Boundaries struct {
	RevealStart  Timestamp
	EndStart     Timestamp
	ExpiredStart Timestamp
}

func (s Schedule) unitSeconds() uint64 {
	unit := s.Unit
	if unit <= 0 {
		unit = DefaultUnit
	}
	secs := uint64(unit / time.Second)
	if secs == 0 {
		secs = 1
	}
	return secs
}

// seconds converts a count of units to seconds, saturating instead of
// wrapping so an absurd configuration degrades to "never ends".
func (s Schedule) seconds(units uint64) uint64 {
	v, ok := safemath.Mul64(units, s.unitSeconds())
	if !ok {
		return ^uint64(0)
	}
	return v
}

func saturatingAdd(a, b uint64) uint64 {
	v, ok := safemath.Add64(a, b)
	if !ok {
		return ^uint64(0)
	}
	return v
}

// Boundaries returns the start of the Reveal, End and Expired phases for a
// round deployed at deployedAt.
func (s Schedule) Boundaries(deployedAt Timestamp) Boundaries {
	reveal := saturatingAdd(uint64(deployedAt), s.seconds(s.Sales))
	end := saturatingAdd(reveal, s.seconds(s.Reveal))
	expired := saturatingAdd(end, s.seconds(s.End))
	return Boundaries{
		RevealStart:  Timestamp(reveal),
		EndStart:     Timestamp(end),
		ExpiredStart: Timestamp(expired),
	}
}

// PhaseAt derives the phase from the time elapsed since deployment:
//
//	Sale     elapsed < sales
//	Reveal   sales <= elapsed < sales+reveal
//	End      sales+reveal <= elapsed < sales+reveal+end
//	Expired  elapsed >= sales+reveal+end
//
// A clock reading earlier than the deployment counts as zero elapsed time.
func (s Schedule) PhaseAt(deployedAt, now Timestamp) Phase {
	b := s.Boundaries(deployedAt)
	switch {
	case now < b.RevealStart:
		return Sale
	case now < b.EndStart:
		return Reveal
	case now < b.ExpiredStart:
		return End
	default:
		return Expired
	}
}
