package domain

import (
	"fmt"
	"strconv"
)

// Duration is an attempt result in the event's native unit: centiseconds
// for timed events, moves for fewest-moves, and the packed points/time
// encoding for multi-blind. Smaller is always better for valid values.
type Duration int64

// Sentinel values. They are never compared as magnitudes against valid
// durations; use Valid and Less instead of the < operator.
const (
	// DNF marks an unsolved or otherwise invalid attempt.
	DNF Duration = -1
	// DNS marks an attempt that was not started.
	DNS Duration = -2
)

// Valid reports whether d is a real result.
func (d Duration) Valid() bool { return d >= 0 }

// Sentinel reports whether d is one of the recognised non-results.
func (d Duration) Sentinel() bool { return d == DNF || d == DNS }

// Known reports whether d is either valid or a recognised sentinel.
func (d Duration) Known() bool { return d.Valid() || d.Sentinel() }

// Less orders durations for ranking: every valid value beats every
// sentinel, valid values compare numerically, and sentinels tie.
func (d Duration) Less(o Duration) bool {
	switch {
	case d.Valid() && o.Valid():
		return d < o
	case d.Valid():
		return true
	default:
		return false
	}
}

// String renders a centisecond duration as clock time, e.g. "1:02.34".
func (d Duration) String() string {
	switch d {
	case DNF:
		return "DNF"
	case DNS:
		return "DNS"
	}
	if d < 0 {
		return "?" + strconv.FormatInt(int64(d), 10)
	}
	cs := int64(d)
	minutes := cs / 6000
	seconds := (cs % 6000) / 100
	frac := cs % 100
	if minutes > 0 {
		return fmt.Sprintf("%d:%02d.%02d", minutes, seconds, frac)
	}
	return fmt.Sprintf("%d.%02d", seconds, frac)
}
