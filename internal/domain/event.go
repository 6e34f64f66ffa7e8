package domain

import (
	"fmt"
	"strconv"
)

// ValueKind describes the unit an event's results are recorded in.
type ValueKind string

// Supported value kinds, matching the "format" column of the events export.
const (
	// ValueTime is a centisecond duration.
	ValueTime ValueKind = "time"
	// ValueNumber is a move count.
	ValueNumber ValueKind = "number"
	// ValueMulti is the packed multi-blind points/time encoding.
	ValueMulti ValueKind = "multi"
)

// Format defines how an event's average is derived from a round's
// attempt set. The zero value describes an event with no average.
type Format struct {
	// Attempts is the minimum attempt-set size a round needs to produce an
	// average.
	Attempts int `yaml:"attempts" json:"attempts" validate:"min=0,max=5"`

	// Trim is the number of attempts dropped from each end of the sorted set.
	Trim int `yaml:"trim" json:"trim" validate:"min=0,max=2"`

	// Scale multiplies the sum before division so averages of integer units
	// keep precision (100 for fewest-moves). Zero means 1.
	Scale int64 `yaml:"scale" json:"scale" validate:"min=0,max=1000"`

	// SingleOnly marks events that never produce an average.
	SingleOnly bool `yaml:"single_only" json:"single_only"`
}

// HasAverage reports whether the format can produce an average at all.
func (f Format) HasAverage() bool {
	return !f.SingleOnly && f.Attempts > 0 && f.Attempts > 2*f.Trim
}

// Multiplier returns the effective averaging scale.
func (f Format) Multiplier() int64 {
	if f.Scale <= 0 {
		return 1
	}
	return f.Scale
}

// Event is a competition discipline from the fixed catalog.
type Event struct {
	// ID is the short event code, e.g. "333" or "333mbf".
	ID string `json:"id" validate:"required"`

	// Name is the display name, e.g. "Rubik's Cube".
	Name string `json:"name" validate:"required"`

	// Rank is the catalog display position.
	Rank int `json:"rank"`

	// Kind is the unit results are recorded in.
	Kind ValueKind `json:"kind"`

	// Format controls average computation.
	Format Format `json:"-"`
}

// FormatValue renders a record value in the event's unit.
func (e Event) FormatValue(kind RecordKind, d Duration) string {
	if !d.Valid() {
		return d.String()
	}
	switch e.Kind {
	case ValueNumber:
		if kind == KindAverage && e.Format.Multiplier() == 100 {
			return fmt.Sprintf("%d.%02d", d/100, d%100)
		}
		return strconv.FormatInt(int64(d), 10)
	case ValueMulti:
		return DecodeMulti(d).String()
	default:
		return d.String()
	}
}

// MultiResult is a decoded multi-blind value.
type MultiResult struct {
	Solved    int
	Attempted int
	// Seconds is the total time; -1 when unknown.
	Seconds int
}

// String renders the result as "solved/attempted m:ss".
func (m MultiResult) String() string {
	if m.Seconds < 0 {
		return fmt.Sprintf("%d/%d ?:??", m.Solved, m.Attempted)
	}
	return fmt.Sprintf("%d/%d %d:%02d", m.Solved, m.Attempted, m.Seconds/60, m.Seconds%60)
}

// DecodeMulti unpacks a multi-blind value. Current values have the form
// 0DDTTTTTMM where DD is 99 minus (solved - missed), TTTTT is seconds and
// MM is missed; legacy ten-digit values have the form 1SSAATTTTT.
func DecodeMulti(d Duration) MultiResult {
	v := int64(d)
	if v >= 1_000_000_000 {
		solved := int(99 - (v/10_000_000)%100)
		attempted := int((v / 100_000) % 100)
		return MultiResult{Solved: solved, Attempted: attempted, Seconds: normalizeSeconds(v % 100_000)}
	}
	missed := int(v % 100)
	difference := 99 - int(v/10_000_000)
	solved := difference + missed
	return MultiResult{
		Solved:    solved,
		Attempted: solved + missed,
		Seconds:   normalizeSeconds((v / 100) % 100_000),
	}
}

func normalizeSeconds(s int64) int {
	if s == 99999 {
		return -1
	}
	return int(s)
}
