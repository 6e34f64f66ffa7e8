package domain

// Gender is a competitor's registered gender code.
type Gender string

// Recognised gender codes. Anything else loads as GenderUnknown.
const (
	GenderMale    Gender = "m"
	GenderFemale  Gender = "f"
	GenderUnknown Gender = ""
)

// ParseGender maps an export code to a Gender.
func ParseGender(s string) Gender {
	switch Gender(s) {
	case GenderMale, GenderFemale:
		return Gender(s)
	default:
		return GenderUnknown
	}
}

// Competitor is an individual with a unique registration id, e.g.
// "2007HABE01" (registration year followed by name fragments).
type Competitor struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Gender  Gender `json:"gender"`
	Country string `json:"country"`
}

// Round identifies one round of one competition. Attempts sharing a Round
// (and event) form one attempt set.
type Round struct {
	CompetitionID string `json:"competition_id" validate:"required"`
	RoundID       string `json:"round_id" validate:"required"`
}

// Attempt is a single raw result. Position is the 1-based slot within the
// round's attempt set.
type Attempt struct {
	CompetitorID string   `json:"competitor_id" validate:"required"`
	EventID      string   `json:"event_id" validate:"required"`
	Round        Round    `json:"round"`
	Position     int      `json:"position" validate:"min=1"`
	Value        Duration `json:"value"`
}

// RecordKind distinguishes single and average records.
type RecordKind string

// Record kinds.
const (
	KindSingle  RecordKind = "single"
	KindAverage RecordKind = "average"
)

// ParseRecordKind parses "single" or "average".
func ParseRecordKind(s string) (RecordKind, bool) {
	switch RecordKind(s) {
	case KindSingle, KindAverage:
		return RecordKind(s), true
	default:
		return "", false
	}
}

// Record is a derived best performance of one competitor in one event.
// Round and Attempts carry enough provenance to recompute Value.
type Record struct {
	CompetitorID string     `json:"competitor_id"`
	EventID      string     `json:"event_id"`
	Kind         RecordKind `json:"kind"`
	Value        Duration   `json:"time"`
	Round        Round      `json:"round"`
	Attempts     []Attempt  `json:"-"`
}

// RecordPair holds a competitor's single and average for one event.
// A nil field means no qualifying record exists.
type RecordPair struct {
	Single  *Record
	Average *Record
}

// Empty reports whether neither record exists.
func (p RecordPair) Empty() bool { return p.Single == nil && p.Average == nil }

// Get returns the record of the given kind.
func (p RecordPair) Get(kind RecordKind) (Record, bool) {
	r := p.Single
	if kind == KindAverage {
		r = p.Average
	}
	if r == nil {
		return Record{}, false
	}
	return *r, true
}

// EventRecords is one entry of a competitor's full record list.
type EventRecords struct {
	EventID string
	RecordPair
}

// CompetitorRecords is one entry of an event comparison.
type CompetitorRecords struct {
	CompetitorID string
	RecordPair
}

// Ranking is one entry of an event leaderboard.
type Ranking struct {
	CompetitorID string
	Value        Duration
}
