package domain

// Standard averaging formats.
var (
	// AverageOf5 drops the best and worst of five attempts.
	AverageOf5 = Format{Attempts: 5, Trim: 1}
	// MeanOf3 averages three attempts without trimming.
	MeanOf3 = Format{Attempts: 3}
	// MovesMeanOf3 is MeanOf3 kept in hundredths of a move.
	MovesMeanOf3 = Format{Attempts: 3, Scale: 100}
	// SingleOnly never produces an average.
	SingleOnly = Format{SingleOnly: true}
)

// defaultFormats follows the current regulations per event. Events missing
// here fall back to AverageOf5.
var defaultFormats = map[string]Format{
	"333":    AverageOf5,
	"222":    AverageOf5,
	"444":    AverageOf5,
	"555":    AverageOf5,
	"333oh":  AverageOf5,
	"333ft":  AverageOf5,
	"clock":  AverageOf5,
	"minx":   AverageOf5,
	"pyram":  AverageOf5,
	"skewb":  AverageOf5,
	"sq1":    AverageOf5,
	"magic":  AverageOf5,
	"mmagic": AverageOf5,
	"666":    MeanOf3,
	"777":    MeanOf3,
	"333bf":  MeanOf3,
	"444bf":  MeanOf3,
	"555bf":  MeanOf3,
	"333fm":  MovesMeanOf3,
	"333mbf": SingleOnly,
	"333mbo": SingleOnly,
}

// DefaultFormat returns the built-in format for an event id.
func DefaultFormat(eventID string) Format {
	if f, ok := defaultFormats[eventID]; ok {
		return f
	}
	return AverageOf5
}

// DefaultFormats returns a copy of the built-in format table.
func DefaultFormats() map[string]Format {
	out := make(map[string]Format, len(defaultFormats))
	for id, f := range defaultFormats {
		out[id] = f
	}
	return out
}
