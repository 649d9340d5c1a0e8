package config

// MixedStreamKey is the catch-all stream that unallocated forecast items are
// moved into when the "allocate to mixed" recommendation is applied.
const MixedStreamKey = "Mixed C&D"

// DefaultStreamKeys is the stream set offered to a project that has not made
// an explicit selection yet. Injected at the stream-selection boundary,
// never assumed inside the planning code.
var DefaultStreamKeys = []string{
	MixedStreamKey,
	"Timber (untreated)",
	"Concrete / Masonry",
	"Metals",
	"Plasterboard",
}

// Handling modes for a waste stream plan entry.
const (
	HandlingMixed     = "mixed"
	HandlingSeparated = "separated"
)

// Destination modes for a waste stream plan entry.
const (
	DestinationFacility = "facility"
	DestinationCustom   = "custom"
)

// Intended-outcome values recognized by the strategy builder. A plan entry
// whose intended_outcomes contains none of these is treated as having no
// outcome decided.
var RecognizedOutcomes = []string{
	"reuse",
	"recycle",
	"recovery",
	"cleanfill",
	"landfill",
}

// IsRecognizedOutcome reports whether v is one of the outcome enumeration values.
func IsRecognizedOutcome(v string) bool {
	for _, o := range RecognizedOutcomes {
		if o == v {
			return true
		}
	}
	return false
}
