package grammar

// Detector is the capability every grammar-point family implements.
// Detect is a pure function over an immutable sentence: it must not retain
// or mutate the sentence, and it returns nil when nothing is found.
type Detector interface {
	// ID is a stable string identifier used by the engine's registry.
	ID() string
	Detect(s *Sentence) []DetectionResult
}

// TraceEvent describes one step of a matching attempt. Emitted only when a
// trace sink is installed.
type TraceEvent struct {
	Detector string
	Label    string
	Tier     string
	Verb     string
	Note     string
}

// TraceSink receives matcher trace events. Implementations must be cheap;
// they are called on the hot path when installed.
type TraceSink func(TraceEvent)
