package grammar

// Level is a CEFR proficiency tier.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels lists all CEFR tiers in ascending order.
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Category groups grammar points by phenomenon family.
type Category string

const (
	CategoryCollocation   Category = "collocation"
	CategoryClause        Category = "clause"
	CategoryAgreement     Category = "agreement"
	CategoryWordOrder     Category = "word_order"
	CategorySeparableVerb Category = "separable_verb"
	CategoryVoice         Category = "voice"
	CategoryCausative     Category = "causative"
)

// Position is a character range into the sentence text. A result may carry
// several non-contiguous positions (e.g. a separated verb prefix).
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// DetectionResult is one detected grammar point occurrence. It is produced
// by a detector and consumed read-only by the engine; never mutated after
// creation.
type DetectionResult struct {
	GrammarPoint string                 `json:"grammarPoint"`
	Category     Category               `json:"category"`
	Level        Level                  `json:"level"`
	Positions    []Position             `json:"positions"`
	Confidence   float64                `json:"confidence"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// Summary tallies detection counts for one sentence.
type Summary struct {
	TotalPoints int              `json:"totalPoints"`
	Levels      map[Level]int    `json:"levels"`
	Categories  map[Category]int `json:"categories"`
}

// Report is the aggregated output for one sentence: the flat result list
// plus groupings by CEFR level and category. JSON-serializable as-is for
// the API layer.
type Report struct {
	GrammarPoints []DetectionResult            `json:"grammarPoints"`
	ByLevel       map[Level][]DetectionResult  `json:"byLevel"`
	ByCategory    map[Category][]DetectionResult `json:"byCategory"`
	Summary       Summary                      `json:"summary"`
}

// tokenPositions maps tokens onto individual character ranges, merging
// adjacent tokens into a single range when they touch.
func tokenPositions(toks []Token) []Position {
	var out []Position
	for _, t := range toks {
		if n := len(out); n > 0 && out[n-1].End == t.CharStart {
			out[n-1].End = t.CharEnd
			continue
		}
		out = append(out, Position{Start: t.CharStart, End: t.CharEnd})
	}
	return out
}
