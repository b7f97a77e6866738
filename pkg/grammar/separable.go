package grammar

import "strings"

// SeparableVerbDetector finds detached verb prefixes and links them back to
// their stem verb. It owns emission of separable-verb results; the
// collocation detector computes separable patterns only for tracing.
type SeparableVerbDetector struct{}

// NewSeparableVerbDetector returns the separable-verb detector.
func NewSeparableVerbDetector() *SeparableVerbDetector { return &SeparableVerbDetector{} }

// ID implements Detector.
func (d *SeparableVerbDetector) ID() string { return "separable-verb" }

// Detect implements Detector.
func (d *SeparableVerbDetector) Detect(s *Sentence) []DetectionResult {
	var out []DetectionResult
	for i := range s.Tokens {
		prefix := s.Tokens[i]
		if !IsSeparablePrefix(prefix) {
			continue
		}

		verbIdx, conf := -1, 0.0
		if h, ok := HeadIndex(s.Tokens, i); ok && IsVerb(s.Tokens[h]) {
			verbIdx, conf = h, 0.92
		} else {
			// Malformed parse: fall back to the nearest finite verb in the
			// same clause, preferring the left context.
			for j := i - 1; j >= 0; j-- {
				if IsFiniteVerb(s.Tokens[j]) && InSameClause(s.Tokens, j, i) {
					verbIdx, conf = j, 0.70
					break
				}
			}
		}
		if verbIdx < 0 {
			continue
		}

		verb := s.Tokens[verbIdx]
		lemma := strings.ToLower(prefix.Text) + strings.ToLower(verb.Lemma)
		matched := []Token{verb, prefix}
		sortByIndex(matched)

		out = append(out, DetectionResult{
			GrammarPoint: "separable-verb",
			Category:     CategorySeparableVerb,
			Level:        LevelA2,
			Positions:    tokenPositions(matched),
			Confidence:   conf,
			Details: map[string]interface{}{
				"verb":     verb.Text,
				"particle": prefix.Text,
				"lemma":    lemma,
			},
		})
	}
	return out
}
