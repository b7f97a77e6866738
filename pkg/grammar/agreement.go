package grammar

// AgreementDetector checks case, number and gender agreement inside noun
// phrases: a noun plus its article and attributive adjectives.
type AgreementDetector struct{}

// NewAgreementDetector returns the agreement detector.
func NewAgreementDetector() *AgreementDetector { return &AgreementDetector{} }

// ID implements Detector.
func (d *AgreementDetector) ID() string { return "agreement" }

// agreementFeatures are the morphological keys compared across the phrase.
var agreementFeatures = []string{"Case", "Number", "Gender"}

// Detect implements Detector.
func (d *AgreementDetector) Detect(s *Sentence) []DetectionResult {
	var out []DetectionResult
	for i := range s.Tokens {
		noun := s.Tokens[i]
		if !IsNoun(noun) {
			continue
		}

		var modifiers []Token
		for _, c := range Children(s.Tokens, i) {
			if c.Tag == "ART" || c.Tag == "ADJA" || c.POS == "DET" || (c.POS == "ADJ" && c.Dep == "nk") {
				modifiers = append(modifiers, c)
			}
		}
		if len(modifiers) == 0 {
			continue
		}

		agreed, compared := d.compare(noun, modifiers)
		if compared == 0 || agreed < compared {
			// Feature clashes are parser noise more often than learner
			// errors; only consistent phrases are worth highlighting.
			continue
		}

		matched := append(modifiers, noun)
		sortByIndex(matched)
		conf := 0.80
		if compared >= 3 {
			conf = 0.90
		}

		details := map[string]interface{}{
			"noun": noun.Text,
		}
		for _, f := range agreementFeatures {
			if v := noun.MorphValue(f); v != "" {
				details[f] = v
			}
		}

		out = append(out, DetectionResult{
			GrammarPoint: "case-agreement",
			Category:     CategoryAgreement,
			Level:        LevelA2,
			Positions:    tokenPositions(matched),
			Confidence:   conf,
			Details:      details,
		})
	}
	return out
}

// compare counts how many features could be compared across the phrase and
// how many of those agree on every token carrying the feature.
func (d *AgreementDetector) compare(noun Token, modifiers []Token) (agreed, compared int) {
	for _, f := range agreementFeatures {
		want := noun.MorphValue(f)
		if want == "" {
			continue
		}
		seen := false
		ok := true
		for _, m := range modifiers {
			got := m.MorphValue(f)
			if got == "" {
				continue
			}
			seen = true
			if got != want {
				ok = false
			}
		}
		if !seen {
			continue
		}
		compared++
		if ok {
			agreed++
		}
	}
	return agreed, compared
}
