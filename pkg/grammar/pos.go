package grammar

import (
	"sort"
	"strings"
)

// POS and tag classification helpers shared by all detectors. The tagset is
// the TIGER scheme emitted by the German spaCy models, with universal POS
// labels as a secondary signal.

// IsVerb reports whether the token is any verb form, including auxiliaries
// and modals.
func IsVerb(t Token) bool {
	switch t.POS {
	case "VERB", "AUX":
		return true
	}
	return strings.HasPrefix(t.Tag, "VV") || strings.HasPrefix(t.Tag, "VA") || strings.HasPrefix(t.Tag, "VM")
}

// IsFiniteVerb reports whether the token is a finite verb form.
func IsFiniteVerb(t Token) bool {
	switch t.Tag {
	case "VVFIN", "VAFIN", "VMFIN":
		return true
	}
	return IsVerb(t) && t.MorphIs("VerbForm", "Fin")
}

// IsAuxiliary reports whether the token is an auxiliary or modal verb.
func IsAuxiliary(t Token) bool {
	if t.POS == "AUX" || t.Dep == "aux" {
		return true
	}
	return strings.HasPrefix(t.Tag, "VA") || strings.HasPrefix(t.Tag, "VM")
}

// IsParticiple reports whether the token is a past participle (Partizip II).
func IsParticiple(t Token) bool {
	switch t.Tag {
	case "VVPP", "VAPP", "VMPP":
		return true
	}
	return IsVerb(t) && t.MorphIs("VerbForm", "Part")
}

// IsInfinitive reports whether the token is an infinitive verb form.
func IsInfinitive(t Token) bool {
	switch t.Tag {
	case "VVINF", "VAINF", "VMINF", "VVIZU":
		return true
	}
	return IsVerb(t) && t.MorphIs("VerbForm", "Inf")
}

// IsPreposition reports whether the token is adposition-like, including
// preposition+article contractions (APPRART).
func IsPreposition(t Token) bool {
	if t.POS == "ADP" {
		return true
	}
	switch t.Tag {
	case "APPR", "APPRART", "APPO", "APZR":
		return true
	}
	return false
}

// IsNoun reports whether the token is a common or proper noun.
func IsNoun(t Token) bool {
	switch t.POS {
	case "NOUN", "PROPN":
		return true
	}
	return t.Tag == "NN" || t.Tag == "NE"
}

// IsPronoun reports whether the token is any pronoun form.
func IsPronoun(t Token) bool {
	if t.POS == "PRON" {
		return true
	}
	return strings.HasPrefix(t.Tag, "PP") || strings.HasPrefix(t.Tag, "PR") || t.Tag == "PDS" || t.Tag == "PIS"
}

// reflexiveForms is the closed set of surface forms that can realize a
// German reflexive pronoun.
var reflexiveForms = map[string]bool{
	"mich": true, "dich": true, "sich": true, "uns": true, "euch": true,
	"mir": true, "dir": true, "ihm": true, "ihr": true, "ihnen": true,
}

// IsReflexivePronoun reports whether the token can serve as a reflexive
// pronoun: pronoun POS plus either the reflexive morphological marker, the
// lemma "sich", or a surface form in the closed reflexive set.
func IsReflexivePronoun(t Token) bool {
	if !IsPronoun(t) && t.Tag != "PRF" {
		return false
	}
	if t.Tag == "PRF" || t.MorphIs("Reflex", "Yes") {
		return true
	}
	if strings.EqualFold(t.Lemma, "sich") {
		return true
	}
	return reflexiveForms[strings.ToLower(t.Text)]
}

// prepContractions maps contracted preposition+article surface forms to
// their base preposition lemma.
var prepContractions = map[string]string{
	"am": "an", "ans": "an", "aufs": "auf", "beim": "bei", "durchs": "durch",
	"fürs": "für", "hinterm": "hinter", "im": "in", "ins": "in", "übers": "über",
	"ums": "um", "unterm": "unter", "unters": "unter", "vom": "von", "vors": "vor",
	"zum": "zu", "zur": "zu",
}

// PrepositionLemma returns the base preposition lemma for a token,
// expanding contractions like "zur" to "zu".
func PrepositionLemma(t Token) string {
	lower := strings.ToLower(t.Text)
	if base, ok := prepContractions[lower]; ok {
		return base
	}
	if t.Lemma != "" {
		if base, ok := prepContractions[strings.ToLower(t.Lemma)]; ok {
			return base
		}
		return strings.ToLower(t.Lemma)
	}
	return lower
}

// IsSeparablePrefix reports whether the token is a detached verb particle.
func IsSeparablePrefix(t Token) bool {
	return t.Tag == "PTKVZ" || t.Dep == "svp"
}

// IsClausePunct reports whether the token ends or segments a clause.
func IsClausePunct(t Token) bool {
	switch t.Text {
	case ",", ";", ":", ".", "!", "?", "–", "—":
		return true
	}
	return false
}

// IsCoordConj reports whether the token is a coordinating conjunction.
func IsCoordConj(t Token) bool {
	return t.POS == "CCONJ" || t.Tag == "KON"
}

// IsSubordConj reports whether the token is a subordinating conjunction.
func IsSubordConj(t Token) bool {
	return t.POS == "SCONJ" || t.Tag == "KOUS" || t.Tag == "KOUI"
}

// IsRelativePronoun reports whether the token is a relative pronoun by tag
// or by membership in the closed relative lemma set with relative morphology.
func IsRelativePronoun(t Token) bool {
	switch t.Tag {
	case "PRELS", "PRELAT":
		return true
	}
	if t.MorphIs("PronType", "Rel") {
		return true
	}
	return false
}

// sortByIndex orders tokens by sentence position in place.
func sortByIndex(toks []Token) {
	sort.Slice(toks, func(i, j int) bool { return toks[i].Index < toks[j].Index })
}
