package grammar

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CollocationKind discriminates the closed set of collocation variants.
type CollocationKind string

const (
	KindReflexivePrep CollocationKind = "reflexive-prep"
	KindVerbPrep      CollocationKind = "verb-prep"
	KindVerbNoun      CollocationKind = "verb-noun"
	KindSeparable     CollocationKind = "separable"
)

// Role names used in dependency signatures.
const (
	RoleReflexive   = "reflexive"
	RolePreposition = "preposition"
	RoleNoun        = "noun"
	RoleParticle    = "particle"
)

// DepSignature constrains how companion tokens may attach to the verb in
// the dependency tree.
type DepSignature struct {
	// Roles maps a companion role to the dependency labels it may carry as
	// a direct dependent of the verb (or of an intermediate noun for
	// prepositions). A missing or empty entry allows any label.
	Roles map[string][]string `json:"roles,omitempty"`

	// MaxDepth bounds descendant traversal in the loose tier. Zero means
	// the default depth.
	MaxDepth int `json:"maxDepth,omitempty"`

	// MustMatch, when non-empty, restricts which final relation labels a
	// collapsed-path traversal may end on, overriding the permissive
	// default.
	MustMatch []string `json:"mustMatch,omitempty"`

	// ShouldMatch ranks ambiguous traversal paths; a path ending on one of
	// these labels is preferred but not required.
	ShouldMatch []string `json:"shouldMatch,omitempty"`
}

// CollocationDefinition is one canonical collocation pattern. Only the
// fields relevant to its kind are set; Validate enforces this at load time
// so the matcher never has to guard against missing fields.
type CollocationDefinition struct {
	Kind  CollocationKind `json:"kind"`
	Verb  string          `json:"verb"`
	Level Level           `json:"level"`

	// Companion fields, by kind:
	Preposition string `json:"preposition,omitempty"` // reflexive-prep, verb-prep
	Noun        string `json:"noun,omitempty"`        // verb-noun (empty = any noun object)
	Particle    string `json:"particle,omitempty"`    // separable

	Signature DepSignature `json:"signature"`
}

// Label renders the human-readable collocation name, e.g. "sich freuen auf".
func (d CollocationDefinition) Label() string {
	switch d.Kind {
	case KindReflexivePrep:
		return "sich " + d.Verb + " " + d.Preposition
	case KindVerbPrep:
		return d.Verb + " " + d.Preposition
	case KindVerbNoun:
		if d.Noun != "" {
			return d.Noun + " " + d.Verb
		}
		return d.Verb
	case KindSeparable:
		return d.Verb
	}
	return d.Verb
}

// GrammarPointID maps the definition kind onto its catalog entry.
func (d CollocationDefinition) GrammarPointID() string {
	switch d.Kind {
	case KindReflexivePrep:
		return "reflexive-prep-collocation"
	case KindVerbNoun:
		return "verb-noun-collocation"
	case KindSeparable:
		return "separable-verb"
	default:
		return "verb-prep-collocation"
	}
}

// Validate checks kind-specific required fields.
func (d CollocationDefinition) Validate() error {
	if d.Verb == "" {
		return fmt.Errorf("collocation definition with empty verb")
	}
	switch d.Kind {
	case KindReflexivePrep, KindVerbPrep:
		if d.Preposition == "" {
			return fmt.Errorf("%s %s: missing preposition", d.Kind, d.Verb)
		}
	case KindVerbNoun:
		// Noun may be empty: any qualifying noun dependent is accepted.
	case KindSeparable:
		if d.Particle == "" {
			return fmt.Errorf("separable %s: missing particle", d.Verb)
		}
		if !strings.HasPrefix(d.Verb, d.Particle) {
			// The base verb carries the particle as prefix in dictionary form.
			return fmt.Errorf("separable %s: particle %q is not a prefix", d.Verb, d.Particle)
		}
	default:
		return fmt.Errorf("unknown collocation kind %q", d.Kind)
	}
	switch d.Level {
	case "", LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
	default:
		return fmt.Errorf("%s %s: invalid level %q", d.Kind, d.Verb, d.Level)
	}
	return nil
}

// LoadDefinitions reads a JSON array of collocation definitions from path,
// validating each entry at load time rather than at match time.
func LoadDefinitions(path string) ([]CollocationDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var defs []CollocationDefinition
	if err := json.NewDecoder(f).Decode(&defs); err != nil {
		return nil, fmt.Errorf("parse definitions %s: %w", path, err)
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// prepSignature is the default attachment signature for prepositional
// collocations: the preposition attaches to the verb as modifier or
// prepositional object (or to a noun kernel under it), the reflexive
// pronoun as an object or subject-form dependent.
var prepSignature = DepSignature{
	Roles: map[string][]string{
		RolePreposition: {"mo", "op", "mnr", "nk", "prep", "case"},
		RoleReflexive:   {"oa", "da", "sb", "obj", "expl"},
	},
	MaxDepth: 3,
}

// nounSignature covers accusative object attachment of noun companions.
var nounSignature = DepSignature{
	Roles:     map[string][]string{RoleNoun: {"oa", "obj", "nk"}},
	MaxDepth:  3,
	MustMatch: []string{"oa", "obj"},
}

// separableSignature links a detached particle via the svp relation.
var separableSignature = DepSignature{
	Roles:    map[string][]string{RoleParticle: {"svp", "compound:prt"}},
	MaxDepth: 2,
}

// DefaultDefinitions returns the compiled-in collocation table.
func DefaultDefinitions() []CollocationDefinition {
	return []CollocationDefinition{
		// Reflexive verb + preposition
		{Kind: KindReflexivePrep, Verb: "freuen", Preposition: "auf", Level: LevelB1, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "freuen", Preposition: "über", Level: LevelB1, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "erinnern", Preposition: "an", Level: LevelB1, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "interessieren", Preposition: "für", Level: LevelB1, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "kümmern", Preposition: "um", Level: LevelB2, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "beschäftigen", Preposition: "mit", Level: LevelB2, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "ärgern", Preposition: "über", Level: LevelB1, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "bewerben", Preposition: "um", Level: LevelB2, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "verlassen", Preposition: "auf", Level: LevelB2, Signature: prepSignature},
		{Kind: KindReflexivePrep, Verb: "konzentrieren", Preposition: "auf", Level: LevelB2, Signature: prepSignature},

		// Verb + preposition
		{Kind: KindVerbPrep, Verb: "warten", Preposition: "auf", Level: LevelA2, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "denken", Preposition: "an", Level: LevelB1, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "teilnehmen", Preposition: "an", Level: LevelB1, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "gehören", Preposition: "zu", Level: LevelB1, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "bestehen", Preposition: "aus", Level: LevelB2, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "leiden", Preposition: "unter", Level: LevelB2, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "träumen", Preposition: "von", Level: LevelB1, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "sprechen", Preposition: "über", Level: LevelA2, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "achten", Preposition: "auf", Level: LevelB2, Signature: prepSignature},
		{Kind: KindVerbPrep, Verb: "zweifeln", Preposition: "an", Level: LevelC1, Signature: prepSignature},

		// Light verb constructions (verb + noun)
		{Kind: KindVerbNoun, Verb: "treffen", Noun: "Entscheidung", Level: LevelB2, Signature: nounSignature},
		{Kind: KindVerbNoun, Verb: "nehmen", Noun: "Abschied", Level: LevelB2, Signature: nounSignature},
		{Kind: KindVerbNoun, Verb: "stellen", Noun: "Frage", Level: LevelB1, Signature: nounSignature},
		{Kind: KindVerbNoun, Verb: "haben", Noun: "Angst", Level: LevelA2, Signature: nounSignature},
		{Kind: KindVerbNoun, Verb: "spielen", Noun: "Rolle", Level: LevelB2, Signature: nounSignature},
		{Kind: KindVerbNoun, Verb: "machen", Noun: "Fehler", Level: LevelA2, Signature: nounSignature},

		// Separable verbs, evaluated for tracing but emitted by the
		// separable-verb detector, not the collocation detector.
		{Kind: KindSeparable, Verb: "abfahren", Particle: "ab", Level: LevelA2, Signature: separableSignature},
		{Kind: KindSeparable, Verb: "ankommen", Particle: "an", Level: LevelA2, Signature: separableSignature},
		{Kind: KindSeparable, Verb: "aufstehen", Particle: "auf", Level: LevelA2, Signature: separableSignature},
		{Kind: KindSeparable, Verb: "einkaufen", Particle: "ein", Level: LevelA2, Signature: separableSignature},
		{Kind: KindSeparable, Verb: "anfangen", Particle: "an", Level: LevelA2, Signature: separableSignature},
		{Kind: KindSeparable, Verb: "mitbringen", Particle: "mit", Level: LevelA2, Signature: separableSignature},
	}
}
