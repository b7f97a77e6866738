package grammar

import "encoding/json"

// Token is a single parsed unit of a German sentence as produced by the
// upstream dependency parser. The head reference may be a numeric index or
// the surface text of the governing token, depending on the parser build.
type Token struct {
	Text  string            `json:"text"`
	Lemma string            `json:"lemma"`
	POS   string            `json:"pos"`  // Universal POS (VERB, NOUN, ADP, ...)
	Tag   string            `json:"tag"`  // TIGER tag (VVFIN, PTKVZ, PRF, ...)
	Dep   string            `json:"dep"`  // dependency relation to the head
	Head  HeadRef           `json:"head"` // index or surface text of the head
	Morph map[string]string `json:"morph,omitempty"`

	// Index is the token's position within the sentence. Unique and
	// monotonically increasing; used for all ordering decisions.
	Index int `json:"index"`

	// CharStart/CharEnd are byte offsets into the sentence text.
	CharStart int `json:"characterStart"`
	CharEnd   int `json:"characterEnd"`

	Entity *EntityAnnotation `json:"entity,omitempty"`
}

// HeadRef holds a dependency head reference. The upstream spaCy sidecar
// reports heads as surface text; older fixtures carry numeric indices.
// Resolved is true when Index is meaningful.
type HeadRef struct {
	Resolved bool
	Index    int
	Text     string
}

// UnmarshalJSON accepts either a number or a string head field.
func (h *HeadRef) UnmarshalJSON(data []byte) error {
	var idx int
	if err := json.Unmarshal(data, &idx); err == nil {
		h.Resolved = true
		h.Index = idx
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	h.Resolved = false
	h.Text = s
	return nil
}

// MarshalJSON emits the numeric index when resolved, the text otherwise.
func (h HeadRef) MarshalJSON() ([]byte, error) {
	if h.Resolved {
		return json.Marshal(h.Index)
	}
	return json.Marshal(h.Text)
}

// IndexHead builds a resolved head reference.
func IndexHead(i int) HeadRef { return HeadRef{Resolved: true, Index: i} }

// TextHead builds a textual head reference that must be resolved against
// the sentence before use.
func TextHead(s string) HeadRef { return HeadRef{Text: s} }

// EntityAnnotation marks a token as part of a named entity.
type EntityAnnotation struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Start bool   `json:"start,omitempty"`
	End   bool   `json:"end,omitempty"`
}

// Entity is a named entity span over the sentence text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Sentence is one parsed sentence. It is immutable for the duration of a
// detection pass; detectors never modify it.
type Sentence struct {
	Text     string   `json:"text"`
	Tokens   []Token  `json:"tokens"`
	Entities []Entity `json:"entities,omitempty"`
}

// MorphIs reports whether the morphological feature key has the given value.
func (t Token) MorphIs(key, value string) bool {
	if t.Morph == nil {
		return false
	}
	return t.Morph[key] == value
}

// MorphValue returns the value for a morphological feature, or "".
func (t Token) MorphValue(key string) string {
	if t.Morph == nil {
		return ""
	}
	return t.Morph[key]
}
