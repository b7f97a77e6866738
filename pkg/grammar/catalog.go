package grammar

import (
	"encoding/json"
	"fmt"
	"os"
)

// GrammarPoint is a static catalog entry describing one teachable
// phenomenon. The catalog is loaded once at process start and read-only
// thereafter.
type GrammarPoint struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Level       Level    `json:"level"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
}

// Catalog indexes grammar points by id.
type Catalog struct {
	points map[string]GrammarPoint
	order  []string
}

// NewCatalog builds a catalog from entries, validating each.
func NewCatalog(points []GrammarPoint) (*Catalog, error) {
	c := &Catalog{points: make(map[string]GrammarPoint, len(points))}
	for _, p := range points {
		if err := validatePoint(p); err != nil {
			return nil, err
		}
		if _, dup := c.points[p.ID]; dup {
			return nil, fmt.Errorf("duplicate grammar point id %q", p.ID)
		}
		c.points[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// LoadCatalog reads a JSON array of grammar points from path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var points []GrammarPoint
	if err := json.NewDecoder(f).Decode(&points); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return NewCatalog(points)
}

// DefaultCatalog returns the compiled-in grammar point table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultPoints)
	if err != nil {
		// The builtin table is validated by tests; a failure here is a bug.
		panic(err)
	}
	return c
}

// Get returns the grammar point for id.
func (c *Catalog) Get(id string) (GrammarPoint, bool) {
	p, ok := c.points[id]
	return p, ok
}

// All returns grammar points in insertion order.
func (c *Catalog) All() []GrammarPoint {
	out := make([]GrammarPoint, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.points[id])
	}
	return out
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.points) }

func validatePoint(p GrammarPoint) error {
	if p.ID == "" {
		return fmt.Errorf("grammar point with empty id")
	}
	if p.Category == "" {
		return fmt.Errorf("grammar point %s: missing category", p.ID)
	}
	switch p.Level {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
	default:
		return fmt.Errorf("grammar point %s: invalid level %q", p.ID, p.Level)
	}
	return nil
}

var defaultPoints = []GrammarPoint{
	{ID: "verb-prep-collocation", Category: CategoryCollocation, Level: LevelB1,
		Name: "Verb + Präposition", Description: "Fixed verb-preposition pairings that govern a specific case.",
		Examples: []string{"warten auf", "denken an"}},
	{ID: "reflexive-prep-collocation", Category: CategoryCollocation, Level: LevelB1,
		Name: "Reflexivverb + Präposition", Description: "Reflexive verbs with a fixed prepositional complement.",
		Examples: []string{"sich freuen auf", "sich erinnern an"}},
	{ID: "verb-noun-collocation", Category: CategoryCollocation, Level: LevelB2,
		Name: "Nomen-Verb-Verbindung", Description: "Light verb constructions pairing a verb with a fixed noun.",
		Examples: []string{"eine Entscheidung treffen", "Abschied nehmen"}},
	{ID: "subordinate-clause", Category: CategoryClause, Level: LevelA2,
		Name: "Nebensatz", Description: "Subordinate clause with verb-final word order.",
		Examples: []string{"Ich weiß, dass er kommt."}},
	{ID: "relative-clause", Category: CategoryClause, Level: LevelB1,
		Name: "Relativsatz", Description: "Relative clause introduced by a relative pronoun.",
		Examples: []string{"Der Mann, der dort steht, ist mein Lehrer."}},
	{ID: "infinitive-clause", Category: CategoryClause, Level: LevelB1,
		Name: "Infinitivsatz", Description: "Infinitive clause with um/ohne/statt ... zu.",
		Examples: []string{"Er lernt, um die Prüfung zu bestehen."}},
	{ID: "separable-verb", Category: CategorySeparableVerb, Level: LevelA2,
		Name: "Trennbares Verb", Description: "Verb whose prefix detaches in finite main clauses.",
		Examples: []string{"Der Zug fährt um acht Uhr ab."}},
	{ID: "case-agreement", Category: CategoryAgreement, Level: LevelA2,
		Name: "Kasuskongruenz", Description: "Case, number and gender agreement inside a noun phrase.",
		Examples: []string{"mit dem alten Mann"}},
	{ID: "verb-second", Category: CategoryWordOrder, Level: LevelA1,
		Name: "Verbzweitstellung", Description: "Finite verb in second position of a main clause.",
		Examples: []string{"Heute gehe ich ins Kino."}},
	{ID: "verb-final", Category: CategoryWordOrder, Level: LevelA2,
		Name: "Verbendstellung", Description: "Finite verb in final position of a subordinate clause.",
		Examples: []string{"..., weil ich müde bin."}},
	{ID: "passive-voice", Category: CategoryVoice, Level: LevelB1,
		Name: "Passiv", Description: "Processual or statal passive with werden/sein + Partizip II.",
		Examples: []string{"Das Haus wird gebaut.", "Die Tür ist geschlossen."}},
	{ID: "causative-lassen", Category: CategoryCausative, Level: LevelB2,
		Name: "Kausatives lassen", Description: "lassen + infinitive expressing caused or permitted action.",
		Examples: []string{"Ich lasse mein Auto reparieren."}},
}
