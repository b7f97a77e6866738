package grammar

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogValid(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() == 0 {
		t.Fatal("builtin catalog is empty")
	}
	for _, id := range []string{
		"reflexive-prep-collocation", "verb-prep-collocation", "verb-noun-collocation",
		"subordinate-clause", "relative-clause", "infinitive-clause",
		"separable-verb", "case-agreement", "verb-second", "verb-final",
		"passive-voice", "causative-lassen",
	} {
		if _, ok := c.Get(id); !ok {
			t.Errorf("catalog missing %s", id)
		}
	}
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]GrammarPoint{
		{ID: "x", Category: CategoryClause, Level: LevelA1},
		{ID: "x", Category: CategoryClause, Level: LevelA2},
	})
	if err == nil {
		t.Fatal("duplicate ids must be rejected")
	}
}

func TestCatalogRejectsBadLevel(t *testing.T) {
	_, err := NewCatalog([]GrammarPoint{{ID: "x", Category: CategoryClause, Level: "Z9"}})
	if err == nil {
		t.Fatal("invalid level must be rejected")
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.json")
	data := `[{"id":"test-point","category":"clause","level":"B1","name":"Test"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := c.Get("test-point"); !ok {
		t.Error("loaded point not found")
	}
}

func TestLoadCatalogRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("malformed JSON must fail at load time")
	}
}

func TestDefinitionValidation(t *testing.T) {
	cases := []struct {
		name string
		def  CollocationDefinition
		ok   bool
	}{
		{"valid verb-prep", CollocationDefinition{Kind: KindVerbPrep, Verb: "warten", Preposition: "auf"}, true},
		{"missing verb", CollocationDefinition{Kind: KindVerbPrep, Preposition: "auf"}, false},
		{"missing preposition", CollocationDefinition{Kind: KindReflexivePrep, Verb: "freuen"}, false},
		{"verb-noun any noun", CollocationDefinition{Kind: KindVerbNoun, Verb: "machen"}, true},
		{"separable ok", CollocationDefinition{Kind: KindSeparable, Verb: "abfahren", Particle: "ab"}, true},
		{"particle not prefix", CollocationDefinition{Kind: KindSeparable, Verb: "fahren", Particle: "ab"}, false},
		{"unknown kind", CollocationDefinition{Kind: "glued", Verb: "x"}, false},
		{"bad level", CollocationDefinition{Kind: KindVerbPrep, Verb: "warten", Preposition: "auf", Level: "X1"}, false},
	}
	for _, c := range cases {
		err := c.def.Validate()
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestDefaultDefinitionsValid(t *testing.T) {
	for _, d := range DefaultDefinitions() {
		if err := d.Validate(); err != nil {
			t.Errorf("builtin definition %s: %v", d.Label(), err)
		}
	}
}

func TestLoadDefinitionsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defs.json")
	data := `[{"kind":"verb-prep","verb":"hoffen","preposition":"auf","level":"B1",
		"signature":{"roles":{"preposition":["mo","op"]},"maxDepth":3}}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	defs, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 1 || defs[0].Verb != "hoffen" {
		t.Fatalf("unexpected defs: %+v", defs)
	}
	if got := defs[0].Signature.Roles[RolePreposition]; len(got) != 2 {
		t.Errorf("signature roles not loaded: %+v", defs[0].Signature)
	}
}

func TestLoadDefinitionsRejectsInvalidEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defs.json")
	data := `[{"kind":"reflexive-prep","verb":"freuen"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDefinitions(path); err == nil {
		t.Fatal("definition without preposition must fail validation at load")
	}
}
