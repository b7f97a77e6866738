// Package fallback provides a Gemini-backed annotator the detection engine
// consults when none of the rule detectors find anything in a sentence.
package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/grammar"
)

const defaultModel = "gemini-1.5-flash"

// Client asks Gemini to annotate a German sentence with grammar points.
// Output is constrained to JSON and validated against the catalog before
// anything reaches the caller.
type Client struct {
	APIKey  string
	Model   string
	catalog *grammar.Catalog

	// Logger receives retry notices. nil means no logging.
	Logger *log.Logger
}

// New builds a client for the given API key and model. An empty model
// selects the default.
func New(apiKey, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Client{
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
		catalog: grammar.DefaultCatalog(),
	}
}

const systemPrompt = `Du bist ein Analysemodul für deutsche Grammatik. Du bekommst einen
deutschen Satz mit seiner Token-Liste und gibst die enthaltenen grammatischen
Konstruktionen als JSON zurück.

Regeln:
- Nutze ausschließlich die erlaubten Kennungen aus der Liste unten.
- "positions" sind Zeichen-Offsets (start einschließlich, end ausschließlich)
  in den Satz hinein.
- "confidence" liegt zwischen 0 und 1. Sei konservativ.
- Gib NUR JSON der Form
  {"grammar_points":[{"id":"...","confidence":0.0,"positions":[{"start":0,"end":0}],"note":"..."}]}
  zurück. Jeder Text außerhalb des JSON ist ein Fehler.`

// Annotate sends the sentence to Gemini and maps the reply onto the
// engine's result model. Transient API errors are retried.
func (c *Client) Annotate(ctx context.Context, s *grammar.Sentence) ([]grammar.DetectionResult, error) {
	if c.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(c.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(systemPrompt),
			genai.Text("Erlaubte Kennungen:\n" + c.allowedIDs()),
		},
	}

	parts := []genai.Part{genai.Text(buildPrompt(s))}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if c.Logger != nil {
				c.Logger.Printf("gemini attempt %d: %v", attempt, err)
			}
			if attempt < 3 {
				if err := sleepCtx(ctx, time.Duration(attempt)*300*time.Millisecond); err != nil {
					return nil, err
				}
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return nil, fmt.Errorf("gemini: empty response")
		}
		txt = stripCodeFences(txt)

		var out payload
		if err := json.Unmarshal([]byte(txt), &out); err != nil {
			return nil, fmt.Errorf("gemini: bad JSON: %w", err)
		}
		return c.mapPayload(out, s), nil
	}
	return nil, lastErr
}

// sleepCtx waits out the backoff but returns early when ctx is done, so a
// caller-imposed deadline is never overshot by a retry pause.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// buildPrompt renders the sentence and its parse for the model.
func buildPrompt(s *grammar.Sentence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Satz: %s\n\nToken (text|lemma|pos|tag|dep):\n", s.Text)
	for _, t := range s.Tokens {
		fmt.Fprintf(&b, "%d: %s|%s|%s|%s|%s\n", t.Index, t.Text, t.Lemma, t.POS, t.Tag, t.Dep)
	}
	b.WriteString("\nAntwort strikt als JSON.")
	return b.String()
}

func (c *Client) allowedIDs() string {
	var b strings.Builder
	for _, p := range c.catalog.All() {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", p.ID, p.Category, p.Level)
	}
	return b.String()
}

// payload mirrors the JSON shape the model is instructed to emit.
type payload struct {
	GrammarPoints []payloadPoint `json:"grammar_points"`
}

type payloadPoint struct {
	ID         string        `json:"id"`
	Confidence float64       `json:"confidence"`
	Positions  []payloadSpan `json:"positions"`
	Note       string        `json:"note"`
}

type payloadSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// mapPayload validates model output against the catalog and the sentence.
// Unknown ids and out-of-range spans are dropped rather than surfaced.
func (c *Client) mapPayload(out payload, s *grammar.Sentence) []grammar.DetectionResult {
	var results []grammar.DetectionResult
	for _, p := range out.GrammarPoints {
		gp, ok := c.catalog.Get(p.ID)
		if !ok {
			continue
		}
		conf := p.Confidence
		if conf < 0 || conf > 1 {
			continue
		}
		var positions []grammar.Position
		for _, sp := range p.Positions {
			if sp.Start < 0 || sp.End > len(s.Text) || sp.Start >= sp.End {
				continue
			}
			positions = append(positions, grammar.Position{Start: sp.Start, End: sp.End})
		}
		if len(positions) == 0 {
			continue
		}
		details := map[string]interface{}{"source": "ai"}
		if p.Note != "" {
			details["note"] = p.Note
		}
		results = append(results, grammar.DetectionResult{
			GrammarPoint: gp.ID,
			Category:     gp.Category,
			Level:        gp.Level,
			Positions:    positions,
			Confidence:   conf,
			Details:      details,
		})
	}
	return results
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
