// Command server exposes the grammar detection engine as a JSON REST API.
//
// Endpoints:
//
//	POST /api/analyze        body: a parsed sentence {"text":"...","tokens":[...]}
//	POST /api/analyze/text   body: {"text":"..."} (needs the spaCy sidecar)
//	GET  /api/grammar-points
//	GET  /healthz
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/rs/cors"

	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/fallback"
	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/grammar"
	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/parser"
)

// ---- JSON response types ------------------------------------------------

type analyzeTextResponse struct {
	Sentences []sentenceReportJSON `json:"sentences"`
}

type sentenceReportJSON struct {
	Text   string         `json:"text"`
	Report grammar.Report `json:"report"`
}

type grammarPointsResponse struct {
	GrammarPoints []grammar.GrammarPoint `json:"grammarPoints"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ---- helpers ------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// ---- handlers -----------------------------------------------------------

func handleAnalyze(engine *grammar.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var s grammar.Sentence
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			writeError(w, http.StatusBadRequest, "body must be a parsed sentence")
			return
		}
		if len(s.Tokens) == 0 {
			writeError(w, http.StatusBadRequest, "sentence has no tokens")
			return
		}
		writeJSON(w, http.StatusOK, engine.Analyze(r.Context(), &s))
	}
}

func handleAnalyzeText(engine *grammar.Engine, client *parser.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		if client == nil {
			writeError(w, http.StatusServiceUnavailable, "no parser sidecar configured")
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
			writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty 'text' field")
			return
		}

		var out analyzeTextResponse
		for _, text := range parser.SplitSentences(body.Text) {
			s, err := client.Analyze(r.Context(), text)
			if err != nil {
				writeError(w, http.StatusBadGateway, "parse failed: "+err.Error())
				return
			}
			out.Sentences = append(out.Sentences, sentenceReportJSON{
				Text:   text,
				Report: engine.Analyze(r.Context(), s),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGrammarPoints(catalog *grammar.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET required")
			return
		}
		writeJSON(w, http.StatusOK, grammarPointsResponse{GrammarPoints: catalog.All()})
	}
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ---- main ---------------------------------------------------------------

func main() {
	addr := flag.String("addr", ":"+getEnv("PORT", "8080"), "listen address")
	spacyFlag := flag.String("spacy", "", "command starting the spaCy sidecar (empty disables /api/analyze/text)")
	defsFlag := flag.String("definitions", "", "path to a JSON collocation definitions file (optional)")
	flag.Parse()

	var defs []grammar.CollocationDefinition
	if *defsFlag != "" {
		var err error
		defs, err = grammar.LoadDefinitions(*defsFlag)
		if err != nil {
			log.Fatalf("failed to load definitions: %v", err)
		}
		log.Printf("loaded %d collocation definitions", len(defs))
	}

	engine := grammar.NewEngine(grammar.DefaultDetectors(defs, nil))
	engine.Logger = log.New(os.Stderr, "engine: ", log.LstdFlags)
	if fb := fallback.FromEnv(); fb != nil {
		engine.Fallback = fb
		log.Println("AI fallback enabled")
	}

	var client *parser.Client
	if prog, args, err := parser.SplitCommand(*spacyFlag); err == nil {
		client, err = parser.Start(context.Background(), prog, args...)
		if err != nil {
			log.Fatalf("failed to start parser sidecar: %v", err)
		}
		defer client.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze/text", handleAnalyzeText(engine, client))
	mux.HandleFunc("/api/analyze", handleAnalyze(engine))
	mux.HandleFunc("/api/grammar-points", handleGrammarPoints(grammar.DefaultCatalog()))
	mux.HandleFunc("/healthz", handleHealth())

	handler := cors.Default().Handler(mux)

	log.Printf("listening on %s", *addr)
	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
