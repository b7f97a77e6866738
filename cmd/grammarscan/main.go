package main

import (
	"bytes"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/annotate"
	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/db"
	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/fallback"
	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/grammar"
	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/parser"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	urlFlag := flag.String("url", "", "URL of a German article to analyze")
	fileFlag := flag.String("file", "", "Path to a German text file to analyze")
	dbFlag := flag.String("db", "grammarscan.db", "Path to SQLite database")
	spacyFlag := flag.String("spacy", "python3 spacy-service.py", "Command starting the spaCy sidecar")
	defsFlag := flag.String("definitions", "", "Path to a JSON collocation definitions file (optional)")
	workersFlag := flag.Int("workers", 4, "Number of analysis workers")
	aiFlag := flag.Bool("ai-fallback", false, "Consult Gemini when rules find nothing (needs GEMINI_API_KEY)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := sql.Open("sqlite3", *dbFlag)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	if err := db.InitDB(conn); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Collocation definitions: compiled-in table unless a file is given.
	var defs []grammar.CollocationDefinition
	if *defsFlag != "" {
		defs, err = grammar.LoadDefinitions(*defsFlag)
		if err != nil {
			log.Fatalf("Failed to load definitions: %v", err)
		}
		fmt.Printf("Loaded %d collocation definitions from %s\n", len(defs), *defsFlag)
	}

	engine := grammar.NewEngine(grammar.DefaultDetectors(defs, nil))
	engine.Logger = log.New(os.Stderr, "engine: ", log.LstdFlags)
	if *aiFlag {
		if fb := fallback.FromEnv(); fb != nil {
			engine.Fallback = fb
			fmt.Println("AI fallback enabled")
		} else {
			log.Println("Warning: -ai-fallback set but GEMINI_API_KEY is empty; continuing without")
		}
	}

	var text, title, site, sourceURL, sourceType string
	switch {
	case *urlFlag != "":
		article, err := fetchArticle(ctx, *urlFlag)
		if err != nil {
			log.Fatalf("Failed to fetch article: %v", err)
		}
		text = article.TextContent
		title = article.Title
		site = article.SiteName
		sourceURL = *urlFlag
		sourceType = "website_article"
		fmt.Printf("Title: %s\n", title)
	case *fileFlag != "":
		data, err := os.ReadFile(*fileFlag)
		if err != nil {
			log.Fatalf("Failed to read file: %v", err)
		}
		text = string(data)
		title = *fileFlag
		sourceType = "text_file"
	default:
		log.Fatal("Please provide -url or -file")
	}

	sentences := parser.SplitSentences(text)
	if len(sentences) == 0 {
		log.Fatal("No sentences found in input")
	}
	fmt.Printf("Split into %d sentences.\n", len(sentences))

	sourceID, err := db.CreateOrGetSource(conn, sourceType, title, site, sourceURL, "")
	if err != nil {
		log.Fatalf("Failed to persist source: %v", err)
	}
	fmt.Printf("Source saved with ID: %d\n", sourceID)

	// Start the parser sidecar.
	prog, args, err := parser.SplitCommand(*spacyFlag)
	if err != nil {
		log.Fatal("-spacy must name the sidecar command")
	}
	client, err := parser.Start(ctx, prog, args...)
	if err != nil {
		log.Fatalf("Failed to start parser sidecar: %v", err)
	}
	defer client.Close()

	pipeline := annotate.NewPipeline(conn, engine, client)
	pipeline.Workers = *workersFlag
	pipeline.Logger = log.New(os.Stderr, "annotate: ", log.LstdFlags)
	pipeline.OnProgress = func(current, total int) {
		fmt.Printf("  %d/%d sentences\n", current, total)
	}

	count, err := pipeline.Run(ctx, sourceID, sentences)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	fmt.Printf("Processing complete. Stored %d detections.\n", count)

	stats, err := db.GetGrammarPointStats(conn, sourceID)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	fmt.Println("---------------------------------------------------")
	for _, st := range stats {
		fmt.Printf("%-28s %-3s x%-4d avg %.2f\n", st.GrammarPoint, st.Level, st.Count, st.AvgConfidence)
	}
}

// fetchArticle downloads a page and extracts the readable article text.
func fetchArticle(ctx context.Context, rawURL string) (*readability.Article, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	// Mimic a real browser to avoid being blocked.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got status code %d", resp.StatusCode)
	}

	// Read content with a size limit to prevent OOM from untrusted URLs.
	const maxBodySize = 10 * 1024 * 1024
	if resp.ContentLength > int64(maxBodySize) {
		return nil, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, maxBodySize)
	}
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if int64(len(bodyBytes)) >= int64(maxBodySize) {
		return nil, fmt.Errorf("response body exceeded maximum size limit of %d bytes", maxBodySize)
	}

	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(bodyBytes), parsedURL)
	if err != nil {
		return nil, err
	}
	return &article, nil
}
