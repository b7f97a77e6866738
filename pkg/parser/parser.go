// Package parser talks to the external German spaCy sidecar that produces
// the dependency-parsed token stream consumed by the detection engine. The
// sidecar speaks line-delimited JSON over stdin/stdout.
package parser

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"

	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/grammar"
)

// Client manages one sidecar subprocess. Requests are serialized; the
// sidecar answers strictly one line per request.
type Client struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner

	// Logger receives sidecar stderr notices. nil means no logging.
	Logger *log.Logger
}

// request mirrors the sidecar's input protocol.
type request struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
	Word   string `json:"word,omitempty"`
}

// analyzeResponse mirrors the sidecar's sentence analysis output.
type analyzeResponse struct {
	Success  bool            `json:"success"`
	Text     string          `json:"text"`
	Tokens   []sidecarToken  `json:"tokens"`
	Entities []sidecarEntity `json:"entities"`
	Error    string          `json:"error"`
}

type sidecarToken struct {
	Text  string            `json:"text"`
	Lemma string            `json:"lemma"`
	POS   string            `json:"pos"`
	Tag   string            `json:"tag"`
	Dep   string            `json:"dep"`
	Head  string            `json:"head"` // surface text of the head token
	Morph map[string]string `json:"morph"`
}

type sidecarEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// SplitCommand splits a sidecar command line into program and arguments
// for Start, rejecting empty or whitespace-only input.
func SplitCommand(line string) (string, []string, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("empty sidecar command")
	}
	return parts[0], parts[1:], nil
}

// Start launches the sidecar process and waits for it to come up. The
// command is typically "python3 spacy-service.py".
func Start(ctx context.Context, command string, args ...string) (*Client, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start sidecar: %w", err)
	}

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Client{cmd: cmd, stdin: stdin, scanner: sc}, nil
}

// Analyze sends one sentence through the sidecar and maps the reply onto
// the engine's token model.
func (c *Client) Analyze(ctx context.Context, text string) (*grammar.Sentence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	line, err := json.Marshal(request{Action: "analyze", Text: text})
	if err != nil {
		return nil, err
	}
	if _, err := c.stdin.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write to sidecar: %w", err)
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read from sidecar: %w", err)
		}
		return nil, fmt.Errorf("sidecar closed its output")
	}

	var resp analyzeResponse
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode sidecar reply: %w", err)
	}
	return mapResponse(resp)
}

// Close shuts the sidecar down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.stdin.Close()
	return c.cmd.Wait()
}

// mapResponse converts a sidecar reply into the engine's sentence model.
// The sidecar does not report character offsets for tokens, so they are
// recovered by walking the sentence text left to right.
func mapResponse(resp analyzeResponse) (*grammar.Sentence, error) {
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unspecified sidecar error"
		}
		return nil, fmt.Errorf("sidecar analysis failed: %s", msg)
	}

	s := &grammar.Sentence{Text: resp.Text}
	cursor := 0
	for i, t := range resp.Tokens {
		start := strings.Index(resp.Text[cursor:], t.Text)
		if start < 0 {
			// Token text not locatable (normalization artifact); anchor at
			// the cursor so offsets stay monotonic.
			start = 0
		}
		start += cursor
		end := start + len(t.Text)
		cursor = end

		s.Tokens = append(s.Tokens, grammar.Token{
			Text:      t.Text,
			Lemma:     t.Lemma,
			POS:       t.POS,
			Tag:       t.Tag,
			Dep:       t.Dep,
			Head:      grammar.TextHead(t.Head),
			Morph:     t.Morph,
			Index:     i,
			CharStart: start,
			CharEnd:   end,
		})
	}
	for _, e := range resp.Entities {
		s.Entities = append(s.Entities, grammar.Entity{
			Text: e.Text, Label: e.Label, Start: e.Start, End: e.End,
		})
	}
	return s, nil
}
