// Package annotate runs the sentence-level grammar analysis over a whole
// document: parse workers fan out, an ordered consumer keeps document
// order, and results land in the database in batched transactions with a
// per-sentence checkpoint so an interrupted run can resume.
package annotate

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/db"
	"github.com/ritazcx/DeutschLernenApp02-sub000/pkg/grammar"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// SentenceParser produces a parsed sentence from raw text. The sidecar
// client satisfies this; tests inject stubs.
type SentenceParser interface {
	Analyze(ctx context.Context, text string) (*grammar.Sentence, error)
}

// Pipeline drives the document analysis.
type Pipeline struct {
	DB        *sql.DB
	Engine    *grammar.Engine
	Parser    SentenceParser
	BatchSize int
	// Logger is used for informational messages (e.g. resume status). nil means no logging.
	Logger *log.Logger
	// OnProgress is called periodically with the number of processed sentences and total sentences.
	OnProgress func(current, total int)

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewPipeline creates a pipeline with default batching and worker counts.
func NewPipeline(conn *sql.DB, engine *grammar.Engine, parser SentenceParser) *Pipeline {
	return &Pipeline{
		DB:        conn,
		Engine:    engine,
		Parser:    parser,
		BatchSize: 50,
		Workers:   4,
	}
}

// analyzedSentence holds the result of analyzing a sentence before DB writes.
type analyzedSentence struct {
	Index   int
	Text    string
	Results []grammar.DetectionResult
	Error   error
}

// Run analyzes sentences and saves detections using concurrent workers and
// batched writes. It resumes from the last checkpoint of the source and
// returns the number of detections stored.
func (p *Pipeline) Run(ctx context.Context, sourceID int64, sentences []string) (int, error) {
	lastProcessed, err := db.GetSourceProgress(p.DB, sourceID)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Printf("Warning: Failed to retrieve progress: %v", err)
		}
		lastProcessed = -1
	}
	if lastProcessed >= 0 && p.Logger != nil {
		p.Logger.Printf("Resuming from sentence index %d", lastProcessed+1)
	}

	totalSentences := len(sentences)
	startIdx := lastProcessed + 1
	if startIdx >= totalSentences {
		return 0, nil // Nothing to do
	}

	var wp WorkerPoolInterface
	if p.PoolFactory != nil {
		wp = p.PoolFactory(p.Workers, p.Workers*2)
	} else {
		wp = NewWorkerPool(p.Workers, p.Workers*2)
	}
	resultCh := make(chan analyzedSentence, p.Workers*2)
	closedResultCh := false
	doneCh := make(chan error, 1)

	var totalDetections int64

	bw := NewBatchWriter(p.DB, p.BatchSize, 100*time.Millisecond)
	var batchErr error
	var batchErrMu sync.Mutex
	bw.OnError = func(e error) {
		batchErrMu.Lock()
		if batchErr == nil {
			batchErr = e
		}
		batchErrMu.Unlock()
	}

	defer func() {
		wp.Close()
		if !closedResultCh {
			close(resultCh)
		}
		_ = bw.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	// Consumer: reorder results into document order and hand contiguous
	// runs to the batch writer.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]analyzedSentence)
		nextIdx := startIdx

		submit := func(item analyzedSentence) error {
			return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
				sentID, err := db.SaveSentence(tx, sourceID, item.Index, item.Text)
				if err != nil {
					return fmt.Errorf("save sentence %d: %w", item.Index, err)
				}
				if err := db.SaveDetections(tx, sentID, item.Results); err != nil {
					return fmt.Errorf("save detections for sentence %d: %w", item.Index, err)
				}
				atomic.AddInt64(&totalDetections, int64(len(item.Results)))
				if err := db.UpdateSourceProgress(tx, sourceID, item.Index); err != nil {
					return fmt.Errorf("save progress: %w", err)
				}
				return nil
			})
		}

		drain := func() error {
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					return nil
				}
				delete(buffer, nextIdx)
				if err := submit(item); err != nil {
					return err
				}
				if p.OnProgress != nil && (nextIdx+1)%p.BatchSize == 0 {
					p.OnProgress(nextIdx+1, totalSentences)
				}
				nextIdx++
			}
		}

		for {
			select {
			case <-ctx.Done():
				doneCh <- ctx.Err()
				return
			default:
			}

			res, ok := <-resultCh
			if !ok {
				if err := drain(); err != nil {
					cancel()
					doneCh <- err
					return
				}
				if p.OnProgress != nil {
					p.OnProgress(totalSentences, totalSentences)
				}
				doneCh <- nil
				return
			}

			if res.Error != nil {
				// Signal producers so they don't block writing to resultCh.
				cancel()
				doneCh <- res.Error
				return
			}
			buffer[res.Index] = res

			if err := drain(); err != nil {
				cancel()
				doneCh <- err
				return
			}
		}
	}()

	// Producer loop: submit parse+detect jobs.
Loop:
	for i := startIdx; i < totalSentences; i++ {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx := i
		text := sentences[i]

		job := func(ctx context.Context) error {
			res := p.analyzeSentence(ctx, idx, text)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if err == ctx.Err() {
				break Loop
			}
			if err == ErrPoolClosed {
				break Loop
			}
			return 0, err
		}
	}

	// No more jobs: let workers drain, then signal the consumer.
	wp.Close()
	if !closedResultCh {
		close(resultCh)
		closedResultCh = true
	}

	consumerErr := <-doneCh

	if err := bw.Close(); err != nil {
		if consumerErr == nil {
			consumerErr = err
		}
	}

	batchErrMu.Lock()
	if batchErr != nil && consumerErr == nil {
		consumerErr = batchErr
	}
	batchErrMu.Unlock()

	return int(atomic.LoadInt64(&totalDetections)), consumerErr
}

// analyzeSentence parses one sentence and runs the detection engine on it.
func (p *Pipeline) analyzeSentence(ctx context.Context, index int, text string) analyzedSentence {
	s, err := p.Parser.Analyze(ctx, text)
	if err != nil {
		return analyzedSentence{Index: index, Text: text, Error: fmt.Errorf("parse sentence %d: %w", index, err)}
	}
	report := p.Engine.Analyze(ctx, s)
	return analyzedSentence{Index: index, Text: text, Results: report.GrammarPoints}
}
