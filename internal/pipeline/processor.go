// Package pipeline drives the OCR -> batched LLM cleanup run: it partitions
// work, applies the retry policy around every service call, keeps per-file
// and per-batch failures isolated, and assembles results in original file
// order no matter when operations complete.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/novaocr/novaocr/constants"
	"github.com/novaocr/novaocr/internal/provider"
	"github.com/novaocr/novaocr/internal/retry"
)

// Processor coordinates OCR extraction and batched LLM cleanup for one run.
type Processor struct {
	ocr    provider.OCRClient
	llm    provider.LLMClient
	policy retry.Policy
	logger *slog.Logger

	batchSize    int
	workers      int
	systemPrompt string
	temperature  float64

	onProgress func(ProgressEvent)
	emitMu     sync.Mutex

	cancelled atomic.Bool
	paused    atomic.Bool
	pauseTick time.Duration

	stats *RunStats
}

// Option configures a Processor.
type Option func(*Processor)

// WithBatchSize sets how many pages are cleaned per LLM call.
func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithOCRWorkers bounds concurrent OCR dispatch. 1 means sequential.
func WithOCRWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithPrompt sets the cleanup system prompt and sampling temperature.
func WithPrompt(systemPrompt string, temperature float64) Option {
	return func(p *Processor) {
		p.systemPrompt = systemPrompt
		p.temperature = temperature
	}
}

// WithProgress registers the progress event consumer.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(p *Processor) { p.onProgress = fn }
}

// WithPauseTick overrides the pause poll interval (tests).
func WithPauseTick(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.pauseTick = d
		}
	}
}

func NewProcessor(ocr provider.OCRClient, llm provider.LLMClient, policy retry.Policy, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		ocr:       ocr,
		llm:       llm,
		policy:    policy,
		logger:    logger,
		batchSize: 7,
		workers:   1,
		pauseTick: 100 * time.Millisecond,
		stats:     newRunStats(0),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Cancel stops the run at the next checkpoint. Operations already in flight
// are allowed to complete; no new ones are issued.
func (p *Processor) Cancel() {
	p.cancelled.Store(true)
	p.paused.Store(false)
}

// Pause suspends issuing new operations until Resume is called. Progress is
// not discarded.
func (p *Processor) Pause() { p.paused.Store(true) }

// Resume clears a pause.
func (p *Processor) Resume() { p.paused.Store(false) }

// Stats exposes the run-level counters.
func (p *Processor) Stats() *RunStats { return p.stats }

// Run drives the full pipeline over files and returns exactly one Result per
// input, in input order. Per-file and per-batch failures degrade only their
// own results; the run stops early only on cancellation, returning whatever
// has been produced so far (untouched files stay PENDING).
func (p *Processor) Run(ctx context.Context, files []*SourceFile) []Result {
	p.stats = newRunStats(len(files))

	results := make([]Result, len(files))
	for i, f := range files {
		results[i] = Result{Path: f.Path, Status: constants.StatusPending}
	}

	p.logger.Info("pipeline.run.start",
		"files", len(files),
		"batch_size", p.batchSize,
		"ocr_workers", p.workers,
	)

	p.runOCRStage(ctx, files, results)
	p.runCleanStage(ctx, files, results)

	p.stats.finish()
	p.logger.Info("pipeline.run.done", "summary", p.stats.Summary())
	return results
}

// runOCRStage extracts text per file, sequentially or through a bounded
// worker pool. Each index is written by exactly one goroutine; ordering is a
// property of the results slice, not of completion order.
func (p *Processor) runOCRStage(ctx context.Context, files []*SourceFile, results []Result) {
	total := len(files)
	var done atomic.Int64

	work := func(i int) {
		p.processOCR(ctx, i, files[i], results)
		n := int(done.Add(1))
		p.emit(ProgressEvent{
			Stage:   StageOCR,
			Done:    n,
			Total:   total,
			File:    files[i].Path,
			Message: fmt.Sprintf("OCR %d/%d: %s", n, total, filepath.Base(files[i].Path)),
		})
	}

	if p.workers <= 1 {
		for i := range files {
			if !p.checkpoint(ctx) {
				return
			}
			work(i)
		}
		return
	}

	idxCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				work(i)
			}
		}()
	}
	for i := range files {
		if !p.checkpoint(ctx) {
			break
		}
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()
}

func (p *Processor) processOCR(ctx context.Context, i int, f *SourceFile, results []Result) {
	name := filepath.Base(f.Path)
	var text string
	attempts, err := p.policy.Do(ctx, "ocr "+name, func(ctx context.Context) error {
		t, err := p.ocr.ExtractText(ctx, f.Path)
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	results[i].Attempts = attempts

	if err != nil {
		f.Advance(constants.StatusFailed)
		results[i].Status = constants.StatusFailed
		results[i].Err = err
		p.stats.addFailed(1)
		p.logger.Error("pipeline.ocr.failed", "file", name, "attempts", attempts, "error", err)
		return
	}

	f.Advance(constants.StatusOCRDone)
	results[i].Status = constants.StatusOCRDone
	results[i].Raw = text
	if text == "" {
		results[i].Empty = true
		p.stats.addEmpty(1)
		p.logger.Info("pipeline.ocr.empty", "file", name)
		return
	}
	p.logger.Info("pipeline.ocr.ok", "file", name, "chars", len(text), "attempts", attempts)
}

// runCleanStage batches the extracted texts and cleans them per batch. A
// batch failure marks every file in that batch failed with the batch error
// (raw text is kept on the result); other batches still proceed.
func (p *Processor) runCleanStage(ctx context.Context, files []*SourceFile, results []Result) {
	var okIdx []int
	for i, f := range files {
		if f.Status() != constants.StatusOCRDone {
			continue
		}
		if results[i].Empty {
			// nothing to clean; the file is complete
			f.Advance(constants.StatusCleaned)
			results[i].Status = constants.StatusCleaned
			continue
		}
		okIdx = append(okIdx, i)
	}

	batches := partition(okIdx, p.batchSize)
	total := len(okIdx)
	done := 0

	for bi, batch := range batches {
		if !p.checkpoint(ctx) {
			return
		}

		texts := make([]string, len(batch.Indices))
		for j, idx := range batch.Indices {
			texts[j] = results[idx].Raw
		}

		label := fmt.Sprintf("clean batch %d/%d", bi+1, len(batches))
		var cleaned []string
		attempts, err := p.policy.Do(ctx, label, func(ctx context.Context) error {
			out, err := p.llm.CleanBatch(ctx, texts, p.systemPrompt, p.temperature)
			if err != nil {
				return err
			}
			cleaned = out
			return nil
		})

		if err != nil {
			for _, idx := range batch.Indices {
				files[idx].Advance(constants.StatusFailed)
				results[idx].Status = constants.StatusFailed
				results[idx].Err = err
				results[idx].Attempts = attempts
			}
			p.stats.addFailed(len(batch.Indices))
			p.logger.Error("pipeline.clean.failed",
				"batch", bi+1,
				"batches", len(batches),
				"pages", len(batch.Indices),
				"attempts", attempts,
				"error", err,
			)
		} else {
			for j, idx := range batch.Indices {
				files[idx].Advance(constants.StatusCleaned)
				results[idx].Status = constants.StatusCleaned
				results[idx].Text = cleaned[j]
				results[idx].Attempts = attempts
			}
			p.stats.addSucceeded(len(batch.Indices))
			p.logger.Info("pipeline.clean.ok",
				"batch", bi+1,
				"batches", len(batches),
				"pages", len(batch.Indices),
				"attempts", attempts,
			)
		}

		done += len(batch.Indices)
		p.emit(ProgressEvent{
			Stage:   StageClean,
			Done:    done,
			Total:   total,
			Message: fmt.Sprintf("cleaned batch %d/%d (%d pages)", bi+1, len(batches), len(batch.Indices)),
		})
	}
}

// checkpoint is consulted between files and between batches: it blocks while
// paused and reports false once the run is cancelled.
func (p *Processor) checkpoint(ctx context.Context) bool {
	for {
		if p.cancelled.Load() || ctx.Err() != nil {
			return false
		}
		if !p.paused.Load() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.pauseTick):
		}
	}
}

func (p *Processor) emit(ev ProgressEvent) {
	if p.onProgress == nil {
		return
	}
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	p.onProgress(ev)
}
