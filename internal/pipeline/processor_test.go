package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaocr/novaocr/constants"
	"github.com/novaocr/novaocr/internal/provider"
	"github.com/novaocr/novaocr/internal/retry"
)

type stubOCR struct {
	mu    sync.Mutex
	calls []string
	fn    func(path string) (string, error)
}

func (s *stubOCR) ExtractText(_ context.Context, path string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(path)
	}
	return "raw:" + path, nil
}

func (s *stubOCR) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubLLM struct {
	mu      sync.Mutex
	batches [][]string
	fn      func(call int, texts []string) ([]string, error)
}

func (s *stubLLM) CleanBatch(_ context.Context, texts []string, _ string, _ float64) ([]string, error) {
	s.mu.Lock()
	call := len(s.batches)
	s.batches = append(s.batches, append([]string(nil), texts...))
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(call, texts)
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "clean:" + t
	}
	return out, nil
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy(maxRetries int) retry.Policy {
	return retry.Policy{
		MaxRetries:  maxRetries,
		BackoffBase: 2,
		Logger:      testLogger(),
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func makeFiles(n int) []*SourceFile {
	files := make([]*SourceFile, n)
	for i := range files {
		files[i] = NewSourceFile(fmt.Sprintf("/in/page%d.png", i+1))
	}
	return files
}

func TestRun_OneResultPerFileInOrder(t *testing.T) {
	files := makeFiles(5)
	ocr := &stubOCR{}
	llm := &stubLLM{}
	p := NewProcessor(ocr, llm, testPolicy(0), testLogger(),
		WithBatchSize(2), WithOCRWorkers(3))

	results := p.Run(context.Background(), files)

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, files[i].Path, r.Path, "index %d", i)
		assert.Equal(t, constants.StatusCleaned, r.Status)
		assert.Equal(t, "clean:raw:"+files[i].Path, r.Text)
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, 5, ocr.callCount())
	assert.Equal(t, 3, llm.callCount()) // ceil(5/2)

	snap := p.Stats().Snapshot()
	assert.Equal(t, 5, snap.Succeeded)
	assert.Zero(t, snap.Failed)
}

func TestRun_PartialOCRFailureDegradesOnlyThatFile(t *testing.T) {
	files := makeFiles(5)
	bad := files[2].Path
	ocr := &stubOCR{fn: func(path string) (string, error) {
		if path == bad {
			return "", provider.NewServiceError(provider.KindMalformed, "ocr.extract", 422, errors.New("unreadable"))
		}
		return "raw:" + path, nil
	}}
	llm := &stubLLM{}
	p := NewProcessor(ocr, llm, testPolicy(2), testLogger(), WithBatchSize(7))

	results := p.Run(context.Background(), files)

	require.Len(t, results, 5)
	assert.True(t, results[2].Failed())
	assert.Error(t, results[2].Err)
	assert.Equal(t, 1, results[2].Attempts) // malformed input is not retried
	for _, i := range []int{0, 1, 3, 4} {
		assert.Equal(t, constants.StatusCleaned, results[i].Status, "index %d", i)
	}

	// failed file is excluded from the cleanup batch
	require.Equal(t, 1, llm.callCount())
	assert.Len(t, llm.batches[0], 4)

	snap := p.Stats().Snapshot()
	assert.Equal(t, 4, snap.Succeeded)
	assert.Equal(t, 1, snap.Failed)
}

func TestRun_OCRExhaustionRecordsAttempts(t *testing.T) {
	files := makeFiles(1)
	ocr := &stubOCR{fn: func(string) (string, error) {
		return "", provider.NewServiceError(provider.KindRateLimited, "ocr.extract", 429, errors.New("slow down"))
	}}
	p := NewProcessor(ocr, &stubLLM{}, testPolicy(2), testLogger())

	results := p.Run(context.Background(), files)

	require.Len(t, results, 1)
	assert.True(t, results[0].Failed())
	assert.Equal(t, 3, results[0].Attempts) // 1 initial + 2 retries
	var exhausted *retry.ExhaustedError
	assert.ErrorAs(t, results[0].Err, &exhausted)
	assert.Equal(t, 3, ocr.callCount())
}

func TestRun_BatchFailureIsolated(t *testing.T) {
	files := makeFiles(6)
	llm := &stubLLM{fn: func(call int, texts []string) ([]string, error) {
		if call == 0 {
			return nil, provider.NewServiceError(provider.KindUnauthorized, "llm.clean", 401, errors.New("bad key"))
		}
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = "clean:" + t
		}
		return out, nil
	}}
	p := NewProcessor(&stubOCR{}, llm, testPolicy(3), testLogger(), WithBatchSize(3))

	results := p.Run(context.Background(), files)

	require.Len(t, results, 6)
	for i := 0; i < 3; i++ {
		assert.True(t, results[i].Failed(), "index %d", i)
		assert.Error(t, results[i].Err)
		assert.NotEmpty(t, results[i].Raw, "raw text survives a cleanup failure")
		assert.Empty(t, results[i].Text)
	}
	for i := 3; i < 6; i++ {
		assert.Equal(t, constants.StatusCleaned, results[i].Status, "index %d", i)
		assert.Equal(t, "clean:raw:"+files[i].Path, results[i].Text)
	}
	assert.Equal(t, 2, llm.callCount(), "non-retryable batch failure is not retried")

	snap := p.Stats().Snapshot()
	assert.Equal(t, 3, snap.Succeeded)
	assert.Equal(t, 3, snap.Failed)
}

func TestRun_EmptyPagesSkipCleanup(t *testing.T) {
	files := makeFiles(3)
	blank := files[1].Path
	ocr := &stubOCR{fn: func(path string) (string, error) {
		if path == blank {
			return "", nil
		}
		return "raw:" + path, nil
	}}
	llm := &stubLLM{}
	p := NewProcessor(ocr, llm, testPolicy(0), testLogger(), WithBatchSize(7))

	results := p.Run(context.Background(), files)

	assert.Equal(t, constants.StatusCleaned, results[1].Status)
	assert.True(t, results[1].Empty)
	assert.Empty(t, results[1].Text)

	require.Equal(t, 1, llm.callCount())
	assert.Len(t, llm.batches[0], 2, "blank pages are excluded from cleanup batches")

	snap := p.Stats().Snapshot()
	assert.Equal(t, 2, snap.Succeeded)
	assert.Equal(t, 1, snap.Empty)
}

func TestRun_CancelBetweenBatches(t *testing.T) {
	files := makeFiles(9)
	var p *Processor
	llm := &stubLLM{fn: func(call int, texts []string) ([]string, error) {
		p.Cancel() // in-flight batch completes, nothing new starts
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = "clean:" + t
		}
		return out, nil
	}}
	p = NewProcessor(&stubOCR{}, llm, testPolicy(0), testLogger(), WithBatchSize(3))

	results := p.Run(context.Background(), files)

	require.Len(t, results, 9)
	assert.Equal(t, 1, llm.callCount())
	for i := 0; i < 3; i++ {
		assert.Equal(t, constants.StatusCleaned, results[i].Status, "index %d", i)
	}
	for i := 3; i < 9; i++ {
		assert.Equal(t, constants.StatusOCRDone, results[i].Status, "index %d", i)
		assert.NoError(t, results[i].Err)
	}
}

func TestRun_CancelDuringOCR(t *testing.T) {
	files := makeFiles(4)
	var p *Processor
	ocr := &stubOCR{}
	ocr.fn = func(path string) (string, error) {
		if ocr.callCount() == 2 {
			p.Cancel()
		}
		return "raw:" + path, nil
	}
	llm := &stubLLM{}
	p = NewProcessor(ocr, llm, testPolicy(0), testLogger())

	results := p.Run(context.Background(), files)

	assert.Equal(t, 2, ocr.callCount())
	assert.Zero(t, llm.callCount())
	assert.Equal(t, constants.StatusOCRDone, results[0].Status)
	assert.Equal(t, constants.StatusOCRDone, results[1].Status)
	assert.Equal(t, constants.StatusPending, results[2].Status)
	assert.Equal(t, constants.StatusPending, results[3].Status)
}

func TestRun_ContextCancellationStopsRun(t *testing.T) {
	files := makeFiles(4)
	ctx, cancel := context.WithCancel(context.Background())
	ocr := &stubOCR{}
	ocr.fn = func(path string) (string, error) {
		if ocr.callCount() == 1 {
			cancel()
		}
		return "raw:" + path, nil
	}
	llm := &stubLLM{}
	p := NewProcessor(ocr, llm, testPolicy(0), testLogger())

	results := p.Run(ctx, files)

	assert.Equal(t, 1, ocr.callCount())
	assert.Zero(t, llm.callCount())
	assert.Equal(t, constants.StatusPending, results[3].Status)
}

func TestRun_PauseSuspendsAndResumeContinues(t *testing.T) {
	files := makeFiles(3)
	ocr := &stubOCR{}
	llm := &stubLLM{}
	p := NewProcessor(ocr, llm, testPolicy(0), testLogger(),
		WithPauseTick(2*time.Millisecond))
	p.Pause()

	done := make(chan []Result, 1)
	go func() { done <- p.Run(context.Background(), files) }()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, ocr.callCount(), "no operations start while paused")

	p.Resume()
	select {
	case results := <-done:
		require.Len(t, results, 3)
		for _, r := range results {
			assert.Equal(t, constants.StatusCleaned, r.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after resume")
	}
	assert.Equal(t, 3, ocr.callCount())
}

func TestRun_ProgressEventsCoverBothStages(t *testing.T) {
	files := makeFiles(4)
	var mu sync.Mutex
	var events []ProgressEvent
	p := NewProcessor(&stubOCR{}, &stubLLM{}, testPolicy(0), testLogger(),
		WithBatchSize(2),
		WithProgress(func(ev ProgressEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}))

	p.Run(context.Background(), files)

	mu.Lock()
	defer mu.Unlock()
	var ocrDone, cleanDone int
	for _, ev := range events {
		switch ev.Stage {
		case StageOCR:
			ocrDone = ev.Done
			assert.Contains(t, ev.Message, "OCR")
		case StageClean:
			cleanDone = ev.Done
		}
	}
	assert.Equal(t, 4, ocrDone)
	assert.Equal(t, 4, cleanDone)
}

func TestRun_StatsSummary(t *testing.T) {
	files := makeFiles(2)
	p := NewProcessor(&stubOCR{}, &stubLLM{}, testPolicy(0), testLogger())

	p.Run(context.Background(), files)

	summary := p.Stats().Summary()
	assert.True(t, strings.HasPrefix(summary, "processed 2 files: 2 succeeded"), summary)
}
