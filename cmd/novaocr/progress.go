package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/novaocr/novaocr/internal/pipeline"
)

// stageBars renders one progress bar per pipeline stage on stderr. Events
// arrive serially from the processor but finish() may race with a late
// render, so state is guarded anyway.
type stageBars struct {
	mu      sync.Mutex
	current pipeline.Stage
	bar     *progressbar.ProgressBar
}

func newStageBars() *stageBars {
	return &stageBars{}
}

func (s *stageBars) observe(ev pipeline.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Stage != s.current || s.bar == nil {
		if s.bar != nil {
			_ = s.bar.Finish()
		}
		s.current = ev.Stage
		s.bar = newBar(ev.Total, stageLabel(ev.Stage))
	}
	_ = s.bar.Set(ev.Done)
}

func (s *stageBars) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar != nil {
		_ = s.bar.Finish()
		s.bar = nil
	}
}

func stageLabel(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageOCR:
		return "Extracting text"
	case pipeline.StageClean:
		return "Cleaning text"
	default:
		return "Writing output"
	}
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}
