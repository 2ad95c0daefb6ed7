package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// RunStats aggregates run-level counters. All mutation goes through the
// mutex; workers may update it concurrently.
type RunStats struct {
	mu sync.Mutex

	TotalFiles int
	Succeeded  int
	Empty      int
	Failed     int

	StartedAt  time.Time
	FinishedAt time.Time
}

func newRunStats(total int) *RunStats {
	return &RunStats{TotalFiles: total, StartedAt: time.Now()}
}

func (s *RunStats) addSucceeded(n int) {
	s.mu.Lock()
	s.Succeeded += n
	s.mu.Unlock()
}

func (s *RunStats) addEmpty(n int) {
	s.mu.Lock()
	s.Empty += n
	s.mu.Unlock()
}

func (s *RunStats) addFailed(n int) {
	s.mu.Lock()
	s.Failed += n
	s.mu.Unlock()
}

func (s *RunStats) finish() {
	s.mu.Lock()
	s.FinishedAt = time.Now()
	s.mu.Unlock()
}

// Totals is a plain copy of the counters, safe to pass around.
type Totals struct {
	TotalFiles int
	Succeeded  int
	Empty      int
	Failed     int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Snapshot returns a copy safe to read while a run is in flight.
func (s *RunStats) Snapshot() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Totals{
		TotalFiles: s.TotalFiles,
		Succeeded:  s.Succeeded,
		Empty:      s.Empty,
		Failed:     s.Failed,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

// Elapsed returns the run duration so far (or total, once finished).
func (s *RunStats) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}

// Summary renders a one-line human-readable result summary.
func (s *RunStats) Summary() string {
	snap := s.Snapshot()
	return fmt.Sprintf("processed %d files: %d succeeded, %d empty, %d failed in %s",
		snap.TotalFiles, snap.Succeeded, snap.Empty, snap.Failed, s.Elapsed().Round(100*time.Millisecond))
}
