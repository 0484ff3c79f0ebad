package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/quizboard/pkg/metrics"
)

// snapshot is an immutable view of one run with O(1) slug lookups.
type snapshot struct {
	run    Run
	bySlug map[string]int
}

// MemoryStore keeps the latest run behind an atomic pointer. Readers never block writers.
type MemoryStore struct {
	snapshot atomic.Pointer[snapshot]
	settings settings
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{settings: defaultSettings()}
	for _, opt := range opts {
		opt(&s.settings)
	}
	return s
}

// Save publishes run as the latest snapshot.
func (s *MemoryStore) Save(ctx context.Context, run Run) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("save", float64(time.Since(start).Milliseconds()))
	}()

	bySlug := make(map[string]int, len(run.Entries))
	for i, e := range run.Entries {
		bySlug[e.Slug] = i
	}
	s.snapshot.Store(&snapshot{run: run, bySlug: bySlug})
	s.settings.logger.Debug(ctx, "run stored", loggerRunFields(run)...)
	return nil
}

// Latest returns the latest run.
func (s *MemoryStore) Latest(_ context.Context) (Run, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return Run{}, ErrNoRun
	}
	return snap.run, nil
}

// QuizIDs returns the quiz columns of the latest run.
func (s *MemoryStore) QuizIDs(_ context.Context) ([]string, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrNoRun
	}
	return append([]string(nil), snap.run.QuizIDs...), nil
}

// TopN returns the top N entries ordered by total desc.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("top_n", float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordError("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrNoRun
	}
	if n > len(snap.run.Entries) {
		n = len(snap.run.Entries)
	}
	out := make([]Entry, n)
	copy(out, snap.run.Entries[:n])
	return out, nil
}

// Rank returns the current rank and total for a slug in O(1).
func (s *MemoryStore) Rank(_ context.Context, slug string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank", float64(time.Since(start).Milliseconds()))
	}()

	snap := s.snapshot.Load()
	if snap == nil {
		return Entry{}, ErrNoRun
	}
	i, ok := snap.bySlug[slug]
	if !ok {
		metrics.RecordError("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return snap.run.Entries[i], nil
}

// Count returns the number of entries in the latest run.
func (s *MemoryStore) Count(_ context.Context) int {
	snap := s.snapshot.Load()
	if snap == nil {
		return 0
	}
	return len(snap.run.Entries)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
