// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/quizboard/internal/adapters/repository"
	"github.com/okian/quizboard/internal/adapters/source"
	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/pkg/logger"
	"github.com/okian/quizboard/pkg/metrics"
)

// Service periodically fetches a snapshot, runs the pipeline and stores the result.
type Service struct {
	mu        sync.RWMutex
	refreshMu sync.Mutex // one pipeline run at a time

	// Core components
	source source.Source
	store  repository.Store
	engine *leaderboard.Engine

	// Configuration
	refreshInterval time.Duration

	// State
	latest      *leaderboard.Result
	lastErr     error
	lastRefresh time.Time
	refreshes   int
	started     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the snapshot source.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithStore sets the run history store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEngine sets the pipeline engine.
func WithEngine(e *leaderboard.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithRefreshInterval sets how often Start refreshes in the background. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		store:  repository.NewMemoryStore(),
		engine: leaderboard.New(),
		stopCh: make(chan struct{}),
		logger: nil, // Will be replaced when service starts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the first refresh and, when an interval is set, keeps refreshing until
// Stop or ctx cancellation. A failed first refresh is logged, not returned.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.source == nil {
		s.mu.Unlock()
		return ErrNoSource
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info(ctx, "starting leaderboard service...",
		logger.Duration("refreshInterval", s.refreshInterval))

	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "initial refresh incomplete", logger.Error(err))
	}

	if s.refreshInterval > 0 {
		s.wg.Add(1)
		go s.refreshLoop(ctx)
	}

	s.logger.Info(ctx, "leaderboard service started")
	return nil
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Warn(ctx, "scheduled refresh incomplete", logger.Error(err))
			}
		}
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping leaderboard service...")
	s.wg.Wait()

	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "close store", logger.Error(err))
	}
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

// Refresh fetches a snapshot, runs the pipeline and stores the merged board.
//
// A partial snapshot still produces a result; the fetch error is returned next to it so
// callers can report missing quizzes. A nil result means nothing was stored.
func (s *Service) Refresh(ctx context.Context) (*leaderboard.Result, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	select {
	case <-s.stopCh:
		return nil, ErrStopped
	default:
	}

	log := s.log()
	start := time.Now()

	snap, fetchErr := s.source.Fetch(ctx)
	if err := ctx.Err(); err != nil {
		metrics.RecordRunError()
		s.setError(err)
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if fetchErr != nil && !snap.Acquired() {
		// the previous run stays published
		metrics.RecordRunError()
		s.setError(fetchErr)
		log.Error(ctx, "no quiz could be fetched", logger.Error(fetchErr))
		return nil, fmt.Errorf("%w: %w", ErrNoData, fetchErr)
	}

	res := s.engine.Run(snap)
	run := repository.NewRun(res.RunID, res.GeneratedAt, res.QuizIDs, res.Merged)
	if err := s.store.Save(ctx, run); err != nil {
		metrics.RecordRunError()
		s.setError(err)
		log.Error(ctx, "store run failed", logger.String("run_id", res.RunID), logger.Error(err))
		return nil, fmt.Errorf("store run %s: %w", res.RunID, err)
	}

	elapsed := time.Since(start)
	metrics.RecordRun(metrics.RunSummary{
		Entries:        res.Stats.Entries,
		Identities:     res.Stats.Identities,
		EdgesByMethod:  res.Stats.EdgesByMethod,
		Advisory:       res.Stats.Advisory,
		Clusters:       res.Stats.Clusters,
		Merged:         res.Stats.Merged,
		MergedAway:     res.Stats.MergedAway,
		MissingQuizzes: res.Stats.MissingQuizzes,
		DurationMs:     float64(elapsed.Milliseconds()),
		FinishedUnix:   time.Now().Unix(),
	})

	s.mu.Lock()
	s.latest = res
	s.lastErr = fetchErr
	s.lastRefresh = res.GeneratedAt
	s.refreshes++
	s.mu.Unlock()

	log.Info(ctx, "leaderboard refreshed",
		logger.String("run_id", res.RunID),
		logger.Int("entries", res.Stats.Entries),
		logger.Int("identities", res.Stats.Identities),
		logger.Int("edges", res.Stats.Edges),
		logger.Int("merged", res.Stats.Merged),
		logger.Int("missingQuizzes", res.Stats.MissingQuizzes),
		logger.Duration("took", elapsed),
	)
	if errors.Is(fetchErr, source.ErrAuthRequired) {
		log.Warn(ctx, "some quizzes require an auth token", logger.Any("missing", res.MissingQuizzes))
	}
	return res, fetchErr
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}

// Latest returns the most recent result, or nil before the first refresh.
func (s *Service) Latest() *leaderboard.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// QuizIDs returns the quiz columns of the stored leaderboard.
func (s *Service) QuizIDs(ctx context.Context) ([]string, error) {
	return s.store.QuizIDs(ctx)
}

// TopN returns the top N merged leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns the merged leaderboard entry for slug.
func (s *Service) Rank(ctx context.Context, slug string) (repository.Entry, error) {
	return s.store.Rank(ctx, slug)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"refreshInterval": s.refreshInterval.String(),
		"refreshes":       s.refreshes,
		"storedEntries":   s.store.Count(context.Background()),
	}
	if s.lastErr != nil {
		stats["lastError"] = s.lastErr.Error()
	}
	if s.latest != nil {
		st := s.latest.Stats
		stats["runId"] = s.latest.RunID
		stats["lastRefresh"] = s.lastRefresh.Format(time.RFC3339)
		stats["quizzes"] = st.Quizzes
		stats["missingQuizzes"] = s.latest.MissingQuizzes
		stats["entries"] = st.Entries
		stats["missingScores"] = st.MissingScores
		stats["fallbackKeys"] = st.FallbackKeys
		stats["identities"] = st.Identities
		stats["edges"] = st.Edges
		stats["edgesByMethod"] = st.EdgesByMethod
		stats["advisory"] = st.Advisory
		stats["clusters"] = st.Clusters
		stats["merged"] = st.Merged
		stats["mergedAway"] = st.MergedAway
	}
	return stats
}
