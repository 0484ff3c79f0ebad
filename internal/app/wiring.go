package service

import (
	"context"
	"fmt"

	"github.com/okian/quizboard/internal/adapters/repository"
	"github.com/okian/quizboard/internal/adapters/source"
	"github.com/okian/quizboard/internal/config"
	"github.com/okian/quizboard/internal/domain/aggregate"
	"github.com/okian/quizboard/internal/domain/dedupe"
	"github.com/okian/quizboard/internal/domain/leaderboard"
	"github.com/okian/quizboard/internal/domain/names"
	"github.com/okian/quizboard/internal/domain/scoring"
	"github.com/okian/quizboard/pkg/logger"
)

// NewEngine builds the pipeline with the thresholds and weights of cfg. Every stage shares
// one normalizer so slugs and name parts agree.
func NewEngine(cfg *config.Config) *leaderboard.Engine {
	norm := names.New(names.WithAccentFolding(cfg.FoldAccents))
	return leaderboard.New(
		leaderboard.WithAggregator(aggregate.New(aggregate.WithNormalizer(norm))),
		leaderboard.WithDetector(dedupe.New(
			dedupe.WithHighThreshold(cfg.HighSimilarityThreshold),
			dedupe.WithAdvisoryThreshold(cfg.AdvisorySimilarityThreshold),
			dedupe.WithFirstNameThreshold(cfg.FirstNameSimilarityThreshold),
			dedupe.WithMinFirstNameLength(cfg.MinFirstNameLength),
			dedupe.WithNormalizer(norm),
		)),
		leaderboard.WithSelector(scoring.New(
			scoring.WithWeights(scoring.Weights{
				FullLastName: cfg.CanonicalFullLastNameWeight,
				TokenCount:   cfg.CanonicalTokenWeight,
				NameLength:   cfg.CanonicalNameLengthWeight,
				QuizCount:    cfg.CanonicalQuizWeight,
				TotalDivisor: cfg.CanonicalTotalDivisor,
			}),
			scoring.WithNormalizer(norm),
		)),
	)
}

// NewSource returns the export file reader when snapshot_file is set, else the
// realtime database fetcher.
func NewSource(cfg *config.Config, log logger.Logger) source.Source {
	if cfg.SnapshotFile != "" {
		return source.NewFile(cfg.SnapshotFile,
			source.WithFileQuizIDs(cfg.QuizIDs),
			source.WithFileLogger(log.Named("source")),
		)
	}
	return source.NewFirebase(cfg.DatabaseURL, cfg.QuizIDs,
		source.WithAuthToken(cfg.AuthToken),
		source.WithTimeout(cfg.FetchTimeout()),
		source.WithRetry(cfg.FetchAttempts, cfg.FetchRetryDelay()),
		source.WithLogger(log.Named("source")),
	)
}

// OpenStore opens the run history backend selected by cfg.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := repository.OpenSQLite(ctx, cfg.SQLitePath, repository.WithLogger(log.Named("store")))
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		return s, nil
	default:
		return repository.NewMemoryStore(repository.WithLogger(log.Named("store"))), nil
	}
}
