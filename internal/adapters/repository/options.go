package repository

import "github.com/okian/quizboard/pkg/logger"

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	logger    logger.Logger
	retention int
}

func defaultSettings() settings {
	return settings{logger: logger.Nop(), retention: 10}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRetention sets how many runs the SQLite store keeps. Older runs are pruned on save.
func WithRetention(runs int) Option {
	return func(s *settings) {
		if runs > 0 {
			s.retention = runs
		}
	}
}
