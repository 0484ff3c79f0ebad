// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"time"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// DefaultQuizIDs are the weekly quizzes of the current season.
var DefaultQuizIDs = []string{ //nolint:gochecknoglobals // default list
	"week-1-key-sovereignty",
	"week-2-x9-extended-key-usage",
	"week-3-protocols",
	"week-4-acme",
	"week-5-trustcore",
	"week-6-dns",
	"week-7-tlm-part-1",
	"week-8-cert-central-part-1",
	"week-9-dns-part-2",
	"week-10-software-trust",
	"week-11-tlm-part-2",
	"week-12-compliance-dates",
	"week-13-root-strategy",
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatabaseURL is the realtime database root; quiz boards live under /leaderboard/<quiz>.json.
	DatabaseURL string `koanf:"database_url"`
	// AuthToken is appended as ?auth= when set.
	AuthToken string `koanf:"auth_token"`
	// QuizIDs fixes the quizzes fetched and the report column order.
	QuizIDs []string `koanf:"quiz_ids"`
	// SnapshotFile reads a JSON export instead of fetching when set.
	SnapshotFile string `koanf:"snapshot_file"`

	FetchTimeoutMS    int `koanf:"fetch_timeout_ms"`
	FetchAttempts     int `koanf:"fetch_attempts"`
	FetchRetryDelayMS int `koanf:"fetch_retry_delay_ms"`

	// RefreshIntervalS re-runs the pipeline periodically; 0 disables the ticker.
	RefreshIntervalS int `koanf:"refresh_interval_s"`

	// Store selects the run history backend: memory or sqlite.
	Store      string `koanf:"store"`
	SQLitePath string `koanf:"sqlite_path"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// FoldAccents strips diacritics before slugging names.
	FoldAccents bool `koanf:"fold_accents"`

	HighSimilarityThreshold      float64 `koanf:"high_similarity_threshold"`
	AdvisorySimilarityThreshold  float64 `koanf:"advisory_similarity_threshold"`
	FirstNameSimilarityThreshold float64 `koanf:"first_name_similarity_threshold"`
	MinFirstNameLength           int     `koanf:"min_first_name_length"`

	// Canonical name weights.
	CanonicalFullLastNameWeight float64 `koanf:"canonical_full_last_name_weight"`
	CanonicalTokenWeight        float64 `koanf:"canonical_token_weight"`
	CanonicalNameLengthWeight   float64 `koanf:"canonical_name_length_weight"`
	CanonicalQuizWeight         float64 `koanf:"canonical_quiz_weight"`
	CanonicalTotalDivisor       float64 `koanf:"canonical_total_divisor"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                     "info",
		LogFormat:                    "text",
		Addr:                         ":9080",
		DatabaseURL:                  "https://digicert-product-quiz-default-rtdb.firebaseio.com",
		QuizIDs:                      append([]string(nil), DefaultQuizIDs...),
		FetchTimeoutMS:               10_000,
		FetchAttempts:                3,
		FetchRetryDelayMS:            500,
		RefreshIntervalS:             300,
		Store:                        StoreMemory,
		SQLitePath:                   "quizboard.db",
		MaxLeaderboardLimit:          500,
		HighSimilarityThreshold:      0.85,
		AdvisorySimilarityThreshold:  0.6,
		FirstNameSimilarityThreshold: 0.8,
		MinFirstNameLength:           4,
		CanonicalFullLastNameWeight:  1000,
		CanonicalTokenWeight:         10,
		CanonicalNameLengthWeight:    1,
		CanonicalQuizWeight:          2,
		CanonicalTotalDivisor:        1000,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case len(c.QuizIDs) == 0:
		return fmt.Errorf("%w: quiz_ids must not be empty", ErrInvalidConfig)
	case c.DatabaseURL == "" && c.SnapshotFile == "":
		return fmt.Errorf("%w: one of database_url or snapshot_file is required", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StoreSQLite:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Store == StoreSQLite && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.FetchAttempts <= 0:
		return fmt.Errorf("%w: fetch_attempts must be positive", ErrInvalidConfig)
	case c.RefreshIntervalS < 0:
		return fmt.Errorf("%w: refresh_interval_s must not be negative", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{
		"high_similarity_threshold":       c.HighSimilarityThreshold,
		"advisory_similarity_threshold":   c.AdvisorySimilarityThreshold,
		"first_name_similarity_threshold": c.FirstNameSimilarityThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	return nil
}

// FetchTimeout returns the per-request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// FetchRetryDelay returns the base delay between fetch attempts.
func (c *Config) FetchRetryDelay() time.Duration {
	return time.Duration(c.FetchRetryDelayMS) * time.Millisecond
}

// RefreshInterval returns the refresh period, zero when disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalS) * time.Second
}
