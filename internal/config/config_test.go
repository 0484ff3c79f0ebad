package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/quizboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given default configuration", t, func() {
		cfg := config.New()

		convey.Convey("Then the defaults are usable as is", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QuizIDs, convey.ShouldHaveLength, 13)
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.HighSimilarityThreshold, convey.ShouldEqual, 0.85)
			convey.So(cfg.AdvisorySimilarityThreshold, convey.ShouldEqual, 0.6)
			convey.So(cfg.CanonicalFullLastNameWeight, convey.ShouldEqual, 1000)
			convey.So(cfg.FetchTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.FetchRetryDelay(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.RefreshInterval(), convey.ShouldEqual, 5*time.Minute)
		})

		convey.Convey("Then the default quiz list is a copy", func() {
			cfg.QuizIDs[0] = "changed"
			convey.So(config.DefaultQuizIDs[0], convey.ShouldEqual, "week-1-key-sovereignty")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":          func(c *config.Config) { c.Addr = "" },
			"no quizzes":          func(c *config.Config) { c.QuizIDs = nil },
			"no source":           func(c *config.Config) { c.DatabaseURL = "" },
			"unknown store":       func(c *config.Config) { c.Store = "redis" },
			"sqlite without path": func(c *config.Config) { c.Store = config.StoreSQLite; c.SQLitePath = "" },
			"zero limit":          func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			"zero attempts":       func(c *config.Config) { c.FetchAttempts = 0 },
			"negative refresh":    func(c *config.Config) { c.RefreshIntervalS = -1 },
			"high above one":      func(c *config.Config) { c.HighSimilarityThreshold = 1.5 },
			"advisory below zero": func(c *config.Config) { c.AdvisorySimilarityThreshold = -0.1 },
			"first name above one": func(c *config.Config) {
				c.FirstNameSimilarityThreshold = 2
			},
		}

		for name, mutate := range cases {
			convey.Convey("When "+name, func() {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When only a snapshot file is configured", func() {
			cfg := config.New()
			cfg.DatabaseURL = ""
			cfg.SnapshotFile = "export.json"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
