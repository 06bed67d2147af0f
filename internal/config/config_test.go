package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/skillgrade/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then server and queue settings are sensible", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.CorpusLimit, convey.ShouldEqual, 500)
		})

		convey.Convey("Then the scoring policy matches the product rules", func() {
			convey.So(cfg.HintPenaltyPoints, convey.ShouldEqual, 3)
			convey.So(cfg.MaxHints, convey.ShouldEqual, 3)
			convey.So(cfg.ExactCopyThreshold, convey.ShouldEqual, 0.95)
			convey.So(cfg.ExactCopyCap, convey.ShouldEqual, 50)
			convey.So(cfg.HighRiskMultiplier, convey.ShouldEqual, 0.85)
			convey.So(cfg.CorpusMinSamples, convey.ShouldEqual, 3)
			convey.So(cfg.ModelTiers, convey.ShouldHaveLength, 3)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with a broken scoring policy", t, func() {
		cfg := config.New()

		convey.Convey("Unknown store drivers are rejected", func() {
			cfg.StoreDriver = "postgres"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("MySQL without a DSN is rejected", func() {
			cfg.StoreDriver = config.StoreMySQL
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("An exact-copy threshold above one is rejected", func() {
			cfg.ExactCopyThreshold = 1.2
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A zero validation weight is rejected", func() {
			cfg.WeightValidation = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A corpus minimum below one is rejected", func() {
			cfg.CorpusMinSamples = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("An exact-copy cap above fifty is rejected", func() {
			cfg.ExactCopyCap = 90
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A negative exact-copy cap is rejected", func() {
			cfg.ExactCopyCap = -1
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A high-risk multiplier above one is rejected", func() {
			cfg.HighRiskMultiplier = 1.5
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A high-similarity threshold above the exact-copy threshold is rejected", func() {
			cfg.HighSimilarityThreshold = 0.97
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A cap of exactly fifty and a unit multiplier are accepted", func() {
			cfg.ExactCopyCap = 50
			cfg.HighRiskMultiplier = 1
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
