package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/duel/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.RedisKey, convey.ShouldEqual, "votes")
			convey.So(cfg.MaxIterations, convey.ShouldEqual, 100)
			convey.So(cfg.Tolerance, convey.ShouldEqual, 1e-6)
			convey.So(cfg.RankingsCacheTTL(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.IncludeIdle, convey.ShouldBeFalse)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := []func(c *config.Config){
			func(c *config.Config) { c.Addr = " " },
			func(c *config.Config) { c.MaxIterations = 0 },
			func(c *config.Config) { c.Tolerance = 0 },
			func(c *config.Config) { c.RankingsCacheTTLMS = -1 },
			func(c *config.Config) { c.MaxRankingsLimit = 0 },
			func(c *config.Config) { c.CatalogPath = "" },
			func(c *config.Config) { c.LogFormat = "xml" },
			func(c *config.Config) { c.Store = "mongo" },
			func(c *config.Config) { c.Store = config.StoreRedis },
			func(c *config.Config) { c.Store = config.StorePostgres },
		}
		for _, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})

	convey.Convey("Given store selection mistakes", t, func() {
		cfg := config.New()
		cfg.Store = "mongo"
		convey.So(errors.Is(cfg.Validate(), config.ErrUnknownStore), convey.ShouldBeTrue)

		cfg.Store = config.StorePostgres
		convey.So(errors.Is(cfg.Validate(), config.ErrMissingStoreAddress), convey.ShouldBeTrue)
	})

	convey.Convey("Given a redis store with a url", t, func() {
		cfg := config.New()
		cfg.Store = config.StoreRedis
		cfg.RedisURL = "redis://localhost:6379/0"

		convey.Convey("Then it validates", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
