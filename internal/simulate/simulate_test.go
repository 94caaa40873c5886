package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/duel/internal/adapters/catalog"
	"github.com/okian/duel/internal/adapters/http/api"
	"github.com/okian/duel/internal/adapters/repository"
	service "github.com/okian/duel/internal/app"
	bt "github.com/okian/duel/internal/domain/bradleyterry"
	"github.com/okian/duel/pkg/logger"
)

const catalogPath = "../../data/suburbs.csv"

func TestOracle(t *testing.T) {
	Convey("Given two oracles with the same seed", t, func() {
		names := []string{"a", "b", "c", "d"}
		o1, o2 := NewOracle(42, 1), NewOracle(42, 1)
		o1.Seed(names)
		o2.Seed(names)

		Convey("Then they assign the same strengths and votes", func() {
			So(o1.Truth(), ShouldResemble, o2.Truth())
			v1, err := o1.GenerateVotes(names, 50)
			So(err, ShouldBeNil)
			v2, _ := o2.GenerateVotes(names, 50)
			for i := range v1 {
				So(v1[i].Winner, ShouldEqual, v2[i].Winner)
				So(v1[i].Loser, ShouldEqual, v2[i].Loser)
				So(v1[i].Winner, ShouldNotEqual, v1[i].Loser)
			}
		})
	})

	Convey("Given an oracle with a lopsided truth", t, func() {
		o := NewOracle(1, 1)
		o.truth = bt.StrengthMap{"strong": 9, "weak": 1}

		Convey("Then the strong side wins about 90% of duels", func() {
			wins := 0
			for range 5000 {
				if w, _ := o.Decide("weak", "strong"); w == "strong" {
					wins++
				}
			}
			So(float64(wins)/5000, ShouldAlmostEqual, 0.9, 0.03)
		})
	})

	Convey("Given fewer than two names", t, func() {
		_, err := NewOracle(1, 1).GenerateVotes([]string{"solo"}, 3)
		So(err, ShouldEqual, ErrTooFewCompetitors)
	})

	Convey("Given a zero duplicate rate", t, func() {
		So(NewOracle(1, 1).Duplicate(0), ShouldBeFalse)
	})
}

func TestSpearman(t *testing.T) {
	Convey("Given strength maps", t, func() {
		truth := bt.StrengthMap{"a": 4, "b": 3, "c": 2, "d": 1}

		Convey("Then identical orderings correlate perfectly", func() {
			So(Spearman(bt.StrengthMap{"a": 40, "b": 30, "c": 20, "d": 10}, truth), ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("Then reversed orderings anti-correlate perfectly", func() {
			So(Spearman(bt.StrengthMap{"a": 1, "b": 2, "c": 3, "d": 4}, truth), ShouldAlmostEqual, -1.0, 1e-12)
		})

		Convey("Then ties get averaged ranks", func() {
			So(averageRanks([]float64{5, 1, 5, 0}), ShouldResemble, []float64{3.5, 2, 3.5, 1})
		})

		Convey("Then only shared competitors are compared", func() {
			So(Spearman(bt.StrengthMap{"a": 2, "b": 1, "zz": 100}, truth), ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("Then degenerate inputs give NaN", func() {
			So(math.IsNaN(Spearman(bt.StrengthMap{"a": 1}, truth)), ShouldBeTrue)
			So(math.IsNaN(Spearman(bt.StrengthMap{"a": 1, "b": 1}, truth)), ShouldBeTrue)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given simulation configs", t, func() {
		valid := func() *Config {
			return &Config{BaseURL: DefaultBaseURL, Votes: 10, Workers: 1, Spread: 1}
		}

		Convey("Then a complete config passes", func() {
			So(valid().Validate(), ShouldBeNil)
		})

		Convey("Then broken fields are rejected", func() {
			breakers := []func(*Config){
				func(c *Config) { c.Votes = 0 },
				func(c *Config) { c.Workers = 0 },
				func(c *Config) { c.Spread = -1 },
				func(c *Config) { c.DuplicateRate = 1.5 },
				func(c *Config) { c.BaseURL = "" },
				func(c *Config) { c.Offline = true },
			}
			for _, b := range breakers {
				c := valid()
				b(c)
				So(errors.Is(c.Validate(), ErrInvalidConfig), ShouldBeTrue)
			}
		})
	})
}

func TestRunOffline(t *testing.T) {
	Convey("Given an offline run over the bundled catalog", t, func() {
		out := filepath.Join(t.TempDir(), "votes", "cast.json")
		cfg := &Config{
			CatalogPath:    catalogPath,
			Votes:          2000,
			Workers:        1,
			Seed:           3,
			Spread:         1,
			MinCorrelation: DefaultMinCorrelation,
			Offline:        true,
			OutputFile:     out,
		}

		report, err := Run(context.Background(), cfg, logger.Nop())

		Convey("Then the fit recovers the hidden order", func() {
			So(err, ShouldBeNil)
			So(report.Competitors, ShouldEqual, 16)
			So(report.Converged, ShouldBeTrue)
			So(report.Correlation, ShouldBeGreaterThan, DefaultMinCorrelation)
			So(report.Top, ShouldHaveLength, reportTop)
			So(report.Top[0].Rank, ShouldEqual, 1)
		})

		Convey("Then the cast votes are written out", func() {
			raw, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			var votes []Vote
			So(json.Unmarshal(raw, &votes), ShouldBeNil)
			So(votes, ShouldHaveLength, 2000)
		})
	})

	Convey("Given an impossible correlation bar", t, func() {
		cfg := &Config{CatalogPath: catalogPath, Votes: 200, Workers: 1, Seed: 3, Spread: 1, MinCorrelation: 1.1, Offline: true}

		Convey("Then the report is returned with ErrPoorRecovery", func() {
			report, err := Run(context.Background(), cfg, logger.Nop())
			So(errors.Is(err, ErrPoorRecovery), ShouldBeTrue)
			So(report, ShouldNotBeNil)
		})
	})
}

func TestRunOnline(t *testing.T) {
	Convey("Given a running duel API", t, func() {
		ctx := context.Background()
		cat, err := catalog.Load(ctx, catalogPath)
		So(err, ShouldBeNil)
		svc := service.New(cat, repository.NewMemoryStore(),
			service.WithLogger(logger.Nop()),
			service.WithWorkerCount(2),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the simulator casts votes against it", func() {
			cfg := &Config{
				BaseURL:        srv.URL,
				Votes:          300,
				Workers:        4,
				Timeout:        DefaultTimeout,
				SettleTimeout:  5 * time.Second,
				Seed:           11,
				Spread:         1.5,
				DuplicateRate:  0.2,
				MinCorrelation: -1,
			}
			report, err := Run(ctx, cfg, logger.Nop())

			Convey("Then every vote is accepted and recorded", func() {
				So(err, ShouldBeNil)
				So(report.Stats.VotesAccepted, ShouldEqual, 300)
				So(report.Stats.VotesFailed, ShouldEqual, 0)
				So(report.Stats.VotesDuplicate, ShouldBeGreaterThan, 0)
				So(report.Competitors, ShouldBeGreaterThan, 1)
				So(report.Top[0].Rank, ShouldEqual, 1)
			})
		})
	})

	Convey("Given no server", t, func() {
		cfg := &Config{BaseURL: "http://127.0.0.1:1", Votes: 1, Workers: 1, Timeout: time.Second}

		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), cfg, logger.Nop())
			So(err, ShouldNotBeNil)
		})
	})
}
