package bradleyterry_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	bt "github.com/okian/duel/internal/domain/bradleyterry"
	"github.com/okian/duel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func mustSet(matches []bt.Match) *bt.MatchSet {
	ms, err := bt.NewMatchSet(matches)
	if err != nil {
		panic(err)
	}
	return ms
}

func TestFit_Validation(t *testing.T) {
	Convey("Given a small match set", t, func() {
		ms := mustSet(repeat("A", "B", 1))

		Convey("When max iterations is below one", func() {
			_, err := bt.Fit(ms, 0, bt.DefaultTolerance)
			Convey("Then fit fails with invalid input", func() {
				So(errors.Is(err, bt.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When tolerance is not strictly positive", func() {
			for _, tol := range []float64{0, -1e-6, math.NaN()} {
				_, err := bt.Fit(ms, bt.DefaultMaxIterations, tol)
				So(errors.Is(err, bt.ErrInvalidInput), ShouldBeTrue)
			}
		})
	})
}

func TestFit_Properties(t *testing.T) {
	Convey("Given an empty match set", t, func() {
		res, err := bt.Fit(mustSet(nil), bt.DefaultMaxIterations, bt.DefaultTolerance)

		Convey("Then the strength map is empty", func() {
			So(err, ShouldBeNil)
			So(res.Strengths, ShouldBeEmpty)
			So(bt.Rank(res.Strengths), ShouldBeEmpty)
		})
	})

	Convey("Given a symmetric three-way cycle", t, func() {
		ms := mustSet(repeat("A", "B", 5, "B", "C", 5, "C", "A", 5))
		res, err := bt.Fit(ms, bt.DefaultMaxIterations, bt.DefaultTolerance)

		Convey("Then all strengths are equal", func() {
			So(err, ShouldBeNil)
			So(res.Converged, ShouldBeTrue)
			So(res.Strengths["A"], ShouldAlmostEqual, res.Strengths["B"], bt.DefaultTolerance)
			So(res.Strengths["B"], ShouldAlmostEqual, res.Strengths["C"], bt.DefaultTolerance)
		})
	})

	Convey("Given a dominant pair", t, func() {
		ms := mustSet(repeat("A", "B", 100))
		res, err := bt.Fit(ms, bt.DefaultMaxIterations, bt.DefaultTolerance)
		So(err, ShouldBeNil)

		Convey("Then the winner is almost certain to beat the loser", func() {
			p, err := res.Strengths.Probability("A", "B")
			So(err, ShouldBeNil)
			So(p, ShouldBeGreaterThan, 0.95)
			So(res.Strengths["A"], ShouldBeGreaterThan, res.Strengths["B"])
		})

		Convey("And the winless competitor collapses to zero", func() {
			So(res.Converged, ShouldBeTrue)
			So(res.Iterations, ShouldEqual, 3)
			So(res.Strengths["A"], ShouldAlmostEqual, 1.0, eps)
			So(res.Strengths["B"], ShouldEqual, 0)
		})
	})

	Convey("Given one-sided dominance inside a connected graph", t, func() {
		ms := mustSet(repeat("A", "B", 2, "B", "C", 1, "C", "B", 1, "C", "A", 1, "A", "C", 1))
		res, err := bt.Fit(ms, bt.DefaultMaxIterations, bt.DefaultTolerance)

		Convey("Then the dominant competitor is stronger", func() {
			So(err, ShouldBeNil)
			So(res.Converged, ShouldBeTrue)
			So(res.Strengths["A"], ShouldBeGreaterThan, res.Strengths["B"])
		})

		Convey("And every competitor with a win is strictly positive", func() {
			for _, c := range ms.Competitors() {
				So(res.Strengths[c], ShouldBeGreaterThan, 0)
			}
		})

		Convey("And probabilities are complementary", func() {
			names := ms.Competitors()
			for _, i := range names {
				for _, j := range names {
					if i == j {
						continue
					}
					pij, err := res.Strengths.Probability(i, j)
					So(err, ShouldBeNil)
					pji, err := res.Strengths.Probability(j, i)
					So(err, ShouldBeNil)
					So(pij+pji, ShouldAlmostEqual, 1.0, eps)
				}
			}
		})
	})

	Convey("Given a one-directional chain", t, func() {
		ms := mustSet(repeat("A", "B", 1, "B", "C", 1))
		res, err := bt.Fit(ms, bt.DefaultMaxIterations, bt.DefaultTolerance)

		Convey("Then the fit settles without normalising the scale", func() {
			So(err, ShouldBeNil)
			So(res.Converged, ShouldBeTrue)
			So(res.Strengths["A"], ShouldAlmostEqual, 1.5, eps)
			So(res.Strengths["B"], ShouldAlmostEqual, 0.75, eps)
			So(res.Strengths["C"], ShouldEqual, 0)
		})
	})

	Convey("Given an idle roster competitor", t, func() {
		ms, err := bt.NewMatchSetWithRoster([]string{"Z"}, repeat("A", "B", 3, "B", "A", 1))
		So(err, ShouldBeNil)

		Convey("Then it keeps its initial strength", func() {
			for _, n := range []int{1, 2, 7, 100} {
				res, err := bt.Fit(ms, n, bt.DefaultTolerance)
				So(err, ShouldBeNil)
				So(res.Strengths["Z"], ShouldEqual, 1.0)
			}
		})
	})

	Convey("Given a self-paired match among regular ones", t, func() {
		ms := mustSet(repeat("A", "A", 1, "A", "B", 1, "B", "A", 1))
		res, err := bt.Fit(ms, bt.DefaultMaxIterations, bt.DefaultTolerance)

		Convey("Then it is passed through as an extra win", func() {
			So(err, ShouldBeNil)
			So(res.Converged, ShouldBeTrue)
			So(res.Strengths["A"], ShouldBeGreaterThan, res.Strengths["B"])
		})
	})
}

func TestFit_NonConvergence(t *testing.T) {
	Convey("Given two competitors with a lopsided record", t, func() {
		ms := mustSet(repeat("A", "B", 3, "B", "A", 1))

		Convey("When the budget is a single round", func() {
			res, err := bt.Fit(ms, 1, bt.DefaultTolerance)
			Convey("Then the first round is returned unconverged", func() {
				So(err, ShouldBeNil)
				So(res.Converged, ShouldBeFalse)
				So(res.Iterations, ShouldEqual, 1)
				So(res.Strengths["A"], ShouldAlmostEqual, 1.5, eps)
				So(res.Strengths["B"], ShouldAlmostEqual, 0.5, eps)
			})
		})

		Convey("When the budget is exhausted", func() {
			var buf bytes.Buffer
			est := bt.NewEstimator(
				bt.WithMaxIterations(2),
				bt.WithLogger(logger.New(logger.WithWriter(&buf))),
			)
			res, err := est.Fit(context.Background(), ms)

			Convey("Then the last map is returned and the condition is logged", func() {
				So(err, ShouldBeNil)
				So(res.Converged, ShouldBeFalse)
				So(res.Iterations, ShouldEqual, 2)
				So(res.Strengths["A"], ShouldAlmostEqual, 1.0, eps)
				So(res.Strengths["B"], ShouldAlmostEqual, 1.0, eps)
				So(buf.String(), ShouldContainSubstring, "did not converge")
			})
		})
	})
}

func TestFit_Determinism(t *testing.T) {
	Convey("Given identical input fitted twice", t, func() {
		matches := repeat("A", "B", 3, "A", "C", 2, "C", "A", 1, "B", "C", 2, "C", "B", 1, "B", "D", 2, "D", "B", 1, "D", "A", 1, "A", "D", 1)
		first, err := bt.Fit(mustSet(matches), bt.DefaultMaxIterations, bt.DefaultTolerance)
		So(err, ShouldBeNil)
		second, err := bt.Fit(mustSet(matches), bt.DefaultMaxIterations, bt.DefaultTolerance)
		So(err, ShouldBeNil)

		Convey("Then the outputs are bit-identical", func() {
			So(second.Iterations, ShouldEqual, first.Iterations)
			for c, v := range first.Strengths {
				So(math.Float64bits(second.Strengths[c]), ShouldEqual, math.Float64bits(v))
			}
		})
	})
}

func TestStrengthMap_Probability(t *testing.T) {
	Convey("Given a strength map", t, func() {
		s := bt.StrengthMap{"A": 3, "B": 1, "C": 0, "D": 0}

		Convey("Then probability is the strength ratio", func() {
			p, err := s.Probability("A", "B")
			So(err, ShouldBeNil)
			So(p, ShouldAlmostEqual, 0.75, eps)
		})

		Convey("And two zero strengths give an even chance", func() {
			p, err := s.Probability("C", "D")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, 0.5)
		})

		Convey("And an unknown competitor is reported", func() {
			_, err := s.Probability("A", "Nowhere")
			So(errors.Is(err, bt.ErrUnknownCompetitor), ShouldBeTrue)
			_, err = s.Probability("Nowhere", "A")
			So(errors.Is(err, bt.ErrUnknownCompetitor), ShouldBeTrue)
		})
	})
}
