package bradleyterry

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/duel/pkg/logger"
)

// Default fit parameters.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
	initialStrength      = 1.0
)

// StrengthMap maps a competitor to its fitted strength.
//
// Only ratios are meaningful: the model is invariant to multiplying every
// strength by the same constant and the estimator does not pin the scale.
type StrengthMap map[string]float64

// Probability returns the modelled probability that i beats j,
// s_i / (s_i + s_j). When both strengths are zero the model carries no
// information and 0.5 is returned.
func (s StrengthMap) Probability(i, j string) (float64, error) {
	si, ok := s[i]
	if !ok {
		return 0, fmt.Errorf("%q: %w", i, ErrUnknownCompetitor)
	}
	sj, ok := s[j]
	if !ok {
		return 0, fmt.Errorf("%q: %w", j, ErrUnknownCompetitor)
	}
	if si+sj == 0 {
		return 0.5, nil
	}
	return si / (si + sj), nil
}

// Result is the outcome of a fit.
type Result struct {
	Strengths  StrengthMap
	Iterations int  // rounds actually run
	Converged  bool // false when the iteration budget ran out first
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithMaxIterations bounds the number of rounds. Values below 1 make Fit
// fail with ErrInvalidInput.
func WithMaxIterations(n int) Option {
	return func(e *Estimator) {
		e.maxIterations = n
	}
}

// WithTolerance sets the per-competitor convergence threshold. Values that
// are not strictly positive make Fit fail with ErrInvalidInput.
func WithTolerance(tol float64) Option {
	return func(e *Estimator) {
		e.tolerance = tol
	}
}

// WithLogger attaches a logger. Without one the estimator is silent.
func WithLogger(l logger.Logger) Option {
	return func(e *Estimator) {
		e.logger = l
	}
}

// Estimator fits Bradley–Terry strengths. It holds configuration only, so a
// single Estimator may be shared by concurrent callers.
type Estimator struct {
	maxIterations int
	tolerance     float64
	logger        logger.Logger
}

// NewEstimator returns an Estimator with the default budget and tolerance.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		maxIterations: DefaultMaxIterations,
		tolerance:     DefaultTolerance,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit is a convenience wrapper around NewEstimator(...).Fit.
func Fit(ms *MatchSet, maxIterations int, tolerance float64) (Result, error) {
	return NewEstimator(
		WithMaxIterations(maxIterations),
		WithTolerance(tolerance),
	).Fit(context.Background(), ms)
}

// Fit runs iterative proportional scaling over ms.
//
// Every competitor starts at 1.0. Each round builds a complete new map from
// the previous round's values only:
//
//	s_i' = wins_i / Σ_{matches m involving i} s_i / (s_i + s_opp(m))
//
// A competitor whose expected wins are zero keeps its previous strength. The
// fit stops as soon as no strength moved by more than the tolerance, or after
// the iteration budget, in which case Result.Converged is false.
//
// A competitor that never won is driven to exactly zero after the first
// round, the boundary of the likelihood. A self-paired match counts as a win
// and contributes one pairing of i against itself (probability 0.5).
// Convergence is only guaranteed when the win graph is strongly connected;
// otherwise strengths may drift or stall, and that is reported as-is.
func (e *Estimator) Fit(ctx context.Context, ms *MatchSet) (Result, error) {
	if e.maxIterations < 1 {
		return Result{}, fmt.Errorf("max iterations %d: %w", e.maxIterations, ErrInvalidInput)
	}
	if !(e.tolerance > 0) {
		return Result{}, fmt.Errorf("tolerance %v: %w", e.tolerance, ErrInvalidInput)
	}

	names := ms.Competitors()
	if len(names) == 0 {
		return Result{Strengths: StrengthMap{}, Converged: true}, nil
	}

	g := newGraph(ms, names)
	prev := make([]float64, len(names))
	next := make([]float64, len(names))
	for i := range prev {
		prev[i] = initialStrength
	}

	for round := 1; round <= e.maxIterations; round++ {
		converged := g.step(prev, next, e.tolerance)
		prev, next = next, prev
		if converged {
			e.debug(ctx, "bradley-terry fit converged", len(names), ms.Len(), round)
			return Result{Strengths: toMap(names, prev), Iterations: round, Converged: true}, nil
		}
	}

	if e.logger != nil {
		e.logger.Warn(ctx, "bradley-terry fit did not converge",
			logger.Int("competitors", len(names)),
			logger.Int("matches", ms.Len()),
			logger.Int("maxIterations", e.maxIterations),
			logger.Float64("tolerance", e.tolerance),
		)
	}
	return Result{Strengths: toMap(names, prev), Iterations: e.maxIterations}, nil
}

func (e *Estimator) debug(ctx context.Context, msg string, competitors, matches, rounds int) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(ctx, msg,
		logger.Int("competitors", competitors),
		logger.Int("matches", matches),
		logger.Int("iterations", rounds),
	)
}

// graph is the per-fit adjacency: for each competitor index, the opponent
// index of every match involving it, in match order.
type graph struct {
	opponents [][]int
	wins      []float64
}

func newGraph(ms *MatchSet, names []string) graph {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	g := graph{
		opponents: make([][]int, len(names)),
		wins:      make([]float64, len(names)),
	}
	for _, m := range ms.matches {
		w, l := index[m.Winner], index[m.Loser]
		g.wins[w]++
		g.opponents[w] = append(g.opponents[w], l)
		if w != l {
			g.opponents[l] = append(g.opponents[l], w)
		}
	}
	return g
}

// step computes one round into next from prev and reports whether no value
// moved by more than tol.
func (g graph) step(prev, next []float64, tol float64) bool {
	converged := true
	for i, opponents := range g.opponents {
		si := prev[i]
		expected := 0.0
		for _, j := range opponents {
			if d := si + prev[j]; d > 0 {
				expected += si / d
			}
		}
		if expected > 0 {
			next[i] = g.wins[i] / expected
		} else {
			next[i] = si
		}
		if math.Abs(next[i]-si) > tol {
			converged = false
		}
	}
	return converged
}

func toMap(names []string, values []float64) StrengthMap {
	out := make(StrengthMap, len(names))
	for i, n := range names {
		out[n] = values[i]
	}
	return out
}
