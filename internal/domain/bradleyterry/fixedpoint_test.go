package bradleyterry

import (
	"math"
	"testing"
)

// A converged fit is a fixed point: one more round moves nothing by more
// than the tolerance.
func TestFixedPoint(t *testing.T) {
	var matches []Match
	add := func(w, l string, n int) {
		for i := 0; i < n; i++ {
			matches = append(matches, Match{Winner: w, Loser: l})
		}
	}
	add("A", "B", 2)
	add("B", "C", 1)
	add("C", "B", 1)
	add("C", "A", 1)
	add("A", "C", 1)

	ms, err := NewMatchSet(matches)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := Fit(ms, DefaultMaxIterations, DefaultTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence, ran %d rounds", res.Iterations)
	}

	names := ms.Competitors()
	prev := make([]float64, len(names))
	for i, n := range names {
		prev[i] = res.Strengths[n]
	}
	next := make([]float64, len(names))
	if !newGraph(ms, names).step(prev, next, DefaultTolerance) {
		t.Fatal("expected the converged map to be a fixed point")
	}
	for i := range prev {
		if d := math.Abs(next[i] - prev[i]); d > DefaultTolerance {
			t.Errorf("%s moved by %g", names[i], d)
		}
	}
}
