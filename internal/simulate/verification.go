package simulate

import (
	"math"
	"sort"

	bt "github.com/okian/duel/internal/domain/bradleyterry"
)

// Spearman returns the rank correlation between fitted and true strengths
// over the competitors present in both. It returns NaN when fewer than two
// competitors are shared or either side has no variance. Ties get the
// average of the ranks they span.
func Spearman(fitted, truth bt.StrengthMap) float64 {
	names := make([]string, 0, len(fitted))
	for n := range fitted {
		if _, ok := truth[n]; ok {
			names = append(names, n)
		}
	}
	if len(names) < 2 {
		return math.NaN()
	}
	sort.Strings(names)

	x := make([]float64, len(names))
	y := make([]float64, len(names))
	for i, n := range names {
		x[i], y[i] = fitted[n], truth[n]
	}
	return pearson(averageRanks(x), averageRanks(y))
}

func averageRanks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	ranks := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// standings joins a fitted ranking with the hidden strengths.
func standings(ranked []bt.Ranked, truth bt.StrengthMap, limit int) []Standing {
	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]Standing, limit)
	for i, r := range ranked[:limit] {
		out[i] = Standing{Rank: r.Rank, Competitor: r.Competitor, Fitted: r.Strength, True: truth[r.Competitor]}
	}
	return out
}
