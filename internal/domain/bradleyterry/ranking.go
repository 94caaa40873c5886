package bradleyterry

import "sort"

// Ranked is one row of a ranking. Rank is 1-based.
type Ranked struct {
	Rank       int
	Competitor string
	Strength   float64
}

// Rank orders the competitors of s by strength descending, ties broken by
// identifier ascending, so any given map yields exactly one ordering.
func Rank(s StrengthMap) []Ranked {
	out := make([]Ranked, 0, len(s))
	for c, v := range s {
		out = append(out, Ranked{Competitor: c, Strength: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].Competitor < out[j].Competitor
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
