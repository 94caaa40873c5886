// Package bradleyterry fits Bradley–Terry strengths to pairwise win/loss
// observations and ranks competitors by the fitted strength.
//
// The model: for competitors i and j with strengths s_i and s_j, the
// probability that i beats j is s_i / (s_i + s_j). Strengths are estimated by
// iterative proportional scaling, the minorization-maximization scheme for the
// Bradley–Terry log-likelihood.
package bradleyterry

import (
	"fmt"
	"iter"
	"sort"
)

// Match is a single observation: Winner beat Loser.
// A match where Winner == Loser is accepted as-is; see Estimator.Fit.
type Match struct {
	Winner string
	Loser  string
}

// MatchSet is an immutable collection of matches plus the derived set of
// competitors. The zero value is an empty set.
type MatchSet struct {
	matches     []Match
	competitors []string // sorted, distinct
	wins        map[string]int
}

// NewMatchSet copies matches into a new MatchSet. The only validation is
// structural: both identifiers must be non-empty.
func NewMatchSet(matches []Match) (*MatchSet, error) {
	return NewMatchSetWithRoster(nil, matches)
}

// NewMatchSetWithRoster is NewMatchSet plus a roster of competitors that
// take part even without any match. Idle roster entries keep the initial
// strength through any fit.
func NewMatchSetWithRoster(roster []string, matches []Match) (*MatchSet, error) {
	ms := &MatchSet{
		matches: make([]Match, len(matches)),
		wins:    make(map[string]int),
	}
	seen := make(map[string]struct{})
	for _, c := range roster {
		if c == "" {
			return nil, fmt.Errorf("roster: empty competitor: %w", ErrInvalidInput)
		}
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			ms.competitors = append(ms.competitors, c)
		}
	}
	for i, m := range matches {
		if m.Winner == "" || m.Loser == "" {
			return nil, fmt.Errorf("match %d: empty competitor: %w", i, ErrInvalidInput)
		}
		ms.matches[i] = m
		ms.wins[m.Winner]++
		for _, c := range [2]string{m.Winner, m.Loser} {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				ms.competitors = append(ms.competitors, c)
			}
		}
	}
	sort.Strings(ms.competitors)
	return ms, nil
}

// Len returns the number of matches.
func (ms *MatchSet) Len() int {
	if ms == nil {
		return 0
	}
	return len(ms.matches)
}

// Matches returns a copy of the matches in insertion order.
func (ms *MatchSet) Matches() []Match {
	if ms == nil {
		return nil
	}
	out := make([]Match, len(ms.matches))
	copy(out, ms.matches)
	return out
}

// Competitors returns every identifier that appears as a winner or loser,
// sorted ascending.
func (ms *MatchSet) Competitors() []string {
	if ms == nil {
		return nil
	}
	out := make([]string, len(ms.competitors))
	copy(out, ms.competitors)
	return out
}

// WinCount returns the number of matches c won.
func (ms *MatchSet) WinCount(c string) int {
	if ms == nil {
		return 0
	}
	return ms.wins[c]
}

// MatchesInvolving yields, in insertion order, every match where c is the
// winner or the loser. A self-paired match is yielded once.
func (ms *MatchSet) MatchesInvolving(c string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		if ms == nil {
			return
		}
		for _, m := range ms.matches {
			if m.Winner != c && m.Loser != c {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}
