// Package repository persists pairwise vote tallies.
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	bt "github.com/okian/duel/internal/domain/bradleyterry"
)

// PairKey identifies an ordered (winner, loser) pair.
type PairKey struct {
	Winner string
	Loser  string
}

func (k PairKey) validate() error {
	if strings.TrimSpace(k.Winner) == "" || strings.TrimSpace(k.Loser) == "" {
		return fmt.Errorf("%+v: %w", k, ErrInvalidPair)
	}
	return nil
}

// VoteStore accumulates how many times each ordered pair was voted for.
type VoteStore interface {
	// Record adds one vote for k.
	Record(ctx context.Context, k PairKey) error
	// Counts returns the tally of every pair that has at least one vote.
	Counts(ctx context.Context) (map[PairKey]int64, error)
	// Total returns the number of recorded votes.
	Total(ctx context.Context) (int64, error)
	// Close releases backend resources.
	Close(ctx context.Context) error
}

// Snapshot reads the tallies of s and expands them into one Match per vote.
// Pairs are emitted in (winner, loser) order so the result does not depend on
// backend iteration order.
func Snapshot(ctx context.Context, s VoteStore) ([]bt.Match, int64, error) {
	counts, err := s.Counts(ctx)
	if err != nil {
		return nil, 0, err
	}
	return expand(counts), sum(counts), nil
}

func expand(counts map[PairKey]int64) []bt.Match {
	keys := make([]PairKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Winner != keys[j].Winner {
			return keys[i].Winner < keys[j].Winner
		}
		return keys[i].Loser < keys[j].Loser
	})

	out := make([]bt.Match, 0, sum(counts))
	for _, k := range keys {
		for range counts[k] {
			out = append(out, bt.Match{Winner: k.Winner, Loser: k.Loser})
		}
	}
	return out
}

func sum(counts map[PairKey]int64) int64 {
	var n int64
	for _, c := range counts {
		n += c
	}
	return n
}
