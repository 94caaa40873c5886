package repository

import (
	"context"
	"sync"
)

// MemoryStore keeps tallies in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	counts map[PairKey]int64
	total  int64
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[PairKey]int64)}
}

// Record implements VoteStore.
func (s *MemoryStore) Record(ctx context.Context, k PairKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := k.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.counts[k]++
	s.total++
	return nil
}

// Counts implements VoteStore. The returned map is a copy.
func (s *MemoryStore) Counts(ctx context.Context) (map[PairKey]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[PairKey]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out, nil
}

// Total implements VoteStore.
func (s *MemoryStore) Total(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total, nil
}

// Close implements VoteStore.
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
