package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/okian/duel/pkg/metrics"
)

const (
	defaultRedisKey = "votes"
	fieldWinner     = "winner:"
	fieldLoser      = ":loser:"
)

// RedisStore keeps tallies in a single Redis hash, one field per ordered
// pair, so concurrent instances share state through HINCRBY.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects using a redis:// URL and checks the connection.
func NewRedisStore(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	s := NewRedisStoreFromClient(redis.NewClient(ro), opts...)
	if err := s.client.Ping(ctx).Err(); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: defaultRedisKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func pairField(k PairKey) string {
	return fieldWinner + k.Winner + fieldLoser + k.Loser
}

func parseField(f string) (PairKey, error) {
	rest, ok := strings.CutPrefix(f, fieldWinner)
	if !ok {
		return PairKey{}, fmt.Errorf("%q: %w", f, ErrCorruptKey)
	}
	winner, loser, ok := strings.Cut(rest, fieldLoser)
	if !ok || winner == "" || loser == "" {
		return PairKey{}, fmt.Errorf("%q: %w", f, ErrCorruptKey)
	}
	return PairKey{Winner: winner, Loser: loser}, nil
}

// Record implements VoteStore.
func (s *RedisStore) Record(ctx context.Context, k PairKey) error {
	if err := k.validate(); err != nil {
		return err
	}
	if strings.Contains(k.Winner, fieldLoser) {
		return fmt.Errorf("%+v: %w", k, ErrInvalidPair)
	}
	if err := s.client.HIncrBy(ctx, s.key, pairField(k), 1).Err(); err != nil {
		metrics.RecordStoreError("redis", "record")
		return fmt.Errorf("hincrby %s: %w", s.key, err)
	}
	return nil
}

// Counts implements VoteStore.
func (s *RedisStore) Counts(ctx context.Context) (map[PairKey]int64, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		metrics.RecordStoreError("redis", "counts")
		return nil, fmt.Errorf("hgetall %s: %w", s.key, err)
	}
	out := make(map[PairKey]int64, len(raw))
	for f, v := range raw {
		k, err := parseField(f)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q=%q: %w", f, v, ErrCorruptKey)
		}
		if n > 0 {
			out[k] = n
		}
	}
	return out, nil
}

// Total implements VoteStore.
func (s *RedisStore) Total(ctx context.Context) (int64, error) {
	counts, err := s.Counts(ctx)
	if err != nil {
		return 0, err
	}
	return sum(counts), nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements VoteStore.
func (s *RedisStore) Close(_ context.Context) error {
	return s.client.Close()
}
