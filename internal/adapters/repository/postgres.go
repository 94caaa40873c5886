package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/duel/pkg/metrics"
)

//go:embed schema.sql
var schema string

// PostgresStore keeps tallies in a votes(winner, loser, count) table.
type PostgresStore struct {
	pool    *pgxpool.Pool
	migrate bool
}

// NewPostgresStore opens a pool for dsn and, unless disabled, creates the
// votes table.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &PostgresStore{pool: pool, migrate: true}
	for _, opt := range opts {
		opt(s)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if s.migrate {
		if _, err := pool.Exec(ctx, schema); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate votes table: %w", err)
		}
	}
	return s, nil
}

// Record implements VoteStore.
func (s *PostgresStore) Record(ctx context.Context, k PairKey) error {
	if err := k.validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO votes(winner, loser, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (winner, loser) DO UPDATE
		   SET count = votes.count + 1,
		       updated_at = now()
	`, k.Winner, k.Loser)
	if err != nil {
		metrics.RecordStoreError("postgres", "record")
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

// Counts implements VoteStore.
func (s *PostgresStore) Counts(ctx context.Context) (map[PairKey]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT winner, loser, count FROM votes WHERE count > 0`)
	if err != nil {
		metrics.RecordStoreError("postgres", "counts")
		return nil, fmt.Errorf("select votes: %w", err)
	}
	defer rows.Close()

	out := make(map[PairKey]int64)
	for rows.Next() {
		var k PairKey
		var n int64
		if err := rows.Scan(&k.Winner, &k.Loser, &n); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		out[k] = n
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("postgres", "counts")
		return nil, fmt.Errorf("iterate votes: %w", err)
	}
	return out, nil
}

// Total implements VoteStore.
func (s *PostgresStore) Total(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(count), 0)::BIGINT FROM votes`).Scan(&n); err != nil {
		metrics.RecordStoreError("postgres", "total")
		return 0, fmt.Errorf("sum votes: %w", err)
	}
	return n, nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements VoteStore.
func (s *PostgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}
