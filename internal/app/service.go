// Package service wires the catalog, vote pipeline and Bradley–Terry fit
// into the operations the HTTP API exposes.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/duel/internal/adapters/catalog"
	votequeue "github.com/okian/duel/internal/adapters/mq/queue"
	workerpool "github.com/okian/duel/internal/adapters/mq/worker"
	"github.com/okian/duel/internal/adapters/repository"
	bt "github.com/okian/duel/internal/domain/bradleyterry"
	"github.com/okian/duel/internal/domain/dedupe"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/types"
	"github.com/okian/duel/pkg/logger"
	"github.com/okian/duel/pkg/metrics"
)

const (
	defaultQueueSize        = 10000
	defaultDedupeSize       = 50000
	defaultCacheTTL         = 5 * time.Second
	defaultMaxRankingsLimit = 1000
)

// VoteRequest is a client judgement. VoteID is optional; one is assigned
// when it is empty.
type VoteRequest struct {
	VoteID string
	Winner string
	Loser  string
}

// VoteAck acknowledges a submitted vote.
type VoteAck struct {
	VoteID    string
	Duplicate bool // already seen; nothing was queued
}

// fit is one cached Bradley–Terry run.
type fit struct {
	result     bt.Result
	ranked     []bt.Ranked
	votes      int64
	generation uint64
	computedAt time.Time
}

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	catalog   *catalog.Catalog
	store     repository.VoteStore
	deduper   dedupe.Deduper
	voteQueue *votequeue.InMemoryQueue
	pool      *workerpool.Pool
	estimator *bt.Estimator

	workerCount      int
	queueSize        int
	dedupeSize       int
	maxIterations    int
	tolerance        float64
	cacheTTL         time.Duration
	maxRankingsLimit int
	includeIdle      bool
	seed             *uint64

	rngMu sync.Mutex
	rng   *rand.Rand

	// admitMu makes the dedupe check and the enqueue one step, so a vote id
	// reported as a duplicate is always one that made it into the queue.
	admitMu sync.Mutex

	// generation advances each time a vote is written to the store.
	generation atomic.Uint64
	fitMu      sync.Mutex
	cached     atomic.Pointer[fit]

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service over a catalog and a vote store. The store is
// owned by the Service from here on and closed by Stop.
func New(cat *catalog.Catalog, store repository.VoteStore, opts ...Option) *Service {
	s := &Service{
		catalog:          cat,
		store:            store,
		workerCount:      runtime.NumCPU(),
		queueSize:        defaultQueueSize,
		dedupeSize:       defaultDedupeSize,
		maxIterations:    bt.DefaultMaxIterations,
		tolerance:        bt.DefaultTolerance,
		cacheTTL:         defaultCacheTTL,
		maxRankingsLimit: defaultMaxRankingsLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the vote pipeline and launches the workers. The workers are
// detached from ctx cancellation and run until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.catalog == nil || s.store == nil {
		return fmt.Errorf("catalog and store are required: %w", ErrNotStarted)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.estimator = bt.NewEstimator(
		bt.WithMaxIterations(s.maxIterations),
		bt.WithTolerance(s.tolerance),
		bt.WithLogger(s.logger.Named("bradley-terry")),
	)
	// Surface a bad budget now rather than on the first rankings request.
	if _, err := s.estimator.Fit(ctx, nil); err != nil {
		return fmt.Errorf("estimator: %w", err)
	}

	if s.seed != nil {
		s.rng = rand.New(rand.NewPCG(*s.seed, *s.seed))
	} else {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.voteQueue = votequeue.NewInMemoryQueue(votequeue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.voteQueue, s.store,
		workerpool.WithLogger(s.logger.Named("worker-pool")),
		workerpool.WithOnRecord(func(model.Vote) { s.generation.Add(1) }),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	metrics.UpdateCompetitors(s.catalog.Len())
	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("competitors", s.catalog.Len()),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("cacheTTL", s.cacheTTL),
	)
	return nil
}

// Stop drains queued votes into the store, then closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping ranking service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped", logger.Int64("recorded", s.pool.Recorded()))
	return errors.Join(errs...)
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Pair draws two distinct competitors for the next vote.
func (s *Service) Pair(_ context.Context) ([2]catalog.Competitor, error) {
	if !s.isStarted() {
		return [2]catalog.Competitor{}, ErrNotStarted
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.catalog.RandomPair(s.rng)
}

// SubmitVote validates a vote and queues it for recording.
func (s *Service) SubmitVote(ctx context.Context, req VoteRequest) (VoteAck, error) {
	if !s.isStarted() {
		return VoteAck{}, ErrNotStarted
	}
	winner, loser := strings.TrimSpace(req.Winner), strings.TrimSpace(req.Loser)
	switch {
	case winner == "" || loser == "":
		metrics.RecordVoteRejected("missing_competitor")
		return VoteAck{}, ErrMissingCompetitor
	case winner == loser:
		metrics.RecordVoteRejected("same_competitor")
		return VoteAck{}, ErrSameCompetitor
	case !s.catalog.Contains(winner):
		metrics.RecordVoteRejected("invalid_competitor")
		return VoteAck{}, fmt.Errorf("winner %q: %w", winner, ErrInvalidCompetitor)
	case !s.catalog.Contains(loser):
		metrics.RecordVoteRejected("invalid_competitor")
		return VoteAck{}, fmt.Errorf("loser %q: %w", loser, ErrInvalidCompetitor)
	}

	id := strings.TrimSpace(req.VoteID)
	if id == "" {
		id = uuid.NewString()
	}
	v := model.Vote{VoteID: id, Winner: winner, Loser: loser, TS: time.Now().UTC()}
	duplicate, queued := s.admit(ctx, v)
	switch {
	case duplicate:
		metrics.RecordVoteDuplicate()
		s.logger.Debug(ctx, "duplicate vote skipped", logger.String("voteID", id))
		return VoteAck{VoteID: id, Duplicate: true}, nil
	case !queued:
		metrics.RecordVoteRejected("backpressure")
		return VoteAck{}, ErrBackpressure
	}
	metrics.RecordVoteReceived()
	return VoteAck{VoteID: id}, nil
}

// admit records v's id and queues v under admitMu. Enqueue must not block.
// When the queue is full the id is forgotten again and the client may retry it.
func (s *Service) admit(ctx context.Context, v model.Vote) (duplicate, queued bool) {
	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	if s.deduper.SeenAndRecord(ctx, v.VoteID) {
		return true, false
	}
	if !s.voteQueue.Enqueue(ctx, v) {
		s.deduper.Unrecord(ctx, v.VoteID)
		return false, false
	}
	return false, true
}

// Rankings returns the current standings, best first. limit 0 means every
// competitor; larger limits are capped at the configured maximum.
func (s *Service) Rankings(ctx context.Context, limit int) (types.Rankings, error) {
	if limit < 0 {
		return types.Rankings{}, fmt.Errorf("limit %d: %w", limit, ErrInvalidLimit)
	}
	f, err := s.currentFit(ctx)
	if err != nil {
		return types.Rankings{}, err
	}

	if limit == 0 || limit > s.maxRankingsLimit {
		limit = s.maxRankingsLimit
	}
	n := min(len(f.ranked), limit)

	entries := make([]types.Entry, n)
	for i, r := range f.ranked[:n] {
		entries[i] = types.Entry{Rank: r.Rank, Competitor: r.Competitor, Strength: r.Strength}
	}
	return types.Rankings{
		Entries:     entries,
		Competitors: len(f.ranked),
		Votes:       f.votes,
		Iterations:  f.result.Iterations,
		Converged:   f.result.Converged,
		ComputedAt:  f.computedAt.Format(time.RFC3339Nano),
	}, nil
}

// Probability returns the modelled probability that a beats b.
func (s *Service) Probability(ctx context.Context, a, b string) (float64, error) {
	for _, c := range []string{a, b} {
		if !s.catalog.Contains(c) {
			return 0, fmt.Errorf("%q: %w", c, ErrInvalidCompetitor)
		}
	}
	f, err := s.currentFit(ctx)
	if err != nil {
		return 0, err
	}
	return f.result.Strengths.Probability(a, b)
}

// Shape returns the GeoJSON geometry of a competitor.
func (s *Service) Shape(_ context.Context, name string) (json.RawMessage, error) {
	shape, err := s.catalog.Shape(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCompetitor, err)
	}
	return shape, nil
}

// currentFit returns the cached fit while it is fresh, refitting otherwise.
// Concurrent callers share a single refit.
func (s *Service) currentFit(ctx context.Context) (*fit, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	if f := s.fresh(); f != nil {
		metrics.RecordRankingsCacheHit()
		return f, nil
	}

	s.fitMu.Lock()
	defer s.fitMu.Unlock()
	if f := s.fresh(); f != nil {
		metrics.RecordRankingsCacheHit()
		return f, nil
	}
	metrics.RecordRankingsCacheMiss()

	gen := s.generation.Load()
	matches, votes, err := repository.Snapshot(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("snapshot votes: %w", err)
	}
	var roster []string
	if s.includeIdle {
		roster = s.catalog.Names()
	}
	ms, err := bt.NewMatchSetWithRoster(roster, matches)
	if err != nil {
		return nil, fmt.Errorf("build match set: %w", err)
	}

	start := time.Now()
	res, err := s.estimator.Fit(ctx, ms)
	took := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	metrics.RecordFitDuration(float64(took.Microseconds()) / 1000)
	metrics.RecordFitIterations(res.Iterations)
	metrics.UpdateVotesTotal(votes)
	if !res.Converged {
		metrics.RecordFitNonConverged()
	}
	s.logger.Debug(ctx, "rankings refitted",
		logger.Int("competitors", len(res.Strengths)),
		logger.Int64("votes", votes),
		logger.Int("iterations", res.Iterations),
		logger.Bool("converged", res.Converged),
		logger.Duration("took", took),
	)

	f := &fit{
		result:     res,
		ranked:     bt.Rank(res.Strengths),
		votes:      votes,
		generation: gen,
		computedAt: time.Now().UTC(),
	}
	s.cached.Store(f)
	return f, nil
}

func (s *Service) fresh() *fit {
	f := s.cached.Load()
	if f == nil || s.cacheTTL <= 0 {
		return nil
	}
	if f.generation != s.generation.Load() || time.Since(f.computedAt) >= s.cacheTTL {
		return nil
	}
	return f
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"competitors": 0,
	}
	if s.catalog != nil {
		stats["competitors"] = s.catalog.Len()
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["queueLength"] = s.voteQueue.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	stats["recorded"] = s.pool.Recorded()
	if total, err := s.store.Total(ctx); err == nil {
		stats["votes"] = total
	}
	if f := s.cached.Load(); f != nil {
		stats["lastFit"] = map[string]any{
			"iterations": f.result.Iterations,
			"converged":  f.result.Converged,
			"votes":      f.votes,
			"computedAt": f.computedAt.Format(time.RFC3339Nano),
		}
	}
	return stats
}
