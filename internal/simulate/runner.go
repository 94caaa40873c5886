package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/duel/internal/adapters/catalog"
	bt "github.com/okian/duel/internal/domain/bradleyterry"
	"github.com/okian/duel/pkg/logger"
)

const (
	directoryPermission = 0o750
	settlePollInterval  = 100 * time.Millisecond
	reportTop           = 10
)

// ErrPoorRecovery is returned when the fitted ranking correlates with the
// true strengths less than Config.MinCorrelation.
var ErrPoorRecovery = errors.New("fitted ranking does not recover true strengths")

// ErrNotSettled is returned when queued votes are not all recorded within
// Config.SettleTimeout.
var ErrNotSettled = errors.New("votes not recorded before settle timeout")

// Run executes one simulation and returns its report. The report is
// returned alongside ErrPoorRecovery so callers can still print it.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info(ctx, "starting duel simulation",
		logger.Bool("offline", cfg.Offline),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("votes", cfg.Votes),
		logger.Int("workers", cfg.Workers),
		logger.Float64("spread", cfg.Spread),
		logger.Int64("seed", int64(cfg.Seed)),
	)

	oracle := NewOracle(cfg.Seed, cfg.Spread)
	stats := Stats{StartTime: time.Now()}

	var (
		votes  []Vote
		report *Report
		err    error
	)
	if cfg.Offline {
		votes, report, err = runOffline(ctx, cfg, oracle, log)
	} else {
		votes, report, err = runOnline(ctx, cfg, oracle, &stats, log)
	}
	if err != nil {
		return nil, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	report.Stats = stats

	if cfg.OutputFile != "" {
		if err := saveVotes(cfg.OutputFile, votes); err != nil {
			log.Warn(ctx, "failed to save votes", logger.String("file", cfg.OutputFile), logger.Error(err))
		} else {
			log.Info(ctx, "votes saved", logger.String("file", cfg.OutputFile), logger.Int("count", len(votes)))
		}
	}

	log.Info(ctx, "simulation finished",
		logger.Int("competitors", report.Competitors),
		logger.Int("iterations", report.Iterations),
		logger.Bool("converged", report.Converged),
		logger.Float64("spearman", report.Correlation),
		logger.Duration("duration", stats.Duration),
	)
	if math.IsNaN(report.Correlation) || report.Correlation < cfg.MinCorrelation {
		return report, fmt.Errorf("spearman %.3f below %.3f: %w", report.Correlation, cfg.MinCorrelation, ErrPoorRecovery)
	}
	return report, nil
}

func runOffline(ctx context.Context, cfg *Config, oracle *Oracle, log logger.Logger) ([]Vote, *Report, error) {
	cat, err := catalog.Load(ctx, cfg.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	names := cat.Names()
	oracle.Seed(names)

	votes, err := oracle.GenerateVotes(names, cfg.Votes)
	if err != nil {
		return nil, nil, err
	}
	matches := make([]bt.Match, len(votes))
	for i, v := range votes {
		matches[i] = bt.Match{Winner: v.Winner, Loser: v.Loser}
	}
	ms, err := bt.NewMatchSetWithRoster(names, matches)
	if err != nil {
		return nil, nil, fmt.Errorf("build match set: %w", err)
	}
	res, err := bt.NewEstimator(bt.WithLogger(log.Named("estimator"))).Fit(ctx, ms)
	if err != nil {
		return nil, nil, fmt.Errorf("fit: %w", err)
	}

	truth := oracle.Truth()
	return votes, &Report{
		Competitors: len(res.Strengths),
		Iterations:  res.Iterations,
		Converged:   res.Converged,
		Correlation: Spearman(res.Strengths, truth),
		Top:         standings(bt.Rank(res.Strengths), truth, reportTop),
	}, nil
}

func runOnline(ctx context.Context, cfg *Config, oracle *Oracle, stats *Stats, log logger.Logger) ([]Vote, *Report, error) {
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, nil, fmt.Errorf("service health check failed: %w", err)
	}

	// The store may already hold votes from earlier runs.
	baseline, err := client.Rankings(ctx, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch rankings: %w", err)
	}

	votes, err := castVotes(ctx, cfg, client, oracle, stats, log)
	if err != nil {
		return nil, nil, err
	}
	if err := waitSettled(ctx, client, baseline.Votes+int64(stats.VotesAccepted), cfg.SettleTimeout); err != nil {
		return nil, nil, err
	}

	r, err := client.Rankings(ctx, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch rankings: %w", err)
	}
	fitted := make(bt.StrengthMap, len(r.Entries))
	ranked := make([]bt.Ranked, len(r.Entries))
	for i, e := range r.Entries {
		fitted[e.Competitor] = e.Strength
		ranked[i] = bt.Ranked{Rank: e.Rank, Competitor: e.Competitor, Strength: e.Strength}
	}

	truth := oracle.Truth()
	return votes, &Report{
		Competitors: r.Competitors,
		Iterations:  r.Iterations,
		Converged:   r.Converged,
		Correlation: Spearman(fitted, truth),
		Top:         standings(ranked, truth, reportTop),
	}, nil
}

// castVotes runs cfg.Workers goroutines that each draw a pair from the
// service, let the oracle pick the winner and post the vote.
func castVotes(ctx context.Context, cfg *Config, client *Client, oracle *Oracle, stats *Stats, log logger.Logger) ([]Vote, error) {
	var (
		accepted, duplicate, failed atomic.Int64
		mu                          sync.Mutex
		wg                          sync.WaitGroup
	)
	cast := make([]Vote, 0, cfg.Votes)

	jobs := make(chan struct{}, cfg.Workers*2)
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				a, b, err := client.Pair(ctx)
				if err != nil {
					failed.Add(1)
					log.Debug(ctx, "pair failed", logger.Error(err))
					continue
				}
				w, l := oracle.Decide(a, b)
				v := Vote{VoteID: uuid.NewString(), Winner: w, Loser: l}

				switch out, err := client.Vote(ctx, v); out {
				case OutcomeAccepted:
					accepted.Add(1)
					mu.Lock()
					cast = append(cast, v)
					mu.Unlock()
				case OutcomeDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
					log.Debug(ctx, "vote failed", logger.Error(err))
					continue
				}

				if oracle.Duplicate(cfg.DuplicateRate) {
					if out, _ := client.Vote(ctx, v); out == OutcomeDuplicate {
						duplicate.Add(1)
					} else {
						failed.Add(1)
					}
				}
			}
		}()
	}

send:
	for range cfg.Votes {
		select {
		case <-ctx.Done():
			break send
		case jobs <- struct{}{}:
		}
	}
	close(jobs)
	wg.Wait()

	stats.VotesCast = cfg.Votes
	stats.VotesAccepted = int(accepted.Load())
	stats.VotesDuplicate = int(duplicate.Load())
	stats.VotesFailed = int(failed.Load())
	log.Info(ctx, "vote submission completed",
		logger.Int("accepted", stats.VotesAccepted),
		logger.Int("duplicate", stats.VotesDuplicate),
		logger.Int("failed", stats.VotesFailed),
	)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("vote submission cancelled: %w", err)
	}
	return cast, nil
}

// waitSettled polls the rankings until the store holds at least want votes.
func waitSettled(ctx context.Context, client *Client, want int64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for {
		r, err := client.Rankings(ctx, 1)
		if err != nil {
			return fmt.Errorf("fetch rankings: %w", err)
		}
		if r.Votes >= want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%d of %d votes recorded: %w", r.Votes, want, ErrNotSettled)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func saveVotes(filename string, votes []Vote) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(votes); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode votes: %w", err)
	}
	return f.Close()
}
