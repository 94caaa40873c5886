package service

import (
	"time"

	"github.com/okian/duel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of vote recording workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the vote queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many vote ids are remembered for idempotency.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFitLimits sets the iteration budget and convergence tolerance.
func WithFitLimits(maxIterations int, tolerance float64) Option {
	return func(s *Service) {
		s.maxIterations = maxIterations
		s.tolerance = tolerance
	}
}

// WithRankingsCacheTTL bounds how long a fit is reused. Zero disables the
// cache.
func WithRankingsCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMaxRankingsLimit caps the number of entries Rankings returns.
func WithMaxRankingsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRankingsLimit = n
		}
	}
}

// WithIncludeIdle makes every catalog competitor part of the fit, including
// those nobody has voted on yet. They keep the initial strength.
func WithIncludeIdle(include bool) Option {
	return func(s *Service) {
		s.includeIdle = include
	}
}

// WithSeed makes Pair deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.seed = &seed
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
