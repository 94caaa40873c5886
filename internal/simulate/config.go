// Package simulate drives the duel service with votes drawn from hidden
// true strengths and measures how well the fitted ranking recovers them.
package simulate

import (
	"errors"
	"fmt"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL        string        // Base URL of the service; unused when Offline
	CatalogPath    string        // Catalog CSV; required when Offline
	Votes          int           // Number of votes to cast
	Workers        int           // Concurrent HTTP workers
	Timeout        time.Duration // HTTP request timeout
	SettleTimeout  time.Duration // How long to wait for queued votes to be recorded
	Seed           uint64        // Seed for true strengths and vote outcomes
	Spread         float64       // Standard deviation of log true strength
	DuplicateRate  float64       // Fraction of votes re-sent with the same id
	MinCorrelation float64       // Run fails when Spearman correlation is lower
	Offline        bool          // Fit locally instead of talking to a server
	OutputFile     string        // Optional JSON dump of the cast votes
}

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:9080"
	DefaultVotes          = 2000
	DefaultTimeout        = 10 * time.Second
	DefaultSettleTimeout  = 30 * time.Second
	DefaultSpread         = 1.0
	DefaultMinCorrelation = 0.5
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Validate checks the run parameters.
func (c *Config) Validate() error {
	switch {
	case c.Votes < 1:
		return fmt.Errorf("votes must be positive, got %d: %w", c.Votes, ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d: %w", c.Workers, ErrInvalidConfig)
	case c.Spread < 0:
		return fmt.Errorf("spread must not be negative: %w", ErrInvalidConfig)
	case c.DuplicateRate < 0 || c.DuplicateRate > 1:
		return fmt.Errorf("duplicate rate %v outside [0,1]: %w", c.DuplicateRate, ErrInvalidConfig)
	case c.Offline && c.CatalogPath == "":
		return fmt.Errorf("offline runs need a catalog: %w", ErrInvalidConfig)
	case !c.Offline && c.BaseURL == "":
		return fmt.Errorf("online runs need a base url: %w", ErrInvalidConfig)
	}
	return nil
}

// Vote is one ballot as posted to /api/vote.
type Vote struct {
	VoteID string `json:"vote_id"`
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// Stats holds run statistics.
type Stats struct {
	VotesCast      int
	VotesAccepted  int
	VotesDuplicate int
	VotesFailed    int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// Report is the outcome of a run.
type Report struct {
	Stats       Stats
	Competitors int
	Iterations  int
	Converged   bool
	Correlation float64 // Spearman rank correlation of fitted vs true strength
	Top         []Standing
}

// Standing pairs a fitted rank with the hidden strength behind it.
type Standing struct {
	Rank       int
	Competitor string
	Fitted     float64
	True       float64
}
