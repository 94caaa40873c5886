package service

import (
	"errors"

	bt "github.com/okian/duel/internal/domain/bradleyterry"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrMissingCompetitor = errors.New("winner and loser are required")
	ErrInvalidCompetitor = errors.New("competitor not in catalog")
	ErrSameCompetitor    = errors.New("winner and loser must differ")
	ErrBackpressure      = errors.New("vote queue is full")
	ErrInvalidLimit      = errors.New("invalid rankings limit")

	// ErrUnknownCompetitor is returned by Probability for a competitor the
	// current fit knows nothing about.
	ErrUnknownCompetitor = bt.ErrUnknownCompetitor
)
