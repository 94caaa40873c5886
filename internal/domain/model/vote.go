// Package model contains domain models passed between layers.
package model

import "time"

// Vote is one pairwise judgement submitted by a client: Winner was preferred
// over Loser.
type Vote struct {
	VoteID string    // unique id for idempotency
	Winner string    // preferred competitor
	Loser  string    // other competitor
	TS     time.Time // time the vote was accepted
}
