package simulate

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	bt "github.com/okian/duel/internal/domain/bradleyterry"
)

// ErrTooFewCompetitors is returned when fewer than two competitors are known.
var ErrTooFewCompetitors = errors.New("need at least two competitors")

// Oracle holds the hidden true strengths and decides vote outcomes from
// them. It is safe for concurrent use.
type Oracle struct {
	mu     sync.Mutex
	rng    *rand.Rand
	spread float64
	truth  bt.StrengthMap
}

// NewOracle returns an oracle seeded with seed. Strengths are log-normal
// with the given spread and are assigned the first time a name is seen.
func NewOracle(seed uint64, spread float64) *Oracle {
	return &Oracle{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		spread: spread,
		truth:  bt.StrengthMap{},
	}
}

// Seed assigns true strengths to names in order.
func (o *Oracle) Seed(names []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, n := range names {
		o.strengthLocked(n)
	}
}

func (o *Oracle) strengthLocked(name string) float64 {
	s, ok := o.truth[name]
	if !ok {
		s = math.Exp(o.rng.NormFloat64() * o.spread)
		o.truth[name] = s
	}
	return s
}

// Decide returns (winner, loser) for a duel between a and b, with a winning
// with probability s_a/(s_a+s_b).
func (o *Oracle) Decide(a, b string) (string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sa, sb := o.strengthLocked(a), o.strengthLocked(b)
	if o.rng.Float64()*(sa+sb) < sa {
		return a, b
	}
	return b, a
}

// Duplicate reports whether the next vote should be re-sent.
func (o *Oracle) Duplicate(rate float64) bool {
	if rate <= 0 {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Float64() < rate
}

// Truth returns a copy of the strengths assigned so far.
func (o *Oracle) Truth() bt.StrengthMap {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(bt.StrengthMap, len(o.truth))
	for k, v := range o.truth {
		out[k] = v
	}
	return out
}

// GenerateVotes draws n votes over uniformly random distinct pairs of names.
func (o *Oracle) GenerateVotes(names []string, n int) ([]Vote, error) {
	if len(names) < 2 {
		return nil, ErrTooFewCompetitors
	}
	votes := make([]Vote, n)
	for i := range n {
		o.mu.Lock()
		a := o.rng.IntN(len(names))
		b := o.rng.IntN(len(names) - 1)
		o.mu.Unlock()
		if b >= a {
			b++
		}
		w, l := o.Decide(names[a], names[b])
		votes[i] = Vote{VoteID: uuid.NewString(), Winner: w, Loser: l}
	}
	return votes, nil
}
