package api

const defaultMaxRankingsLimit = 1000

type options struct {
	maxRankingsLimit int
}

// Option configures a Server.
type Option func(*options)

// WithMaxRankingsLimit rejects /api/rankings requests asking for more
// entries than n.
func WithMaxRankingsLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRankingsLimit = n
		}
	}
}
