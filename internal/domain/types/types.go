// Package types contains common types used across the application
package types

// Entry is one row of the ranking as returned by the API.
type Entry struct {
	Rank       int     `json:"rank"`
	Competitor string  `json:"competitor"`
	Strength   float64 `json:"strength"`
}

// Rankings is a fitted ranking plus the fit metadata.
type Rankings struct {
	Entries     []Entry `json:"entries"`
	Competitors int     `json:"competitors"`
	Votes       int64   `json:"votes"`
	Iterations  int     `json:"iterations"`
	Converged   bool    `json:"converged"`
	ComputedAt  string  `json:"computed_at"`
}
