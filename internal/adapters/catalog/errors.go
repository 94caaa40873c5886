package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrNotFound          = errors.New("competitor not found")
	ErrInvalidCatalog    = errors.New("invalid catalog")
	ErrTooFewCompetitors = errors.New("catalog needs at least two competitors")
)
