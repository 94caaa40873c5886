package bradleyterry

import "errors"

// Sentinel error kinds for this package. Callers match them with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownCompetitor = errors.New("unknown competitor")
)
