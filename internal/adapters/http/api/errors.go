package api

import "errors"

// Sentinel kinds for API errors. Each maps to 400 with its own code.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrMissingParam  = errors.New("missing query parameter")
	ErrLimitExceeded = errors.New("limit exceeded")
)

// errorCode returns the JSON error code for a client-side error.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrMissingParam):
		return "missing_param"
	default:
		return "bad_request"
	}
}
