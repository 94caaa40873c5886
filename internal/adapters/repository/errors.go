package repository

import "errors"

// Sentinel kinds for vote store errors.
var (
	ErrInvalidPair = errors.New("invalid vote pair")
	ErrClosed      = errors.New("vote store closed")
	ErrCorruptKey  = errors.New("unparseable vote key")
)
