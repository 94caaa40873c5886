package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrUnknownStore and ErrMissingStoreAddress narrow ErrInvalidConfig
	// for the store selection; both still match ErrInvalidConfig.
	ErrUnknownStore        = fmt.Errorf("%w: unknown store", ErrInvalidConfig)
	ErrMissingStoreAddress = fmt.Errorf("%w: missing store address", ErrInvalidConfig)
)
