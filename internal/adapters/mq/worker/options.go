package worker

import (
	"github.com/okian/duel/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithOnRecord registers fn to run after each vote is stored. Hooks chain
// in the order they are given.
func WithOnRecord(fn func(Vote)) Option {
	return func(w *InMemoryWorker) {
		if fn == nil {
			return
		}
		prev := w.onRecord
		if prev == nil {
			w.onRecord = fn
			return
		}
		w.onRecord = func(v Vote) {
			prev(v)
			fn(v)
		}
	}
}
