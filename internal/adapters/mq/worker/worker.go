// Package worker drains the vote queue into the vote store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/duel/internal/adapters/repository"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/pkg/logger"
	"github.com/okian/duel/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Vote abstracts what workers read off the queue.
type Vote = model.Vote

// Recorder persists one vote for an ordered pair.
type Recorder interface {
	Record(ctx context.Context, k repository.PairKey) error
}

// Queue defines how workers receive votes.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Vote
}

// Worker records votes until its queue is drained or it is stopped.
type Worker interface {
	// Run blocks until the queue closes, ctx is done, or Shutdown is called.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string
	onRecord func(Vote)

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading q and writing to r.
func NewInMemoryWorker(q Queue, r Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		recorder: r,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	votes := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case v, ok := <-votes:
			if !ok {
				return
			}
			if err := w.process(ctx, v); err != nil {
				w.logger.Error(ctx, "error recording vote", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker without waiting for the queue to drain. It is
// safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) process(ctx context.Context, v Vote) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.recorder.Record(ctx, repository.PairKey{Winner: v.Winner, Loser: v.Loser}); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("record vote %s: %w", v.VoteID, err)
	}
	metrics.RecordVoteRecorded()
	if w.onRecord != nil {
		w.onRecord(v)
	}
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	recorded atomic.Int64
	logger   logger.Logger
}

// NewPool creates workerCount workers. A count below one means one per CPU.
// opts are applied to every worker after its name. A logger given with
// WithLogger becomes the pool's logger and the parent of each worker's;
// without one the global logger is used.
func NewPool(workerCount int, q Queue, r Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	base := poolLogger(opts)
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  base,
	}
	count := WithOnRecord(func(Vote) { p.recorded.Add(1) })
	for i := range workerCount {
		name := "worker-" + strconv.Itoa(i)
		wopts := append([]Option{WithName(name), count}, opts...)
		wopts = append(wopts, WithLogger(base.Named(name)))
		p.workers[i] = NewInMemoryWorker(q, r, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// poolLogger returns the logger set by opts, falling back to the global one.
func poolLogger(opts []Option) logger.Logger {
	var scratch InMemoryWorker
	for _, opt := range opts {
		opt(&scratch)
	}
	if scratch.logger != nil {
		return scratch.logger
	}
	return logger.Get().Named("worker-pool")
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Recorded returns how many votes the pool has written.
func (p *Pool) Recorded() int64 { return p.recorded.Load() }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still busy when ctx (capped at 30s) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
			w.stop()
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
