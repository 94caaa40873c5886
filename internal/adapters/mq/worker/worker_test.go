package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/duel/internal/adapters/mq/queue"
	"github.com/okian/duel/internal/adapters/mq/worker"
	"github.com/okian/duel/internal/adapters/repository"
	"github.com/okian/duel/internal/domain/model"
	logging "github.com/okian/duel/pkg/logger"
)

type mockQueue struct {
	votes chan model.Vote
	once  sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{votes: make(chan model.Vote, 16)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan model.Vote { return mq.votes }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.votes) })
	return nil
}

type mockRecorder struct {
	mu     sync.Mutex
	counts map[repository.PairKey]int
	fail   map[string]error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{counts: make(map[repository.PairKey]int), fail: make(map[string]error)}
}

func (r *mockRecorder) Record(_ context.Context, k repository.PairKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.fail[k.Winner]; ok {
		return err
	}
	r.counts[k]++
	return nil
}

func (r *mockRecorder) count(k repository.PairKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[k]
}

func vote(id, winner, loser string) model.Vote {
	return model.Vote{VoteID: id, Winner: winner, Loser: loser, TS: time.Now()}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		rec := newMockRecorder()
		recorded := make(chan model.Vote, 16)
		w := worker.NewInMemoryWorker(q, rec,
			worker.WithName("test-worker"),
			worker.WithOnRecord(func(v model.Vote) { recorded <- v }),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a vote arrives", func() {
			q.votes <- vote("v1", "Glebe", "Newtown")

			convey.Convey("Then it is recorded and the hook fires", func() {
				select {
				case v := <-recorded:
					convey.So(v.VoteID, convey.ShouldEqual, "v1")
				case <-time.After(time.Second):
					convey.So("hook not called", convey.ShouldBeEmpty)
				}
				convey.So(rec.count(repository.PairKey{Winner: "Glebe", Loser: "Newtown"}), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the store rejects a vote", func() {
			rec.fail["Bad"] = errors.New("store down")
			q.votes <- vote("v2", "Bad", "Newtown")
			q.votes <- vote("v3", "Glebe", "Newtown")

			convey.Convey("Then the worker keeps going and skips the hook for the failure", func() {
				select {
				case v := <-recorded:
					convey.So(v.VoteID, convey.ShouldEqual, "v3")
				case <-time.After(time.Second):
					convey.So("hook not called", convey.ShouldBeEmpty)
				}
				convey.So(rec.count(repository.PairKey{Winner: "Bad", Loser: "Newtown"}), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.Convey("Then it stops cleanly", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		store := repository.NewMemoryStore()

		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, q, store)

			convey.Convey("Then it has at least one worker", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		convey.Convey("When votes are queued and the pool shuts down", func() {
			pool := worker.NewPool(3, q, store)
			ctx := context.Background()
			pool.Start(ctx)

			for i := range 40 {
				winner, loser := "A", "B"
				if i%4 == 0 {
					winner, loser = loser, winner
				}
				convey.So(q.Enqueue(ctx, vote("", winner, loser)), convey.ShouldBeTrue)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every queued vote is drained into the store", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Recorded(), convey.ShouldEqual, 40)
				counts, _ := store.Counts(ctx)
				convey.So(counts[repository.PairKey{Winner: "A", Loser: "B"}], convey.ShouldEqual, 30)
				convey.So(counts[repository.PairKey{Winner: "B", Loser: "A"}], convey.ShouldEqual, 10)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerPoolLogger(t *testing.T) {
	convey.Convey("Given a pool built with its own logger", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		store := repository.NewMemoryStore()
		pool := worker.NewPool(2, q, store, worker.WithLogger(logging.Nop()))
		ctx := context.Background()
		pool.Start(ctx)

		convey.Convey("Then it records and drains like any other pool", func() {
			convey.So(q.Enqueue(ctx, vote("v1", "A", "B")), convey.ShouldBeTrue)
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(pool.Recorded(), convey.ShouldEqual, 1)
		})
	})
}

func TestInMemoryWorkerRepeatedShutdown(t *testing.T) {
	convey.Convey("Given a worker whose queue never closes", t, func() {
		w := worker.NewInMemoryWorker(newMockQueue(), newMockRecorder(), worker.WithLogger(logging.Nop()))
		go w.Run(context.Background())

		convey.Convey("Then shutting it down twice does not panic", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			var first, second error
			convey.So(func() { first = w.Shutdown(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { second = w.Shutdown(ctx) }, convey.ShouldNotPanic)
			convey.So(first, convey.ShouldBeNil)
			convey.So(second, convey.ShouldBeNil)
		})
	})
}
