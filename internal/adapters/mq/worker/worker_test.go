package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/trainerscope/internal/adapters/mq/queue"
	worker "github.com/okian/trainerscope/internal/adapters/mq/worker"
	"github.com/okian/trainerscope/internal/domain/gamification"
	model "github.com/okian/trainerscope/internal/domain/model"
	logging "github.com/okian/trainerscope/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	ch chan model.Activity
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan model.Activity, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan model.Activity {
	return mq.ch
}

func (mq *mockQueue) Close() error {
	close(mq.ch)
	return nil
}

type mockProcessor struct {
	mu      sync.Mutex
	seen    []string
	fail    map[string]error
	outcome gamification.Outcome
	delay   time.Duration
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{fail: make(map[string]error)}
}

func (mp *mockProcessor) Process(ctx context.Context, a model.Activity) (gamification.Outcome, error) {
	if mp.delay > 0 {
		time.Sleep(mp.delay)
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if err, ok := mp.fail[a.UserID]; ok {
		return gamification.Outcome{}, err
	}
	mp.seen = append(mp.seen, a.ID)
	out := mp.outcome
	out.UserID = a.UserID
	return out, nil
}

func (mp *mockProcessor) count() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.seen)
}

func given(id, user string) model.Activity {
	return model.Activity{ID: id, UserID: user, Type: model.ActivityAssessmentGiven, AssessmentID: "a-" + id}
}

func TestInMemoryWorker(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a worker over a mock queue", t, func() {
		ctx := context.Background()
		q := newMockQueue()
		p := newMockProcessor()
		w := worker.NewInMemoryWorker(q, p, worker.WithName("test-worker"))

		convey.Convey("When activities are queued and the queue closes", func() {
			q.ch <- given("1", "manager-1")
			q.ch <- given("2", "manager-2")
			_ = q.Close()
			w.Run(ctx)

			convey.Convey("Then every activity is processed before Run returns", func() {
				convey.So(p.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the processor fails", func() {
			p.fail["manager-1"] = errors.New("store down")
			err := w.Handle(ctx, given("1", "manager-1"))

			convey.Convey("Then the error is wrapped with the activity id", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "process activity 1")
			})
		})

		convey.Convey("When an activity levels a user up and earns badges", func() {
			p.outcome = gamification.Outcome{
				XPAwarded: 150,
				XP:        model.UserXP{TotalXP: 530, Level: 2},
				LeveledUp: true,
				Badges:    []model.BadgeID{gamification.BadgeHighAchiever},
			}
			err := w.Handle(ctx, given("1", "trainer-1"))

			convey.Convey("Then it is applied without error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When Shutdown is called on a running worker", func() {
			go w.Run(ctx)
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.Convey("Then it stops and a second call is harmless", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			w.Run(cctx)

			convey.Convey("Then Run returns immediately", func() {
				convey.So(p.count(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestPool(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a pool over a real queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		p := newMockProcessor()
		pool := worker.NewPool(4, q, p)

		convey.So(pool.Size(), convey.ShouldEqual, 4)
		pool.Start(ctx)

		convey.Convey("When activities are enqueued and the pool shuts down", func() {
			for i := 0; i < 200; i++ {
				convey.So(q.Enqueue(ctx, given(fmt.Sprint(i), fmt.Sprintf("user-%d", i%7))), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is drained", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.count(), convey.ShouldEqual, 200)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool whose workers cannot finish in time", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		p := newMockProcessor()
		p.delay = 200 * time.Millisecond
		pool := worker.NewPool(1, q, p, worker.WithShutdownTimeout(20*time.Millisecond))
		pool.Start(ctx)

		for i := 0; i < 3; i++ {
			_ = q.Enqueue(ctx, given(fmt.Sprint(i), "slow"))
		}
		time.Sleep(10 * time.Millisecond)

		convey.Convey("Then Shutdown reports the timeout", func() {
			convey.So(pool.Shutdown(ctx), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), newMockProcessor())

		convey.Convey("Then one worker per CPU is created", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
