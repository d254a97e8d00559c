// Package worker applies queued gamification activities.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trainerscope/internal/domain/gamification"
	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/pkg/logger"
	"github.com/okian/trainerscope/pkg/metrics"
)

const defaultShutdownTimeout = 30 * time.Second

// Processor applies one activity to gamification state.
type Processor interface {
	Process(ctx context.Context, a model.Activity) (gamification.Outcome, error)
}

// Queue defines how workers receive activities.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Activity
}

// Worker processes activities from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the activity in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	active    *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		active:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	activities := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case a, ok := <-activities:
			if !ok {
				return
			}
			if err := w.Handle(ctx, a); err != nil {
				w.logger.Error(ctx, "error processing activity", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Handle applies a single activity and records its metrics.
func (w *InMemoryWorker) Handle(ctx context.Context, a model.Activity) error { //nolint:gocritic // hugeParam: Activity is passed by value for channel semantics
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	out, err := w.processor.Process(ctx, a)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process_error")
		w.logger.Error(ctx, "activity failed",
			logger.String("activity_id", a.ID),
			logger.String("user_id", a.UserID),
			logger.Error(err),
		)
		return fmt.Errorf("process activity %s: %w", a.ID, err)
	}

	metrics.RecordActivityProcessed(string(a.Type))
	metrics.RecordXPAwarded(out.XPAwarded)
	if out.LeveledUp {
		metrics.RecordLevelUp()
		w.logger.Info(ctx, "level up",
			logger.String("user_id", out.UserID),
			logger.Int("level", out.XP.Level),
			logger.Int64("total_xp", out.XP.TotalXP),
		)
	}
	for _, b := range out.Badges {
		metrics.RecordBadgeAwarded(string(b))
	}
	w.logger.Debug(ctx, "activity applied",
		logger.String("activity_id", a.ID),
		logger.String("type", string(a.Type)),
		logger.Int64("xp_awarded", out.XPAwarded),
		logger.Int("streak", out.Streak.Current),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers         []*InMemoryWorker
	queue           Queue
	shutdownTimeout time.Duration
	logger          logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount uses one
// worker per CPU.
func NewPool(workerCount int, queue Queue, processor Processor, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:         make([]*InMemoryWorker, workerCount),
		queue:           queue,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	active := new(atomic.Int64)
	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(queue, processor,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
		w.active = active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it. Workers still
// busy after the timeout are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
