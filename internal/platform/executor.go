// File: internal/platform/executor.go
package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/internal/config"
)

// ErrExecutorStopped is returned when a call is submitted to a pool that has
// not been started or has already shut down.
var ErrExecutorStopped = errors.New("executor is not running")

// call is one blocking operation queued on the pool.
type call struct {
	name string
	ctx  context.Context
	run  func(ctx context.Context) error
	done chan error
}

// Executor serializes blocking OS calls onto a small worker pool so the
// sampling loop and action dispatch never block the runtime directly. Real
// capture and OCR backends can stall for seconds; the pool keeps those stalls
// cancellable from the caller's context.
type Executor struct {
	logger  *zap.Logger
	workers int
	queue   int

	// stateLock protects the running state of the pool.
	stateLock sync.Mutex
	isRunning bool
	calls     chan *call
	poolCtx   context.Context
	wg        sync.WaitGroup
}

// NewExecutor creates a worker pool sized by cfg.
func NewExecutor(cfg config.EngineConfig, logger *zap.Logger) (*Executor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	workers := cfg.ExecutorWorkers
	if workers <= 0 {
		workers = 2
	}
	queue := cfg.ExecutorQueue
	if queue <= 0 {
		queue = 8
	}

	return &Executor{
		logger:  logger.With(zap.String("component", "executor")),
		workers: workers,
		queue:   queue,
	}, nil
}

// Start launches the worker goroutines. Workers exit when ctx is cancelled.
func (e *Executor) Start(ctx context.Context) {
	e.stateLock.Lock()
	if e.isRunning {
		e.stateLock.Unlock()
		e.logger.Warn("Executor.Start called, but pool is already running.")
		return
	}
	e.isRunning = true
	e.calls = make(chan *call, e.queue)
	e.poolCtx = ctx
	e.stateLock.Unlock()

	e.logger.Info("Starting executor worker pool", zap.Int("workers", e.workers))

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.runWorker(ctx, i+1)
	}
}

// Stop waits for all workers to finish. Workers leave once the Start context
// is cancelled; callers cancel first, then Stop. Safe to call repeatedly.
func (e *Executor) Stop() {
	e.wg.Wait()

	e.stateLock.Lock()
	e.isRunning = false
	e.stateLock.Unlock()
}

// Do runs fn on the pool and waits for it to finish. The context bounds both
// the queue wait and the call itself; fn receives it and must honor it.
func (e *Executor) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	e.stateLock.Lock()
	if !e.isRunning {
		e.stateLock.Unlock()
		return ErrExecutorStopped
	}
	calls := e.calls
	poolCtx := e.poolCtx
	e.stateLock.Unlock()

	c := &call{
		name: name,
		ctx:  ctx,
		run:  fn,
		done: make(chan error, 1),
	}

	select {
	case calls <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-poolCtx.Done():
		return ErrExecutorStopped
	}

	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-poolCtx.Done():
		return ErrExecutorStopped
	}
}

// runWorker is the main loop for a single worker goroutine.
func (e *Executor) runWorker(ctx context.Context, workerID int) {
	defer e.wg.Done()
	logger := e.logger.With(zap.Int("worker_id", workerID))
	logger.Debug("Worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Context cancelled, worker shutting down.")
			return
		case c := <-e.calls:
			start := time.Now()
			err := runGuarded(c)
			elapsed := time.Since(start)

			if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				logger.Debug("Blocking call failed",
					zap.String("call", c.name), zap.Duration("elapsed", elapsed), zap.Error(err))
			} else {
				logger.Debug("Blocking call finished",
					zap.String("call", c.name), zap.Duration("elapsed", elapsed))
			}
			c.done <- err
		}
	}
}

// runGuarded executes the call and converts a panic into an error so one bad
// provider cannot take the process down.
func runGuarded(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in blocking call %s: %v", c.name, r)
		}
	}()
	return c.run(c.ctx)
}
