// File: internal/bridge/coordinator.go

// Package bridge coordinates the engine: it drives the periodic sampling
// loop, renders and transmits context digests with change suppression,
// maintains the pagination cache that agent queries page through, and
// dispatches agent actions while holding the action gate.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
	"github.com/xkilldash9x/neurodesk/internal/digest"
)

// Snapshotter produces one consistent desktop observation per call.
type Snapshotter interface {
	Sample(ctx context.Context) (*schemas.SystemState, error)
}

// ContextPublisher delivers rendered digests to the agent backend.
type ContextPublisher interface {
	PublishContext(ctx context.Context, message string, silent bool) error
}

// Coordinator owns the publishing loop and the state shared between the
// loop and the agent-facing query handlers: the current snapshot, the last
// transmitted digest, the pagination cache and the action gate.
type Coordinator struct {
	logger    *zap.Logger
	snap      Snapshotter
	builder   *digest.Builder
	publisher ContextPublisher

	pollInterval time.Duration
	errorPause   time.Duration
	limits       config.PaginationConfig
	bounds       config.RefreshConfig
	digestCfg    config.DigestConfig

	current atomic.Pointer[schemas.SystemState]
	gate    atomic.Bool

	// mu serializes poll cycles and forced refreshes and guards the last
	// transmitted digest together with the pagination cache, so a query
	// can never observe a cache from one snapshot and a digest from
	// another.
	mu       sync.Mutex
	lastSent string
	cache    paginationCache

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewCoordinator wires the loop's collaborators. All of them are required.
func NewCoordinator(cfg config.Interface, snap Snapshotter, builder *digest.Builder, publisher ContextPublisher, logger *zap.Logger) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if snap == nil {
		return nil, errors.New("snapshotter cannot be nil")
	}
	if builder == nil {
		return nil, errors.New("digest builder cannot be nil")
	}
	if publisher == nil {
		return nil, errors.New("context publisher cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	engine := cfg.Engine()
	pollInterval := engine.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	errorPause := engine.ErrorPause
	if errorPause <= 0 {
		errorPause = time.Second
	}

	return &Coordinator{
		logger:       logger.Named("coordinator"),
		snap:         snap,
		builder:      builder,
		publisher:    publisher,
		pollInterval: pollInterval,
		errorPause:   errorPause,
		limits:       cfg.Pagination(),
		bounds:       cfg.Refresh(),
		digestCfg:    cfg.Digest(),
	}, nil
}

// Run drives the publishing loop until ctx is cancelled or Stop is called.
// The first cycle runs immediately; afterwards one cycle completes fully
// before the next tick is considered.
func (c *Coordinator) Run(ctx context.Context) error {
	c.stateMu.Lock()
	if c.running {
		c.stateMu.Unlock()
		return errors.New("coordinator is already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.stateMu.Unlock()

	defer func() {
		cancel()
		c.stateMu.Lock()
		c.running = false
		c.stateMu.Unlock()
	}()

	c.logger.Info("context publishing loop started",
		zap.Duration("poll_interval", c.pollInterval),
	)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		c.tick(runCtx)
		select {
		case <-runCtx.Done():
			c.logger.Info("context publishing loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Stop cancels the running loop. Safe to call repeatedly and before Run
// was ever called.
func (c *Coordinator) Stop() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Snapshot returns the most recent observation, or nil before the first
// successful cycle.
func (c *Coordinator) Snapshot() *schemas.SystemState {
	return c.current.Load()
}

// ActionInProgress reports whether a desktop action holds the gate.
func (c *Coordinator) ActionInProgress() bool {
	return c.gate.Load()
}

// tryBeginAction claims the action gate. It fails when another desktop
// action is already in flight.
func (c *Coordinator) tryBeginAction() bool {
	return c.gate.CompareAndSwap(false, true)
}

// endAction releases the action gate.
func (c *Coordinator) endAction() {
	c.gate.Store(false)
}

// tick runs one guarded cycle. A held gate skips the cycle entirely, no
// sampling; failures are absorbed here with a recovery pause so nothing
// propagates out of the loop.
func (c *Coordinator) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if c.gate.Load() {
		c.logger.Debug("action in progress, cycle skipped")
		return
	}
	if err := c.cycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Error("context cycle failed",
			zap.String("code", string(classify(err))),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
		case <-time.After(c.errorPause):
		}
	}
}

// cycle samples once, renders the standard digest and transmits it when it
// differs from the last transmission. The pagination cache refreshes only
// on transmit, so pages always describe the screen the agent last saw.
func (c *Coordinator) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	state, err := c.snap.Sample(ctx)
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	c.current.Store(state)

	rendered := c.builder.Build(state, digest.StandardOptions())

	c.mu.Lock()
	defer c.mu.Unlock()
	if rendered == c.lastSent {
		c.logger.Debug("digest unchanged, transmission suppressed",
			zap.String("state_id", state.ID),
		)
		return nil
	}
	if err := c.publisher.PublishContext(ctx, rendered, true); err != nil {
		return fmt.Errorf("publish context: %w", err)
	}
	c.lastSent = rendered
	c.cache.refresh(state)
	c.logger.Debug("context transmitted",
		zap.String("state_id", state.ID),
		zap.Int("digest_bytes", len(rendered)),
		zap.Int("cached_elements", len(c.cache.elements)),
		zap.Int("cached_windows", len(c.cache.windows)),
	)
	return nil
}

// RefreshNow forces a full cycle rendered with the given options. It
// bypasses change suppression, always transmits and always refreshes the
// pagination cache, serialized with the poll cycle on the same mutex.
// Returns the number of text elements in the fresh snapshot.
func (c *Coordinator) RefreshNow(ctx context.Context, opts digest.Options) (int, error) {
	state, err := c.snap.Sample(ctx)
	if err != nil {
		return 0, fmt.Errorf("sample: %w", err)
	}
	c.current.Store(state)

	rendered := c.builder.Build(state, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.publisher.PublishContext(ctx, rendered, true); err != nil {
		return 0, fmt.Errorf("publish context: %w", err)
	}
	c.lastSent = rendered
	c.cache.refresh(state)
	c.logger.Info("forced context refresh transmitted",
		zap.String("state_id", state.ID),
		zap.String("detail", string(opts.Detail)),
		zap.Int("elements", len(state.TextElements)),
	)
	return len(state.TextElements), nil
}
