// Package engine owns the process-wide execution context: at most one engine
// batch handle (plus an optional streaming handle) per process, shared by
// every caller with identical settings.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/gokite/internal/metrics"
	"github.com/me/gokite/pkg/model"
)

// DefaultShutdownWait bounds how long Shutdown waits for a graceful
// streaming stop.
const DefaultShutdownWait = 5 * time.Second

// Context is the shared execution context.
type Context struct {
	settings Settings
	conf     map[string]string
	batch    Batch
	created  time.Time

	// streaming is guarded by the owning Registry's mutex.
	streaming Streaming
}

// Batch returns the engine batch handle.
func (c *Context) Batch() Batch { return c.batch }

// Settings returns a copy of the identity settings.
func (c *Context) Settings() Settings { return c.settings.Clone() }

// Conf returns the configuration the driver was created with.
func (c *Context) Conf() map[string]string {
	out := make(map[string]string, len(c.conf))
	for k, v := range c.conf {
		out[k] = v
	}
	return out
}

// Created returns the creation time.
func (c *Context) Created() time.Time { return c.created }

// Registry is the guarded owner of the shared context.
//
// State machine: UNINITIALIZED -> ACTIVE on first Context call; ACTIVE ->
// SHUTDOWN while Shutdown tears the engine down, then back to UNINITIALIZED.
// Close leaves the registry sealed in SHUTDOWN until Reset.
type Registry struct {
	driver  Driver
	wait    time.Duration
	logger  *slog.Logger
	metrics *metrics.Collector

	mu          sync.Mutex
	state       model.ContextState
	tearingDown bool
	sealed      bool

	// active is set only while state is ACTIVE; readers take it without
	// the mutex.
	active atomic.Pointer[Context]
}

// Option configures a Registry.
type Option func(*Registry)

// WithShutdownWait sets the bounded wait for a graceful streaming stop.
func WithShutdownWait(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.wait = d
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records context lifecycle events on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Registry) { r.metrics = c }
}

// NewRegistry creates an UNINITIALIZED registry backed by driver.
func NewRegistry(driver Driver, opts ...Option) *Registry {
	r := &Registry{
		driver: driver,
		wait:   DefaultShutdownWait,
		logger: slog.Default(),
		state:  model.ContextStateUninitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "engine-registry")
	return r
}

// State returns the current lifecycle state.
func (r *Registry) State() model.ContextState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// transition moves to next. Caller holds r.mu.
func (r *Registry) transition(next model.ContextState) error {
	if !r.state.CanTransitionTo(next) {
		return fmt.Errorf("invalid context transition %s -> %s", r.state, next)
	}
	r.logger.Debug("context state", "from", r.state, "to", next)
	r.state = next
	return nil
}

// Context returns the shared context for settings, creating it on first use.
// A live context created with different settings yields
// IncompatibleContextError and is left untouched. During or after an
// explicit teardown it yields ContextUnavailableError.
func (r *Registry) Context(settings Settings) (*Context, error) {
	if c := r.active.Load(); c != nil {
		if err := checkCompatible(c, settings); err != nil {
			return nil, err
		}
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case model.ContextStateActive:
		c := r.active.Load()
		if err := checkCompatible(c, settings); err != nil {
			return nil, err
		}
		return c, nil
	case model.ContextStateShutdown:
		if r.tearingDown {
			return nil, model.ContextUnavailableError("get context", "shutdown in progress")
		}
		return nil, model.ContextUnavailableError("get context", "context was closed; reset required")
	}

	conf, err := DriverConf(settings)
	if err != nil {
		return nil, err
	}
	batch, err := r.driver.NewBatch(conf)
	if err != nil {
		return nil, fmt.Errorf("create engine context: %w", err)
	}
	c := &Context{
		settings: settings.Clone(),
		conf:     conf,
		batch:    batch,
		created:  time.Now(),
	}
	if err := r.transition(model.ContextStateActive); err != nil {
		_ = batch.Stop()
		return nil, err
	}
	r.active.Store(c)
	r.metrics.RecordContextCreated()
	r.logger.Info("engine context created", "settings", len(settings))
	return c, nil
}

func checkCompatible(c *Context, settings Settings) error {
	if c.settings.Equal(settings) {
		return nil
	}
	return model.IncompatibleContextError("get context",
		"a context with different settings is already active (differing keys: %s)",
		strings.Join(c.settings.Diff(settings), ", "))
}

// StreamingContext returns the streaming handle of the shared context for
// settings, creating the context and the handle as needed. The handle's
// interval comes from streaming.duration and its checkpoint location from
// streaming.checkpoint.
func (r *Registry) StreamingContext(settings Settings) (Streaming, error) {
	c, err := r.Context(settings)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active.Load() != c {
		return nil, model.ContextUnavailableError("get streaming context", "context was shut down")
	}
	if c.streaming != nil {
		return c.streaming, nil
	}
	interval, err := settings.StreamingInterval()
	if err != nil {
		return nil, err
	}
	s, err := r.driver.NewStreaming(c.batch, c.conf, StreamingOptions{
		Interval:   interval,
		Checkpoint: settings.Checkpoint(),
	})
	if err != nil {
		return nil, fmt.Errorf("create streaming context: %w", err)
	}
	c.streaming = s
	r.logger.Info("streaming context created", "interval", interval, "checkpoint", settings.Checkpoint())
	return s, nil
}

// Shutdown stops the shared context and returns the registry to
// UNINITIALIZED. The streaming handle is stopped gracefully, then the batch
// handle, each on its own goroutine. Shutdown returns once both finish or the
// configured wait has elapsed, whichever comes first; a stop still running
// then is abandoned. Stop failures are logged and returned joined.
func (r *Registry) Shutdown() error {
	return r.shutdown(false)
}

// Close is Shutdown for process exit: the registry stays in SHUTDOWN and
// refuses new contexts until Reset.
func (r *Registry) Close() error {
	return r.shutdown(true)
}

// Reset tears down any live context and clears a Close, so the next Context
// call creates a fresh one. It fails while a shutdown is in flight.
func (r *Registry) Reset() error {
	r.mu.Lock()
	switch {
	case r.tearingDown:
		r.mu.Unlock()
		return model.ContextUnavailableError("reset context", "shutdown in progress")
	case r.state == model.ContextStateActive:
		r.sealed = false
		r.mu.Unlock()
		return r.Shutdown()
	case r.state == model.ContextStateShutdown:
		r.sealed = false
		err := r.transition(model.ContextStateUninitialized)
		r.mu.Unlock()
		return err
	}
	r.sealed = false
	r.mu.Unlock()
	return nil
}

func (r *Registry) shutdown(seal bool) error {
	r.mu.Lock()
	if seal {
		r.sealed = true
	}
	switch r.state {
	case model.ContextStateUninitialized:
		var err error
		if seal {
			err = r.transition(model.ContextStateShutdown)
		}
		r.mu.Unlock()
		return err
	case model.ContextStateShutdown:
		// Already closed, or another caller is tearing down.
		r.mu.Unlock()
		return nil
	}

	c := r.active.Load()
	r.active.Store(nil)
	if err := r.transition(model.ContextStateShutdown); err != nil {
		r.mu.Unlock()
		return err
	}
	r.tearingDown = true
	streaming := c.streaming
	r.mu.Unlock()

	deadline := time.Now().Add(r.wait)
	var errs []error
	if streaming != nil {
		if err := r.stopBounded("streaming", deadline, func() error { return streaming.Stop(true) }); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.stopBounded("batch", deadline, c.batch.Stop); err != nil {
		errs = append(errs, err)
	}

	r.mu.Lock()
	r.tearingDown = false
	if !r.sealed {
		_ = r.transition(model.ContextStateUninitialized)
	}
	r.mu.Unlock()

	r.logger.Info("engine context shut down", "sealed", seal)
	return errors.Join(errs...)
}

// stopBounded runs stop on its own goroutine and waits for it until
// deadline. An abandoned stop keeps running in the background.
func (r *Registry) stopBounded(what string, deadline time.Time, stop func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- stop()
	}()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			r.logger.Warn(what+" stop failed", "error", err)
			return fmt.Errorf("stop %s: %w", what, err)
		}
		return nil
	case <-timer.C:
		r.metrics.RecordShutdownTimeout()
		r.logger.Warn(what+" stop did not finish, continuing", "wait", r.wait)
		return nil
	}
}
