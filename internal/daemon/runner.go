// Package daemon wires the shutterloop components together and manages the
// lifecycle of the capture loop and the control API: start, stop, and
// graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shutterloop/shutterloop/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// DefaultShutdownTimeout bounds the HTTP server drain when Config leaves it
// unset.
const DefaultShutdownTimeout = 5 * time.Second

// Config holds the configuration for the daemon runner.
type Config struct {
	// ShutdownTimeout is the maximum time Shutdown waits for the loop and
	// the server to stop.
	ShutdownTimeout time.Duration
}

// loop and api are the parts of Components the runner drives.
type loop interface {
	Run(ctx context.Context) error
}

type api interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config *Config
	loop   loop
	api    api // nil when the control API is disabled
	log    logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a runner for c. If config is nil, default values are used.
func New(c *Components, config *Config) *Runner {
	r := &Runner{
		config: applyConfigDefaults(config),
		loop:   c.Controller,
		log:    c.Log,
	}
	if c.Server != nil {
		r.api = c.Server
	}
	return r
}

// applyConfigDefaults returns a Config with default values applied.
func applyConfigDefaults(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	return config
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start runs the capture loop and the control API and blocks until ctx is
// canceled, Shutdown is called, or either of them fails. A requested stop
// returns nil. Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.cancel()
		r.mu.Unlock()
		close(done)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.loop.Run(gctx)
	})
	if r.api != nil {
		g.Go(r.api.Start)
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
			defer cancel()
			return r.api.Shutdown(sctx)
		})
	}
	err := g.Wait()
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	r.log.Info("daemon stopped")
	return err
}

// Shutdown stops a running daemon and waits for Start to return.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if Start has not returned within the configured
// timeout.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.cancel()
	done := r.done
	r.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(r.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
