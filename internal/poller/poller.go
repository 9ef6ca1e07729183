package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/orders-dashboard/internal/model"
)

// Errors
var (
	ErrAlreadyStarted  = errors.New("poller already started")
	ErrInvalidInterval = errors.New("poller interval must be positive")
)

// Source fetches the current batch of order items.
type Source interface {
	FetchOrderItems(ctx context.Context) ([]model.OrderItem, error)
}

// SourceFunc is a function adapter for Source.
type SourceFunc func(ctx context.Context) ([]model.OrderItem, error)

func (f SourceFunc) FetchOrderItems(ctx context.Context) ([]model.OrderItem, error) {
	return f(ctx)
}

// UpdateFunc receives every successfully fetched batch.
// It runs on the poller goroutine and must not call Stop.
type UpdateFunc func(items []model.OrderItem)

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 5s)
	Timeout  time.Duration // Per-fetch timeout, 0 = none (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Stats counts poll outcomes since Start.
type Stats struct {
	Polls    int64
	Failures int64
}

// Poller periodically fetches order items and publishes them.
type Poller struct {
	cfg      Config
	source   Source
	onUpdate UpdateFunc
	logger   *slog.Logger

	// publishMu serializes onUpdate against Stop.
	publishMu sync.Mutex

	mu      sync.Mutex
	latest  []model.OrderItem
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	polls    atomic.Int64
	failures atomic.Int64
}

// New creates a new Poller. onUpdate may be nil.
func New(cfg Config, source Source, onUpdate UpdateFunc, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:      cfg,
		source:   source,
		onUpdate: onUpdate,
		logger:   logger,
		latest:   []model.OrderItem{},
	}
}

// Start begins the polling loop. The first fetch happens right away.
// A Poller cannot be restarted once stopped.
func (p *Poller) Start(ctx context.Context) error {
	if p.cfg.Interval <= 0 {
		return ErrInvalidInterval
	}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.run(runCtx)

	p.logger.Info("order poller started",
		"interval", p.cfg.Interval,
		"timeout", p.cfg.Timeout,
	)

	return nil
}

// Stop cancels the polling loop and any in-flight fetch, then waits for the
// loop to exit or ctx to expire. Once Stop returns, the UpdateFunc is never
// called again, even if the wait timed out. Extra calls are no-ops.
func (p *Poller) Stop(ctx context.Context) error {
	p.publishMu.Lock()
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		p.publishMu.Unlock()
		return nil
	}
	p.stopped = true
	p.cancel()
	done := p.done
	p.mu.Unlock()
	p.publishMu.Unlock()

	select {
	case <-done:
		p.logger.Info("order poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the most recently published batch (empty before the first).
func (p *Poller) Latest() []model.OrderItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Stats returns poll counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Polls:    p.polls.Load(),
		Failures: p.failures.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll performs one fetch-and-publish.
func (p *Poller) poll(ctx context.Context) {
	start := time.Now()

	fetchCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	items, err := p.source.FetchOrderItems(fetchCtx)
	p.polls.Add(1)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.failures.Add(1)
		p.logger.Warn("failed to poll order items",
			"error", err,
			"duration", time.Since(start),
		)
		return
	}

	if !p.publish(items) {
		p.logger.Debug("discarded poll result after stop", "items", len(items))
		return
	}

	p.logger.Debug("poll complete",
		"items", len(items),
		"duration", time.Since(start),
	)
}

// publish replaces the latest batch and notifies the UpdateFunc.
// Returns false if the poller was stopped first.
func (p *Poller) publish(items []model.OrderItem) bool {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	p.latest = items
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(items)
	}
	return true
}
