package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"

	"github.com/rickgao/orders-dashboard/internal/model"
	"github.com/rickgao/orders-dashboard/internal/orderstore"
	"github.com/rickgao/orders-dashboard/internal/sheet"
)

// Errors
var (
	ErrAlreadyStarted  = errors.New("updater already started")
	ErrInvalidInterval = errors.New("updater intervals must be positive")
)

// RateSource returns the ruble price of one unit of a currency.
type RateSource interface {
	FetchExchangeRate(ctx context.Context, charCode string) (decimal.Decimal, error)
}

// Store is the persistence the jobs need. *orderstore.Store implements it.
type Store interface {
	CreateExecution(ctx context.Context) (orderstore.Execution, error)
	SaveExecution(ctx context.Context, e orderstore.Execution) error
	LastSuccessfulExecution(ctx context.Context, excludeID int64) (orderstore.Execution, bool, error)
	Sync(ctx context.Context, source []orderstore.Record, rate decimal.Decimal, rateChanged bool) (orderstore.SyncResult, error)
	RefreshCostRUB(ctx context.Context, rate decimal.Decimal) (int, error)
	UpdateExpiration(ctx context.Context, today time.Time) ([]model.OrderItem, error)
	DeleteExecutionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds updater configuration.
type Config struct {
	Currency           string        // Char code of cost_usd's currency (default: USD)
	SourceFile         string        // Orders sheet CSV; empty = reprice existing rows only
	FirstDataRow       int           // 1-based first data line of the sheet
	CheckModified      bool          // Skip the sync while the sheet's mtime is unchanged
	Interval           time.Duration // Update orders (default: 20s)
	ExpirationInterval time.Duration // Check expiration (default: 25s)
	CleanupInterval    time.Duration // Delete old run records (default: weekly)
	ExecutionMaxAge    time.Duration // Age of run records to delete (default: 7 days)
	RateTTL            time.Duration // Reuse a fetched rate this long, 0 = always fetch
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:           "USD",
		FirstDataRow:       2,
		CheckModified:      true,
		Interval:           20 * time.Second,
		ExpirationInterval: 25 * time.Second,
		CleanupInterval:    7 * 24 * time.Hour,
		ExecutionMaxAge:    7 * 24 * time.Hour,
		RateTTL:            time.Hour,
	}
}

// Updater owns the background jobs.
type Updater struct {
	cfg      Config
	store    Store
	rates    RateSource
	notifier Notifier
	logger   *slog.Logger

	rateCache *expirable.LRU[string, decimal.Decimal]
	now       func() time.Time

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an Updater. notifier may be nil.
func New(cfg Config, store Store, rates RateSource, notifier Notifier, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}

	u := &Updater{
		cfg:      cfg,
		store:    store,
		rates:    rates,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	if cfg.RateTTL > 0 {
		u.rateCache = expirable.NewLRU[string, decimal.Decimal](8, nil, cfg.RateTTL)
	}
	return u
}

// UpdateOrders performs one update run and records it. The returned error is
// the first failure that ended the run early; rejected sheet rows are only
// recorded on the execution.
func (u *Updater) UpdateOrders(ctx context.Context) (orderstore.Execution, error) {
	exec, err := u.store.CreateExecution(ctx)
	if err != nil {
		return exec, err
	}

	rate, err := u.exchangeRate(ctx)
	if err != nil {
		err = fmt.Errorf("retrieve %s exchange rate: %w", u.cfg.Currency, err)
		exec.AddError(err.Error())
		return exec, u.finish(ctx, exec, err)
	}
	exec.ExchangeRate = decimal.NewNullDecimal(rate)

	prev, hasPrev, err := u.store.LastSuccessfulExecution(ctx, exec.ID)
	if err != nil {
		exec.AddError(err.Error())
		return exec, u.finish(ctx, exec, err)
	}
	rateChanged := !hasPrev || !prev.ExchangeRate.Valid || !prev.ExchangeRate.Decimal.Equal(rate)

	if u.cfg.SourceFile == "" {
		err := u.reprice(ctx, &exec, rate, rateChanged)
		return exec, u.finish(ctx, exec, err)
	}

	if u.cfg.CheckModified {
		modTime, err := sheet.ModTime(u.cfg.SourceFile)
		if err != nil {
			exec.AddError(fmt.Sprintf("read sheet modification time: %v", err))
		} else {
			exec.DocumentTimestamp = &modTime
			if hasPrev && prev.DocumentTimestamp != nil && prev.DocumentTimestamp.Equal(modTime) {
				err := u.reprice(ctx, &exec, rate, rateChanged)
				return exec, u.finish(ctx, exec, err)
			}
		}
	}

	doc, err := sheet.ReadFile(u.cfg.SourceFile, u.cfg.FirstDataRow)
	if err != nil {
		err = fmt.Errorf("process orders sheet: %w", err)
		exec.AddError(err.Error())
		return exec, u.finish(ctx, exec, err)
	}
	if exec.DocumentTimestamp == nil {
		exec.DocumentTimestamp = &doc.ModTime
	}

	result, err := u.store.Sync(ctx, doc.Records, rate, rateChanged)
	if err != nil {
		exec.AddError(err.Error())
		return exec, u.finish(ctx, exec, err)
	}
	for _, rowErr := range doc.Errors {
		exec.AddError(rowErr.Error())
	}

	u.logger.Info("order items synced",
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"rejected_rows", len(doc.Errors),
		"rate", rate.String(),
	)

	return exec, u.finish(ctx, exec, nil)
}

// reprice updates cost_rub when the rate moved since the last successful run.
func (u *Updater) reprice(ctx context.Context, exec *orderstore.Execution, rate decimal.Decimal, rateChanged bool) error {
	if !rateChanged {
		return nil
	}
	changed, err := u.store.RefreshCostRUB(ctx, rate)
	if err != nil {
		exec.AddError(err.Error())
		return err
	}
	u.logger.Info("cost_rub repriced", "rate", rate.String(), "changed", changed)
	return nil
}

// finish saves exec and joins a save failure with cause.
func (u *Updater) finish(ctx context.Context, exec orderstore.Execution, cause error) error {
	if err := u.store.SaveExecution(ctx, exec); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (u *Updater) exchangeRate(ctx context.Context) (decimal.Decimal, error) {
	if u.rateCache != nil {
		if rate, ok := u.rateCache.Get(u.cfg.Currency); ok {
			return rate, nil
		}
	}

	rate, err := u.rates.FetchExchangeRate(ctx, u.cfg.Currency)
	if err != nil {
		return decimal.Zero, err
	}

	if u.rateCache != nil {
		u.rateCache.Add(u.cfg.Currency, rate)
	}
	return rate, nil
}

// CheckExpiration flags newly expired items and notifies about them.
func (u *Updater) CheckExpiration(ctx context.Context) ([]model.OrderItem, error) {
	expired, err := u.store.UpdateExpiration(ctx, u.now())
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 || u.notifier == nil {
		return expired, nil
	}

	if err := u.notifier.NotifyExpired(ctx, expired); err != nil {
		return expired, fmt.Errorf("notify expired: %w", err)
	}
	return expired, nil
}

// DeleteOldExecutions removes run records older than ExecutionMaxAge.
func (u *Updater) DeleteOldExecutions(ctx context.Context) (int64, error) {
	return u.store.DeleteExecutionsBefore(ctx, u.now().Add(-u.cfg.ExecutionMaxAge))
}

// Start launches the three jobs. Update and expiration run right away;
// cleanup waits for its first tick.
func (u *Updater) Start(ctx context.Context) error {
	if u.cfg.Interval <= 0 || u.cfg.ExpirationInterval <= 0 || u.cfg.CleanupInterval <= 0 {
		return ErrInvalidInterval
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.started {
		return ErrAlreadyStarted
	}
	u.started = true

	runCtx, cancel := context.WithCancel(ctx)
	u.cancel = cancel

	u.wg.Add(3)
	go u.every(runCtx, "update orders", u.cfg.Interval, true, func(ctx context.Context) error {
		_, err := u.UpdateOrders(ctx)
		return err
	})
	go u.every(runCtx, "check expiration", u.cfg.ExpirationInterval, true, func(ctx context.Context) error {
		_, err := u.CheckExpiration(ctx)
		return err
	})
	go u.every(runCtx, "delete old executions", u.cfg.CleanupInterval, false, func(ctx context.Context) error {
		n, err := u.DeleteOldExecutions(ctx)
		if err == nil && n > 0 {
			u.logger.Info("old executions deleted", "count", n)
		}
		return err
	})

	u.logger.Info("updater started",
		"interval", u.cfg.Interval,
		"expiration_interval", u.cfg.ExpirationInterval,
		"source_file", u.cfg.SourceFile,
		"currency", u.cfg.Currency,
	)

	return nil
}

// Stop cancels the jobs and waits for in-flight runs to return or ctx to
// expire. Extra calls are no-ops.
func (u *Updater) Stop(ctx context.Context) error {
	u.mu.Lock()
	if !u.started || u.stopped {
		u.mu.Unlock()
		return nil
	}
	u.stopped = true
	u.cancel()
	u.mu.Unlock()

	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		u.logger.Info("updater stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// every runs job on each tick until ctx is canceled.
func (u *Updater) every(ctx context.Context, name string, interval time.Duration, immediate bool, job func(context.Context) error) {
	defer u.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		u.run(ctx, name, job)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.run(ctx, name, job)
		}
	}
}

func (u *Updater) run(ctx context.Context, name string, job func(context.Context) error) {
	start := time.Now()
	if err := job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		u.logger.Warn("job failed",
			"job", name,
			"error", err,
			"duration", time.Since(start),
		)
		return
	}
	u.logger.Debug("job complete", "job", name, "duration", time.Since(start))
}
