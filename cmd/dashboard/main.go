package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/orders-dashboard/internal/api"
	"github.com/rickgao/orders-dashboard/internal/config"
	"github.com/rickgao/orders-dashboard/internal/logging"
	"github.com/rickgao/orders-dashboard/internal/model"
	"github.com/rickgao/orders-dashboard/internal/poller"
	"github.com/rickgao/orders-dashboard/internal/server"
	"github.com/rickgao/orders-dashboard/internal/state"
	"github.com/rickgao/orders-dashboard/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/dashboard.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadDashboard(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)

	logger.Info("starting dashboard",
		version.Attr(),
		"config", *configPath,
		"endpoint", cfg.Source.Endpoint,
		"interval", cfg.Poller.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(
		cfg.Source.Endpoint,
		api.WithTimeout(cfg.Source.Timeout),
		api.WithLogger(logger),
	)

	cell := state.NewCell()
	p := poller.New(
		poller.Config{
			Interval: cfg.Poller.Interval,
			Timeout:  cfg.Poller.FetchTimeout,
		},
		client,
		func(items []model.OrderItem) {
			snap := cell.Set(items)
			logger.Debug("snapshot updated", "id", snap.ID, "items", len(items))
		},
		logger,
	)

	srv := server.New(cell, server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Stats:          p,
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Poller first so nothing writes the cell after it closes.
		if err := p.Stop(shutdownCtx); err != nil {
			logger.Warn("poller stop timed out", "error", err)
		}
		cell.Close()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("dashboard exited with error", "error", err)
		os.Exit(1)
	}

	stats := p.Stats()
	logger.Info("dashboard stopped", "polls", stats.Polls, "failures", stats.Failures)
}
