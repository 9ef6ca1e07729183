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
	"github.com/rickgao/orders-dashboard/internal/database"
	"github.com/rickgao/orders-dashboard/internal/logging"
	"github.com/rickgao/orders-dashboard/internal/orderapi"
	"github.com/rickgao/orders-dashboard/internal/orderstore"
	"github.com/rickgao/orders-dashboard/internal/updater"
	"github.com/rickgao/orders-dashboard/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/orderapi.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadOrderAPI(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)

	logger.Info("starting orderapi",
		version.Attr(),
		"config", *configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := orderstore.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	logger.Info("database connected")

	rates := api.NewClient(cfg.Rates.URL,
		api.WithTimeout(cfg.Rates.Timeout),
		api.WithLogger(logger),
	)

	jobs := updater.New(updater.Config{
		Currency:           cfg.Rates.Currency,
		SourceFile:         cfg.Updater.SourceFile,
		FirstDataRow:       cfg.Updater.FirstDataRow,
		CheckModified:      *cfg.Updater.CheckModified,
		Interval:           cfg.Updater.Interval,
		ExpirationInterval: cfg.Updater.ExpirationInterval,
		CleanupInterval:    cfg.Updater.CleanupInterval,
		ExecutionMaxAge:    cfg.Updater.ExecutionMaxAge,
		RateTTL:            cfg.Rates.CacheTTL,
	}, store, rates, updater.LogNotifier{Logger: logger}, logger)

	if err := jobs.Start(ctx); err != nil {
		logger.Error("failed to start updater", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      orderapi.NewRouter(store, pool, cfg.Server.AllowedOrigins, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Server.Addr, "path", orderapi.ItemsPath)
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

		if err := jobs.Stop(shutdownCtx); err != nil {
			logger.Warn("updater stop timed out", "error", err)
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("orderapi exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("orderapi stopped")
}
