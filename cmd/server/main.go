package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/saleemayman/city-temperatures-service/internal/api"
	"github.com/saleemayman/city-temperatures-service/internal/config"
	"github.com/saleemayman/city-temperatures-service/internal/metrics"
	"github.com/saleemayman/city-temperatures-service/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading configuration", "err", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rankingMode, err := storage.ParseRankingMode(cfg.RankingMode)
	if err != nil {
		return err
	}

	poolConfig := storage.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns}
	if cfg.DBQueryLog {
		poolConfig.QueryLogger = log.With("component", "pgx")
	}
	pool, err := storage.Connect(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.VerifySchema(ctx, pool); err != nil {
		return fmt.Errorf("verifying schema: %w", err)
	}
	log.Info("database schema verified")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storeMetrics, err := metrics.NewStoreMetrics(registry)
	if err != nil {
		return err
	}

	store := storage.NewStore(pool,
		storage.WithRankingMode(rankingMode),
		storage.WithObserver(storeMetrics),
	)
	handlers := api.NewHandlers(store, log)
	router := api.NewRouter(handlers, pool,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		cfg.RateLimitPerMinute, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port, "ranking_mode", rankingMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server shut down cleanly")
	return nil
}
