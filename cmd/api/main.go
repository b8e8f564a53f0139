package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/InsightSphere/internal/api"
	"github.com/LJTian/InsightSphere/internal/collector"
	"github.com/LJTian/InsightSphere/internal/config"
	"github.com/LJTian/InsightSphere/internal/logging"
	"github.com/LJTian/InsightSphere/internal/processor"
	"github.com/LJTian/InsightSphere/internal/scheduler"
	"github.com/LJTian/InsightSphere/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, logger.With("component", "storage"))
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("close store failed", "error", err)
		}
	}()

	col := collector.New(
		collector.FromConfig(cfg, logger.With("component", "collector")),
		store,
		logger.With("component", "collector"),
		cfg.FetchConcurrency,
		cfg.FetchTimeout,
	)
	proc := processor.New(store, extractor(cfg), logger.With("component", "processor"))

	s, err := scheduler.New(col, proc, cfg.CollectInterval, cfg.EnrichInterval, logger.With("component", "scheduler"))
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start(ctx)
	defer s.Stop()

	// API
	r := gin.Default()
	api.NewServer(store, col, logger.With("component", "api")).RegisterRoutes(r)
	if cfg.WebRoot != "" {
		api.ServeFrontend(r, cfg.WebRoot)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting api server", "addr", srv.Addr, "store", cfg.StoreDriver, "feeds", len(cfg.Feeds))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server exit", "error", err)
	}
}

func extractor(cfg *config.Config) processor.EntityExtractor {
	if cfg.NEREndpoint == "" {
		return processor.NopExtractor{}
	}
	return processor.NewHTTPExtractor(cfg.NEREndpoint)
}
