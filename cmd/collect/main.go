package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/InsightSphere/internal/collector"
	"github.com/LJTian/InsightSphere/internal/config"
	"github.com/LJTian/InsightSphere/internal/logging"
	"github.com/LJTian/InsightSphere/internal/processor"
	"github.com/LJTian/InsightSphere/internal/scheduler"
	"github.com/LJTian/InsightSphere/internal/storage"
)

// 一个仅执行一轮采集和富化的命令行入口：适合手动触发
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, logger.With("component", "storage"))
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	col := collector.New(
		collector.FromConfig(cfg, logger.With("component", "collector")),
		store,
		logger.With("component", "collector"),
		cfg.FetchConcurrency,
		cfg.FetchTimeout,
	)

	var extractor processor.EntityExtractor = processor.NopExtractor{}
	if cfg.NEREndpoint != "" {
		extractor = processor.NewHTTPExtractor(cfg.NEREndpoint)
	}
	proc := processor.New(store, extractor, logger.With("component", "processor"))

	s, err := scheduler.New(col, proc, cfg.CollectInterval, cfg.EnrichInterval, logger.With("component", "scheduler"))
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	// 只执行一轮后退出
	code := 0
	if err := s.RunOnce(ctx); err != nil {
		logger.Error("run once finished with errors", "error", err)
		code = 1
	}
	if err := store.Close(context.Background()); err != nil {
		logger.Warn("close store failed", "error", err)
	}
	os.Exit(code)
}
