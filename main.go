package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/KNBS-StatsChat/statschat-ke/config"
	"github.com/KNBS-StatsChat/statschat-ke/generative"
	"github.com/KNBS-StatsChat/statschat-ke/index"
	"github.com/KNBS-StatsChat/statschat-ke/ingest"
	"github.com/KNBS-StatsChat/statschat-ke/llmclient"
	"github.com/KNBS-StatsChat/statschat-ke/web"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	llm := llmclient.New(cfg, logger)

	idx, err := index.NewPGIndex(cfg.DatabaseURL, llm.Embed, cfg.EmbeddingDims, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer idx.Close()

	if err := idx.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	inquirer, err := generative.NewInquirer(cfg, idx, llm, logger)
	if err != nil {
		logger.Fatal("Failed to initialize query pipeline", zap.Error(err))
	}

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.WatchEnabled {
		updater := ingest.NewUpdater(cfg, idx, logger)
		watcher := ingest.NewWatcher(cfg.InboundDir, cfg.WatchDebounce, updater, logger)
		go func() {
			if err := watcher.Watch(ctx); err != nil && err != context.Canceled {
				logger.Error("Inbound watcher stopped", zap.Error(err))
			}
		}()
	}

	webServer := web.NewServer(inquirer, logger, cfg)
	if err := webServer.Start(ctx); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
