package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"puremetrics/internal/amqp"
	"puremetrics/internal/config"
	"puremetrics/internal/ingest"
	"puremetrics/internal/pureapi"
	"puremetrics/internal/storage"
)

func main() {
	backfill := flag.Bool("backfill", false, "restamp stored transactions with no event type, then exit")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting puremetrics-ingest")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.PureAPIKey == "" && !*backfill {
		logger.Error("PURE_API_KEY is required for ingestion")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client := pureapi.NewClient(cfg.PureBaseURL, cfg.PureAPIKey, pureapi.RetryConfig{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		RateLimitDelay: cfg.RateLimitDelay,
	}, cfg.ProductBatchSize)

	// AMQP is optional; without it the API server relies on cache TTLs.
	var notifier ingest.Notifier
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		notifier = amqpClient
		logger.Info("AMQP notifications enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - sync completions will not be announced")
	}

	syncer := ingest.NewSyncer(client, repo, repo, repo, notifier, cfg.SyncConcurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *backfill {
		count, err := syncer.BackfillEventTypes(ctx, repo)
		if err != nil {
			logger.Error("Backfill failed", "error", err, "restamped", count)
			os.Exit(1)
		}
		logger.Info("Backfill finished", "restamped", count)
		return
	}

	// Run both passes once at startup so a fresh deployment has data before
	// the first tick.
	runProductSync(ctx, syncer)
	runTransactionSync(ctx, syncer)

	productTicker := time.NewTicker(cfg.ProductSyncInterval)
	defer productTicker.Stop()
	txTicker := time.NewTicker(cfg.TransactionSyncInterval)
	defer txTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-productTicker.C:
				runProductSync(ctx, syncer)
			case <-txTicker.C:
				runTransactionSync(ctx, syncer)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Ingest worker stopped")
}

func runProductSync(ctx context.Context, syncer *ingest.Syncer) {
	start := time.Now()
	count, err := syncer.SyncProducts(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Product sync failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Product sync finished",
		"count", count,
		"duration", time.Since(start).Round(time.Millisecond))
}

func runTransactionSync(ctx context.Context, syncer *ingest.Syncer) {
	start := time.Now()
	count, err := syncer.SyncTransactions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Transaction sync failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Transaction sync finished",
		"count", count,
		"duration", time.Since(start).Round(time.Millisecond))
}
