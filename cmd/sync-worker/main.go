package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(nil, applog.ComponentWorker).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting sync-worker")

	app, err := cli.Bootstrap(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Failed to build backend config", "error", err)
		os.Exit(1)
	}
	exporter, err := app.Factory.CreateExporter(context.Background(), bc)
	if err != nil {
		logger.Error("Failed to initialize exporter", "error", err)
		_ = app.Close()
		os.Exit(1)
	}

	processor := services.NewSyncProcessor(app.Backend.Store.Sync(), exporter, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
		MaxRetries:   services.DefaultSyncProcessorConfig().MaxRetries,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := processor.Stop(stopCtx); err != nil {
			logger.Error("Failed to stop sync processor", "error", err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	})
	ctx = applog.WithContext(ctx, logger)

	// The sweep also covers rows whose messages were lost or never sent.
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	if app.Backend.AMQP != nil {
		syncWorker := worker.NewSyncWorker(app.Backend.Store.Sync(), exporter)
		go func() {
			err := app.Backend.AMQP.ConsumeTransactions(ctx, syncWorker.HandleMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
		logger.Info("Consuming transaction messages", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only", "interval", cfg.SyncInterval)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Sync-worker shutdown complete")
}
