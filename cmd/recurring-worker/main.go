package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/seed"
	"fintrack/internal/services"

	"golang.org/x/sync/errgroup"
)

const cacheCleanInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(nil, applog.ComponentWorker).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentRecurrence)
	logger.Info("Starting recurring-worker")

	app, err := cli.Bootstrap(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	// The backend is closed after the loops return, not from the signal handler.
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	ctx = applog.WithContext(ctx, logger)

	catalogue, err := seed.Default()
	if err != nil {
		logger.Error("Failed to load category catalogue", "error", err)
		os.Exit(1)
	}
	if _, err := seed.Apply(ctx, app.Backend.Store.Categories(), catalogue); err != nil {
		logger.Error("Failed to apply category catalogue", "error", err)
	}

	processor := services.NewRecurringProcessor(app.Backend.Store, app.Transactions, app.Deps, cfg.WorkerConcurrency)
	generator := notify.NewGenerator(app.Backend.Store, app.Deps.Normalizer.Location(), notify.Config{
		BudgetAlertPercent:   cfg.BudgetAlertPercent,
		RenewalLookaheadDays: cfg.RenewalLookaheadDays,
		Concurrency:          cfg.WorkerConcurrency,
	})

	logger.Info("Recurring processor configured",
		"recurring_interval", cfg.RecurringInterval,
		"notification_interval", cfg.NotificationInterval,
		"concurrency", cfg.WorkerConcurrency,
		"backend", cfg.DataBackend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(gctx, cfg.RecurringInterval, func(now time.Time) {
			summary, err := processor.ProcessDue(gctx, now)
			if err != nil {
				logger.Error("Recurring processing failed", "error", err)
				return
			}
			logger.Info("Recurring run finished",
				"owners", summary.Owners,
				"created", summary.Created,
				"skipped", summary.Skipped,
				"failed", summary.Failed,
				"next_check", now.Add(cfg.RecurringInterval).Format("15:04:05"))
		})
	})
	g.Go(func() error {
		return every(gctx, cfg.NotificationInterval, func(now time.Time) {
			res, err := generator.GenerateAll(gctx, now)
			if err != nil {
				logger.Error("Notification generation failed", "error", err)
				return
			}
			logger.Info("Notification run finished",
				"due_date", res.DueDate,
				"budget", res.Budget,
				"renewal", res.Renewal,
				"failures", res.Failures)
		})
	})
	g.Go(func() error {
		return app.Caches.Run(gctx, cacheCleanInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring-worker stopped", "error", err)
	}
	if err := app.Close(); err != nil {
		logger.Error("Failed to close backend", "error", err)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}

// every runs fn once immediately and then on each tick until ctx ends.
func every(ctx context.Context, interval time.Duration, fn func(time.Time)) error {
	fn(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			fn(now)
		}
	}
}
