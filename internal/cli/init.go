// Package cli provides common CLI initialization utilities shared by
// cmd/finctl, cmd/sync-worker and cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"

	"github.com/joho/godotenv"
)

const (
	categoryCacheSize = 512
	categoryCacheTTL  = 10 * time.Minute
)

// SetupLogger builds the component logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = applog.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// App wires the backend and every service built on it.
type App struct {
	Config  *config.Config
	Backend *backend.BackendResult
	Factory backend.Factory
	Caches  *cache.Manager
	Deps    services.Deps

	Categories    *services.CategoryService
	Transactions  *services.TransactionService
	Cards         *services.CreditCardService
	Subscriptions *services.SubscriptionService
	Budgets       *services.BudgetService
	Notifications *services.NotificationService
}

// Bootstrap opens the configured backend and builds the services.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger.Logger)
	res, err := factory.CreateBackend(ctx, bc)
	if err != nil {
		return nil, err
	}

	deps := services.Deps{
		Normalizer: core.NewNormalizer(bc.Location),
		Clock:      time.Now,
		Publisher:  res.Publisher(),
	}

	categoryCache := cache.NewLRUCache[core.Category](categoryCacheSize, categoryCacheTTL)
	caches := cache.NewManager(logger.Logger)
	caches.Register(categoryCache)

	store := res.Store
	categories := services.NewCategoryService(store.Categories(), categoryCache)

	return &App{
		Config:        cfg,
		Backend:       res,
		Factory:       factory,
		Caches:        caches,
		Deps:          deps,
		Categories:    categories,
		Transactions:  services.NewTransactionService(store, categories, deps),
		Cards:         services.NewCreditCardService(store, deps),
		Subscriptions: services.NewSubscriptionService(store, categories, deps),
		Budgets:       services.NewBudgetService(store, categories, deps),
		Notifications: services.NewNotificationService(store.Notifications(), deps),
	}, nil
}

// Close releases the backend.
func (a *App) Close() error {
	if a.Backend == nil || a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
