package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/recurrence"

	"golang.org/x/sync/errgroup"
)

// RecurringProcessor materializes due subscriptions for every owner.
type RecurringProcessor struct {
	owners      ports.OwnerLister
	engine      *recurrence.Engine
	concurrency int
}

// RunSummary aggregates the per-owner reports of one run.
type RunSummary struct {
	Owners  int
	Created int
	Skipped int
	Failed  int
	Reports []recurrence.Report
}

// NewRecurringProcessor builds a processor whose new transactions go through
// the transaction service, so they are published like manual ones.
func NewRecurringProcessor(store ports.Store, txs *TransactionService, deps Deps, concurrency int) *RecurringProcessor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RecurringProcessor{
		owners:      store.Owners(),
		engine:      recurrence.NewEngine(store.Subscriptions(), txs, deps.normalizer().Location()),
		concurrency: concurrency,
	}
}

// ProcessDue runs the engine for every owner on now's date. One owner's
// failure is logged and does not stop the others.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (RunSummary, error) {
	if p.owners == nil || p.engine == nil {
		return RunSummary{}, fmt.Errorf("processor not properly initialized")
	}

	owners, err := p.owners.ListOwners(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list owners: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = RunSummary{Owners: len(owners)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, owner := range owners {
		owner := owner
		g.Go(func() error {
			report, err := p.engine.MaterializeDueSubscriptions(gctx, owner, now)
			if err != nil {
				applog.LogError(gctx, "Failed to process subscriptions for owner", err,
					applog.ComponentRecurrence, applog.OpMaterialize, applog.NewFields().WithOwner(owner))
				return nil
			}
			for _, f := range report.Failures() {
				slog.WarnContext(gctx, "Failed to materialize subscription",
					"owner_id", owner,
					"subscription_id", f.SubscriptionID,
					"description", f.Description,
					"error", f.Err)
			}

			mu.Lock()
			defer mu.Unlock()
			summary.Created += report.Created()
			summary.Skipped += report.Skipped()
			summary.Failed += len(report.Failures())
			summary.Reports = append(summary.Reports, report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"owners", summary.Owners,
		"created", summary.Created,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return summary, nil
}
