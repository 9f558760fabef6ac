// Package notify generates reminder notifications: pending bills due
// tomorrow, budgets close to their limit and upcoming subscription renewals.
// Each reminder is created once per related record while it stays unread.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/recurrence"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const uncategorized = "Sem categoria"

type Config struct {
	// BudgetAlertPercent is the spent share of a budget that triggers an alert.
	BudgetAlertPercent int
	// RenewalLookaheadDays is how far ahead renewals are announced; 0 means
	// only renewals firing today.
	RenewalLookaheadDays int
	// Concurrency bounds how many owners are processed at once.
	Concurrency int
}

func DefaultConfig() Config {
	return Config{BudgetAlertPercent: 80, RenewalLookaheadDays: 7, Concurrency: 4}
}

// Result counts the notifications created in one run.
type Result struct {
	DueDate  int
	Budget   int
	Renewal  int
	Failures int
}

func (r Result) Total() int { return r.DueDate + r.Budget + r.Renewal }

func (r *Result) add(o Result) {
	r.DueDate += o.DueDate
	r.Budget += o.Budget
	r.Renewal += o.Renewal
	r.Failures += o.Failures
}

type Generator struct {
	txs     ports.TransactionStore
	subs    ports.SubscriptionStore
	budgets ports.BudgetStore
	notes   ports.NotificationStore
	owners  ports.OwnerLister
	calc    *budget.Calculator
	loc     *time.Location
	cfg     Config
}

func NewGenerator(store ports.Store, loc *time.Location, cfg Config) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Generator{
		txs:     store.Transactions(),
		subs:    store.Subscriptions(),
		budgets: store.Budgets(),
		notes:   store.Notifications(),
		owners:  store.Owners(),
		calc:    budget.NewCalculator(store.Transactions(), loc),
		loc:     loc,
		cfg:     cfg,
	}
}

// GenerateAll runs every generator for every owner. Per-owner failures are
// logged and counted; the error is set only when owners cannot be listed.
func (g *Generator) GenerateAll(ctx context.Context, now time.Time) (Result, error) {
	owners, err := g.owners.ListOwners(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list owners: %w", err)
	}

	var (
		mu    sync.Mutex
		total Result
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)
	for _, owner := range owners {
		owner := owner
		eg.Go(func() error {
			res := g.Generate(egctx, owner, now)
			mu.Lock()
			total.add(res)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return total, err
	}

	slog.InfoContext(ctx, "Notification generation complete",
		"owners", len(owners),
		"due_date", total.DueDate,
		"budget_limit", total.Budget,
		"subscription_renewal", total.Renewal,
		"failures", total.Failures)
	return total, nil
}

// Generate runs the three generators for one owner. A failing generator does
// not stop the others.
func (g *Generator) Generate(ctx context.Context, ownerID string, now time.Time) Result {
	var res Result
	today := core.DateOf(now.In(g.loc))

	steps := []struct {
		name  string
		count *int
		run   func(context.Context, string, core.CalendarDate) (int, error)
	}{
		{"due_date", &res.DueDate, g.DueTomorrow},
		{"budget_limit", &res.Budget, g.BudgetLimits},
		{"subscription_renewal", &res.Renewal, g.Renewals},
	}
	for _, s := range steps {
		n, err := s.run(ctx, ownerID, today)
		*s.count = n
		if err != nil {
			res.Failures++
			fields := applog.NewFields().WithOwner(ownerID)
			fields["type"] = s.name
			applog.LogError(ctx, "Failed to generate notifications", err,
				applog.ComponentNotification, applog.OpNotify, fields)
		}
	}
	return res
}

// DueTomorrow notifies pending transactions whose due date is tomorrow.
func (g *Generator) DueTomorrow(ctx context.Context, ownerID string, today core.CalendarDate) (int, error) {
	tomorrow := today.AddDays(1)
	txs, err := g.txs.FindPendingDueBetween(ctx, ownerID, tomorrow.In(g.loc), core.EndOfDate(tomorrow, g.loc))
	if err != nil {
		return 0, fmt.Errorf("find transactions due tomorrow: %w", err)
	}

	created := 0
	for _, tx := range txs {
		category := tx.CategoryName
		if category == "" {
			category = uncategorized
		}
		ok, err := g.notifyOnce(ctx, core.Notification{
			OwnerID:   ownerID,
			Title:     "Conta vence amanhã",
			Message:   fmt.Sprintf("%s (%s) vence amanhã", tx.Description, category),
			Type:      core.NotificationDueDate,
			RelatedID: core.StringPtr(tx.ID),
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// BudgetLimits notifies budgets of the current month whose spending reached
// the configured share.
func (g *Generator) BudgetLimits(ctx context.Context, ownerID string, today core.CalendarDate) (int, error) {
	month, year := int(today.Month), today.Year
	budgets, err := g.budgets.FindByPeriod(ctx, ownerID, month, year)
	if err != nil {
		return 0, fmt.Errorf("find budgets: %w", err)
	}
	if len(budgets) == 0 {
		return 0, nil
	}
	progress, err := g.calc.GetProgress(ctx, ownerID, budgets, month, year)
	if err != nil {
		return 0, fmt.Errorf("compute budget progress: %w", err)
	}

	threshold := decimal.NewFromInt(int64(g.cfg.BudgetAlertPercent))
	created := 0
	for _, p := range progress {
		if !p.Exceeds(threshold) {
			continue
		}
		ok, err := g.notifyOnce(ctx, core.Notification{
			OwnerID: ownerID,
			Title:   "Orçamento próximo do limite",
			Message: fmt.Sprintf("Orçamento de %s está em %s%% (%s de %s)",
				p.Budget.CategoryName,
				p.Percentage.StringFixed(1),
				p.Spent.StringFixed(2),
				p.Budget.Amount.StringFixed(2)),
			Type:      core.NotificationBudgetLimit,
			RelatedID: core.StringPtr(p.Budget.ID),
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// Renewals notifies active subscriptions firing within the lookahead window.
func (g *Generator) Renewals(ctx context.Context, ownerID string, today core.CalendarDate) (int, error) {
	subs, err := g.subs.FindActive(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("find active subscriptions: %w", err)
	}

	limit := today.AddDays(g.cfg.RenewalLookaheadDays)
	created := 0
	for _, sub := range subs {
		next, ok := recurrence.NextOccurrence(sub, today)
		if !ok || limit.Before(next) {
			continue
		}
		sent, err := g.notifyOnce(ctx, core.Notification{
			OwnerID:   ownerID,
			Title:     "Renovação de assinatura",
			Message:   fmt.Sprintf("Assinatura %s será renovada em breve", sub.Description),
			Type:      core.NotificationSubscriptionRenewal,
			RelatedID: core.StringPtr(sub.ID),
		})
		if err != nil {
			return created, err
		}
		if sent {
			created++
		}
	}
	return created, nil
}

// notifyOnce creates n unless an unread notification of the same type already
// points at the same record.
func (g *Generator) notifyOnce(ctx context.Context, n core.Notification) (bool, error) {
	exists, err := g.notes.ExistsUnread(ctx, n.OwnerID, n.Type, *n.RelatedID)
	if err != nil {
		return false, fmt.Errorf("check existing notification: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := g.notes.Create(ctx, &n); err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	slog.DebugContext(ctx, "Notification created",
		"owner_id", n.OwnerID, "type", n.Type, "related_id", *n.RelatedID)
	return true, nil
}
