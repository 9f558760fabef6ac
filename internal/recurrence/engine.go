package recurrence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type Outcome string

const (
	Created Outcome = "created"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// ItemResult is the outcome for one subscription.
type ItemResult struct {
	SubscriptionID string
	Description    string
	Outcome        Outcome
	TransactionID  string
	Err            error
}

// Report collects the per-subscription outcomes of one run.
type Report struct {
	Date    core.CalendarDate
	OwnerID string
	Items   []ItemResult
}

func (r Report) count(o Outcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}

func (r Report) Created() int { return r.count(Created) }
func (r Report) Skipped() int { return r.count(Skipped) }

// Failures returns the items that could not be materialized.
func (r Report) Failures() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Outcome == Failed {
			out = append(out, it)
		}
	}
	return out
}

// TransactionCreator persists a transaction. ports.TransactionStore satisfies
// it, and so does a service that also publishes the new row.
type TransactionCreator interface {
	Create(ctx context.Context, tx *core.Transaction) error
}

// Engine materializes due subscriptions into pending expenses.
type Engine struct {
	subs    ports.SubscriptionStore
	creator TransactionCreator
	loc     *time.Location
}

func NewEngine(subs ports.SubscriptionStore, creator TransactionCreator, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{subs: subs, creator: creator, loc: loc}
}

// MaterializeDueSubscriptions creates one pending expense for every active
// subscription of ownerID that fires on today's date in the engine's
// location. A subscription already materialized for the day is skipped, and
// a failure on one subscription does not stop the others. The returned error
// is set only when the due subscriptions cannot be loaded.
func (e *Engine) MaterializeDueSubscriptions(ctx context.Context, ownerID string, today time.Time) (Report, error) {
	day := core.DateOf(today.In(e.loc))
	report := Report{Date: day, OwnerID: ownerID}

	subs, err := e.subs.FindDueToday(ctx, ownerID, day)
	if err != nil {
		return report, fmt.Errorf("find due subscriptions: %w", err)
	}

	slog.InfoContext(ctx, "Processing due subscriptions",
		"owner_id", ownerID,
		"candidates", len(subs),
		"processing_date", day.String())

	for _, sub := range subs {
		report.Items = append(report.Items, e.materialize(ctx, ownerID, sub, day))
	}

	slog.InfoContext(ctx, "Subscription processing complete",
		"owner_id", ownerID,
		"created", report.Created(),
		"skipped", report.Skipped(),
		"failed", len(report.Failures()))

	return report, nil
}

func (e *Engine) materialize(ctx context.Context, ownerID string, sub core.Subscription, day core.CalendarDate) ItemResult {
	res := ItemResult{SubscriptionID: sub.ID, Description: sub.Description}

	due, err := IsDue(sub, day)
	if err != nil {
		res.Outcome, res.Err = Failed, err
		slog.ErrorContext(ctx, "Failed to check if subscription is due",
			"subscription_id", sub.ID, "error", err)
		return res
	}
	if !due || sub.OwnerID != ownerID {
		res.Outcome = Skipped
		return res
	}

	tx := NewTransaction(sub, day.In(e.loc))
	if err := e.creator.Create(ctx, &tx); err != nil {
		if errors.Is(err, core.ErrConflict) {
			res.Outcome = Skipped
			slog.DebugContext(ctx, "Subscription already materialized",
				"subscription_id", sub.ID, "date", day.String())
			return res
		}
		res.Outcome, res.Err = Failed, err
		slog.ErrorContext(ctx, "Failed to create transaction from subscription",
			"subscription_id", sub.ID,
			"description", sub.Description,
			"error", err)
		return res
	}

	res.Outcome, res.TransactionID = Created, tx.ID
	slog.InfoContext(ctx, "Created transaction from subscription",
		"subscription_id", sub.ID,
		"transaction_id", tx.ID,
		"description", sub.Description,
		"amount", core.FormatAmount(sub.Amount),
		"frequency", sub.Frequency)
	return res
}

// NewTransaction builds the pending expense a subscription produces on the
// day starting at midnight. A charge on a card is also dated that day so it
// lands in the card's invoice window.
func NewTransaction(sub core.Subscription, midnight time.Time) core.Transaction {
	tx := core.Transaction{
		OwnerID:        sub.OwnerID,
		Amount:         sub.Amount,
		Description:    sub.Description,
		CategoryID:     sub.CategoryID,
		CategoryName:   sub.CategoryName,
		Type:           core.Expense,
		Status:         core.StatusPending,
		DueDate:        core.TimePtr(midnight),
		SubscriptionID: core.StringPtr(sub.ID),
	}
	if sub.CreditCardID != nil {
		tx.CreditCardID = core.StringPtr(*sub.CreditCardID)
		tx.PaymentDate = core.TimePtr(midnight)
	}
	return tx
}
