// Package services holds the use cases: input handling, category
// resolution and change publishing around the storage ports and the
// calculators.
package services

import (
	"context"
	"log/slog"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Publisher announces transaction changes to the sync pipeline.
// *amqp.Client satisfies it.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, ownerID string, version int64) error
	PublishTransactionDelete(ctx context.Context, id, ownerID string, year int) error
}

// Clock returns the current instant.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Deps bundles what every service is built from.
type Deps struct {
	Normalizer *core.Normalizer
	Clock      Clock
	Publisher  Publisher
}

func (d Deps) normalizer() *core.Normalizer {
	if d.Normalizer == nil {
		return core.NewNormalizer(time.UTC)
	}
	return d.Normalizer
}

// publishSync never fails the caller: the row is already stored locally and
// the periodic sweep picks it up.
func publishSync(ctx context.Context, p Publisher, tx core.Transaction, version int64) {
	if p == nil {
		slog.DebugContext(ctx, "Publisher not available, skipping sync message", "transaction_id", tx.ID)
		return
	}
	if err := p.PublishTransactionSync(ctx, tx.ID, tx.OwnerID, version); err != nil {
		fields := applog.NewFields().
			WithOwner(tx.OwnerID).
			WithTransaction(tx.ID, core.ToCents(tx.Amount), tx.CategoryName)
		applog.LogError(ctx, "Failed to publish sync message", err, applog.ComponentAMQP, applog.OpSync, fields)
	}
}

func publishDelete(ctx context.Context, p Publisher, ownerID, id string, year int) {
	if p == nil {
		slog.DebugContext(ctx, "Publisher not available, skipping delete message", "transaction_id", id)
		return
	}
	if err := p.PublishTransactionDelete(ctx, id, ownerID, year); err != nil {
		fields := applog.NewFields().WithOwner(ownerID)
		fields[applog.FieldTransactionID] = id
		fields[applog.FieldYear] = year
		applog.LogError(ctx, "Failed to publish delete message", err, applog.ComponentAMQP, applog.OpDelete, fields)
	}
}

func validMonth(month, year int) error {
	var v core.ValidationErrors
	if month < 1 || month > 12 {
		v = append(v, &core.ValidationError{Field: "month", Reason: "must be between 1 and 12"})
	}
	if year < 1900 || year > 2100 {
		v = append(v, &core.ValidationError{Field: "year", Reason: "must be between 1900 and 2100"})
	}
	return v.Err()
}
