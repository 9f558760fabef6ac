package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/sheets"
)

// SyncWorker mirrors transactions into the spreadsheet as AMQP messages arrive.
type SyncWorker struct {
	store    ports.SyncStore
	exporter sheets.TransactionExporter
}

func NewSyncWorker(store ports.SyncStore, exporter sheets.TransactionExporter) *SyncWorker {
	return &SyncWorker{store: store, exporter: exporter}
}

// HandleMessage dispatches a consumed message. A returned error requeues it.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	switch msg.Operation {
	case amqp.OpDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return w.HandleSyncMessage(ctx, msg)
	}
}

// HandleSyncMessage exports the current state of the transaction. Messages
// older than the stored version are dropped: a newer message follows them.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	current, err := w.store.Version(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction version: %w", err)
	}
	if msg.Version > 0 && msg.Version < current {
		slog.InfoContext(ctx, "Skipping stale sync message",
			"id", msg.ID,
			"version", msg.Version,
			"current_version", current)
		return nil
	}

	tx, err := w.store.GetForSync(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.exporter.Upsert(ctx, *tx)
	if err != nil {
		return fmt.Errorf("sync transaction to sheets: %w", err)
	}

	if err := w.store.MarkSynced(ctx, msg.ID); err != nil {
		slog.WarnContext(ctx, "Failed to mark transaction as synced",
			"id", msg.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced transaction to Google Sheets",
		"id", msg.ID,
		"owner_id", msg.OwnerID,
		"sheets_ref", ref)
	return nil
}

// HandleDeleteMessage removes the transaction row from its year's sheet.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	year := msg.Year
	if year == 0 {
		year = msg.Timestamp.Year()
	}
	if err := w.exporter.Delete(ctx, msg.ID, year); err != nil {
		slog.ErrorContext(ctx, "Failed to delete transaction from Google Sheets",
			"id", msg.ID,
			"year", year,
			"error", err,
			"timestamp", msg.Timestamp)
		return fmt.Errorf("delete transaction from sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully deleted transaction from Google Sheets",
		"id", msg.ID,
		"year", year)
	return nil
}
