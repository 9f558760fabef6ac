package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	sheetsmem "fintrack/internal/sheets/memory"
	"fintrack/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type brokenExporter struct{}

func (brokenExporter) Upsert(context.Context, core.Transaction) (string, error) {
	return "", errors.New("sheets unavailable")
}

func (brokenExporter) Delete(context.Context, string, int) error {
	return errors.New("sheets unavailable")
}

func newTransaction(t *testing.T, store *memory.Store) core.Transaction {
	t.Helper()
	tx := core.Transaction{
		OwnerID:      "alice",
		Amount:       decimal.NewFromInt(42),
		Description:  "Farmácia",
		CategoryName: "Saúde",
		Type:         core.Expense,
		Status:       core.StatusPaid,
	}
	if err := store.Transactions().Create(context.Background(), &tx); err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestSyncWorker_HandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tx := newTransaction(t, store)
	exporter := sheetsmem.New()
	w := NewSyncWorker(store.Sync(), exporter)

	if err := w.HandleMessage(ctx, amqp.NewSyncMessage(tx.ID, "alice", 1)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	rows := exporter.Rows()
	if len(rows) != 1 || rows[0].ID != tx.ID {
		t.Fatalf("rows = %+v", rows)
	}
	pending, err := store.Sync().PendingSync(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("transaction still pending after sync: %+v", pending)
	}
}

func TestSyncWorker_SkipsStaleAndMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tx := newTransaction(t, store)
	tx.Description = "Farmácia 24h"
	if err := store.Transactions().Update(ctx, &tx); err != nil {
		t.Fatal(err)
	}
	exporter := sheetsmem.New()
	w := NewSyncWorker(store.Sync(), exporter)

	tests := []struct {
		name string
		msg  *amqp.TransactionMessage
	}{
		{"stale version", amqp.NewSyncMessage(tx.ID, "alice", 1)},
		{"deleted transaction", amqp.NewSyncMessage("gone", "alice", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.HandleMessage(ctx, tt.msg); err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
		})
	}
	if rows := exporter.Rows(); len(rows) != 0 {
		t.Errorf("nothing should be exported, got %+v", rows)
	}

	if err := w.HandleMessage(ctx, amqp.NewSyncMessage(tx.ID, "alice", 2)); err != nil {
		t.Fatalf("current version: %v", err)
	}
	if rows := exporter.Rows(); len(rows) != 1 || rows[0].Description != "Farmácia 24h" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestSyncWorker_HandleDeleteMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tx := newTransaction(t, store)
	exporter := sheetsmem.New()
	w := NewSyncWorker(store.Sync(), exporter)

	if err := w.HandleMessage(ctx, amqp.NewSyncMessage(tx.ID, "alice", 1)); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleMessage(ctx, amqp.NewDeleteMessage(tx.ID, "alice", time.Now().Year())); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rows := exporter.Rows(); len(rows) != 0 {
		t.Errorf("rows after delete = %+v", rows)
	}
}

func TestSyncWorker_ExporterErrorsRequeue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tx := newTransaction(t, store)
	w := NewSyncWorker(store.Sync(), brokenExporter{})

	if err := w.HandleMessage(ctx, amqp.NewSyncMessage(tx.ID, "alice", 1)); err == nil {
		t.Error("sync should fail so the message is requeued")
	}
	if err := w.HandleMessage(ctx, amqp.NewDeleteMessage(tx.ID, "alice", 2025)); err == nil {
		t.Error("delete should fail so the message is requeued")
	}

	pending, err := store.Sync().PendingSync(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("failed sync must leave the row pending, got %+v", pending)
	}
}
