package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func TestExporterUpsertIsKeyedByID(t *testing.T) {
	ctx := context.Background()
	e := New()

	tx := core.Transaction{ID: "tx-1", Description: "Mercado", Amount: decimal.NewFromInt(10)}
	ref1, err := e.Upsert(ctx, tx)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	tx.Description = "Mercado e padaria"
	ref2, err := e.Upsert(ctx, tx)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if ref1 != ref2 {
		t.Errorf("refs differ: %s vs %s", ref1, ref2)
	}

	rows := e.Rows()
	if len(rows) != 1 || rows[0].Description != "Mercado e padaria" {
		t.Errorf("rows = %+v", rows)
	}

	if _, err := e.Upsert(ctx, core.Transaction{}); err == nil {
		t.Error("Upsert without id should fail")
	}
}

func TestExporterDelete(t *testing.T) {
	ctx := context.Background()
	e := New()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := e.Upsert(ctx, core.Transaction{ID: id}); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}

	if err := e.Delete(ctx, "b", 2024); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.Delete(ctx, "missing", 2024); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}

	rows := e.Rows()
	if len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "c" {
		t.Errorf("rows = %+v", rows)
	}
}
