package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestTransactionService_CreateManual(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.card(t, "alice")

	tx, err := f.txs.CreateManual(ctx, "alice", TransactionInput{
		Amount:       amount("150.456"),
		Description:  " Mercado ",
		CategoryID:   f.food.ID,
		Type:         core.Expense,
		Status:       core.StatusPending,
		DueDate:      core.StringPtr("2025-03-20"),
		PaymentDate:  core.StringPtr("11/03/2025"),
		CreditCardID: core.StringPtr(card.ID),
	})
	if err != nil {
		t.Fatalf("CreateManual: %v", err)
	}
	if tx.Description != "Mercado" || tx.CategoryName != "Alimentação" || !tx.Amount.Equal(amount("150.46")) {
		t.Errorf("tx = %+v", tx)
	}
	if tx.DueDate == nil || !tx.DueDate.Equal(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DueDate = %v", tx.DueDate)
	}
	if tx.PaymentDate == nil || !tx.PaymentDate.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PaymentDate = %v", tx.PaymentDate)
	}

	if len(f.publisher.syncs) != 1 || f.publisher.syncs[0] != (publishedSync{ID: tx.ID, OwnerID: "alice", Version: 1}) {
		t.Errorf("published = %+v", f.publisher.syncs)
	}

	refreshed, err := f.cards.Get(ctx, "alice", card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !refreshed.AvailableLimit.Equal(amount("849.54")) {
		t.Errorf("AvailableLimit = %s, want 849.54", refreshed.AvailableLimit)
	}
}

func TestTransactionService_CreateManualRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	valid := func() TransactionInput {
		return TransactionInput{
			Amount:      amount("10"),
			Description: "Padaria",
			CategoryID:  f.food.ID,
			Type:        core.Expense,
			Status:      core.StatusPaid,
		}
	}

	tests := []struct {
		name  string
		edit  func(*TransactionInput)
		field string
	}{
		{"unknown category", func(in *TransactionInput) { in.CategoryID = "nope" }, "categoryId"},
		{"bad due date", func(in *TransactionInput) { in.DueDate = core.StringPtr("tomorrow") }, "dueDate"},
		{"unknown card", func(in *TransactionInput) { in.CreditCardID = core.StringPtr("nope") }, "creditCardId"},
		{"zero amount", func(in *TransactionInput) { in.Amount = amount("0") }, "amount"},
		{"bad type", func(in *TransactionInput) { in.Type = "transfer" }, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.edit(&in)
			_, err := f.txs.CreateManual(ctx, "alice", in)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !hasField(err, tt.field) {
				t.Errorf("err = %v, want field %s", err, tt.field)
			}
		})
	}
	if len(f.publisher.syncs) != 0 {
		t.Errorf("rejected inputs must not publish: %+v", f.publisher.syncs)
	}
}

func hasField(err error, field string) bool {
	var one *core.ValidationError
	if errors.As(err, &one) && one.Field == field {
		return true
	}
	var many core.ValidationErrors
	if errors.As(err, &many) {
		for _, v := range many {
			if v.Field == field {
				return true
			}
		}
	}
	return false
}

func TestTransactionService_UndatedCardChargeCountsInOpenInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.card(t, "alice")

	tx, err := f.txs.CreateManual(ctx, "alice", TransactionInput{
		Amount:       amount("40"),
		Description:  "Padaria",
		CategoryID:   f.food.ID,
		Type:         core.Expense,
		Status:       core.StatusPending,
		CreditCardID: core.StringPtr(card.ID),
	})
	if err != nil {
		t.Fatalf("CreateManual: %v", err)
	}
	if tx.PaymentDate == nil || !tx.PaymentDate.Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PaymentDate = %v, want today", tx.PaymentDate)
	}

	usage, err := f.cards.Usage(ctx, "alice", card.ID)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	summary, err := f.cards.Summary(ctx, "alice", card.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !usage.TotalDebt.Equal(amount("40")) || !summary.CurrentDebt.Equal(usage.TotalDebt) {
		t.Errorf("usage total = %s, summary debt = %s, want both 40", usage.TotalDebt, summary.CurrentDebt)
	}
}

func TestTransactionService_CreateFromReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tx, err := f.txs.CreateFromReceipt(ctx, "alice", ReceiptInput{
		Amount:      amount("89.90"),
		Description: "Conta de luz",
		Category:    "energia   elétrica",
		Type:        core.Expense,
		Status:      core.StatusPending,
		DueDate:     core.StringPtr("25/03/2025"),
	})
	if err != nil {
		t.Fatalf("CreateFromReceipt: %v", err)
	}
	if tx.CategoryName != "Energia elétrica" || tx.CategoryID == "" {
		t.Errorf("category = %s (%s)", tx.CategoryName, tx.CategoryID)
	}
	cats, err := f.categories.List(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 {
		t.Errorf("categories = %d, want global plus the new one", len(cats))
	}
}

func TestTransactionService_UpdatePublishesNewVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.card(t, "alice")

	tx, err := f.txs.CreateManual(ctx, "alice", TransactionInput{
		Amount:       amount("200"),
		Description:  "Tênis",
		CategoryID:   f.food.ID,
		Type:         core.Expense,
		Status:       core.StatusPending,
		PaymentDate:  core.StringPtr("2025-03-12"),
		CreditCardID: core.StringPtr(card.ID),
	})
	if err != nil {
		t.Fatal(err)
	}

	paid := core.StatusPaid
	updated, err := f.txs.Update(ctx, "alice", tx.ID, TransactionUpdate{
		Status:       &paid,
		CreditCardID: core.StringPtr(""),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != core.StatusPaid || updated.CreditCardID != nil {
		t.Errorf("updated = %+v", updated)
	}
	if updated.PaymentDate == nil || !updated.PaymentDate.Equal(time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PaymentDate changed: %v", updated.PaymentDate)
	}

	last := f.publisher.syncs[len(f.publisher.syncs)-1]
	if last.ID != tx.ID || last.Version != 2 {
		t.Errorf("last published = %+v, want version 2", last)
	}

	refreshed, err := f.cards.Get(ctx, "alice", card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !refreshed.AvailableLimit.Equal(amount("1000")) {
		t.Errorf("previous card AvailableLimit = %s, want 1000", refreshed.AvailableLimit)
	}
}

func TestTransactionService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tx, err := f.txs.CreateManual(ctx, "alice", TransactionInput{
		Amount: amount("5"), Description: "Café", CategoryID: f.food.ID,
		Type: core.Expense, Status: core.StatusPaid,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.txs.Delete(ctx, "bob", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("delete by another owner: err = %v, want ErrNotFound", err)
	}
	if err := f.txs.Delete(ctx, "alice", tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.publisher.deletes) != 1 || f.publisher.deletes[0] != tx.ID {
		t.Errorf("deletes = %v", f.publisher.deletes)
	}
	if _, err := f.txs.Get(ctx, "alice", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get after delete: err = %v", err)
	}
}

func TestTransactionService_PublishFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	_, err := f.txs.CreateManual(context.Background(), "alice", TransactionInput{
		Amount: amount("5"), Description: "Café", CategoryID: f.food.ID,
		Type: core.Expense, Status: core.StatusPaid,
	})
	if err != nil {
		t.Fatalf("CreateManual: %v", err)
	}
}

func TestTransactionService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i, typ := range []core.TransactionType{core.Expense, core.Expense, core.Income} {
		_, err := f.txs.CreateManual(ctx, "alice", TransactionInput{
			Amount: amount("10"), Description: "item", CategoryID: f.food.ID,
			Type: typ, Status: core.StatusPaid,
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	tests := []struct {
		name      string
		q         TransactionQuery
		wantTotal int
		wantErr   bool
	}{
		{"all", TransactionQuery{}, 3, false},
		{"expenses", TransactionQuery{Type: core.Expense}, 2, false},
		{"current month", TransactionQuery{Month: 3, Year: 2025}, 3, false},
		{"other month", TransactionQuery{Month: 4, Year: 2025}, 0, false},
		{"whole year", TransactionQuery{Year: 2025}, 3, false},
		{"date range", TransactionQuery{StartDate: "2025-03-15", EndDate: "2025-03-15"}, 3, false},
		{"range before", TransactionQuery{EndDate: "2025-03-14"}, 0, false},
		{"bad type", TransactionQuery{Type: "x"}, 0, true},
		{"bad month", TransactionQuery{Month: 13, Year: 2025}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.txs.List(ctx, "alice", tt.q)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Errorf("err = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if page.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", page.Total, tt.wantTotal)
			}
		})
	}
}
