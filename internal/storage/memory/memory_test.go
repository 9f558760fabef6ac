package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

func fixedClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

func TestTransactionGuardIsPerSubscriptionAndDay(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(fixedClock()))

	due := time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC)
	build := func(subID string, due time.Time) *core.Transaction {
		return &core.Transaction{
			OwnerID:        "u1",
			Amount:         decimal.NewFromInt(30),
			Description:    "Spotify",
			CategoryName:   "Lazer",
			Type:           core.Expense,
			Status:         core.StatusPending,
			DueDate:        &due,
			SubscriptionID: &subID,
		}
	}

	tests := []struct {
		name    string
		tx      *core.Transaction
		wantErr error
	}{
		{"first", build("s1", due), nil},
		{"same day", build("s1", due), core.ErrConflict},
		{"other subscription", build("s2", due), nil},
		{"next day", build("s1", due.AddDate(0, 0, 1)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Transactions().Create(ctx, tt.tx)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionUpdateKeepsSubscriptionGuard(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(fixedClock()))

	due := time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC)
	subID := "s1"
	first := &core.Transaction{
		OwnerID: "u1", Amount: decimal.NewFromInt(30), Description: "Spotify", CategoryName: "Lazer",
		Type: core.Expense, Status: core.StatusPending, DueDate: &due, SubscriptionID: &subID,
	}
	second := *first
	next := due.AddDate(0, 0, 1)
	second.DueDate = &next
	for _, tx := range []*core.Transaction{first, &second} {
		if err := s.Transactions().Create(ctx, tx); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	first.Status = core.StatusPaid
	if err := s.Transactions().Update(ctx, first); err != nil {
		t.Errorf("update in place err = %v", err)
	}

	second.DueDate = &due
	if err := s.Transactions().Update(ctx, &second); !errors.Is(err, core.ErrConflict) {
		t.Errorf("moving onto a materialized day err = %v, want ErrConflict", err)
	}
}

func TestListPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(fixedClock()))

	for i := 0; i < 5; i++ {
		tx := &core.Transaction{
			OwnerID:      "u1",
			Amount:       decimal.NewFromInt(int64(i + 1)),
			Description:  "item",
			CategoryName: "Outros",
			Type:         core.Expense,
			Status:       core.StatusPaid,
		}
		if err := s.Transactions().Create(ctx, tx); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, total, err := s.Transactions().List(ctx, "u1", ports.TransactionFilter{Page: ports.Page{Page: 1, Limit: 2}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("got %d of %d, want 2 of 5", len(items), total)
	}
	if !items[0].Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("first item amount = %s, want the newest (5)", items[0].Amount)
	}

	items, _, _ = s.Transactions().List(ctx, "u1", ports.TransactionFilter{Page: ports.Page{Page: 9, Limit: 2}})
	if len(items) != 0 {
		t.Errorf("page past the end = %d items, want 0", len(items))
	}
}

func TestFindDueTodayClamps(t *testing.T) {
	ctx := context.Background()
	s := New()

	monthly := &core.Subscription{
		OwnerID: "u1", Description: "Aluguel", Amount: decimal.NewFromInt(1500), CategoryName: "Moradia",
		Frequency: core.Monthly, DayOfMonth: core.IntPtr(31), IsActive: true,
	}
	if err := s.Subscriptions().Create(ctx, monthly); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		day  core.CalendarDate
		want int
	}{
		{core.NewCalendarDate(2024, time.February, 29), 1},
		{core.NewCalendarDate(2023, time.February, 28), 1},
		{core.NewCalendarDate(2024, time.February, 28), 0},
		{core.NewCalendarDate(2024, time.March, 30), 0},
		{core.NewCalendarDate(2024, time.March, 31), 1},
	}
	for _, tt := range tests {
		t.Run(tt.day.String(), func(t *testing.T) {
			got, err := s.Subscriptions().FindDueToday(ctx, "u1", tt.day)
			if err != nil {
				t.Fatalf("FindDueToday: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d due, want %d", len(got), tt.want)
			}
		})
	}

	if err := s.Subscriptions().Deactivate(ctx, "u1", monthly.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	got, _ := s.Subscriptions().FindDueToday(ctx, "u1", core.NewCalendarDate(2024, time.March, 31))
	if len(got) != 0 {
		t.Errorf("inactive subscription still due")
	}
}

func TestCardDeleteClearsReferences(t *testing.T) {
	ctx := context.Background()
	s := New()

	card := &core.CreditCard{OwnerID: "u1", Name: "Inter", Flag: core.FlagVisa, LastFourDigits: "4321",
		Limit: decimal.NewFromInt(1000), ClosingDay: 5, DueDay: 12, Status: core.CardActive}
	if err := s.CreditCards().Create(ctx, card); err != nil {
		t.Fatalf("Create card: %v", err)
	}
	tx := &core.Transaction{OwnerID: "u1", Amount: decimal.NewFromInt(10), Description: "x",
		CategoryName: "Outros", Type: core.Expense, Status: core.StatusPending, CreditCardID: &card.ID}
	if err := s.Transactions().Create(ctx, tx); err != nil {
		t.Fatalf("Create tx: %v", err)
	}

	if err := s.CreditCards().Delete(ctx, "u2", card.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete by other owner err = %v, want ErrNotFound", err)
	}
	if err := s.CreditCards().Delete(ctx, "u1", card.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.Transactions().Get(ctx, "u1", tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CreditCardID != nil {
		t.Errorf("card ref = %s, want nil", *got.CreditCardID)
	}
}

func TestCategoryVisibility(t *testing.T) {
	ctx := context.Background()
	s := New()

	global := &core.Category{OwnerID: "system", Name: "Saúde", IsGlobal: true}
	private := &core.Category{OwnerID: "u1", Name: "Pets"}
	for _, c := range []*core.Category{global, private} {
		if err := s.Categories().Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if _, err := s.Categories().Get(ctx, "u2", private.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("private category visible to other owner: %v", err)
	}
	got, err := s.Categories().FindByName(ctx, "u2", "saúde")
	if err != nil || got.ID != global.ID {
		t.Errorf("FindByName global = %v, %v", got, err)
	}
	if err := s.Categories().Create(ctx, &core.Category{OwnerID: "u1", Name: "PETS"}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}
}

func TestSyncVersionBumpsOnUpdate(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(fixedClock()))

	tx := &core.Transaction{OwnerID: "u1", Amount: decimal.NewFromInt(10), Description: "x",
		CategoryName: "Outros", Type: core.Income, Status: core.StatusPaid}
	if err := s.Transactions().Create(ctx, tx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Sync().MarkSynced(ctx, tx.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if pending, _ := s.Sync().PendingSync(ctx, 10); len(pending) != 0 {
		t.Fatalf("pending after sync = %d", len(pending))
	}

	if err := s.Transactions().Update(ctx, tx); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pending, _ := s.Sync().PendingSync(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("pending = %+v, want one entry at version 2", pending)
	}
	if v, err := s.Sync().Version(ctx, tx.ID); err != nil || v != 2 {
		t.Errorf("Version = %d, %v, want 2", v, err)
	}
}
