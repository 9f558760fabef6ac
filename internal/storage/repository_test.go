package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

const owner = "user-1"

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCard(t *testing.T, repo *SQLiteRepository) *core.CreditCard {
	t.Helper()
	card := &core.CreditCard{
		OwnerID:        owner,
		Name:           "Nubank",
		Flag:           core.FlagMastercard,
		LastFourDigits: "1234",
		Limit:          decimal.NewFromInt(5000),
		AvailableLimit: decimal.NewFromInt(5000),
		ClosingDay:     10,
		DueDay:         17,
		Status:         core.CardActive,
	}
	if err := repo.CreditCards().Create(context.Background(), card); err != nil {
		t.Fatalf("create card: %v", err)
	}
	return card
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		repo.Close()
	}

	version, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	card := mustCard(t, repo)

	paid := time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC)
	tx := &core.Transaction{
		OwnerID:      owner,
		Amount:       decimal.RequireFromString("123.45"),
		Description:  "Mercado",
		CategoryName: "Alimentação",
		Type:         core.Expense,
		Status:       core.StatusPending,
		PaymentDate:  &paid,
		CreditCardID: &card.ID,
	}
	if err := repo.Transactions().Create(ctx, tx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := repo.Transactions().Get(ctx, owner, tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Amount.Equal(tx.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, tx.Amount)
	}
	if got.PaymentDate == nil || !got.PaymentDate.Equal(paid) {
		t.Errorf("payment date = %v, want %v", got.PaymentDate, paid)
	}
	if got.CreditCardID == nil || *got.CreditCardID != card.ID {
		t.Errorf("card = %v, want %s", got.CreditCardID, card.ID)
	}
	if got.DueDate != nil || got.SubscriptionID != nil {
		t.Errorf("unexpected optional fields: due=%v sub=%v", got.DueDate, got.SubscriptionID)
	}

	if _, err := repo.Transactions().Get(ctx, "someone-else", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get other owner err = %v, want ErrNotFound", err)
	}
}

func TestTransactionSubscriptionGuard(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	due := time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC)
	subID := "sub-1"
	newTx := func() *core.Transaction {
		return &core.Transaction{
			OwnerID:        owner,
			Amount:         decimal.NewFromInt(30),
			Description:    "Netflix",
			CategoryName:   "Lazer",
			Type:           core.Expense,
			Status:         core.StatusPending,
			DueDate:        &due,
			SubscriptionID: &subID,
		}
	}

	if err := repo.Transactions().Create(ctx, newTx()); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := repo.Transactions().Create(ctx, newTx()); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("second Create err = %v, want ErrConflict", err)
	}

	next := due.AddDate(0, 1, 0)
	tx := newTx()
	tx.DueDate = &next
	if err := repo.Transactions().Create(ctx, tx); err != nil {
		t.Fatalf("next month Create: %v", err)
	}

	tx.DueDate = &due
	if err := repo.Transactions().Update(ctx, tx); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("Update onto a materialized day err = %v, want ErrConflict", err)
	}
}

func TestTransactionListFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		typ := core.Expense
		if i%2 == 1 {
			typ = core.Income
		}
		tx := &core.Transaction{
			OwnerID:      owner,
			Amount:       decimal.NewFromInt(int64(10 * (i + 1))),
			Description:  "item",
			CategoryName: "Outros",
			Type:         typ,
			Status:       core.StatusPaid,
			CreatedAt:    base.AddDate(0, 0, i),
		}
		if err := repo.Transactions().Create(ctx, tx); err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
	}

	tests := []struct {
		name      string
		filter    ports.TransactionFilter
		wantTotal int
		wantItems int
	}{
		{"all", ports.TransactionFilter{}, 5, 5},
		{"expenses", ports.TransactionFilter{Type: core.Expense}, 3, 3},
		{"page size", ports.TransactionFilter{Page: ports.Page{Page: 2, Limit: 2}}, 5, 2},
		{"last page", ports.TransactionFilter{Page: ports.Page{Page: 3, Limit: 2}}, 5, 1},
		{"date range", ports.TransactionFilter{From: core.TimePtr(base.AddDate(0, 0, 1)), To: core.TimePtr(base.AddDate(0, 0, 3))}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.Transactions().List(ctx, owner, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if total != tt.wantTotal || len(items) != tt.wantItems {
				t.Errorf("got %d items of %d, want %d of %d", len(items), total, tt.wantItems, tt.wantTotal)
			}
		})
	}
}

func TestCardQueries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	card := mustCard(t, repo)

	at := func(day int) *time.Time {
		v := time.Date(2024, 3, day, 3, 0, 0, 0, time.UTC)
		return &v
	}
	seed := []core.Transaction{
		{Amount: decimal.NewFromInt(100), Type: core.Expense, Status: core.StatusPending, PaymentDate: at(5)},
		{Amount: decimal.NewFromInt(200), Type: core.Expense, Status: core.StatusPaid, PaymentDate: at(12)},
		{Amount: decimal.NewFromInt(50), Type: core.Expense, Status: core.StatusPending, PaymentDate: at(20)},
		{Amount: decimal.NewFromInt(70), Type: core.Income, Status: core.StatusPaid, PaymentDate: at(12)},
	}
	for i := range seed {
		tx := seed[i]
		tx.OwnerID = owner
		tx.Description = "compra"
		tx.CategoryName = "Outros"
		tx.CreditCardID = &card.ID
		if err := repo.Transactions().Create(ctx, &tx); err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
	}

	inWindow, err := repo.Transactions().FindExpensesByCardInWindow(ctx, owner, card.ID, *at(5), *at(12))
	if err != nil {
		t.Fatalf("FindExpensesByCardInWindow: %v", err)
	}
	if len(inWindow) != 2 {
		t.Errorf("window expenses = %d, want 2", len(inWindow))
	}

	before, err := repo.Transactions().FindPendingExpensesBefore(ctx, owner, card.ID, *at(12))
	if err != nil {
		t.Fatalf("FindPendingExpensesBefore: %v", err)
	}
	if len(before) != 1 || !before[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("pending before = %+v, want the 100 expense", before)
	}

	pending, err := repo.Transactions().SumPendingByCard(ctx, owner, card.ID)
	if err != nil {
		t.Fatalf("SumPendingByCard: %v", err)
	}
	if !pending.Equal(decimal.NewFromInt(150)) {
		t.Errorf("pending = %s, want 150", pending)
	}

	if err := repo.CreditCards().UpdateAvailableLimit(ctx, owner, card.ID, decimal.NewFromInt(4850)); err != nil {
		t.Fatalf("UpdateAvailableLimit: %v", err)
	}
	got, err := repo.CreditCards().FindByID(ctx, owner, card.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !got.AvailableLimit.Equal(decimal.NewFromInt(4850)) {
		t.Errorf("available = %s, want 4850", got.AvailableLimit)
	}
}

func TestCardDeleteDetachesTransactions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	card := mustCard(t, repo)

	tx := &core.Transaction{
		OwnerID:      owner,
		Amount:       decimal.NewFromInt(10),
		Description:  "café",
		CategoryName: "Alimentação",
		Type:         core.Expense,
		Status:       core.StatusPaid,
		CreditCardID: &card.ID,
	}
	if err := repo.Transactions().Create(ctx, tx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.CreditCards().Delete(ctx, owner, card.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := repo.Transactions().Get(ctx, owner, tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CreditCardID != nil {
		t.Errorf("card ref = %v, want nil", *got.CreditCardID)
	}
	if err := repo.CreditCards().Delete(ctx, owner, card.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestFindDueTodayClampsShortMonths(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	subs := []*core.Subscription{
		{Description: "Aluguel", Frequency: core.Monthly, DayOfMonth: core.IntPtr(31)},
		{Description: "Academia", Frequency: core.Monthly, DayOfMonth: core.IntPtr(29)},
		{Description: "Seguro", Frequency: core.Monthly, DayOfMonth: core.IntPtr(15)},
		{Description: "Domínio", Frequency: core.Yearly, DayOfMonth: core.IntPtr(30), Month: core.IntPtr(2)},
		{Description: "Feira", Frequency: core.Weekly, DayOfWeek: core.IntPtr(int(time.Thursday))},
		{Description: "Pausada", Frequency: core.Monthly, DayOfMonth: core.IntPtr(29)},
	}
	for _, s := range subs {
		s.OwnerID = owner
		s.Amount = decimal.NewFromInt(10)
		s.CategoryName = "Outros"
		s.IsActive = true
		if err := repo.Subscriptions().Create(ctx, s); err != nil {
			t.Fatalf("Create %s: %v", s.Description, err)
		}
	}
	if err := repo.Subscriptions().Deactivate(ctx, owner, subs[5].ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	tests := []struct {
		day  core.CalendarDate
		want []string
	}{
		// 2024-02-29 is a Thursday and the last day of February.
		{core.NewCalendarDate(2024, time.February, 29), []string{"Aluguel", "Academia", "Domínio", "Feira"}},
		{core.NewCalendarDate(2024, time.February, 28), nil},
		{core.NewCalendarDate(2024, time.March, 15), []string{"Seguro"}},
		{core.NewCalendarDate(2024, time.April, 30), []string{"Aluguel"}},
		{core.NewCalendarDate(2024, time.March, 31), []string{"Aluguel"}},
	}
	for _, tt := range tests {
		t.Run(tt.day.String(), func(t *testing.T) {
			got, err := repo.Subscriptions().FindDueToday(ctx, owner, tt.day)
			if err != nil {
				t.Fatalf("FindDueToday: %v", err)
			}
			names := map[string]bool{}
			for _, s := range got {
				names[s.Description] = true
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d subscriptions %v, want %v", len(got), names, tt.want)
			}
			for _, w := range tt.want {
				if !names[w] {
					t.Errorf("missing %s in %v", w, names)
				}
			}
		})
	}
}

func TestBudgetDuplicatePeriodConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	newBudget := func(month int) *core.Budget {
		return &core.Budget{
			OwnerID:      owner,
			CategoryID:   "cat-food",
			CategoryName: "Alimentação",
			Amount:       decimal.NewFromInt(500),
			Month:        month,
			Year:         2024,
		}
	}
	if err := repo.Budgets().Create(ctx, newBudget(3)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Budgets().Create(ctx, newBudget(3)); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate Create err = %v, want ErrConflict", err)
	}
	if err := repo.Budgets().Create(ctx, newBudget(4)); err != nil {
		t.Fatalf("other month Create: %v", err)
	}

	got, err := repo.Budgets().FindByPeriod(ctx, owner, 3, 2024)
	if err != nil {
		t.Fatalf("FindByPeriod: %v", err)
	}
	if len(got) != 1 || !got[0].Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("FindByPeriod = %+v", got)
	}
}

func TestCategoryLookupPrefersOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	global := &core.Category{OwnerID: "system", Name: "Lazer", Icon: "🎮", IsGlobal: true}
	own := &core.Category{OwnerID: owner, Name: "lazer", Icon: "🎬"}
	for _, c := range []*core.Category{global, own} {
		if err := repo.Categories().Create(ctx, c); err != nil {
			t.Fatalf("Create %s: %v", c.Name, err)
		}
	}

	got, err := repo.Categories().FindByName(ctx, owner, "LAZER")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got.ID != own.ID {
		t.Errorf("FindByName = %s, want the owner's category", got.Name)
	}

	got, err = repo.Categories().FindByName(ctx, "user-2", "Lazer")
	if err != nil {
		t.Fatalf("FindByName global: %v", err)
	}
	if got.ID != global.ID {
		t.Errorf("FindByName for other owner = %s, want the global category", got.ID)
	}

	dup := &core.Category{OwnerID: owner, Name: "LAZER"}
	if err := repo.Categories().Create(ctx, dup); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate Create err = %v, want ErrConflict", err)
	}

	list, err := repo.Categories().List(ctx, owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List = %d categories, want 2", len(list))
	}
}

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	store := repo.Notifications()

	related := "card-1"
	for i := 0; i < 3; i++ {
		n := &core.Notification{
			OwnerID:   owner,
			Title:     "Fatura vence amanhã",
			Message:   "Pague sua fatura",
			Type:      core.NotificationDueDate,
			RelatedID: &related,
		}
		if err := store.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	exists, err := store.ExistsUnread(ctx, owner, core.NotificationDueDate, related)
	if err != nil || !exists {
		t.Fatalf("ExistsUnread = %v, %v; want true", exists, err)
	}

	list, err := store.List(ctx, owner, ports.NotificationFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List = %d, want 2", len(list))
	}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.MarkRead(ctx, owner, list[0].ID, now); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	count, err := store.UnreadCount(ctx, owner)
	if err != nil || count != 2 {
		t.Errorf("UnreadCount = %d, %v; want 2", count, err)
	}

	marked, err := store.MarkAllRead(ctx, owner, now)
	if err != nil || marked != 2 {
		t.Errorf("MarkAllRead = %d, %v; want 2", marked, err)
	}
	exists, err = store.ExistsUnread(ctx, owner, core.NotificationDueDate, related)
	if err != nil || exists {
		t.Errorf("ExistsUnread after MarkAllRead = %v, %v; want false", exists, err)
	}

	read, err := store.List(ctx, owner, ports.NotificationFilter{Status: core.NotificationRead})
	if err != nil {
		t.Fatalf("List read: %v", err)
	}
	for _, n := range read {
		if n.ReadAt == nil || !n.ReadAt.Equal(now) {
			t.Errorf("ReadAt = %v, want %v", n.ReadAt, now)
		}
	}
}

func TestSyncQueue(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tx := &core.Transaction{
		OwnerID:      owner,
		Amount:       decimal.NewFromInt(42),
		Description:  "Livro",
		CategoryName: "Educação",
		Type:         core.Expense,
		Status:       core.StatusPaid,
	}
	if err := repo.Transactions().Create(ctx, tx); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, err := repo.Sync().PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID || pending[0].Version != 1 {
		t.Fatalf("PendingSync = %+v", pending)
	}

	if err := repo.Sync().MarkSynced(ctx, tx.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if pending, _ = repo.Sync().PendingSync(ctx, 10); len(pending) != 0 {
		t.Fatalf("PendingSync after MarkSynced = %d, want 0", len(pending))
	}

	tx.Description = "Livro usado"
	if err := repo.Transactions().Update(ctx, tx); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pending, _ = repo.Sync().PendingSync(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("PendingSync after Update = %+v, want version 2", pending)
	}
	if v, err := repo.Sync().Version(ctx, tx.ID); err != nil || v != 2 {
		t.Errorf("Version = %d, %v, want 2", v, err)
	}
	if _, err := repo.Sync().Version(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Version missing err = %v, want ErrNotFound", err)
	}

	if err := repo.Sync().MarkSyncError(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("MarkSyncError missing err = %v, want ErrNotFound", err)
	}
}

func TestListOwners(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustCard(t, repo)

	b := &core.Budget{OwnerID: "user-2", CategoryID: "c", CategoryName: "Casa", Amount: decimal.NewFromInt(1), Month: 1, Year: 2024}
	if err := repo.Budgets().Create(ctx, b); err != nil {
		t.Fatalf("Create budget: %v", err)
	}

	owners, err := repo.ListOwners(ctx)
	if err != nil {
		t.Fatalf("ListOwners: %v", err)
	}
	if len(owners) != 2 || owners[0] != owner || owners[1] != "user-2" {
		t.Errorf("ListOwners = %v", owners)
	}
}
