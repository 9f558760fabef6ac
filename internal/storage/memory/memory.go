// Package memory is an in-process implementation of every storage port. It
// backs the memory data backend and the calculator tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type syncState struct {
	status  string
	version int64
}

type Store struct {
	mu            sync.Mutex
	now           func() time.Time
	transactions  map[string]core.Transaction
	subscriptions map[string]core.Subscription
	cards         map[string]core.CreditCard
	budgets       map[string]core.Budget
	categories    map[string]core.Category
	notifications map[string]core.Notification
	sync          map[string]syncState
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:           time.Now,
		transactions:  map[string]core.Transaction{},
		subscriptions: map[string]core.Subscription{},
		cards:         map[string]core.CreditCard{},
		budgets:       map[string]core.Budget{},
		categories:    map[string]core.Category{},
		notifications: map[string]core.Notification{},
		sync:          map[string]syncState{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Transactions() ports.TransactionStore   { return transactionStore{s} }
func (s *Store) Subscriptions() ports.SubscriptionStore { return subscriptionStore{s} }
func (s *Store) CreditCards() ports.CreditCardStore     { return cardStore{s} }
func (s *Store) Budgets() ports.BudgetStore             { return budgetStore{s} }
func (s *Store) Categories() ports.CategoryStore        { return categoryStore{s} }
func (s *Store) Notifications() ports.NotificationStore { return notificationStore{s} }
func (s *Store) Owners() ports.OwnerLister              { return s }
func (s *Store) Sync() ports.SyncStore                  { return syncStore{s} }
func (s *Store) Close() error                           { return nil }

var _ ports.Store = (*Store)(nil)

// ListOwners returns every owner that holds at least one record.
func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	add := func(id string) {
		if id != "" {
			seen[id] = struct{}{}
		}
	}
	for _, v := range s.transactions {
		add(v.OwnerID)
	}
	for _, v := range s.subscriptions {
		add(v.OwnerID)
	}
	for _, v := range s.cards {
		add(v.OwnerID)
	}
	for _, v := range s.budgets {
		add(v.OwnerID)
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) stamp(id *string, created, updated *time.Time) {
	now := s.now()
	if *id == "" {
		*id = uuid.NewString()
	}
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

func paginate[T any](items []T, p ports.Page) []T {
	p = p.Normalize()
	off := p.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := off + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

func inRange(t *time.Time, start, end time.Time) bool {
	return t != nil && !t.Before(start) && !t.After(end)
}

func sameDay(a *time.Time, b time.Time) bool {
	return a != nil && a.Equal(b)
}

// ---- transactions

type transactionStore struct{ s *Store }

func (t transactionStore) Create(_ context.Context, tx *core.Transaction) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMaterialized(tx, ""); err != nil {
		return err
	}
	s.stamp(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	tx.Amount = core.RoundAmount(tx.Amount)
	s.transactions[tx.ID] = *tx
	s.sync[tx.ID] = syncState{status: "pending", version: 1}
	return nil
}

// checkMaterialized enforces one transaction per subscription and due date,
// ignoring the transaction with id self. Callers hold s.mu.
func (s *Store) checkMaterialized(tx *core.Transaction, self string) error {
	if tx.SubscriptionID == nil || tx.DueDate == nil {
		return nil
	}
	for id, existing := range s.transactions {
		if id == self || existing.SubscriptionID == nil || *existing.SubscriptionID != *tx.SubscriptionID {
			continue
		}
		if sameDay(existing.DueDate, *tx.DueDate) {
			return fmt.Errorf("subscription %s already materialized for %s: %w",
				*tx.SubscriptionID, tx.DueDate.Format("2006-01-02"), core.ErrConflict)
		}
	}
	return nil
}

func (t transactionStore) Get(_ context.Context, ownerID, id string) (*core.Transaction, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return nil, notFound("transaction", id)
	}
	return &tx, nil
}

func (t transactionStore) List(_ context.Context, ownerID string, f ports.TransactionFilter) ([]core.Transaction, int, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		if f.CategoryID != "" && tx.CategoryID != f.CategoryID {
			continue
		}
		if f.CreditCardID != "" && (tx.CreditCardID == nil || *tx.CreditCardID != f.CreditCardID) {
			continue
		}
		if f.From != nil && tx.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !tx.CreatedAt.Before(*f.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Page), len(out), nil
}

func (t transactionStore) Update(_ context.Context, tx *core.Transaction) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[tx.ID]
	if !ok || existing.OwnerID != tx.OwnerID {
		return notFound("transaction", tx.ID)
	}
	tx.CreatedAt = existing.CreatedAt
	tx.SubscriptionID = existing.SubscriptionID
	if err := s.checkMaterialized(tx, tx.ID); err != nil {
		return err
	}
	s.stamp(&tx.ID, nil, &tx.UpdatedAt)
	tx.Amount = core.RoundAmount(tx.Amount)
	s.transactions[tx.ID] = *tx
	st := s.sync[tx.ID]
	s.sync[tx.ID] = syncState{status: "pending", version: st.version + 1}
	return nil
}

func (t transactionStore) Delete(_ context.Context, ownerID, id string) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return notFound("transaction", id)
	}
	delete(s.transactions, id)
	delete(s.sync, id)
	return nil
}

func (t transactionStore) filter(keep func(core.Transaction) bool) []core.Transaction {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func onCard(tx core.Transaction, ownerID, cardID string) bool {
	return tx.OwnerID == ownerID && tx.CreditCardID != nil && *tx.CreditCardID == cardID
}

func (t transactionStore) FindExpensesByCardInWindow(_ context.Context, ownerID, cardID string, start, end time.Time) ([]core.Transaction, error) {
	return t.filter(func(tx core.Transaction) bool {
		return onCard(tx, ownerID, cardID) && tx.Type == core.Expense && inRange(tx.PaymentDate, start, end)
	}), nil
}

func (t transactionStore) FindPendingExpensesBefore(_ context.Context, ownerID, cardID string, before time.Time) ([]core.Transaction, error) {
	return t.filter(func(tx core.Transaction) bool {
		return onCard(tx, ownerID, cardID) && tx.IsPendingExpense() &&
			tx.PaymentDate != nil && tx.PaymentDate.Before(before)
	}), nil
}

func (t transactionStore) SumPendingByCard(_ context.Context, ownerID, cardID string) (decimal.Decimal, error) {
	txs := t.filter(func(tx core.Transaction) bool {
		return onCard(tx, ownerID, cardID) && tx.Status == core.StatusPending
	})
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total, nil
}

func (t transactionStore) SumByCategoryAndDateRange(_ context.Context, ownerID, categoryName string, start, end time.Time) (decimal.Decimal, error) {
	txs := t.filter(func(tx core.Transaction) bool {
		return tx.OwnerID == ownerID && tx.Type == core.Expense && tx.CategoryName == categoryName &&
			!tx.CreatedAt.Before(start) && tx.CreatedAt.Before(end)
	})
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total, nil
}

func (t transactionStore) FindPendingDueBetween(_ context.Context, ownerID string, start, end time.Time) ([]core.Transaction, error) {
	return t.filter(func(tx core.Transaction) bool {
		return tx.OwnerID == ownerID && tx.Status == core.StatusPending && inRange(tx.DueDate, start, end)
	}), nil
}

// ---- subscriptions

type subscriptionStore struct{ s *Store }

func (ss subscriptionStore) Create(_ context.Context, sub *core.Subscription) error {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	s.subscriptions[sub.ID] = *sub
	return nil
}

func (ss subscriptionStore) Get(_ context.Context, ownerID, id string) (*core.Subscription, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok || sub.OwnerID != ownerID {
		return nil, notFound("subscription", id)
	}
	return &sub, nil
}

func (ss subscriptionStore) Update(_ context.Context, sub *core.Subscription) error {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.subscriptions[sub.ID]
	if !ok || existing.OwnerID != sub.OwnerID {
		return notFound("subscription", sub.ID)
	}
	sub.CreatedAt = existing.CreatedAt
	s.stamp(&sub.ID, nil, &sub.UpdatedAt)
	s.subscriptions[sub.ID] = *sub
	return nil
}

func (ss subscriptionStore) Deactivate(_ context.Context, ownerID, id string) error {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok || sub.OwnerID != ownerID {
		return notFound("subscription", id)
	}
	sub.IsActive = false
	sub.UpdatedAt = s.now()
	s.subscriptions[id] = sub
	return nil
}

func (ss subscriptionStore) active(ownerID string, keep func(core.Subscription) bool) []core.Subscription {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Subscription
	for _, sub := range s.subscriptions {
		if sub.OwnerID == ownerID && sub.IsActive && keep(sub) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (ss subscriptionStore) FindActive(_ context.Context, ownerID string) ([]core.Subscription, error) {
	return ss.active(ownerID, func(core.Subscription) bool { return true }), nil
}

func (ss subscriptionStore) FindDueToday(_ context.Context, ownerID string, day core.CalendarDate) ([]core.Subscription, error) {
	anchorHits := func(anchor *int) bool {
		return anchor != nil && core.ClampDay(day.Year, day.Month, *anchor) == day.Day
	}
	return ss.active(ownerID, func(sub core.Subscription) bool {
		switch sub.Frequency {
		case core.Weekly:
			return sub.DayOfWeek != nil && *sub.DayOfWeek == int(day.Weekday())
		case core.Monthly:
			return anchorHits(sub.DayOfMonth)
		case core.Yearly:
			return sub.Month != nil && *sub.Month == int(day.Month) && anchorHits(sub.DayOfMonth)
		}
		return false
	}), nil
}

// ---- credit cards

type cardStore struct{ s *Store }

func (cs cardStore) Create(_ context.Context, c *core.CreditCard) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	s.cards[c.ID] = *c
	return nil
}

func (cs cardStore) FindByID(_ context.Context, ownerID, id string) (*core.CreditCard, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.OwnerID != ownerID {
		return nil, notFound("credit card", id)
	}
	return &c, nil
}

func (cs cardStore) FindAll(_ context.Context, ownerID string, f ports.CreditCardFilter) ([]core.CreditCard, int, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CreditCard
	for _, c := range s.cards {
		if c.OwnerID != ownerID || (f.Status != "" && c.Status != f.Status) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Page), len(out), nil
}

func (cs cardStore) Update(_ context.Context, c *core.CreditCard) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.cards[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return notFound("credit card", c.ID)
	}
	c.CreatedAt = existing.CreatedAt
	s.stamp(&c.ID, nil, &c.UpdatedAt)
	s.cards[c.ID] = *c
	return nil
}

func (cs cardStore) Delete(_ context.Context, ownerID, id string) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.OwnerID != ownerID {
		return notFound("credit card", id)
	}
	delete(s.cards, id)
	// Transactions keep existing with the card reference cleared.
	for txID, tx := range s.transactions {
		if tx.CreditCardID != nil && *tx.CreditCardID == id {
			tx.CreditCardID = nil
			s.transactions[txID] = tx
		}
	}
	return nil
}

func (cs cardStore) UpdateAvailableLimit(_ context.Context, ownerID, id string, available decimal.Decimal) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.OwnerID != ownerID {
		return notFound("credit card", id)
	}
	c.AvailableLimit = core.RoundAmount(available)
	c.UpdatedAt = s.now()
	s.cards[id] = c
	return nil
}

// ---- budgets

type budgetStore struct{ s *Store }

func (bs budgetStore) Create(_ context.Context, b *core.Budget) error {
	s := bs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.budgets {
		if existing.OwnerID == b.OwnerID && existing.CategoryID == b.CategoryID &&
			existing.Month == b.Month && existing.Year == b.Year {
			return fmt.Errorf("budget for %s %02d/%d: %w", b.CategoryName, b.Month, b.Year, core.ErrConflict)
		}
	}
	s.stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	s.budgets[b.ID] = *b
	return nil
}

func (bs budgetStore) Get(_ context.Context, ownerID, id string) (*core.Budget, error) {
	s := bs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return nil, notFound("budget", id)
	}
	return &b, nil
}

func (bs budgetStore) FindByPeriod(_ context.Context, ownerID string, month, year int) ([]core.Budget, error) {
	s := bs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID == ownerID && b.Month == month && b.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

func (bs budgetStore) Update(_ context.Context, b *core.Budget) error {
	s := bs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.budgets[b.ID]
	if !ok || existing.OwnerID != b.OwnerID {
		return notFound("budget", b.ID)
	}
	b.CreatedAt = existing.CreatedAt
	s.stamp(&b.ID, nil, &b.UpdatedAt)
	s.budgets[b.ID] = *b
	return nil
}

func (bs budgetStore) Delete(_ context.Context, ownerID, id string) error {
	s := bs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return notFound("budget", id)
	}
	delete(s.budgets, id)
	return nil
}

// ---- categories

type categoryStore struct{ s *Store }

func visible(c core.Category, ownerID string) bool {
	return c.IsGlobal || c.OwnerID == ownerID
}

func (cs categoryStore) List(_ context.Context, ownerID string) ([]core.Category, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if visible(c, ownerID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (cs categoryStore) Get(_ context.Context, ownerID, id string) (*core.Category, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || !visible(c, ownerID) {
		return nil, notFound("category", id)
	}
	return &c, nil
}

// FindByName prefers the owner's own category over a global one.
func (cs categoryStore) FindByName(_ context.Context, ownerID, name string) (*core.Category, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var global *core.Category
	for _, c := range s.categories {
		c := c
		if !strings.EqualFold(c.Name, name) {
			continue
		}
		if c.OwnerID == ownerID {
			return &c, nil
		}
		if c.IsGlobal && global == nil {
			global = &c
		}
	}
	if global != nil {
		return global, nil
	}
	return nil, notFound("category", name)
}

func (cs categoryStore) Create(_ context.Context, c *core.Category) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.OwnerID == c.OwnerID && strings.EqualFold(existing.Name, c.Name) {
			return fmt.Errorf("category %s: %w", c.Name, core.ErrConflict)
		}
	}
	s.stamp(&c.ID, &c.CreatedAt, nil)
	s.categories[c.ID] = *c
	return nil
}

func (cs categoryStore) Update(_ context.Context, c *core.Category) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return notFound("category", c.ID)
	}
	c.CreatedAt = existing.CreatedAt
	s.categories[c.ID] = *c
	return nil
}

// ---- notifications

type notificationStore struct{ s *Store }

func (ns notificationStore) Create(_ context.Context, n *core.Notification) error {
	s := ns.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.Status == "" {
		n.Status = core.NotificationUnread
	}
	s.stamp(&n.ID, &n.CreatedAt, nil)
	s.notifications[n.ID] = *n
	return nil
}

func (ns notificationStore) List(_ context.Context, ownerID string, f ports.NotificationFilter) ([]core.Notification, error) {
	s := ns.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Notification
	for _, n := range s.notifications {
		if n.OwnerID == ownerID && (f.Status == "" || n.Status == f.Status) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (ns notificationStore) MarkRead(_ context.Context, ownerID, id string, at time.Time) error {
	s := ns.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.OwnerID != ownerID {
		return notFound("notification", id)
	}
	n.Status = core.NotificationRead
	n.ReadAt = &at
	s.notifications[id] = n
	return nil
}

func (ns notificationStore) MarkAllRead(_ context.Context, ownerID string, at time.Time) (int, error) {
	s := ns.s
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, n := range s.notifications {
		if n.OwnerID == ownerID && n.Status == core.NotificationUnread {
			n.Status = core.NotificationRead
			n.ReadAt = &at
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (ns notificationStore) Delete(_ context.Context, ownerID, id string) error {
	s := ns.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.OwnerID != ownerID {
		return notFound("notification", id)
	}
	delete(s.notifications, id)
	return nil
}

func (ns notificationStore) UnreadCount(_ context.Context, ownerID string) (int, error) {
	s := ns.s
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.OwnerID == ownerID && n.Status == core.NotificationUnread {
			count++
		}
	}
	return count, nil
}

func (ns notificationStore) ExistsUnread(_ context.Context, ownerID string, typ core.NotificationType, relatedID string) (bool, error) {
	s := ns.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.OwnerID == ownerID && n.Type == typ && n.Status == core.NotificationUnread &&
			n.RelatedID != nil && *n.RelatedID == relatedID {
			return true, nil
		}
	}
	return false, nil
}

// ---- sync

type syncStore struct{ s *Store }

func (ys syncStore) PendingSync(_ context.Context, limit int) ([]ports.PendingSync, error) {
	s := ys.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.PendingSync
	for id, st := range s.sync {
		if st.status != "pending" {
			continue
		}
		tx := s.transactions[id]
		out = append(out, ports.PendingSync{ID: id, OwnerID: tx.OwnerID, Version: st.version, CreatedAt: tx.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (ys syncStore) GetForSync(_ context.Context, id string) (*core.Transaction, error) {
	s := ys.s
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, notFound("transaction", id)
	}
	return &tx, nil
}

func (ys syncStore) Version(_ context.Context, id string) (int64, error) {
	s := ys.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sync[id]
	if !ok {
		return 0, notFound("transaction", id)
	}
	return st.version, nil
}

func (ys syncStore) mark(id, status string) error {
	s := ys.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sync[id]
	if !ok {
		return notFound("transaction", id)
	}
	st.status = status
	s.sync[id] = st
	return nil
}

func (ys syncStore) MarkSynced(_ context.Context, id string) error { return ys.mark(id, "synced") }

func (ys syncStore) MarkSyncError(_ context.Context, id string) error { return ys.mark(id, "error") }
