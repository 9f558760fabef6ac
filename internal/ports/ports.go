// Package ports declares the storage interfaces the calculators and services
// depend on. Every method takes the owner explicitly; implementations never
// read identity from the context.
package ports

import (
	"context"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies defaults and bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

type TransactionFilter struct {
	Type         core.TransactionType
	Status       core.TransactionStatus
	CategoryID   string
	CreditCardID string
	From         *time.Time // created at, inclusive
	To           *time.Time // created at, exclusive
	Page         Page
}

type CreditCardFilter struct {
	Status core.CardStatus
	Page   Page
}

type NotificationFilter struct {
	Status core.NotificationStatus
	Limit  int
}

type TransactionStore interface {
	// Create fails with core.ErrConflict when a transaction for the same
	// subscription and due date already exists.
	Create(ctx context.Context, tx *core.Transaction) error
	Get(ctx context.Context, ownerID, id string) (*core.Transaction, error)
	List(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, int, error)
	Update(ctx context.Context, tx *core.Transaction) error
	Delete(ctx context.Context, ownerID, id string) error

	// FindExpensesByCardInWindow returns expenses on the card whose payment
	// date lies in [start, end].
	FindExpensesByCardInWindow(ctx context.Context, ownerID, cardID string, start, end time.Time) ([]core.Transaction, error)
	// FindPendingExpensesBefore returns pending expenses on the card whose
	// payment date is strictly before the given instant.
	FindPendingExpensesBefore(ctx context.Context, ownerID, cardID string, before time.Time) ([]core.Transaction, error)
	SumPendingByCard(ctx context.Context, ownerID, cardID string) (decimal.Decimal, error)
	// SumByCategoryAndDateRange sums expenses by category name with created
	// at in [start, end).
	SumByCategoryAndDateRange(ctx context.Context, ownerID, categoryName string, start, end time.Time) (decimal.Decimal, error)
	// FindPendingDueBetween returns pending transactions with due date in [start, end].
	FindPendingDueBetween(ctx context.Context, ownerID string, start, end time.Time) ([]core.Transaction, error)
}

type SubscriptionStore interface {
	Create(ctx context.Context, s *core.Subscription) error
	Get(ctx context.Context, ownerID, id string) (*core.Subscription, error)
	Update(ctx context.Context, s *core.Subscription) error
	Deactivate(ctx context.Context, ownerID, id string) error
	FindActive(ctx context.Context, ownerID string) ([]core.Subscription, error)
	// FindDueToday returns active subscriptions whose anchor matches day,
	// with anchors past the end of the month firing on its last day.
	FindDueToday(ctx context.Context, ownerID string, day core.CalendarDate) ([]core.Subscription, error)
}

type CreditCardStore interface {
	Create(ctx context.Context, c *core.CreditCard) error
	FindByID(ctx context.Context, ownerID, id string) (*core.CreditCard, error)
	FindAll(ctx context.Context, ownerID string, f CreditCardFilter) ([]core.CreditCard, int, error)
	Update(ctx context.Context, c *core.CreditCard) error
	Delete(ctx context.Context, ownerID, id string) error
	UpdateAvailableLimit(ctx context.Context, ownerID, id string, available decimal.Decimal) error
}

type BudgetStore interface {
	// Create fails with core.ErrConflict on a duplicate (category, month, year).
	Create(ctx context.Context, b *core.Budget) error
	Get(ctx context.Context, ownerID, id string) (*core.Budget, error)
	FindByPeriod(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error)
	Update(ctx context.Context, b *core.Budget) error
	Delete(ctx context.Context, ownerID, id string) error
}

type CategoryStore interface {
	// List returns the owner's categories plus the global ones, by name.
	List(ctx context.Context, ownerID string) ([]core.Category, error)
	Get(ctx context.Context, ownerID, id string) (*core.Category, error)
	FindByName(ctx context.Context, ownerID, name string) (*core.Category, error)
	Create(ctx context.Context, c *core.Category) error
	Update(ctx context.Context, c *core.Category) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *core.Notification) error
	List(ctx context.Context, ownerID string, f NotificationFilter) ([]core.Notification, error)
	MarkRead(ctx context.Context, ownerID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int, error)
	Delete(ctx context.Context, ownerID, id string) error
	UnreadCount(ctx context.Context, ownerID string) (int, error)
	ExistsUnread(ctx context.Context, ownerID string, typ core.NotificationType, relatedID string) (bool, error)
}

// OwnerLister enumerates owners for scheduled jobs.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// PendingSync is the minimal data needed to queue a transaction for export.
type PendingSync struct {
	ID        string
	OwnerID   string
	Version   int64
	CreatedAt time.Time
}

type SyncStore interface {
	PendingSync(ctx context.Context, limit int) ([]PendingSync, error)
	GetForSync(ctx context.Context, id string) (*core.Transaction, error)
	// Version returns the transaction's current version; every update bumps it.
	Version(ctx context.Context, id string) (int64, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// Store bundles every port served by one backend.
type Store interface {
	Transactions() TransactionStore
	Subscriptions() SubscriptionStore
	CreditCards() CreditCardStore
	Budgets() BudgetStore
	Categories() CategoryStore
	Notifications() NotificationStore
	Owners() OwnerLister
	Sync() SyncStore
	Close() error
}
