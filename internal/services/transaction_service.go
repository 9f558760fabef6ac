package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// TransactionInput creates a transaction against an existing category.
type TransactionInput struct {
	Amount       decimal.Decimal        `json:"amount"`
	Description  string                 `json:"description"`
	CategoryID   string                 `json:"categoryId"`
	Type         core.TransactionType   `json:"type"`
	Status       core.TransactionStatus `json:"status"`
	DueDate      *string                `json:"dueDate"`
	PaymentDate  *string                `json:"paymentDate"`
	CreditCardID *string                `json:"creditCardId"`
}

// ReceiptInput is a transaction extracted from a receipt or bill. The
// category arrives as free text and is created when unknown.
type ReceiptInput struct {
	Amount       decimal.Decimal        `json:"amount"`
	Description  string                 `json:"description"`
	Category     string                 `json:"category"`
	Type         core.TransactionType   `json:"type"`
	Status       core.TransactionStatus `json:"status"`
	DueDate      *string                `json:"dueDate"`
	PaymentDate  *string                `json:"paymentDate"`
	CreditCardID *string                `json:"creditCardId"`
}

// TransactionUpdate changes the non-nil fields. For the date and card
// pointers an empty string clears the value.
type TransactionUpdate struct {
	Amount       *decimal.Decimal
	Description  *string
	CategoryID   *string
	Type         *core.TransactionType
	Status       *core.TransactionStatus
	DueDate      *string
	PaymentDate  *string
	CreditCardID *string
}

// TransactionQuery filters a transaction listing. Month and Year take
// precedence over StartDate/EndDate; Year alone selects the whole year.
type TransactionQuery struct {
	Type         core.TransactionType
	Status       core.TransactionStatus
	CategoryID   string
	CreditCardID string
	StartDate    string
	EndDate      string
	Month        int
	Year         int
	Page         int
	Limit        int
}

type TransactionPage struct {
	Items      []core.Transaction
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

type TransactionService struct {
	txs        ports.TransactionStore
	cards      ports.CreditCardStore
	versions   ports.SyncStore
	categories *CategoryService
	deps       Deps
}

func NewTransactionService(store ports.Store, categories *CategoryService, deps Deps) *TransactionService {
	return &TransactionService{
		txs:        store.Transactions(),
		cards:      store.CreditCards(),
		versions:   store.Sync(),
		categories: categories,
		deps:       deps,
	}
}

// CreateManual stores a transaction whose category is chosen by ID.
func (s *TransactionService) CreateManual(ctx context.Context, ownerID string, in TransactionInput) (*core.Transaction, error) {
	cat, err := s.categories.Get(ctx, ownerID, in.CategoryID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NewValidationError("categoryId", "unknown category")
		}
		return nil, err
	}

	tx := core.Transaction{
		OwnerID:      ownerID,
		Amount:       core.RoundAmount(in.Amount),
		Description:  strings.TrimSpace(in.Description),
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Type:         in.Type,
		Status:       in.Status,
	}
	if err := s.applyDates(&tx, in.DueDate, in.PaymentDate); err != nil {
		return nil, err
	}
	if err := s.applyCard(ctx, &tx, in.CreditCardID); err != nil {
		return nil, err
	}
	s.chargeToday(&tx)
	if err := s.Create(ctx, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreateFromReceipt stores an extracted transaction, resolving or creating
// its category by name.
func (s *TransactionService) CreateFromReceipt(ctx context.Context, ownerID string, in ReceiptInput) (*core.Transaction, error) {
	cat, err := s.categories.FindOrCreate(ctx, ownerID, in.Category)
	if err != nil {
		return nil, err
	}

	tx := core.Transaction{
		OwnerID:      ownerID,
		Amount:       core.RoundAmount(in.Amount),
		Description:  strings.TrimSpace(in.Description),
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Type:         in.Type,
		Status:       in.Status,
	}
	if err := s.applyDates(&tx, in.DueDate, in.PaymentDate); err != nil {
		return nil, err
	}
	if err := s.applyCard(ctx, &tx, in.CreditCardID); err != nil {
		return nil, err
	}
	s.chargeToday(&tx)
	if err := s.Create(ctx, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create validates and stores tx, publishes it for export and refreshes the
// cached available limit of its card. It satisfies recurrence.TransactionCreator,
// so a duplicate materialization surfaces as core.ErrConflict.
func (s *TransactionService) Create(ctx context.Context, tx *core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	publishSync(ctx, s.deps.Publisher, *tx, 1)
	s.refreshCard(ctx, tx.OwnerID, tx.CreditCardID)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID, id string) (*core.Transaction, error) {
	tx, err := s.txs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (s *TransactionService) List(ctx context.Context, ownerID string, q TransactionQuery) (TransactionPage, error) {
	f := ports.TransactionFilter{
		Type:         q.Type,
		Status:       q.Status,
		CategoryID:   q.CategoryID,
		CreditCardID: q.CreditCardID,
		Page:         ports.Page{Page: q.Page, Limit: q.Limit}.Normalize(),
	}
	if q.Type != "" && !q.Type.Valid() {
		return TransactionPage{}, core.NewValidationError("type", "must be expense or income")
	}
	if q.Status != "" && !q.Status.Valid() {
		return TransactionPage{}, core.NewValidationError("status", "must be paid or pending")
	}

	from, to, err := s.queryRange(q)
	if err != nil {
		return TransactionPage{}, err
	}
	f.From, f.To = from, to

	items, total, err := s.txs.List(ctx, ownerID, f)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	pages := 0
	if total > 0 {
		pages = (total + f.Page.Limit - 1) / f.Page.Limit
	}
	return TransactionPage{
		Items:      items,
		Total:      total,
		Page:       f.Page.Page,
		Limit:      f.Page.Limit,
		TotalPages: pages,
	}, nil
}

func (s *TransactionService) queryRange(q TransactionQuery) (*time.Time, *time.Time, error) {
	loc := s.deps.normalizer().Location()
	switch {
	case q.Month != 0 && q.Year != 0:
		if err := validMonth(q.Month, q.Year); err != nil {
			return nil, nil, err
		}
		start, end := core.MonthRange(q.Year, time.Month(q.Month), loc)
		return &start, &end, nil
	case q.Year != 0:
		if err := validMonth(1, q.Year); err != nil {
			return nil, nil, err
		}
		start := time.Date(q.Year, time.January, 1, 0, 0, 0, 0, loc)
		end := start.AddDate(1, 0, 0)
		return &start, &end, nil
	}

	var from, to *time.Time
	if q.StartDate != "" {
		d, ok := s.deps.normalizer().Date(q.StartDate)
		if !ok {
			return nil, nil, core.NewValidationError("startDate", "not a date")
		}
		from = core.TimePtr(d.In(loc))
	}
	if q.EndDate != "" {
		d, ok := s.deps.normalizer().Date(q.EndDate)
		if !ok {
			return nil, nil, core.NewValidationError("endDate", "not a date")
		}
		to = core.TimePtr(d.AddDays(1).In(loc))
	}
	return from, to, nil
}

func (s *TransactionService) Update(ctx context.Context, ownerID, id string, in TransactionUpdate) (*core.Transaction, error) {
	tx, err := s.txs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	previousCard := tx.CreditCardID

	if in.Amount != nil {
		tx.Amount = core.RoundAmount(*in.Amount)
	}
	if in.Description != nil {
		tx.Description = strings.TrimSpace(*in.Description)
	}
	if in.CategoryID != nil {
		cat, err := s.categories.Get(ctx, ownerID, *in.CategoryID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, core.NewValidationError("categoryId", "unknown category")
			}
			return nil, err
		}
		tx.CategoryID, tx.CategoryName = cat.ID, cat.Name
	}
	if in.Type != nil {
		tx.Type = *in.Type
	}
	if in.Status != nil {
		tx.Status = *in.Status
	}
	if in.DueDate != nil || in.PaymentDate != nil {
		due, pay := keepDate(tx.DueDate, in.DueDate), keepDate(tx.PaymentDate, in.PaymentDate)
		tx.DueDate, tx.PaymentDate = nil, nil
		if err := s.applyDates(tx, due, pay); err != nil {
			return nil, err
		}
	}
	if in.CreditCardID != nil {
		tx.CreditCardID = nil
		if err := s.applyCard(ctx, tx, in.CreditCardID); err != nil {
			return nil, err
		}
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := s.txs.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("update transaction %s: %w", id, err)
	}

	version, err := s.versions.Version(ctx, tx.ID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read transaction version", "transaction_id", tx.ID, "error", err)
	}
	publishSync(ctx, s.deps.Publisher, *tx, version)

	s.refreshCard(ctx, ownerID, tx.CreditCardID)
	if previousCard != nil && (tx.CreditCardID == nil || *tx.CreditCardID != *previousCard) {
		s.refreshCard(ctx, ownerID, previousCard)
	}
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	tx, err := s.txs.Get(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", id, err)
	}
	if err := s.txs.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	year := tx.CreatedAt.In(s.deps.normalizer().Location()).Year()
	publishDelete(ctx, s.deps.Publisher, ownerID, id, year)
	s.refreshCard(ctx, ownerID, tx.CreditCardID)
	return nil
}

// applyDates normalizes the optional due and payment dates into tx.
func (s *TransactionService) applyDates(tx *core.Transaction, due, payment *string) error {
	n := s.deps.normalizer()
	var v core.ValidationErrors
	if due != nil && *due != "" {
		t, ok := n.Normalize(*due)
		if !ok {
			v = append(v, &core.ValidationError{Field: "dueDate", Reason: "not a date"})
		} else {
			tx.DueDate = core.TimePtr(t)
		}
	}
	if payment != nil && *payment != "" {
		t, ok := n.Normalize(*payment)
		if !ok {
			v = append(v, &core.ValidationError{Field: "paymentDate", Reason: "not a date"})
		} else {
			tx.PaymentDate = core.TimePtr(t)
		}
	}
	return v.Err()
}

// chargeToday dates an undated card charge to today so it counts in the open
// invoice as well as in the card's pending debt.
func (s *TransactionService) chargeToday(tx *core.Transaction) {
	if tx.CreditCardID == nil || tx.PaymentDate != nil {
		return
	}
	tx.PaymentDate = core.TimePtr(s.deps.normalizer().Today(s.deps.Clock.now()))
}

// applyCard attaches the owner's card, rejecting cards of other owners.
func (s *TransactionService) applyCard(ctx context.Context, tx *core.Transaction, cardID *string) error {
	if cardID == nil || *cardID == "" {
		return nil
	}
	card, err := s.cards.FindByID(ctx, tx.OwnerID, *cardID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError("creditCardId", "unknown credit card")
		}
		return fmt.Errorf("find card %s: %w", *cardID, err)
	}
	tx.CreditCardID = core.StringPtr(card.ID)
	return nil
}

func (s *TransactionService) refreshCard(ctx context.Context, ownerID string, cardID *string) {
	if cardID == nil {
		return
	}
	if _, err := refreshAvailableLimit(ctx, s.cards, s.txs, ownerID, *cardID); err != nil {
		slog.WarnContext(ctx, "Failed to refresh card available limit",
			"card_id", *cardID, "error", err)
	}
}

// keepDate returns the update when present, else the current value as text.
func keepDate(current *time.Time, update *string) *string {
	if update != nil {
		return update
	}
	if current == nil {
		return nil
	}
	return core.StringPtr(current.Format(time.RFC3339Nano))
}

// refreshAvailableLimit recomputes limit minus pending debt and stores it.
func refreshAvailableLimit(ctx context.Context, cards ports.CreditCardStore, txs ports.TransactionStore, ownerID, cardID string) (decimal.Decimal, error) {
	card, err := cards.FindByID(ctx, ownerID, cardID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("find card %s: %w", cardID, err)
	}
	debt, err := txs.SumPendingByCard(ctx, ownerID, cardID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum pending debt: %w", err)
	}
	available := card.Limit.Sub(debt)
	if err := cards.UpdateAvailableLimit(ctx, ownerID, cardID, available); err != nil {
		return decimal.Zero, fmt.Errorf("update available limit: %w", err)
	}
	return available, nil
}
