package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/billing"
	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

type CreditCardInput struct {
	Name           string          `json:"name"`
	Flag           core.CardFlag   `json:"flag"`
	LastFourDigits string          `json:"lastFourDigits"`
	Limit          decimal.Decimal `json:"limit"`
	ClosingDay     int             `json:"closingDay"`
	DueDay         int             `json:"dueDay"`
	Status         core.CardStatus `json:"status"`
}

// CreditCardUpdate changes the non-nil fields.
type CreditCardUpdate struct {
	Name           *string
	Flag           *core.CardFlag
	LastFourDigits *string
	Limit          *decimal.Decimal
	ClosingDay     *int
	DueDay         *int
	Status         *core.CardStatus
}

type CreditCardPage struct {
	Items []core.CreditCard
	Total int
	Page  int
	Limit int
}

type CreditCardService struct {
	cards  ports.CreditCardStore
	txs    ports.TransactionStore
	ledger *billing.Ledger
	deps   Deps
}

func NewCreditCardService(store ports.Store, deps Deps) *CreditCardService {
	return &CreditCardService{
		cards:  store.CreditCards(),
		txs:    store.Transactions(),
		ledger: billing.NewLedger(store.CreditCards(), store.Transactions()),
		deps:   deps,
	}
}

// Create stores a new card with its whole limit available.
func (s *CreditCardService) Create(ctx context.Context, ownerID string, in CreditCardInput) (*core.CreditCard, error) {
	status := in.Status
	if status == "" {
		status = core.CardActive
	}
	card := core.CreditCard{
		OwnerID:        ownerID,
		Name:           strings.TrimSpace(in.Name),
		Flag:           in.Flag,
		LastFourDigits: in.LastFourDigits,
		Limit:          core.RoundAmount(in.Limit),
		ClosingDay:     in.ClosingDay,
		DueDay:         in.DueDay,
		Status:         status,
	}
	card.AvailableLimit = card.Limit
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if err := s.cards.Create(ctx, &card); err != nil {
		return nil, fmt.Errorf("save credit card: %w", err)
	}
	return &card, nil
}

func (s *CreditCardService) List(ctx context.Context, ownerID string, status core.CardStatus, page, limit int) (CreditCardPage, error) {
	if status != "" && !status.Valid() {
		return CreditCardPage{}, core.NewValidationError("status", "unknown card status")
	}
	p := ports.Page{Page: page, Limit: limit}.Normalize()
	cards, total, err := s.cards.FindAll(ctx, ownerID, ports.CreditCardFilter{Status: status, Page: p})
	if err != nil {
		return CreditCardPage{}, fmt.Errorf("list credit cards: %w", err)
	}
	return CreditCardPage{Items: cards, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// ListWithUsage returns one page of cards with the debt of the invoice
// window containing today.
func (s *CreditCardService) ListWithUsage(ctx context.Context, ownerID string, status core.CardStatus, page, limit int) ([]billing.CardUsage, int, error) {
	res, err := s.List(ctx, ownerID, status, page, limit)
	if err != nil {
		return nil, 0, err
	}
	usage, err := s.ledger.UsageForCards(ctx, ownerID, res.Items, s.today())
	if err != nil {
		return nil, 0, fmt.Errorf("compute card usage: %w", err)
	}
	return usage, res.Total, nil
}

func (s *CreditCardService) Get(ctx context.Context, ownerID, id string) (*core.CreditCard, error) {
	card, err := s.cards.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get credit card %s: %w", id, err)
	}
	return card, nil
}

// Usage returns the current invoice picture of one card.
func (s *CreditCardService) Usage(ctx context.Context, ownerID, id string) (billing.Usage, error) {
	card, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return billing.Usage{}, err
	}
	return s.ledger.GetUsage(ctx, ownerID, *card, s.today())
}

func (s *CreditCardService) Summary(ctx context.Context, ownerID, id string) (billing.Summary, error) {
	return s.ledger.GetSummary(ctx, ownerID, id, s.today())
}

// Update applies the changes; a new limit also refreshes the available limit.
func (s *CreditCardService) Update(ctx context.Context, ownerID, id string, in CreditCardUpdate) (*core.CreditCard, error) {
	card, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		card.Name = strings.TrimSpace(*in.Name)
	}
	if in.Flag != nil {
		card.Flag = *in.Flag
	}
	if in.LastFourDigits != nil {
		card.LastFourDigits = *in.LastFourDigits
	}
	if in.Limit != nil {
		card.Limit = core.RoundAmount(*in.Limit)
	}
	if in.ClosingDay != nil {
		card.ClosingDay = *in.ClosingDay
	}
	if in.DueDay != nil {
		card.DueDay = *in.DueDay
	}
	if in.Status != nil {
		card.Status = *in.Status
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, fmt.Errorf("update credit card %s: %w", id, err)
	}
	if in.Limit != nil {
		available, err := s.RefreshAvailableLimit(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		card.AvailableLimit = available
	}
	return card, nil
}

// Delete removes the card. Its transactions stay, detached from it.
func (s *CreditCardService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.cards.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete credit card %s: %w", id, err)
	}
	return nil
}

// RefreshAvailableLimit recomputes the cached available limit from the
// pending debt on the card.
func (s *CreditCardService) RefreshAvailableLimit(ctx context.Context, ownerID, id string) (decimal.Decimal, error) {
	return refreshAvailableLimit(ctx, s.cards, s.txs, ownerID, id)
}

func (s *CreditCardService) today() time.Time {
	return s.deps.normalizer().Today(s.deps.Clock.now())
}
