package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/recurrence"

	"github.com/shopspring/decimal"
)

type SubscriptionInput struct {
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	CategoryID   string          `json:"categoryId"`
	Frequency    core.Frequency  `json:"frequency"`
	DayOfMonth   *int            `json:"dayOfMonth"`
	DayOfWeek    *int            `json:"dayOfWeek"`
	Month        *int            `json:"month"`
	CreditCardID *string         `json:"creditCardId"`
}

// SubscriptionUpdate changes the non-nil fields. Changing the frequency
// drops the anchors of the old one.
type SubscriptionUpdate struct {
	Description *string
	Amount      *decimal.Decimal
	CategoryID  *string
	Frequency   *core.Frequency
	DayOfMonth  *int
	DayOfWeek   *int
	Month       *int
	IsActive    *bool
}

// Renewal is the next day a subscription fires.
type Renewal struct {
	Subscription core.Subscription
	Date         core.CalendarDate
}

type SubscriptionService struct {
	subs       ports.SubscriptionStore
	cards      ports.CreditCardStore
	categories *CategoryService
	deps       Deps
}

func NewSubscriptionService(store ports.Store, categories *CategoryService, deps Deps) *SubscriptionService {
	return &SubscriptionService{
		subs:       store.Subscriptions(),
		cards:      store.CreditCards(),
		categories: categories,
		deps:       deps,
	}
}

func (s *SubscriptionService) Create(ctx context.Context, ownerID string, in SubscriptionInput) (*core.Subscription, error) {
	sub := core.Subscription{
		OwnerID:     ownerID,
		Description: strings.TrimSpace(in.Description),
		Amount:      core.RoundAmount(in.Amount),
		Frequency:   in.Frequency,
		DayOfMonth:  in.DayOfMonth,
		DayOfWeek:   in.DayOfWeek,
		Month:       in.Month,
		IsActive:    true,
	}
	if err := s.setCategory(ctx, &sub, in.CategoryID); err != nil {
		return nil, err
	}
	if in.CreditCardID != nil && *in.CreditCardID != "" {
		card, err := s.cards.FindByID(ctx, ownerID, *in.CreditCardID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, core.NewValidationError("creditCardId", "unknown credit card")
			}
			return nil, fmt.Errorf("find card: %w", err)
		}
		sub.CreditCardID = core.StringPtr(card.ID)
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.subs.Create(ctx, &sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return &sub, nil
}

func (s *SubscriptionService) Get(ctx context.Context, ownerID, id string) (*core.Subscription, error) {
	sub, err := s.subs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return sub, nil
}

func (s *SubscriptionService) ListActive(ctx context.Context, ownerID string) ([]core.Subscription, error) {
	subs, err := s.subs.FindActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *SubscriptionService) Update(ctx context.Context, ownerID, id string, in SubscriptionUpdate) (*core.Subscription, error) {
	sub, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if in.Description != nil {
		sub.Description = strings.TrimSpace(*in.Description)
	}
	if in.Amount != nil {
		sub.Amount = core.RoundAmount(*in.Amount)
	}
	if in.CategoryID != nil {
		if err := s.setCategory(ctx, sub, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	if in.Frequency != nil && *in.Frequency != sub.Frequency {
		sub.Frequency = *in.Frequency
		sub.DayOfMonth, sub.DayOfWeek, sub.Month = nil, nil, nil
	}
	if in.DayOfMonth != nil {
		sub.DayOfMonth = core.IntPtr(*in.DayOfMonth)
	}
	if in.DayOfWeek != nil {
		sub.DayOfWeek = core.IntPtr(*in.DayOfWeek)
	}
	if in.Month != nil {
		sub.Month = core.IntPtr(*in.Month)
	}
	if in.IsActive != nil {
		sub.IsActive = *in.IsActive
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", id, err)
	}
	return sub, nil
}

// Cancel deactivates the subscription; materialized transactions remain.
func (s *SubscriptionService) Cancel(ctx context.Context, ownerID, id string) error {
	if err := s.subs.Deactivate(ctx, ownerID, id); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", id, err)
	}
	return nil
}

// Upcoming lists active subscriptions firing within the next days days,
// today included, soonest first.
func (s *SubscriptionService) Upcoming(ctx context.Context, ownerID string, days int) ([]Renewal, error) {
	subs, err := s.ListActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	n := s.deps.normalizer()
	today := core.DateOf(n.Today(s.deps.Clock.now()))
	limit := today.AddDays(days)

	var out []Renewal
	for _, sub := range subs {
		next, ok := recurrence.NextOccurrence(sub, today)
		if !ok || limit.Before(next) {
			continue
		}
		out = append(out, Renewal{Subscription: sub, Date: next})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *SubscriptionService) setCategory(ctx context.Context, sub *core.Subscription, categoryID string) error {
	if categoryID == "" {
		return core.NewValidationError("categoryId", "must not be empty")
	}
	cat, err := s.categories.Get(ctx, sub.OwnerID, categoryID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError("categoryId", "unknown category")
		}
		return err
	}
	sub.CategoryID, sub.CategoryName = cat.ID, cat.Name
	return nil
}
