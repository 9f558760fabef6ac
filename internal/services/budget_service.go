package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

type BudgetInput struct {
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	Month      int             `json:"month"`
	Year       int             `json:"year"`
}

type BudgetService struct {
	budgets    ports.BudgetStore
	categories *CategoryService
	calc       *budget.Calculator
}

func NewBudgetService(store ports.Store, categories *CategoryService, deps Deps) *BudgetService {
	return &BudgetService{
		budgets:    store.Budgets(),
		categories: categories,
		calc:       budget.NewCalculator(store.Transactions(), deps.normalizer().Location()),
	}
}

// Create stores a budget; a second budget for the same category and month
// fails with core.ErrConflict.
func (s *BudgetService) Create(ctx context.Context, ownerID string, in BudgetInput) (*core.Budget, error) {
	cat, err := s.categories.Get(ctx, ownerID, in.CategoryID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NewValidationError("categoryId", "unknown category")
		}
		return nil, err
	}
	b := core.Budget{
		OwnerID:      ownerID,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Amount:       core.RoundAmount(in.Amount),
		Month:        in.Month,
		Year:         in.Year,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.budgets.Create(ctx, &b); err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}
	return &b, nil
}

func (s *BudgetService) List(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error) {
	if err := validMonth(month, year); err != nil {
		return nil, err
	}
	out, err := s.budgets.FindByPeriod(ctx, ownerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

// UpdateAmount is the only mutation a budget supports.
func (s *BudgetService) UpdateAmount(ctx context.Context, ownerID, id string, amount decimal.Decimal) (*core.Budget, error) {
	b, err := s.budgets.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get budget %s: %w", id, err)
	}
	b.Amount = core.RoundAmount(amount)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.budgets.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("update budget %s: %w", id, err)
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.budgets.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	return nil
}

// Progress evaluates every budget of the month against actual spending.
func (s *BudgetService) Progress(ctx context.Context, ownerID string, month, year int) ([]budget.Progress, error) {
	budgets, err := s.List(ctx, ownerID, month, year)
	if err != nil {
		return nil, err
	}
	return s.calc.GetProgress(ctx, ownerID, budgets, month, year)
}
