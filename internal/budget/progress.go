// Package budget measures spending against monthly category budgets.
package budget

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

// Progress is how much of one budget has been spent.
type Progress struct {
	Budget     core.Budget
	Spent      decimal.Decimal
	Remaining  decimal.Decimal // negative when overspent
	Percentage decimal.Decimal // not capped at 100
}

// Exceeds reports whether spending reached at least percent of the budget.
func (p Progress) Exceeds(percent decimal.Decimal) bool {
	return p.Percentage.GreaterThanOrEqual(percent)
}

// Calculator sums expenses per category for a calendar month in a fixed
// location.
type Calculator struct {
	txs ports.TransactionStore
	loc *time.Location
}

func NewCalculator(txs ports.TransactionStore, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{txs: txs, loc: loc}
}

// GetProgress evaluates every budget for month/year concurrently. Results keep
// the order of budgets.
func (c *Calculator) GetProgress(ctx context.Context, ownerID string, budgets []core.Budget, month, year int) ([]Progress, error) {
	if month < 1 || month > 12 {
		return nil, core.NewValidationError("month", "must be between 1 and 12")
	}
	start, end := core.MonthRange(year, time.Month(month), c.loc)

	out := make([]Progress, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range budgets {
		i, b := i, b
		g.Go(func() error {
			spent, err := c.txs.SumByCategoryAndDateRange(gctx, ownerID, b.CategoryName, start, end)
			if err != nil {
				return fmt.Errorf("sum spending for %s: %w", b.CategoryName, err)
			}
			out[i] = Compute(b, spent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Compute derives remaining and percentage from a budget and its spending.
func Compute(b core.Budget, spent decimal.Decimal) Progress {
	p := Progress{
		Budget:     b,
		Spent:      spent,
		Remaining:  b.Amount.Sub(spent),
		Percentage: decimal.Zero,
	}
	if b.Amount.IsPositive() {
		p.Percentage = spent.Div(b.Amount).Mul(hundred)
	}
	return p
}
