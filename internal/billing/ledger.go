package billing

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Usage is the debt picture of one card for the window containing today.
type Usage struct {
	CurrentInvoiceAmount decimal.Decimal
	PendingAmount        decimal.Decimal
	TotalDebt            decimal.Decimal
	UsedLimit            decimal.Decimal
	Window               InvoiceWindow
}

// Summary is the card overview: all pending debt and the next cycle dates.
type Summary struct {
	Card            core.CreditCard
	CurrentDebt     decimal.Decimal
	AvailableLimit  decimal.Decimal
	NextClosingDate time.Time
	NextDueDate     time.Time
}

// Ledger aggregates card debt from the transaction store. It never trusts the
// card's stored available limit.
type Ledger struct {
	cards ports.CreditCardStore
	txs   ports.TransactionStore
}

func NewLedger(cards ports.CreditCardStore, txs ports.TransactionStore) *Ledger {
	return &Ledger{cards: cards, txs: txs}
}

// GetUsage computes the current invoice amount and the still-pending debt
// carried over from earlier cycles. The two reads run concurrently.
func (l *Ledger) GetUsage(ctx context.Context, ownerID string, card core.CreditCard, today time.Time) (Usage, error) {
	w, err := ComputeWindow(card.ClosingDay, card.DueDay, today)
	if err != nil {
		return Usage{}, fmt.Errorf("card %s: %w", card.ID, err)
	}

	var current, pending decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := l.txs.FindExpensesByCardInWindow(gctx, ownerID, card.ID, w.InvoiceStartDate, w.InvoiceEndDate)
		if err != nil {
			return fmt.Errorf("find invoice expenses: %w", err)
		}
		current = sumAmounts(txs)
		return nil
	})
	g.Go(func() error {
		txs, err := l.txs.FindPendingExpensesBefore(gctx, ownerID, card.ID, w.InvoiceStartDate)
		if err != nil {
			return fmt.Errorf("find pending expenses: %w", err)
		}
		pending = sumAmounts(txs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Usage{}, err
	}

	total := current.Add(pending)
	return Usage{
		CurrentInvoiceAmount: current,
		PendingAmount:        pending,
		TotalDebt:            total,
		UsedLimit:            total,
		Window:               w,
	}, nil
}

// CardUsage pairs a card with its usage.
type CardUsage struct {
	Card  core.CreditCard
	Usage Usage
}

// UsageForCards computes usage for every card concurrently, keeping input order.
func (l *Ledger) UsageForCards(ctx context.Context, ownerID string, cards []core.CreditCard, today time.Time) ([]CardUsage, error) {
	out := make([]CardUsage, len(cards))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cards {
		i, c := i, c
		g.Go(func() error {
			u, err := l.GetUsage(gctx, ownerID, c, today)
			if err != nil {
				return err
			}
			out[i] = CardUsage{Card: c, Usage: u}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSummary returns the card's total pending debt, the limit left and the
// next closing and due dates. A card that is missing or owned by someone
// else yields core.ErrNotFound.
func (l *Ledger) GetSummary(ctx context.Context, ownerID, cardID string, today time.Time) (Summary, error) {
	card, err := l.cards.FindByID(ctx, ownerID, cardID)
	if err != nil {
		return Summary{}, fmt.Errorf("find card %s: %w", cardID, err)
	}
	if card.OwnerID != ownerID {
		return Summary{}, fmt.Errorf("find card %s: %w", cardID, core.ErrNotFound)
	}

	debt, err := l.txs.SumPendingByCard(ctx, ownerID, card.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("sum pending debt: %w", err)
	}

	nextClosing, nextDue, err := NextCycleDates(card.ClosingDay, card.DueDay, today)
	if err != nil {
		return Summary{}, fmt.Errorf("card %s: %w", card.ID, err)
	}

	return Summary{
		Card:            *card,
		CurrentDebt:     debt,
		AvailableLimit:  card.Limit.Sub(debt),
		NextClosingDate: nextClosing,
		NextDueDate:     nextDue,
	}, nil
}

func sumAmounts(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
