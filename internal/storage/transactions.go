package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

const transactionColumns = `id, owner_id, amount_cents, description, category_id, category_name, type, status,
	due_date, payment_date, credit_card_id, subscription_id, created_at, updated_at`

type transactionRepo struct{ r *SQLiteRepository }

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx                   core.Transaction
		cents                int64
		due, paid            sql.NullString
		cardID, subID        sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&tx.ID, &tx.OwnerID, &cents, &tx.Description, &tx.CategoryID, &tx.CategoryName,
		&tx.Type, &tx.Status, &due, &paid, &cardID, &subID, &createdAt, &updatedAt)
	if err != nil {
		return tx, err
	}
	tx.Amount = core.FromCents(cents)
	tx.CreditCardID = fromNullString(cardID)
	tx.SubscriptionID = fromNullString(subID)
	if tx.DueDate, err = fromNullTime(due); err != nil {
		return tx, err
	}
	if tx.PaymentDate, err = fromNullTime(paid); err != nil {
		return tx, err
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return tx, err
	}
	if tx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return tx, err
	}
	return tx, nil
}

func (t transactionRepo) query(ctx context.Context, q string, args ...any) ([]core.Transaction, error) {
	rows, err := t.r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (t transactionRepo) sum(ctx context.Context, q string, args ...any) (decimal.Decimal, error) {
	var cents int64
	if err := t.r.db.QueryRowContext(ctx, q, args...).Scan(&cents); err != nil {
		return decimal.Zero, err
	}
	return core.FromCents(cents), nil
}

func (t transactionRepo) Create(ctx context.Context, tx *core.Transaction) error {
	now := t.r.stamp(&tx.ID)
	createdAt := now
	if !tx.CreatedAt.IsZero() {
		createdAt = formatTime(tx.CreatedAt)
	}
	_, err := t.r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID, core.ToCents(tx.Amount), tx.Description, tx.CategoryID, tx.CategoryName,
		tx.Type, tx.Status, nullTime(tx.DueDate), nullTime(tx.PaymentDate),
		nullString(tx.CreditCardID), nullString(tx.SubscriptionID), createdAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create transaction: %w", core.ErrConflict)
		}
		return fmt.Errorf("create transaction: %w", err)
	}

	tx.Amount = core.RoundAmount(tx.Amount)
	tx.CreatedAt, _ = parseTime(createdAt)
	tx.UpdatedAt, _ = parseTime(now)

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"owner_id", tx.OwnerID,
		"amount_cents", core.ToCents(tx.Amount),
		"type", tx.Type,
		"status", tx.Status)
	return nil
}

func (t transactionRepo) Get(ctx context.Context, ownerID, id string) (*core.Transaction, error) {
	row := t.r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &tx, nil
}

func (t transactionRepo) List(ctx context.Context, ownerID string, f ports.TransactionFilter) ([]core.Transaction, int, error) {
	where := []string{"owner_id = ?"}
	args := []any{ownerID}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.CreditCardID != "" {
		where = append(where, "credit_card_id = ?")
		args = append(args, f.CreditCardID)
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, formatTime(*f.To))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := t.r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	page := f.Page.Normalize()
	txs, err := t.query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+cond+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txs, total, nil
}

func (t transactionRepo) Update(ctx context.Context, tx *core.Transaction) error {
	now := t.r.stamp(&tx.ID)
	res, err := t.r.db.ExecContext(ctx, `
		UPDATE transactions SET
			amount_cents = ?, description = ?, category_id = ?, category_name = ?, type = ?, status = ?,
			due_date = ?, payment_date = ?, credit_card_id = ?, updated_at = ?,
			sync_status = 'pending', version = version + 1
		WHERE id = ? AND owner_id = ?`,
		core.ToCents(tx.Amount), tx.Description, tx.CategoryID, tx.CategoryName, tx.Type, tx.Status,
		nullTime(tx.DueDate), nullTime(tx.PaymentDate), nullString(tx.CreditCardID), now,
		tx.ID, tx.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update transaction: %w", core.ErrConflict)
		}
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := checkAffected(res, "transaction", tx.ID); err != nil {
		return err
	}
	tx.UpdatedAt, _ = parseTime(now)
	return nil
}

func (t transactionRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := t.r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return checkAffected(res, "transaction", id)
}

func (t transactionRepo) FindExpensesByCardInWindow(ctx context.Context, ownerID, cardID string, start, end time.Time) ([]core.Transaction, error) {
	txs, err := t.query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE owner_id = ? AND credit_card_id = ? AND type = 'expense'
		  AND payment_date >= ? AND payment_date <= ?
		ORDER BY payment_date`,
		ownerID, cardID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("find card expenses in window: %w", err)
	}
	return txs, nil
}

func (t transactionRepo) FindPendingExpensesBefore(ctx context.Context, ownerID, cardID string, before time.Time) ([]core.Transaction, error) {
	txs, err := t.query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE owner_id = ? AND credit_card_id = ? AND type = 'expense' AND status = 'pending'
		  AND payment_date < ?
		ORDER BY payment_date`,
		ownerID, cardID, formatTime(before))
	if err != nil {
		return nil, fmt.Errorf("find pending card expenses: %w", err)
	}
	return txs, nil
}

func (t transactionRepo) SumPendingByCard(ctx context.Context, ownerID, cardID string) (decimal.Decimal, error) {
	total, err := t.sum(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE owner_id = ? AND credit_card_id = ? AND status = 'pending'`,
		ownerID, cardID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum pending by card: %w", err)
	}
	return total, nil
}

func (t transactionRepo) SumByCategoryAndDateRange(ctx context.Context, ownerID, categoryName string, start, end time.Time) (decimal.Decimal, error) {
	total, err := t.sum(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE owner_id = ? AND type = 'expense' AND category_name = ?
		  AND created_at >= ? AND created_at < ?`,
		ownerID, categoryName, formatTime(start), formatTime(end))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum by category: %w", err)
	}
	return total, nil
}

func (t transactionRepo) FindPendingDueBetween(ctx context.Context, ownerID string, start, end time.Time) ([]core.Transaction, error) {
	txs, err := t.query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE owner_id = ? AND status = 'pending' AND due_date >= ? AND due_date <= ?
		ORDER BY due_date`,
		ownerID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("find pending due: %w", err)
	}
	return txs, nil
}
