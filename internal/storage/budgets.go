package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const budgetColumns = `id, owner_id, category_id, category_name, amount_cents, month, year, created_at, updated_at`

type budgetRepo struct{ r *SQLiteRepository }

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                    core.Budget
		cents                int64
		createdAt, updatedAt string
	)
	err := s.Scan(&b.ID, &b.OwnerID, &b.CategoryID, &b.CategoryName, &cents, &b.Month, &b.Year, &createdAt, &updatedAt)
	if err != nil {
		return b, err
	}
	b.Amount = core.FromCents(cents)
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return b, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return b, err
	}
	return b, nil
}

func (b budgetRepo) Create(ctx context.Context, budget *core.Budget) error {
	now := b.r.stamp(&budget.ID)
	_, err := b.r.db.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		budget.ID, budget.OwnerID, budget.CategoryID, budget.CategoryName, core.ToCents(budget.Amount),
		budget.Month, budget.Year, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("budget for %s %02d/%d: %w", budget.CategoryName, budget.Month, budget.Year, core.ErrConflict)
		}
		return fmt.Errorf("create budget: %w", err)
	}
	budget.CreatedAt, _ = parseTime(now)
	budget.UpdatedAt = budget.CreatedAt
	return nil
}

func (b budgetRepo) Get(ctx context.Context, ownerID, id string) (*core.Budget, error) {
	row := b.r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	budget, err := scanBudget(row)
	if err != nil {
		return nil, notFound(err, "budget", id)
	}
	return &budget, nil
}

func (b budgetRepo) FindByPeriod(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error) {
	rows, err := b.r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE owner_id = ? AND month = ? AND year = ?
		ORDER BY category_name`, ownerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("find budgets by period: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, budget)
	}
	return out, rows.Err()
}

func (b budgetRepo) Update(ctx context.Context, budget *core.Budget) error {
	now := b.r.stamp(&budget.ID)
	res, err := b.r.db.ExecContext(ctx, `
		UPDATE budgets SET amount_cents = ?, category_id = ?, category_name = ?, month = ?, year = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		core.ToCents(budget.Amount), budget.CategoryID, budget.CategoryName, budget.Month, budget.Year, now,
		budget.ID, budget.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("budget for %s %02d/%d: %w", budget.CategoryName, budget.Month, budget.Year, core.ErrConflict)
		}
		return fmt.Errorf("update budget: %w", err)
	}
	if err := checkAffected(res, "budget", budget.ID); err != nil {
		return err
	}
	budget.UpdatedAt, _ = parseTime(now)
	return nil
}

func (b budgetRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := b.r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return checkAffected(res, "budget", id)
}
