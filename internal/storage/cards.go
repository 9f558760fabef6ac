package storage

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

const cardColumns = `id, owner_id, name, flag, last_four_digits, limit_cents, available_limit_cents,
	closing_day, due_day, status, created_at, updated_at`

type cardRepo struct{ r *SQLiteRepository }

func scanCard(s scanner) (core.CreditCard, error) {
	var (
		c                    core.CreditCard
		limit, available     int64
		createdAt, updatedAt string
	)
	err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Flag, &c.LastFourDigits, &limit, &available,
		&c.ClosingDay, &c.DueDay, &c.Status, &createdAt, &updatedAt)
	if err != nil {
		return c, err
	}
	c.Limit = core.FromCents(limit)
	c.AvailableLimit = core.FromCents(available)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return c, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return c, err
	}
	return c, nil
}

func (c cardRepo) Create(ctx context.Context, card *core.CreditCard) error {
	now := c.r.stamp(&card.ID)
	_, err := c.r.db.ExecContext(ctx, `
		INSERT INTO credit_cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.OwnerID, card.Name, card.Flag, card.LastFourDigits,
		core.ToCents(card.Limit), core.ToCents(card.AvailableLimit),
		card.ClosingDay, card.DueDay, card.Status, now, now)
	if err != nil {
		return fmt.Errorf("create credit card: %w", err)
	}
	card.CreatedAt, _ = parseTime(now)
	card.UpdatedAt = card.CreatedAt
	return nil
}

func (c cardRepo) FindByID(ctx context.Context, ownerID, id string) (*core.CreditCard, error) {
	row := c.r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE id = ? AND owner_id = ?`, id, ownerID)
	card, err := scanCard(row)
	if err != nil {
		return nil, notFound(err, "credit card", id)
	}
	return &card, nil
}

func (c cardRepo) FindAll(ctx context.Context, ownerID string, f ports.CreditCardFilter) ([]core.CreditCard, int, error) {
	where := []string{"owner_id = ?"}
	args := []any{ownerID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := c.r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credit_cards WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count credit cards: %w", err)
	}

	page := f.Page.Normalize()
	rows, err := c.r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE `+cond+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan credit card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, total, rows.Err()
}

func (c cardRepo) Update(ctx context.Context, card *core.CreditCard) error {
	now := c.r.stamp(&card.ID)
	res, err := c.r.db.ExecContext(ctx, `
		UPDATE credit_cards SET
			name = ?, flag = ?, last_four_digits = ?, limit_cents = ?, available_limit_cents = ?,
			closing_day = ?, due_day = ?, status = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		card.Name, card.Flag, card.LastFourDigits, core.ToCents(card.Limit), core.ToCents(card.AvailableLimit),
		card.ClosingDay, card.DueDay, card.Status, now, card.ID, card.OwnerID)
	if err != nil {
		return fmt.Errorf("update credit card: %w", err)
	}
	if err := checkAffected(res, "credit card", card.ID); err != nil {
		return err
	}
	card.UpdatedAt, _ = parseTime(now)
	return nil
}

func (c cardRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := c.r.db.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete credit card: %w", err)
	}
	return checkAffected(res, "credit card", id)
}

func (c cardRepo) UpdateAvailableLimit(ctx context.Context, ownerID, id string, available decimal.Decimal) error {
	res, err := c.r.db.ExecContext(ctx,
		`UPDATE credit_cards SET available_limit_cents = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		core.ToCents(available), formatTime(c.r.now()), id, ownerID)
	if err != nil {
		return fmt.Errorf("update available limit: %w", err)
	}
	return checkAffected(res, "credit card", id)
}
