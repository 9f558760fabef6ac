package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"
)

const subscriptionColumns = `id, owner_id, description, amount_cents, category_id, category_name, frequency,
	day_of_week, day_of_month, month, credit_card_id, is_active, created_at, updated_at`

type subscriptionRepo struct{ r *SQLiteRepository }

func scanSubscription(s scanner) (core.Subscription, error) {
	var (
		sub                  core.Subscription
		cents                int64
		dow, dom, month      sql.NullInt64
		cardID               sql.NullString
		active               int
		createdAt, updatedAt string
	)
	err := s.Scan(&sub.ID, &sub.OwnerID, &sub.Description, &cents, &sub.CategoryID, &sub.CategoryName,
		&sub.Frequency, &dow, &dom, &month, &cardID, &active, &createdAt, &updatedAt)
	if err != nil {
		return sub, err
	}
	sub.Amount = core.FromCents(cents)
	sub.DayOfWeek = fromNullInt(dow)
	sub.DayOfMonth = fromNullInt(dom)
	sub.Month = fromNullInt(month)
	sub.CreditCardID = fromNullString(cardID)
	sub.IsActive = active == 1
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return sub, err
	}
	if sub.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return sub, err
	}
	return sub, nil
}

func (s subscriptionRepo) query(ctx context.Context, q string, args ...any) ([]core.Subscription, error) {
	rows, err := s.r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s subscriptionRepo) Create(ctx context.Context, sub *core.Subscription) error {
	now := s.r.stamp(&sub.ID)
	_, err := s.r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.OwnerID, sub.Description, core.ToCents(sub.Amount), sub.CategoryID, sub.CategoryName,
		sub.Frequency, nullInt(sub.DayOfWeek), nullInt(sub.DayOfMonth), nullInt(sub.Month),
		nullString(sub.CreditCardID), boolInt(sub.IsActive), now, now)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	sub.CreatedAt, _ = parseTime(now)
	sub.UpdatedAt = sub.CreatedAt
	return nil
}

func (s subscriptionRepo) Get(ctx context.Context, ownerID, id string) (*core.Subscription, error) {
	row := s.r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? AND owner_id = ?`, id, ownerID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, notFound(err, "subscription", id)
	}
	return &sub, nil
}

func (s subscriptionRepo) Update(ctx context.Context, sub *core.Subscription) error {
	now := s.r.stamp(&sub.ID)
	res, err := s.r.db.ExecContext(ctx, `
		UPDATE subscriptions SET
			description = ?, amount_cents = ?, category_id = ?, category_name = ?, frequency = ?,
			day_of_week = ?, day_of_month = ?, month = ?, credit_card_id = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		sub.Description, core.ToCents(sub.Amount), sub.CategoryID, sub.CategoryName, sub.Frequency,
		nullInt(sub.DayOfWeek), nullInt(sub.DayOfMonth), nullInt(sub.Month), nullString(sub.CreditCardID),
		boolInt(sub.IsActive), now, sub.ID, sub.OwnerID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if err := checkAffected(res, "subscription", sub.ID); err != nil {
		return err
	}
	sub.UpdatedAt, _ = parseTime(now)
	return nil
}

func (s subscriptionRepo) Deactivate(ctx context.Context, ownerID, id string) error {
	res, err := s.r.db.ExecContext(ctx,
		`UPDATE subscriptions SET is_active = 0, updated_at = ? WHERE id = ? AND owner_id = ?`,
		formatTime(s.r.now()), id, ownerID)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	return checkAffected(res, "subscription", id)
}

func (s subscriptionRepo) FindActive(ctx context.Context, ownerID string) ([]core.Subscription, error) {
	subs, err := s.query(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE owner_id = ? AND is_active = 1
		ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("find active subscriptions: %w", err)
	}
	return subs, nil
}

// FindDueToday lets anchors past the end of a short month match its last day.
func (s subscriptionRepo) FindDueToday(ctx context.Context, ownerID string, day core.CalendarDate) ([]core.Subscription, error) {
	lastDay := boolInt(day.Day == core.DaysIn(day.Year, day.Month))
	subs, err := s.query(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE owner_id = ? AND is_active = 1 AND (
			(frequency = 'weekly' AND day_of_week = ?)
			OR (frequency = 'monthly' AND (day_of_month = ? OR (? = 1 AND day_of_month > ?)))
			OR (frequency = 'yearly' AND month = ? AND (day_of_month = ? OR (? = 1 AND day_of_month > ?)))
		)
		ORDER BY created_at`,
		ownerID,
		int(day.Weekday()),
		day.Day, lastDay, day.Day,
		int(day.Month), day.Day, lastDay, day.Day)
	if err != nil {
		return nil, fmt.Errorf("find due subscriptions: %w", err)
	}
	return subs, nil
}
