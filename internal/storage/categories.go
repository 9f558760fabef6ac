package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const categoryColumns = `id, owner_id, name, icon, is_global, created_at`

type categoryRepo struct{ r *SQLiteRepository }

func scanCategory(s scanner) (core.Category, error) {
	var (
		c         core.Category
		global    int
		createdAt string
	)
	if err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Icon, &global, &createdAt); err != nil {
		return c, err
	}
	c.IsGlobal = global == 1
	var err error
	c.CreatedAt, err = parseTime(createdAt)
	return c, err
}

func (c categoryRepo) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := c.r.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE owner_id = ? OR is_global = 1
		ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (c categoryRepo) Get(ctx context.Context, ownerID, id string) (*core.Category, error) {
	row := c.r.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE id = ? AND (owner_id = ? OR is_global = 1)`, id, ownerID)
	cat, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return &cat, nil
}

// FindByName prefers the owner's own category over a global one.
func (c categoryRepo) FindByName(ctx context.Context, ownerID, name string) (*core.Category, error) {
	row := c.r.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE name = ? COLLATE NOCASE AND (owner_id = ? OR is_global = 1)
		ORDER BY CASE WHEN owner_id = ? THEN 0 ELSE 1 END
		LIMIT 1`, name, ownerID, ownerID)
	cat, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category", name)
	}
	return &cat, nil
}

func (c categoryRepo) Create(ctx context.Context, cat *core.Category) error {
	now := c.r.stamp(&cat.ID)
	_, err := c.r.db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		cat.ID, cat.OwnerID, cat.Name, cat.Icon, boolInt(cat.IsGlobal), now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %s: %w", cat.Name, core.ErrConflict)
		}
		return fmt.Errorf("create category: %w", err)
	}
	cat.CreatedAt, _ = parseTime(now)
	return nil
}

func (c categoryRepo) Update(ctx context.Context, cat *core.Category) error {
	res, err := c.r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ? WHERE id = ? AND owner_id = ?`,
		cat.Name, cat.Icon, cat.ID, cat.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %s: %w", cat.Name, core.ErrConflict)
		}
		return fmt.Errorf("update category: %w", err)
	}
	return checkAffected(res, "category", cat.ID)
}
