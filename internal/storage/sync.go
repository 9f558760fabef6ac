package storage

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type syncRepo struct{ r *SQLiteRepository }

// PendingSync returns transactions that still need to be exported.
func (s syncRepo) PendingSync(ctx context.Context, limit int) ([]ports.PendingSync, error) {
	rows, err := s.r.db.QueryContext(ctx, `
		SELECT id, owner_id, version, created_at FROM transactions
		WHERE sync_status = 'pending'
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []ports.PendingSync
	for rows.Next() {
		var (
			p         ports.PendingSync
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetForSync loads a transaction without an owner filter; only the export
// worker calls it.
func (s syncRepo) GetForSync(ctx context.Context, id string) (*core.Transaction, error) {
	row := s.r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &tx, nil
}

func (s syncRepo) Version(ctx context.Context, id string) (int64, error) {
	var v int64
	err := s.r.db.QueryRowContext(ctx, `SELECT version FROM transactions WHERE id = ?`, id).Scan(&v)
	if err != nil {
		return 0, notFound(err, "transaction", id)
	}
	return v, nil
}

func (s syncRepo) MarkSynced(ctx context.Context, id string) error {
	res, err := s.r.db.ExecContext(ctx, `UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if err := checkAffected(res, "transaction", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (s syncRepo) MarkSyncError(ctx context.Context, id string) error {
	res, err := s.r.db.ExecContext(ctx, `UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	if err := checkAffected(res, "transaction", id); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}
