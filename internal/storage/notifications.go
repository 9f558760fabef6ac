package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

const notificationColumns = `id, owner_id, title, message, type, status, related_id, created_at, read_at`

type notificationRepo struct{ r *SQLiteRepository }

func scanNotification(s scanner) (core.Notification, error) {
	var (
		n         core.Notification
		related   sql.NullString
		createdAt string
		readAt    sql.NullString
	)
	err := s.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Message, &n.Type, &n.Status, &related, &createdAt, &readAt)
	if err != nil {
		return n, err
	}
	n.RelatedID = fromNullString(related)
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return n, err
	}
	if n.ReadAt, err = fromNullTime(readAt); err != nil {
		return n, err
	}
	return n, nil
}

func (n notificationRepo) Create(ctx context.Context, notif *core.Notification) error {
	now := n.r.stamp(&notif.ID)
	if notif.Status == "" {
		notif.Status = core.NotificationUnread
	}
	_, err := n.r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		notif.ID, notif.OwnerID, notif.Title, notif.Message, notif.Type, notif.Status,
		nullString(notif.RelatedID), now, nullTime(notif.ReadAt))
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	notif.CreatedAt, _ = parseTime(now)
	return nil
}

func (n notificationRepo) List(ctx context.Context, ownerID string, f ports.NotificationFilter) ([]core.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE owner_id = ?`
	args := []any{ownerID}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := n.r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, notif)
	}
	return out, rows.Err()
}

func (n notificationRepo) MarkRead(ctx context.Context, ownerID, id string, at time.Time) error {
	res, err := n.r.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'read', read_at = ? WHERE id = ? AND owner_id = ?`,
		formatTime(at), id, ownerID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return checkAffected(res, "notification", id)
}

func (n notificationRepo) MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int, error) {
	res, err := n.r.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'read', read_at = ? WHERE owner_id = ? AND status = 'unread'`,
		formatTime(at), ownerID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return int(count), nil
}

func (n notificationRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := n.r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return checkAffected(res, "notification", id)
}

func (n notificationRepo) UnreadCount(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := n.r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE owner_id = ? AND status = 'unread'`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (n notificationRepo) ExistsUnread(ctx context.Context, ownerID string, typ core.NotificationType, relatedID string) (bool, error) {
	var exists int
	err := n.r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE owner_id = ? AND type = ? AND related_id = ? AND status = 'unread'
		)`, ownerID, typ, relatedID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check unread notification: %w", err)
	}
	return exists == 1, nil
}
