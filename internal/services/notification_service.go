package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 100
)

type NotificationService struct {
	store ports.NotificationStore
	deps  Deps
}

func NewNotificationService(store ports.NotificationStore, deps Deps) *NotificationService {
	return &NotificationService{store: store, deps: deps}
}

// List returns the newest notifications, optionally filtered by status.
// limit defaults to 50 and is capped at 100.
func (s *NotificationService) List(ctx context.Context, ownerID string, status core.NotificationStatus, limit int) ([]core.Notification, error) {
	switch status {
	case "", core.NotificationUnread, core.NotificationRead:
	default:
		return nil, core.NewValidationError("status", "must be read or unread")
	}
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}
	out, err := s.store.List(ctx, ownerID, ports.NotificationFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// Create stores an ad-hoc notification.
func (s *NotificationService) Create(ctx context.Context, n *core.Notification) error {
	if n.Type == "" {
		n.Type = core.NotificationGeneral
	}
	if err := n.Validate(); err != nil {
		return err
	}
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (s *NotificationService) MarkRead(ctx context.Context, ownerID, id string) error {
	if err := s.store.MarkRead(ctx, ownerID, id, s.deps.Clock.now()); err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, ownerID string) (int, error) {
	n, err := s.store.MarkAllRead(ctx, ownerID, s.deps.Clock.now())
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete notification %s: %w", id, err)
	}
	return nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, ownerID string) (int, error) {
	n, err := s.store.UnreadCount(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
