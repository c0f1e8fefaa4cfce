// Package inbox serves a user's notifications: the stored list, read marks
// and the live stream.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Subscriber streams notifications addressed to one user until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, userID int64, handler func(ctx context.Context, n domain.Notification)) error
}

type Service struct {
	store repository.Store
	sub   Subscriber
	now   func() time.Time
}

// New builds the inbox. Without a subscriber Stream reports ErrStreamUnavailable.
func New(store repository.Store, sub Subscriber) *Service {
	return &Service{store: store, sub: sub, now: time.Now}
}

var ErrStreamUnavailable = errors.New("live notifications are not configured")

// Live reports whether Stream can deliver anything.
func (s *Service) Live() bool {
	return s.sub != nil
}

// List returns the user's notifications, newest first. limit is clamped to
// 1..100 and defaults to 20.
func (s *Service) List(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	const op = "service.inbox.List"

	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.store.Notifications().ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	const op = "service.inbox.MarkRead"

	if err := s.store.Notifications().MarkRead(ctx, notificationID, userID, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, domain.NotFoundError{Entity: "notification", ID: notificationID})
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Stream blocks, passing every new notification for userID to fn, until ctx
// is done.
func (s *Service) Stream(ctx context.Context, userID int64, fn func(n domain.Notification)) error {
	const op = "service.inbox.Stream"

	if s.sub == nil {
		return fmt.Errorf("%s: %w", op, ErrStreamUnavailable)
	}

	err := s.sub.Subscribe(ctx, userID, func(_ context.Context, n domain.Notification) { fn(n) })
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
