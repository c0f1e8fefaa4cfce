// Package notify fans a notification out to its delivery channels once the
// state change it describes has committed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
)

// Publisher is one live delivery channel: the redis broadcast or the queue.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

type Dispatcher struct {
	store      repository.Notifications
	publishers []Publisher
	now        func() time.Time
}

// NewDispatcher persists through store and then hands the stored
// notification to every publisher in order. Nil publishers are skipped.
func NewDispatcher(store repository.Notifications, publishers ...Publisher) *Dispatcher {
	d := &Dispatcher{store: store, now: time.Now}
	for _, p := range publishers {
		if p != nil {
			d.publishers = append(d.publishers, p)
		}
	}
	return d
}

// Notify delivers n everywhere it can. A failing channel does not stop the
// others; all failures come back joined.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) error {
	const op = "notify.Dispatcher.Notify"

	if n.RecipientUserID == 0 {
		return fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "recipient_user_id", Reason: "required"})
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now().UTC()
	}

	var errs []error
	if err := d.store.Create(ctx, &n); err != nil {
		errs = append(errs, fmt.Errorf("persist: %w", err))
	}

	for _, p := range d.publishers {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Retract removes the kind of notification tied to a booking request from
// the recipient's inbox.
func (d *Dispatcher) Retract(
	ctx context.Context,
	kind domain.NotificationKind,
	recipientUserID, bookingRequestID int64,
) error {
	const op = "notify.Dispatcher.Retract"

	if _, err := d.store.DeleteForBooking(ctx, kind, recipientUserID, bookingRequestID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
