package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
)

type NotificationRepo struct {
	pool DB
	db   DB
}

func (r *NotificationRepo) With(db DB) *NotificationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *NotificationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	const op = "postgres.NotificationRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO notifications(
			recipient_user_id, recipient_profile_id, sender_profile_id, kind, title, message,
			booking_request_id, contract_proposal_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		n.RecipientUserID,
		n.RecipientProfileID,
		n.SenderProfileID,
		string(n.Kind),
		n.Title,
		n.Message,
		n.BookingRequestID,
		n.ContractProposalID,
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	const op = "postgres.NotificationRepo.ListForUser"

	rows, err := r.handle().Query(ctx,
		`SELECT id, recipient_user_id, recipient_profile_id, sender_profile_id, kind, title, message,
		        booking_request_id, contract_proposal_id, read_at, created_at
		 FROM notifications
		 WHERE recipient_user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Notification, error) {
		var (
			n    domain.Notification
			kind string
		)
		err := row.Scan(
			&n.ID,
			&n.RecipientUserID,
			&n.RecipientProfileID,
			&n.SenderProfileID,
			&kind,
			&n.Title,
			&n.Message,
			&n.BookingRequestID,
			&n.ContractProposalID,
			&n.ReadAt,
			&n.CreatedAt,
		)
		n.Kind = domain.NotificationKind(kind)
		return n, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// MarkRead stamps read_at on a notification owned by userID. Marking an
// already read notification is a no-op.
//
// Returns:
//   - error: repository.ErrNotFound if the user has no such notification.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID int64, at time.Time) error {
	const op = "postgres.NotificationRepo.MarkRead"

	tag, err := r.handle().Exec(ctx,
		`UPDATE notifications
		 SET read_at = COALESCE(read_at, $3)
		 WHERE id = $1 AND recipient_user_id = $2`,
		id, userID, at,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// DeleteForBooking removes notifications of a kind tied to a booking request
// so they no longer show up as actionable.
func (r *NotificationRepo) DeleteForBooking(
	ctx context.Context,
	kind domain.NotificationKind,
	recipientUserID, bookingRequestID int64,
) (int64, error) {
	const op = "postgres.NotificationRepo.DeleteForBooking"

	tag, err := r.handle().Exec(ctx,
		`DELETE FROM notifications
		 WHERE kind = $1 AND recipient_user_id = $2 AND booking_request_id = $3`,
		string(kind), recipientUserID, bookingRequestID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}
