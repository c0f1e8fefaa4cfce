package postgres

import (
	"context"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
)

type BookingRepo struct {
	pool DB
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `b.id, b.artist_profile_id, b.venue_profile_id, b.status, b.requested_at,
	b.event_date, b.event_time, b.budget, b.requirements, b.message, b.decline_message, b.responded_at`

const counterpartColumns = `c.id, c.type, c.name, c.image_url, c.location, c.bio`

// bookingScanner collects the raw column values of a booking row before they
// are converted into domain types.
type bookingScanner struct {
	b         domain.BookingRequest
	status    string
	eventDate *time.Time
	card      domain.ProfileCard
	cardType  string
}

func (s *bookingScanner) dest(withCounterpart bool) []any {
	d := []any{
		&s.b.ID,
		&s.b.ArtistProfileID,
		&s.b.VenueProfileID,
		&s.status,
		&s.b.RequestedAt,
		&s.eventDate,
		&s.b.EventTime,
		&s.b.Budget,
		&s.b.Requirements,
		&s.b.Message,
		&s.b.DeclineMessage,
		&s.b.RespondedAt,
	}
	if withCounterpart {
		d = append(d,
			&s.card.ID,
			&s.cardType,
			&s.card.Name,
			&s.card.ImageURL,
			&s.card.Location,
			&s.card.Bio,
		)
	}
	return d
}

func (s *bookingScanner) booking() domain.BookingRequest {
	b := s.b
	b.Status = domain.BookingStatus(s.status)
	b.EventDate = domain.DatePtr(s.eventDate)
	return b
}

func (s *bookingScanner) view() domain.BookingRequestView {
	card := s.card
	card.Type = domain.ProfileType(s.cardType)
	return domain.BookingRequestView{BookingRequest: s.booking(), Counterpart: card}
}

// Create inserts a booking request and fills in its ID and request time.
func (r *BookingRepo) Create(ctx context.Context, b *domain.BookingRequest) error {
	const op = "postgres.BookingRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO booking_requests(
			artist_profile_id, venue_profile_id, status, requested_at,
			event_date, event_time, budget, requirements, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		b.ArtistProfileID,
		b.VenueProfileID,
		string(b.Status),
		b.RequestedAt,
		b.EventDate.TimePtr(),
		b.EventTime,
		b.Budget,
		b.Requirements,
		b.Message,
	).Scan(&b.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves a booking request by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the request does not exist.
func (r *BookingRepo) Get(ctx context.Context, id int64) (*domain.BookingRequest, error) {
	const op = "postgres.BookingRepo.Get"

	var s bookingScanner
	err := r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+`
		 FROM booking_requests b
		 WHERE b.id = $1`,
		id,
	).Scan(s.dest(false)...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	b := s.booking()
	return &b, nil
}

// TransitionStatus performs a conditional update guarded by the expected
// current status. It reports false when another writer got there first.
func (r *BookingRepo) TransitionStatus(
	ctx context.Context,
	id int64,
	from, to domain.BookingStatus,
	declineMessage *string,
	at time.Time,
) (bool, error) {
	const op = "postgres.BookingRepo.TransitionStatus"

	tag, err := r.handle().Exec(ctx,
		`UPDATE booking_requests
		 SET status = $3, decline_message = $4, responded_at = $5
		 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), declineMessage, at,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *BookingRepo) ListByArtist(ctx context.Context, artistID int64) ([]domain.BookingRequestView, error) {
	const op = "postgres.BookingRepo.ListByArtist"

	views, err := r.listViews(ctx,
		`SELECT `+bookingColumns+`, `+counterpartColumns+`
		 FROM booking_requests b
		 JOIN profiles c ON c.id = b.venue_profile_id
		 WHERE b.artist_profile_id = $1
		 ORDER BY b.requested_at DESC, b.id DESC`,
		artistID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return views, nil
}

func (r *BookingRepo) ListByVenue(ctx context.Context, venueID int64) ([]domain.BookingRequestView, error) {
	const op = "postgres.BookingRepo.ListByVenue"

	views, err := r.listViews(ctx,
		`SELECT `+bookingColumns+`, `+counterpartColumns+`
		 FROM booking_requests b
		 JOIN profiles c ON c.id = b.artist_profile_id
		 WHERE b.venue_profile_id = $1
		 ORDER BY b.requested_at DESC, b.id DESC`,
		venueID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return views, nil
}

func (r *BookingRepo) ListDatedForProfile(
	ctx context.Context,
	profileID int64,
	from, to domain.Date,
) ([]domain.BookingRequestView, error) {
	const op = "postgres.BookingRepo.ListDatedForProfile"

	views, err := r.listViews(ctx,
		`SELECT `+bookingColumns+`, `+counterpartColumns+`
		 FROM booking_requests b
		 JOIN profiles c ON c.id = CASE
			WHEN b.artist_profile_id = $1 THEN b.venue_profile_id
			ELSE b.artist_profile_id END
		 WHERE (b.artist_profile_id = $1 OR b.venue_profile_id = $1)
		   AND b.status IN ('pending', 'accepted')
		   AND b.event_date IS NOT NULL
		   AND b.event_date BETWEEN $2 AND $3
		 ORDER BY b.event_date, b.id`,
		profileID, from.Time, to.Time,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return views, nil
}

func (r *BookingRepo) listViews(ctx context.Context, sql string, args ...any) ([]domain.BookingRequestView, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.BookingRequestView
	for rows.Next() {
		var s bookingScanner
		if err := rows.Scan(s.dest(true)...); err != nil {
			return nil, err
		}
		out = append(out, s.view())
	}

	return out, rows.Err()
}

