package bookings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/logging"
	"github.com/kirinyoku/gigbook/internal/repository"
	"github.com/kirinyoku/gigbook/internal/uow"
	"github.com/rs/zerolog"
)

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
	Retract(ctx context.Context, kind domain.NotificationKind, recipientUserID, bookingRequestID int64) error
}

type Invalidator interface {
	InvalidateProfileMonth(ctx context.Context, day domain.Date, profileIDs ...int64) error
}

// RateLimiter admits or refuses one more request for a key suffix.
type RateLimiter interface {
	Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

// Deps are the optional collaborators. Any of them may be nil.
type Deps struct {
	Notifier Notifier
	Cache    Invalidator
	Limiter  RateLimiter
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	notifier Notifier
	cache    Invalidator
	limiter  RateLimiter
	log      zerolog.Logger
	now      func() time.Time
}

func New(store repository.Store, deps Deps, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		notifier: deps.Notifier,
		cache:    deps.Cache,
		limiter:  deps.Limiter,
		log:      log,
		now:      time.Now,
	}
}

type CreateInput struct {
	VenueID      int64
	EventDate    *domain.Date
	EventTime    *string
	Budget       *string
	Requirements *string
	Message      *string
}

// Create files a pending booking request from the acting artist to a venue
// and notifies the venue's owner once it is stored.
//
// Returns:
//   - error: domain.ValidationError when the acting profile is not an artist
//     or the venue id is not a venue; domain.RateLimitedError when the artist
//     sends too many requests.
func (s *Service) Create(ctx context.Context, actingProfileID int64, in CreateInput) (*domain.BookingRequest, error) {
	const op = "service.bookings.Create"

	artist, err := s.store.Profiles().Get(ctx, actingProfileID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, profileNotFound(err, actingProfileID))
	}
	if artist.Type != domain.ProfileArtist {
		return nil, fmt.Errorf("%s: %w", op, ErrNotArtist)
	}

	venue, err := s.store.Profiles().Get(ctx, in.VenueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotVenue)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if venue.Type != domain.ProfileVenue {
		return nil, fmt.Errorf("%s: %w", op, ErrNotVenue)
	}

	if in.EventTime != nil && *in.EventTime != "" {
		if _, err := time.Parse("15:04", *in.EventTime); err != nil {
			return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "event_time", Reason: "must be HH:MM"})
		}
	}

	if s.limiter != nil {
		ok, _, retryAfter, err := s.limiter.Allow(ctx, strconv.FormatInt(actingProfileID, 10))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", op, domain.RateLimitedError{RetryAfter: retryAfter})
		}
	}

	b := &domain.BookingRequest{
		ArtistProfileID: artist.ID,
		VenueProfileID:  venue.ID,
		Status:          domain.BookingPending,
		RequestedAt:     s.now().UTC(),
		EventDate:       in.EventDate,
		EventTime:       trimmed(in.EventTime),
		Budget:          trimmed(in.Budget),
		Requirements:    trimmed(in.Requirements),
		Message:         trimmed(in.Message),
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}

		id := b.ID
		after(func(ctx context.Context) {
			s.notify(ctx, domain.Notification{
				RecipientUserID:    venue.UserID,
				RecipientProfileID: venue.ID,
				SenderProfileID:    artist.ID,
				Kind:               domain.NotifyBookingRequested,
				Title:              "New booking request",
				Message:            fmt.Sprintf("%s wants to play at %s%s.", artist.Name, venue.Name, onDate(b.EventDate)),
				BookingRequestID:   &id,
			})
			if b.EventDate != nil {
				s.invalidate(ctx, *b.EventDate, artist.ID, venue.ID)
			}
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// UpdateStatus lets the addressed venue accept or reject a pending request.
// The transition is a guarded update, so of two concurrent responders only
// one wins and the other gets a domain.StateError carrying the status it
// lost to.
func (s *Service) UpdateStatus(
	ctx context.Context,
	requestID int64,
	status domain.BookingStatus,
	actingProfileID int64,
	declineMessage *string,
) (*domain.BookingRequest, error) {
	const op = "service.bookings.UpdateStatus"

	if status != domain.BookingAccepted && status != domain.BookingRejected {
		return nil, fmt.Errorf("%s: %w", op, ErrBadStatus)
	}

	msg := trimmed(declineMessage)
	if status == domain.BookingAccepted {
		msg = nil
	}

	var out *domain.BookingRequest
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		b, err := tx.Bookings().Get(ctx, requestID)
		if err != nil {
			return bookingNotFound(err, requestID)
		}
		if b.VenueProfileID != actingProfileID {
			return domain.PermissionError{Reason: "only the addressed venue can respond to a booking request"}
		}

		stateErr := domain.StateError{Entity: "booking request", ID: requestID, Action: "respond to"}
		if b.Status != domain.BookingPending {
			stateErr.Current = string(b.Status)
			return stateErr
		}

		now := s.now().UTC()
		ok, err := tx.Bookings().TransitionStatus(ctx, requestID, domain.BookingPending, status, msg, now)
		if err != nil {
			return err
		}
		if !ok {
			cur, err := tx.Bookings().Get(ctx, requestID)
			if err != nil {
				return bookingNotFound(err, requestID)
			}
			stateErr.Current = string(cur.Status)
			return stateErr
		}

		b.Status = status
		b.DeclineMessage = msg
		b.RespondedAt = &now
		out = b

		venue, err := tx.Profiles().Get(ctx, b.VenueProfileID)
		if err != nil {
			return profileNotFound(err, b.VenueProfileID)
		}
		artist, err := tx.Profiles().Get(ctx, b.ArtistProfileID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		after(func(ctx context.Context) {
			if artist != nil {
				s.notify(ctx, decisionNotification(*b, *artist, *venue))
			}
			if status == domain.BookingRejected {
				s.retract(ctx, venue.UserID, b.ID)
			}
			if b.EventDate != nil {
				s.invalidate(ctx, *b.EventDate, b.ArtistProfileID, b.VenueProfileID)
			}
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func decisionNotification(b domain.BookingRequest, artist, venue domain.Profile) domain.Notification {
	id := b.ID
	n := domain.Notification{
		RecipientUserID:    artist.UserID,
		RecipientProfileID: artist.ID,
		SenderProfileID:    venue.ID,
		BookingRequestID:   &id,
	}

	if b.Status == domain.BookingAccepted {
		n.Kind = domain.NotifyBookingConfirmed
		n.Title = "Booking confirmed"
		n.Message = fmt.Sprintf("%s accepted your booking request%s.", venue.Name, onDate(b.EventDate))
		return n
	}

	n.Kind = domain.NotifyBookingDeclined
	n.Title = "Booking declined"
	n.Message = fmt.Sprintf("%s declined your booking request%s.", venue.Name, onDate(b.EventDate))
	if b.DeclineMessage != nil {
		n.Message += " Message: " + *b.DeclineMessage
	}
	return n
}

// ListForProfile returns the requests the profile sent (artist) or received
// (venue), newest first, each with the other party's card.
func (s *Service) ListForProfile(
	ctx context.Context,
	profileID int64,
	profileType domain.ProfileType,
) ([]domain.BookingRequestView, error) {
	const op = "service.bookings.ListForProfile"

	var (
		list []domain.BookingRequestView
		err  error
	)
	switch profileType {
	case domain.ProfileArtist:
		list, err = s.store.Bookings().ListByArtist(ctx, profileID)
	case domain.ProfileVenue:
		list, err = s.store.Bookings().ListByVenue(ctx, profileID)
	default:
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "profile", Reason: "audience profiles have no booking requests"})
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if list == nil {
		list = []domain.BookingRequestView{}
	}
	return list, nil
}

// Get returns a request to either of its parties.
func (s *Service) Get(ctx context.Context, actingProfileID, requestID int64) (*domain.BookingRequest, error) {
	const op = "service.bookings.Get"

	b, err := s.store.Bookings().Get(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, bookingNotFound(err, requestID))
	}
	if b.ArtistProfileID != actingProfileID && b.VenueProfileID != actingProfileID {
		return nil, fmt.Errorf("%s: %w", op, domain.PermissionError{Reason: "not a party to this booking request"})
	}

	return b, nil
}

func (s *Service) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logging.FromContext(ctx, s.log).Warn().Err(err).
			Str("kind", string(n.Kind)).
			Int64("recipient_user_id", n.RecipientUserID).
			Msg("notification delivery failed")
	}
}

func (s *Service) retract(ctx context.Context, venueUserID, bookingID int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Retract(ctx, domain.NotifyBookingRequested, venueUserID, bookingID); err != nil {
		logging.FromContext(ctx, s.log).Warn().Err(err).Int64("booking_request_id", bookingID).Msg("notification retract failed")
	}
}

func (s *Service) invalidate(ctx context.Context, day domain.Date, profileIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProfileMonth(ctx, day, profileIDs...); err != nil {
		logging.FromContext(ctx, s.log).Warn().Err(err).Msg("calendar cache invalidation failed")
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func onDate(d *domain.Date) string {
	if d == nil {
		return ""
	}
	return " on " + d.String()
}
