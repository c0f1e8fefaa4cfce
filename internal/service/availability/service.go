// Package availability merges the calendars of an artist and a venue into a
// per-day view of one month.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
	"golang.org/x/sync/errgroup"
)

const redactedTitle = "Busy"

// MonthCache stores one profile's projection for a month.
type MonthCache interface {
	ProfileMonth(
		ctx context.Context,
		profileID int64,
		year, month int,
		load func(ctx context.Context) ([]domain.CalendarEvent, error),
	) ([]domain.CalendarEvent, error)
}

type Service struct {
	store repository.Store
	cache MonthCache
}

// New builds the aggregator. With a nil cache every call reads the store.
func New(store repository.Store, cache MonthCache) *Service {
	return &Service{store: store, cache: cache}
}

// GetAvailability returns one entry for every day of the month keyed by
// "YYYY-MM-DD". An unknown or zero profile id contributes no events instead
// of failing the call.
//
// Parameters:
//   - viewerProfileID: private events of other profiles are redacted for this viewer
//   - artistID, venueID: the two calendars to merge
//   - month: 1..12
//   - year: 1970 or later
func (s *Service) GetAvailability(
	ctx context.Context,
	viewerProfileID, artistID, venueID int64,
	month, year int,
) (map[string]domain.DayAvailability, error) {
	const op = "service.availability.GetAvailability"

	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "month", Reason: "must be between 1 and 12"})
	}
	if year < 1970 {
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "year", Reason: "must be 1970 or later"})
	}

	var artistEvents, venueEvents []domain.CalendarEvent

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		artistEvents, err = s.projection(gctx, artistID, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		venueEvents, err = s.projection(gctx, venueID, year, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	artistByDay := byDay(redact(artistEvents, viewerProfileID))
	venueByDay := byDay(redact(venueEvents, viewerProfileID))

	first := domain.NewDate(year, time.Month(month), 1)
	out := make(map[string]domain.DayAvailability, 31)
	for d := first; d.Month() == first.Month(); d = domain.DateOf(d.AddDate(0, 0, 1)) {
		key := d.String()
		a := nonNil(artistByDay[key])
		v := nonNil(venueByDay[key])
		out[key] = domain.DayAvailability{
			Date:         d,
			State:        Classify(a, v),
			ArtistEvents: a,
			VenueEvents:  v,
		}
	}

	return out, nil
}

// Classify reduces one day's events to its availability state.
func Classify(artist, venue []domain.CalendarEvent) domain.AvailabilityState {
	artistBlocked := blocked(artist)
	venueBlocked := blocked(venue)

	switch {
	case artistBlocked && venueBlocked:
		return domain.AvailabilityBothUnavailable
	case artistBlocked:
		return domain.AvailabilityArtistUnavailable
	case venueBlocked:
		return domain.AvailabilityVenueUnavailable
	case len(artist) > 0 || len(venue) > 0:
		return domain.AvailabilityHasEvents
	default:
		return domain.AvailabilityAvailable
	}
}

func blocked(events []domain.CalendarEvent) bool {
	for _, e := range events {
		if e.BlocksAvailability() {
			return true
		}
	}
	return false
}

// projection returns the profile's persisted events plus the synthetic ones
// derived from its dated booking requests.
func (s *Service) projection(ctx context.Context, profileID int64, year, month int) ([]domain.CalendarEvent, error) {
	if profileID <= 0 {
		return nil, nil
	}

	if _, err := s.store.Profiles().Get(ctx, profileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	load := func(ctx context.Context) ([]domain.CalendarEvent, error) {
		return s.load(ctx, profileID, year, month)
	}
	if s.cache == nil {
		return load(ctx)
	}

	return s.cache.ProfileMonth(ctx, profileID, year, month, load)
}

func (s *Service) load(ctx context.Context, profileID int64, year, month int) ([]domain.CalendarEvent, error) {
	from := domain.NewDate(year, time.Month(month), 1)
	to := domain.DateOf(from.AddDate(0, 1, -1))

	events, err := s.store.Calendar().ListForProfile(ctx, profileID, from, to)
	if err != nil {
		return nil, err
	}

	bookings, err := s.store.Bookings().ListDatedForProfile(ctx, profileID, from, to)
	if err != nil {
		return nil, err
	}

	for _, b := range bookings {
		events = append(events, Synthesize(profileID, b))
	}

	return events, nil
}

// Synthesize projects a dated booking request onto the calendar of one of
// its parties. Accepted requests block the day, pending ones do not.
func Synthesize(profileID int64, b domain.BookingRequestView) domain.CalendarEvent {
	status := domain.EventPending
	if b.Status == domain.BookingAccepted {
		status = domain.EventConfirmed
	}

	title := "Booking: " + b.Counterpart.Name
	if profileID == b.ArtistProfileID {
		title = "Gig at " + b.Counterpart.Name
	}

	id := b.ID
	e := domain.CalendarEvent{
		ProfileID:        profileID,
		Title:            title,
		Type:             domain.EventBooking,
		Status:           status,
		Client:           b.Counterpart.Name,
		Location:         b.Counterpart.Location,
		BookingRequestID: &id,
		Synthetic:        true,
	}
	if b.EventDate != nil {
		e.Date = *b.EventDate
	}
	if b.EventTime != nil {
		e.StartTime = *b.EventTime
	}
	if b.Budget != nil {
		e.Budget = *b.Budget
	}

	return e
}

// redact copies events, stripping the details of private events the viewer
// does not own. They still count toward the day's state.
func redact(events []domain.CalendarEvent, viewerProfileID int64) []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, 0, len(events))
	for _, e := range events {
		if e.IsPrivate && e.ProfileID != viewerProfileID {
			e.Title = redactedTitle
			e.Client = ""
			e.Location = ""
			e.Notes = ""
			e.Budget = ""
		}
		out = append(out, e)
	}
	return out
}

func byDay(events []domain.CalendarEvent) map[string][]domain.CalendarEvent {
	m := make(map[string][]domain.CalendarEvent)
	for _, e := range events {
		k := e.Date.String()
		m[k] = append(m[k], e)
	}
	return m
}

func nonNil(events []domain.CalendarEvent) []domain.CalendarEvent {
	if events == nil {
		return []domain.CalendarEvent{}
	}
	return events
}
