package availability

import (
	"context"
	"testing"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *memory.Store
	artist int64
	venue  int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	a := &domain.Profile{UserID: 1, Type: domain.ProfileArtist, Name: "Band", IsActive: true}
	v := &domain.Profile{UserID: 2, Type: domain.ProfileVenue, Name: "Club", Location: "Main St", IsActive: true}
	require.NoError(t, store.Profiles().Create(ctx, a))
	require.NoError(t, store.Profiles().Create(ctx, v))

	return fixture{store: store, artist: a.ID, venue: v.ID}
}

func (f fixture) event(t *testing.T, profileID int64, day int, typ domain.EventType, status domain.EventStatus, private bool) {
	t.Helper()
	require.NoError(t, f.store.Calendar().Create(context.Background(), &domain.CalendarEvent{
		ProfileID: profileID,
		Title:     "secret plans",
		Date:      domain.NewDate(2025, 7, day),
		Type:      typ,
		Status:    status,
		Notes:     "notes",
		IsPrivate: private,
	}))
}

func TestGetAvailability_Classification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.event(t, f.artist, 3, domain.EventShow, domain.EventConfirmed, false)
	f.event(t, f.venue, 3, domain.EventUnavailable, domain.EventPending, false)
	f.event(t, f.artist, 4, domain.EventUnavailable, domain.EventConfirmed, false)
	f.event(t, f.venue, 5, domain.EventBooking, domain.EventConfirmed, false)
	f.event(t, f.venue, 6, domain.EventRehearsal, domain.EventConfirmed, false)
	f.event(t, f.artist, 7, domain.EventShow, domain.EventCancelled, false)

	svc := New(f.store, nil)
	got, err := svc.GetAvailability(ctx, f.artist, f.artist, f.venue, 7, 2025)
	require.NoError(t, err)

	require.Len(t, got, 31)
	assert.Equal(t, domain.AvailabilityBothUnavailable, got["2025-07-03"].State)
	assert.Equal(t, domain.AvailabilityArtistUnavailable, got["2025-07-04"].State)
	assert.Equal(t, domain.AvailabilityVenueUnavailable, got["2025-07-05"].State)
	assert.Equal(t, domain.AvailabilityHasEvents, got["2025-07-06"].State)
	assert.Equal(t, domain.AvailabilityHasEvents, got["2025-07-07"].State)
	assert.Equal(t, domain.AvailabilityAvailable, got["2025-07-31"].State)
	assert.NotNil(t, got["2025-07-31"].ArtistEvents)
	assert.Empty(t, got["2025-07-31"].VenueEvents)
}

func TestGetAvailability_MonthLengths(t *testing.T) {
	f := newFixture(t)
	svc := New(f.store, nil)

	cases := []struct {
		month, year, days int
	}{
		{2, 2024, 29},
		{2, 2025, 28},
		{4, 2025, 30},
		{12, 2025, 31},
	}
	for _, tc := range cases {
		got, err := svc.GetAvailability(context.Background(), 0, f.artist, f.venue, tc.month, tc.year)
		require.NoError(t, err)
		assert.Len(t, got, tc.days, "%d-%d", tc.year, tc.month)
	}
}

func TestGetAvailability_Validation(t *testing.T) {
	f := newFixture(t)
	svc := New(f.store, nil)

	for _, tc := range []struct{ month, year int }{{0, 2025}, {13, 2025}, {6, 1969}} {
		_, err := svc.GetAvailability(context.Background(), 0, f.artist, f.venue, tc.month, tc.year)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestGetAvailability_UnknownProfileContributesNothing(t *testing.T) {
	f := newFixture(t)
	f.event(t, f.artist, 9, domain.EventShow, domain.EventConfirmed, false)

	got, err := New(f.store, nil).GetAvailability(context.Background(), 0, f.artist, 9999, 7, 2025)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityArtistUnavailable, got["2025-07-09"].State)
	assert.Empty(t, got["2025-07-09"].VenueEvents)
}

func TestGetAvailability_SynthesizesBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	accepted := &domain.BookingRequest{
		ArtistProfileID: f.artist,
		VenueProfileID:  f.venue,
		Status:          domain.BookingAccepted,
		EventDate:       ptr(domain.NewDate(2025, 7, 20)),
	}
	pending := &domain.BookingRequest{
		ArtistProfileID: f.artist,
		VenueProfileID:  f.venue,
		Status:          domain.BookingPending,
		EventDate:       ptr(domain.NewDate(2025, 7, 21)),
	}
	rejected := &domain.BookingRequest{
		ArtistProfileID: f.artist,
		VenueProfileID:  f.venue,
		Status:          domain.BookingRejected,
		EventDate:       ptr(domain.NewDate(2025, 7, 22)),
	}
	for _, b := range []*domain.BookingRequest{accepted, pending, rejected} {
		require.NoError(t, f.store.Bookings().Create(ctx, b))
	}

	got, err := New(f.store, nil).GetAvailability(ctx, f.venue, f.artist, f.venue, 7, 2025)
	require.NoError(t, err)

	day := got["2025-07-20"]
	assert.Equal(t, domain.AvailabilityBothUnavailable, day.State)
	require.Len(t, day.ArtistEvents, 1)
	assert.True(t, day.ArtistEvents[0].Synthetic)
	assert.Equal(t, "Gig at Club", day.ArtistEvents[0].Title)
	assert.Equal(t, "Booking: Band", day.VenueEvents[0].Title)
	assert.Equal(t, accepted.ID, *day.VenueEvents[0].BookingRequestID)

	assert.Equal(t, domain.AvailabilityHasEvents, got["2025-07-21"].State)
	assert.Equal(t, domain.EventPending, got["2025-07-21"].ArtistEvents[0].Status)
	assert.Equal(t, domain.AvailabilityAvailable, got["2025-07-22"].State)
}

func TestGetAvailability_RedactsPrivateEventsOfOthers(t *testing.T) {
	f := newFixture(t)
	f.event(t, f.artist, 15, domain.EventUnavailable, domain.EventConfirmed, true)
	svc := New(f.store, nil)

	asVenue, err := svc.GetAvailability(context.Background(), f.venue, f.artist, f.venue, 7, 2025)
	require.NoError(t, err)
	day := asVenue["2025-07-15"]
	assert.Equal(t, domain.AvailabilityArtistUnavailable, day.State)
	assert.Equal(t, redactedTitle, day.ArtistEvents[0].Title)
	assert.Empty(t, day.ArtistEvents[0].Notes)

	asArtist, err := svc.GetAvailability(context.Background(), f.artist, f.artist, f.venue, 7, 2025)
	require.NoError(t, err)
	assert.Equal(t, "secret plans", asArtist["2025-07-15"].ArtistEvents[0].Title)
}

type stubCache struct {
	hits  map[int64][]domain.CalendarEvent
	loads int
}

func (c *stubCache) ProfileMonth(
	ctx context.Context,
	profileID int64,
	_, _ int,
	load func(ctx context.Context) ([]domain.CalendarEvent, error),
) ([]domain.CalendarEvent, error) {
	if v, ok := c.hits[profileID]; ok {
		return v, nil
	}
	c.loads++
	return load(ctx)
}

func TestGetAvailability_UsesCache(t *testing.T) {
	f := newFixture(t)
	cache := &stubCache{hits: map[int64][]domain.CalendarEvent{
		f.venue: {{ProfileID: f.venue, Title: "cached", Date: domain.NewDate(2025, 7, 2), Type: domain.EventUnavailable}},
	}}

	got, err := New(f.store, cache).GetAvailability(context.Background(), 0, f.artist, f.venue, 7, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, domain.AvailabilityVenueUnavailable, got["2025-07-02"].State)
}

func TestClassify_Precedence(t *testing.T) {
	block := domain.CalendarEvent{Type: domain.EventUnavailable}
	soft := domain.CalendarEvent{Type: domain.EventMeeting, Status: domain.EventConfirmed}

	assert.Equal(t, domain.AvailabilityBothUnavailable, Classify([]domain.CalendarEvent{soft, block}, []domain.CalendarEvent{block}))
	assert.Equal(t, domain.AvailabilityArtistUnavailable, Classify([]domain.CalendarEvent{block}, []domain.CalendarEvent{soft}))
	assert.Equal(t, domain.AvailabilityVenueUnavailable, Classify(nil, []domain.CalendarEvent{block}))
	assert.Equal(t, domain.AvailabilityHasEvents, Classify(nil, []domain.CalendarEvent{soft}))
	assert.Equal(t, domain.AvailabilityAvailable, Classify(nil, nil))
}

func ptr[T any](v T) *T { return &v }
