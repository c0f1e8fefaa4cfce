package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retraction struct {
	kind      domain.NotificationKind
	userID    int64
	bookingID int64
}

type recorder struct {
	mu          sync.Mutex
	sent        []domain.Notification
	retractions []retraction
	invalidated [][]int64
}

func (r *recorder) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) Retract(_ context.Context, kind domain.NotificationKind, userID, bookingID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retractions = append(r.retractions, retraction{kind, userID, bookingID})
	return nil
}

func (r *recorder) InvalidateProfileMonth(_ context.Context, _ domain.Date, ids ...int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, ids)
	return nil
}

type limiter struct {
	allow bool
	err   error
}

func (l limiter) Allow(context.Context, string) (bool, int64, time.Duration, error) {
	return l.allow, 0, 42 * time.Second, l.err
}

type fixture struct {
	svc    *Service
	rec    *recorder
	artist *domain.Profile
	venue  *domain.Profile
	fan    *domain.Profile
}

func newFixture(t *testing.T, lim RateLimiter) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	artist := &domain.Profile{UserID: 10, Type: domain.ProfileArtist, Name: "Band", IsActive: true}
	venue := &domain.Profile{UserID: 20, Type: domain.ProfileVenue, Name: "Club", IsActive: true}
	fan := &domain.Profile{UserID: 30, Type: domain.ProfileAudience, Name: "Fan", IsActive: true}
	for _, p := range []*domain.Profile{artist, venue, fan} {
		require.NoError(t, store.Profiles().Create(ctx, p))
	}

	rec := &recorder{}
	svc := New(store, Deps{Notifier: rec, Cache: rec, Limiter: lim}, zerolog.Nop())
	return fixture{svc: svc, rec: rec, artist: artist, venue: venue, fan: fan}
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	day := domain.NewDate(2025, 7, 12)

	b, err := f.svc.Create(ctx, f.artist.ID, CreateInput{VenueID: f.venue.ID, EventDate: &day, Message: strPtr("  ")})
	require.NoError(t, err)

	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Nil(t, b.Message)
	require.Len(t, f.rec.sent, 1)
	n := f.rec.sent[0]
	assert.Equal(t, domain.NotifyBookingRequested, n.Kind)
	assert.Equal(t, f.venue.UserID, n.RecipientUserID)
	assert.Equal(t, b.ID, *n.BookingRequestID)
	assert.Equal(t, [][]int64{{f.artist.ID, f.venue.ID}}, f.rec.invalidated)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.Create(ctx, f.venue.ID, CreateInput{VenueID: f.venue.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Create(ctx, f.artist.ID, CreateInput{VenueID: f.fan.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Create(ctx, f.artist.ID, CreateInput{VenueID: 404})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Create(ctx, 404, CreateInput{VenueID: f.venue.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, f.rec.sent)
}

func TestCreate_RateLimited(t *testing.T) {
	f := newFixture(t, limiter{allow: false})

	_, err := f.svc.Create(context.Background(), f.artist.ID, CreateInput{VenueID: f.venue.ID})
	var rl domain.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 42*time.Second, rl.RetryAfter)

	list, err := f.svc.ListForProfile(context.Background(), f.artist.ID, domain.ProfileArtist)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateStatus_Accept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, limiter{allow: true})

	b, err := f.svc.Create(ctx, f.artist.ID, CreateInput{VenueID: f.venue.ID})
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(ctx, b.ID, domain.BookingAccepted, f.venue.ID, strPtr("ignored"))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingAccepted, got.Status)
	assert.Nil(t, got.DeclineMessage)
	assert.NotNil(t, got.RespondedAt)

	require.Len(t, f.rec.sent, 2)
	assert.Equal(t, domain.NotifyBookingConfirmed, f.rec.sent[1].Kind)
	assert.Equal(t, f.artist.UserID, f.rec.sent[1].RecipientUserID)
	assert.Empty(t, f.rec.retractions)

	_, err = f.svc.UpdateStatus(ctx, b.ID, domain.BookingRejected, f.venue.ID, nil)
	var se domain.StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "accepted", se.Current)
}

func TestUpdateStatus_RejectWithMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	b, err := f.svc.Create(ctx, f.artist.ID, CreateInput{VenueID: f.venue.ID})
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(ctx, b.ID, domain.BookingRejected, f.venue.ID, strPtr("fully booked"))
	require.NoError(t, err)
	assert.Equal(t, "fully booked", *got.DeclineMessage)

	last := f.rec.sent[len(f.rec.sent)-1]
	assert.Equal(t, domain.NotifyBookingDeclined, last.Kind)
	assert.Contains(t, last.Message, "fully booked")
	assert.Equal(t, []retraction{{domain.NotifyBookingRequested, f.venue.UserID, b.ID}}, f.rec.retractions)
}

func TestUpdateStatus_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	b, err := f.svc.Create(ctx, f.artist.ID, CreateInput{VenueID: f.venue.ID})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, b.ID, domain.BookingPending, f.venue.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdateStatus(ctx, b.ID, domain.BookingAccepted, f.artist.ID, nil)
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = f.svc.UpdateStatus(ctx, 999, domain.BookingAccepted, f.venue.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_ConcurrentRespondersOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	b, err := f.svc.Create(ctx, f.artist.ID, CreateInput{VenueID: f.venue.ID})
	require.NoError(t, err)

	statuses := []domain.BookingStatus{domain.BookingAccepted, domain.BookingRejected}
	errs := make([]error, len(statuses))

	var wg sync.WaitGroup
	for i, st := range statuses {
		i, st := i, st
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.UpdateStatus(ctx, b.ID, st, f.venue.ID, nil)
		}()
	}
	wg.Wait()

	var wins, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrState):
			lost++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, lost)
}

func TestListAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	b, err := f.svc.Create(ctx, f.artist.ID, CreateInput{VenueID: f.venue.ID})
	require.NoError(t, err)

	sent, err := f.svc.ListForProfile(ctx, f.artist.ID, domain.ProfileArtist)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "Club", sent[0].Counterpart.Name)

	received, err := f.svc.ListForProfile(ctx, f.venue.ID, domain.ProfileVenue)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "Band", received[0].Counterpart.Name)

	_, err = f.svc.ListForProfile(ctx, f.fan.ID, domain.ProfileAudience)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Get(ctx, f.fan.ID, b.ID)
	assert.ErrorIs(t, err, domain.ErrPermission)

	got, err := f.svc.Get(ctx, f.venue.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}
