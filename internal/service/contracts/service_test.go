package contracts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sent []domain.Notification
}

func (r *recorder) Notify(_ context.Context, n domain.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) last() domain.Notification { return r.sent[len(r.sent)-1] }

type fixture struct {
	svc     *Service
	store   *memory.Store
	rec     *recorder
	clock   *time.Time
	artist  *domain.Profile
	venue   *domain.Profile
	booking *domain.BookingRequest
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	artist := &domain.Profile{UserID: 10, Type: domain.ProfileArtist, Name: "Band", IsActive: true}
	venue := &domain.Profile{UserID: 20, Type: domain.ProfileVenue, Name: "Club", IsActive: true}
	require.NoError(t, store.Profiles().Create(ctx, artist))
	require.NoError(t, store.Profiles().Create(ctx, venue))

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	booking := &domain.BookingRequest{
		ArtistProfileID: artist.ID,
		VenueProfileID:  venue.ID,
		Status:          domain.BookingPending,
		RequestedAt:     clock,
	}
	require.NoError(t, store.Bookings().Create(ctx, booking))

	rec := &recorder{}
	svc := New(store, rec, nil, zerolog.Nop())
	f := fixture{svc: svc, store: store, rec: rec, clock: &clock, artist: artist, venue: venue, booking: booking}
	svc.now = func() time.Time { return *f.clock }
	return f
}

func (f fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f fixture) propose(t *testing.T, ttl time.Duration) *domain.ContractProposal {
	t.Helper()

	in := CreateInput{
		BookingRequestID: f.booking.ID,
		Title:            "Summer show",
		Terms: domain.Terms{
			Performers:   []domain.PerformerRole{{Name: "Band", Role: domain.RoleHeadliner}, {Name: "Opener"}},
			RadiusClause: domain.RadiusClause{Enabled: true, Distance: "50", TimeRestriction: "30"},
		},
		Payment: domain.Payment{TotalAmount: "1000"},
	}
	if ttl > 0 {
		exp := f.clock.Add(ttl)
		in.ExpiresAt = &exp
	}

	p, err := f.svc.Create(context.Background(), f.venue.ID, in)
	require.NoError(t, err)
	return p
}

func TestCreate_FromBookingRequest(t *testing.T) {
	f := newFixture(t)
	p := f.propose(t, time.Hour)

	assert.Equal(t, domain.ProposalPending, p.Status)
	assert.Equal(t, f.venue.ID, p.ProposedBy)
	assert.Equal(t, f.artist.ID, p.ProposedTo)
	assert.Equal(t, f.booking.ID, p.BookingRequestID)
	assert.NotNil(t, p.Attachments)

	require.Len(t, p.Terms.Performers, 2)
	assert.Equal(t, "Opener", p.Terms.Performers[0].Name)
	assert.Equal(t, domain.RoleHeadliner, p.Terms.Performers[1].Role)
	assert.Equal(t, 2, p.Terms.Performers[1].PerformanceOrder)
	assert.Contains(t, p.Terms.RadiusClause.Summary, "within 50 miles")

	n := f.rec.last()
	assert.Equal(t, domain.NotifyContractProposed, n.Kind)
	assert.Equal(t, f.artist.UserID, n.RecipientUserID)
	assert.Equal(t, p.ID, *n.ContractProposalID)
}

func TestCreate_DirectToVenueCreatesStubBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	day := domain.NewDate(2025, 8, 1)

	p, err := f.svc.Create(ctx, f.artist.ID, CreateInput{
		VenueID: f.venue.ID,
		Title:   "Direct",
		Terms:   domain.Terms{Timing: domain.Timing{EventDate: &day}},
	})
	require.NoError(t, err)
	assert.Equal(t, f.venue.ID, p.ProposedTo)
	assert.NotEqual(t, f.booking.ID, p.BookingRequestID)

	stub, err := f.store.Bookings().Get(ctx, p.BookingRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, stub.Status)
	assert.Equal(t, "Direct contract proposal: Direct", *stub.Message)
	assert.Equal(t, day, *stub.EventDate)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	past := f.clock.Add(-time.Minute)

	cases := []struct {
		name   string
		acting int64
		in     CreateInput
		want   error
	}{
		{"no target", f.venue.ID, CreateInput{Title: "x"}, domain.ErrValidation},
		{"both targets", f.venue.ID, CreateInput{Title: "x", BookingRequestID: f.booking.ID, VenueID: f.venue.ID}, domain.ErrValidation},
		{"no title", f.venue.ID, CreateInput{BookingRequestID: f.booking.ID}, domain.ErrValidation},
		{"past expiry", f.venue.ID, CreateInput{BookingRequestID: f.booking.ID, Title: "x", ExpiresAt: &past}, domain.ErrValidation},
		{"two headliners", f.venue.ID, CreateInput{BookingRequestID: f.booking.ID, Title: "x", Terms: domain.Terms{
			Performers: []domain.PerformerRole{{Name: "a", Role: domain.RoleHeadliner}, {Name: "b", Role: domain.RoleHeadliner}},
		}}, domain.ErrValidation},
		{"bad attachment", f.venue.ID, CreateInput{BookingRequestID: f.booking.ID, Title: "x", Attachments: []domain.Attachment{{Name: "rider"}}}, domain.ErrValidation},
		{"artist on booking", f.artist.ID, CreateInput{BookingRequestID: f.booking.ID, Title: "x"}, domain.ErrPermission},
		{"venue direct", f.venue.ID, CreateInput{VenueID: f.venue.ID, Title: "x"}, domain.ErrPermission},
		{"direct to artist", f.artist.ID, CreateInput{VenueID: f.artist.ID, Title: "x"}, domain.ErrValidation},
		{"unknown booking", f.venue.ID, CreateInput{BookingRequestID: 999, Title: "x"}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.acting, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.propose(t, 0)

	_, err := f.svc.Accept(ctx, p.ID, f.venue.ID, Audit{})
	assert.ErrorIs(t, err, domain.ErrPermission)

	got, err := f.svc.Accept(ctx, p.ID, f.artist.ID, Audit{IPAddress: "203.0.113.7", UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalAccepted, got.Status)
	assert.NotNil(t, got.AcceptedAt)

	detail, err := f.svc.GetDetail(ctx, p.ID, f.venue.ID)
	require.NoError(t, err)
	require.Len(t, detail.Signatures, 1)
	assert.Equal(t, "203.0.113.7", detail.Signatures[0].IPAddress)
	assert.Equal(t, f.artist.ID, detail.Signatures[0].ProfileID)

	n := f.rec.last()
	assert.Equal(t, domain.NotifyContractAccepted, n.Kind)
	assert.Equal(t, f.venue.UserID, n.RecipientUserID)

	_, err = f.svc.Reject(ctx, p.ID, f.artist.ID, "changed my mind")
	var se domain.StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "accepted", se.Current)
}

func TestReject_RecordsReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.propose(t, 0)

	got, err := f.svc.Reject(ctx, p.ID, f.artist.ID, "  fee too low ")
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalRejected, got.Status)

	detail, err := f.svc.GetDetail(ctx, p.ID, f.artist.ID)
	require.NoError(t, err)
	require.Len(t, detail.Negotiations, 1)
	assert.Equal(t, "Rejection reason: fee too low", detail.Negotiations[0].Message)
	assert.Equal(t, domain.NotifyContractRejected, f.rec.last().Kind)
}

func TestReject_WithoutReasonLeavesNoLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.propose(t, 0)

	_, err := f.svc.Reject(ctx, p.ID, f.artist.ID, "")
	require.NoError(t, err)

	detail, err := f.svc.GetDetail(ctx, p.ID, f.artist.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Negotiations)
}

func TestNegotiate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.propose(t, 0)

	_, err := f.svc.Negotiate(ctx, p.ID, f.artist.ID, "  ", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Negotiate(ctx, p.ID, 999, "hi", nil)
	assert.ErrorIs(t, err, domain.ErrPermission)

	got, err := f.svc.Negotiate(ctx, p.ID, f.artist.ID, "can we do 1200?", []byte(`{"total_amount":"1200"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalNegotiating, got.Status)
	assert.Equal(t, f.venue.UserID, f.rec.last().RecipientUserID)

	f.advance(time.Second)
	_, err = f.svc.Negotiate(ctx, p.ID, f.venue.ID, "1100 final", nil)
	require.NoError(t, err)
	assert.Equal(t, f.artist.UserID, f.rec.last().RecipientUserID)

	detail, err := f.svc.GetDetail(ctx, p.ID, f.artist.ID)
	require.NoError(t, err)
	require.Len(t, detail.Negotiations, 2)
	assert.Equal(t, "can we do 1200?", detail.Negotiations[0].Message)
	assert.JSONEq(t, `{"total_amount":"1200"}`, string(detail.Negotiations[0].ProposedChanges))

	got, err = f.svc.Accept(ctx, p.ID, f.artist.ID, Audit{})
	require.NoError(t, err, "negotiating proposals can still be accepted")
	assert.Equal(t, domain.ProposalAccepted, got.Status)
}

func TestLazyExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.propose(t, time.Hour)
	sent := len(f.rec.sent)

	f.advance(2 * time.Hour)

	_, err := f.svc.Accept(ctx, p.ID, f.artist.ID, Audit{})
	var se domain.StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "expired", se.Current)
	assert.Len(t, f.rec.sent, sent)

	stored, err := f.store.Contracts().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalExpired, stored.Status, "expiry is committed even though the call failed")

	detail, err := f.svc.GetDetail(ctx, p.ID, f.venue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalExpired, detail.Proposal.Status)
}

func TestExpiryOnReadAndSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	due := f.propose(t, time.Hour)
	open := f.propose(t, 48*time.Hour)
	forever := f.propose(t, 0)

	f.advance(2 * time.Hour)

	list, err := f.svc.ListForProfile(ctx, f.artist.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	status := map[int64]domain.ProposalStatus{}
	for _, p := range list {
		status[p.ID] = p.Status
	}
	assert.Equal(t, domain.ProposalExpired, status[due.ID])
	assert.Equal(t, domain.ProposalPending, status[open.ID])
	assert.Equal(t, domain.ProposalPending, status[forever.ID])

	f.advance(72 * time.Hour)
	n, err := f.svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetDetail_PartiesOnly(t *testing.T) {
	f := newFixture(t)
	p := f.propose(t, 0)

	_, err := f.svc.GetDetail(context.Background(), p.ID, 999)
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = f.svc.GetDetail(context.Background(), 12345, f.artist.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
