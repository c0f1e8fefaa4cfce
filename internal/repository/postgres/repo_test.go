package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock
}

func TestProfileRepo_Get(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM profiles\s+WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(int64(2)).
		WillReturnRows(mock.NewRows(profileCols()).
			AddRow(int64(2), int64(20), "venue", "The Roxy", "LA", "", "", true, created, nil))

	p, err := store.Profiles().Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileVenue, p.Type)
	assert.Equal(t, "The Roxy", p.Name)
	assert.True(t, p.IsActive)
	assert.Nil(t, p.DeletedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_GetNotFound(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT .+ FROM profiles`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Profiles().Get(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProfileRepo_SetActiveMissing(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectExec(`UPDATE profiles SET is_active = TRUE`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Profiles().SetActive(context.Background(), 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProfileRepo_CreateConflict(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs(int64(1), "audience", "me", "", "", "", true).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.Profiles().Create(context.Background(), &domain.Profile{
		UserID:   1,
		Type:     domain.ProfileAudience,
		Name:     "me",
		IsActive: true,
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestBookingRepo_TransitionStatus(t *testing.T) {
	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	msg := "fully booked"

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "still pending", affected: 1, want: true},
		{name: "already decided", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			store := NewStore(mock)

			mock.ExpectExec(`UPDATE booking_requests\s+SET status = \$3.+WHERE id = \$1 AND status = \$2`).
				WithArgs(int64(10), "pending", "rejected", &msg, at).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			ok, err := store.Bookings().TransitionStatus(
				context.Background(), 10, domain.BookingPending, domain.BookingRejected, &msg, at,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookingRepo_ListByVenue(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	requested := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	eventDate := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	budget := "500"

	mock.ExpectQuery(`JOIN profiles c ON c.id = b.artist_profile_id`).
		WithArgs(int64(2)).
		WillReturnRows(mock.NewRows(append(bookingCols(), "c.id", "c.type", "c.name", "c.image_url", "c.location", "c.bio")).
			AddRow(
				int64(10), int64(1), int64(2), "pending", requested,
				&eventDate, nil, &budget, nil, nil, nil, nil,
				int64(1), "artist", "The Band", "", "Austin", "indie rock",
			))

	views, err := store.Bookings().ListByVenue(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, domain.BookingPending, v.Status)
	require.NotNil(t, v.EventDate)
	assert.Equal(t, "2025-07-15", v.EventDate.String())
	assert.Equal(t, "500", *v.Budget)
	assert.Equal(t, domain.ProfileArtist, v.Counterpart.Type)
	assert.Equal(t, "The Band", v.Counterpart.Name)
}

func TestContractRepo_GetDecodesDocuments(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	terms := []byte(`{"timing":{},"performers":[{"id":"h","name":"Headliner","role":"Headliner","performance_order":1}],"clauses":{},"radius_clause":{"enabled":true,"distance":"50"}}`)
	payment := []byte(`{"total_amount":"500","includes_taxes":false}`)

	mock.ExpectQuery(`SELECT .+ FROM contract_proposals WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(mock.NewRows(proposalCols()).AddRow(
			int64(4), int64(10), int64(2), int64(1), "Summer show", "",
			terms, payment, []byte(`{}`), []byte(`[]`), "negotiating",
			nil, nil, nil, now, now,
		))

	p, err := store.Contracts().Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalNegotiating, p.Status)
	assert.Equal(t, "500", p.Payment.TotalAmount)
	require.Len(t, p.Terms.Performers, 1)
	assert.True(t, p.Terms.Performers[0].IsHeadliner())
	assert.True(t, p.Terms.RadiusClause.Enabled)
	assert.Empty(t, p.Attachments)
}

func TestContractRepo_TransitionStatus(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)
	at := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE contract_proposals`).
		WithArgs(int64(4), []string{"pending", "negotiating"}, "accepted", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.Contracts().TransitionStatus(
		context.Background(), 4, domain.OpenProposalStatuses, domain.ProposalAccepted, at,
	)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContractRepo_ExpireDue(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)
	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE contract_proposals\s+SET status = 'expired'`).
		WithArgs(now, int64(0)).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(8)))

	ids, err := store.Contracts().ExpireDue(context.Background(), now, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 8}, ids)
}

func TestContractRepo_ListNegotiationsOrdered(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)
	t0 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM contract_negotiations\s+WHERE proposal_id = \$1\s+ORDER BY created_at, id`).
		WithArgs(int64(4)).
		WillReturnRows(mock.NewRows([]string{"id", "proposal_id", "profile_id", "message", "proposed_changes", "created_at"}).
			AddRow(int64(1), int64(4), int64(2), "first", nil, t0).
			AddRow(int64(2), int64(4), int64(1), "Can we do 600?", []byte(`{"total_amount":"600"}`), t0.Add(time.Minute)))

	log, err := store.Contracts().ListNegotiations(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "Can we do 600?", log[1].Message)
	assert.JSONEq(t, `{"total_amount":"600"}`, string(log[1].ProposedChanges))
	assert.Nil(t, log[0].ProposedChanges)
}

func TestNotificationRepo_MarkReadMissing(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)
	at := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(int64(1), int64(9), at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Notifications().MarkRead(context.Background(), 1, 9, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_InTxSerializationFailure(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite})
	mock.ExpectExec(`UPDATE profiles SET is_active = FALSE`).
		WithArgs(int64(1)).
		WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
		return tx.Profiles().DeactivateAll(ctx, 1)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrSerialization))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InTxCommit(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite})
	mock.ExpectExec(`DELETE FROM calendar_events`).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
		return tx.Calendar().Delete(ctx, 3)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func profileCols() []string {
	return []string{"id", "user_id", "type", "name", "location", "bio", "image_url", "is_active", "created_at", "deleted_at"}
}

func bookingCols() []string {
	return []string{
		"id", "artist_profile_id", "venue_profile_id", "status", "requested_at", "event_date",
		"event_time", "budget", "requirements", "message", "decline_message", "responded_at",
	}
}

func proposalCols() []string {
	return []string{
		"id", "booking_request_id", "proposed_by", "proposed_to", "title", "description",
		"terms", "payment", "requirements", "attachments", "status", "expires_at",
		"accepted_at", "rejected_at", "created_at", "updated_at",
	}
}
