package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestDispatcher_Notify(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	broadcast := new(mockPublisher)
	queue := new(mockPublisher)

	stored := mock.MatchedBy(func(n domain.Notification) bool {
		return n.ID != 0 && n.CreatedAt.Equal(now) && n.Kind == domain.NotifyBookingConfirmed
	})
	broadcast.On("Publish", ctx, stored).Return(nil).Once()
	queue.On("Publish", ctx, stored).Return(errors.New("broker down")).Once()

	d := NewDispatcher(store.Notifications(), broadcast, nil, queue)
	d.now = func() time.Time { return now }

	err := d.Notify(ctx, domain.Notification{
		RecipientUserID:    9,
		RecipientProfileID: 1,
		Kind:               domain.NotifyBookingConfirmed,
		Title:              "Booking confirmed",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	broadcast.AssertExpectations(t)
	queue.AssertExpectations(t)

	inbox, err := store.Notifications().ListForUser(ctx, 9, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1, "persisted even though the queue failed")
}

func TestDispatcher_NotifyRequiresRecipient(t *testing.T) {
	d := NewDispatcher(memory.NewStore().Notifications())
	err := d.Notify(context.Background(), domain.Notification{Kind: domain.NotifyBookingRequested})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDispatcher_Retract(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	d := NewDispatcher(store.Notifications())

	bookingID := int64(10)
	other := int64(11)
	require.NoError(t, d.Notify(ctx, domain.Notification{RecipientUserID: 2, Kind: domain.NotifyBookingRequested, BookingRequestID: &bookingID}))
	require.NoError(t, d.Notify(ctx, domain.Notification{RecipientUserID: 2, Kind: domain.NotifyBookingRequested, BookingRequestID: &other}))

	require.NoError(t, d.Retract(ctx, domain.NotifyBookingRequested, 2, bookingID))

	inbox, err := store.Notifications().ListForUser(ctx, 2, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, other, *inbox[0].BookingRequestID)
}
