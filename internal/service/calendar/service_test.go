package calendar

import (
	"context"
	"testing"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	calls [][]int64
	days  []domain.Date
}

func (c *recordingCache) InvalidateProfileMonth(_ context.Context, day domain.Date, ids ...int64) error {
	c.days = append(c.days, day)
	c.calls = append(c.calls, ids)
	return nil
}

func setup(t *testing.T) (*Service, *recordingCache, int64, int64) {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	owner := &domain.Profile{UserID: 1, Type: domain.ProfileArtist, Name: "Band", IsActive: true}
	other := &domain.Profile{UserID: 2, Type: domain.ProfileVenue, Name: "Club", IsActive: true}
	require.NoError(t, store.Profiles().Create(ctx, owner))
	require.NoError(t, store.Profiles().Create(ctx, other))

	cache := &recordingCache{}
	return New(store, cache, zerolog.Nop()), cache, owner.ID, other.ID
}

func TestCreate_DefaultsAndInvalidates(t *testing.T) {
	ctx := context.Background()
	svc, cache, owner, _ := setup(t)

	day := domain.NewDate(2025, 7, 12)
	e, err := svc.Create(ctx, owner, CreateInput{Title: "Gig", Date: day})
	require.NoError(t, err)

	assert.Equal(t, domain.EventShow, e.Type)
	assert.Equal(t, domain.EventConfirmed, e.Status)
	assert.NotZero(t, e.ID)
	require.Len(t, cache.calls, 1)
	assert.Equal(t, []int64{owner}, cache.calls[0])
	assert.Equal(t, day, cache.days[0])
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc, cache, owner, _ := setup(t)
	day := domain.NewDate(2025, 7, 12)

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing title", CreateInput{Date: day}},
		{"missing date", CreateInput{Title: "x"}},
		{"bad type", CreateInput{Title: "x", Date: day, Type: "party"}},
		{"bad status", CreateInput{Title: "x", Date: day, Status: "maybe"}},
		{"bad time", CreateInput{Title: "x", Date: day, StartTime: "8pm"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner, tc.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := svc.Create(ctx, 999, CreateInput{Title: "x", Date: day})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, cache.calls)
}

func TestListForProfile_HidesPrivateFromOthers(t *testing.T) {
	ctx := context.Background()
	svc, _, owner, other := setup(t)

	_, err := svc.Create(ctx, owner, CreateInput{Title: "Public", Date: domain.NewDate(2025, 7, 1)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, CreateInput{Title: "Dentist", Date: domain.NewDate(2025, 7, 2), IsPrivate: true})
	require.NoError(t, err)

	from, to := domain.NewDate(2025, 7, 1), domain.NewDate(2025, 7, 31)

	mine, err := svc.ListForProfile(ctx, owner, owner, from, to)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := svc.ListForProfile(ctx, other, owner, from, to)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "Public", theirs[0].Title)

	_, err = svc.ListForProfile(ctx, owner, owner, to, from)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, cache, owner, other := setup(t)

	e, err := svc.Create(ctx, owner, CreateInput{Title: "Gig", Date: domain.NewDate(2025, 7, 12)})
	require.NoError(t, err)

	err = svc.Delete(ctx, other, e.ID)
	assert.ErrorIs(t, err, domain.ErrPermission)

	require.NoError(t, svc.Delete(ctx, owner, e.ID))
	assert.Len(t, cache.calls, 2)

	err = svc.Delete(ctx, owner, e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
