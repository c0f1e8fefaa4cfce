package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/gigbook/internal/domain"
	redisx "github.com/kirinyoku/gigbook/internal/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ProfileMonth_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute)

	cached := []domain.CalendarEvent{{ID: 3, ProfileID: 7, Title: "Soundcheck", Date: domain.NewDate(2025, 7, 15)}}
	b, err := json.Marshal(cached)
	require.NoError(t, err)

	mock.ExpectGet(redisx.KeyProfileCalendar(7, 2025, 7)).SetVal(string(b))

	got, err := c.ProfileMonth(context.Background(), 7, 2025, 7, func(context.Context) ([]domain.CalendarEvent, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Soundcheck", got[0].Title)
	assert.Equal(t, "2025-07-15", got[0].Date.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_ProfileMonth_MissLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute)

	key := redisx.KeyProfileCalendar(7, 2025, 7)
	loaded := []domain.CalendarEvent{{ID: 1, ProfileID: 7, Title: "Gig", Date: domain.NewDate(2025, 7, 1)}}
	b, err := json.Marshal(loaded)
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(b), time.Minute).SetVal("OK")

	calls := 0
	got, err := c.ProfileMonth(context.Background(), 7, 2025, 7, func(context.Context) ([]domain.CalendarEvent, error) {
		calls++
		return loaded, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, loaded, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InvalidateProfileMonth(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute)

	day := domain.NewDate(2025, 7, 15)
	mock.ExpectDel(
		redisx.KeyProfileCalendar(1, 2025, 7),
		redisx.KeyProfileCalendar(2, 2025, 7),
	).SetVal(2)

	require.NoError(t, c.InvalidateProfileMonth(context.Background(), day, 1, 0, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
