package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	redisx "github.com/kirinyoku/gigbook/internal/redis"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
	ttl time.Duration
}

// New returns a cache whose typed helpers store entries for ttl.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: client, ttl: ttl}
}

func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return s, true, nil
}

func (c *Cache) SetString(
	ctx context.Context,
	key string,
	val string,
	ttl time.Duration,
) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T

	s, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return zero, false, err
	}

	return out, true, nil
}

func SetJSON(
	ctx context.Context,
	c *Cache,
	key string,
	val any,
	ttl time.Duration,
) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.SetString(ctx, key, string(b), ttl)
}

func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v2, ok2, err2 := GetJSON[T](ctx, c, key); err2 != nil || ok2 {
			return v2, err2
		}
		v3, err3 := loader(ctx)
		if err3 != nil {
			return nil, err3
		}
		_ = SetJSON(ctx, c, key, v3, ttl)
		return v3, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, errors.New("type assertion failed")
	}

	return v, nil
}

// ProfileMonth returns the cached calendar projection of a profile for one
// month, loading and storing it on a miss.
func (c *Cache) ProfileMonth(
	ctx context.Context,
	profileID int64,
	year, month int,
	load func(ctx context.Context) ([]domain.CalendarEvent, error),
) ([]domain.CalendarEvent, error) {
	return GetOrSetJSON(ctx, c, redisx.KeyProfileCalendar(profileID, year, month), c.ttl, load)
}

// InvalidateProfileMonth drops the projection of every profile for the month
// that contains day.
func (c *Cache) InvalidateProfileMonth(ctx context.Context, day domain.Date, profileIDs ...int64) error {
	keys := make([]string, 0, len(profileIDs))
	for _, id := range profileIDs {
		if id == 0 {
			continue
		}
		keys = append(keys, redisx.KeyProfileCalendar(id, day.Year(), int(day.Month())))
	}

	return c.Del(ctx, keys...)
}
