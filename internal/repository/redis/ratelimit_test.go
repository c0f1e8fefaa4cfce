package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	redisx "github.com/kirinyoku/gigbook/internal/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter_Allow(t *testing.T) {
	tests := []struct {
		name        string
		result      []any
		wantAllowed bool
		wantCount   int64
		wantRetry   time.Duration
	}{
		{name: "under limit", result: []any{int64(1), int64(2), int64(0)}, wantAllowed: true, wantCount: 2},
		{
			name:        "over limit",
			result:      []any{int64(0), int64(6), int64(1500)},
			wantAllowed: false,
			wantCount:   6,
			wantRetry:   1500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			l := NewSlidingWindowLimiter(db, "booking", 5, time.Minute)
			now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
			l.now = func() time.Time { return now }

			sha := redis.NewScript(luaSlidingWindow).Hash()
			key := redisx.KeyRateLimit("booking", "42")

			mock.CustomMatch(func(expected, actual []any) error {
				// evalsha <sha> <numkeys> <key> <now> <window> <limit> <member>
				if fmt.Sprint(actual[1]) != sha || fmt.Sprint(actual[3]) != key {
					return fmt.Errorf("unexpected call %v", actual)
				}
				if fmt.Sprint(actual[4]) != fmt.Sprint(now.UnixMilli()) {
					return fmt.Errorf("unexpected now %v", actual[4])
				}
				return nil
			}).ExpectEvalSha(sha, []string{key}, int64(0), int64(0), 0, "").SetVal(tt.result)

			allowed, count, retry, err := l.Allow(context.Background(), "42")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, allowed)
			assert.Equal(t, tt.wantCount, count)
			assert.Equal(t, tt.wantRetry, retry)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
