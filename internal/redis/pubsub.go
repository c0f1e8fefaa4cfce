package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/redis/go-redis/v9"
)

// NotificationsPubSub broadcasts notifications on a per-user channel so that
// any API instance holding a stream for that user can forward them.
type NotificationsPubSub struct {
	rdb redis.UniversalClient
}

func NewNotificationsPubSub(rdb redis.UniversalClient) *NotificationsPubSub {
	return &NotificationsPubSub{rdb: rdb}
}

func (p *NotificationsPubSub) Publish(ctx context.Context, n domain.Notification) error {
	const op = "redisx.NotificationsPubSub.Publish"

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := p.rdb.Publish(ctx, ChannelUserNotifications(n.RecipientUserID), b).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Subscribe blocks, calling handler for every notification addressed to
// userID, until ctx is done or the subscription closes.
func (p *NotificationsPubSub) Subscribe(
	ctx context.Context,
	userID int64,
	handler func(ctx context.Context, n domain.Notification),
) error {
	sub := p.rdb.Subscribe(ctx, ChannelUserNotifications(userID))
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(64))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var n domain.Notification
			if err := json.Unmarshal([]byte(m.Payload), &n); err == nil && n.RecipientUserID == userID {
				handler(ctx, n)
			}
		}
	}
}
