package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Handler func(ctx context.Context, msg NotificationMessage) error

// Consumer drains the notification queue, acking handled messages and
// rejecting, without requeue, the ones the handler fails on.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handle   Handler
	log      zerolog.Logger
}

func NewConsumer(url, queue string, prefetch int, handle Handler, log zerolog.Logger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	if prefetch <= 0 {
		prefetch = 50
	}
	return &Consumer{url: url, queue: queue, prefetch: prefetch, handle: handle, log: log}
}

// LogHandler records each delivery. It stands in for an email or push
// gateway.
func LogHandler(log zerolog.Logger) Handler {
	return func(_ context.Context, msg NotificationMessage) error {
		n := msg.Notification
		log.Info().
			Str("message_id", msg.MessageID).
			Int64("notification_id", n.ID).
			Int64("recipient_user_id", n.RecipientUserID).
			Str("kind", string(n.Kind)).
			Str("title", n.Title).
			Msg("notification delivered")
		return nil
	}
}

// Run keeps a consumer attached to the broker, reconnecting with exponential
// backoff, until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("queue consumer: dial failed")
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}

		c.log.Warn().Err(err).Msg("queue consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("queue consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.process(ctx, d.Body); err != nil {
				c.log.Error().Err(err).Str("message_id", d.MessageId).Msg("queue consumer: handle failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) process(ctx context.Context, body []byte) error {
	var msg NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.Notification.RecipientUserID == 0 {
		return errors.New("message has no recipient")
	}
	return c.handle(ctx, msg)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
