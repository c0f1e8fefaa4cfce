package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/gigbook/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher writes persistent JSON messages to a durable queue through the
// default exchange. The broker connection is dialed lazily and redialed after
// it closes.
type Publisher struct {
	url   string
	queue string
	log   zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewPublisher(url, queue string, log zerolog.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, queue: queue, log: log}
}

func (p *Publisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

// Publish enqueues n. Failures are logged and returned so the caller may
// ignore them.
func (p *Publisher) Publish(ctx context.Context, n domain.Notification) error {
	const op = "queue.Publisher.Publish"

	msg, err := encode(n, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	conn, err := p.connection()
	if err != nil {
		p.log.Warn().Err(err).Str("op", op).Msg("rabbitmq dial failed")
		return fmt.Errorf("%s:%w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn().Err(err).Str("op", op).Msg("rabbitmq channel open failed")
		return fmt.Errorf("%s:%w", op, err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: queue declare: %w", op, err)
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.log.Warn().Err(err).Str("op", op).Int64("notification_id", n.ID).Msg("rabbitmq publish failed")
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

func encode(n domain.Notification, at time.Time) (amqp.Publishing, error) {
	id := uuid.NewString()
	body, err := json.Marshal(NotificationMessage{
		MessageID:    id,
		Notification: n,
		PublishedAt:  at,
	})
	if err != nil {
		return amqp.Publishing{}, err
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    at,
		Type:         string(n.Kind),
		Body:         body,
	}, nil
}
