// Package queue moves dispatched notifications through a durable RabbitMQ
// queue for out-of-band delivery (email, push) by a background consumer.
package queue

import (
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
)

const DefaultQueue = "notifications.dispatched"

type NotificationMessage struct {
	MessageID    string              `json:"message_id"`
	Notification domain.Notification `json:"notification"`
	PublishedAt  time.Time           `json:"published_at"`
}
