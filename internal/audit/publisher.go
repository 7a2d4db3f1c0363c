package audit

import (
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Event types published when an admin acts through the panel.
const (
	EventMessageSent  = "message_sent"
	EventBotToggled   = "bot_toggled"
	EventCustomerSync = "customer_sync"
	EventUserCreated  = "user_created"
	EventUserUpdated  = "user_updated"
	EventUserDeleted  = "user_deleted"
)

// Event is the JSON body published per admin action.
type Event struct {
	Type      string                 `json:"type"`
	UserID    int64                  `json:"user_id,omitempty"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Publisher sends admin-action audit events to RabbitMQ. Publishing is
// optional: with an empty URL the publisher is disabled and every Publish is
// a no-op. Failures are logged and never propagate to the admin action that
// triggered them.
type Publisher struct {
	enabled bool
	channel *amqp091.Channel
	conn    *amqp091.Connection
	queue   string
}

// NewPublisher connects to RabbitMQ when url is set. Connection failures
// disable publishing rather than failing startup; the panel works without it.
func NewPublisher(url, queue, prefix string) *Publisher {
	p := &Publisher{queue: prefix + "_" + queue}

	if url == "" {
		log.Info().Msg("RABBITMQ_URL is not set, audit publishing disabled")
		return p
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		log.Error().Err(err).Msg("Could not connect to RabbitMQ, audit publishing disabled")
		return p
	}
	channel, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("Could not open RabbitMQ channel, audit publishing disabled")
		_ = conn.Close()
		return p
	}

	p.conn = conn
	p.channel = channel
	p.enabled = true
	log.Info().Str("queue", p.queue).Msg("RabbitMQ connection established for audit events")
	return p
}

// Publish sends one audit event. Safe to call on a nil or disabled publisher.
func (p *Publisher) Publish(eventType string, userID int64, detail map[string]interface{}) {
	if p == nil || !p.enabled {
		return
	}

	body, err := json.Marshal(Event{
		Type:      eventType,
		UserID:    userID,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("eventType", eventType).Msg("Failed to marshal audit event")
		return
	}

	// Declare is idempotent; keeps the queue durable across broker restarts.
	if _, err := p.channel.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.Error().Err(err).Str("queue", p.queue).Msg("Could not declare RabbitMQ queue")
		return
	}

	err = p.channel.Publish("", p.queue, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.Error().Err(err).Str("eventType", eventType).Str("queue", p.queue).Msg("Could not publish audit event")
		return
	}
	log.Debug().Str("eventType", eventType).Int64("userID", userID).Str("queue", p.queue).Msg("Published audit event")
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	if p == nil || !p.enabled {
		return
	}
	_ = p.channel.Close()
	_ = p.conn.Close()
}
