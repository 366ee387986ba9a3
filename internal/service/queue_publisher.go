// Package service holds outbound adapters used by the session layer.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/session-auth/internal/queue"
)

const dialTimeout = 3 * time.Second

// Publisher sends security events to the auth.security queue. Each call
// dials the broker; events are rare enough that a pooled connection is not
// worth the reconnect bookkeeping.
type Publisher struct {
	URL   string
	Queue string
}

// NewPublisher returns a Publisher bound to the default security queue.
func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url, Queue: queue.SecurityQueueName}
}

// Notify publishes ev as a persistent JSON message. Errors are logged and
// returned so the caller can choose to ignore them.
func (p *Publisher) Notify(ctx context.Context, ev queue.SecurityEvent) error {
	msg, err := newPublishing(ev, time.Now())
	if err != nil {
		return err
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Str("queue", p.Queue).Msg("rabbitmq: queue declare failed")
		return err
	}

	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, msg); err != nil {
		log.Warn().Err(err).Str("queue", p.Queue).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

func newPublishing(ev queue.SecurityEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal security event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Type:         ev.Type,
		Body:         body,
	}, nil
}
