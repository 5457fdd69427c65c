package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/queue"
)

// AMQPPublisher publishes refresh events to a durable queue.  It dials once
// per publish.
type AMQPPublisher struct {
	url   string
	queue string
	log   *zap.Logger
}

// NewAMQPPublisher returns a publisher for the given broker URL and queue.
func NewAMQPPublisher(url, queueName string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queueName, log: log.With(zap.String("component", "publisher"))}
}

// PublishListingsRefreshed publishes ev.  Errors are logged and returned so
// the caller can choose to ignore them.  Messages are marked persistent.
func (p *AMQPPublisher) PublishListingsRefreshed(ctx context.Context, ev queue.ListingsRefreshedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		p.log.Warn("queue declare failed", zap.String("queue", p.queue), zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.EventID,
		Type:         "listings.refreshed",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.log.Warn("publish failed", zap.Error(err))
		return err
	}
	p.log.Info("refresh event published", zap.String("event_id", ev.EventID), zap.String("status", ev.Status))
	return nil
}
