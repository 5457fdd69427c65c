package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// prefetch bounds unacknowledged deliveries and concurrent handlers.
const prefetch = 10

// DispatchFunc serves one request pattern and returns the reply body
// (the record or an error payload).
type DispatchFunc func(ctx context.Context, pattern string, body []byte) any

// Consumer serves RPC requests from a durable queue and replies to each
// message's ReplyTo queue with its CorrelationId.
type Consumer struct {
	url      string
	queue    string
	dispatch DispatchFunc
	log      *zap.Logger
}

// NewConsumer returns a Consumer for url and queueName.
func NewConsumer(url, queueName string, dispatch DispatchFunc, log *zap.Logger) *Consumer {
	return &Consumer{url: url, queue: queueName, dispatch: dispatch, log: log.With(zap.String("component", "rpc-consumer"))}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialed with backoff.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		var conn *amqp.Connection
		err := retry.Do(
			func() error {
				var err error
				conn, err = amqp.Dial(c.url)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(0),
			retry.Delay(time.Second),
			retry.MaxDelay(30*time.Second),
			retry.OnRetry(func(n uint, err error) {
				c.log.Warn("failed to dial broker", zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)
		if err != nil {
			return ctx.Err()
		}

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("consuming", zap.String("queue", c.queue), zap.Int("prefetch", prefetch))
	return c.serve(ctx, msgs, ch)
}

// publisher is the part of *amqp.Channel used to send replies.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// serve handles up to prefetch deliveries at once, so a slow pattern only
// holds its own slot.  Replies and acks on the channel are serialized.  In
// flight deliveries finish before serve returns.
func (c *Consumer) serve(ctx context.Context, msgs <-chan amqp.Delivery, pub publisher) error {
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(prefetch)
	defer p.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			p.Go(func() { c.handle(ctx, &mu, pub, d) })
		}
	}
}

func (c *Consumer) handle(ctx context.Context, mu *sync.Mutex, pub publisher, d amqp.Delivery) {
	reply, err := c.respond(ctx, d)

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		c.log.Error("handle message failed", zap.String("correlation_id", d.CorrelationId), zap.Error(err))
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	if d.ReplyTo != "" {
		if err := pub.PublishWithContext(ctx, "", d.ReplyTo, false, false, reply); err != nil {
			c.log.Error("reply failed", zap.String("reply_to", d.ReplyTo), zap.Error(err))
			_ = d.Nack(false, true)
			return
		}
	}
	_ = d.Ack(false)
}

// respond runs the delivery's pattern and builds the reply message.
func (c *Consumer) respond(ctx context.Context, d amqp.Delivery) (amqp.Publishing, error) {
	pattern := Pattern(d)
	if pattern == "" {
		return amqp.Publishing{}, errors.New("message has no pattern")
	}
	start := time.Now()
	result := c.dispatch(ctx, pattern, d.Body)
	body, err := json.Marshal(result)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal reply: %w", err)
	}
	c.log.Info("rpc served", zap.String("pattern", pattern), zap.Duration("took", time.Since(start)))
	return amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		Type:          pattern,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}, nil
}

// Pattern returns the request pattern of d: its Type, or a "pattern"
// header when Type is empty.
func Pattern(d amqp.Delivery) string {
	if d.Type != "" {
		return d.Type
	}
	if p, ok := d.Headers["pattern"].(string); ok {
		return p
	}
	return ""
}
