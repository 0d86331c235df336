package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Client publishes materialization requests and ledger events on a direct
// exchange. Requests are routed to the configured queue, events to
// "<queue>.events".
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

// EventsQueue returns the queue name ledger events are routed to.
func EventsQueue(queueName string) string {
	return queueName + ".events"
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{c.queueName, EventsQueue(c.queueName)} {
		if _, err := c.channel.QueueDeclare(
			q,     // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}

		// routing key is the queue name
		if err := c.channel.QueueBind(q, q, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// PublishMaterializeRequest queues a batch for the worker.
func (c *Client) PublishMaterializeRequest(ctx context.Context, req *MaterializeRequest) error {
	body, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.queueName, body); err != nil {
		return fmt.Errorf("publish materialize request: %w", err)
	}

	slog.InfoContext(ctx, "Published materialize request",
		"request_id", req.RequestID,
		"period", req.Period().String(),
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishLedgerEvent announces a ledger write.
func (c *Client) PublishLedgerEvent(ctx context.Context, ev *LedgerEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, EventsQueue(c.queueName), body); err != nil {
		return fmt.Errorf("publish ledger event: %w", err)
	}

	slog.DebugContext(ctx, "Published ledger event",
		"action", ev.Action,
		"entry_id", ev.EntryID)
	return nil
}

// ConsumeMaterializeRequests blocks, handing each request to handler until ctx
// is cancelled or the channel closes.
func (c *Client) ConsumeMaterializeRequests(ctx context.Context, handler func(context.Context, *MaterializeRequest) error) error {
	return c.consume(ctx, c.queueName, func(d amqp091.Delivery) {
		handleMaterializeDelivery(ctx, d.Body, d, handler)
	})
}

// ConsumeLedgerEvents blocks, handing each ledger event to handler until ctx
// is cancelled or the channel closes.
func (c *Client) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *LedgerEvent) error) error {
	return c.consume(ctx, EventsQueue(c.queueName), func(d amqp091.Delivery) {
		handleLedgerDelivery(ctx, d.Body, d.Redelivered, d, handler)
	})
}

func (c *Client) consume(ctx context.Context, queue string, handle func(amqp091.Delivery)) error {
	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", queue, err)
	}

	slog.InfoContext(ctx, "Started consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			handle(delivery)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// handleMaterializeDelivery never requeues: a batch is not idempotent, so a
// redelivered request would create a second set of entries.
func handleMaterializeDelivery(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, *MaterializeRequest) error) {
	msg, err := MaterializeRequestFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		ack.Nack(false, false)
		return
	}

	slog.InfoContext(ctx, "Processing materialize request",
		"request_id", msg.RequestID,
		"period", msg.Period().String())

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"request_id", msg.RequestID)
		ack.Nack(false, false)
		return
	}

	ack.Ack(false)
	slog.InfoContext(ctx, "Successfully processed materialize request",
		"request_id", msg.RequestID)
}

// handleLedgerDelivery requeues a failed event once. Consumers re-read the
// store, so handling the same event twice is harmless.
func handleLedgerDelivery(ctx context.Context, body []byte, redelivered bool, ack acknowledger, handler func(context.Context, *LedgerEvent) error) {
	ev, err := LedgerEventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		ack.Nack(false, false)
		return
	}

	if err := handler(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to handle ledger event",
			"error", err,
			"entry_id", ev.EntryID,
			"redelivered", redelivered)
		ack.Nack(false, !redelivered)
		return
	}
	ack.Ack(false)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
