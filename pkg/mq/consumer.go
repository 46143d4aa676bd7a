package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerOptions describes the queue topology a consumer declares.
type ConsumerOptions struct {
	Exchanges []string
	Queue     string
	Keys      []string
	Prefetch  int
	// DLX routes rejected deliveries to DLXQueue when set.
	DLX      string
	DLXQueue string
}

type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewConsumer(url string, opts ConsumerOptions) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Consumer{conn: conn, ch: ch}
	if err := c.declare(opts); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) declare(opts ConsumerOptions) error {
	args := amqp.Table{}
	if opts.DLX != "" {
		args["x-dead-letter-exchange"] = opts.DLX
	}
	q, err := c.ch.QueueDeclare(opts.Queue, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, ex := range opts.Exchanges {
		if err := c.ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
		for _, rk := range opts.Keys {
			if err := c.ch.QueueBind(q.Name, rk, ex, false, nil); err != nil {
				return fmt.Errorf("bind %s on %s: %w", rk, ex, err)
			}
		}
	}
	if opts.DLX != "" {
		if err := c.ch.ExchangeDeclare(opts.DLX, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dlx: %w", err)
		}
		if _, err := c.ch.QueueDeclare(opts.DLXQueue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dlq: %w", err)
		}
		if err := c.ch.QueueBind(opts.DLXQueue, "#", opts.DLX, false, nil); err != nil {
			return fmt.Errorf("bind dlq: %w", err)
		}
	}
	prefetch := opts.Prefetch
	if prefetch <= 0 {
		prefetch = 8
	}
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	c.queue = q.Name
	return nil
}

func (c *Consumer) Deliveries(ctx context.Context, tag string) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.queue, tag, false, false, false, false, nil)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
