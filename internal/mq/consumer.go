package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Bindings []string
	Prefetch int
	// DeadLetterExchange, when set, receives messages nacked without requeue.
	DeadLetterExchange string
	Tag                string
}

type Consumer struct {
	cfg  ConsumerConfig
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects, declares the topology and applies the prefetch limit.
func Dial(cfg ConsumerConfig) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Consumer{cfg: cfg, conn: conn, ch: ch}
	if err := c.declare(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) declare() error {
	if err := c.ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	args := amqp.Table{}
	if dlx := c.cfg.DeadLetterExchange; dlx != "" {
		if err := c.ch.ExchangeDeclare(dlx, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dlx: %w", err)
		}
		dlq := c.cfg.Queue + ".dlq"
		if _, err := c.ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dlq: %w", err)
		}
		if err := c.ch.QueueBind(dlq, "#", dlx, false, nil); err != nil {
			return fmt.Errorf("bind dlq: %w", err)
		}
		args["x-dead-letter-exchange"] = dlx
	}

	q, err := c.ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range c.cfg.Bindings {
		if err := c.ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 8
	}
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
}

// NotifyClose reports when the underlying connection goes away.
func (c *Consumer) NotifyClose() <-chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
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
