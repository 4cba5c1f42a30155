package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type publishFunc func(ctx context.Context, exchange, key string, msg amqp091.Publishing) error

// AMQPPublisher sends records to a durable topic exchange.
type AMQPPublisher struct {
	exchange   string
	routingKey string
	publish    publishFunc
	close      func() error
	logger     *slog.Logger
}

func NewAMQPPublisher(url, exchange, routingKey string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{
		exchange:   exchange,
		routingKey: routingKey,
		publish: func(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
			ch, err := conn.Channel()
			if err != nil {
				return err
			}
			defer func() { _ = ch.Close() }()
			return ch.PublishWithContext(ctx, exchange, key, false, false, msg)
		},
		close:  conn.Close,
		logger: logger,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, record Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     record.ID,
		CorrelationId: record.EventID,
		Timestamp:     time.Now(),
		Body:          body,
	}
	if err := p.publish(ctx, p.exchange, p.routingKey, msg); err != nil {
		return fmt.Errorf("publish %s/%s: %w", p.exchange, p.routingKey, err)
	}
	p.logger.Debug("audit record published", "exchange", p.exchange, "key", p.routingKey, "id", record.ID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}
