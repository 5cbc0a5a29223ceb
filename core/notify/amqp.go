package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fusionguard/config"
	"fusionguard/core/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpDialAttempts = 5

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends alerts to a durable direct exchange.
type AMQPPublisher struct {
	conn       io.Closer
	channel    amqpChannel
	exchange   string
	routingKey string
	logger     *utils.Logger
}

func NewAMQPPublisher(cfg config.AMQPConfig, logger *utils.Logger) (*AMQPPublisher, error) {
	conn, err := dialWithRetry(cfg.URL, amqp.Dial, time.Sleep, logger)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	logger.Printf("amqp exchange ready: %s", cfg.Exchange)
	return &AMQPPublisher{conn: conn, channel: ch, exchange: cfg.Exchange, routingKey: cfg.RoutingKey, logger: logger}, nil
}

// dialWithRetry backs off linearly, two seconds per failed attempt.
func dialWithRetry(url string, dial func(string) (*amqp.Connection, error), pause func(time.Duration), logger *utils.Logger) (*amqp.Connection, error) {
	var lastErr error
	for attempt := 1; attempt <= amqpDialAttempts; attempt++ {
		conn, err := dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warnf("amqp dial attempt %d/%d failed: %v", attempt, amqpDialAttempts, err)
		if attempt < amqpDialAttempts {
			pause(time.Duration(attempt) * 2 * time.Second)
		}
	}
	return nil, fmt.Errorf("amqp dial after %d attempts: %w", amqpDialAttempts, lastErr)
}

func (p *AMQPPublisher) Publish(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    alert.At,
	})
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Errorf("amqp channel close: %v", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
