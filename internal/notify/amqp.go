// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange notifications are published to.
const ExchangeName = "notifications"

// publisher is the subset of *amqp.Channel used by AMQPSender.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSender publishes messages as JSON to a topic exchange, routed by kind.
// Consumers (a mail relay, a CRM bridge) are external.
type AMQPSender struct {
	conn    *amqp.Connection
	mu      sync.Mutex
	channel publisher
}

// NewAMQPSender dials url and declares the notifications exchange.
func NewAMQPSender(url string) (*AMQPSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declaring exchange: %w", err)
	}
	return &AMQPSender{conn: conn, channel: ch}, nil
}

// Send implements Sender.
func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.channel.PublishWithContext(ctx, ExchangeName, msg.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.CreatedAt,
		Type:         msg.Kind,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", msg.Kind, err)
	}
	return nil
}

// Close closes the channel and connection.
func (s *AMQPSender) Close() error {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
