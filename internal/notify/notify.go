// Package notify pushes a run digest to the chat-bot channel via a
// rabbitmq topic exchange once a batch run has been written.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"chat-insights-go/internal/logger"
)

const routingKey = "insights.run.completed"

// Digest is the payload consumers render into the bot message.
type Digest struct {
	RunID    string    `json:"run_id"`
	RunTS    time.Time `json:"run_ts"`
	Chats    int       `json:"chats"`
	Managers int       `json:"managers"`
	Examples int       `json:"examples"`
}

type Publisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *logger.Logger
}

// New dials the broker and declares the durable topic exchange.
func New(url, exchange string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	log := logger.New()
	log.Entry = log.WithField("component", "notify").WithField("exchange", exchange)
	return &Publisher{conn: conn, exchange: exchange, log: log}, nil
}

// PublishDigest sends one persistent JSON message per run.
func (p *Publisher) PublishDigest(ctx context.Context, d Digest) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(d)
	if err != nil {
		return err
	}
	msgID := d.RunID
	if msgID == "" {
		msgID = uuid.NewString()
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, routingKey, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msgID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err == nil {
		p.log.WithField("key", routingKey).Info("digest published")
	}
	return err
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}
