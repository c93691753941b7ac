// Package events publishes domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"wyse/internal/logger"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Exchange is the durable topic exchange every event is published to.
const Exchange = "wyse.events"

// Routing keys
const (
	KeyUserSignedUp       = "user.signed_up"
	KeyAccountLinked      = "account.linked"
	KeyTransactionsSynced = "transactions.synced"
)

type UserSignedUp struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

type AccountLinked struct {
	UserID           uuid.UUID `json:"user_id"`
	AccountID        string    `json:"account_id"`
	Institution      string    `json:"institution"`
	TransactionCount int       `json:"transaction_count"`
	Timestamp        time.Time `json:"timestamp"`
}

type TransactionsSynced struct {
	UserID    uuid.UUID       `json:"user_id"`
	Accounts  []AccountResult `json:"accounts"`
	Timestamp time.Time       `json:"timestamp"`
}

type AccountResult struct {
	AccountID string `json:"account_id"`
	Fetched   int    `json:"fetched"`
	Upserted  int64  `json:"upserted"`
	Error     string `json:"error,omitempty"`
}

// Publisher is implemented by anything that can publish events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
	Close()
}

// EventProducer holds the RabbitMQ connection and channel for publishing.
type EventProducer struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// FallbackPublisher logs and drops events. It is used when RabbitMQ is
// unreachable at startup.
type FallbackPublisher struct{}

func (FallbackPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	logger.Log.Debug("event publish skipped", zap.String("routing_key", routingKey))
	return nil
}

func (FallbackPublisher) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials RabbitMQ and declares the events exchange.
func NewEventProducer(amqpURL string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	p := &EventProducer{conn: conn, channel: ch, exchange: Exchange}
	if err := p.declare(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewPublisher returns a RabbitMQ producer, or the fallback when url is empty
// or the broker cannot be reached.
func NewPublisher(amqpURL string) Publisher {
	if amqpURL == "" {
		logger.Log.Info("RABBITMQ_URL not set; events will not be published")
		return FallbackPublisher{}
	}
	p, err := NewEventProducer(amqpURL)
	if err != nil {
		logger.Log.Warn("rabbitmq producer unavailable; using fallback", zap.Error(err))
		return FallbackPublisher{}
	}
	logger.Log.Info("RabbitMQ producer connected", zap.String("exchange", Exchange))
	return p
}

func (p *EventProducer) declare() error {
	return p.channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	)
}

// Publish sends body as JSON. A failed publish reopens the channel once and
// retries.
func (p *EventProducer) Publish(ctx context.Context, routingKey string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         jsonBody,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}

	logger.Log.Warn("publish failed; reopening channel",
		zap.String("routing_key", routingKey),
		zap.Error(err),
	)
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return chErr
	}
	p.channel = ch
	if err := p.declare(); err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

// Close closes the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
