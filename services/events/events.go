package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

// OrderCompleted is delivered by the checkout pipeline once an order is paid and completed.
type OrderCompleted struct {
	OrderID        string `json:"orderId"`
	ProviderID     uint   `json:"providerId"`
	TotalAmount    int64  `json:"totalAmount"`
	CommissionRate string `json:"commissionRate"`
}

// WithdrawalEvent is published after a withdrawal request changes state.
type WithdrawalEvent struct {
	RequestID     uint      `json:"requestId"`
	ProviderID    uint      `json:"providerId"`
	Amount        int64     `json:"amount"`
	PaymentMethod string    `json:"paymentMethod"`
	Status        string    `json:"status"`
	ProcessedBy   uint      `json:"processedBy,omitempty"`
	AdminNotes    string    `json:"adminNotes,omitempty"`
	EarningIDs    []uint    `json:"earningIds,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher sends an event to the given routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

type RabbitMQPublisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewRabbitMQPublisher(ch *amqp.Channel, exchange string) (*RabbitMQPublisher, error) {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQPublisher{channel: ch, exchange: exchange}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	bytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         bytes,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Published is one message captured by MemoryPublisher.
type Published struct {
	RoutingKey string
	Body       interface{}
}

// MemoryPublisher records messages instead of sending them.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Published
	Err      error
}

func (p *MemoryPublisher) Publish(_ context.Context, routingKey string, body interface{}) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Published{RoutingKey: routingKey, Body: body})
	return nil
}

func (p *MemoryPublisher) Messages() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.messages...)
}
