package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"payouts/constants"
	apperrors "payouts/errors"
	"payouts/models"
	"payouts/services"
	"payouts/services/events"
	"payouts/services/logger"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

// EarningRecorder is the part of the ledger the consumer needs.
type EarningRecorder interface {
	RecordEarning(ctx context.Context, in services.RecordEarningInput) (*models.Earning, bool, error)
}

// Disposition tells the consumer what to do with a delivery.
type Disposition int

const (
	Ack Disposition = iota
	// Reject drops a message that can never succeed.
	Reject
	// Requeue hands the message back to the broker for another attempt.
	Requeue
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Reject:
		return "reject"
	default:
		return "requeue"
	}
}

// HandleOrderCompleted decodes one OrderCompleted payload and records it.
// Redeliveries are acknowledged since the ledger ignores duplicates.
func HandleOrderCompleted(ctx context.Context, recorder EarningRecorder, body []byte, log logger.Logger) Disposition {
	var evt events.OrderCompleted
	if err := json.Unmarshal(body, &evt); err != nil {
		log.Error("order.completed: malformed payload: %v", err)
		return Reject
	}

	in, err := earningInput(evt)
	if err != nil {
		log.Error("order.completed %q: %v", evt.OrderID, err)
		return Reject
	}

	earning, created, err := recorder.RecordEarning(ctx, in)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrValidation):
		log.Error("order.completed %q rejected: %v", evt.OrderID, err)
		return Reject
	default:
		log.Warn("order.completed %q will be retried: %v", evt.OrderID, err)
		return Requeue
	}

	if created {
		log.Info("order.completed %q recorded as earning %d", evt.OrderID, earning.ID)
	} else {
		log.Debug("order.completed %q already recorded as earning %d", evt.OrderID, earning.ID)
	}
	return Ack
}

func earningInput(evt events.OrderCompleted) (services.RecordEarningInput, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(evt.CommissionRate))
	if err != nil {
		return services.RecordEarningInput{}, fmt.Errorf("invalid commission rate %q: %w", evt.CommissionRate, err)
	}
	return services.RecordEarningInput{
		SourceOrderID:  evt.OrderID,
		ProviderID:     evt.ProviderID,
		TotalAmount:    evt.TotalAmount,
		CommissionRate: rate,
	}, nil
}

// OrderCompletedConsumer feeds order.completed deliveries into the ledger with manual acks.
type OrderCompletedConsumer struct {
	channel  *amqp.Channel
	queue    string
	recorder EarningRecorder
	logger   logger.Logger
}

// NewOrderCompletedConsumer declares a durable queue bound to the events exchange.
func NewOrderCompletedConsumer(conn *amqp.Connection, exchange, queue string, recorder EarningRecorder, log logger.Logger) (*OrderCompletedConsumer, error) {
	if queue == "" {
		queue = constants.DefaultOrderCompletedQueue
	}
	if exchange == "" {
		exchange = constants.EventsExchange
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, constants.RoutingOrderCompleted, exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &OrderCompletedConsumer{
		channel:  ch,
		queue:    queue,
		recorder: recorder,
		logger:   log,
	}, nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *OrderCompletedConsumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "payouts-ledger", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.logger.Info("consuming order.completed events from %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("order.completed delivery channel closed")
			}
			c.settle(d, HandleOrderCompleted(ctx, c.recorder, d.Body, c.logger))
		}
	}
}

func (c *OrderCompletedConsumer) settle(d amqp.Delivery, disposition Disposition) {
	var err error
	switch disposition {
	case Ack:
		err = d.Ack(false)
	case Reject:
		err = d.Nack(false, false)
	default:
		err = d.Nack(false, true)
	}
	if err != nil {
		c.logger.Error("failed to %s delivery %d: %v", disposition, d.DeliveryTag, err)
	}
}

func (c *OrderCompletedConsumer) Close() error {
	return c.channel.Close()
}
