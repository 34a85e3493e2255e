// publisher.go
package rabbit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ecommerce-api/internal/model"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeOrderPlaced     = "order_placed"
	ExchangePaymentVerified = "payment_verified"
)

// Envelope con el formato que consumen los otros micros
type OrderEventMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		OrderID    string  `json:"orderId"`
		UserID     string  `json:"userId"`
		Status     string  `json:"status"`
		GrandTotal float64 `json:"grandTotal"`
		PaidAt     string  `json:"paidAt,omitempty"`
	} `json:"message"`
}

type Publisher struct {
	ch *amqp091.Channel
}

// NewPublisher declara los exchanges fanout de eventos de órdenes.
func NewPublisher(ch *amqp091.Channel) (*Publisher, error) {
	for _, ex := range []string{ExchangeOrderPlaced, ExchangePaymentVerified} {
		if err := ch.ExchangeDeclare(
			ex,
			"fanout",
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			log.Println("❌ Error declarando exchange:", err)
			return nil, err
		}
	}

	log.Println("🐰 Exchanges de eventos de órdenes declarados")
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) publish(ctx context.Context, exchange string, o *model.Order) error {
	var event OrderEventMessage
	event.CorrelationID = uuid.NewString()
	event.Exchange = exchange
	event.RoutingKey = "" // fanout ignora routing key
	event.Message.OrderID = o.OrderID
	event.Message.UserID = o.UserID
	event.Message.Status = o.Status
	event.Message.GrandTotal = o.Pricing.GrandTotal
	if o.PaidAt != nil {
		event.Message.PaidAt = o.PaidAt.Format(time.RFC3339)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx,
		exchange,
		"",
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *model.Order) error {
	return p.publish(ctx, ExchangeOrderPlaced, o)
}

func (p *Publisher) PublishPaymentVerified(ctx context.Context, o *model.Order) error {
	return p.publish(ctx, ExchangePaymentVerified, o)
}
