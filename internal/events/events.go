package events

import (
	"context"
	"time"
)

const TypeOrderPayment = "order.payment"

// OrderPaymentEvent is emitted after a payment confirmation has been committed.
type OrderPaymentEvent struct {
	Type        string    `json:"type"`
	OrderID     uint      `json:"orderId"`
	Reference   string    `json:"reference"`
	BuyerEmail  string    `json:"buyerEmail"`
	Status      string    `json:"status"`
	AmountMinor int64     `json:"amountMinor"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishOrderPayment(ctx context.Context, ev OrderPaymentEvent) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher is used when no broker is configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishOrderPayment(context.Context, OrderPaymentEvent) error { return nil }

func (noopPublisher) Close() error { return nil }
