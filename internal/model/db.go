package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "Pending"
	OrderStatusPaymentReceived OrderStatus = "PaymentReceived"
	OrderStatusPaymentMismatch OrderStatus = "PaymentMismatch"
	OrderStatusRefunded        OrderStatus = "Refunded"
)

type Product struct {
	ID              uint            `gorm:"primaryKey" json:"id" yaml:"id"`
	Name            string          `gorm:"size:128;not null" json:"name" yaml:"name"`
	Description     string          `gorm:"size:1024" json:"description" yaml:"description"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price" yaml:"price"` // major units
	PictureURL      string          `gorm:"size:512" json:"pictureUrl" yaml:"pictureUrl"`
	Type            string          `gorm:"size:64;index" json:"type" yaml:"type"`
	Brand           string          `gorm:"size:64;index" json:"brand" yaml:"brand"`
	QuantityInStock int             `gorm:"not null" json:"quantityInStock" yaml:"quantityInStock"`
}

type DeliveryMethod struct {
	ID           uint            `gorm:"primaryKey" json:"id" yaml:"id"`
	ShortName    string          `gorm:"size:64;not null" json:"shortName" yaml:"shortName"`
	DeliveryTime string          `gorm:"size:64" json:"deliveryTime" yaml:"deliveryTime"`
	Description  string          `gorm:"size:256" json:"description" yaml:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price" yaml:"price"` // major units
}

type Coupon struct {
	Code       string           `gorm:"primaryKey;size:64" json:"code" yaml:"code"`
	Name       string           `gorm:"size:128" json:"name" yaml:"name"`
	AmountOff  *decimal.Decimal `gorm:"type:decimal(12,2)" json:"amountOff,omitempty" yaml:"amountOff"`
	PercentOff *decimal.Decimal `gorm:"type:decimal(5,2)" json:"percentOff,omitempty" yaml:"percentOff"`
	Active     bool             `gorm:"not null" json:"active" yaml:"active"`
}

// PaymentSummary holds masked card data reported by the gateway. Written once per order.
type PaymentSummary struct {
	Last4    string `gorm:"size:4"`
	Brand    string `gorm:"size:32"`
	ExpMonth int
	ExpYear  int
}

type ShippingAddress struct {
	Name       string `gorm:"size:128"`
	Line1      string `gorm:"size:256"`
	Line2      string `gorm:"size:256"`
	City       string `gorm:"size:128"`
	State      string `gorm:"size:128"`
	PostalCode string `gorm:"size:32"`
	Country    string `gorm:"size:64"`
}

// Order amounts are stored in minor currency units.
type Order struct {
	ID               uint        `gorm:"primaryKey"`
	BuyerEmail       string      `gorm:"size:256;index;not null"`
	CartID           string      `gorm:"size:64"`
	PaymentReference string      `gorm:"size:128;uniqueIndex;not null"`
	Status           OrderStatus `gorm:"size:32;index;not null"`
	Currency         string      `gorm:"size:8;not null"`

	ShippingAddress    ShippingAddress `gorm:"embedded;embeddedPrefix:ship_"`
	DeliveryMethodID   uint
	DeliveryMethodName string `gorm:"size:64"`
	DeliveryPrice      int64  `gorm:"not null"`
	Discount           int64  `gorm:"not null"`

	PaymentSummary PaymentSummary `gorm:"embedded;embeddedPrefix:payment_"`

	Items     []OrderItem `gorm:"foreignKey:OrderID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID          uint   `gorm:"primaryKey"`
	OrderID     uint   `gorm:"index;not null"`
	ProductID   uint   `gorm:"index;not null"`
	ProductName string `gorm:"size:128"`
	UnitPrice   int64  `gorm:"not null"` // minor units
	Quantity    int    `gorm:"not null"`
}

// Subtotal sums the order lines in minor units.
func (o *Order) Subtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// Total recomputes what the buyer owes from the order's own lines, discount and delivery price.
func (o *Order) Total() int64 {
	return o.Subtotal() - o.Discount + o.DeliveryPrice
}

const (
	WebhookOutcomeProcessed      = "processed"
	WebhookOutcomeMismatch       = "mismatch"
	WebhookOutcomeDuplicate      = "duplicate"
	WebhookOutcomeIgnored        = "ignored"
	WebhookOutcomeInvalidPayload = "invalid_payload"
	WebhookOutcomeOrderNotFound  = "order_not_found"
)

// WebhookEvent records every verified gateway delivery, keyed by the sha256 of its raw body.
type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:64;not null"`
	EventType   string `gorm:"size:64;index"`
	Reference   string `gorm:"size:128;index"`
	Outcome     string `gorm:"size:32;index"`
	Payload     string `gorm:"type:text"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
