package dto

import (
	"time"

	"storefront-payments/internal/model"

	"github.com/shopspring/decimal"
)

type AddressDto struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type CreateOrderRequest struct {
	CartID           string     `json:"cartId"`
	DeliveryMethodID uint       `json:"deliveryMethodId"`
	ShippingAddress  AddressDto `json:"shippingAddress"`
}

// UpdateCartRequest carries the buyer-editable part of a cart.
type UpdateCartRequest struct {
	ID               string           `json:"id"`
	Items            []model.CartItem `json:"items"`
	DeliveryMethodID *uint            `json:"deliveryMethodId"`
}

func (r *UpdateCartRequest) ToModel() *model.ShoppingCart {
	return &model.ShoppingCart{
		ID:               r.ID,
		Items:            r.Items,
		DeliveryMethodID: r.DeliveryMethodID,
	}
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type PaymentSummaryDto struct {
	Last4    string `json:"last4"`
	Brand    string `json:"brand"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
}

type OrderItemDto struct {
	ProductID   uint            `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// OrderDto amounts are in major currency units.
type OrderDto struct {
	ID               uint               `json:"id"`
	OrderDate        time.Time          `json:"orderDate"`
	BuyerEmail       string             `json:"buyerEmail"`
	ShippingAddress  AddressDto         `json:"shippingAddress"`
	DeliveryMethod   string             `json:"deliveryMethod"`
	ShippingPrice    decimal.Decimal    `json:"shippingPrice"`
	PaymentSummary   *PaymentSummaryDto `json:"paymentSummary,omitempty"`
	OrderItems       []OrderItemDto     `json:"orderItems"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	Discount         decimal.Decimal    `json:"discount"`
	Total            decimal.Decimal    `json:"total"`
	Currency         string             `json:"currency"`
	Status           string             `json:"status"`
	PaymentReference string             `json:"paymentReference"`
}

type RefundResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func AddressFromModel(a model.ShippingAddress) AddressDto {
	return AddressDto{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func (a AddressDto) ToModel() model.ShippingAddress {
	return model.ShippingAddress{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func FromOrder(o *model.Order) *OrderDto {
	items := make([]OrderItemDto, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDto{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       model.FromMinor(item.UnitPrice),
			Quantity:    item.Quantity,
		})
	}

	out := &OrderDto{
		ID:               o.ID,
		OrderDate:        o.CreatedAt,
		BuyerEmail:       o.BuyerEmail,
		ShippingAddress:  AddressFromModel(o.ShippingAddress),
		DeliveryMethod:   o.DeliveryMethodName,
		ShippingPrice:    model.FromMinor(o.DeliveryPrice),
		OrderItems:       items,
		Subtotal:         model.FromMinor(o.Subtotal()),
		Discount:         model.FromMinor(o.Discount),
		Total:            model.FromMinor(o.Total()),
		Currency:         o.Currency,
		Status:           string(o.Status),
		PaymentReference: o.PaymentReference,
	}
	if o.PaymentSummary.Last4 != "" {
		out.PaymentSummary = &PaymentSummaryDto{
			Last4:    o.PaymentSummary.Last4,
			Brand:    o.PaymentSummary.Brand,
			ExpMonth: o.PaymentSummary.ExpMonth,
			ExpYear:  o.PaymentSummary.ExpYear,
		}
	}
	return out
}

func FromOrders(orders []*model.Order) []*OrderDto {
	out := make([]*OrderDto, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrder(o))
	}
	return out
}
