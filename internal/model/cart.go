package model

import "github.com/shopspring/decimal"

// ShoppingCart lives in Redis, keyed by its opaque id.
type ShoppingCart struct {
	ID               string     `json:"id"`
	Items            []CartItem `json:"items"`
	DeliveryMethodID *uint      `json:"deliveryMethodId,omitempty"`
	PaymentReference string     `json:"paymentReference,omitempty"`
	AuthorizationURL string     `json:"authorizationUrl,omitempty"`
	Coupon           *AppCoupon `json:"coupon,omitempty"`
}

type CartItem struct {
	ProductID   uint            `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	PictureURL  string          `json:"pictureUrl,omitempty"`
}

// AppCoupon is the coupon snapshot carried on a cart.
type AppCoupon struct {
	Code       string           `json:"code"`
	Name       string           `json:"name"`
	AmountOff  *decimal.Decimal `json:"amountOff,omitempty"`
	PercentOff *decimal.Decimal `json:"percentOff,omitempty"`
}

func NewAppCoupon(c *Coupon) *AppCoupon {
	return &AppCoupon{
		Code:       c.Code,
		Name:       c.Name,
		AmountOff:  c.AmountOff,
		PercentOff: c.PercentOff,
	}
}

// SameContents reports whether both carts hold the same lines and delivery method.
// Prices are ignored since they are re-read from the catalog.
func (c *ShoppingCart) SameContents(other *ShoppingCart) bool {
	if (c.DeliveryMethodID == nil) != (other.DeliveryMethodID == nil) {
		return false
	}
	if c.DeliveryMethodID != nil && *c.DeliveryMethodID != *other.DeliveryMethodID {
		return false
	}
	if len(c.Items) != len(other.Items) {
		return false
	}
	for i := range c.Items {
		if c.Items[i].ProductID != other.Items[i].ProductID || c.Items[i].Quantity != other.Items[i].Quantity {
			return false
		}
	}
	return true
}

func (c *ShoppingCart) ProductIDs() []uint {
	ids := make([]uint, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Subtotal in minor units using the prices currently on the cart.
func (c *ShoppingCart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += ToMinor(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
