package service

import (
	"errors"

	"storefront-payments/internal/client"
	"storefront-payments/internal/repository"
)

var (
	ErrInvalidSignature       = client.ErrInvalidSignature
	ErrCartNotFound           = repository.ErrCartNotFound
	ErrInsufficientStock      = repository.ErrInsufficientStock
	ErrEmptyCart              = errors.New("cart has no items")
	ErrProductNotFound        = errors.New("product not found")
	ErrDeliveryMethodNotFound = errors.New("delivery method not found")
	ErrDeliveryMethodRequired = errors.New("cart has no delivery method")
	ErrDeliveryMethodMismatch = errors.New("delivery method differs from the one on the cart")
	ErrPaymentNotInitialized  = errors.New("payment has not been initialized for this cart")
	ErrMissingBuyer           = errors.New("buyer email is required")
	ErrCouponNotFound         = errors.New("coupon not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderNotRefundable     = errors.New("order is not in a refundable state")
	ErrWebhookEventNotFound   = errors.New("webhook event not found")
	ErrGateway                = errors.New("payment gateway error")
)
