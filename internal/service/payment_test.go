package service

import (
	"context"
	"errors"
	"testing"

	"storefront-payments/internal/client"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/model"
	"storefront-payments/internal/notify"
	"storefront-payments/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWebhook_RejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.checkout(t, []model.CartItem{bootsItem(2)}, "")

	body := chargeSuccessBody(order.PaymentReference, 5500)
	tampered := append([]byte{}, body...)
	tampered[len(tampered)-3] = 'X'

	tests := []struct {
		name      string
		body      []byte
		signature string
	}{
		{name: "empty signature", body: body, signature: ""},
		{name: "signature of another body", body: body, signature: sign([]byte(`{}`))},
		{name: "tampered body", body: tampered, signature: sign(body)},
		{name: "uppercase hex", body: body, signature: "A" + sign(body)[1:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.payments.HandleWebhook(ctx, tt.signature, tt.body)
			assert.ErrorIs(t, err, ErrInvalidSignature)
			assert.Nil(t, res)
		})
	}

	got, err := f.orders.FindByPaymentReference(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Empty(t, f.notifier.sent)

	recorded, err := f.webhooks.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestHandleWebhook_PaymentReceived(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.checkout(t, []model.CartItem{bootsItem(2)}, "")
	require.Equal(t, int64(5500), order.Total())

	body := chargeSuccessBody(order.PaymentReference, 5500)
	res, err := f.payments.HandleWebhook(ctx, sign(body), body)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeProcessed, res.Outcome)

	got, err := f.orders.FindByPaymentReference(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaymentReceived, got.Status)
	assert.Equal(t, model.PaymentSummary{Last4: "0408", Brand: "visa", ExpMonth: 12, ExpYear: 2030}, got.PaymentSummary)

	require.Len(t, f.notifier.sent, 1)
	sent := f.notifier.sent[0]
	assert.Equal(t, testBuyer, sent.Email)
	assert.Equal(t, notify.TypeOrderComplete, sent.Type)
	payload, ok := sent.Payload.(*dto.OrderDto)
	require.True(t, ok)
	assert.Equal(t, "PaymentReceived", payload.Status)
	assert.True(t, payload.Total.Equal(decimal.RequireFromString("55")))

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, order.PaymentReference, f.publisher.published[0].Reference)

	_, err = f.carts.Get(ctx, order.CartID)
	assert.ErrorIs(t, err, repository.ErrCartNotFound, "paid cart is removed")

	stored, err := f.webhooks.Get(ctx, res.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeProcessed, stored.Outcome)
	assert.Equal(t, string(body), stored.Payload)
}

func TestHandleWebhook_DuplicateDeliveryIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.checkout(t, []model.CartItem{bootsItem(2)}, "")

	body := chargeSuccessBody(order.PaymentReference, 5500)
	_, err := f.payments.HandleWebhook(ctx, sign(body), body)
	require.NoError(t, err)

	// same reference, different amount and card: must not overwrite the first outcome
	again := chargeSuccessBody(order.PaymentReference, 1)
	res, err := f.payments.HandleWebhook(ctx, sign(again), again)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeDuplicate, res.Outcome)

	got, err := f.orders.FindByPaymentReference(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaymentReceived, got.Status)
	assert.Len(t, f.notifier.sent, 1)
	assert.Len(t, f.publisher.published, 1)
}

func TestHandleWebhook_AmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.checkout(t, []model.CartItem{bootsItem(2)}, "")

	logCtx, logs := captureLogs(ctx)
	body := chargeSuccessBody(order.PaymentReference, 5499)
	res, err := f.payments.HandleWebhook(logCtx, sign(body), body)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeMismatch, res.Outcome)

	got, err := f.orders.FindByPaymentReference(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaymentMismatch, got.Status)
	assert.Equal(t, "0408", got.PaymentSummary.Last4)

	assert.Contains(t, logs.String(), `"msg":"payment mismatch"`)
	assert.Contains(t, logs.String(), `"expected":5500`)
	assert.Contains(t, logs.String(), `"received":5499`)

	require.Len(t, f.notifier.sent, 1, "buyer is still told the order is complete")
	_, err = f.carts.Get(ctx, order.CartID)
	assert.NoError(t, err, "cart kept for mismatched payments")
}

func TestHandleWebhook_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.checkout(t, []model.CartItem{bootsItem(1)}, "")

	logCtx, logs := captureLogs(ctx)
	body := chargeSuccessBody("ref-does-not-exist", 3000)
	res, err := f.payments.HandleWebhook(logCtx, sign(body), body)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeOrderNotFound, res.Outcome)

	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), `"severity":"critical"`)
	assert.Contains(t, logs.String(), `"reference":"ref-does-not-exist"`)

	got, err := f.orders.FindByPaymentReference(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Empty(t, f.notifier.sent)

	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "no order is fabricated")
}

func TestHandleWebhook_AcknowledgedWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.checkout(t, []model.CartItem{bootsItem(1)}, "")

	tests := []struct {
		name        string
		body        string
		wantOutcome string
	}{
		{name: "other event", body: `{"event":"transfer.success","data":{"reference":"x"}}`, wantOutcome: model.WebhookOutcomeIgnored},
		{name: "not json", body: `event=charge.success`, wantOutcome: model.WebhookOutcomeInvalidPayload},
		{name: "missing amount", body: `{"event":"charge.success","data":{"reference":"` + order.PaymentReference + `","authorization":{"last4":"1234"}}}`, wantOutcome: model.WebhookOutcomeInvalidPayload},
		{name: "missing authorization", body: `{"event":"charge.success","data":{"reference":"` + order.PaymentReference + `","amount":3000}}`, wantOutcome: model.WebhookOutcomeInvalidPayload},
		{name: "missing reference", body: `{"event":"charge.success","data":{"amount":3000,"authorization":{"last4":"1234"}}}`, wantOutcome: model.WebhookOutcomeInvalidPayload},
		{name: "non numeric expiry", body: `{"event":"charge.success","data":{"reference":"` + order.PaymentReference + `","amount":3000,"authorization":{"last4":"1234","exp_month":"dec"}}}`, wantOutcome: model.WebhookOutcomeInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(tt.body)
			res, err := f.payments.HandleWebhook(ctx, sign(body), body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, res.Outcome)
		})
	}

	got, err := f.orders.FindByPaymentReference(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Empty(t, f.notifier.sent)
}

func TestHandleWebhook_FollowUpFailuresKeepCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.err = notify.ErrNoSession
	f.publisher.err = errors.New("broker down")
	order := f.checkout(t, []model.CartItem{bootsItem(2)}, "")

	body := chargeSuccessBody(order.PaymentReference, 5500)
	res, err := f.payments.HandleWebhook(ctx, sign(body), body)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeProcessed, res.Outcome)

	got, err := f.orders.FindByPaymentReference(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaymentReceived, got.Status)
}

func TestReplayWebhook_AfterOrderAppears(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.checkout(t, []model.CartItem{bootsItem(2)}, "")

	// delivery arrives for a reference whose order is created afterwards
	body := chargeSuccessBody("ref-late", 5500)
	res, err := f.payments.HandleWebhook(ctx, sign(body), body)
	require.NoError(t, err)
	require.Equal(t, model.WebhookOutcomeOrderNotFound, res.Outcome)

	require.NoError(t, f.db.Model(&model.Order{}).
		Where("id = ?", order.ID).
		Update("payment_reference", "ref-late").Error)

	replayed, err := f.payments.ReplayWebhook(ctx, res.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeProcessed, replayed.Outcome)
	assert.Equal(t, res.EventID, replayed.EventID)

	stored, err := f.webhooks.Get(ctx, res.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeProcessed, stored.Outcome)

	notFound, err := f.payments.ListWebhookEvents(ctx, model.WebhookOutcomeOrderNotFound, 10)
	require.NoError(t, err)
	assert.Empty(t, notFound)

	_, err = f.payments.ReplayWebhook(ctx, "missing")
	assert.ErrorIs(t, err, ErrWebhookEventNotFound)
}

func TestCreateOrUpdatePaymentTransaction(t *testing.T) {
	tests := []struct {
		name       string
		items      []model.CartItem
		coupon     string
		wantAmount int64
	}{
		{
			// 2 x 25.00 + 5.00 delivery
			name:       "no coupon",
			items:      []model.CartItem{bootsItem(2)},
			wantAmount: 5500,
		},
		{
			// (5000 - 10%) + 500
			name:       "percent coupon",
			items:      []model.CartItem{bootsItem(2)},
			coupon:     "TEN",
			wantAmount: 5000,
		},
		{
			// (5000 - 500) + 500
			name:       "flat coupon",
			items:      []model.CartItem{bootsItem(2)},
			coupon:     "FIVER",
			wantAmount: 5000,
		},
		{
			// stale cart price is replaced by the catalog price of 10.50
			name:       "repriced from catalog",
			items:      []model.CartItem{{ProductID: 2, ProductName: "Hat", Price: decimal.RequireFromString("1.00"), Quantity: 1}},
			wantAmount: 1550,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)

			cart, err := f.cartSvc.SetCart(ctx, &model.ShoppingCart{Items: tt.items, DeliveryMethodID: uintPtr(1)})
			require.NoError(t, err)
			if tt.coupon != "" {
				_, err = f.cartSvc.ApplyCoupon(ctx, cart.ID, tt.coupon)
				require.NoError(t, err)
			}

			updated, err := f.payments.CreateOrUpdatePaymentTransaction(ctx, cart.ID, testBuyer)
			require.NoError(t, err)
			assert.Equal(t, "ref-1", updated.PaymentReference)
			assert.Equal(t, "https://checkout.paystack.com/ref-1", updated.AuthorizationURL)

			require.Len(t, f.gateway.initRequests, 1)
			req := f.gateway.initRequests[0]
			assert.Equal(t, tt.wantAmount, req.AmountMinor)
			assert.Equal(t, testBuyer, req.Email)
			assert.Equal(t, "ZAR", req.Currency)

			stored, err := f.carts.Get(ctx, cart.ID)
			require.NoError(t, err)
			assert.Equal(t, "ref-1", stored.PaymentReference)
		})
	}
}

func TestCreateOrUpdatePaymentTransaction_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.payments.CreateOrUpdatePaymentTransaction(ctx, "nope", testBuyer)
	assert.ErrorIs(t, err, ErrCartNotFound)

	noDelivery, err := f.cartSvc.SetCart(ctx, &model.ShoppingCart{Items: []model.CartItem{bootsItem(1)}})
	require.NoError(t, err)
	_, err = f.payments.CreateOrUpdatePaymentTransaction(ctx, noDelivery.ID, testBuyer)
	assert.ErrorIs(t, err, ErrDeliveryMethodRequired)
	assert.Empty(t, f.gateway.initRequests)

	cart, err := f.cartSvc.SetCart(ctx, &model.ShoppingCart{Items: []model.CartItem{bootsItem(1)}, DeliveryMethodID: uintPtr(1)})
	require.NoError(t, err)

	_, err = f.payments.CreateOrUpdatePaymentTransaction(ctx, cart.ID, "")
	assert.ErrorIs(t, err, ErrMissingBuyer)

	f.gateway.InitializeFunc = func(context.Context, *client.InitializeTransactionRequest) (*client.InitializeTransactionResponse, error) {
		return nil, &client.APIError{StatusCode: 503, Message: "unavailable"}
	}
	_, err = f.payments.CreateOrUpdatePaymentTransaction(ctx, cart.ID, testBuyer)
	assert.ErrorIs(t, err, ErrGateway)

	stored, err := f.carts.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PaymentReference)

	missing, err := f.cartSvc.SetCart(ctx, &model.ShoppingCart{Items: []model.CartItem{{ProductID: 99, Quantity: 1}}, DeliveryMethodID: uintPtr(1)})
	require.NoError(t, err)
	f.gateway.InitializeFunc = nil
	_, err = f.payments.CreateOrUpdatePaymentTransaction(ctx, missing.ID, testBuyer)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCreateOrUpdatePaymentTransaction_IgnoresClientCoupon(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hundred := decimal.NewFromInt(100)
	cart, err := f.cartSvc.SetCart(ctx, &model.ShoppingCart{
		Items:            []model.CartItem{bootsItem(2)},
		DeliveryMethodID: uintPtr(1),
		Coupon:           &model.AppCoupon{Code: "NOPE", PercentOff: &hundred},
		PaymentReference: "ref-forged",
		AuthorizationURL: "https://evil.example.com",
	})
	require.NoError(t, err)
	assert.Nil(t, cart.Coupon)
	assert.Empty(t, cart.PaymentReference)
	assert.Empty(t, cart.AuthorizationURL)

	_, err = f.payments.CreateOrUpdatePaymentTransaction(ctx, cart.ID, testBuyer)
	require.NoError(t, err)
	require.Len(t, f.gateway.initRequests, 1)
	assert.Equal(t, int64(5500), f.gateway.initRequests[0].AmountMinor)

	order, err := f.orderSvc.CreateOrder(ctx, testBuyer, &dto.CreateOrderRequest{CartID: cart.ID})
	require.NoError(t, err)
	assert.Zero(t, order.Discount)
	assert.Equal(t, int64(5500), order.Total())
}

func TestCreateOrUpdatePaymentTransaction_CouponDeactivated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cart, err := f.cartSvc.SetCart(ctx, &model.ShoppingCart{Items: []model.CartItem{bootsItem(2)}, DeliveryMethodID: uintPtr(1)})
	require.NoError(t, err)
	_, err = f.cartSvc.ApplyCoupon(ctx, cart.ID, "TEN")
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&model.Coupon{}).Where("code = ?", "TEN").Update("active", false).Error)

	_, err = f.payments.CreateOrUpdatePaymentTransaction(ctx, cart.ID, testBuyer)
	assert.ErrorIs(t, err, ErrCouponNotFound)
	assert.Empty(t, f.gateway.initRequests)
}

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.checkout(t, []model.CartItem{bootsItem(2)}, "")

	_, err := f.payments.RefundPayment(ctx, order.PaymentReference)
	assert.ErrorIs(t, err, ErrOrderNotRefundable, "pending orders are not refundable")
	assert.Empty(t, f.gateway.refunds)

	body := chargeSuccessBody(order.PaymentReference, 5500)
	_, err = f.payments.HandleWebhook(ctx, sign(body), body)
	require.NoError(t, err)

	res, err := f.payments.RefundPayment(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusRefunded), res.Status)
	assert.Equal(t, []string{order.PaymentReference}, f.gateway.refunds)

	got, err := f.orders.FindByPaymentReference(ctx, order.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRefunded, got.Status)

	_, err = f.payments.RefundPayment(ctx, "unknown")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
