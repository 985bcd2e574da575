package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront-payments/internal/client"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/events"
	"storefront-payments/internal/logging"
	"storefront-payments/internal/metrics"
	"storefront-payments/internal/model"
	"storefront-payments/internal/notify"
	"storefront-payments/internal/repository"

	"gorm.io/gorm"
)

type PaymentService interface {
	CreateOrUpdatePaymentTransaction(ctx context.Context, cartID, buyerEmail string) (*model.ShoppingCart, error)
	DeliveryMethods(ctx context.Context) ([]*model.DeliveryMethod, error)
	// HandleWebhook verifies and reconciles one gateway delivery. It returns ErrInvalidSignature
	// for forged bodies and a non-nil error only when the gateway should retry.
	HandleWebhook(ctx context.Context, signature string, body []byte) (*WebhookResult, error)
	// ReplayWebhook reconciles a previously verified delivery again.
	ReplayWebhook(ctx context.Context, eventID string) (*WebhookResult, error)
	ListWebhookEvents(ctx context.Context, outcome string, limit int) ([]*model.WebhookEvent, error)
	RefundPayment(ctx context.Context, reference string) (*dto.RefundResponse, error)
}

type WebhookResult struct {
	EventID   string
	EventType string
	Reference string
	Outcome   string
	Order     *model.Order
}

type Notifier interface {
	Notify(email, msgType string, payload interface{}) error
}

type paymentServiceImpl struct {
	paystackClient     client.PaystackClient
	currency           string
	cartRepo           repository.CartRepository
	productRepo        repository.ProductRepository
	deliveryMethodRepo repository.DeliveryMethodRepository
	couponRepo         repository.CouponRepository
	orderRepo          repository.OrderRepository
	webhookEventRepo   repository.WebhookEventRepository
	notifier           Notifier
	publisher          events.Publisher
	logger             *slog.Logger
}

func NewPaymentService(
	paystackClient client.PaystackClient,
	currency string,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	deliveryMethodRepo repository.DeliveryMethodRepository,
	couponRepo repository.CouponRepository,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	notifier Notifier,
	publisher events.Publisher,
) PaymentService {
	return &paymentServiceImpl{
		paystackClient:     paystackClient,
		currency:           currency,
		cartRepo:           cartRepo,
		productRepo:        productRepo,
		deliveryMethodRepo: deliveryMethodRepo,
		couponRepo:         couponRepo,
		orderRepo:          orderRepo,
		webhookEventRepo:   webhookEventRepo,
		notifier:           notifier,
		publisher:          publisher,
		logger:             logging.New("payment"),
	}
}

func (s *paymentServiceImpl) CreateOrUpdatePaymentTransaction(ctx context.Context, cartID, buyerEmail string) (*model.ShoppingCart, error) {
	if buyerEmail == "" {
		return nil, ErrMissingBuyer
	}

	cart, err := s.cartRepo.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart %s: %w", cartID, err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	shippingPrice, err := s.shippingPrice(ctx, cart)
	if err != nil {
		return nil, err
	}

	if err := s.repriceItems(ctx, cart); err != nil {
		return nil, err
	}
	if err := s.refreshCoupon(ctx, cart); err != nil {
		return nil, err
	}

	amount := model.ApplyDiscount(cart.Coupon, cart.Subtotal()) + shippingPrice

	resp, err := s.paystackClient.InitializeTransaction(ctx, &client.InitializeTransactionRequest{
		Email:       buyerEmail,
		AmountMinor: amount,
		Currency:    s.currency,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize transaction: %w: %w", ErrGateway, err)
	}

	cart.PaymentReference = resp.Reference
	cart.AuthorizationURL = resp.AuthorizationURL
	if err := s.cartRepo.Set(ctx, cart); err != nil {
		return nil, fmt.Errorf("set cart: %w", err)
	}

	logging.FromCtx(ctx, s.logger).Info("payment transaction initialized",
		"cart_id", cart.ID,
		"reference", resp.Reference,
		"amount", amount,
	)
	return cart, nil
}

func (s *paymentServiceImpl) shippingPrice(ctx context.Context, cart *model.ShoppingCart) (int64, error) {
	if cart.DeliveryMethodID == nil {
		return 0, ErrDeliveryMethodRequired
	}
	method, err := s.deliveryMethodRepo.Get(ctx, *cart.DeliveryMethodID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrDeliveryMethodNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get delivery method: %w", err)
	}
	return model.ToMinor(method.Price), nil
}

// repriceItems replaces cart prices with current catalog prices.
func (s *paymentServiceImpl) repriceItems(ctx context.Context, cart *model.ShoppingCart) error {
	products, err := s.productRepo.FindMany(ctx, cart.ProductIDs())
	if err != nil {
		return fmt.Errorf("find products: %w", err)
	}

	productMap := make(map[uint]*model.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	for i := range cart.Items {
		product, ok := productMap[cart.Items[i].ProductID]
		if !ok {
			return fmt.Errorf("product %d: %w", cart.Items[i].ProductID, ErrProductNotFound)
		}
		if !cart.Items[i].Price.Equal(product.Price) {
			cart.Items[i].Price = product.Price
		}
	}
	return nil
}

// refreshCoupon replaces the cart's coupon with the stored one, failing when it is no longer active.
func (s *paymentServiceImpl) refreshCoupon(ctx context.Context, cart *model.ShoppingCart) error {
	if cart.Coupon == nil {
		return nil
	}
	coupon, err := s.couponRepo.FindActiveByCode(ctx, cart.Coupon.Code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("coupon %q: %w", cart.Coupon.Code, ErrCouponNotFound)
	}
	if err != nil {
		return fmt.Errorf("find coupon: %w", err)
	}
	cart.Coupon = model.NewAppCoupon(coupon)
	return nil
}

func (s *paymentServiceImpl) DeliveryMethods(ctx context.Context) ([]*model.DeliveryMethod, error) {
	return s.deliveryMethodRepo.List(ctx)
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, signature string, body []byte) (*WebhookResult, error) {
	log := logging.FromCtx(ctx, s.logger)

	if err := s.paystackClient.VerifyWebhookSignature(body, signature); err != nil {
		log.Warn("paystack webhook signature verification failed")
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		return nil, ErrInvalidSignature
	}

	return s.reconcile(ctx, body)
}

func (s *paymentServiceImpl) ReplayWebhook(ctx context.Context, eventID string) (*WebhookResult, error) {
	stored, err := s.webhookEventRepo.Get(ctx, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWebhookEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event: %w", err)
	}

	// stored payloads were verified on arrival
	return s.reconcile(ctx, []byte(stored.Payload))
}

func (s *paymentServiceImpl) ListWebhookEvents(ctx context.Context, outcome string, limit int) ([]*model.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.webhookEventRepo.List(ctx, outcome, limit)
}

func eventID(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// reconcile applies a verified body to the matching order. Only storage failures are returned.
func (s *paymentServiceImpl) reconcile(ctx context.Context, body []byte) (*WebhookResult, error) {
	log := logging.FromCtx(ctx, s.logger)
	result := &WebhookResult{EventID: eventID(body)}

	var event model.PaystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("paystack webhook body is not valid JSON", "error", err)
		return s.finish(ctx, result, model.WebhookOutcomeInvalidPayload, body), nil
	}
	result.EventType = event.Event

	if event.Event != model.EventChargeSuccess {
		log.Info("paystack webhook event ignored", "event", event.Event)
		return s.finish(ctx, result, model.WebhookOutcomeIgnored, body), nil
	}

	charge, err := model.ParseChargeData(event.Data)
	if err != nil {
		log.Error("paystack 'charge.success' event is missing required data", "error", err)
		return s.finish(ctx, result, model.WebhookOutcomeInvalidPayload, body), nil
	}
	result.Reference = charge.Reference
	log = log.With("reference", charge.Reference)

	summary, err := charge.Authorization.Summary()
	if err != nil {
		log.Error("paystack authorization data is malformed", "error", err)
		return s.finish(ctx, result, model.WebhookOutcomeInvalidPayload, body), nil
	}

	order, err := s.orderRepo.FindByPaymentReference(ctx, charge.Reference)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("order for payment reference not found", "severity", "critical")
		return s.finish(ctx, result, model.WebhookOutcomeOrderNotFound, body), nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order by reference %s: %w", charge.Reference, err)
	}
	result.Order = order
	log = log.With("order_id", order.ID)

	if order.Status != model.OrderStatusPending {
		log.Info("order already reconciled", "status", order.Status)
		return s.finish(ctx, result, model.WebhookOutcomeDuplicate, body), nil
	}

	expected := order.Total()
	paid := *charge.Amount
	status := model.OrderStatusPaymentReceived
	outcome := model.WebhookOutcomeProcessed
	if expected != paid {
		status = model.OrderStatusPaymentMismatch
		outcome = model.WebhookOutcomeMismatch
		log.Warn("payment mismatch", "expected", expected, "received", paid)
	}

	updated, err := s.orderRepo.FinalizePayment(ctx, charge.Reference, status, summary)
	if err != nil {
		return nil, fmt.Errorf("finalize payment %s: %w", charge.Reference, err)
	}
	if !updated {
		log.Info("order reconciled by a concurrent delivery")
		return s.finish(ctx, result, model.WebhookOutcomeDuplicate, body), nil
	}

	order.Status = status
	order.PaymentSummary = summary
	log.Info("order payment reconciled", "status", status, "amount", paid)

	s.afterPayment(ctx, log, order, paid)
	return s.finish(ctx, result, outcome, body), nil
}

// afterPayment runs follow-ups of a committed transition; failures are logged only.
func (s *paymentServiceImpl) afterPayment(ctx context.Context, log *slog.Logger, order *model.Order, paid int64) {
	if err := s.notifier.Notify(order.BuyerEmail, notify.TypeOrderComplete, dto.FromOrder(order)); err != nil {
		if errors.Is(err, notify.ErrNoSession) {
			log.Debug("buyer has no live session")
		} else {
			log.Warn("notify buyer failed", "error", err)
		}
	}

	err := s.publisher.PublishOrderPayment(ctx, events.OrderPaymentEvent{
		Type:        events.TypeOrderPayment,
		OrderID:     order.ID,
		Reference:   order.PaymentReference,
		BuyerEmail:  order.BuyerEmail,
		Status:      string(order.Status),
		AmountMinor: paid,
		Currency:    order.Currency,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Warn("publish order payment event failed", "error", err)
	}

	if order.Status == model.OrderStatusPaymentReceived && order.CartID != "" {
		if err := s.cartRepo.Delete(ctx, order.CartID); err != nil {
			log.Warn("delete cart failed", "cart_id", order.CartID, "error", err)
		}
	}
}

func (s *paymentServiceImpl) finish(ctx context.Context, result *WebhookResult, outcome string, body []byte) *WebhookResult {
	result.Outcome = outcome

	eventType := result.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()

	err := s.webhookEventRepo.Record(ctx, &model.WebhookEvent{
		EventID:   result.EventID,
		EventType: result.EventType,
		Reference: result.Reference,
		Outcome:   outcome,
		Payload:   string(body),
	})
	if err != nil {
		logging.FromCtx(ctx, s.logger).Warn("record webhook event failed", "event_id", result.EventID, "error", err)
	}
	return result
}

func (s *paymentServiceImpl) RefundPayment(ctx context.Context, reference string) (*dto.RefundResponse, error) {
	order, err := s.orderRepo.FindByPaymentReference(ctx, reference)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order by reference: %w", err)
	}
	if order.Status != model.OrderStatusPaymentReceived && order.Status != model.OrderStatusPaymentMismatch {
		return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, ErrOrderNotRefundable)
	}

	message, err := s.paystackClient.RefundTransaction(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("refund transaction: %w: %w", ErrGateway, err)
	}

	refunded, err := s.orderRepo.MarkRefunded(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("mark refunded: %w", err)
	}
	if !refunded {
		return nil, ErrOrderNotRefundable
	}

	logging.FromCtx(ctx, s.logger).Info("payment refunded", "reference", reference, "order_id", order.ID)
	return &dto.RefundResponse{
		Reference: reference,
		Status:    string(model.OrderStatusRefunded),
		Message:   message,
	}, nil
}
