package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-payments/internal/client"
	"storefront-payments/internal/config"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/events"
	"storefront-payments/internal/logging"
	"storefront-payments/internal/model"
	"storefront-payments/internal/notify"
	"storefront-payments/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret = "sk_test_secret"
	testBuyer  = "buyer@example.com"
)

type fakeGateway struct {
	client.PaystackClient // real signature verification

	InitializeFunc func(ctx context.Context, req *client.InitializeTransactionRequest) (*client.InitializeTransactionResponse, error)
	RefundFunc     func(ctx context.Context, reference string) (string, error)

	mu           sync.Mutex
	initRequests []*client.InitializeTransactionRequest
	refunds      []string
}

func (g *fakeGateway) InitializeTransaction(ctx context.Context, req *client.InitializeTransactionRequest) (*client.InitializeTransactionResponse, error) {
	g.mu.Lock()
	g.initRequests = append(g.initRequests, req)
	n := len(g.initRequests)
	g.mu.Unlock()

	if g.InitializeFunc != nil {
		return g.InitializeFunc(ctx, req)
	}
	ref := fmt.Sprintf("ref-%d", n)
	return &client.InitializeTransactionResponse{
		Reference:        ref,
		AuthorizationURL: "https://checkout.paystack.com/" + ref,
		AccessCode:       "ac-" + ref,
	}, nil
}

func (g *fakeGateway) RefundTransaction(ctx context.Context, reference string) (string, error) {
	g.mu.Lock()
	g.refunds = append(g.refunds, reference)
	g.mu.Unlock()

	if g.RefundFunc != nil {
		return g.RefundFunc(ctx, reference)
	}
	return "Refund has been queued for processing", nil
}

type sentNotification struct {
	Email   string
	Type    string
	Payload interface{}
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentNotification
}

func (n *fakeNotifier) Notify(email, msgType string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{Email: email, Type: msgType, Payload: payload})
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []events.OrderPaymentEvent
}

func (p *fakePublisher) PublishOrderPayment(_ context.Context, ev events.OrderPaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fixture struct {
	db        *gorm.DB
	redis     *miniredis.Miniredis
	carts     repository.CartRepository
	orders    repository.OrderRepository
	webhooks  repository.WebhookEventRepository
	products  repository.ProductRepository
	gateway   *fakeGateway
	notifier  *fakeNotifier
	publisher *fakePublisher

	payments PaymentService
	orderSvc OrderService
	cartSvc  CartService
	catalog  CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := client.InitDBClient(&config.Database{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, client.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := &fixture{
		db:       db,
		redis:    mr,
		carts:    repository.NewCartRepository(rdb, time.Hour),
		orders:   repository.NewOrderRepository(db),
		webhooks: repository.NewWebhookEventRepository(db),
		products: repository.NewProductRepository(db),
		gateway: &fakeGateway{
			PaystackClient: client.NewPaystackClient(&config.Paystack{SecretKey: testSecret}),
		},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	deliveryMethods := repository.NewDeliveryMethodRepository(db)
	coupons := repository.NewCouponRepository(db)

	f.payments = NewPaymentService(f.gateway, "ZAR", f.carts, f.products, deliveryMethods, coupons, f.orders, f.webhooks, f.notifier, f.publisher)
	f.orderSvc = NewOrderService(db, "ZAR", f.carts, f.products, deliveryMethods, f.orders, repository.NewInventoryRepository(db))
	f.cartSvc = NewCartService(f.carts, coupons)
	f.catalog = NewCatalogService(db, f.products, deliveryMethods, coupons)

	_, err = f.catalog.Seed(ctx, strings.NewReader(testCatalog))
	require.NoError(t, err)
	return f
}

const testCatalog = `
products:
  - id: 1
    name: Boots
    price: 25.00
    quantityInStock: 10
  - id: 2
    name: Hat
    price: 10.50
    quantityInStock: 1
deliveryMethods:
  - id: 1
    shortName: UPS1
    deliveryTime: 1-2 days
    price: 5.00
  - id: 2
    shortName: FREE
    deliveryTime: 1-2 weeks
    price: 0
coupons:
  - code: TEN
    name: Ten percent off
    percentOff: 10
    active: true
  - code: FIVER
    name: Five off
    amountOff: 5.00
    active: true
`

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func chargeSuccessBody(reference string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"id":302961,"reference":%q,"amount":%d,"currency":"ZAR",`+
		`"authorization":{"last4":"0408","card_type":"visa ","exp_month":"12","exp_year":"2030","bank":"TEST BANK"},`+
		`"customer":{"email":%q}}}`, reference, amount, testBuyer))
}

func uintPtr(v uint) *uint { return &v }

// checkout walks a buyer through cart, payment initialization and order placement.
func (f *fixture) checkout(t *testing.T, items []model.CartItem, couponCode string) *model.Order {
	t.Helper()
	ctx := context.Background()

	cart, err := f.cartSvc.SetCart(ctx, &model.ShoppingCart{Items: items, DeliveryMethodID: uintPtr(1)})
	require.NoError(t, err)
	if couponCode != "" {
		_, err = f.cartSvc.ApplyCoupon(ctx, cart.ID, couponCode)
		require.NoError(t, err)
	}

	_, err = f.payments.CreateOrUpdatePaymentTransaction(ctx, cart.ID, testBuyer)
	require.NoError(t, err)

	order, err := f.orderSvc.CreateOrder(ctx, testBuyer, &dto.CreateOrderRequest{
		CartID:           cart.ID,
		DeliveryMethodID: 1,
		ShippingAddress:  dto.AddressDto{Name: "Ada", Line1: "1 Main Rd", City: "Cape Town", Country: "ZA"},
	})
	require.NoError(t, err)
	return order
}

func bootsItem(qty int) model.CartItem {
	return model.CartItem{ProductID: 1, ProductName: "Boots", Price: decimal.RequireFromString("25.00"), Quantity: qty}
}

func captureLogs(ctx context.Context) (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(logging.NewHandler(&buf, config.Log{Level: "debug", Format: "json"}))
	return logging.WithCtx(ctx, l), &buf
}

var _ Notifier = (*notify.Hub)(nil)
