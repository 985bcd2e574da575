package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"storefront-payments/internal/client"
	"storefront-payments/internal/config"
	"storefront-payments/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := client.InitDBClient(&config.Database{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, client.Migrate(db))
	return db
}

func pendingOrder(ref string) *model.Order {
	return &model.Order{
		BuyerEmail:       "buyer@example.com",
		CartID:           "cart-1",
		PaymentReference: ref,
		Status:           model.OrderStatusPending,
		Currency:         "ZAR",
		DeliveryPrice:    500,
		Items: []model.OrderItem{
			{ProductID: 1, ProductName: "Boots", UnitPrice: 2500, Quantity: 2},
		},
	}
}

func TestOrderRepository_FinalizePaymentIsGuarded(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewOrderRepository(db)

	require.NoError(t, repo.Create(ctx, db, pendingOrder("ref-1")))

	summary := model.PaymentSummary{Last4: "4081", Brand: "visa", ExpMonth: 12, ExpYear: 2030}
	updated, err := repo.FinalizePayment(ctx, "ref-1", model.OrderStatusPaymentReceived, summary)
	require.NoError(t, err)
	assert.True(t, updated)

	// a second delivery must not overwrite the first outcome
	updated, err = repo.FinalizePayment(ctx, "ref-1", model.OrderStatusPaymentMismatch, model.PaymentSummary{Last4: "0000"})
	require.NoError(t, err)
	assert.False(t, updated)

	order, err := repo.FindByPaymentReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaymentReceived, order.Status)
	assert.Equal(t, summary, order.PaymentSummary)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(5500), order.Total())
}

func TestOrderRepository_FindByPaymentReferenceMissing(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))

	_, err := repo.FindByPaymentReference(context.Background(), "nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_MarkRefunded(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewOrderRepository(db)

	require.NoError(t, repo.Create(ctx, db, pendingOrder("ref-2")))

	refunded, err := repo.MarkRefunded(ctx, "ref-2")
	require.NoError(t, err)
	assert.False(t, refunded, "pending orders cannot be refunded")

	_, err = repo.FinalizePayment(ctx, "ref-2", model.OrderStatusPaymentMismatch, model.PaymentSummary{Last4: "1111"})
	require.NoError(t, err)

	refunded, err = repo.MarkRefunded(ctx, "ref-2")
	require.NoError(t, err)
	assert.True(t, refunded)

	orders, err := repo.ListByStatus(ctx, model.OrderStatusRefunded, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ref-2", orders[0].PaymentReference)
}

func TestOrderRepository_BuyerScoping(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewOrderRepository(db)

	order := pendingOrder("ref-3")
	require.NoError(t, repo.Create(ctx, db, order))

	_, err := repo.FindByIDForBuyer(ctx, order.ID, "someone@else.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.FindByIDForBuyer(ctx, order.ID, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ref-3", found.PaymentReference)

	list, err := repo.ListByBuyer(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInventoryRepository_Reserve(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	products := NewProductRepository(db)
	inventory := NewInventoryRepository(db)

	require.NoError(t, products.Upsert(ctx, []*model.Product{
		{ID: 7, Name: "Hat", Price: decimal.RequireFromString("10.00"), QuantityInStock: 3},
	}))

	require.NoError(t, inventory.Reserve(ctx, db, 7, 2))
	assert.ErrorIs(t, inventory.Reserve(ctx, db, 7, 2), ErrInsufficientStock)

	p, err := products.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, p.QuantityInStock)
}

func TestProductRepository_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, []*model.Product{
		{ID: 1, Name: "Boots", Price: decimal.RequireFromString("25.00"), QuantityInStock: 5},
		{ID: 2, Name: "Gloves", Price: decimal.RequireFromString("9.99"), QuantityInStock: 5},
	}))
	require.NoError(t, repo.Upsert(ctx, []*model.Product{
		{ID: 1, Name: "Boots", Price: decimal.RequireFromString("30.00"), QuantityInStock: 4},
	}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Price.Equal(decimal.RequireFromString("30.00")))

	many, err := repo.FindMany(ctx, []uint{2})
	require.NoError(t, err)
	require.Len(t, many, 1)
	assert.Equal(t, "Gloves", many[0].Name)
}

func TestCouponRepository_OnlyActive(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(newTestDB(t))

	pct := decimal.NewFromInt(10)
	require.NoError(t, repo.Upsert(ctx, []*model.Coupon{
		{Code: "TEN", Name: "Ten percent", PercentOff: &pct, Active: true},
		{Code: "OLD", Name: "Expired", PercentOff: &pct, Active: false},
	}))

	c, err := repo.FindActiveByCode(ctx, "TEN")
	require.NoError(t, err)
	assert.True(t, c.PercentOff.Equal(pct))

	_, err = repo.FindActiveByCode(ctx, "OLD")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeliveryMethodRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDeliveryMethodRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, []*model.DeliveryMethod{
		{ID: 1, ShortName: "UPS1", Price: decimal.RequireFromString("10")},
		{ID: 2, ShortName: "FREE", Price: decimal.Zero},
	}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "UPS1", list[0].ShortName)

	m, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "FREE", m.ShortName)
}

func TestWebhookEventRepository_RecordUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookEventRepository(newTestDB(t))

	require.NoError(t, repo.Record(ctx, &model.WebhookEvent{
		EventID: "abc", EventType: "charge.success", Reference: "ref", Outcome: model.WebhookOutcomeOrderNotFound, Payload: "{}",
	}))
	require.NoError(t, repo.Record(ctx, &model.WebhookEvent{
		EventID: "abc", EventType: "charge.success", Reference: "ref", Outcome: model.WebhookOutcomeProcessed, Payload: "{}",
	}))

	ev, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, model.WebhookOutcomeProcessed, ev.Outcome)

	list, err := repo.List(ctx, model.WebhookOutcomeOrderNotFound, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewCartRepository(rdb, time.Hour)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCartNotFound)

	cart := &model.ShoppingCart{
		ID:    "c1",
		Items: []model.CartItem{{ProductID: 1, ProductName: "Boots", Price: decimal.RequireFromString("25.50"), Quantity: 2}},
	}
	require.NoError(t, repo.Set(ctx, cart))
	assert.Equal(t, time.Hour, mr.TTL("cart:c1"))

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(5100), got.Subtotal())

	require.NoError(t, repo.Delete(ctx, "c1"))
	_, err = repo.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}
