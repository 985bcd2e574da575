package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-payments/internal/dto"
	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"

	"gorm.io/gorm"
)

type OrderService interface {
	// CreateOrder snapshots the cart into a Pending order keyed by the cart's payment reference.
	// Repeating the call for the same reference returns the existing order.
	CreateOrder(ctx context.Context, buyerEmail string, req *dto.CreateOrderRequest) (*model.Order, error)
	ListOrders(ctx context.Context, buyerEmail string) ([]*model.Order, error)
	GetOrder(ctx context.Context, buyerEmail string, orderID uint) (*model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]*model.Order, error)
}

type orderServiceImpl struct {
	db                 *gorm.DB
	currency           string
	cartRepo           repository.CartRepository
	productRepo        repository.ProductRepository
	deliveryMethodRepo repository.DeliveryMethodRepository
	orderRepo          repository.OrderRepository
	inventoryRepo      repository.InventoryRepository
}

func NewOrderService(
	db *gorm.DB,
	currency string,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	deliveryMethodRepo repository.DeliveryMethodRepository,
	orderRepo repository.OrderRepository,
	inventoryRepo repository.InventoryRepository,
) OrderService {
	return &orderServiceImpl{
		db:                 db,
		currency:           currency,
		cartRepo:           cartRepo,
		productRepo:        productRepo,
		deliveryMethodRepo: deliveryMethodRepo,
		orderRepo:          orderRepo,
		inventoryRepo:      inventoryRepo,
	}
}

func (s *orderServiceImpl) CreateOrder(ctx context.Context, buyerEmail string, req *dto.CreateOrderRequest) (*model.Order, error) {
	if buyerEmail == "" {
		return nil, ErrMissingBuyer
	}

	cart, err := s.cartRepo.Get(ctx, req.CartID)
	if err != nil {
		return nil, fmt.Errorf("get cart %s: %w", req.CartID, err)
	}
	if cart.PaymentReference == "" {
		return nil, ErrPaymentNotInitialized
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	existing, err := s.orderRepo.FindByPaymentReference(ctx, cart.PaymentReference)
	switch {
	case err == nil:
		if existing.BuyerEmail != buyerEmail {
			return nil, ErrCartNotFound
		}
		return existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find order by reference: %w", err)
	}

	// the charge was computed with the cart's delivery method
	if cart.DeliveryMethodID == nil {
		return nil, ErrDeliveryMethodRequired
	}
	if req.DeliveryMethodID != 0 && req.DeliveryMethodID != *cart.DeliveryMethodID {
		return nil, ErrDeliveryMethodMismatch
	}
	delivery, err := s.deliveryMethodRepo.Get(ctx, *cart.DeliveryMethodID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeliveryMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery method: %w", err)
	}

	items, err := s.snapshotItems(ctx, cart)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		BuyerEmail:         buyerEmail,
		CartID:             cart.ID,
		PaymentReference:   cart.PaymentReference,
		Status:             model.OrderStatusPending,
		Currency:           s.currency,
		ShippingAddress:    req.ShippingAddress.ToModel(),
		DeliveryMethodID:   delivery.ID,
		DeliveryMethodName: delivery.ShortName,
		DeliveryPrice:      model.ToMinor(delivery.Price),
		Items:              items,
	}
	subtotal := order.Subtotal()
	order.Discount = subtotal - model.ApplyDiscount(cart.Coupon, subtotal)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := s.inventoryRepo.Reserve(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("reserve product %d: %w", item.ProductID, err)
			}
		}
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// snapshotItems prices every cart line from the catalog.
func (s *orderServiceImpl) snapshotItems(ctx context.Context, cart *model.ShoppingCart) ([]model.OrderItem, error) {
	products, err := s.productRepo.FindMany(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	productMap := make(map[uint]*model.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, ok := productMap[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, ErrProductNotFound)
		}
		items = append(items, model.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   model.ToMinor(product.Price),
			Quantity:    item.Quantity,
		})
	}
	return items, nil
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, buyerEmail string) ([]*model.Order, error) {
	if buyerEmail == "" {
		return nil, ErrMissingBuyer
	}
	return s.orderRepo.ListByBuyer(ctx, buyerEmail)
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, buyerEmail string, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDForBuyer(ctx, orderID, buyerEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *orderServiceImpl) ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.orderRepo.ListByStatus(ctx, status, limit)
}
