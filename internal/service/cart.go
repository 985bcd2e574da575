package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CartService interface {
	GetCart(ctx context.Context, cartID string) (*model.ShoppingCart, error)
	SetCart(ctx context.Context, cart *model.ShoppingCart) (*model.ShoppingCart, error)
	DeleteCart(ctx context.Context, cartID string) error
	ApplyCoupon(ctx context.Context, cartID, code string) (*model.ShoppingCart, error)
	RemoveCoupon(ctx context.Context, cartID string) (*model.ShoppingCart, error)
}

type cartServiceImpl struct {
	cartRepo   repository.CartRepository
	couponRepo repository.CouponRepository
}

func NewCartService(
	cartRepo repository.CartRepository,
	couponRepo repository.CouponRepository,
) CartService {
	return &cartServiceImpl{
		cartRepo:   cartRepo,
		couponRepo: couponRepo,
	}
}

func (s *cartServiceImpl) GetCart(ctx context.Context, cartID string) (*model.ShoppingCart, error) {
	cart, err := s.cartRepo.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart %s: %w", cartID, err)
	}
	return cart, nil
}

// SetCart stores the buyer's lines and delivery method, assigning an id to new carts.
// Coupon and payment fields are owned by the server and always come from the stored cart;
// changing the contents drops the payment reference so the payment must be initialized again.
func (s *cartServiceImpl) SetCart(ctx context.Context, in *model.ShoppingCart) (*model.ShoppingCart, error) {
	cart := &model.ShoppingCart{
		ID:               in.ID,
		Items:            in.Items,
		DeliveryMethodID: in.DeliveryMethodID,
	}
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}

	stored, err := s.cartRepo.Get(ctx, cart.ID)
	switch {
	case err == nil:
		cart.Coupon = stored.Coupon
		if stored.SameContents(cart) {
			cart.PaymentReference = stored.PaymentReference
			cart.AuthorizationURL = stored.AuthorizationURL
		}
	case !errors.Is(err, ErrCartNotFound):
		return nil, fmt.Errorf("get cart %s: %w", cart.ID, err)
	}

	if err := s.cartRepo.Set(ctx, cart); err != nil {
		return nil, fmt.Errorf("set cart: %w", err)
	}
	return cart, nil
}

func (s *cartServiceImpl) DeleteCart(ctx context.Context, cartID string) error {
	if err := s.cartRepo.Delete(ctx, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func (s *cartServiceImpl) ApplyCoupon(ctx context.Context, cartID, code string) (*model.ShoppingCart, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	coupon, err := s.couponRepo.FindActiveByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}

	cart.Coupon = model.NewAppCoupon(coupon)
	cart.PaymentReference = ""
	cart.AuthorizationURL = ""
	if err := s.cartRepo.Set(ctx, cart); err != nil {
		return nil, fmt.Errorf("set cart: %w", err)
	}
	return cart, nil
}

func (s *cartServiceImpl) RemoveCoupon(ctx context.Context, cartID string) (*model.ShoppingCart, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart.Coupon = nil
	cart.PaymentReference = ""
	cart.AuthorizationURL = ""
	if err := s.cartRepo.Set(ctx, cart); err != nil {
		return nil, fmt.Errorf("set cart: %w", err)
	}
	return cart, nil
}
