package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Catalog is the seed file layout.
type Catalog struct {
	Products        []*model.Product        `yaml:"products"`
	DeliveryMethods []*model.DeliveryMethod `yaml:"deliveryMethods"`
	Coupons         []*model.Coupon         `yaml:"coupons"`
}

type CatalogService interface {
	ListProducts(ctx context.Context) ([]*model.Product, error)
	GetProduct(ctx context.Context, productID uint) (*model.Product, error)
	DeliveryMethods(ctx context.Context) ([]*model.DeliveryMethod, error)
	Seed(ctx context.Context, r io.Reader) (*Catalog, error)
}

type catalogServiceImpl struct {
	db                 *gorm.DB
	productRepo        repository.ProductRepository
	deliveryMethodRepo repository.DeliveryMethodRepository
	couponRepo         repository.CouponRepository
}

func NewCatalogService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	deliveryMethodRepo repository.DeliveryMethodRepository,
	couponRepo repository.CouponRepository,
) CatalogService {
	return &catalogServiceImpl{
		db:                 db,
		productRepo:        productRepo,
		deliveryMethodRepo: deliveryMethodRepo,
		couponRepo:         couponRepo,
	}
}

func (s *catalogServiceImpl) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return s.productRepo.List(ctx)
}

func (s *catalogServiceImpl) GetProduct(ctx context.Context, productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

func (s *catalogServiceImpl) DeliveryMethods(ctx context.Context) ([]*model.DeliveryMethod, error) {
	return s.deliveryMethodRepo.List(ctx)
}

// Seed upserts every product, delivery method and coupon in the YAML document read from r.
func (s *catalogServiceImpl) Seed(ctx context.Context, r io.Reader) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.NewDecoder(r).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	for _, p := range catalog.Products {
		if p.ID == 0 || p.Name == "" {
			return nil, fmt.Errorf("product %q: id and name are required", p.Name)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %d: negative price", p.ID)
		}
	}
	for _, c := range catalog.Coupons {
		if c.Code == "" {
			return nil, errors.New("coupon code is required")
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewProductRepository(tx).Upsert(ctx, catalog.Products); err != nil {
			return fmt.Errorf("upsert products: %w", err)
		}
		if err := repository.NewDeliveryMethodRepository(tx).Upsert(ctx, catalog.DeliveryMethods); err != nil {
			return fmt.Errorf("upsert delivery methods: %w", err)
		}
		if err := repository.NewCouponRepository(tx).Upsert(ctx, catalog.Coupons); err != nil {
			return fmt.Errorf("upsert coupons: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &catalog, nil
}
