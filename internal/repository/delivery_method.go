package repository

import (
	"context"

	"storefront-payments/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryMethodRepository interface {
	Upsert(ctx context.Context, methods []*model.DeliveryMethod) error
	Get(ctx context.Context, id uint) (*model.DeliveryMethod, error)
	List(ctx context.Context) ([]*model.DeliveryMethod, error)
}

type deliveryMethodRepoImpl struct {
	db *gorm.DB
}

func NewDeliveryMethodRepository(db *gorm.DB) DeliveryMethodRepository {
	return &deliveryMethodRepoImpl{
		db: db,
	}
}

func (r *deliveryMethodRepoImpl) Upsert(ctx context.Context, methods []*model.DeliveryMethod) error {
	if len(methods) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"short_name", "delivery_time", "description", "price"}),
	}).Create(&methods).Error
}

func (r *deliveryMethodRepoImpl) Get(ctx context.Context, id uint) (*model.DeliveryMethod, error) {
	var method model.DeliveryMethod
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&method).Error
	if err != nil {
		return nil, err
	}

	return &method, nil
}

func (r *deliveryMethodRepoImpl) List(ctx context.Context) ([]*model.DeliveryMethod, error) {
	var methods []*model.DeliveryMethod
	err := r.db.WithContext(ctx).
		Order("price DESC").
		Find(&methods).Error
	if err != nil {
		return nil, err
	}

	return methods, nil
}
