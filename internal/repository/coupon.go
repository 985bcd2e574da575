package repository

import (
	"context"

	"storefront-payments/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CouponRepository interface {
	Upsert(ctx context.Context, coupons []*model.Coupon) error
	FindActiveByCode(ctx context.Context, code string) (*model.Coupon, error)
}

type couponRepositoryImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepositoryImpl{
		db: db,
	}
}

func (r *couponRepositoryImpl) Upsert(ctx context.Context, coupons []*model.Coupon) error {
	if len(coupons) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "amount_off", "percent_off", "active"}),
	}).Create(&coupons).Error
}

func (r *couponRepositoryImpl) FindActiveByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}

	return &coupon, nil
}
