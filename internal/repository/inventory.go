package repository

import (
	"context"
	"errors"

	"storefront-payments/internal/model"

	"gorm.io/gorm"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type InventoryRepository interface {
	// Reserve decrements stock inside tx, failing when fewer than quantity units remain.
	Reserve(ctx context.Context, tx *gorm.DB, productID uint, quantity int) error
}

type inventoryRepoImpl struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepoImpl{
		db: db,
	}
}

func (r *inventoryRepoImpl) Reserve(ctx context.Context, tx *gorm.DB, productID uint, quantity int) error {
	result := tx.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND quantity_in_stock >= ?", productID, quantity).
		Update("quantity_in_stock", gorm.Expr("quantity_in_stock - ?", quantity))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
