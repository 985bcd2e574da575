package repository

import (
	"context"
	"time"

	"storefront-payments/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByPaymentReference(ctx context.Context, reference string) (*model.Order, error)
	FindByIDForBuyer(ctx context.Context, id uint, buyerEmail string) (*model.Order, error)
	ListByBuyer(ctx context.Context, buyerEmail string) ([]*model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]*model.Order, error)
	// FinalizePayment moves a Pending order to status and writes the payment summary in one
	// UPDATE. It reports false when no Pending order matched the reference.
	FinalizePayment(ctx context.Context, reference string, status model.OrderStatus, summary model.PaymentSummary) (bool, error)
	MarkRefunded(ctx context.Context, reference string) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByPaymentReference(ctx context.Context, reference string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_reference = ?", reference).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByIDForBuyer(ctx context.Context, id uint, buyerEmail string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND buyer_email = ?", id, buyerEmail).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) ListByBuyer(ctx context.Context, buyerEmail string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_email = ?", buyerEmail).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ?", string(status)).
		Order("updated_at DESC").
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) FinalizePayment(ctx context.Context, reference string, status model.OrderStatus, summary model.PaymentSummary) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("payment_reference = ? AND status = ?", reference, string(model.OrderStatusPending)).
		Updates(map[string]interface{}{
			"status":            string(status),
			"payment_last4":     summary.Last4,
			"payment_brand":     summary.Brand,
			"payment_exp_month": summary.ExpMonth,
			"payment_exp_year":  summary.ExpYear,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) MarkRefunded(ctx context.Context, reference string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where(`
			payment_reference = ?
			AND status IN ?
		`,
			reference,
			[]string{string(model.OrderStatusPaymentReceived), string(model.OrderStatusPaymentMismatch)},
		).
		Updates(map[string]interface{}{
			"status":     string(model.OrderStatusRefunded),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
