package repository

import (
	"context"
	"time"

	"storefront-payments/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	// Record stores a delivery; a redelivery of the same body overwrites the outcome.
	Record(ctx context.Context, event *model.WebhookEvent) error
	Get(ctx context.Context, eventID string) (*model.WebhookEvent, error)
	List(ctx context.Context, outcome string, limit int) ([]*model.WebhookEvent, error)
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

func (r *webhookEventRepositoryImpl) Record(ctx context.Context, event *model.WebhookEvent) error {
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"outcome", "processed_at"}),
	}).Create(event).Error
}

func (r *webhookEventRepositoryImpl) Get(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepositoryImpl) List(ctx context.Context, outcome string, limit int) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	q := r.db.WithContext(ctx).Order("processed_at DESC").Limit(limit)
	if outcome != "" {
		q = q.Where("outcome = ?", outcome)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
