package repository

import (
	"context"
	"time"

	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	ListUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return translate(GetDB(ctx, r.db).Create(event).Error, "outbox event")
}

func (r *eventRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(GetDB(ctx, r.db).Model(&model.OutboxEvent{}).
		Where("id IN ?", ids).
		Update("published_at", at).Error, "outbox event")
}

func (r *eventRepository) ListUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	if err := GetDB(ctx, r.db).
		Where("published_at IS NULL").
		Order("created_at asc").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, translate(err, "outbox event")
	}
	return events, nil
}
