package repository

import (
	"context"

	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	Status    string
	CreatedBy *uuid.UUID
	Page      int
	Limit     int
}

type OrderRepository interface {
	// Create inserts the order together with its items.
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*model.Order, error)
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*model.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, filter OrderFilter) ([]model.Order, int64, error)
	// Transition applies updates only if the order is still in status from.
	// It returns an InvalidState error when the order has moved on.
	Transition(ctx context.Context, order *model.Order, from string, updates map[string]interface{}) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return translate(GetDB(ctx, r.db).Create(order).Error, "order")
}

func (r *orderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		return nil, translate(err, "order")
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		return nil, translate(err, "order")
	}
	if err := GetDB(ctx, r.db).
		Where("order_id = ?", order.ID).
		Order("product_id asc").
		Find(&order.Items).Error; err != nil {
		return nil, translate(err, "order item")
	}
	return &order, nil
}

func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&order).Error; err != nil {
		return nil, translate(err, "order")
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, tenantID uuid.UUID, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Order{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.CreatedBy != nil {
		db = db.Where("created_by = ?", *filter.CreatedBy)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "order")
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, translate(err, "order")
	}

	return orders, total, nil
}

func (r *orderRepository) Transition(ctx context.Context, order *model.Order, from string, updates map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND tenant_id = ? AND status = ?", order.ID, order.TenantID, from).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error, "order")
	}
	if res.RowsAffected == 0 {
		return orderNotInStatus(order, from)
	}
	return nil
}
