package repository

import (
	"context"

	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryLogRepository interface {
	Create(ctx context.Context, entry *model.InventoryLog) error
	ListByProduct(ctx context.Context, tenantID, productID uuid.UUID, page, limit int) ([]model.InventoryLog, int64, error)
	ListByReference(ctx context.Context, tenantID uuid.UUID, reference string) ([]model.InventoryLog, error)
}

type inventoryLogRepository struct {
	db *gorm.DB
}

func NewInventoryLogRepository(db *gorm.DB) InventoryLogRepository {
	return &inventoryLogRepository{db: db}
}

func (r *inventoryLogRepository) Create(ctx context.Context, entry *model.InventoryLog) error {
	return translate(GetDB(ctx, r.db).Create(entry).Error, "inventory log")
}

func (r *inventoryLogRepository) ListByProduct(ctx context.Context, tenantID, productID uuid.UUID, page, limit int) ([]model.InventoryLog, int64, error) {
	var entries []model.InventoryLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryLog{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "inventory log")
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, translate(err, "inventory log")
	}
	return entries, total, nil
}

func (r *inventoryLogRepository) ListByReference(ctx context.Context, tenantID uuid.UUID, reference string) ([]model.InventoryLog, error) {
	var entries []model.InventoryLog
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND reference = ?", tenantID, reference).
		Order("created_at asc").
		Find(&entries).Error; err != nil {
		return nil, translate(err, "inventory log")
	}
	return entries, nil
}
