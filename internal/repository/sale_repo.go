package repository

import (
	"context"

	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error)
	FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) (*model.Sale, error)
	CountByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return translate(GetDB(ctx, r.db).Create(sale).Error, "sale")
}

func (r *saleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sale).Error; err != nil {
		return nil, translate(err, "sale")
	}
	return &sale, nil
}

func (r *saleRepository) FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		First(&sale).Error; err != nil {
		return nil, translate(err, "sale")
	}
	return &sale, nil
}

func (r *saleRepository) CountByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Count(&count).Error; err != nil {
		return 0, translate(err, "sale")
	}
	return count, nil
}
