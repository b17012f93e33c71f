package repository

import (
	"context"

	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommissionFilter struct {
	ActorID *uuid.UUID
	Status  string
	Page    int
	Limit   int
}

type CommissionRepository interface {
	Create(ctx context.Context, commission *model.Commission) error
	FindBySaleID(ctx context.Context, tenantID, saleID uuid.UUID) (*model.Commission, error)
	List(ctx context.Context, tenantID uuid.UUID, filter CommissionFilter) ([]model.Commission, int64, error)
}

type commissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

func (r *commissionRepository) Create(ctx context.Context, commission *model.Commission) error {
	return translate(GetDB(ctx, r.db).Create(commission).Error, "commission")
}

func (r *commissionRepository) FindBySaleID(ctx context.Context, tenantID, saleID uuid.UUID) (*model.Commission, error) {
	var commission model.Commission
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND sale_id = ?", tenantID, saleID).
		First(&commission).Error; err != nil {
		return nil, translate(err, "commission")
	}
	return &commission, nil
}

func (r *commissionRepository) List(ctx context.Context, tenantID uuid.UUID, filter CommissionFilter) ([]model.Commission, int64, error) {
	var commissions []model.Commission
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Commission{}).Where("tenant_id = ?", tenantID)
	if filter.ActorID != nil {
		db = db.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "commission")
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&commissions).Error; err != nil {
		return nil, 0, translate(err, "commission")
	}
	return commissions, total, nil
}
