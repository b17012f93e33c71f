package repository

import (
	"context"

	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TreasuryRepository interface {
	CreateAccount(ctx context.Context, account *model.TreasuryAccount) error
	FindAccount(ctx context.Context, tenantID uuid.UUID, code string) (*model.TreasuryAccount, error)
	FindAccountForUpdate(ctx context.Context, tenantID uuid.UUID, code string) (*model.TreasuryAccount, error)
	// SaveBalance writes account.Balance guarded by account.Version.
	SaveBalance(ctx context.Context, account *model.TreasuryAccount) error
	CreateMovement(ctx context.Context, movement *model.TreasuryMovement) error
	ListMovements(ctx context.Context, tenantID uuid.UUID, date string) ([]model.TreasuryMovement, error)

	CreateDaily(ctx context.Context, daily *model.DailyTreasury) error
	FindDailyForUpdate(ctx context.Context, tenantID uuid.UUID, date string) (*model.DailyTreasury, error)
	// SaveDaily writes the rollup figures guarded by daily.Version.
	SaveDaily(ctx context.Context, daily *model.DailyTreasury) error
	ListDaily(ctx context.Context, tenantID uuid.UUID, from, to string) ([]model.DailyTreasury, error)
}

type treasuryRepository struct {
	db *gorm.DB
}

func NewTreasuryRepository(db *gorm.DB) TreasuryRepository {
	return &treasuryRepository{db: db}
}

func (r *treasuryRepository) CreateAccount(ctx context.Context, account *model.TreasuryAccount) error {
	return translate(GetDB(ctx, r.db).Create(account).Error, "treasury account")
}

func (r *treasuryRepository) FindAccount(ctx context.Context, tenantID uuid.UUID, code string) (*model.TreasuryAccount, error) {
	var account model.TreasuryAccount
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND account_code = ?", tenantID, code).
		First(&account).Error; err != nil {
		return nil, translate(err, "treasury account")
	}
	return &account, nil
}

func (r *treasuryRepository) FindAccountForUpdate(ctx context.Context, tenantID uuid.UUID, code string) (*model.TreasuryAccount, error) {
	var account model.TreasuryAccount
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND account_code = ?", tenantID, code).
		First(&account).Error; err != nil {
		return nil, translate(err, "treasury account")
	}
	return &account, nil
}

func (r *treasuryRepository) SaveBalance(ctx context.Context, account *model.TreasuryAccount) error {
	res := GetDB(ctx, r.db).Model(&model.TreasuryAccount{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(map[string]interface{}{
			"balance": account.Balance,
			"version": account.Version + 1,
		})
	if res.Error != nil {
		return translate(res.Error, "treasury account")
	}
	if res.RowsAffected == 0 {
		return staleWrite("treasury account")
	}
	account.Version++
	return nil
}

func (r *treasuryRepository) CreateMovement(ctx context.Context, movement *model.TreasuryMovement) error {
	return translate(GetDB(ctx, r.db).Create(movement).Error, "treasury movement")
}

func (r *treasuryRepository) ListMovements(ctx context.Context, tenantID uuid.UUID, date string) ([]model.TreasuryMovement, error) {
	var movements []model.TreasuryMovement
	if err := GetDB(ctx, r.db).
		Where("tenant_id = ? AND date = ?", tenantID, date).
		Order("created_at asc").
		Find(&movements).Error; err != nil {
		return nil, translate(err, "treasury movement")
	}
	return movements, nil
}

func (r *treasuryRepository) CreateDaily(ctx context.Context, daily *model.DailyTreasury) error {
	return translate(GetDB(ctx, r.db).Create(daily).Error, "daily treasury")
}

func (r *treasuryRepository) FindDailyForUpdate(ctx context.Context, tenantID uuid.UUID, date string) (*model.DailyTreasury, error) {
	var daily model.DailyTreasury
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND date = ?", tenantID, date).
		First(&daily).Error; err != nil {
		return nil, translate(err, "daily treasury")
	}
	return &daily, nil
}

func (r *treasuryRepository) SaveDaily(ctx context.Context, daily *model.DailyTreasury) error {
	res := GetDB(ctx, r.db).Model(&model.DailyTreasury{}).
		Where("id = ? AND version = ?", daily.ID, daily.Version).
		Updates(map[string]interface{}{
			"opening_balance": daily.OpeningBalance,
			"income":          daily.Income,
			"expense":         daily.Expense,
			"closing_balance": daily.ClosingBalance,
			"sales_count":     daily.SalesCount,
			"sales_total":     daily.SalesTotal,
			"version":         daily.Version + 1,
		})
	if res.Error != nil {
		return translate(res.Error, "daily treasury")
	}
	if res.RowsAffected == 0 {
		return staleWrite("daily treasury")
	}
	daily.Version++
	return nil
}

func (r *treasuryRepository) ListDaily(ctx context.Context, tenantID uuid.UUID, from, to string) ([]model.DailyTreasury, error) {
	var rows []model.DailyTreasury
	db := GetDB(ctx, r.db).Where("tenant_id = ?", tenantID)
	if from != "" {
		db = db.Where("date >= ?", from)
	}
	if to != "" {
		db = db.Where("date <= ?", to)
	}
	if err := db.Order("date asc").Find(&rows).Error; err != nil {
		return nil, translate(err, "daily treasury")
	}
	return rows, nil
}
