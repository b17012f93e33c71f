package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionProvisionTenant = "PROVISION_TENANT"
	ActionCreateUser      = "CREATE_USER"
	ActionCreateProduct   = "CREATE_PRODUCT"
	ActionRestockProduct  = "RESTOCK_PRODUCT"
	ActionCreateOrder     = "CREATE_ORDER"
	ActionApproveOrder    = "APPROVE_ORDER"
	ActionRejectOrder     = "REJECT_ORDER"
	ActionCheckout        = "CHECKOUT"
	ActionCreateSale      = "CREATE_SALE"
	ActionRecordExpense   = "RECORD_EXPENSE"
	ActionSeedOpening     = "SEED_OPENING_BALANCE"
)

// AuditLog tracks who did what, written in the same transaction as the change.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID     *uuid.UUID        `gorm:"type:uuid;index" json:"user_id"` // nil for automated triggers
	Action     string            `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string            `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string            `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSONMap `json:"details"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
