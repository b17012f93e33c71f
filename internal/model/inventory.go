package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stock-keeping item. Stock changes only through signed deltas
// guarded by Version.
type Product struct {
	Base
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_product_tenant_sku" json:"tenant_id"`
	SKU       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_tenant_sku" json:"sku"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Stock     int             `gorm:"type:int;not null;default:0" json:"stock"` // may be negative under allow_negative
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price"`
	CostPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cost_price"`
	Version   int64           `gorm:"not null" json:"version"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Inventory log entry types
const (
	InventoryLogSale       = "sale"
	InventoryLogRestock    = "restock"
	InventoryLogAdjustment = "adjustment"
)

// InventoryLog is the append-only stock movement trail. One row per
// product per fulfillment.
type InventoryLog struct {
	Base
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Type       string     `gorm:"type:varchar(20);not null" json:"type"`
	Delta      int        `gorm:"type:int;not null" json:"delta"`
	StockAfter int        `gorm:"type:int;not null" json:"stock_after"`
	Reference  string     `gorm:"type:varchar(50);index" json:"reference"` // invoice number or restock note
	CreatedBy  *uuid.UUID `gorm:"type:uuid" json:"created_by"`
}
