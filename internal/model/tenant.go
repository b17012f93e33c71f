package model

import (
	"github.com/shopspring/decimal"
)

// Stock policies applied when a delta would take stock below zero.
const (
	StockPolicyAllowNegative  = "allow_negative"
	StockPolicyRejectNegative = "reject_negative"
)

// Tenant is the isolation boundary; every other entity carries a TenantID.
type Tenant struct {
	Base
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	TaxRate           decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"tax_rate"`        // percent
	InvoicePrefix     string          `gorm:"type:varchar(10);not null" json:"invoice_prefix"`   // e.g. INV
	CommissionRate    decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"commission_rate"` // percent, default for actors without their own rate
	StockPolicy       string          `gorm:"type:varchar(20);not null" json:"stock_policy"`
	LowStockThreshold int             `gorm:"type:int;not null;default:0" json:"low_stock_threshold"`
}

func (t *Tenant) RejectsNegativeStock() bool {
	return t.StockPolicy == StockPolicyRejectNegative
}
