package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MainTreasuryAccount is the cash drawer account every tenant is provisioned with.
const MainTreasuryAccount = "main"

// Ledger movement kinds
const (
	MovementIncome  = "income"
	MovementExpense = "expense"
	MovementOpening = "opening"
)

// TreasuryAccount holds the running cash balance. Balance may go negative.
type TreasuryAccount struct {
	Base
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_treasury_tenant_code" json:"tenant_id"`
	AccountCode string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_treasury_tenant_code" json:"account_code"`
	Balance     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"balance"`
	Version     int64           `gorm:"not null" json:"version"`
}

// TreasuryMovement is the append-only record of every applied movement.
type TreasuryMovement struct {
	Base
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AccountID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	Kind          string          `gorm:"type:varchar(20);not null" json:"kind"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"balance_after"`
	Date          string          `gorm:"type:varchar(10);not null;index" json:"date"`
	Reference     string          `gorm:"type:varchar(100)" json:"reference"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
}

// DailyTreasury is the per-day rollup. ClosingBalance is always
// OpeningBalance + Income - Expense.
type DailyTreasury struct {
	Base
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_daily_treasury_tenant_date" json:"tenant_id"`
	Date           string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_treasury_tenant_date" json:"date"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"opening_balance"`
	Income         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"income"`
	Expense        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"expense"`
	ClosingBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"closing_balance"`
	SalesCount     int             `gorm:"type:int;not null;default:0" json:"sales_count"`
	SalesTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"sales_total"` // all payment methods
	IsClosed       bool            `gorm:"not null;default:false" json:"is_closed"`
	Version        int64           `gorm:"not null" json:"version"`
}

func (d *DailyTreasury) Recompute() {
	d.ClosingBalance = d.OpeningBalance.Add(d.Income).Sub(d.Expense)
}

func (d *DailyTreasury) Balanced() bool {
	return d.ClosingBalance.Equal(d.OpeningBalance.Add(d.Income).Sub(d.Expense))
}
