package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CommissionPending = "pending"
	CommissionPaid    = "paid"
)

// Commission is owed to the actor who closed a sale. Only Status changes
// after creation, and that belongs to the payout process.
type Commission struct {
	Base
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ActorID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"actor_id"`
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"sale_id"`
	InvoiceNumber string          `gorm:"type:varchar(30);not null" json:"invoice_number"`
	SaleTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"sale_total"`
	Rate          decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"rate"` // percent
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Status        string          `gorm:"type:varchar(20);not null;index" json:"status"`
}
