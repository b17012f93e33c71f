package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order lifecycle: pending -> approved -> completed, or pending -> rejected.
const (
	OrderStatusPending   = "pending"
	OrderStatusApproved  = "approved"
	OrderStatusRejected  = "rejected"
	OrderStatusCompleted = "completed"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCredit   = "credit"
)

const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"
)

// DefaultRejectionReason is stored when a rejection carries no reason.
const DefaultRejectionReason = "Rejected by approver"

// Order is a sales order awaiting (or past) fulfillment.
type Order struct {
	Base
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_order_tenant_idempotency" json:"tenant_id"`
	OrderNumber     string          `gorm:"type:varchar(30);not null;index" json:"order_number"`
	Status          string          `gorm:"type:varchar(20);not null;index" json:"status"`
	CustomerName    string          `gorm:"type:varchar(255)" json:"customer_name"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	Discount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	Tax             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	PaymentMethod   string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaymentAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"payment_amount"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid;index" json:"created_by"` // sales actor, commission beneficiary
	ApprovedBy      *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	RejectedBy      *uuid.UUID      `gorm:"type:uuid" json:"rejected_by"`
	RejectedAt      *time.Time      `json:"rejected_at"`
	RejectionReason string          `gorm:"type:text" json:"rejection_reason"`
	SaleID          *uuid.UUID      `gorm:"type:uuid" json:"sale_id"`
	IdempotencyKey  *string         `gorm:"type:varchar(100);uniqueIndex:idx_order_tenant_idempotency" json:"-"`
}

// OrderItem is one line of an order with the price captured at order time.
type OrderItem struct {
	Base
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cost_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"line_total"`
}

func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}
