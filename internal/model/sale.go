package model

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SaleItem is the frozen copy of an order line stored on the invoice.
type SaleItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Sale is the immutable invoice produced by fulfilling an order. It owns a
// snapshot of the order data; OrderID is a back-reference only.
type Sale struct {
	Base
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sale_tenant_invoice" json:"tenant_id"`
	InvoiceNumber string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_sale_tenant_invoice" json:"invoice_number"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"`
	Items         datatypes.JSON  `json:"items"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	Tax           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	PaymentMethod string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus string          `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaymentAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"payment_amount"`
	Change        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"change"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
}

func (s *Sale) SetItems(items []SaleItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	s.Items = datatypes.JSON(raw)
	return nil
}

func (s *Sale) ItemList() ([]SaleItem, error) {
	var items []SaleItem
	if len(s.Items) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(s.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}
