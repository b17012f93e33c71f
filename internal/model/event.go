package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Outbox event types pushed to realtime and stock-alert consumers.
const (
	EventSaleCompleted = "sale.completed"
	EventStockNegative = "stock.negative"
	EventStockLow      = "stock.low"
	EventOrderRejected = "order.rejected"
)

// OutboxEvent is written inside the producing transaction and published
// only after it commits.
type OutboxEvent struct {
	Base
	TenantID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Type        string            `gorm:"type:varchar(50);not null;index" json:"type"`
	Payload     datatypes.JSONMap `json:"payload"`
	PublishedAt *time.Time        `gorm:"index" json:"published_at"`
}
