package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Sequence domains. Each domain is numbered independently per tenant.
const (
	SequenceDomainInvoice = "invoice"
	SequenceDomainOrder   = "order"
)

// SequenceNumberWidth is the zero-padded width of the numeric part.
const SequenceNumberWidth = 6

// SequenceCounter is the versioned per-tenant, per-domain counter row.
type SequenceCounter struct {
	Base
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sequence_tenant_domain" json:"tenant_id"`
	Domain     string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_sequence_tenant_domain" json:"domain"`
	Prefix     string    `gorm:"type:varchar(10);not null" json:"prefix"`
	Year       int       `gorm:"type:int;not null" json:"year"`
	LastNumber int64     `gorm:"not null" json:"last_number"`
	Version    int64     `gorm:"not null" json:"version"`
}

// Advance moves the counter to the next number for year, restarting at 1
// when year differs from the stored one.
func (c *SequenceCounter) Advance(year int) int64 {
	if c.Year != year {
		c.Year = year
		c.LastNumber = 0
	}
	c.LastNumber++
	return c.LastNumber
}

// Formatted renders the current number as {prefix}-{year}-{number}.
func (c *SequenceCounter) Formatted() string {
	return FormatSequence(c.Prefix, c.Year, c.LastNumber)
}

func FormatSequence(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, year, SequenceNumberWidth, n)
}
