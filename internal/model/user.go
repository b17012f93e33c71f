package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleSales   = "sales"
)

var Roles = []string{RoleOwner, RoleAdmin, RoleManager, RoleCashier, RoleSales}

// ApproverRoles may approve or reject pending orders.
var ApproverRoles = []string{RoleOwner, RoleAdmin, RoleManager}

// User is an actor inside a tenant: approver, cashier or sales agent.
type User struct {
	Base
	TenantID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Username           string           `gorm:"type:varchar(255);not null" json:"username"`
	Email              string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password           string           `gorm:"type:varchar(255);not null" json:"-"`
	Role               string           `gorm:"type:varchar(50);not null" json:"role"`
	CommissionEligible bool             `gorm:"not null;default:false" json:"commission_eligible"`
	CommissionRate     *decimal.Decimal `gorm:"type:decimal(9,4)" json:"commission_rate,omitempty"` // nil falls back to the tenant rate
	DeletedAt          gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (u *User) CanApprove() bool {
	for _, r := range ApproverRoles {
		if u.Role == r {
			return true
		}
	}
	return false
}
