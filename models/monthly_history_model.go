package models

import (
	"time"

	"github.com/google/uuid"
)

type BillingStatus string

const (
	BillingPending       BillingStatus = "PENDING"
	BillingPartiallyPaid BillingStatus = "PARTIALLY_PAID"
	BillingSuccessful    BillingStatus = "SUCCESSFUL"
)

// MonthlyPaymentHistory is the derived per-tenant-per-month rent ledger.
// Balance is always recomputed from TotalDue - TotalPaid, never set directly.
type MonthlyPaymentHistory struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TenantID   uuid.UUID  `gorm:"not null;uniqueIndex:idx_tenant_month_year" json:"tenant_id"`
	PropertyID uuid.UUID  `gorm:"not null" json:"property_id"`
	LeaseID    *uuid.UUID `json:"lease_id"`
	Month      int        `gorm:"not null;uniqueIndex:idx_tenant_month_year" json:"month"`
	Year       int        `gorm:"not null;uniqueIndex:idx_tenant_month_year" json:"year"`

	TotalDue  float64       `gorm:"type:numeric(12,2);not null" json:"total_due"`
	TotalPaid float64       `gorm:"type:numeric(12,2);not null;default:0" json:"total_paid"`
	Balance   float64       `gorm:"type:numeric(12,2);not null" json:"balance"`
	Status    BillingStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`

	PaymentDeadline time.Time `json:"payment_deadline"`

	Tenant   User     `gorm:"foreignkey:TenantID" json:"-"`
	Property Property `gorm:"foreignkey:PropertyID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *MonthlyPaymentHistory) EntityID() string {
	return h.ID.String()
}
