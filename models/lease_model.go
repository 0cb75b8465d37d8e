package models

import (
	"time"

	"github.com/google/uuid"
)

type Lease struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TenantID     uuid.UUID  `gorm:"not null" json:"tenant_id"`
	PropertyID   uuid.UUID  `gorm:"not null" json:"property_id"`
	MonthlyRent  float64    `gorm:"type:numeric(12,2);not null" json:"monthly_rent"`
	StartDate    time.Time  `gorm:"not null" json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Active       bool       `gorm:"default:true" json:"active"`

	Tenant   User     `gorm:"foreignkey:TenantID" json:"-"`
	Property Property `gorm:"foreignkey:PropertyID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
