package models

import (
	"time"

	"github.com/google/uuid"
)

type Property struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	LandlordID    uuid.UUID `gorm:"not null" json:"landlord_id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	UnitLabel     string    `gorm:"size:50" json:"unit_label"`
	MonthlyRent   float64   `gorm:"type:numeric(12,2);not null" json:"monthly_rent"`
	DepositAmount float64   `gorm:"type:numeric(12,2)" json:"deposit_amount"`
	Available     bool      `gorm:"default:true" json:"available"`

	Landlord User `gorm:"foreignkey:LandlordID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
