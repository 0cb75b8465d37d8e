package models

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingActive    BookingStatus = "ACTIVE"
	BookingExpired   BookingStatus = "EXPIRED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// Booking is a time-boxed deposit hold on a property. It is created when a
// deposit payment succeeds and expired by the nightly sweep once ExpiryDate
// passes without the rent being paid.
type Booking struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	TenantID   uuid.UUID     `gorm:"not null" json:"tenant_id"`
	PropertyID uuid.UUID     `gorm:"not null" json:"property_id"`
	Status     BookingStatus `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`

	DepositPaid bool `gorm:"default:false" json:"deposit_paid"`
	RentPaid    bool `gorm:"default:false" json:"rent_paid"`

	StartDate       time.Time `json:"start_date"`
	ExpiryDate      time.Time `json:"expiry_date"`
	PaymentDeadline time.Time `json:"payment_deadline"`

	Tenant   User     `gorm:"foreignkey:TenantID" json:"-"`
	Property Property `gorm:"foreignkey:PropertyID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
