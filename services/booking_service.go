package services

import (
	"errors"
	"log"
	"time"

	"github.com/kevinmwangi/nyumbani/models"
	"gorm.io/gorm"
)

// bookingHoldDays is how long a deposit holds a property before the expiry
// sweep releases it.
const bookingHoldDays = 14

// SettleBooking applies a settled payment to the tenant's deposit hold. A
// deposit-sized payment with no existing hold opens one and takes the
// property off the market; a later settlement against an open hold marks the
// rent paid and completes the booking.
func SettleBooking(db *gorm.DB, payment *models.Payment) error {
	if payment.LeaseID == nil {
		return nil
	}

	var lease models.Lease
	if err := db.Preload("Property").First(&lease, "id = ?", payment.LeaseID).Error; err != nil {
		return err
	}

	var booking models.Booking
	err := db.Where("tenant_id = ? AND property_id = ? AND status = ?",
		payment.TenantID, lease.PropertyID, models.BookingActive).First(&booking).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if lease.Property.DepositAmount <= 0 || payment.Amount < lease.Property.DepositAmount {
			return nil
		}
		now := time.Now()
		booking = models.Booking{
			TenantID:        payment.TenantID,
			PropertyID:      lease.PropertyID,
			Status:          models.BookingActive,
			DepositPaid:     true,
			StartDate:       now,
			ExpiryDate:      now.AddDate(0, 0, bookingHoldDays),
			PaymentDeadline: now.AddDate(0, 0, bookingHoldDays),
		}
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&booking).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Property{}).Where("id = ?", lease.PropertyID).
				Update("available", false).Error; err != nil {
				return err
			}
			log.Printf("✅ Deposit hold opened on property %s for tenant %s", lease.PropertyID, payment.TenantID)
			return nil
		})
	}
	if err != nil {
		return err
	}

	booking.RentPaid = true
	booking.Status = models.BookingCompleted
	if err := db.Save(&booking).Error; err != nil {
		return err
	}
	log.Printf("✅ Booking %s completed by payment %s", booking.ID, payment.ID)
	return nil
}
