package jobs

import (
	"log"
	"time"

	"github.com/kevinmwangi/nyumbani/models"
	"gorm.io/gorm"
)

// ExpireStaleBookings sweeps ACTIVE bookings whose expiry date has passed,
// marks them EXPIRED and puts the property back on the market. A failure on
// one booking never aborts the rest of the sweep.
func ExpireStaleBookings(db *gorm.DB) {
	log.Println("Running job: ExpireStaleBookings...")

	var staleBookings []models.Booking
	err := db.Where("status = ? AND expiry_date < ?", models.BookingActive, time.Now()).
		Find(&staleBookings).Error
	if err != nil {
		log.Printf("Error checking for stale bookings: %v", err)
		return
	}

	if len(staleBookings) == 0 {
		log.Println("No stale bookings found.")
		return
	}

	expired := 0
	for _, booking := range staleBookings {
		err := db.Transaction(func(tx *gorm.DB) error {
			booking.Status = models.BookingExpired
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}
			return tx.Model(&models.Property{}).Where("id = ?", booking.PropertyID).
				Update("available", true).Error
		})
		if err != nil {
			log.Printf("🔥 Failed to expire booking %s: %v", booking.ID, err)
			continue
		}
		expired++
	}

	log.Printf("Marked %d booking(s) as expired.", expired)
}
