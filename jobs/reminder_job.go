package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/kevinmwangi/nyumbani/models"
	"github.com/kevinmwangi/nyumbani/notifications"
	"gorm.io/gorm"
)

const reminderWindowDays = 7

// SendBalanceReminders scans pending ledger months and nudges tenants whose
// payment deadline is near or already past. Pure notification side effect; no
// payment or ledger state changes here. One bad record is logged and skipped.
func SendBalanceReminders(db *gorm.DB, notifier notifications.Notifier) {
	log.Println("Running job: SendBalanceReminders...")

	now := time.Now()
	windowEnd := now.AddDate(0, 0, reminderWindowDays)

	var pending []models.MonthlyPaymentHistory
	err := db.Preload("Tenant").
		Where("status = ? AND balance > 0 AND payment_deadline <= ?", models.BillingPending, windowEnd).
		Find(&pending).Error
	if err != nil {
		log.Printf("Error scanning pending balances: %v", err)
		return
	}

	for _, record := range pending {
		if record.Tenant.Email == "" {
			log.Printf("⚠️ Ledger record %s has no tenant email, skipping", record.ID)
			continue
		}

		if record.PaymentDeadline.Before(now) {
			daysOverdue := int(now.Sub(record.PaymentDeadline).Hours() / 24)
			message := fmt.Sprintf(
				"Your rent balance of KES %.2f for %d/%d is overdue by %d day(s). Please settle it as soon as possible.",
				record.Balance, record.Month, record.Year, daysOverdue,
			)
			notifier.SendReminder(record.Tenant, message, notifications.ReminderBalanceOverdue)
			continue
		}

		balanceText := fmt.Sprintf(
			"You have an outstanding rent balance of KES %.2f for %d/%d, due by %s.",
			record.Balance, record.Month, record.Year, record.PaymentDeadline.Format("02 Jan 2006"),
		)
		notifier.SendBalanceReminder(record.Tenant, balanceText)
	}

	if len(pending) > 0 {
		log.Printf("Sent balance reminders for %d ledger record(s).", len(pending))
	}
}

// SendBookingDeadlineReminders nudges tenants holding a property whose rent
// payment deadline falls within the next week.
func SendBookingDeadlineReminders(db *gorm.DB, notifier notifications.Notifier) {
	log.Println("Running job: SendBookingDeadlineReminders...")

	now := time.Now()
	windowEnd := now.AddDate(0, 0, reminderWindowDays)

	var bookings []models.Booking
	err := db.Preload("Tenant").Preload("Property").
		Where("status = ? AND rent_paid = ? AND payment_deadline BETWEEN ? AND ?",
			models.BookingActive, false, now, windowEnd).
		Find(&bookings).Error
	if err != nil {
		log.Printf("Error scanning active bookings: %v", err)
		return
	}

	for _, booking := range bookings {
		if booking.Tenant.Email == "" {
			log.Printf("⚠️ Booking %s has no tenant email, skipping", booking.ID)
			continue
		}

		daysRemaining := int(booking.PaymentDeadline.Sub(now).Hours() / 24)
		message := fmt.Sprintf(
			"Your booking on %s requires a rent payment of KES %.2f within %d day(s) to stay active.",
			booking.Property.Name, booking.Property.MonthlyRent, daysRemaining,
		)
		notifier.SendReminder(booking.Tenant, message, notifications.ReminderBookingDeadline)
	}

	if len(bookings) > 0 {
		log.Printf("Sent deadline reminders for %d booking(s).", len(bookings))
	}
}
