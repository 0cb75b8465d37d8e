package notifications

import (
	"fmt"

	"github.com/kevinmwangi/nyumbani/models"
)

const (
	ReminderBalanceDue      = "BALANCE_DUE"
	ReminderBalanceOverdue  = "BALANCE_OVERDUE"
	ReminderBookingDeadline = "BOOKING_DEADLINE"
)

// Notifier is the outbound notification collaborator used by the scheduled
// sweeps. Sends are fire-and-forget; failures are logged by the
// implementation and never propagated.
type Notifier interface {
	SendReminder(user models.User, message string, reminderType string)
	SendBalanceReminder(user models.User, balanceText string)
}

// EmailNotifier delivers reminders over the Brevo email service.
type EmailNotifier struct{}

func (EmailNotifier) SendReminder(user models.User, message string, reminderType string) {
	subject := "Payment Reminder"
	if reminderType == ReminderBalanceOverdue {
		subject = "Overdue Rent Notice"
	} else if reminderType == ReminderBookingDeadline {
		subject = "Booking Payment Deadline"
	}
	go SendEmail(user.FullName, user.Email, subject, fmt.Sprintf("<p>Hi %s,</p><p>%s</p>", user.FullName, message))
}

func (EmailNotifier) SendBalanceReminder(user models.User, balanceText string) {
	body := fmt.Sprintf("<p>Hi %s,</p><p>%s</p>", user.FullName, balanceText)
	go SendEmail(user.FullName, user.Email, "Rent Balance Reminder", body)
}
