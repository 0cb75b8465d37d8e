package jobs

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevinmwangi/nyumbani/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Lease{},
		&models.Payment{},
		&models.MonthlyPaymentHistory{},
		&models.Booking{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTenantAndProperty(t *testing.T, db *gorm.DB) (models.User, models.Property) {
	t.Helper()
	tenant := models.User{
		FullName: "Njeri Mwangi",
		Email:    fmt.Sprintf("tenant-%s@example.com", uuid.NewString()[:8]),
		Password: "hashed",
		Role:     models.RoleTenant,
	}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}
	property := models.Property{
		LandlordID:  uuid.New(),
		Name:        "Lavington Court",
		MonthlyRent: 40000,
		Available:   false,
	}
	if err := db.Create(&property).Error; err != nil {
		t.Fatalf("failed to create property: %v", err)
	}
	return tenant, property
}

type recordedReminder struct {
	email        string
	message      string
	reminderType string
}

type mockNotifier struct {
	reminders        []recordedReminder
	balanceReminders []recordedReminder
}

func (m *mockNotifier) SendReminder(user models.User, message string, reminderType string) {
	m.reminders = append(m.reminders, recordedReminder{email: user.Email, message: message, reminderType: reminderType})
}

func (m *mockNotifier) SendBalanceReminder(user models.User, balanceText string) {
	m.balanceReminders = append(m.balanceReminders, recordedReminder{email: user.Email, message: balanceText})
}

func TestExpireStaleBookings(t *testing.T) {
	t.Run("Given an ACTIVE booking past expiry When swept Then it expires and the property reopens", func(t *testing.T) {
		db := setupTestDB(t)
		tenant, property := createTenantAndProperty(t, db)

		booking := models.Booking{
			TenantID:   tenant.ID,
			PropertyID: property.ID,
			Status:     models.BookingActive,
			ExpiryDate: time.Now().AddDate(0, 0, -1),
		}
		if err := db.Create(&booking).Error; err != nil {
			t.Fatalf("failed to create booking: %v", err)
		}

		ExpireStaleBookings(db)

		var sweptBooking models.Booking
		if err := db.First(&sweptBooking, "id = ?", booking.ID).Error; err != nil {
			t.Fatalf("failed to reload booking: %v", err)
		}
		if sweptBooking.Status != models.BookingExpired {
			t.Errorf("expected EXPIRED, got %s", sweptBooking.Status)
		}

		var reopened models.Property
		if err := db.First(&reopened, "id = ?", property.ID).Error; err != nil {
			t.Fatalf("failed to reload property: %v", err)
		}
		if !reopened.Available {
			t.Error("expected property to be available again")
		}
	})

	t.Run("Given a booking expiring tomorrow When swept Then it stays ACTIVE", func(t *testing.T) {
		db := setupTestDB(t)
		tenant, property := createTenantAndProperty(t, db)

		booking := models.Booking{
			TenantID:   tenant.ID,
			PropertyID: property.ID,
			Status:     models.BookingActive,
			ExpiryDate: time.Now().AddDate(0, 0, 1),
		}
		if err := db.Create(&booking).Error; err != nil {
			t.Fatalf("failed to create booking: %v", err)
		}

		ExpireStaleBookings(db)

		var untouched models.Booking
		if err := db.First(&untouched, "id = ?", booking.ID).Error; err != nil {
			t.Fatalf("failed to reload booking: %v", err)
		}
		if untouched.Status != models.BookingActive {
			t.Errorf("expected booking to stay ACTIVE, got %s", untouched.Status)
		}
	})
}

func TestSendBalanceReminders(t *testing.T) {
	createLedgerRow := func(t *testing.T, db *gorm.DB, tenant models.User, property models.Property, deadline time.Time, balance float64) models.MonthlyPaymentHistory {
		t.Helper()
		record := models.MonthlyPaymentHistory{
			TenantID:        tenant.ID,
			PropertyID:      property.ID,
			Month:           int(deadline.Month()),
			Year:            deadline.Year(),
			TotalDue:        balance,
			TotalPaid:       0,
			Balance:         balance,
			Status:          models.BillingPending,
			PaymentDeadline: deadline,
		}
		if err := db.Create(&record).Error; err != nil {
			t.Fatalf("failed to create ledger row: %v", err)
		}
		return record
	}

	t.Run("Given a deadline three days out When swept Then a balance reminder is sent", func(t *testing.T) {
		db := setupTestDB(t)
		tenant, property := createTenantAndProperty(t, db)
		createLedgerRow(t, db, tenant, property, time.Now().AddDate(0, 0, 3), 12000)

		notifier := &mockNotifier{}
		SendBalanceReminders(db, notifier)

		if len(notifier.balanceReminders) != 1 {
			t.Fatalf("expected 1 balance reminder, got %d", len(notifier.balanceReminders))
		}
		if notifier.balanceReminders[0].email != tenant.Email {
			t.Errorf("reminder sent to %s, expected %s", notifier.balanceReminders[0].email, tenant.Email)
		}
		if len(notifier.reminders) != 0 {
			t.Errorf("expected no overdue notices, got %d", len(notifier.reminders))
		}
	})

	t.Run("Given a deadline five days past When swept Then an overdue notice with days-overdue is sent", func(t *testing.T) {
		db := setupTestDB(t)
		tenant, property := createTenantAndProperty(t, db)
		createLedgerRow(t, db, tenant, property, time.Now().AddDate(0, 0, -5), 12000)

		notifier := &mockNotifier{}
		SendBalanceReminders(db, notifier)

		if len(notifier.reminders) != 1 {
			t.Fatalf("expected 1 overdue notice, got %d", len(notifier.reminders))
		}
		notice := notifier.reminders[0]
		if notice.reminderType != "BALANCE_OVERDUE" {
			t.Errorf("expected BALANCE_OVERDUE, got %s", notice.reminderType)
		}
		if !strings.Contains(notice.message, "overdue by 5 day(s)") {
			t.Errorf("expected days-overdue in message, got %q", notice.message)
		}
	})

	t.Run("Given a settled month When swept Then no reminder is sent", func(t *testing.T) {
		db := setupTestDB(t)
		tenant, property := createTenantAndProperty(t, db)
		record := createLedgerRow(t, db, tenant, property, time.Now().AddDate(0, 0, 2), 0)
		record.Status = models.BillingSuccessful
		if err := db.Save(&record).Error; err != nil {
			t.Fatalf("failed to settle ledger row: %v", err)
		}

		notifier := &mockNotifier{}
		SendBalanceReminders(db, notifier)

		if len(notifier.reminders)+len(notifier.balanceReminders) != 0 {
			t.Error("expected no notifications for a settled month")
		}
	})
}

func TestSendBookingDeadlineReminders(t *testing.T) {
	t.Run("Given an unpaid booking due in three days When swept Then a deadline reminder is sent", func(t *testing.T) {
		db := setupTestDB(t)
		tenant, property := createTenantAndProperty(t, db)

		booking := models.Booking{
			TenantID:        tenant.ID,
			PropertyID:      property.ID,
			Status:          models.BookingActive,
			RentPaid:        false,
			ExpiryDate:      time.Now().AddDate(0, 0, 10),
			PaymentDeadline: time.Now().AddDate(0, 0, 3),
		}
		if err := db.Create(&booking).Error; err != nil {
			t.Fatalf("failed to create booking: %v", err)
		}

		notifier := &mockNotifier{}
		SendBookingDeadlineReminders(db, notifier)

		if len(notifier.reminders) != 1 {
			t.Fatalf("expected 1 reminder, got %d", len(notifier.reminders))
		}
		reminder := notifier.reminders[0]
		if reminder.reminderType != "BOOKING_DEADLINE" {
			t.Errorf("expected BOOKING_DEADLINE, got %s", reminder.reminderType)
		}
		if !strings.Contains(reminder.message, "40000.00") {
			t.Errorf("expected rent amount in message, got %q", reminder.message)
		}
	})

	t.Run("Given a booking with the rent already paid When swept Then no reminder is sent", func(t *testing.T) {
		db := setupTestDB(t)
		tenant, property := createTenantAndProperty(t, db)

		booking := models.Booking{
			TenantID:        tenant.ID,
			PropertyID:      property.ID,
			Status:          models.BookingActive,
			RentPaid:        true,
			ExpiryDate:      time.Now().AddDate(0, 0, 10),
			PaymentDeadline: time.Now().AddDate(0, 0, 3),
		}
		if err := db.Create(&booking).Error; err != nil {
			t.Fatalf("failed to create booking: %v", err)
		}

		notifier := &mockNotifier{}
		SendBookingDeadlineReminders(db, notifier)

		if len(notifier.reminders) != 0 {
			t.Errorf("expected no reminders, got %d", len(notifier.reminders))
		}
	})
}
