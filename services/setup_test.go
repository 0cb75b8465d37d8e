package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevinmwangi/nyumbani/models"
	"github.com/kevinmwangi/nyumbani/payments"
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

func createTenant(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	tenant := models.User{
		FullName: "Wanjiku Kamau",
		Email:    fmt.Sprintf("tenant-%s@example.com", uuid.NewString()[:8]),
		Password: "hashed",
		Role:     models.RoleTenant,
	}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}
	return tenant
}

func createLease(t *testing.T, db *gorm.DB, tenant models.User, monthlyRent, deposit float64) models.Lease {
	t.Helper()
	landlord := models.User{
		FullName: "Otieno Odhiambo",
		Email:    fmt.Sprintf("landlord-%s@example.com", uuid.NewString()[:8]),
		Password: "hashed",
		Role:     models.RoleLandlord,
	}
	if err := db.Create(&landlord).Error; err != nil {
		t.Fatalf("failed to create landlord: %v", err)
	}

	property := models.Property{
		LandlordID:    landlord.ID,
		Name:          "Kilimani Heights",
		UnitLabel:     "B4",
		MonthlyRent:   monthlyRent,
		DepositAmount: deposit,
		Available:     true,
	}
	if err := db.Create(&property).Error; err != nil {
		t.Fatalf("failed to create property: %v", err)
	}

	lease := models.Lease{
		TenantID:    tenant.ID,
		PropertyID:  property.ID,
		MonthlyRent: monthlyRent,
		StartDate:   time.Now().AddDate(0, -1, 0),
		Active:      true,
	}
	if err := db.Create(&lease).Error; err != nil {
		t.Fatalf("failed to create lease: %v", err)
	}
	return lease
}

type mockGateway struct {
	resp  *payments.STKPushResponse
	err   error
	calls int

	lastPhone  string
	lastAmount float64
}

func (m *mockGateway) InitiateSTKPush(phone string, amount float64, accountReference, description string) (*payments.STKPushResponse, error) {
	m.calls++
	m.lastPhone = phone
	m.lastAmount = amount
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func newTestServices(t *testing.T, gateway payments.Gateway) (*gorm.DB, *PaymentService, *CallbackService, *BillingService) {
	t.Helper()
	db := setupTestDB(t)
	billing := NewBillingService(db)
	payment := NewPaymentService(db, gateway, billing)
	callback := NewCallbackService(db, billing, nil)
	return db, payment, callback, billing
}

func adminCaller() Caller {
	return Caller{ID: uuid.New(), Role: models.RoleAdmin}
}
