package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinmwangi/nyumbani/models"
	"github.com/kevinmwangi/nyumbani/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupWebhookApp(t *testing.T) (*fiber.App, *gorm.DB) {
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

	billing := services.NewBillingService(db)
	payment := services.NewPaymentService(db, nil, billing)
	callback := services.NewCallbackService(db, billing, nil)
	Init(payment, callback, billing)

	app := fiber.New()
	app.Post("/api/v1/payments/mpesa/callback", HandleMpesaCallback)
	return app, db
}

func postCallback(t *testing.T, app *fiber.App, body []byte) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/payments/mpesa/callback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed map[string]interface{}
	json.Unmarshal(raw, &parsed)
	return resp.StatusCode, parsed
}

func TestHandleMpesaCallback(t *testing.T) {
	t.Run("Given a valid settlement callback When posted Then 200 and the payment settles", func(t *testing.T) {
		app, db := setupWebhookApp(t)

		tenant := models.User{FullName: "Achieng Okoth", Email: "achieng@example.com", Password: "x", Role: models.RoleTenant}
		if err := db.Create(&tenant).Error; err != nil {
			t.Fatalf("failed to create tenant: %v", err)
		}
		payment := models.Payment{
			TransactionCode: "ws_CO_h1",
			TenantID:        tenant.ID,
			Amount:          15000,
			Method:          models.MethodMobileMoney,
			Status:          models.PaymentProcessing,
		}
		if err := db.Create(&payment).Error; err != nil {
			t.Fatalf("failed to create payment: %v", err)
		}

		body := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_h1","ResultCode":0,"ResultDesc":"ok","CallbackMetadata":{"Item":[{"Name":"Amount","Value":15000},{"Name":"MpesaReceiptNumber","Value":"RCP001"},{"Name":"PhoneNumber","Value":254712345678}]}}}}`)
		status, ack := postCallback(t, app, body)

		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if ack["ResultCode"] != float64(0) || ack["ResultDesc"] != "Accepted" {
			t.Errorf("unexpected acknowledgement body: %v", ack)
		}

		var updated models.Payment
		if err := db.First(&updated, "id = ?", payment.ID).Error; err != nil {
			t.Fatalf("failed to reload payment: %v", err)
		}
		if updated.Status != models.PaymentSuccessful || updated.TransactionCode != "RCP001" {
			t.Errorf("expected settled payment with receipt code, got %s / %s", updated.Status, updated.TransactionCode)
		}
	})

	t.Run("Given a malformed body When posted Then the gateway still receives 200 with the fixed ack", func(t *testing.T) {
		app, _ := setupWebhookApp(t)

		status, ack := postCallback(t, app, []byte("{{{ definitely not json"))

		if status != fiber.StatusOK {
			t.Fatalf("expected 200 despite reconciliation failure, got %d", status)
		}
		if ack["ResultDesc"] != "Accepted" {
			t.Errorf("expected fixed acknowledgement, got %v", ack)
		}
	})

	t.Run("Given an unknown correlation id When posted Then 200 and nothing is created", func(t *testing.T) {
		app, db := setupWebhookApp(t)

		body := []byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_missing","ResultCode":0,"ResultDesc":"ok"}}}`)
		status, _ := postCallback(t, app, body)

		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		var count int64
		db.Model(&models.Payment{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no payments, got %d", count)
		}
	})
}
