package services

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/kevinmwangi/nyumbani/events"
	"github.com/kevinmwangi/nyumbani/models"
	"gorm.io/gorm"
)

// WebhookPayload is the gateway's nested stkCallback envelope.
type WebhookPayload struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackService reconciles gateway webhooks against local payment state.
type CallbackService struct {
	DB       *gorm.DB
	Billing  *BillingService
	Receipts *ReceiptService
}

func NewCallbackService(db *gorm.DB, billing *BillingService, receipts *ReceiptService) *CallbackService {
	return &CallbackService{DB: db, Billing: billing, Receipts: receipts}
}

// ReconcileCallback applies one webhook delivery. The gateway delivers
// at-least-once, so a payment that is already terminal is left strictly
// untouched; re-delivery of the same settlement must not double-apply the
// monthly ledger.
func (s *CallbackService) ReconcileCallback(raw []byte) error {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &ReconciliationError{Message: "cannot parse webhook payload: " + err.Error()}
	}

	stk := payload.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		return &ReconciliationError{Message: "webhook payload has no CheckoutRequestID"}
	}

	log.Printf("Received webhook for CheckoutRequestID: %s, ResultCode: %d", stk.CheckoutRequestID, stk.ResultCode)

	var payment models.Payment
	err := s.DB.Where("transaction_code = ?", stk.CheckoutRequestID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Unrecoverable mismatch; acknowledge so the gateway stops retrying.
		log.Printf("⚠️ No payment matches correlation id %s, ignoring callback", stk.CheckoutRequestID)
		return nil
	}
	if err != nil {
		return err
	}

	if payment.Status.IsTerminal() {
		log.Printf("Callback for payment %s already processed (status %s), no-op", payment.ID, payment.Status)
		return nil
	}

	rawStr := string(raw)

	if stk.ResultCode != 0 {
		payment.Status = models.PaymentFailed
		payment.GatewayResponse = &rawStr
		payment.CallbackReceived = true
		if err := s.DB.Save(&payment).Error; err != nil {
			return err
		}
		events.Publish("payment.callback", "payment", payment.EntityID(), string(models.PaymentFailed))
		log.Printf("Payment %s failed at gateway: %s", payment.ID, stk.ResultDesc)
		return nil
	}

	receipt, amount, phone := extractMetadata(stk.CallbackMetadata.Item)

	now := time.Now()
	payment.Status = models.PaymentSuccessful
	payment.PaidAt = &now
	payment.GatewayResponse = &rawStr
	payment.CallbackReceived = true
	if receipt != "" {
		payment.TransactionCode = receipt
	}
	if amount > 0 {
		payment.Amount = amount
	}
	if phone != "" {
		payment.PhoneNumber = &phone
	}
	if err := s.DB.Save(&payment).Error; err != nil {
		return err
	}
	events.Publish("payment.callback", "payment", payment.EntityID(), string(models.PaymentSuccessful))

	if err := s.Billing.ApplyPayment(&payment); err != nil {
		log.Printf("🔥 Failed to apply payment %s to monthly ledger: %v", payment.ID, err)
	}
	if err := SettleBooking(s.DB, &payment); err != nil {
		log.Printf("🔥 Failed to settle booking for payment %s: %v", payment.ID, err)
	}
	if s.Receipts != nil {
		go s.Receipts.GenerateForPayment(payment.ID)
	}

	return nil
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// extractMetadata pulls receipt number, confirmed amount and phone number out
// of the callback metadata list. Numeric values arrive as JSON numbers, phone
// numbers sometimes as numbers too.
func extractMetadata(items []CallbackItem) (receipt string, amount float64, phone string) {
	for _, item := range items {
		switch item.Name {
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				receipt = v
			}
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				amount = v
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case string:
				phone = v
			case float64:
				phone = strconv.FormatFloat(v, 'f', 0, 64)
			}
		}
	}
	return receipt, amount, phone
}
