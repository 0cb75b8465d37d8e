package services

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kevinmwangi/nyumbani/events"
	"github.com/kevinmwangi/nyumbani/models"
	"github.com/kevinmwangi/nyumbani/payments"
	"github.com/kevinmwangi/nyumbani/utils"
	"gorm.io/gorm"
)

// Caller is the explicit identity of the authenticated user driving an
// operation. Handlers build it from JWT claims; services never read ambient
// session state.
type Caller struct {
	ID   uuid.UUID
	Role string
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

func (c Caller) IsPrivileged() bool {
	return c.Role == models.RoleAdmin || c.Role == models.RoleLandlord
}

// PaymentService drives the payment lifecycle: creation, gateway initiation,
// and the guarded status state machine.
type PaymentService struct {
	DB      *gorm.DB
	Gateway payments.Gateway
	Billing *BillingService
}

func NewPaymentService(db *gorm.DB, gateway payments.Gateway, billing *BillingService) *PaymentService {
	return &PaymentService{DB: db, Gateway: gateway, Billing: billing}
}

type CreatePaymentRequest struct {
	TenantID        uuid.UUID
	LeaseID         *uuid.UUID
	Amount          float64
	Method          string
	PhoneNumber     string
	Notes           string
	TransactionCode string
}

// CreatePayment records a manual payment. CASH auto-completes; every other
// method starts PENDING and waits for confirmation.
func (s *PaymentService) CreatePayment(req CreatePaymentRequest, caller Caller) (*models.Payment, error) {
	if caller.ID != req.TenantID && !caller.IsAdmin() {
		return nil, &PermissionError{Message: "only the tenant or an administrator may record this payment"}
	}
	if req.Amount <= 0 {
		return nil, &ValidationError{Message: "amount must be greater than zero"}
	}

	method, ok := models.ParsePaymentMethod(req.Method)
	if !ok {
		return nil, &ValidationError{Message: "unknown payment method: " + req.Method}
	}

	var phone *string
	if method.RequiresPhoneNumber() {
		normalized, ok := payments.NormalizePhoneNumber(req.PhoneNumber)
		if !ok {
			return nil, &ValidationError{Message: "invalid phone number: " + req.PhoneNumber}
		}
		phone = &normalized
	} else if req.PhoneNumber != "" {
		normalized, _ := payments.NormalizePhoneNumber(req.PhoneNumber)
		phone = &normalized
	}

	var tenant models.User
	if err := s.DB.First(&tenant, "id = ?", req.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "tenant", ID: req.TenantID.String()}
		}
		return nil, err
	}
	if req.LeaseID != nil {
		var lease models.Lease
		if err := s.DB.First(&lease, "id = ?", req.LeaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Resource: "lease", ID: req.LeaseID.String()}
			}
			return nil, err
		}
	}

	code := req.TransactionCode
	if code == "" {
		var err error
		code, err = utils.GenerateTransactionCode(s.DB)
		if err != nil {
			return nil, err
		}
	}

	payment := models.Payment{
		TransactionCode: code,
		TenantID:        req.TenantID,
		LeaseID:         req.LeaseID,
		PhoneNumber:     phone,
		Amount:          req.Amount,
		Method:          method,
		Status:          models.PaymentPending,
	}
	if req.Notes != "" {
		payment.Notes = &req.Notes
	}
	if method == models.MethodCash {
		now := time.Now()
		payment.Status = models.PaymentSuccessful
		payment.PaidAt = &now
	}

	if err := s.DB.Create(&payment).Error; err != nil {
		return nil, err
	}
	events.Publish("payment.create", "payment", payment.EntityID(), string(payment.Status))

	if payment.Status == models.PaymentSuccessful {
		s.settle(&payment)
	}

	return &payment, nil
}

type InitiateMobileMoneyRequest struct {
	TenantID    uuid.UUID
	LeaseID     *uuid.UUID
	Amount      float64
	PhoneNumber string
	Reference   string
	Description string
}

// InitiateMobileMoneyPayment pushes a payment prompt to the tenant's device.
// A Payment is persisted only once the gateway has accepted the initiation;
// its transaction code is the gateway's CheckoutRequestID until settlement.
func (s *PaymentService) InitiateMobileMoneyPayment(req InitiateMobileMoneyRequest, caller Caller) (*models.Payment, error) {
	if caller.ID != req.TenantID && !caller.IsAdmin() {
		return nil, &PermissionError{Message: "only the tenant or an administrator may initiate this payment"}
	}
	if req.Amount <= 0 {
		return nil, &ValidationError{Message: "amount must be greater than zero"}
	}
	phone, ok := payments.NormalizePhoneNumber(req.PhoneNumber)
	if !ok {
		return nil, &ValidationError{Message: "invalid phone number: " + req.PhoneNumber}
	}

	resp, err := s.Gateway.InitiateSTKPush(phone, req.Amount, req.Reference, req.Description)
	if err != nil {
		events.Publish("payment.initiate", "payment", req.Reference, "gateway_rejected")
		return nil, err
	}

	raw, _ := json.Marshal(resp)
	rawStr := string(raw)
	payment := models.Payment{
		TransactionCode: resp.CheckoutRequestID,
		TenantID:        req.TenantID,
		LeaseID:         req.LeaseID,
		PhoneNumber:     &phone,
		Amount:          req.Amount,
		Method:          models.MethodMobileMoney,
		Status:          models.PaymentProcessing,
		GatewayResponse: &rawStr,
	}
	if err := s.DB.Create(&payment).Error; err != nil {
		return nil, err
	}

	events.Publish("payment.initiate", "payment", payment.EntityID(), "accepted")
	return &payment, nil
}

// UpdateStatus applies a manual transition from the state machine. Privileged
// callers only.
func (s *PaymentService) UpdateStatus(id uuid.UUID, newStatus string, notes string, caller Caller) (*models.Payment, error) {
	if !caller.IsPrivileged() {
		return nil, &PermissionError{Message: "only an administrator or landlord may change payment status"}
	}
	status, ok := models.ParsePaymentStatus(newStatus)
	if !ok {
		return nil, &ValidationError{Message: "unknown payment status: " + newStatus}
	}

	payment, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !payment.Status.CanTransitionTo(status) {
		return nil, &IllegalStateTransition{From: payment.Status, To: status}
	}

	payment.Status = status
	if notes != "" {
		payment.Notes = &notes
	}
	if status == models.PaymentSuccessful && payment.PaidAt == nil {
		now := time.Now()
		payment.PaidAt = &now
	}
	if err := s.DB.Save(payment).Error; err != nil {
		return nil, err
	}
	events.Publish("payment.update_status", "payment", payment.EntityID(), string(status))

	if status == models.PaymentSuccessful {
		s.settle(payment)
	}
	return payment, nil
}

// MarkAsPaid settles a PENDING payment by hand, for settlements confirmed
// outside the gateway (bank slip, cheque clearance).
func (s *PaymentService) MarkAsPaid(id uuid.UUID, manualCode string, caller Caller) (*models.Payment, error) {
	if !caller.IsPrivileged() {
		return nil, &PermissionError{Message: "only an administrator or landlord may mark a payment as paid"}
	}

	payment, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !payment.Status.CanTransitionTo(models.PaymentSuccessful) {
		return nil, &IllegalStateTransition{From: payment.Status, To: models.PaymentSuccessful}
	}

	now := time.Now()
	payment.Status = models.PaymentSuccessful
	payment.PaidAt = &now
	if manualCode != "" {
		payment.TransactionCode = manualCode
	}
	if err := s.DB.Save(payment).Error; err != nil {
		return nil, err
	}
	events.Publish("payment.mark_paid", "payment", payment.EntityID(), string(models.PaymentSuccessful))

	s.settle(payment)
	return payment, nil
}

// ReversePayment administratively reverses a settled payment.
func (s *PaymentService) ReversePayment(id uuid.UUID, reason string, caller Caller) (*models.Payment, error) {
	if !caller.IsAdmin() {
		return nil, &PermissionError{Message: "only an administrator may reverse a payment"}
	}

	payment, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !payment.Status.CanTransitionTo(models.PaymentReversed) {
		return nil, &IllegalStateTransition{From: payment.Status, To: models.PaymentReversed}
	}

	payment.Status = models.PaymentReversed
	if reason != "" {
		payment.Notes = &reason
	}
	if err := s.DB.Save(payment).Error; err != nil {
		return nil, err
	}
	events.Publish("payment.reverse", "payment", payment.EntityID(), string(models.PaymentReversed))
	return payment, nil
}

// RefundPayment refunds a settled payment, fully or partially. The monthly
// ledger is not reopened for the originating month.
func (s *PaymentService) RefundPayment(id uuid.UUID, refundAmount float64, reason string, caller Caller) (*models.Payment, error) {
	if !caller.IsAdmin() {
		return nil, &PermissionError{Message: "only an administrator may refund a payment"}
	}

	payment, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if refundAmount <= 0 || refundAmount > payment.Amount {
		return nil, &ValidationError{Message: "refund amount must be positive and no greater than the payment amount"}
	}
	if !payment.Status.CanTransitionTo(models.PaymentRefunded) {
		return nil, &IllegalStateTransition{From: payment.Status, To: models.PaymentRefunded}
	}

	payment.Status = models.PaymentRefunded
	if reason != "" {
		payment.Notes = &reason
	}
	if err := s.DB.Save(payment).Error; err != nil {
		return nil, err
	}
	events.Publish("payment.refund", "payment", payment.EntityID(), string(models.PaymentRefunded))
	return payment, nil
}

// DeletePayment removes a payment that never left PENDING.
func (s *PaymentService) DeletePayment(id uuid.UUID, caller Caller) error {
	payment, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if caller.ID != payment.TenantID && !caller.IsAdmin() {
		return &PermissionError{Message: "only the owning tenant or an administrator may delete this payment"}
	}
	if payment.Status != models.PaymentPending {
		return &IllegalStateTransition{From: payment.Status, To: "DELETED"}
	}

	if err := s.DB.Delete(payment).Error; err != nil {
		return err
	}
	events.Publish("payment.delete", "payment", payment.EntityID(), "deleted")
	return nil
}

func (s *PaymentService) GetByID(id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.DB.First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "payment", ID: id.String()}
		}
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentService) GetByTransactionCode(code string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.DB.First(&payment, "transaction_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "payment", ID: code}
		}
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentService) ListByTenant(tenantID uuid.UUID) ([]models.Payment, error) {
	var list []models.Payment
	err := s.DB.Where("tenant_id = ?", tenantID).Order("created_at desc").Find(&list).Error
	return list, err
}

func (s *PaymentService) ListByStatus(status models.PaymentStatus) ([]models.Payment, error) {
	var list []models.Payment
	err := s.DB.Where("status = ?", status).Order("created_at desc").Find(&list).Error
	return list, err
}

func (s *PaymentService) ListByMethod(method models.PaymentMethod) ([]models.Payment, error) {
	var list []models.Payment
	err := s.DB.Where("method = ?", method).Order("created_at desc").Find(&list).Error
	return list, err
}

// PendingCallbacks lists mobile-money payments still waiting on the gateway's
// webhook.
func (s *PaymentService) PendingCallbacks() ([]models.Payment, error) {
	var list []models.Payment
	err := s.DB.Where("method = ? AND callback_received = ?", models.MethodMobileMoney, false).
		Order("created_at asc").Find(&list).Error
	return list, err
}

type statusBreakdown struct {
	Status models.PaymentStatus `json:"status"`
	Count  int64                `json:"count"`
	Total  float64              `json:"total"`
}

type methodBreakdown struct {
	Method models.PaymentMethod `json:"method"`
	Count  int64                `json:"count"`
	Total  float64              `json:"total"`
}

type dailyRevenue struct {
	Day   string  `json:"day"`
	Total float64 `json:"total"`
}

type PaymentSummary struct {
	ByStatus     []statusBreakdown `json:"by_status"`
	ByMethod     []methodBreakdown `json:"by_method"`
	DailyRevenue []dailyRevenue    `json:"daily_revenue"`
}

// Summary aggregates counts and sums by status and method, plus settled
// revenue per day over the trailing seven days.
func (s *PaymentService) Summary() (*PaymentSummary, error) {
	var summary PaymentSummary

	err := s.DB.Model(&models.Payment{}).
		Select("status, count(*) as count, coalesce(sum(amount), 0) as total").
		Group("status").Scan(&summary.ByStatus).Error
	if err != nil {
		return nil, err
	}

	err = s.DB.Model(&models.Payment{}).
		Select("method, count(*) as count, coalesce(sum(amount), 0) as total").
		Group("method").Scan(&summary.ByMethod).Error
	if err != nil {
		return nil, err
	}

	windowStart := time.Now().AddDate(0, 0, -7)
	var settled []models.Payment
	err = s.DB.Where("status = ? AND paid_at >= ?", models.PaymentSuccessful, windowStart).
		Order("paid_at asc").Find(&settled).Error
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]float64)
	var days []string
	for _, p := range settled {
		if p.PaidAt == nil {
			continue
		}
		day := p.PaidAt.Format("2006-01-02")
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day] += p.Amount
	}
	for _, day := range days {
		summary.DailyRevenue = append(summary.DailyRevenue, dailyRevenue{Day: day, Total: byDay[day]})
	}

	return &summary, nil
}

// settle runs the post-success side effects: ledger aggregation and booking
// settlement. Failures are logged; the payment itself is already terminal.
func (s *PaymentService) settle(payment *models.Payment) {
	if err := s.Billing.ApplyPayment(payment); err != nil {
		log.Printf("🔥 Failed to apply payment %s to monthly ledger: %v", payment.ID, err)
	}
	if err := SettleBooking(s.DB, payment); err != nil {
		log.Printf("🔥 Failed to settle booking for payment %s: %v", payment.ID, err)
	}
}
