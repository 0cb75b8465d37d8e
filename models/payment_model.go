package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentSuccessful PaymentStatus = "SUCCESSFUL"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
	PaymentReversed   PaymentStatus = "REVERSED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCheque       PaymentMethod = "CHEQUE"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodDebitCard    PaymentMethod = "DEBIT_CARD"
	MethodMobileWallet PaymentMethod = "MOBILE_WALLET"
	MethodOther        PaymentMethod = "OTHER"
)

var paymentStatuses = map[PaymentStatus]bool{
	PaymentPending: true, PaymentProcessing: true, PaymentSuccessful: true,
	PaymentFailed: true, PaymentCancelled: true, PaymentReversed: true,
	PaymentRefunded: true,
}

var paymentMethods = map[PaymentMethod]bool{
	MethodCash: true, MethodMobileMoney: true, MethodBankTransfer: true,
	MethodCheque: true, MethodCreditCard: true, MethodDebitCard: true,
	MethodMobileWallet: true, MethodOther: true,
}

// ParsePaymentStatus reports false for any value outside the closed set.
// External input must never panic or error its way into a raw status string.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	status := PaymentStatus(s)
	return status, paymentStatuses[status]
}

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	method := PaymentMethod(s)
	return method, paymentMethods[method]
}

// IsTerminal reports whether no further callback-driven transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentSuccessful, PaymentFailed, PaymentCancelled, PaymentReversed, PaymentRefunded:
		return true
	}
	return false
}

var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentSuccessful, PaymentCancelled},
	PaymentProcessing: {PaymentSuccessful, PaymentFailed},
	PaymentSuccessful: {PaymentReversed, PaymentRefunded},
}

// CanTransitionTo checks the payment status state machine. Every pair not
// listed in allowedTransitions is rejected.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// RequiresPhoneNumber reports whether the method is settled against a
// subscriber phone number.
func (m PaymentMethod) RequiresPhoneNumber() bool {
	return m == MethodMobileMoney || m == MethodMobileWallet
}

type Payment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TransactionCode string     `gorm:"size:100;not null;unique" json:"transaction_code"`
	TenantID        uuid.UUID  `gorm:"not null" json:"tenant_id"`
	LeaseID         *uuid.UUID `json:"lease_id"`
	PhoneNumber     *string    `gorm:"size:20" json:"phone_number"`
	Amount          float64    `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method          PaymentMethod `gorm:"size:20;not null" json:"method"`
	Status          PaymentStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`

	GatewayResponse  *string    `gorm:"type:text" json:"-"`
	CallbackReceived bool       `gorm:"default:false" json:"callback_received"`
	PaidAt           *time.Time `json:"paid_at"`
	ReceiptURL       *string    `gorm:"size:255" json:"receipt_url"`
	Notes            *string    `gorm:"type:text" json:"notes"`

	Tenant User  `gorm:"foreignkey:TenantID" json:"-"`
	Lease  Lease `gorm:"foreignkey:LeaseID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID identifies the payment for audit events.
func (p *Payment) EntityID() string {
	return p.ID.String()
}
