package services

import (
	"fmt"

	"github.com/kevinmwangi/nyumbani/models"
)

// ValidationError rejects bad request input (amount, phone, enum values)
// before any side effect.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Message)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// PermissionError rejects a caller that is neither the resource owner nor
// privileged for the operation.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Message)
}

// IllegalStateTransition rejects a status change outside the payment state
// machine.
type IllegalStateTransition struct {
	From models.PaymentStatus
	To   models.PaymentStatus
}

func (e *IllegalStateTransition) Error() string {
	return fmt.Sprintf("illegal payment status transition: %s -> %s", e.From, e.To)
}

// ReconciliationError marks a malformed webhook payload. It is logged and
// never mutates payment state.
type ReconciliationError struct {
	Message string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed: %s", e.Message)
}
