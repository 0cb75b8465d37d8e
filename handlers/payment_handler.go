package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kevinmwangi/nyumbani/middleware"
	"github.com/kevinmwangi/nyumbani/models"
	"github.com/kevinmwangi/nyumbani/payments"
	"github.com/kevinmwangi/nyumbani/services"
)

var validate = validator.New()

var (
	paymentService  *services.PaymentService
	callbackService *services.CallbackService
	billingService  *services.BillingService
)

// Init wires the handler package to its services. Called once from main, and
// from tests with lightweight fixtures.
func Init(payment *services.PaymentService, callback *services.CallbackService, billing *services.BillingService) {
	paymentService = payment
	callbackService = callback
	billingService = billing
}

func respondServiceError(c *fiber.Ctx, err error) error {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError
	var permissionErr *services.PermissionError
	var transitionErr *services.IllegalStateTransition
	var gatewayErr *payments.GatewayError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr.Message})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFoundErr.Error()})
	case errors.As(err, &permissionErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": permissionErr.Message})
	case errors.As(err, &transitionErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": transitionErr.Error()})
	case errors.As(err, &gatewayErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": gatewayErr.Message})
	}
	log.Printf("[ERROR] %v | Path: %s", err, c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

type CreatePaymentRequest struct {
	TenantID        string  `json:"tenant_id" validate:"required,uuid"`
	LeaseID         string  `json:"lease_id" validate:"omitempty,uuid"`
	Amount          float64 `json:"amount" validate:"required"`
	Method          string  `json:"method" validate:"required"`
	PhoneNumber     string  `json:"phone_number,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	TransactionCode string  `json:"transaction_code,omitempty"`
}

func CreatePayment(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}

	var req CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tenantID, _ := uuid.Parse(req.TenantID)
	svcReq := services.CreatePaymentRequest{
		TenantID:        tenantID,
		Amount:          req.Amount,
		Method:          req.Method,
		PhoneNumber:     req.PhoneNumber,
		Notes:           req.Notes,
		TransactionCode: req.TransactionCode,
	}
	if req.LeaseID != "" {
		leaseID, _ := uuid.Parse(req.LeaseID)
		svcReq.LeaseID = &leaseID
	}

	payment, err := paymentService.CreatePayment(svcReq, caller)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

type InitiatePaymentRequest struct {
	TenantID    string  `json:"tenant_id" validate:"required,uuid"`
	LeaseID     string  `json:"lease_id" validate:"omitempty,uuid"`
	Amount      float64 `json:"amount" validate:"required"`
	PhoneNumber string  `json:"phone_number" validate:"required"`
	Reference   string  `json:"reference,omitempty"`
	Description string  `json:"description,omitempty"`
}

func InitiateMobileMoneyPayment(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}

	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tenantID, _ := uuid.Parse(req.TenantID)
	svcReq := services.InitiateMobileMoneyRequest{
		TenantID:    tenantID,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
		Reference:   req.Reference,
		Description: req.Description,
	}
	if req.LeaseID != "" {
		leaseID, _ := uuid.Parse(req.LeaseID)
		svcReq.LeaseID = &leaseID
	}

	payment, err := paymentService.InitiateMobileMoneyPayment(svcReq, caller)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(payment)
}

// HandleMpesaCallback receives the gateway webhook. The gateway retries on
// any non-200, so this endpoint ALWAYS acknowledges with a fixed 200 body;
// reconciliation failures are logged and dealt with out of band.
func HandleMpesaCallback(c *fiber.Ctx) error {
	if err := callbackService.ReconcileCallback(c.Body()); err != nil {
		log.Printf("🔥 Webhook reconciliation error: %v", err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func GetPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID format"})
	}

	payment, err := paymentService.GetByID(id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(payment)
}

func ListPayments(c *fiber.Ctx) error {
	if code := c.Query("transaction_code"); code != "" {
		payment, err := paymentService.GetByTransactionCode(code)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON([]interface{}{payment})
	}

	if tenantParam := c.Query("tenant_id"); tenantParam != "" {
		tenantID, err := uuid.Parse(tenantParam)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID format"})
		}
		list, err := paymentService.ListByTenant(tenantID)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(list)
	}

	if statusParam := c.Query("status"); statusParam != "" {
		status, ok := models.ParsePaymentStatus(statusParam)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown payment status: " + statusParam})
		}
		list, err := paymentService.ListByStatus(status)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(list)
	}

	if methodParam := c.Query("method"); methodParam != "" {
		method, ok := models.ParsePaymentMethod(methodParam)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown payment method: " + methodParam})
		}
		list, err := paymentService.ListByMethod(method)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(list)
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Provide one of: transaction_code, tenant_id, status, method",
	})
}

func ListPendingCallbacks(c *fiber.Ctx) error {
	list, err := paymentService.PendingCallbacks()
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

func GetPaymentSummary(c *fiber.Ctx) error {
	summary, err := paymentService.Summary()
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(summary)
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes,omitempty"`
}

func UpdatePaymentStatus(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID format"})
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := paymentService.UpdateStatus(id, req.Status, req.Notes, caller)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(payment)
}

type MarkPaidRequest struct {
	TransactionCode string `json:"transaction_code,omitempty"`
}

func MarkPaymentPaid(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID format"})
	}

	var req MarkPaidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	payment, err := paymentService.MarkAsPaid(id, req.TransactionCode, caller)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(payment)
}

type ReverseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func ReversePayment(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID format"})
	}

	var req ReverseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := paymentService.ReversePayment(id, req.Reason, caller)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(payment)
}

type RefundRequest struct {
	Amount float64 `json:"amount" validate:"required"`
	Reason string  `json:"reason" validate:"required"`
}

func RefundPayment(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID format"})
	}

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := paymentService.RefundPayment(id, req.Amount, req.Reason, caller)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(payment)
}

func DeletePayment(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID format"})
	}

	if err := paymentService.DeletePayment(id, caller); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment deleted"})
}
