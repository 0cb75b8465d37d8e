package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kevinmwangi/nyumbani/middleware"
)

func GetCurrentMonthBilling(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID format"})
	}
	if caller.ID != tenantID && !caller.IsPrivileged() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	record, err := billingService.CurrentMonth(tenantID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No billing record for the current month"})
	}
	return c.JSON(record)
}

func GetBillingHistory(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID format"})
	}
	if caller.ID != tenantID && !caller.IsPrivileged() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var year *int
	if yearParam := c.Query("year"); yearParam != "" {
		parsed, err := strconv.Atoi(yearParam)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid year"})
		}
		year = &parsed
	}

	records, err := billingService.History(tenantID, year)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(records)
}

func GetBillingTotals(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(c.Params("tenantId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID format"})
	}
	if caller.ID != tenantID && !caller.IsPrivileged() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	totals, err := billingService.Totals(tenantID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(totals)
}
