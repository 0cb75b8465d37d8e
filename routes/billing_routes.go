package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinmwangi/nyumbani/handlers"
	"github.com/kevinmwangi/nyumbani/middleware"
)

func BillingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	billing := api.Group("/billing", middleware.Protected())
	billing.Get("/tenants/:tenantId/current", handlers.GetCurrentMonthBilling)
	billing.Get("/tenants/:tenantId/history", handlers.GetBillingHistory)
	billing.Get("/tenants/:tenantId/totals", handlers.GetBillingTotals)
}
