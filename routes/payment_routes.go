package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinmwangi/nyumbani/handlers"
	"github.com/kevinmwangi/nyumbani/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// The gateway posts here unauthenticated; the handler always ACKs 200.
	api.Post("/payments/mpesa/callback", handlers.HandleMpesaCallback)

	payments := api.Group("/payments", middleware.Protected())
	payments.Post("/", handlers.CreatePayment)
	payments.Post("/initiate", handlers.InitiateMobileMoneyPayment)
	payments.Get("/pending-callbacks", middleware.AdminRequired(), handlers.ListPendingCallbacks)
	payments.Get("/summary", middleware.AdminRequired(), handlers.GetPaymentSummary)
	payments.Get("/", handlers.ListPayments)
	payments.Get("/:id", handlers.GetPayment)
	payments.Patch("/:id/status", handlers.UpdatePaymentStatus)
	payments.Post("/:id/mark-paid", handlers.MarkPaymentPaid)
	payments.Post("/:id/reverse", middleware.AdminRequired(), handlers.ReversePayment)
	payments.Post("/:id/refund", middleware.AdminRequired(), handlers.RefundPayment)
	payments.Delete("/:id", handlers.DeletePayment)
}
