package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinmwangi/nyumbani/handlers"
	"github.com/kevinmwangi/nyumbani/middleware"
)

func FeedRoutes(app *fiber.App) {
	app.Get("/ws/payments/feed",
		handlers.RequireWebsocketUpgrade,
		middleware.Protected(),
		middleware.AdminRequired(),
		handlers.PaymentFeedSocket(),
	)
}
