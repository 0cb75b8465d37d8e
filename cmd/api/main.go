package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kevinmwangi/nyumbani/database"
	"github.com/kevinmwangi/nyumbani/events"
	"github.com/kevinmwangi/nyumbani/handlers"
	"github.com/kevinmwangi/nyumbani/jobs"
	"github.com/kevinmwangi/nyumbani/notifications"
	"github.com/kevinmwangi/nyumbani/payments"
	"github.com/kevinmwangi/nyumbani/routes"
	"github.com/kevinmwangi/nyumbani/services"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	gateway := payments.NewClientFromEnv()
	billingService := services.NewBillingService(database.DB)
	receiptService := services.NewReceiptService(database.DB)
	paymentService := services.NewPaymentService(database.DB, gateway, billingService)
	callbackService := services.NewCallbackService(database.DB, billingService, receiptService)
	handlers.Init(paymentService, callbackService, billingService)

	notifier := notifications.EmailNotifier{}
	c := cron.New()
	c.AddFunc("0 9 * * *", func() { jobs.SendBalanceReminders(database.DB, notifier) })
	c.AddFunc("0 10 * * *", func() { jobs.SendBookingDeadlineReminders(database.DB, notifier) })
	c.AddFunc("0 2 * * *", func() { jobs.ExpireStaleBookings(database.DB) })
	go c.Start()
	log.Println("✅ Cron jobs for reminders and booking expiry scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "Nyumbani Rentals",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Africa/Nairobi",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Nyumbani Rentals API",
		})
	})

	routes.PaymentRoutes(app)
	routes.BillingRoutes(app)
	routes.FeedRoutes(app)

	go events.RunHub()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	err := app.Listen(":8080")
	if err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
