package routes

import (
	"github.com/anjiri1684/flower_farm/handlers"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App, h *handlers.PaymentHandler) {
	api := app.Group("/api")

	api.Post("/payments/square/webhook", h.HandleSquareWebhook)
}
