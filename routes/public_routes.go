package routes

import (
	"github.com/anjiri1684/flower_farm/handlers"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App, availability *handlers.AvailabilityHandler, contact *handlers.ContactHandler, limit fiber.Handler) {
	api := app.Group("/api")

	api.Get("/availability", availability.GetAvailability)
	api.Get("/availability/slot", availability.GetSlot)
	api.Post("/contact", limit, contact.SubmitContactForm)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws/availability", websocket.New(availability.Live))
}
