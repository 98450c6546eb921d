package routes

import (
	"github.com/anjiri1684/flower_farm/handlers"
	"github.com/anjiri1684/flower_farm/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.AdminHandler, jwtSecret string) {
	api := app.Group("/api")

	admin := api.Group("/admin", middleware.Protected(jwtSecret), middleware.AdminRequired())

	slots := admin.Group("/slots")
	slots.Get("", h.ListSlots)
	slots.Post("", h.CreateSlot)
	slots.Put("/:id", h.UpdateSlot)
	slots.Delete("/:id", h.DeleteSlot)

	bookings := admin.Group("/bookings")
	bookings.Get("", h.ListBookings)
	bookings.Post("/:id/cancel", h.CancelBooking)

	admin.Get("/webhook-logs", h.ListWebhookLogs)
}
