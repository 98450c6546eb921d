package routes

import (
	"github.com/anjiri1684/flower_farm/handlers"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, h *handlers.BookingHandler, limit fiber.Handler) {
	api := app.Group("/api")

	bookings := api.Group("/bookings")
	bookings.Post("", limit, h.CreateBooking)
	bookings.Get("/reference/:reference", limit, h.GetBookingByReference)
	bookings.Post("/cancel", limit, h.CancelBooking)
	bookings.Post("/reschedule", limit, h.RescheduleBooking)
}
