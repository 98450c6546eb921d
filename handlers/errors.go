package handlers

import (
	"errors"

	"github.com/anjiri1684/flower_farm/services"
	"github.com/gofiber/fiber/v2"
)

// bookingErrorStatus maps a service error kind onto its HTTP status.
func bookingErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrPastDate),
		errors.Is(err, services.ErrInvalidVisitorCount),
		errors.Is(err, services.ErrInvalidReschedule):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrSlotNotFound),
		errors.Is(err, services.ErrBookingNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrBookingLimitReached),
		errors.Is(err, services.ErrCapacityExceeded),
		errors.Is(err, services.ErrAlreadyCancelled),
		errors.Is(err, services.ErrSlotExists),
		errors.Is(err, services.ErrSlotHasBookings):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	var be *services.BookingError
	message := "An unexpected error occurred"
	if errors.As(err, &be) {
		message = be.Message
	}
	return c.Status(bookingErrorStatus(err)).JSON(fiber.Map{"error": message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}
