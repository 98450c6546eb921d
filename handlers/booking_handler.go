package handlers

import (
	"github.com/anjiri1684/flower_farm/metrics"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/anjiri1684/flower_farm/notifications"
	"github.com/anjiri1684/flower_farm/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Notifier queues a webhook event; implementations must not block on delivery.
type Notifier interface {
	Notify(eventType string, booking *models.Booking, opts notifications.SendOptions)
}

type BookingHandler struct {
	bookings *services.BookingService
	payments *services.PaymentService
	notifier Notifier
	live     *AvailabilityHandler
}

func NewBookingHandler(bookings *services.BookingService, payments *services.PaymentService, notifier Notifier, live *AvailabilityHandler) *BookingHandler {
	return &BookingHandler{bookings: bookings, payments: payments, notifier: notifier, live: live}
}

type CancelBookingRequest struct {
	Token  string `json:"token" validate:"required,uuid"`
	Reason string `json:"reason" validate:"max=1000"`
}

type RescheduleBookingRequest struct {
	Token         string `json:"token" validate:"required,uuid"`
	VisitDate     string `json:"visitDate" validate:"required"`
	PreferredTime string `json:"preferredTime" validate:"required"`
}

// CreateBooking handles the public booking form. Pay-on-arrival bookings are confirmed
// immediately; pay-now bookings get a hosted checkout URL instead.
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	var req services.CreateBookingInput
	if err := c.BodyParser(&req); err != nil {
		metrics.BookingsRejected.WithLabelValues("bad_request").Inc()
		return badRequest(c, "Invalid request body")
	}

	booking, err := h.bookings.Create(c.UserContext(), req)
	if err != nil {
		metrics.BookingsRejected.WithLabelValues(rejectionReason(err)).Inc()
		return respondError(c, err)
	}

	if booking.PaymentMethod == models.PaymentMethodNow {
		checkout, err := h.payments.StartCheckout(c.UserContext(), booking)
		if err != nil {
			metrics.PaymentLinks.WithLabelValues("failure").Inc()
			return respondError(c, err)
		}
		metrics.PaymentLinks.WithLabelValues("success").Inc()
		metrics.BookingsCreated.WithLabelValues(booking.PaymentMethod).Inc()
		h.live.Refresh(booking.VisitDate)

		return c.JSON(fiber.Map{
			"success":         true,
			"requiresPayment": true,
			"paymentUrl":      checkout.PaymentURL,
			"bookingId":       booking.ID,
			"reference":       booking.Reference,
			"message":         "Booking created. Please complete your payment to confirm your visit.",
		})
	}

	metrics.BookingsCreated.WithLabelValues(booking.PaymentMethod).Inc()
	h.notifier.Notify(notifications.EventBookingConfirmed, booking, notifications.SendOptions{})
	h.live.Refresh(booking.VisitDate)

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Booking confirmed! We look forward to your visit.",
		"bookingId": booking.ID,
		"reference": booking.Reference,
	})
}

// BookingSummary is what an unauthenticated caller holding a reference may see.
type BookingSummary struct {
	Reference        string `json:"reference"`
	VisitDate        string `json:"visit_date"`
	PreferredTime    string `json:"preferred_time"`
	NumberOfVisitors int    `json:"number_of_visitors"`
	Status           string `json:"status"`
	PaymentStatus    string `json:"payment_status"`
}

func (h *BookingHandler) GetBookingByReference(c *fiber.Ctx) error {
	booking, err := h.bookings.FindByReference(c.UserContext(), c.Params("reference"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(BookingSummary{
		Reference:        booking.Reference,
		VisitDate:        booking.VisitDate,
		PreferredTime:    booking.PreferredTime,
		NumberOfVisitors: booking.NumberOfVisitors,
		Status:           booking.Status,
		PaymentStatus:    booking.PaymentStatus,
	})
}

func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	var req CancelBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := services.Validate.Struct(req); err != nil {
		return badRequest(c, "A valid cancellation token is required")
	}

	booking, err := h.bookings.CancelByToken(c.UserContext(), req.Token, req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	h.notifier.Notify(notifications.EventBookingCancelled, booking, notifications.SendOptions{
		CancellationReason: req.Reason,
		CancelledBy:        "customer",
	})
	h.live.Refresh(booking.VisitDate)

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Your booking has been cancelled.",
		"reference": booking.Reference,
	})
}

func (h *BookingHandler) RescheduleBooking(c *fiber.Ctx) error {
	var req RescheduleBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := services.Validate.Struct(req); err != nil {
		return badRequest(c, "token, visitDate and preferredTime are required")
	}

	booking, info, err := h.bookings.Reschedule(c.UserContext(), req.Token, req.VisitDate, req.PreferredTime)
	if err != nil {
		return respondError(c, err)
	}

	h.notifier.Notify(notifications.EventBookingRescheduled, booking, notifications.SendOptions{
		Reschedule: &notifications.RescheduleDetails{
			OriginalDate: info.OriginalDate,
			OriginalTime: info.OriginalTime,
			NewDate:      info.NewDate,
			NewTime:      info.NewTime,
		},
	})
	h.live.Refresh(info.OriginalDate, info.NewDate)

	logrus.WithField("reference", booking.Reference).Info("Visitor rescheduled booking")
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Your booking has been rescheduled.",
		"booking": booking,
	})
}

func rejectionReason(err error) string {
	switch bookingErrorStatus(err) {
	case fiber.StatusBadRequest:
		return "validation"
	case fiber.StatusNotFound:
		return "slot_not_found"
	case fiber.StatusConflict:
		return "capacity"
	default:
		return "internal"
	}
}
