package handlers

import (
	"errors"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/anjiri1684/flower_farm/notifications"
	"github.com/anjiri1684/flower_farm/payments"
	"github.com/anjiri1684/flower_farm/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type PaymentHandler struct {
	bookings *services.BookingService
	square   config.SquareConfig
	notifier Notifier
	live     *AvailabilityHandler
}

func NewPaymentHandler(bookings *services.BookingService, square config.SquareConfig, notifier Notifier, live *AvailabilityHandler) *PaymentHandler {
	return &PaymentHandler{bookings: bookings, square: square, notifier: notifier, live: live}
}

// HandleSquareWebhook marks pay-now bookings paid or failed from Square payment events.
// A booking that becomes paid is announced with booking_confirmed; a payment that lands on a
// booking which lost its place raises booking_error so the operator can refund it.
func (h *PaymentHandler) HandleSquareWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if !payments.VerifySquareSignature(h.square.WebhookSignatureKey, h.square.WebhookURL, body, c.Get(payments.SquareSignatureHeader)) {
		logrus.WithField("ip", c.IP()).Warn("⚠️ Rejected Square webhook with invalid signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid signature"})
	}

	event, err := payments.ParseSquarePaymentEvent(body)
	if err != nil {
		return badRequest(c, "Cannot parse webhook payload")
	}

	log := logrus.WithFields(logrus.Fields{
		"eventId": event.EventID,
		"type":    event.Type,
		"orderId": event.OrderID(),
		"status":  event.Status(),
	})
	log.Info("Received Square webhook")

	var paid bool
	switch event.Status() {
	case payments.SquarePaymentCompleted:
		paid = true
	case payments.SquarePaymentFailed, payments.SquarePaymentCanceled:
		paid = false
	default:
		return c.JSON(fiber.Map{"message": "Event ignored"})
	}
	if event.OrderID() == "" {
		return c.JSON(fiber.Map{"message": "Event ignored"})
	}

	result, err := h.bookings.RecordPayment(c.UserContext(), event.OrderID(), paid)
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			// The order id is stored asynchronously; a 404 makes Square retry later.
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found for order"})
		}
		log.WithError(err).Error("🔥 CRITICAL: Error processing Square webhook")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}
	if !result.Changed {
		return c.JSON(fiber.Map{"message": "Webhook already processed"})
	}

	booking := result.Booking
	switch {
	case result.NeedsRefund:
		h.notifier.Notify(notifications.EventBookingError, booking, notifications.SendOptions{
			Error: &notifications.ErrorDetails{
				Message:       "Payment received for a cancelled booking. The visitor must be refunded.",
				Code:          "PAYMENT_AFTER_CANCELLATION",
				OriginalEvent: notifications.EventBookingConfirmed,
			},
		})
	case booking.PaymentStatus == models.PaymentStatusPaid && booking.Status == models.BookingStatusConfirmed:
		h.notifier.Notify(notifications.EventBookingConfirmed, booking, notifications.SendOptions{})
	}
	if result.Reinstated {
		h.live.Refresh(booking.VisitDate)
	}
	return c.JSON(fiber.Map{"message": "Webhook processed successfully"})
}
