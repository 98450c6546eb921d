package handlers

import (
	"strconv"

	"github.com/anjiri1684/flower_farm/notifications"
	"github.com/anjiri1684/flower_farm/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	slots    *services.SlotService
	bookings *services.BookingService
	webhooks *notifications.WebhookService
	notifier Notifier
	live     *AvailabilityHandler
}

func NewAdminHandler(slots *services.SlotService, bookings *services.BookingService, webhooks *notifications.WebhookService, notifier Notifier, live *AvailabilityHandler) *AdminHandler {
	return &AdminHandler{slots: slots, bookings: bookings, webhooks: webhooks, notifier: notifier, live: live}
}

type UpdateSlotRequest struct {
	MaxCapacity int `json:"max_capacity" validate:"required,min=1"`
	MaxBookings int `json:"max_bookings" validate:"required,min=1"`
}

type AdminCancelRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func (h *AdminHandler) ListSlots(c *fiber.Ctx) error {
	slots, err := h.slots.List(c.UserContext(), c.Query("from"), c.Query("to"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(slots)
}

func (h *AdminHandler) CreateSlot(c *fiber.Ctx) error {
	var req services.SlotInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := services.Validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	slot, err := h.slots.Create(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	h.live.Refresh(slot.Date)
	return c.Status(fiber.StatusCreated).JSON(slot)
}

func (h *AdminHandler) UpdateSlot(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Invalid slot ID")
	}
	var req UpdateSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := services.Validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	slot, err := h.slots.Update(c.UserContext(), uint(id), req.MaxCapacity, req.MaxBookings)
	if err != nil {
		return respondError(c, err)
	}
	h.live.Refresh(slot.Date)
	return c.JSON(slot)
}

func (h *AdminHandler) DeleteSlot(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Invalid slot ID")
	}
	if err := h.slots.Delete(c.UserContext(), uint(id)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) ListBookings(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))

	bookings, total, err := h.bookings.List(c.UserContext(), services.BookingFilter{
		Date:          c.Query("date"),
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": bookings, "total": total, "page": page})
}

func (h *AdminHandler) CancelBooking(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid booking ID")
	}
	var req AdminCancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Cannot parse JSON")
		}
	}
	if err := services.Validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	booking, err := h.bookings.AdminCancel(c.UserContext(), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	logrus.WithFields(logrus.Fields{
		"bookingId": booking.ID,
		"adminId":   adminID(c),
	}).Info("Admin cancelled booking")

	h.notifier.Notify(notifications.EventBookingCancelledAdmin, booking, notifications.SendOptions{
		CancellationReason: req.Reason,
		CancelledBy:        "admin",
	})
	h.live.Refresh(booking.VisitDate)

	return c.JSON(fiber.Map{"success": true, "message": "Booking cancelled", "booking": booking})
}

func (h *AdminHandler) ListWebhookLogs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	logs, err := h.webhooks.Logs(c.UserContext(), notifications.LogFilter{
		BookingID: c.Query("booking_id"),
		EventType: c.Query("event_type"),
		Failed:    c.QueryBool("failed"),
		Limit:     limit,
	})
	if err != nil {
		logrus.WithError(err).Error("🔥 Failed to load webhook logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load webhook logs"})
	}
	return c.JSON(logs)
}

func adminID(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	id, _ := claims["user_id"].(string)
	return id
}
