package handlers

import (
	"context"
	"time"

	"github.com/anjiri1684/flower_farm/services"
	"github.com/anjiri1684/flower_farm/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AvailabilityHandler struct {
	availability *services.AvailabilityService
	hub          *websocket.Hub
}

func NewAvailabilityHandler(availability *services.AvailabilityService, hub *websocket.Hub) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, hub: hub}
}

// GetAvailability lists every slot of a date with its remaining capacity.
func (h *AvailabilityHandler) GetAvailability(c *fiber.Ctx) error {
	date := c.Query("date")
	if !validDate(date) {
		return badRequest(c, "A valid date query parameter (YYYY-MM-DD) is required")
	}

	slots, err := h.availability.ForDate(c.UserContext(), date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"date": date, "slots": slots})
}

func (h *AvailabilityHandler) GetSlot(c *fiber.Ctx) error {
	date, timeOfDay := c.Query("date"), c.Query("time")
	if !validDate(date) || timeOfDay == "" {
		return badRequest(c, "date (YYYY-MM-DD) and time query parameters are required")
	}

	slot, err := h.availability.Slot(c.UserContext(), date, timeOfDay)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(slot)
}

// Live streams availability updates for one date over a websocket.
func (h *AvailabilityHandler) Live(c *websocketcontrib.Conn) {
	date := c.Query("date")
	if !validDate(date) {
		_ = c.WriteJSON(fiber.Map{"error": "A valid date query parameter (YYYY-MM-DD) is required"})
		_ = c.Close()
		return
	}

	// The snapshot goes out before the hub knows the connection; afterwards only the hub writes.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	slots, err := h.availability.ForDate(ctx, date)
	cancel()
	if err == nil {
		if err := c.WriteJSON(websocket.AvailabilityUpdate{Date: date, Slots: slots}); err != nil {
			_ = c.Close()
			return
		}
	}

	client := &websocket.Client{Date: date, Conn: c}
	h.hub.Join(client)
	defer func() {
		h.hub.Leave(client)
		_ = c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// Refresh pushes fresh availability for the given dates to websocket watchers.
func (h *AvailabilityHandler) Refresh(dates ...string) {
	if h == nil || h.hub == nil {
		return
	}
	seen := make(map[string]bool, len(dates))
	for _, date := range dates {
		if date == "" || seen[date] {
			continue
		}
		seen[date] = true

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		slots, err := h.availability.ForDate(ctx, date)
		cancel()
		if err != nil {
			logrus.WithError(err).WithField("date", date).Warn("Could not refresh live availability")
			continue
		}
		h.hub.Publish(websocket.AvailabilityUpdate{Date: date, Slots: slots})
	}
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
