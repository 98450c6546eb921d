package handlers

import (
	"github.com/anjiri1684/flower_farm/notifications"
	"github.com/anjiri1684/flower_farm/services"
	"github.com/gofiber/fiber/v2"
)

type ContactHandler struct {
	contact  *services.ContactService
	notifier Notifier
}

func NewContactHandler(contact *services.ContactService, notifier Notifier) *ContactHandler {
	return &ContactHandler{contact: contact, notifier: notifier}
}

func (h *ContactHandler) SubmitContactForm(c *fiber.Ctx) error {
	var req services.ContactInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.contact.Submit(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	phone := ""
	if msg.Phone != nil {
		phone = *msg.Phone
	}
	h.notifier.Notify(notifications.EventContactForm, nil, notifications.SendOptions{
		Contact: &notifications.ContactDetails{
			Name:    msg.Name,
			Email:   msg.Email,
			Phone:   phone,
			Subject: msg.Subject,
			Message: msg.Message,
		},
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Thanks for reaching out! We'll get back to you soon.",
	})
}
