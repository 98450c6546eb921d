package routes

import (
	"github.com/anjiri1684/flower_farm/handlers"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App, h *handlers.AuthHandler, limit fiber.Handler) {
	api := app.Group("/api")

	admin := api.Group("/admin")
	admin.Post("/login", limit, h.LoginAdmin)
}
