package handlers

import (
	"server/internal/app"
	"server/internal/handlers/middleware"
	"server/internal/logger"
	"server/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	NewAuthHandler(*app, router).Register()

	setupWebSocketRoute(router, app)

	api := router.Group("/api")
	HealthHandler(api, app.Config)
	NewBallotHandler(*app, api).Register()

	admin := api.Group("/", app.Middleware.RequireAdmin())
	NewElectionHandler(*app, admin).Register()
	NewVoterHandler(*app, admin).Register()

	return nil
}

func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", app.Middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		app.Websocket.HandleWebSocket(c)
	}))
}

// loggedInAdmin returns the admin the auth middleware resolved for this
// request.
func loggedInAdmin(c *fiber.Ctx) *models.AdminUser {
	admin, _ := c.Locals("admin").(*models.AdminUser)
	return admin
}
