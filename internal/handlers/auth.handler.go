package handlers

import (
	"net/url"
	"time"

	"server/internal/app"
	authController "server/internal/controllers/auth"
	"server/internal/handlers/middleware"
	"server/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	Handler
	controller authController.AuthController
}

func NewAuthHandler(app app.App, router fiber.Router) *AuthHandler {
	log := logger.New("handlers").File("auth_handler")
	return &AuthHandler{
		controller: *app.AuthController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AuthHandler) Register() {
	auth := h.router.Group("/auth")
	auth.Get("/login", h.login)
	auth.Get("/callback", h.callback)
	auth.Get("/logout", h.logout)
	auth.Get("/me", h.me)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	state := uuid.New().String()
	c.Cookie(&fiber.Cookie{
		Name:     "oauth_state",
		Value:    state,
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(h.controller.LoginURL(state), fiber.StatusFound)
}

func (h *AuthHandler) callback(c *fiber.Ctx) error {
	log := h.log.Function("callback")

	if errName := c.Query("error"); errName != "" {
		// The provider sent an error; surface it on the login screen.
		message := url.Values{
			"error":   {"oauth"},
			"message": {"Login error: " + errName + " - " + c.Query("error_description")},
		}
		return c.Redirect("/?"+message.Encode(), fiber.StatusFound)
	}

	if c.Query("state") == "" || c.Query("state") != c.Cookies("oauth_state") {
		return c.Redirect("/?error=oauth&message=Login+error:+state+mismatch", fiber.StatusFound)
	}

	sessionID, err := h.controller.HandleCallback(c.Context(), c.Query("code"))
	if err != nil {
		log.Er("login callback failed", err)
		return c.Redirect("/?error=oauth&message=Login+failed", fiber.StatusFound)
	}

	if sessionID != "" {
		c.Cookie(&fiber.Cookie{
			Name:     middleware.SessionCookie,
			Value:    sessionID,
			HTTPOnly: true,
			SameSite: "Lax",
		})
	}

	return c.Redirect("/", fiber.StatusFound)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	if sessionID := c.Cookies(middleware.SessionCookie); sessionID != "" {
		if err := h.controller.Logout(c.Context(), sessionID); err != nil {
			h.log.Function("logout").Er("failed to destroy session", err)
		}
	}

	c.ClearCookie(middleware.SessionCookie)
	return c.Redirect("/", fiber.StatusFound)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	admin, err := h.controller.GetLoggedInAdmin(c.Context(), c.Cookies(middleware.SessionCookie))
	if err != nil {
		return respondError(c, err)
	}
	if admin == nil {
		return c.JSON(nil)
	}

	response := fiber.Map{"email": admin.Email}
	if admin.Organization != nil {
		response["organization"] = fiber.Map{
			"id":   admin.Organization.ID,
			"name": admin.Organization.Name,
		}
	}
	return c.JSON(response)
}
