package middleware

import (
	"server/config"
	authController "server/internal/controllers/auth"
	"server/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the admin session cookie name.
const SessionCookie = "session"

type Middleware struct {
	auth   *authController.AuthController
	config config.Config
	log    logger.Logger
}

func New(auth *authController.AuthController, config config.Config) Middleware {
	return Middleware{
		auth:   auth,
		config: config,
		log:    logger.New("middleware"),
	}
}

// RequireAdmin loads the admin user for the request's session cookie into
// locals, rejecting the request when there is no live session. Every
// admin-facing handler reads its organization scope from these locals.
func (m Middleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := m.auth.GetLoggedInAdmin(c.Context(), c.Cookies(SessionCookie))
		if err != nil {
			m.log.Function("RequireAdmin").Er("failed to resolve session", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":    "error",
				"errorType": "Internal Server Error",
				"message":   "could not resolve session",
			})
		}
		if admin == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":    "error",
				"errorType": "Unauthorized",
				"message":   "please log in",
			})
		}

		c.Locals("admin", admin)
		return c.Next()
	}
}
