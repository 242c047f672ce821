package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"emby-shorts/internal/emby"
	"emby-shorts/internal/session"
)

type loginReq struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

func userJSON(s emby.Session) fiber.Map {
	return fiber.Map{
		"server_url": s.ServerURL,
		"user_id":    s.UserID,
		"username":   s.Username,
		"is_admin":   s.IsAdmin,
	}
}

// POST /api/auth/login
func Login(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req loginReq
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		req.ServerURL = strings.TrimSpace(req.ServerURL)
		req.Username = strings.TrimSpace(req.Username)
		if req.ServerURL == "" || req.Username == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "server address and username required"})
		}

		// password may be empty; Emby allows passwordless accounts
		sess, err := m.Login(req.ServerURL, req.Username, req.Password)
		if err != nil {
			var ae *emby.AuthError
			if errors.As(err, &ae) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ae.Message})
			}
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "login failed"})
		}
		return c.JSON(fiber.Map{"user": userJSON(sess)})
	}
}

// POST /api/auth/logout
func Logout(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		m.Logout()
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/auth/session
func Session(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, ok := m.Current()
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not logged in"})
		}
		return c.JSON(fiber.Map{"user": userJSON(rt.Session())})
	}
}
