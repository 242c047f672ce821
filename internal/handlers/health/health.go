package health

import (
	"github.com/gofiber/fiber/v3"

	"emby-shorts/internal/session"
	"emby-shorts/internal/version"
)

// GET /healthz
func Health() fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version.Version,
		})
	}
}

// GET /healthz/emby reports reachability of the logged-in server
func Emby(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, ok := m.Current()
		if !ok {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "no session"})
		}
		if err := rt.Client.Ping(); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"status": "unreachable", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "server": rt.Session().ServerURL})
	}
}
