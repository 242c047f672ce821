package settings

import (
	"github.com/gofiber/fiber/v3"

	"emby-shorts/internal/store"
)

// GET /api/settings/dislikes
func ListDislikes(prefs *store.Prefs) fiber.Handler {
	return func(c fiber.Ctx) error {
		list := prefs.Disliked()
		if list == nil {
			list = []store.DislikedItem{}
		}
		return c.JSON(fiber.Map{"items": list})
	}
}

// DELETE /api/settings/dislikes/:id, after which the item becomes eligible
// for the feed again on the next fetch
func RemoveDislike(prefs *store.Prefs) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing item id"})
		}
		if err := prefs.RemoveDisliked(id); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DELETE /api/settings/dislikes
func ClearDislikes(prefs *store.Prefs) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := prefs.ClearDisliked(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
