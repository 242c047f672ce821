package playerapi

import (
	"github.com/gofiber/fiber/v3"

	"emby-shorts/internal/player"
	"emby-shorts/internal/session"
)

func requireRuntime(c fiber.Ctx, m *session.Manager) (*session.Runtime, error) {
	rt, ok := m.Current()
	if !ok {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not logged in"})
	}
	return rt, nil
}

func cellOr404(c fiber.Ctx, rt *session.Runtime, id string) (*player.Cell, error) {
	cell, ok := rt.Registry.Cell(id)
	if !ok {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
	}
	return cell, nil
}

// POST /api/player/:id/tap
func Tap(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		id := c.Params("id")
		if !rt.Registry.WithCell(id, func(cell *player.Cell) { cell.Tap() }) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/longpress  {"zone":"edge","phase":"begin"}
func LongPress(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			Zone  string `json:"zone"`
			Phase string `json:"phase"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		zone := player.Zone(req.Zone)
		if zone != player.ZoneEdge && zone != player.ZoneCenter {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown zone"})
		}

		id := c.Params("id")
		var ok bool
		switch req.Phase {
		case "begin":
			ok = rt.Registry.WithCell(id, func(cell *player.Cell) { cell.PressBegin(zone) })
		case "end":
			ok = rt.Registry.WithCell(id, func(cell *player.Cell) { cell.PressEnd() })
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown phase"})
		}
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/rate  {"rate":1.5} selects, {"close":true} dismisses
// the sheet without changing the base rate
func Rate(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			Rate  float64 `json:"rate"`
			Close bool    `json:"close"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		id := c.Params("id")
		ok := rt.Registry.WithCell(id, func(cell *player.Cell) {
			if req.Close {
				cell.CloseSpeedMenu()
			} else {
				cell.SelectRate(req.Rate)
			}
		})
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/info  {"open":true}
func Info(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			Open bool `json:"open"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		id := c.Params("id")
		ok := rt.Registry.WithCell(id, func(cell *player.Cell) {
			if req.Open {
				cell.OpenInfo()
			} else {
				cell.CloseInfo()
			}
		})
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/started, sent when the browser's play() promise resolved
func Started(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		id := c.Params("id")
		if !rt.Registry.WithCell(id, func(cell *player.Cell) { cell.PlaybackStarted() }) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/rejected, sent when the autoplay policy refused play()
func Rejected(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		id := c.Params("id")
		if !rt.Registry.WithCell(id, func(cell *player.Cell) { cell.PlaybackRejected() }) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/landscape  {"landscape":true}
func Landscape(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			Landscape bool `json:"landscape"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		id := c.Params("id")
		if !rt.Registry.WithCell(id, func(cell *player.Cell) { cell.SetLandscape(req.Landscape) }) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/ended
func Ended(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		id := c.Params("id")
		if _, errResp := cellOr404(c, rt, id); errResp != nil {
			return errResp
		}
		rt.Ended(id)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/favorite
func Favorite(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		next, err := rt.Favorite(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		return c.JSON(fiber.Map{"favorite": next})
	}
}

// POST /api/player/:id/dislike
func Dislike(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		id := c.Params("id")
		if _, errResp := cellOr404(c, rt, id); errResp != nil {
			return errResp
		}
		_ = rt.Dislike(id)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/player/:id/delete. The first tap arms, a second tap inside the
// window deletes for real
func Delete(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		action, err := rt.DeleteTap(c.Params("id"))
		if err != nil && action == player.DeleteNoop {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown item"})
		}
		if err != nil {
			// confirmed but the server refused; the item stays in the feed
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"action": "failed",
				"error":  "the server could not delete this item",
			})
		}
		switch action {
		case player.DeleteArmed:
			return c.JSON(fiber.Map{"action": "armed"})
		case player.DeleteConfirmed:
			return c.JSON(fiber.Map{"action": "deleted"})
		default:
			return c.JSON(fiber.Map{"action": "none"})
		}
	}
}
