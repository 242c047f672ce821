package feedapi

import (
	"github.com/gofiber/fiber/v3"

	"emby-shorts/internal/emby"
	"emby-shorts/internal/feed"
	"emby-shorts/internal/session"
)

// requireRuntime resolves the active login or answers 401.
func requireRuntime(c fiber.Ctx, m *session.Manager) (*session.Runtime, error) {
	rt, ok := m.Current()
	if !ok {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not logged in"})
	}
	return rt, nil
}

// GET /api/feed
func Snapshot(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		return c.JSON(rt.Snapshot())
	}
}

// GET /api/libraries
func Libraries(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		libs := rt.Controller.Libraries()
		if libs == nil {
			libs = []emby.Library{}
		}
		return c.JSON(fiber.Map{"libraries": libs})
	}
}

// POST /api/feed/category  {"category":"Random"}
func SetCategory(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			Category string `json:"category"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		cat := emby.Category(req.Category)
		if !cat.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown category"})
		}
		rt.SetCategory(cat)
		return c.JSON(rt.Snapshot())
	}
}

// POST /api/feed/library  {"library_id":""}
func SetLibrary(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			LibraryID string `json:"library_id"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		rt.SetLibrary(req.LibraryID)
		return c.JSON(rt.Snapshot())
	}
}

// POST /api/feed/scroll  {"offset_px":2130,"cell_height_px":710}
func Scroll(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			OffsetPx     float64 `json:"offset_px"`
			CellHeightPx float64 `json:"cell_height_px"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		rt.Scroll(req.OffsetPx, req.CellHeightPx)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/feed/jump  {"index":7}
func Jump(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			Index int `json:"index"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		rt.JumpTo(req.Index)
		return c.JSON(rt.Snapshot())
	}
}

// POST /api/feed/prefs  any of {"muted":bool,"autoplay":bool,"fit":"contain","display":"grid"}
func SetPrefs(m *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, errResp := requireRuntime(c, m)
		if rt == nil {
			return errResp
		}
		var req struct {
			Muted    *bool   `json:"muted"`
			Autoplay *bool   `json:"autoplay"`
			Fit      *string `json:"fit"`
			Display  *string `json:"display"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		var fit *feed.FitMode
		if req.Fit != nil {
			f := feed.FitMode(*req.Fit)
			fit = &f
		}
		var display *feed.DisplayMode
		if req.Display != nil {
			d := feed.DisplayMode(*req.Display)
			display = &d
		}
		rt.Controller.SetOptions(req.Muted, req.Autoplay, fit, display)
		return c.JSON(rt.Snapshot())
	}
}
