package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emby-shorts/internal/broadcaster"
	"emby-shorts/internal/config"
	auth "emby-shorts/internal/handlers/auth"
	feedapi "emby-shorts/internal/handlers/feedapi"
	health "emby-shorts/internal/handlers/health"
	images "emby-shorts/internal/handlers/images"
	playerapi "emby-shorts/internal/handlers/playerapi"
	settings "emby-shorts/internal/handlers/settings"
	"emby-shorts/internal/logging"
	"emby-shorts/internal/session"
	"emby-shorts/internal/store"
	"emby-shorts/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	// ---- Config & Logging ----
	cfg := config.Load()
	logger := logging.New(&logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.SetDefault(logger)

	// ---- Preference Store ----
	kv, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open prefs db: %v", err)
	}
	defer func() { _ = kv.Close() }()
	prefs := store.NewPrefs(kv)

	// ---- Session & Feed Runtime ----
	manager := session.NewManager(cfg, prefs)
	if manager.Restore() {
		logging.Info("resumed previous login")
	}

	// ---- Snapshot Push Channel ----
	push := broadcaster.New(manager, time.Duration(cfg.WSPushSec)*time.Second)
	push.Start()
	defer push.Stop()

	// ---- Fiber v3 App ----
	app := fiber.New(fiber.Config{
		EnableIPValidation: true,
		ProxyHeader:        fiber.HeaderXForwardedFor,
	})
	app.Use(recover.New())
	app.Use(logging.FiberMiddleware(logger))

	// ---- Health & Version ----
	app.Get("/healthz", health.Health())
	app.Get("/healthz/emby", health.Emby(manager))
	app.Get("/api/version", func(c fiber.Ctx) error { return c.JSON(version.Get()) })

	// ---- Auth ----
	app.Post("/api/auth/login", auth.Login(manager))
	app.Post("/api/auth/logout", auth.Logout(manager))
	app.Get("/api/auth/session", auth.Session(manager))

	// ---- Feed ----
	app.Get("/api/feed", feedapi.Snapshot(manager))
	app.Get("/api/libraries", feedapi.Libraries(manager))
	app.Post("/api/feed/category", feedapi.SetCategory(manager))
	app.Post("/api/feed/library", feedapi.SetLibrary(manager))
	app.Post("/api/feed/scroll", feedapi.Scroll(manager))
	app.Post("/api/feed/jump", feedapi.Jump(manager))
	app.Post("/api/feed/prefs", feedapi.SetPrefs(manager))
	app.Get("/api/feed/ws", feedapi.Upgrade, feedapi.WS(push))

	// ---- Player Cells ----
	app.Post("/api/player/:id/tap", playerapi.Tap(manager))
	app.Post("/api/player/:id/longpress", playerapi.LongPress(manager))
	app.Post("/api/player/:id/rate", playerapi.Rate(manager))
	app.Post("/api/player/:id/info", playerapi.Info(manager))
	app.Post("/api/player/:id/started", playerapi.Started(manager))
	app.Post("/api/player/:id/rejected", playerapi.Rejected(manager))
	app.Post("/api/player/:id/landscape", playerapi.Landscape(manager))
	app.Post("/api/player/:id/ended", playerapi.Ended(manager))
	app.Post("/api/player/:id/favorite", playerapi.Favorite(manager))
	app.Post("/api/player/:id/dislike", playerapi.Dislike(manager))
	app.Post("/api/player/:id/delete", playerapi.Delete(manager))

	// ---- Settings ----
	app.Get("/api/settings/dislikes", settings.ListDislikes(prefs))
	app.Delete("/api/settings/dislikes/:id", settings.RemoveDislike(prefs))
	app.Delete("/api/settings/dislikes", settings.ClearDislikes(prefs))

	// ---- Images ----
	imgOpts := images.NewOpts(cfg)
	app.Get("/img/primary/:id", images.Primary(manager, imgOpts))

	// ---- Static UI Serving ----
	app.Use("/", static.New(cfg.WebPath))

	// SPA fallback: any GET that is not an API/image call serves index.html.
	app.Use(func(c fiber.Ctx) error {
		if c.Method() == fiber.MethodGet && !startsWithAny(c.Path(), "/api", "/img", "/healthz") {
			return c.SendFile(filepath.Join(cfg.WebPath, "index.html"))
		}
		return c.Next()
	})

	// ---- Start Server ----
	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	logging.Info("starting emby-shorts", "addr", addr, "version", version.Version)
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

func startsWithAny(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
