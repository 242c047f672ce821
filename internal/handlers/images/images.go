package images

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"

	"emby-shorts/internal/config"
	"emby-shorts/internal/session"
)

type Opts struct {
	Quality    int
	MaxWidth   int
	HTTPClient *http.Client
}

func NewOpts(cfg config.Config) Opts {
	return Opts{
		Quality:    cfg.ImgQuality,
		MaxWidth:   cfg.ImgPrimaryMaxWidth,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func proxyImage(c fiber.Ctx, client *http.Client, fullURL, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	req.Header.Set("X-Emby-Token", token)

	resp, err := client.Do(req)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	defer resp.Body.Close()

	c.Status(resp.StatusCode)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Set("Content-Type", ct)
	} else {
		c.Set("Content-Type", "image/jpeg")
	}
	c.Set("Cache-Control", "public, max-age=3600, s-maxage=3600")

	_, copyErr := io.Copy(c, resp.Body)
	return copyErr
}

// GET /img/primary/:id?tag=...
func Primary(m *session.Manager, opts Opts) fiber.Handler {
	return func(c fiber.Ctx) error {
		rt, ok := m.Current()
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not logged in"})
		}
		id := c.Params("id", "")
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing item id"})
		}
		tag := c.Query("tag", "")
		if tag == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing image tag"})
		}

		u := rt.Client.ImageURL(id, tag, opts.MaxWidth, opts.Quality)
		return proxyImage(c, opts.HTTPClient, u, rt.Session().AccessToken)
	}
}
