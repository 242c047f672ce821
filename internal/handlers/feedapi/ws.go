package feedapi

import (
	"github.com/gofiber/fiber/v3"
	ws "github.com/saveblush/gofiber3-contrib/websocket"

	"emby-shorts/internal/broadcaster"
)

// Upgrade gates the websocket route behind a proper upgrade request.
func Upgrade(c fiber.Ctx) error {
	if ws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WS attaches the connection to the snapshot broadcaster and holds it open
// until the client goes away.
func WS(b *broadcaster.Broadcaster) fiber.Handler {
	return ws.New(func(conn *ws.Conn) {
		defer func() {
			b.RemoveClient(conn)
			conn.Close()
		}()

		b.AddClient(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}
