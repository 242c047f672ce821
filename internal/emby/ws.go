package emby

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"emby-shorts/internal/logging"
)

// Event is one message off the server socket.
type Event struct {
	MessageType string          `json:"MessageType"`
	Data        json.RawMessage `json:"Data"`
}

// library mutations worth a feed refresh hint
var refreshEventTypes = map[string]bool{
	"LibraryChanged":  true,
	"UserDataChanged": true,
}

// EventListener keeps an outbound connection to {server}/embywebsocket and
// forwards library-change events. The feed layer uses them only as a refresh
// hint, never to mutate items mid-scroll.
type EventListener struct {
	Session Session
	Handler func(evt Event)

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

func (l *EventListener) storeConn(c *websocket.Conn) {
	l.mu.Lock()
	l.conn = c
	l.mu.Unlock()
}

// closeConn closes and clears the current socket. Both the connect loop and
// Stop call it; closing unblocks a pending ReadMessage.
func (l *EventListener) closeConn() {
	l.mu.Lock()
	c := l.conn
	l.conn = nil
	l.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

func (l *EventListener) dial() (*websocket.Conn, *http.Response, error) {
	u, err := url.Parse(l.Session.ServerURL)
	if err != nil {
		return nil, nil, err
	}
	scheme := "wss"
	if u.Scheme == "http" {
		scheme = "ws"
	}
	u.Scheme = scheme
	u.Path = "/embywebsocket"
	q := u.Query()
	q.Set("api_key", l.Session.AccessToken)
	q.Set("deviceId", l.Session.DeviceID)
	u.RawQuery = q.Encode()

	dialer := &websocket.Dialer{
		HandshakeTimeout:  15 * time.Second,
		EnableCompression: true,
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: true}, // self-signed Emby installs
	}

	header := http.Header{"Accept": []string{"application/json"}}
	return dialer.Dial(u.String(), header)
}

// Start runs the connect/read/reconnect loop until Stop or ctx cancellation.
func (l *EventListener) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	go func() {
		defer l.closeConn()

		retry := 2 * time.Second
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			c, _, err := l.dial()
			if err != nil {
				logging.Warn("emby-ws dial failed", "error", err)
				time.Sleep(retry)
				if retry < 30*time.Second {
					retry *= 2
				}
				continue
			}
			l.storeConn(c)
			// Stop may have raced the dial; re-check before reading
			select {
			case <-ctx.Done():
				l.closeConn()
				return
			default:
			}
			retry = 2 * time.Second
			logging.Info("emby-ws connected")

			for {
				_, p, err := c.ReadMessage()
				if err != nil {
					logging.Warn("emby-ws read error", "error", err)
					break
				}

				var evt Event
				if err := json.Unmarshal(p, &evt); err != nil {
					logging.Debug("emby-ws unmarshal error", "error", err)
					continue
				}

				if refreshEventTypes[evt.MessageType] || strings.HasPrefix(evt.MessageType, "Library") {
					if l.Handler != nil {
						l.Handler(evt)
					}
				}
			}
			l.closeConn()
			time.Sleep(retry)
		}
	}()
}

// Stop terminates the listener and closes the socket.
func (l *EventListener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.closeConn()
}
