package emby

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func eventServer(t *testing.T, payloads ...map[string]any) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embywebsocket" {
			t.Errorf("Expected /embywebsocket, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "tok" {
			t.Errorf("Expected api_key query param, got %q", r.URL.Query().Get("api_key"))
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, p := range payloads {
			if err := c.WriteJSON(p); err != nil {
				return
			}
		}
		// hold the socket open until the client goes away
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func newTestListener(srv *httptest.Server, events chan Event) *EventListener {
	return &EventListener{
		Session: Session{ServerURL: srv.URL, AccessToken: "tok", DeviceID: "dev1"},
		Handler: func(evt Event) {
			select {
			case events <- evt:
			default:
			}
		},
	}
}

func TestEventListenerForwardsLibraryEvents(t *testing.T) {
	srv := eventServer(t,
		map[string]any{"MessageType": "KeepAlive"},
		map[string]any{"MessageType": "LibraryChanged", "Data": map[string]any{}},
	)
	defer srv.Close()

	events := make(chan Event, 4)
	l := newTestListener(srv, events)
	l.Start(context.Background())
	defer l.Stop()

	select {
	case evt := <-events:
		if evt.MessageType != "LibraryChanged" {
			t.Errorf("Expected LibraryChanged, got %q", evt.MessageType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the library event")
	}

	// the keepalive must not have reached the handler
	select {
	case evt := <-events:
		t.Errorf("Unexpected extra event %q", evt.MessageType)
	default:
	}
}

func TestEventListenerStopWhileReading(t *testing.T) {
	srv := eventServer(t, map[string]any{"MessageType": "LibraryChanged"})
	defer srv.Close()

	events := make(chan Event, 1)
	l := newTestListener(srv, events)
	l.Start(context.Background())

	// wait until the listener is connected and blocked in a read
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the connection")
	}

	l.Stop()
	l.Stop() // second call must be safe
}
