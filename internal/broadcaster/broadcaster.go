package broadcaster

import (
	"context"
	"sync"
	"time"

	"emby-shorts/internal/logging"
	"emby-shorts/internal/session"
)

// Message is the envelope pushed to UI clients. When nobody is logged in
// only LoggedIn is set.
type Message struct {
	LoggedIn bool              `json:"logged_in"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
}

// Conn is the slice of a websocket connection the broadcaster needs. The
// underlying websocket allows one concurrent writer, so all writes to a
// connection must go through its single writer goroutine.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Broadcaster pushes feed+player snapshots to every connected UI client.
// Pushes happen on state-change notifications (debounced through a kick
// channel) and on a slow keepalive tick. Each client gets a buffered outbound
// channel drained by exactly one writer goroutine; a full channel drops the
// push, since every message is a complete snapshot and the keepalive resends.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[Conn]chan Message

	manager  *session.Manager
	interval time.Duration
	kick     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(manager *session.Manager, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broadcaster{
		clients:  make(map[Conn]chan Message),
		manager:  manager,
		interval: interval,
		kick:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the push loop and hooks state-change notifications.
func (b *Broadcaster) Start() {
	b.manager.OnChange(b.Notify)
	go b.loop()
}

// Stop shuts down the loop and closes every client.
func (b *Broadcaster) Stop() {
	b.cancel()
	b.mu.Lock()
	for conn, out := range b.clients {
		conn.Close()
		close(out)
	}
	b.clients = make(map[Conn]chan Message)
	b.mu.Unlock()
}

// Notify requests a push; coalesces bursts into one.
func (b *Broadcaster) Notify() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// AddClient registers a UI connection, starts its writer, and queues an
// immediate snapshot.
func (b *Broadcaster) AddClient(conn Conn) {
	out := make(chan Message, 4)
	msg := b.message()
	b.mu.Lock()
	b.clients[conn] = out
	out <- msg // fresh buffered channel, cannot block
	b.mu.Unlock()

	go b.writer(conn, out)
}

// RemoveClient unregisters a connection and ends its writer. Safe to call
// more than once for the same connection.
func (b *Broadcaster) RemoveClient(conn Conn) {
	b.mu.Lock()
	if out, ok := b.clients[conn]; ok {
		delete(b.clients, conn)
		close(out)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) loop() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.kick:
		case <-ticker.C:
		}
		b.broadcast()
	}
}

// writer is the single goroutine allowed to write to conn. It exits when the
// client's channel is closed or a write fails.
func (b *Broadcaster) writer(conn Conn, out <-chan Message) {
	for msg := range out {
		if err := conn.WriteJSON(msg); err != nil {
			logging.Debug("ws push failed, dropping client", "error", err)
			b.RemoveClient(conn)
			conn.Close()
			return
		}
	}
}

func (b *Broadcaster) message() Message {
	rt, ok := b.manager.Current()
	if !ok {
		return Message{}
	}
	snap := rt.Snapshot()
	return Message{LoggedIn: true, Snapshot: &snap}
}

func (b *Broadcaster) broadcast() {
	msg := b.message()

	// enqueue under the read lock so RemoveClient cannot close a channel
	// mid-send; the sends never block, so the lock is held briefly
	b.mu.RLock()
	for _, out := range b.clients {
		select {
		case out <- msg:
		default:
		}
	}
	b.mu.RUnlock()
}
