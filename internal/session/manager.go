package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"emby-shorts/internal/config"
	"emby-shorts/internal/emby"
	"emby-shorts/internal/feed"
	"emby-shorts/internal/logging"
	"emby-shorts/internal/player"
	"emby-shorts/internal/store"
)

// Manager owns the single active login. A new login replaces the previous
// one wholesale; logout clears the session but leaves the disliked list in
// place, which is keyed independently on purpose.
type Manager struct {
	mu     sync.Mutex
	cfg    config.Config
	prefs  *store.Prefs
	active *Runtime

	onChange func()
}

func NewManager(cfg config.Config, prefs *store.Prefs) *Manager {
	return &Manager{cfg: cfg, prefs: prefs}
}

// OnChange is forwarded into every runtime so the broadcaster sees feed and
// player mutations.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	if m.active != nil {
		m.active.setOnChange(fn)
	}
	m.mu.Unlock()
}

// Restore rebuilds the runtime from a persisted session, if one exists.
func (m *Manager) Restore() bool {
	sess, ok := m.prefs.LoadSession()
	if !ok {
		return false
	}
	m.install(sess)
	logging.Info("restored session", "server", sess.ServerURL, "user", sess.Username)
	return true
}

// Login authenticates against the Emby server and replaces the runtime.
func (m *Manager) Login(serverURL, username, password string) (emby.Session, error) {
	deviceID := "emby-shorts-" + uuid.NewString()
	sess, err := emby.Authenticate(serverURL, username, password, deviceID, m.cfg.StrictTransport)
	if err != nil {
		return emby.Session{}, err
	}
	if err := m.prefs.SaveSession(sess); err != nil {
		logging.Warn("persist session failed", "error", err)
	}
	m.install(sess)
	return sess, nil
}

func (m *Manager) install(sess emby.Session) {
	m.mu.Lock()
	if m.active != nil {
		m.active.stop()
	}
	rt := newRuntime(m.cfg, m.prefs, sess)
	rt.setOnChange(m.onChange)
	m.active = rt
	m.mu.Unlock()

	rt.start()
}

// Logout destroys the runtime and the stored session. Disliked items
// survive.
func (m *Manager) Logout() {
	m.mu.Lock()
	if m.active != nil {
		m.active.stop()
		m.active = nil
	}
	m.mu.Unlock()
	if err := m.prefs.ClearSession(); err != nil {
		logging.Warn("clear session failed", "error", err)
	}
}

// Current returns the active runtime, or ok=false when logged out.
func (m *Manager) Current() (*Runtime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Runtime is one logged-in feed session: the Emby client, the feed
// controller, the player cell registry, and the server event listener.
type Runtime struct {
	cfg config.Config

	Client     *emby.Client
	Controller *feed.Controller
	Registry   *player.Registry

	listener *emby.EventListener
	cancel   context.CancelFunc
}

func newRuntime(cfg config.Config, prefs *store.Prefs, sess emby.Session) *Runtime {
	client := emby.NewClient(sess)
	rt := &Runtime{
		cfg:        cfg,
		Client:     client,
		Controller: feed.NewController(client, prefs, cfg.FeedPageSize, cfg.FeedReadAhead),
		Registry: player.NewRegistry(
			time.Duration(cfg.LongPressMS)*time.Millisecond,
			time.Duration(cfg.DeleteArmMS)*time.Millisecond,
		),
	}
	rt.listener = &emby.EventListener{
		Session: sess,
		Handler: func(emby.Event) { rt.Controller.MarkStale() },
	}
	return rt
}

func (rt *Runtime) setOnChange(fn func()) {
	if fn == nil {
		return
	}
	rt.Controller.OnChange(fn)
	rt.Registry.OnChange(fn)
}

func (rt *Runtime) start() {
	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel

	rt.listener.Start(ctx)

	// deadline sweeper for long-press and delete-arm countdowns
	go func() {
		interval := time.Duration(rt.cfg.SweepIntervalMS) * time.Millisecond
		if interval <= 0 {
			interval = 250 * time.Millisecond
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rt.Registry.Tick()
			}
		}
	}()

	go func() {
		rt.Controller.Start()
		rt.syncCells()
	}()
}

func (rt *Runtime) stop() {
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.listener.Stop()
}

func (rt *Runtime) Session() emby.Session { return rt.Client.Session() }
