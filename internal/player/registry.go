package player

import (
	"sync"
	"time"

	"emby-shorts/internal/emby"
)

// Registry owns one Cell per feed item and routes activation, gestures, and
// the timer sweep. It mirrors the feed controller's active index: exactly
// one cell is active at a time.
type Registry struct {
	mu       sync.Mutex
	cells    map[string]*Cell
	activeID string

	longPress time.Duration
	deleteArm time.Duration
	now       func() time.Time

	onChange func()
}

func NewRegistry(longPress, deleteArm time.Duration) *Registry {
	if longPress <= 0 {
		longPress = 450 * time.Millisecond
	}
	if deleteArm <= 0 {
		deleteArm = 3500 * time.Millisecond
	}
	return &Registry{
		cells:     make(map[string]*Cell),
		longPress: longPress,
		deleteArm: deleteArm,
		now:       time.Now,
	}
}

// SetNow injects a clock for tests.
func (r *Registry) SetNow(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	for _, c := range r.cells {
		c.now = now
	}
	r.mu.Unlock()
}

func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Registry) notify() {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Sync reconciles the cell set with the current feed items, dropping cells
// whose items left the feed.
func (r *Registry) Sync(items []emby.Item) {
	r.mu.Lock()
	keep := make(map[string]bool, len(items))
	for _, it := range items {
		keep[it.ID] = true
		if _, ok := r.cells[it.ID]; !ok {
			r.cells[it.ID] = newCell(it, r.longPress, r.deleteArm, r.now)
		}
	}
	for id := range r.cells {
		if !keep[id] {
			delete(r.cells, id)
			if r.activeID == id {
				r.activeID = ""
			}
		}
	}
	r.mu.Unlock()
}

// SetActive deactivates the previous cell (full reset) and activates the new
// one; nextID gets the eager preload hint.
func (r *Registry) SetActive(id, nextID string) {
	r.mu.Lock()
	if prev, ok := r.cells[r.activeID]; ok && r.activeID != id {
		prev.deactivate()
	}
	r.activeID = id
	for cid, c := range r.cells {
		switch cid {
		case nextID:
			c.preload = PreloadFull
		case id:
			// the active cell is loading outright, the hint is moot
		default:
			c.preload = PreloadMeta
		}
	}
	if c, ok := r.cells[id]; ok {
		c.activate()
	}
	r.mu.Unlock()
	r.notify()
}

// Cell looks up a cell by item id.
func (r *Registry) Cell(id string) (*Cell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cells[id]
	return c, ok
}

// ActiveID returns the currently active item id, if any.
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// WithCell runs fn against the named cell under the registry lock and
// notifies on return. Gesture handlers use it so every cell mutation is
// serialized.
func (r *Registry) WithCell(id string, fn func(c *Cell)) bool {
	r.mu.Lock()
	c, ok := r.cells[id]
	if ok {
		fn(c)
	}
	r.mu.Unlock()
	if ok {
		r.notify()
	}
	return ok
}

// Tick sweeps every cell's deadlines. One sweeper goroutine calls this on a
// short interval; tests call it directly with a controlled clock.
func (r *Registry) Tick() {
	r.mu.Lock()
	now := r.now()
	changed := false
	for _, c := range r.cells {
		if c.tick(now) {
			changed = true
		}
	}
	r.mu.Unlock()
	if changed {
		r.notify()
	}
}

// CellState is the wire-facing view of one cell.
type CellState struct {
	ItemID        string  `json:"item_id"`
	State         string  `json:"state"`
	Rate          float64 `json:"rate"`
	BaseRate      float64 `json:"base_rate"`
	SpeedMenuOpen bool    `json:"speed_menu_open"`
	InfoOpen      bool    `json:"info_open"`
	DeleteArmed   bool    `json:"delete_armed"`
	Favorite      bool    `json:"favorite"`
	Landscape     bool    `json:"landscape"`
	Preload       string  `json:"preload"`
}

// States snapshots every cell for the push channel.
func (r *Registry) States() map[string]CellState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]CellState, len(r.cells))
	for id, c := range r.cells {
		out[id] = CellState{
			ItemID:        id,
			State:         c.state.String(),
			Rate:          c.rate,
			BaseRate:      c.baseRate,
			SpeedMenuOpen: c.speedMenuOpen,
			InfoOpen:      c.infoOpen,
			DeleteArmed:   c.deleteArmed,
			Favorite:      c.favorite,
			Landscape:     c.landscape,
			Preload:       string(c.preload),
		}
	}
	return out
}
