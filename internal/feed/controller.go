package feed

import (
	"math"
	"sync"

	"emby-shorts/internal/emby"
	"emby-shorts/internal/logging"
	"emby-shorts/internal/store"
)

// Fetcher is the slice of the Emby client the controller consumes.
type Fetcher interface {
	Items(qry emby.ItemsQuery) ([]emby.Item, error)
	Libraries() ([]emby.Library, error)
}

// FitMode controls how the video element letterboxes.
type FitMode string

const (
	FitContain FitMode = "contain"
	FitCover   FitMode = "cover"
)

// DisplayMode is the player feed vs the poster grid.
type DisplayMode string

const (
	DisplayPlayer DisplayMode = "player"
	DisplayGrid   DisplayMode = "grid"
)

// Options are the feed-level toggles the UI can flip.
type Options struct {
	Muted    bool
	Autoplay bool
	Fit      FitMode
	Display  DisplayMode
}

// Controller owns the paginated, filtered, category-scoped item list and
// decides which cell is active. All methods are safe for concurrent use; the
// lock is released during network I/O so a filter change can overtake an
// in-flight fetch, which the generation counter then discards.
type Controller struct {
	mu      sync.Mutex
	fetcher Fetcher
	prefs   *store.Prefs

	pageSize  int
	readAhead int

	items       []emby.Item
	seen        map[string]bool
	activeIndex int
	category    emby.Category
	libraryID   string
	loading     bool
	generation  uint64
	startIndex  int

	opts      Options
	libraries []emby.Library
	scrollSeq uint64 // bumped on programmatic scrolls (autoplay advance, grid jump)
	stale     bool   // server-side library change since last initial fetch

	onChange func()
}

func NewController(fetcher Fetcher, prefs *store.Prefs, pageSize, readAhead int) *Controller {
	if pageSize <= 0 {
		pageSize = 15
	}
	if readAhead <= 0 {
		readAhead = 3
	}
	return &Controller{
		fetcher:   fetcher,
		prefs:     prefs,
		pageSize:  pageSize,
		readAhead: readAhead,
		seen:      make(map[string]bool),
		category:  emby.CategoryRandom,
		opts: Options{
			Muted:    true,
			Autoplay: true,
			Fit:      FitContain,
			Display:  DisplayPlayer,
		},
	}
}

// OnChange registers a hook fired after every state mutation, outside the
// lock. The broadcaster uses it to push fresh snapshots.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Start performs the first fetch for the default filter selection.
func (c *Controller) Start() {
	c.mu.Lock()
	gen := c.resetLocked()
	c.mu.Unlock()
	c.fetch(gen, true)
}

// SetCategory discards all pagination state and fetches the new filter's
// first page. Switching always resets, even to the same category.
func (c *Controller) SetCategory(cat emby.Category) {
	if !cat.Valid() {
		return
	}
	c.mu.Lock()
	c.category = cat
	c.opts.Display = DisplayPlayer
	gen := c.resetLocked()
	c.mu.Unlock()
	c.fetch(gen, true)
}

// SetLibrary scopes the feed to one library; empty means all.
func (c *Controller) SetLibrary(id string) {
	c.mu.Lock()
	c.libraryID = id
	gen := c.resetLocked()
	c.mu.Unlock()
	c.fetch(gen, true)
}

// resetLocked clears the list, arms the loading flag, and invalidates any
// in-flight fetch. Returns the new generation.
func (c *Controller) resetLocked() uint64 {
	c.items = nil
	c.seen = make(map[string]bool)
	c.activeIndex = 0
	c.startIndex = 0
	c.loading = true
	c.stale = false
	c.generation++
	return c.generation
}

// fetch requests one page and applies it if the controller is still on the
// same generation. Loading is always cleared for the matching generation,
// success or failure.
func (c *Controller) fetch(gen uint64, initial bool) {
	c.mu.Lock()
	qry := emby.ItemsQuery{
		Category:  c.category,
		LibraryID: c.libraryID,
		Limit:     c.pageSize,
	}
	// Random re-shuffles server-side on every request; a start index only
	// means something for the deterministic sorts.
	if !initial && c.category != emby.CategoryRandom {
		qry.StartIndex = c.startIndex
	}
	c.mu.Unlock()

	items, err := c.fetcher.Items(qry)

	c.mu.Lock()
	if gen != c.generation {
		// A filter change overtook this fetch; its page belongs to a
		// selection that no longer exists.
		c.mu.Unlock()
		return
	}
	c.loading = false
	if err != nil {
		logging.Warn("feed fetch failed", "category", string(c.category), "error", err)
		c.mu.Unlock()
		c.notify()
		return
	}

	excluded := c.prefs.DislikedIDs()
	for _, it := range items {
		if excluded[it.ID] || c.seen[it.ID] {
			continue
		}
		c.seen[it.ID] = true
		c.items = append(c.items, it)
	}
	c.startIndex += len(items)
	c.mu.Unlock()
	c.notify()
}

// ScrollResult tells the caller whether the active cell moved.
type ScrollResult struct {
	ActiveChanged bool
	ActiveIndex   int
	ActiveItemID  string
	NextItemID    string // preload target
}

// HandleScroll maps a scroll offset to the nearest cell boundary and fires
// the read-ahead fetch when within reach of the end. Repeated events while a
// fetch is in flight are absorbed by the loading flag.
func (c *Controller) HandleScroll(offsetPx, cellHeightPx float64) ScrollResult {
	c.mu.Lock()
	if c.opts.Display == DisplayGrid || cellHeightPx <= 0 {
		res := c.resultLocked(false)
		c.mu.Unlock()
		return res
	}

	index := int(math.Round(offsetPx / cellHeightPx))
	changed := false
	if index != c.activeIndex && index >= 0 && index < len(c.items) {
		c.activeIndex = index
		changed = true
	}

	needMore := index >= len(c.items)-c.readAhead && len(c.items) > 0 && !c.loading
	var gen uint64
	if needMore {
		c.loading = true
		gen = c.generation
	}
	res := c.resultLocked(changed)
	c.mu.Unlock()

	if needMore {
		c.fetch(gen, false)
	}
	if changed {
		c.notify()
	}
	return res
}

func (c *Controller) resultLocked(changed bool) ScrollResult {
	res := ScrollResult{
		ActiveChanged: changed,
		ActiveIndex:   c.activeIndex,
	}
	if c.activeIndex >= 0 && c.activeIndex < len(c.items) {
		res.ActiveItemID = c.items[c.activeIndex].ID
	}
	if next := c.activeIndex + 1; next < len(c.items) {
		res.NextItemID = c.items[next].ID
	}
	return res
}

// OnEnded advances to the next cell when autoplay is on.
func (c *Controller) OnEnded() ScrollResult {
	c.mu.Lock()
	changed := false
	if c.opts.Autoplay && c.activeIndex < len(c.items)-1 {
		c.activeIndex++
		c.scrollSeq++
		changed = true
	}
	res := c.resultLocked(changed)
	c.mu.Unlock()
	if changed {
		c.notify()
	}
	return res
}

// JumpTo switches from the grid back to the player at a specific cell.
func (c *Controller) JumpTo(index int) ScrollResult {
	c.mu.Lock()
	changed := false
	if index >= 0 && index < len(c.items) {
		c.activeIndex = index
		c.opts.Display = DisplayPlayer
		c.scrollSeq++
		changed = true
	}
	res := c.resultLocked(changed)
	c.mu.Unlock()
	if changed {
		c.notify()
	}
	return res
}

// RemoveItem drops an item after a dislike or confirmed delete. When the
// list is about to run dry it refetches so the feed never dead-ends empty.
func (c *Controller) RemoveItem(id string) ScrollResult {
	c.mu.Lock()
	refetch := len(c.items) <= 1
	out := c.items[:0]
	for _, it := range c.items {
		if it.ID == id {
			delete(c.seen, it.ID)
			continue
		}
		out = append(out, it)
	}
	c.items = out
	if c.activeIndex >= len(c.items) && c.activeIndex > 0 {
		c.activeIndex = len(c.items) - 1
	}
	if c.activeIndex < 0 {
		c.activeIndex = 0
	}
	var gen uint64
	if refetch {
		gen = c.resetLocked()
	}
	res := c.resultLocked(true)
	c.mu.Unlock()

	if refetch {
		c.fetch(gen, true)
	}
	c.notify()
	return res
}

// Dislike persists the item to the block list and removes it from the feed
// in the same step, so a disliked id never stays rendered until the next
// fetch.
func (c *Controller) Dislike(id, name string) ScrollResult {
	if err := c.prefs.AddDisliked(id, name); err != nil {
		logging.Warn("persist dislike failed", "item", id, "error", err)
	}
	return c.RemoveItem(id)
}

// MarkStale records a server-side library change. The UI gets a refresh
// hint; nothing mutates mid-scroll.
func (c *Controller) MarkStale() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
	c.notify()
}

// SetOptions applies the feed-level toggles; nil fields are left alone.
func (c *Controller) SetOptions(muted, autoplay *bool, fit *FitMode, display *DisplayMode) {
	c.mu.Lock()
	if muted != nil {
		c.opts.Muted = *muted
	}
	if autoplay != nil {
		c.opts.Autoplay = *autoplay
	}
	if fit != nil && (*fit == FitContain || *fit == FitCover) {
		c.opts.Fit = *fit
	}
	if display != nil && (*display == DisplayPlayer || *display == DisplayGrid) {
		c.opts.Display = *display
	}
	c.mu.Unlock()
	c.notify()
}

// Libraries returns the cached library list, fetching it on first use.
// Failures are logged and read as empty; the next call retries.
func (c *Controller) Libraries() []emby.Library {
	c.mu.Lock()
	if c.libraries != nil {
		libs := c.libraries
		c.mu.Unlock()
		return libs
	}
	c.mu.Unlock()

	libs, err := c.fetcher.Libraries()
	if err != nil {
		logging.Warn("library fetch failed", "error", err)
		return nil
	}

	c.mu.Lock()
	c.libraries = libs
	c.mu.Unlock()
	return libs
}

// State is a point-in-time copy of the feed for snapshot assembly.
type State struct {
	Items       []emby.Item
	ActiveIndex int
	Category    emby.Category
	LibraryID   string
	Loading     bool
	Options     Options
	ScrollSeq   uint64
	Stale       bool
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]emby.Item, len(c.items))
	copy(items, c.items)
	return State{
		Items:       items,
		ActiveIndex: c.activeIndex,
		Category:    c.category,
		LibraryID:   c.libraryID,
		Loading:     c.loading,
		Options:     c.opts,
		ScrollSeq:   c.scrollSeq,
		Stale:       c.stale,
	}
}
