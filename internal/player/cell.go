package player

import (
	"time"

	"emby-shorts/internal/emby"
)

// State is the cell's playback phase. Sheets and the delete countdown are
// overlays on top of an active phase.
type State int

const (
	StateInactive State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateFastForward
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFastForward:
		return "fast-forward"
	default:
		return "unknown"
	}
}

// Zone is where on the viewport a press landed. The outer ~10% of the width
// on either side is the edge zone.
type Zone string

const (
	ZoneEdge   Zone = "edge"
	ZoneCenter Zone = "center"
)

// Preload is the media-load hint for the browser video element.
type Preload string

const (
	PreloadFull Preload = "auto"     // next-in-scroll-order cell
	PreloadMeta Preload = "metadata" // everything else off-screen
)

// DeleteAction is the outcome of a delete tap.
type DeleteAction int

const (
	DeleteNoop DeleteAction = iota
	DeleteArmed
	DeleteConfirmed
)

const fastForwardRate = 2.0

// speedOptions are the discrete sustained rates the menu offers.
var speedOptions = map[float64]bool{
	0.5: true, 0.75: true, 1.0: true, 1.25: true, 1.5: true, 2.0: true, 3.0: true,
}

// Cell is the per-item playback state machine. One instance exists per feed
// entry; becoming inactive is a full reset except for the sustained base
// rate, which is a per-cell choice.
type Cell struct {
	Item emby.Item

	state State

	baseRate float64
	rate     float64

	speedMenuOpen bool
	infoOpen      bool

	// press-and-hold tracking; fired by Tick once the hold crosses the
	// threshold
	pressActive    bool
	pressZone      Zone
	pressStartedAt time.Time
	longPressFired bool
	suppressTap    bool

	// two-step delete countdown
	deleteArmed    bool
	deleteDeadline time.Time

	favorite  bool // optimistic; flipped before the server answers
	landscape bool
	preload   Preload

	longPressAfter time.Duration
	deleteArmFor   time.Duration
	now            func() time.Time
}

func newCell(item emby.Item, longPress, deleteArm time.Duration, now func() time.Time) *Cell {
	if now == nil {
		now = time.Now
	}
	return &Cell{
		Item:           item,
		state:          StateInactive,
		baseRate:       1.0,
		rate:           1.0,
		favorite:       item.UserData.IsFavorite,
		preload:        PreloadMeta,
		longPressAfter: longPress,
		deleteArmFor:   deleteArm,
		now:            now,
	}
}

func (c *Cell) State() State         { return c.state }
func (c *Cell) Rate() float64        { return c.rate }
func (c *Cell) BaseRate() float64    { return c.baseRate }
func (c *Cell) SpeedMenuOpen() bool  { return c.speedMenuOpen }
func (c *Cell) InfoOpen() bool       { return c.infoOpen }
func (c *Cell) DeleteArmed() bool    { return c.deleteArmed }
func (c *Cell) Favorite() bool       { return c.favorite }
func (c *Cell) Landscape() bool      { return c.landscape }
func (c *Cell) PreloadHint() Preload { return c.preload }

// activate begins the media load/playback attempt.
func (c *Cell) activate() {
	if c.state != StateInactive {
		return
	}
	c.state = StateLoading
}

// deactivate is the full reset for a cell leaving the active index: pause,
// cancel timers, close sheets, disarm delete. The base rate survives.
func (c *Cell) deactivate() {
	c.state = StateInactive
	c.rate = c.baseRate
	c.speedMenuOpen = false
	c.infoOpen = false
	c.pressActive = false
	c.longPressFired = false
	c.suppressTap = false
	c.deleteArmed = false
	c.deleteDeadline = time.Time{}
}

// PlaybackStarted confirms the load attempt succeeded.
func (c *Cell) PlaybackStarted() {
	if c.state == StateLoading {
		c.state = StatePlaying
	}
}

// PlaybackRejected handles an autoplay-policy refusal: surface a paused,
// tappable state, never an error.
func (c *Cell) PlaybackRejected() {
	if c.state == StateLoading {
		c.state = StatePaused
	}
}

// Tap toggles play/pause. It is swallowed right after a long-press and while
// any sheet is open.
func (c *Cell) Tap() {
	if c.suppressTap {
		c.suppressTap = false
		return
	}
	if c.speedMenuOpen || c.infoOpen {
		return
	}
	switch c.state {
	case StatePlaying:
		c.state = StatePaused
	case StatePaused:
		c.state = StatePlaying
	}
}

// PressBegin starts long-press tracking; nothing fires until Tick observes
// the hold crossing the threshold.
func (c *Cell) PressBegin(zone Zone) {
	if c.state != StatePlaying {
		return
	}
	c.pressActive = true
	c.pressZone = zone
	c.pressStartedAt = c.now()
	c.longPressFired = false
}

// PressEnd releases the hold. A fired edge-zone press reverts to the base
// rate; either fired variant swallows the trailing tap.
func (c *Cell) PressEnd() {
	if !c.pressActive {
		return
	}
	c.pressActive = false
	if !c.longPressFired {
		return
	}
	c.suppressTap = true
	if c.state == StateFastForward {
		c.state = StatePlaying
		c.rate = c.baseRate
	}
}

// SelectRate picks a sustained base rate from the menu and closes it. The
// choice is scoped to this cell only.
func (c *Cell) SelectRate(rate float64) {
	if !c.speedMenuOpen || !speedOptions[rate] {
		return
	}
	c.baseRate = rate
	c.rate = rate
	c.speedMenuOpen = false
}

// OpenInfo shows the detail sheet without touching playback.
func (c *Cell) OpenInfo() {
	if c.state == StateInactive {
		return
	}
	c.infoOpen = true
}

// CloseInfo returns to the prior playing/paused state, which was never
// altered.
func (c *Cell) CloseInfo() {
	c.infoOpen = false
}

// CloseSpeedMenu dismisses the sheet without changing the base rate.
func (c *Cell) CloseSpeedMenu() {
	c.speedMenuOpen = false
}

// DeleteTap is the two-step confirmation: first tap arms a countdown, a
// second tap inside the window confirms. The lapse is handled by Tick.
func (c *Cell) DeleteTap() DeleteAction {
	if c.state == StateInactive {
		return DeleteNoop
	}
	now := c.now()
	if c.deleteArmed && now.Before(c.deleteDeadline) {
		c.deleteArmed = false
		c.deleteDeadline = time.Time{}
		return DeleteConfirmed
	}
	c.deleteArmed = true
	c.deleteDeadline = now.Add(c.deleteArmFor)
	return DeleteArmed
}

// FlipFavorite flips the optimistic local flag and returns the new value for
// the async server call. There is no rollback on failure; see DESIGN.md.
func (c *Cell) FlipFavorite() bool {
	c.favorite = !c.favorite
	return c.favorite
}

// SetLandscape records the reported video aspect so the UI can offer the
// fullscreen affordance.
func (c *Cell) SetLandscape(landscape bool) {
	c.landscape = landscape
}

// Ended leaves the cell paused at the end of playback; marking played and
// advancing the feed happen upstream.
func (c *Cell) Ended() {
	if c.state == StatePlaying || c.state == StateFastForward {
		c.state = StatePaused
		c.rate = c.baseRate
		c.pressActive = false
		c.longPressFired = false
	}
}

// tick advances deadline-based behavior: fires a long-press once the hold
// crosses the threshold, and silently disarms a lapsed delete countdown.
// Returns true when anything changed.
func (c *Cell) tick(now time.Time) bool {
	changed := false

	if c.pressActive && !c.longPressFired && now.Sub(c.pressStartedAt) >= c.longPressAfter {
		c.longPressFired = true
		changed = true
		switch c.pressZone {
		case ZoneEdge:
			if c.state == StatePlaying {
				c.state = StateFastForward
				c.rate = fastForwardRate
			}
		case ZoneCenter:
			if c.state == StatePlaying {
				c.speedMenuOpen = true
			}
		}
	}

	if c.deleteArmed && !now.Before(c.deleteDeadline) {
		// lapse: back to the unarmed affordance, no side effect
		c.deleteArmed = false
		c.deleteDeadline = time.Time{}
		changed = true
	}

	return changed
}
