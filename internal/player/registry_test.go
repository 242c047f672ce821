package player

import (
	"testing"
	"time"

	"emby-shorts/internal/emby"
)

func testItems(ids ...string) []emby.Item {
	out := make([]emby.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, emby.Item{ID: id, Name: "Item " + id})
	}
	return out
}

func newTestRegistry(clk *fakeClock) *Registry {
	r := NewRegistry(450*time.Millisecond, 3500*time.Millisecond)
	r.SetNow(clk.Now)
	return r
}

func TestSyncCreatesAndDropsCells(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.Sync(testItems("a", "b", "c"))

	if _, ok := r.Cell("b"); !ok {
		t.Fatal("Expected cell for b")
	}

	r.Sync(testItems("a", "c"))
	if _, ok := r.Cell("b"); ok {
		t.Error("Expected removed item's cell dropped")
	}
	if _, ok := r.Cell("a"); !ok {
		t.Error("Expected surviving cell kept")
	}
}

func TestSyncKeepsCellState(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.Sync(testItems("a", "b"))
	r.SetActive("a", "b")
	r.WithCell("a", func(c *Cell) { c.PlaybackStarted() })

	r.Sync(testItems("a", "b", "c"))

	c, _ := r.Cell("a")
	if c.State() != StatePlaying {
		t.Errorf("Expected existing cell untouched by sync, got %v", c.State())
	}
}

func TestSetActiveDeactivatesPrevious(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.Sync(testItems("a", "b", "c"))
	r.SetActive("a", "b")
	r.WithCell("a", func(c *Cell) {
		c.PlaybackStarted()
		c.OpenInfo()
		c.DeleteTap()
	})

	r.SetActive("b", "c")

	prev, _ := r.Cell("a")
	if prev.State() != StateInactive {
		t.Errorf("Expected previous cell inactive, got %v", prev.State())
	}
	if prev.InfoOpen() || prev.DeleteArmed() {
		t.Error("Expected previous cell fully reset")
	}
	cur, _ := r.Cell("b")
	if cur.State() != StateLoading {
		t.Errorf("Expected new active cell loading, got %v", cur.State())
	}
	if r.ActiveID() != "b" {
		t.Errorf("Expected active id b, got %q", r.ActiveID())
	}
}

func TestSetActiveSameIDKeepsState(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.Sync(testItems("a", "b"))
	r.SetActive("a", "b")
	r.WithCell("a", func(c *Cell) { c.PlaybackStarted() })

	r.SetActive("a", "b")

	c, _ := r.Cell("a")
	if c.State() != StatePlaying {
		t.Errorf("Expected re-activation of the same cell to be a no-op, got %v", c.State())
	}
}

func TestSetActiveAssignsPreloadHints(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.Sync(testItems("a", "b", "c", "d"))
	r.SetActive("b", "c")

	next, _ := r.Cell("c")
	if next.PreloadHint() != PreloadFull {
		t.Errorf("Expected next cell preloading fully, got %v", next.PreloadHint())
	}
	far, _ := r.Cell("d")
	if far.PreloadHint() != PreloadMeta {
		t.Errorf("Expected far cell on metadata, got %v", far.PreloadHint())
	}
}

func TestTickSweepsAllCells(t *testing.T) {
	clk := newFakeClock()
	r := newTestRegistry(clk)
	r.Sync(testItems("a", "b"))
	r.SetActive("a", "b")
	r.WithCell("a", func(c *Cell) {
		c.PlaybackStarted()
		c.PressBegin(ZoneEdge)
		c.DeleteTap()
	})

	clk.Advance(500 * time.Millisecond)
	r.Tick()

	c, _ := r.Cell("a")
	if c.State() != StateFastForward {
		t.Errorf("Expected sweep to fire the long-press, got %v", c.State())
	}
	if !c.DeleteArmed() {
		t.Error("Expected delete still armed inside its window")
	}

	clk.Advance(4 * time.Second)
	r.Tick()
	if c.DeleteArmed() {
		t.Error("Expected sweep to disarm the lapsed delete")
	}
}

func TestWithCellUnknownID(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.Sync(testItems("a"))

	if r.WithCell("nope", func(c *Cell) { t.Fatal("fn must not run") }) {
		t.Error("Expected false for unknown cell")
	}
	if !r.WithCell("a", func(c *Cell) {}) {
		t.Error("Expected true for known cell")
	}
}

func TestStatesSnapshot(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.Sync(testItems("a", "b"))
	r.SetActive("a", "b")
	r.WithCell("a", func(c *Cell) { c.PlaybackStarted() })

	states := r.States()
	if len(states) != 2 {
		t.Fatalf("Expected 2 cell states, got %d", len(states))
	}
	if states["a"].State != "playing" {
		t.Errorf("Expected playing, got %q", states["a"].State)
	}
	if states["b"].Preload != "auto" {
		t.Errorf("Expected next cell preload auto, got %q", states["b"].Preload)
	}
}

func TestOnChangeFires(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.Sync(testItems("a"))

	fired := 0
	r.OnChange(func() { fired++ })
	r.SetActive("a", "")
	r.WithCell("a", func(c *Cell) { c.PlaybackStarted() })

	if fired != 2 {
		t.Errorf("Expected 2 notifications, got %d", fired)
	}
}
