package session

import (
	"fmt"

	"emby-shorts/internal/emby"
	"emby-shorts/internal/feed"
	"emby-shorts/internal/logging"
	"emby-shorts/internal/player"
)

// syncCells reconciles the registry with the controller's item list and
// re-applies the active/preload assignment.
func (rt *Runtime) syncCells() {
	state := rt.Controller.State()
	rt.Registry.Sync(state.Items)

	var activeID, nextID string
	if state.ActiveIndex >= 0 && state.ActiveIndex < len(state.Items) {
		activeID = state.Items[state.ActiveIndex].ID
	}
	if n := state.ActiveIndex + 1; n >= 0 && n < len(state.Items) {
		nextID = state.Items[n].ID
	}
	if activeID != "" {
		rt.Registry.SetActive(activeID, nextID)
	}
}

func (rt *Runtime) applyScroll(res feed.ScrollResult) {
	rt.Registry.Sync(rt.Controller.State().Items)
	if res.ActiveItemID != "" {
		rt.Registry.SetActive(res.ActiveItemID, res.NextItemID)
	}
}

// Scroll maps a scroll offset onto the feed and moves cell activation along
// with the active index.
func (rt *Runtime) Scroll(offsetPx, cellHeightPx float64) {
	res := rt.Controller.HandleScroll(offsetPx, cellHeightPx)
	rt.applyScroll(res)
}

// SetCategory resets the feed to a fresh filter selection.
func (rt *Runtime) SetCategory(cat emby.Category) {
	rt.Controller.SetCategory(cat)
	rt.syncCells()
}

// SetLibrary scopes the feed to one library.
func (rt *Runtime) SetLibrary(id string) {
	rt.Controller.SetLibrary(id)
	rt.syncCells()
}

// JumpTo switches from the grid to the player at the given cell.
func (rt *Runtime) JumpTo(index int) {
	res := rt.Controller.JumpTo(index)
	rt.applyScroll(res)
}

// Ended handles playback completion of a cell: mark played fire-and-forget,
// then let the controller advance if autoplay is on.
func (rt *Runtime) Ended(itemID string) {
	rt.Registry.WithCell(itemID, func(c *player.Cell) { c.Ended() })

	go func() {
		if err := rt.Client.MarkPlayed(itemID); err != nil {
			logging.Warn("mark played failed", "item", itemID, "error", err)
		}
	}()

	res := rt.Controller.OnEnded()
	rt.applyScroll(res)
}

// Favorite flips the optimistic flag and fires the server call. Failures are
// logged, never rolled back.
func (rt *Runtime) Favorite(itemID string) (bool, error) {
	var next bool
	ok := rt.Registry.WithCell(itemID, func(c *player.Cell) { next = c.FlipFavorite() })
	if !ok {
		return false, fmt.Errorf("unknown item %s", itemID)
	}
	go func() {
		if err := rt.Client.SetFavorite(itemID, next); err != nil {
			logging.Warn("set favorite failed", "item", itemID, "error", err)
		}
	}()
	return next, nil
}

// Dislike adds the item to the local block list and removes it from the
// feed.
func (rt *Runtime) Dislike(itemID string) error {
	name := itemID
	if c, ok := rt.Registry.Cell(itemID); ok {
		name = c.Item.Name
	}
	res := rt.Controller.Dislike(itemID, name)
	rt.applyScroll(res)
	return nil
}

// DeleteTap drives the two-step confirmation. Only a confirmed second tap
// hits the server; a failed deletion leaves the item in the feed and
// surfaces the error for a blocking alert.
func (rt *Runtime) DeleteTap(itemID string) (player.DeleteAction, error) {
	var action player.DeleteAction
	ok := rt.Registry.WithCell(itemID, func(c *player.Cell) { action = c.DeleteTap() })
	if !ok {
		return player.DeleteNoop, fmt.Errorf("unknown item %s", itemID)
	}
	if action != player.DeleteConfirmed {
		return action, nil
	}

	if err := rt.Client.DeleteItem(itemID); err != nil {
		logging.Error("delete failed", "item", itemID, "error", err)
		return action, err
	}
	res := rt.Controller.RemoveItem(itemID)
	rt.applyScroll(res)
	return action, nil
}
