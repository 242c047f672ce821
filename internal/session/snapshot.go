package session

import (
	"fmt"
	"net/url"

	"emby-shorts/internal/emby"
	"emby-shorts/internal/player"
)

// ItemView is one feed entry as the UI renders it. Image URLs go through our
// proxy; video URLs point at the Emby server directly, token included, the
// way the browser video element wants them.
type ItemView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	RuntimeMinutes int64  `json:"runtime_minutes"`
	Overview       string `json:"overview,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	VideoURL       string `json:"video_url"`
	Favorite       bool   `json:"favorite"`
	PlayCount      int    `json:"play_count"`
}

// Snapshot is the full feed+player state pushed to the UI.
type Snapshot struct {
	Items       []ItemView                  `json:"items"`
	ActiveIndex int                         `json:"active_index"`
	Category    string                      `json:"category"`
	LibraryID   string                      `json:"library_id"`
	Loading     bool                        `json:"loading"`
	Muted       bool                        `json:"muted"`
	Autoplay    bool                        `json:"autoplay"`
	Fit         string                      `json:"fit"`
	Display     string                      `json:"display"`
	ScrollSeq   uint64                      `json:"scroll_seq"`
	Stale       bool                        `json:"refresh_available"`
	Cells       map[string]player.CellState `json:"cells"`
}

// ticks per minute in Emby's 100ns runtime unit
const ticksPerMinute = 600_000_000

func (rt *Runtime) videoOptions() emby.VideoOptions {
	return emby.VideoOptions{Transcode: rt.cfg.ForceTranscode}
}

// Snapshot assembles the current feed and cell state for the push channel
// and the REST snapshot endpoint.
func (rt *Runtime) Snapshot() Snapshot {
	state := rt.Controller.State()
	cells := rt.Registry.States()

	items := make([]ItemView, 0, len(state.Items))
	for _, it := range state.Items {
		view := ItemView{
			ID:             it.ID,
			Name:           it.Name,
			Type:           it.Type,
			RuntimeMinutes: it.RunTimeTicks / ticksPerMinute,
			Overview:       it.Overview,
			VideoURL:       rt.Client.VideoURL(it.ID, rt.videoOptions()),
			Favorite:       it.UserData.IsFavorite,
			PlayCount:      it.UserData.PlayCount,
		}
		if cs, ok := cells[it.ID]; ok {
			view.Favorite = cs.Favorite
		}
		if tag := it.ImageTags.Primary; tag != "" {
			view.ImageURL = fmt.Sprintf("/img/primary/%s?tag=%s", url.PathEscape(it.ID), url.QueryEscape(tag))
		}
		items = append(items, view)
	}

	return Snapshot{
		Items:       items,
		ActiveIndex: state.ActiveIndex,
		Category:    string(state.Category),
		LibraryID:   state.LibraryID,
		Loading:     state.Loading,
		Muted:       state.Options.Muted,
		Autoplay:    state.Options.Autoplay,
		Fit:         string(state.Options.Fit),
		Display:     string(state.Options.Display),
		ScrollSeq:   state.ScrollSeq,
		Stale:       state.Stale,
		Cells:       cells,
	}
}
