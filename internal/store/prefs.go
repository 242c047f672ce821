package store

import (
	"encoding/json"
	"time"

	"emby-shorts/internal/emby"
	"emby-shorts/internal/logging"
)

// DislikedItem is one locally hidden entry. The id set is the authoritative
// exclusion filter applied to every feed fetch.
type DislikedItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AddedAt int64  `json:"addedAt"` // unix milliseconds
}

// Prefs is the typed layer over the two persisted blobs. Every mutation is a
// whole-document read-modify-write; callers must not cache the list across
// mutations.
type Prefs struct {
	store Store
	now   func() time.Time
}

func NewPrefs(s Store) *Prefs {
	return &Prefs{store: s, now: time.Now}
}

// LoadSession returns the persisted session, or ok=false when absent. A
// malformed blob is treated as absent and cleared rather than surfaced.
func (p *Prefs) LoadSession() (emby.Session, bool) {
	raw, ok, err := p.store.Get(KeySession)
	if err != nil {
		logging.Warn("load session failed", "error", err)
		return emby.Session{}, false
	}
	if !ok {
		return emby.Session{}, false
	}
	var s emby.Session
	if err := json.Unmarshal(raw, &s); err != nil || s.ServerURL == "" || s.AccessToken == "" {
		logging.Warn("discarding malformed session blob")
		_ = p.store.Remove(KeySession)
		return emby.Session{}, false
	}
	return s, true
}

func (p *Prefs) SaveSession(s emby.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.store.Set(KeySession, raw)
}

// ClearSession removes the session only. Disliked items intentionally
// survive logout.
func (p *Prefs) ClearSession() error {
	return p.store.Remove(KeySession)
}

// Disliked returns the current block list. A missing or malformed blob reads
// as empty.
func (p *Prefs) Disliked() []DislikedItem {
	raw, ok, err := p.store.Get(KeyDisliked)
	if err != nil {
		logging.Warn("load disliked list failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var list []DislikedItem
	if err := json.Unmarshal(raw, &list); err != nil {
		logging.Warn("discarding malformed disliked list")
		return nil
	}
	return list
}

// DislikedIDs returns the id set for fetch-time filtering.
func (p *Prefs) DislikedIDs() map[string]bool {
	list := p.Disliked()
	ids := make(map[string]bool, len(list))
	for _, d := range list {
		ids[d.ID] = true
	}
	return ids
}

// AddDisliked appends an entry, deduplicating by id.
func (p *Prefs) AddDisliked(id, name string) error {
	list := p.Disliked()
	for _, d := range list {
		if d.ID == id {
			return nil
		}
	}
	list = append(list, DislikedItem{
		ID:      id,
		Name:    name,
		AddedAt: p.now().UnixMilli(),
	})
	return p.saveDisliked(list)
}

// RemoveDisliked drops a single entry by id.
func (p *Prefs) RemoveDisliked(id string) error {
	list := p.Disliked()
	out := list[:0]
	for _, d := range list {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return p.saveDisliked(out)
}

// ClearDisliked empties the block list.
func (p *Prefs) ClearDisliked() error {
	return p.store.Remove(KeyDisliked)
}

func (p *Prefs) saveDisliked(list []DislikedItem) error {
	if list == nil {
		list = []DislikedItem{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return p.store.Set(KeyDisliked, raw)
}
