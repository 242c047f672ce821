package emby

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Category selects one of the three feed sort/filter modes.
type Category string

const (
	CategoryFavorites Category = "IsFavorite"
	CategoryNewest    Category = "DateCreated"
	CategoryRandom    Category = "Random"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFavorites, CategoryNewest, CategoryRandom:
		return true
	}
	return false
}

// Session is the authenticated identity against one Emby server.
// A new login replaces it wholesale.
type Session struct {
	ServerURL   string `json:"server_url"`
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	IsAdmin     bool   `json:"is_admin"`
	DeviceID    string `json:"device_id"`
}

// UserData is the per-user playback state Emby attaches to an item.
type UserData struct {
	IsFavorite            bool  `json:"IsFavorite"`
	PlayCount             int   `json:"PlayCount"`
	PlaybackPositionTicks int64 `json:"PlaybackPositionTicks"`
}

// Item is one playable feed entry as returned by /Users/{id}/Items.
type Item struct {
	ID        string    `json:"Id"`
	Name      string    `json:"Name"`
	Type      string    `json:"Type"`
	MediaType string    `json:"MediaType"`
	ImageTags ImageTags `json:"ImageTags"`
	UserData  UserData  `json:"UserData"`

	RunTimeTicks int64  `json:"RunTimeTicks,omitempty"`
	Overview     string `json:"Overview,omitempty"`
	ParentID     string `json:"ParentId,omitempty"`
}

type ImageTags struct {
	Primary string `json:"Primary,omitempty"`
}

// Library is a coarse content-root filter (a "view" in Emby terms).
type Library struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type Client struct {
	session Session
	http    *http.Client
}

// NewClient wraps an authenticated session. Use Authenticate to obtain one.
func NewClient(s Session) *Client {
	s.ServerURL = strings.TrimRight(s.ServerURL, "/")
	return &Client{
		session: s,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) Session() Session { return c.session }

// readJSON enforces 200 OK and JSON-decodes into dst.
// On failure, it returns an error that includes status and a short body snippet.
func readJSON(resp *http.Response, dst any) error {
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d from %s: %s", resp.StatusCode, resp.Request.URL.String(), snippet(b))
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode json from %s: %w; body: %q", resp.Request.URL.String(), err, snippet(b))
	}
	return nil
}

func snippet(b []byte) string {
	s := string(b)
	if len(s) > 240 {
		s = s[:240] + "…"
	}
	return s
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("X-Emby-Token", c.session.AccessToken)
	req.Header.Set("X-Emby-Authorization", authorizationHeader(c.session.DeviceID))
	req.Header.Set("Content-Type", "application/json")
}

// ItemsQuery describes one page request against /Users/{id}/Items.
type ItemsQuery struct {
	Category   Category
	LibraryID  string // empty means all libraries
	Limit      int
	StartIndex int // honored for deterministic sorts; Random ignores it server-side
}

type itemsResp struct {
	Items []Item `json:"Items"`
	Total int    `json:"TotalRecordCount"`
}

// Items fetches one page of feed candidates. The category picks the sort:
// IsFavorite filters to favorites by name, DateCreated is newest first, and
// Random lets the server shuffle.
func (c *Client) Items(qry ItemsQuery) ([]Item, error) {
	u := fmt.Sprintf("%s/Users/%s/Items", c.session.ServerURL, url.PathEscape(c.session.UserID))
	q := url.Values{}
	q.Set("Recursive", "true")
	q.Set("IncludeItemTypes", "Movie,Episode,Video")
	q.Set("Fields", "UserData,RunTimeTicks,Overview,ParentId,Taglines")
	q.Set("EnableImageTypes", "Primary,Backdrop")
	q.Set("ImageTypeLimit", "1")

	limit := qry.Limit
	if limit <= 0 {
		limit = 20
	}
	q.Set("Limit", strconv.Itoa(limit))
	if qry.StartIndex > 0 {
		q.Set("StartIndex", strconv.Itoa(qry.StartIndex))
	}
	if qry.LibraryID != "" {
		q.Set("ParentId", qry.LibraryID)
	}

	switch qry.Category {
	case CategoryFavorites:
		q.Set("Filters", "IsFavorite")
		q.Set("SortBy", "SortName")
	case CategoryNewest:
		q.Set("SortBy", "DateCreated")
		q.Set("SortOrder", "Descending")
	default:
		q.Set("SortBy", "Random")
	}

	req, err := http.NewRequest(http.MethodGet, u+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.headers(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	var out itemsResp
	if err := readJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

type viewsResp struct {
	Items []struct {
		ID             string `json:"Id"`
		Name           string `json:"Name"`
		CollectionType string `json:"CollectionType"`
	} `json:"Items"`
}

// feed-worthy collection types; views with no collection type are kept too
var videoCollectionTypes = map[string]bool{
	"movies":      true,
	"tvshows":     true,
	"homevideos":  true,
	"musicvideos": true,
}

// Libraries lists the user's views, keeping only video-bearing collections.
func (c *Client) Libraries() ([]Library, error) {
	u := fmt.Sprintf("%s/Users/%s/Views", c.session.ServerURL, url.PathEscape(c.session.UserID))

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.headers(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	var out viewsResp
	if err := readJSON(resp, &out); err != nil {
		return nil, err
	}

	libs := make([]Library, 0, len(out.Items))
	for _, v := range out.Items {
		if v.CollectionType != "" && !videoCollectionTypes[v.CollectionType] {
			continue
		}
		libs = append(libs, Library{ID: v.ID, Name: v.Name})
	}
	return libs, nil
}

// DeleteItem removes the item from the server. Any non-2xx status is an error;
// the caller decides whether to surface it.
func (c *Client) DeleteItem(itemID string) error {
	u := fmt.Sprintf("%s/Items/%s", c.session.ServerURL, url.PathEscape(itemID))

	req, err := http.NewRequest(http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	c.headers(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete item %s: http %d: %s", itemID, resp.StatusCode, snippet(b))
	}
	return nil
}

// SetFavorite flips the server-side favorite flag: POST marks, DELETE unmarks.
func (c *Client) SetFavorite(itemID string, favorite bool) error {
	u := fmt.Sprintf("%s/Users/%s/FavoriteItems/%s",
		c.session.ServerURL, url.PathEscape(c.session.UserID), url.PathEscape(itemID))

	method := http.MethodPost
	if !favorite {
		method = http.MethodDelete
	}
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	c.headers(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("set favorite %s=%v: http %d", itemID, favorite, resp.StatusCode)
	}
	return nil
}

// MarkPlayed records a completed playback. Fire-and-forget at the call sites;
// failures are logged, never surfaced.
func (c *Client) MarkPlayed(itemID string) error {
	u := fmt.Sprintf("%s/Users/%s/PlayedItems/%s",
		c.session.ServerURL, url.PathEscape(c.session.UserID), url.PathEscape(itemID))

	req, err := http.NewRequest(http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	c.headers(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mark played %s: http %d", itemID, resp.StatusCode)
	}
	return nil
}

// VideoOptions selects between static passthrough and an HLS transcode.
type VideoOptions struct {
	Transcode bool
}

// VideoURL builds the playback URL the browser video element consumes.
func (c *Client) VideoURL(itemID string, opts VideoOptions) string {
	if opts.Transcode {
		q := url.Values{}
		q.Set("api_key", c.session.AccessToken)
		q.Set("Container", "ts")
		q.Set("VideoCodec", "h264")
		q.Set("AudioCodec", "aac")
		return fmt.Sprintf("%s/Videos/%s/master.m3u8?%s",
			c.session.ServerURL, url.PathEscape(itemID), q.Encode())
	}
	q := url.Values{}
	q.Set("api_key", c.session.AccessToken)
	q.Set("Static", "true")
	return fmt.Sprintf("%s/Videos/%s/stream.mp4?%s",
		c.session.ServerURL, url.PathEscape(itemID), q.Encode())
}

// ImageURL builds a bounded primary-image URL; empty tag means no image.
func (c *Client) ImageURL(itemID, tag string, maxWidth, quality int) string {
	if tag == "" {
		return ""
	}
	q := url.Values{}
	q.Set("tag", tag)
	q.Set("maxWidth", strconv.Itoa(maxWidth))
	q.Set("quality", strconv.Itoa(quality))
	return fmt.Sprintf("%s/Items/%s/Images/Primary?%s",
		c.session.ServerURL, url.PathEscape(itemID), q.Encode())
}

// Ping checks server reachability with the session token.
func (c *Client) Ping() error {
	u := fmt.Sprintf("%s/System/Info/Public", c.session.ServerURL)

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return readJSON(resp, nil)
}
