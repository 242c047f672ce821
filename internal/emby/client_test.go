package emby

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testClient(srv *httptest.Server) *Client {
	return NewClient(Session{
		ServerURL:   srv.URL,
		AccessToken: "tok",
		UserID:      "u1",
		DeviceID:    "dev1",
	})
}

func TestItemsQueryParams(t *testing.T) {
	var got url.Values
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		got = r.URL.Query()
		if r.Header.Get("X-Emby-Token") != "tok" {
			t.Errorf("Expected token header, got %q", r.Header.Get("X-Emby-Token"))
		}
		w.Write([]byte(`{"Items":[{"Id":"i1","Name":"One"}],"TotalRecordCount":1}`))
	}))
	defer srv.Close()
	c := testClient(srv)

	items, err := c.Items(ItemsQuery{Category: CategoryRandom, Limit: 15})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "i1" {
		t.Fatalf("Expected decoded item, got %+v", items)
	}
	if path != "/Users/u1/Items" {
		t.Errorf("Expected /Users/u1/Items, got %s", path)
	}
	if got.Get("Recursive") != "true" {
		t.Error("Expected Recursive=true")
	}
	if got.Get("IncludeItemTypes") != "Movie,Episode,Video" {
		t.Errorf("Expected video item types, got %q", got.Get("IncludeItemTypes"))
	}
	if got.Get("Limit") != "15" {
		t.Errorf("Expected Limit=15, got %q", got.Get("Limit"))
	}
	if got.Get("SortBy") != "Random" {
		t.Errorf("Expected SortBy=Random, got %q", got.Get("SortBy"))
	}
	if got.Get("StartIndex") != "" {
		t.Errorf("Expected no StartIndex, got %q", got.Get("StartIndex"))
	}
}

func TestItemsCategoryMapping(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"Items":[]}`))
	}))
	defer srv.Close()
	c := testClient(srv)

	if _, err := c.Items(ItemsQuery{Category: CategoryFavorites}); err != nil {
		t.Fatal(err)
	}
	if got.Get("Filters") != "IsFavorite" || got.Get("SortBy") != "SortName" {
		t.Errorf("Favorites: Expected IsFavorite filter sorted by name, got %v", got)
	}

	if _, err := c.Items(ItemsQuery{Category: CategoryNewest, StartIndex: 30}); err != nil {
		t.Fatal(err)
	}
	if got.Get("SortBy") != "DateCreated" || got.Get("SortOrder") != "Descending" {
		t.Errorf("Newest: Expected DateCreated descending, got %v", got)
	}
	if got.Get("StartIndex") != "30" {
		t.Errorf("Expected StartIndex=30, got %q", got.Get("StartIndex"))
	}
}

func TestItemsLibraryScope(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"Items":[]}`))
	}))
	defer srv.Close()
	c := testClient(srv)

	if _, err := c.Items(ItemsQuery{Category: CategoryRandom, LibraryID: "lib42"}); err != nil {
		t.Fatal(err)
	}
	if got.Get("ParentId") != "lib42" {
		t.Errorf("Expected ParentId=lib42, got %q", got.Get("ParentId"))
	}
}

func TestItemsErrorIncludesSnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()
	c := testClient(srv)

	_, err := c.Items(ItemsQuery{Category: CategoryRandom})
	if err == nil {
		t.Fatal("Expected error on 500")
	}
	if !strings.Contains(err.Error(), "http 500") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected status and body snippet in error, got %v", err)
	}
}

func TestLibrariesFiltersCollectionTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Users/u1/Views" {
			t.Errorf("Expected /Users/u1/Views, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"Items":[
			{"Id":"l1","Name":"Movies","CollectionType":"movies"},
			{"Id":"l2","Name":"Music","CollectionType":"music"},
			{"Id":"l3","Name":"Mixed","CollectionType":""},
			{"Id":"l4","Name":"Home Videos","CollectionType":"homevideos"}
		]}`))
	}))
	defer srv.Close()
	c := testClient(srv)

	libs, err := c.Libraries()
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 3 {
		t.Fatalf("Expected 3 video libraries, got %d", len(libs))
	}
	for _, l := range libs {
		if l.ID == "l2" {
			t.Error("Music library should be filtered out")
		}
	}
}

func TestDeleteItem(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := testClient(srv)

	if err := c.DeleteItem("i9"); err != nil {
		t.Fatal(err)
	}
	if method != http.MethodDelete || path != "/Items/i9" {
		t.Errorf("Expected DELETE /Items/i9, got %s %s", method, path)
	}
}

func TestDeleteItemRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c := testClient(srv)

	if err := c.DeleteItem("i9"); err == nil {
		t.Fatal("Expected error on 403")
	}
}

func TestSetFavoriteMethods(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c := testClient(srv)

	if err := c.SetFavorite("i1", true); err != nil {
		t.Fatal(err)
	}
	if method != http.MethodPost || path != "/Users/u1/FavoriteItems/i1" {
		t.Errorf("Expected POST favorite, got %s %s", method, path)
	}

	if err := c.SetFavorite("i1", false); err != nil {
		t.Fatal(err)
	}
	if method != http.MethodDelete {
		t.Errorf("Expected DELETE to unfavorite, got %s", method)
	}
}

func TestMarkPlayed(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c := testClient(srv)

	if err := c.MarkPlayed("i1"); err != nil {
		t.Fatal(err)
	}
	if method != http.MethodPost || path != "/Users/u1/PlayedItems/i1" {
		t.Errorf("Expected POST played, got %s %s", method, path)
	}
}

func TestVideoURL(t *testing.T) {
	c := NewClient(Session{ServerURL: "http://emby:8096", AccessToken: "tok", UserID: "u1"})

	static := c.VideoURL("i1", VideoOptions{})
	if !strings.HasPrefix(static, "http://emby:8096/Videos/i1/stream.mp4?") {
		t.Errorf("Unexpected static URL %q", static)
	}
	if !strings.Contains(static, "Static=true") || !strings.Contains(static, "api_key=tok") {
		t.Errorf("Expected passthrough params, got %q", static)
	}

	hls := c.VideoURL("i1", VideoOptions{Transcode: true})
	if !strings.HasPrefix(hls, "http://emby:8096/Videos/i1/master.m3u8?") {
		t.Errorf("Unexpected HLS URL %q", hls)
	}
	if !strings.Contains(hls, "VideoCodec=h264") {
		t.Errorf("Expected transcode params, got %q", hls)
	}
}

func TestImageURL(t *testing.T) {
	c := NewClient(Session{ServerURL: "http://emby:8096", AccessToken: "tok"})

	u := c.ImageURL("i1", "tag123", 600, 80)
	if !strings.HasPrefix(u, "http://emby:8096/Items/i1/Images/Primary?") {
		t.Errorf("Unexpected image URL %q", u)
	}
	if !strings.Contains(u, "maxWidth=600") || !strings.Contains(u, "quality=80") || !strings.Contains(u, "tag=tag123") {
		t.Errorf("Expected bounded image params, got %q", u)
	}

	if got := c.ImageURL("i1", "", 600, 80); got != "" {
		t.Errorf("Expected empty URL without a tag, got %q", got)
	}
}

func TestTrailingSlashTrimmed(t *testing.T) {
	c := NewClient(Session{ServerURL: "http://emby:8096/", AccessToken: "tok"})
	if got := c.Session().ServerURL; got != "http://emby:8096" {
		t.Errorf("Expected trimmed server URL, got %q", got)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range []Category{CategoryFavorites, CategoryNewest, CategoryRandom} {
		if !c.Valid() {
			t.Errorf("Expected %q valid", c)
		}
	}
	if Category("Bogus").Valid() {
		t.Error("Expected unknown category invalid")
	}
}
