package emby

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeServerURL(t *testing.T) {
	cases := []struct {
		in     string
		strict bool
		want   string
		err    bool
	}{
		{"http://emby:8096", false, "http://emby:8096", false},
		{"http://emby:8096/", false, "http://emby:8096", false},
		{"  emby.local:8096  ", false, "http://emby.local:8096", false},
		{"https://emby.example.com", true, "https://emby.example.com", false},
		{"http://emby:8096", true, "", true},
		{"emby.local", true, "", true},
		{"", false, "", true},
		{"   ", false, "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeServerURL(tc.in, tc.strict)
		if tc.err {
			if err == nil {
				t.Errorf("%q strict=%v: Expected error", tc.in, tc.strict)
			} else if !IsAuthError(err) {
				t.Errorf("%q: Expected AuthError, got %T", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: Expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Users/AuthenticateByName" {
			t.Errorf("Expected auth path, got %s", r.URL.Path)
		}
		auth := r.Header.Get("X-Emby-Authorization")
		if !strings.Contains(auth, `Client="EmbyShorts"`) || !strings.Contains(auth, `DeviceId="dev1"`) {
			t.Errorf("Unexpected authorization header %q", auth)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["Username"] != "alice" || body["Pw"] != "secret" {
			t.Errorf("Unexpected credentials %v", body)
		}
		w.Write([]byte(`{
			"AccessToken":"tok123",
			"User":{"Id":"u1","Name":"alice","Policy":{"IsAdministrator":true}}
		}`))
	}))
	defer srv.Close()

	sess, err := Authenticate(srv.URL, "alice", "secret", "dev1", false)
	if err != nil {
		t.Fatal(err)
	}
	if sess.AccessToken != "tok123" || sess.UserID != "u1" || sess.Username != "alice" {
		t.Errorf("Unexpected session %+v", sess)
	}
	if !sess.IsAdmin {
		t.Error("Expected admin flag carried over")
	}
	if sess.DeviceID != "dev1" {
		t.Errorf("Expected device id kept, got %q", sess.DeviceID)
	}
	if sess.ServerURL != srv.URL {
		t.Errorf("Expected normalized server URL, got %q", sess.ServerURL)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := Authenticate(srv.URL, "alice", "wrong", "dev1", false)
	if err == nil {
		t.Fatal("Expected error on 401")
	}
	if !IsAuthError(err) {
		t.Fatalf("Expected AuthError, got %T", err)
	}
	if !strings.Contains(err.Error(), "invalid username or password") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestAuthenticateNotAnEmbyServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Authenticate(srv.URL, "alice", "pw", "dev1", false)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 message, got %v", err)
	}
}

func TestAuthenticateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Authenticate(srv.URL, "alice", "pw", "dev1", false)
	if err == nil || !strings.Contains(err.Error(), "connection failed (502)") {
		t.Errorf("Expected status message, got %v", err)
	}
}

func TestAuthenticateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	_, err := Authenticate(srv.URL, "alice", "pw", "dev1", false)
	if err == nil {
		t.Fatal("Expected error for a dead server")
	}
	if !IsAuthError(err) || !strings.Contains(err.Error(), "could not reach the server") {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestAuthenticateMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"AccessToken":""}`))
	}))
	defer srv.Close()

	_, err := Authenticate(srv.URL, "alice", "pw", "dev1", false)
	if err == nil || !strings.Contains(err.Error(), "unexpected response") {
		t.Errorf("Expected unexpected-response error, got %v", err)
	}
}

func TestAuthenticateEmptyPasswordAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["Pw"] != "" {
			t.Errorf("Expected empty Pw forwarded, got %q", body["Pw"])
		}
		w.Write([]byte(`{"AccessToken":"t","User":{"Id":"u1","Name":"kid"}}`))
	}))
	defer srv.Close()

	if _, err := Authenticate(srv.URL, "kid", "", "dev1", false); err != nil {
		t.Fatal(err)
	}
}
