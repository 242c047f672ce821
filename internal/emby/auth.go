package emby

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const clientName = "EmbyShorts"

func authorizationHeader(deviceID string) string {
	if deviceID == "" {
		deviceID = clientName + "-Device"
	}
	return fmt.Sprintf(`MediaBrowser Client="%s", Device="Web", DeviceId="%s", Version="1.0.0"`,
		clientName, deviceID)
}

// AuthError carries a human-readable message for the login form.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is a login failure suitable for display.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// NormalizeServerURL cleans a user-typed server address. A missing scheme
// defaults to http://. With strictTransport set, plain-http servers are
// rejected so an https-served UI never mixes content.
func NormalizeServerURL(raw string, strictTransport bool) (string, error) {
	cleaned := strings.TrimRight(strings.TrimSpace(raw), "/")
	if cleaned == "" {
		return "", &AuthError{Message: "server address is required"}
	}
	if !strings.HasPrefix(cleaned, "http://") && !strings.HasPrefix(cleaned, "https://") {
		cleaned = "http://" + cleaned
	}
	if strictTransport && strings.HasPrefix(cleaned, "http://") {
		return "", &AuthError{Message: "an https page cannot talk to an http server; use an https:// address"}
	}
	return cleaned, nil
}

type authenticateResp struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID     string `json:"Id"`
		Name   string `json:"Name"`
		Policy struct {
			IsAdministrator bool `json:"IsAdministrator"`
		} `json:"Policy"`
	} `json:"User"`
}

// Authenticate logs in against {server}/Users/AuthenticateByName. Password may
// be empty; Emby accepts passwordless accounts. The returned Session embeds
// the normalized server URL and the caller-supplied device id.
func Authenticate(serverURL, username, password, deviceID string, strictTransport bool) (Session, error) {
	normalized, err := NormalizeServerURL(serverURL, strictTransport)
	if err != nil {
		return Session{}, err
	}

	body, _ := json.Marshal(map[string]string{
		"Username": username,
		"Pw":       password,
	})

	req, err := http.NewRequest(http.MethodPost, normalized+"/Users/AuthenticateByName", bytes.NewReader(body))
	if err != nil {
		return Session{}, &AuthError{Message: "server address is not valid", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Authorization", authorizationHeader(deviceID))

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Session{}, &AuthError{
			Message: "could not reach the server; check the address and your network",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Session{}, &AuthError{Message: "invalid username or password"}
	case resp.StatusCode == http.StatusNotFound:
		return Session{}, &AuthError{Message: "server address is not valid (404)"}
	case resp.StatusCode != http.StatusOK:
		return Session{}, &AuthError{Message: fmt.Sprintf("connection failed (%d)", resp.StatusCode)}
	}

	var out authenticateResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, &AuthError{Message: "unexpected response from server", Err: err}
	}
	if out.AccessToken == "" || out.User.ID == "" {
		return Session{}, &AuthError{Message: "unexpected response from server"}
	}

	return Session{
		ServerURL:   normalized,
		AccessToken: out.AccessToken,
		UserID:      out.User.ID,
		Username:    out.User.Name,
		IsAdmin:     out.User.Policy.IsAdministrator,
		DeviceID:    deviceID,
	}, nil
}
