// Copyright (c) 2026 Trackly. All rights reserved.

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired is returned when a token refresh fails and the caller
// must authenticate again from scratch.
var ErrSessionExpired = fmt.Errorf("client: session expired, login required")

// SessionManager is an [http.RoundTripper] that keeps requests authenticated.
//
// # Behavior
//
// Every outgoing request gets the current access token as a bearer header.
// When the server answers 401 with code TOKEN_EXPIRED, the manager exchanges
// the refresh cookie for a new access token and replays the request once.
// Any other failure, including a failed refresh, is passed through.
//
// # Single-Flight
//
// Concurrent requests hitting an expired token collapse onto one refresh
// call: the first caller performs the exchange, the rest wait for its result.
// The server invalidates nothing on refresh, but one flight avoids a
// thundering herd against /auth/refresh.
type SessionManager struct {
	base       http.RoundTripper
	refreshURL string

	// refreshClient carries the cookie jar holding the refresh token. It must
	// NOT route through this manager, or a refresh could recurse.
	refreshClient *http.Client

	group singleflight.Group

	mu          sync.RWMutex
	accessToken string

	// OnSessionExpired, when set, fires after a refresh attempt fails.
	OnSessionExpired func()
}

// NewSessionManager creates a session manager.
//
// base is the transport real requests go through (nil means
// http.DefaultTransport). refreshClient must share the cookie jar that
// received the login Set-Cookie.
func NewSessionManager(base http.RoundTripper, refreshClient *http.Client, refreshURL string) *SessionManager {
	if base == nil {
		base = http.DefaultTransport
	}
	return &SessionManager{
		base:          base,
		refreshClient: refreshClient,
		refreshURL:    refreshURL,
	}
}

// SetToken replaces the current access token.
func (manager *SessionManager) SetToken(token string) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.accessToken = token
}

// Token returns the current access token, empty when logged out.
func (manager *SessionManager) Token() string {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.accessToken
}

// RoundTrip implements [http.RoundTripper].
func (manager *SessionManager) RoundTrip(request *http.Request) (*http.Response, error) {
	response, err := manager.send(request)
	if err != nil {
		return nil, err
	}

	if !isTokenExpired(response) {
		return response, nil
	}

	// The access token died mid-session. Refresh once, replay once.
	closeBody(response)
	if err := manager.refresh(); err != nil {
		return nil, ErrSessionExpired
	}

	return manager.send(request)
}

// send clones the request, attaches the bearer header, and dispatches it.
// Cloning keeps the original request replayable.
func (manager *SessionManager) send(request *http.Request) (*http.Response, error) {
	clone := request.Clone(request.Context())

	// Rewind the body for the clone; requests built by http.NewRequest carry
	// GetBody for exactly this purpose.
	if request.Body != nil && request.GetBody != nil {
		body, err := request.GetBody()
		if err != nil {
			return nil, fmt.Errorf("client: failed to rewind request body: %w", err)
		}
		clone.Body = body
	}

	if token := manager.Token(); token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}

	return manager.base.RoundTrip(clone)
}

// refresh exchanges the refresh cookie for a new access token. Concurrent
// callers share a single exchange, and the outcome is applied once inside
// the shared flight, never per caller: the new token on success, session
// teardown plus the OnSessionExpired hook on failure.
func (manager *SessionManager) refresh() error {
	_, err, _ := manager.group.Do("refresh", func() (any, error) {
		token, err := manager.exchange()
		if err != nil {
			manager.SetToken("")
			if manager.OnSessionExpired != nil {
				manager.OnSessionExpired()
			}
			return nil, err
		}

		manager.SetToken(token)
		return nil, nil
	})
	return err
}

// exchange performs one GET against the refresh endpoint using the cookie
// jar and decodes the new access token.
func (manager *SessionManager) exchange() (string, error) {
	request, err := http.NewRequest(http.MethodGet, manager.refreshURL, nil)
	if err != nil {
		return "", err
	}

	response, err := manager.refreshClient.Do(request)
	if err != nil {
		return "", err
	}
	defer closeBody(response)

	if response.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("client: refresh rejected with status %d", response.StatusCode)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("client: failed to decode refresh response: %w", err)
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("client: refresh response carried no access token")
	}

	return envelope.Data.AccessToken, nil
}

// isTokenExpired reports whether the response is a 401 carrying the
// TOKEN_EXPIRED code. The body is restored so later readers still see it.
func isTokenExpired(response *http.Response) bool {
	if response.StatusCode != http.StatusUnauthorized {
		return false
	}

	body, err := io.ReadAll(response.Body)
	_ = response.Body.Close()
	response.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return false
	}

	var envelope struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.Code == "TOKEN_EXPIRED"
}

// closeBody drains and closes a response body so the connection can be reused.
func closeBody(response *http.Response) {
	if response == nil || response.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()
}
