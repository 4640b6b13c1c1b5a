// Copyright (c) 2026 Trackly. All rights reserved.

/*
Package client is the Go API client for the Trackly server.

It mirrors what the browser SPA does: a session manager keeps a short-lived
access token in memory and transparently exchanges the HTTP-only refresh
cookie when the server reports the token expired, and a realtime subscriber
receives task notifications over WebSocket.

Usage:

	c, err := client.New("https://api.trackly.app")
	if err != nil { ... }

	if err := c.Login(ctx, "dev@trackly.app", "hunter2+1"); err != nil { ... }

	tasks, err := c.AssignedTasks(ctx)
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// APIError is a server-reported failure, decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Client calls the Trackly HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *SessionManager
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the underlying transport requests go through.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.session.base = transport
	}
}

// WithSessionExpiredHook registers a callback fired when a token refresh
// fails and the session is cleared.
func WithSessionExpiredHook(hook func()) Option {
	return func(c *Client) {
		c.session.OnSessionExpired = hook
	}
}

// New creates a client for the API at baseURL (no trailing slash needed).
func New(baseURL string, options ...Option) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("client: failed to create cookie jar: %w", err)
	}

	// The refresh client shares the jar but bypasses the session manager.
	refreshClient := &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
	}

	session := NewSessionManager(nil, refreshClient, baseURL+"/api/v1/auth/refresh")

	c := &Client{
		baseURL: baseURL,
		session: session,
		httpClient: &http.Client{
			Jar:       jar,
			Transport: session,
			Timeout:   30 * time.Second,
		},
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

// Session exposes the session manager, mainly for the realtime subscriber
// and for tests.
func (c *Client) Session() *SessionManager {
	return c.session
}

// # Authentication

// Register creates a new account. It does not log the account in.
func (c *Client) Register(ctx context.Context, name, email, password, role string) error {
	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}
	if role != "" {
		body["role"] = role
	}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/register", body, nil)
}

// Login authenticates and primes the session: the access token goes to the
// session manager, the refresh token lands in the cookie jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var data struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &data)
	if err != nil {
		return err
	}

	c.session.SetToken(data.AccessToken)
	return nil
}

// Logout ends the session server-side and forgets the local access token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	c.session.SetToken("")
	return err
}

// # Tasks

// Task mirrors the server's task resource.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask carries the fields for task creation.
type NewTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssignedTo  string     `json:"assigned_to"`
}

// CreateTask creates a task; the server notifies the assignee.
func (c *Client) CreateTask(ctx context.Context, input NewTask) (*Task, error) {
	task := &Task{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks", input, task); err != nil {
		return nil, err
	}
	return task, nil
}

// AssignedTasks lists tasks assigned to the logged-in user, newest first.
func (c *Client) AssignedTasks(ctx context.Context) ([]*Task, error) {
	var taskList []*Task
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks/assigned", nil, &taskList); err != nil {
		return nil, err
	}
	return taskList, nil
}

// CreatedTasks lists tasks the logged-in user created, newest first.
func (c *Client) CreatedTasks(ctx context.Context) ([]*Task, error) {
	var taskList []*Task
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks/created", nil, &taskList); err != nil {
		return nil, err
	}
	return taskList, nil
}

// ReassignTask moves a task to a new assignee. Admin only.
func (c *Client) ReassignTask(ctx context.Context, taskID, assigneeID string) (*Task, error) {
	task := &Task{}
	err := c.do(ctx, http.MethodPut, "/api/v1/tasks/"+taskID+"/assign", map[string]string{
		"assigned_to": assigneeID,
	}, task)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task. Admin only.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/tasks/"+taskID, nil, nil)
}

// # Plumbing

// do sends one API request and decodes the success envelope into out.
//
// The session manager underneath handles the bearer header and the
// refresh-and-replay cycle; do only sees the final outcome.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: failed to build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer closeBody(response)

	if response.StatusCode >= http.StatusBadRequest {
		return decodeError(response)
	}

	if out == nil || response.StatusCode == http.StatusNoContent {
		return nil
	}

	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("client: failed to decode response: %w", err)
	}

	return nil
}

// decodeError turns an error envelope into an [*APIError].
func decodeError(response *http.Response) error {
	apiErr := &APIError{
		StatusCode: response.StatusCode,
		Code:       "UNKNOWN",
		Message:    http.StatusText(response.StatusCode),
	}

	var envelope struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(response.Body).Decode(&envelope); err == nil {
		if envelope.Code != "" {
			apiErr.Code = envelope.Code
		}
		if envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
	}

	return apiErr
}
