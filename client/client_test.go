// Copyright (c) 2026 Trackly. All rights reserved.

package client_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackly/trackly/client"
	"github.com/trackly/trackly/internal/api"
	"github.com/trackly/trackly/internal/audit"
	"github.com/trackly/trackly/internal/platform/config"
	"github.com/trackly/trackly/internal/platform/sec"
	"github.com/trackly/trackly/internal/realtime"
	"github.com/trackly/trackly/internal/tasks"
	"github.com/trackly/trackly/internal/users/auth"
)

// newAPIServer spins up the full HTTP stack on in-memory stores. accessTTL
// is short in the session-renewal test and generous everywhere else.
func newAPIServer(t *testing.T, accessTTL time.Duration) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	refreshTTL := 168 * time.Hour

	tokenService, err := sec.NewTokenService(
		"access-secret-for-tests",
		"refresh-secret-for-tests",
		"trackly.test",
		accessTTL,
		refreshTTL,
	)
	require.NoError(t, err)

	userRepository := auth.NewMemoryUserRepository()
	authService := auth.NewService(userRepository, nil, tokenService, 4)
	authHandler := auth.NewHandler(authService, auth.HandlerOptions{
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	})

	hub := realtime.NewHub(realtime.NewRegistry(), logger)
	realtimeHandler := realtime.NewHandler(hub, tokenService, realtime.HandlerOptions{
		AllowAnyOrigin: true,
	})

	auditStore := audit.NewMemoryStore()
	taskService := tasks.NewService(tasks.NewMemoryTaskRepository(), userRepository, hub, auditStore, logger)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error { return nil },
		CheckCache:    func() error { return nil },
	}, logger)

	cfg := &config.Config{
		ServerPort:   "0",
		Environment:  "development",
		ClientOrigin: "http://localhost:3000",
	}

	serverCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := api.NewServer(serverCtx, cfg, logger, tokenService, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Realtime:  realtimeHandler,
		Tasks:     tasks.NewHandler(taskService),
		Audit:     audit.NewHandler(auditStore),
	})

	testServer := httptest.NewServer(server.Handler())
	t.Cleanup(testServer.Close)
	return testServer
}

// newAccount registers and logs in a fresh account, returning its user ID.
func newAccount(t *testing.T, apiClient *client.Client, name, email, role string) string {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, apiClient.Register(ctx, name, email, "sup3r-secret", role))
	require.NoError(t, apiClient.Login(ctx, email, "sup3r-secret"))

	claims, err := sec.DecodeAccessClaimsUnverified(apiClient.Session().Token())
	require.NoError(t, err)
	return claims.UserID
}

/*
TestClient_EndToEnd_SessionRenewal walks the full renewal loop against the
real server: register, login, make a protected call, wait out the access
token, and verify the next call silently refreshes and succeeds.
*/
func TestClient_EndToEnd_SessionRenewal(t *testing.T) {
	server := newAPIServer(t, 1*time.Second)

	apiClient, err := client.New(server.URL)
	require.NoError(t, err)

	ctx := context.Background()
	newAccount(t, apiClient, "Ngoc Tran", "ngoc@trackly.test", "")

	_, err = apiClient.AssignedTasks(ctx)
	require.NoError(t, err)

	firstToken := apiClient.Session().Token()
	require.NotEmpty(t, firstToken)

	// Let the access token lapse; the refresh cookie stays valid.
	time.Sleep(1500 * time.Millisecond)

	taskList, err := apiClient.AssignedTasks(ctx)
	require.NoError(t, err, "expired token should be renewed transparently")
	assert.Empty(t, taskList)
	assert.NotEqual(t, firstToken, apiClient.Session().Token(), "renewal must install a new access token")
}

/*
TestClient_EndToEnd_Tasks covers the task surface: creation, the two member
listings, and the Admin-only reassign and delete operations, including the
Forbidden response for a regular member.
*/
func TestClient_EndToEnd_Tasks(t *testing.T) {
	server := newAPIServer(t, 15*time.Minute)
	ctx := context.Background()

	adminClient, err := client.New(server.URL)
	require.NoError(t, err)
	memberClient, err := client.New(server.URL)
	require.NoError(t, err)
	assigneeClient, err := client.New(server.URL)
	require.NoError(t, err)

	newAccount(t, adminClient, "Admin", "admin@trackly.test", "Admin")
	memberID := newAccount(t, memberClient, "Member", "member@trackly.test", "")
	assigneeID := newAccount(t, assigneeClient, "Assignee", "assignee@trackly.test", "")

	task, err := memberClient.CreateTask(ctx, client.NewTask{
		Title:       "Ship the release notes",
		Description: "Draft and publish.",
		Priority:    "High",
		AssignedTo:  assigneeID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Pending", task.Status, "status defaults when omitted")
	assert.Equal(t, "High", task.Priority)
	assert.Equal(t, memberID, task.CreatedBy)

	t.Run("listings split by role in the task", func(t *testing.T) {
		created, err := memberClient.CreatedTasks(ctx)
		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, task.ID, created[0].ID)

		assigned, err := memberClient.AssignedTasks(ctx)
		require.NoError(t, err)
		assert.Empty(t, assigned)

		assigned, err = assigneeClient.AssignedTasks(ctx)
		require.NoError(t, err)
		require.Len(t, assigned, 1)
		assert.Equal(t, task.ID, assigned[0].ID)
	})

	t.Run("member cannot reassign", func(t *testing.T) {
		_, err := memberClient.ReassignTask(ctx, task.ID, memberID)
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "FORBIDDEN", apiErr.Code)
	})

	t.Run("admin reassigns", func(t *testing.T) {
		moved, err := adminClient.ReassignTask(ctx, task.ID, memberID)
		require.NoError(t, err)
		assert.Equal(t, memberID, moved.AssignedTo)

		// Same assignee again is rejected.
		_, err = adminClient.ReassignTask(ctx, task.ID, memberID)
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "CONFLICT", apiErr.Code)
	})

	t.Run("admin deletes", func(t *testing.T) {
		require.NoError(t, adminClient.DeleteTask(ctx, task.ID))

		assigned, err := memberClient.AssignedTasks(ctx)
		require.NoError(t, err)
		assert.Empty(t, assigned)
	})
}

/*
TestClient_EndToEnd_Realtime subscribes one user to the notification stream
and verifies a task assigned by another user arrives as a task:assigned
notice carrying the task metadata.
*/
func TestClient_EndToEnd_Realtime(t *testing.T) {
	server := newAPIServer(t, 15*time.Minute)
	ctx := context.Background()

	creatorClient, err := client.New(server.URL)
	require.NoError(t, err)
	assigneeClient, err := client.New(server.URL)
	require.NoError(t, err)

	creatorID := newAccount(t, creatorClient, "Creator", "creator@trackly.test", "")
	assigneeID := newAccount(t, assigneeClient, "Listener", "listener@trackly.test", "")

	subscriber, err := assigneeClient.Subscribe(ctx)
	require.NoError(t, err)
	defer subscriber.Close()
	assert.Equal(t, assigneeID, subscriber.UserID)

	// The dial returns on the handshake; give the server a beat to finish
	// registering the connection before dispatching at it.
	time.Sleep(200 * time.Millisecond)

	task, err := creatorClient.CreateTask(ctx, client.NewTask{
		Title:      "Review the deploy checklist",
		AssignedTo: assigneeID,
	})
	require.NoError(t, err)

	select {
	case notice := <-subscriber.Notices():
		assert.Equal(t, "task:assigned", notice.Event)

		var payload struct {
			TaskID     string `json:"taskId"`
			Title      string `json:"title"`
			AssignedBy string `json:"assignedBy"`
		}
		require.NoError(t, json.Unmarshal(notice.Data, &payload))
		assert.Equal(t, task.ID, payload.TaskID)
		assert.Equal(t, "Review the deploy checklist", payload.Title)
		assert.Equal(t, creatorID, payload.AssignedBy)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for task:assigned notice")
	}
}

/*
TestClient_EndToEnd_Logout verifies that logging out revokes the session
fully: once the access token lapses there is no refresh cookie left, so the
client surfaces ErrSessionExpired instead of renewing.
*/
func TestClient_EndToEnd_Logout(t *testing.T) {
	server := newAPIServer(t, 1*time.Second)
	ctx := context.Background()

	apiClient, err := client.New(server.URL)
	require.NoError(t, err)
	newAccount(t, apiClient, "Leaver", "leaver@trackly.test", "")

	// Keep the access token around; logout clears it locally along with
	// the server-side refresh state.
	lingering := apiClient.Session().Token()
	require.NoError(t, apiClient.Logout(ctx))
	apiClient.Session().SetToken(lingering)

	time.Sleep(1500 * time.Millisecond)

	_, err = apiClient.AssignedTasks(ctx)
	require.ErrorIs(t, err, client.ErrSessionExpired)
	assert.Empty(t, apiClient.Session().Token())
}
