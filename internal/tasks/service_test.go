// Copyright (c) 2026 Trackly. All rights reserved.

package tasks_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackly/trackly/internal/audit"
	"github.com/trackly/trackly/internal/platform/apperr"
	"github.com/trackly/trackly/internal/platform/constants"
	"github.com/trackly/trackly/internal/tasks"
	"github.com/trackly/trackly/internal/users/auth"
)

// recordingNotifier captures every dispatch for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	entries []dispatched
}

type dispatched struct {
	userID string
	event  string
	data   any
}

func (n *recordingNotifier) Dispatch(userID, event string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, dispatched{userID: userID, event: event, data: data})
}

func (n *recordingNotifier) all() []dispatched {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dispatched(nil), n.entries...)
}

// newTestService builds a service over in-memory stores with the given users
// pre-registered.
func newTestService(t *testing.T, userIDs ...string) (*tasks.Service, *recordingNotifier, *audit.MemoryStore) {
	t.Helper()

	users := auth.NewMemoryUserRepository()
	for _, id := range userIDs {
		require.NoError(t, users.Create(context.Background(), &auth.User{
			ID:    id,
			Name:  id,
			Email: id + "@trackly.test",
		}))
	}

	notifier := &recordingNotifier{}
	auditor := audit.NewMemoryStore()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	service := tasks.NewService(tasks.NewMemoryTaskRepository(), users, notifier, auditor, logger)

	return service, notifier, auditor
}

/*
TestService_Create verifies validation, defaulting, and assignment dispatch.
*/
func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing title and assignee", func(t *testing.T) {
		service, _, _ := newTestService(t, "creator")

		_, err := service.Create(ctx, "creator", tasks.CreateInput{})

		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeValidation, appErr.Code)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		service, _, _ := newTestService(t, "creator", "assignee")

		_, err := service.Create(ctx, "creator", tasks.CreateInput{
			Title:      "Write release notes",
			AssignedTo: "assignee",
			Status:     "Archived",
		})

		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeValidation, appErr.Code)
	})

	t.Run("rejects nonexistent assignee", func(t *testing.T) {
		service, _, _ := newTestService(t, "creator")

		_, err := service.Create(ctx, "creator", tasks.CreateInput{
			Title:      "Write release notes",
			AssignedTo: "ghost",
		})

		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeNotFound, appErr.Code)
	})

	t.Run("applies defaults and notifies the assignee", func(t *testing.T) {
		service, notifier, auditor := newTestService(t, "creator", "assignee")

		task, err := service.Create(ctx, "creator", tasks.CreateInput{
			Title:      "Write release notes",
			AssignedTo: "assignee",
		})
		require.NoError(t, err)

		// Defaults
		assert.Equal(t, tasks.StatusPending, task.Status)
		assert.Equal(t, tasks.PriorityLow, task.Priority)
		assert.Equal(t, "creator", task.CreatedBy)

		// Dispatch
		entries := notifier.all()
		require.Len(t, entries, 1)
		assert.Equal(t, "assignee", entries[0].userID)
		assert.Equal(t, constants.EventTaskAssigned, entries[0].event)

		payload, ok := entries[0].data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, task.ID, payload["taskId"])
		assert.Equal(t, "Write release notes", payload["title"])
		assert.Equal(t, "creator", payload["assignedBy"])

		// Audit
		assert.Equal(t, 1, auditor.Len())
	})

	t.Run("self-assignment does not notify", func(t *testing.T) {
		service, notifier, _ := newTestService(t, "creator")

		_, err := service.Create(ctx, "creator", tasks.CreateInput{
			Title:      "Prep standup notes",
			AssignedTo: "creator",
		})
		require.NoError(t, err)

		assert.Empty(t, notifier.all())
	})
}

/*
TestService_Reassign verifies the reassignment rules and dispatch.
*/
func TestService_Reassign(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the task and notifies the new assignee", func(t *testing.T) {
		service, notifier, _ := newTestService(t, "creator", "first", "second")

		task, err := service.Create(ctx, "creator", tasks.CreateInput{
			Title:      "Rotate credentials",
			AssignedTo: "first",
		})
		require.NoError(t, err)

		moved, err := service.Reassign(ctx, "creator", task.ID, "second")
		require.NoError(t, err)
		assert.Equal(t, "second", moved.AssignedTo)

		entries := notifier.all()
		require.Len(t, entries, 2) // create + reassign
		assert.Equal(t, "second", entries[1].userID)
		assert.Equal(t, constants.EventTaskAssigned, entries[1].event)
	})

	t.Run("conflict when already assigned to the target", func(t *testing.T) {
		service, _, _ := newTestService(t, "creator", "assignee")

		task, err := service.Create(ctx, "creator", tasks.CreateInput{
			Title:      "Rotate credentials",
			AssignedTo: "assignee",
		})
		require.NoError(t, err)

		_, err = service.Reassign(ctx, "creator", task.ID, "assignee")

		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeConflict, appErr.Code)
	})

	t.Run("not found for unknown task or assignee", func(t *testing.T) {
		service, _, _ := newTestService(t, "creator", "assignee")

		_, err := service.Reassign(ctx, "creator", "no-such-task", "assignee")
		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeNotFound, appErr.Code)

		task, err := service.Create(ctx, "creator", tasks.CreateInput{
			Title:      "Rotate credentials",
			AssignedTo: "assignee",
		})
		require.NoError(t, err)

		_, err = service.Reassign(ctx, "creator", task.ID, "ghost")
		appErr = apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeNotFound, appErr.Code)
	})
}

/*
TestService_Delete verifies removal and the deletion notice.
*/
func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the task and notifies the assignee", func(t *testing.T) {
		service, notifier, auditor := newTestService(t, "creator", "assignee")

		task, err := service.Create(ctx, "creator", tasks.CreateInput{
			Title:      "Decommission staging",
			AssignedTo: "assignee",
		})
		require.NoError(t, err)

		require.NoError(t, service.Delete(ctx, "creator", task.ID))

		entries := notifier.all()
		require.Len(t, entries, 2) // create + delete
		assert.Equal(t, "assignee", entries[1].userID)
		assert.Equal(t, constants.EventTaskDeleted, entries[1].event)

		payload, ok := entries[1].data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, task.ID, payload["taskId"])
		assert.Equal(t, "creator", payload["deletedBy"])
		assert.NotEmpty(t, payload["timestamp"])

		// create + delete audit entries
		assert.Equal(t, 2, auditor.Len())

		// Gone afterwards
		_, err = service.Reassign(ctx, "creator", task.ID, "assignee")
		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeNotFound, appErr.Code)
	})

	t.Run("not found for unknown task", func(t *testing.T) {
		service, _, _ := newTestService(t, "creator")

		err := service.Delete(ctx, "creator", "no-such-task")
		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeNotFound, appErr.Code)
	})
}

/*
TestService_Listings verifies the assigned/created split and filters.
*/
func TestService_Listings(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t, "alice", "bob")

	_, err := service.Create(ctx, "alice", tasks.CreateInput{
		Title:      "Review budget",
		AssignedTo: "bob",
		Priority:   string(tasks.PriorityHigh),
	})
	require.NoError(t, err)

	_, err = service.Create(ctx, "alice", tasks.CreateInput{
		Title:      "File report",
		AssignedTo: "alice",
	})
	require.NoError(t, err)

	assignedToBob, err := service.ListAssigned(ctx, "bob", tasks.Filter{})
	require.NoError(t, err)
	require.Len(t, assignedToBob, 1)
	assert.Equal(t, "Review budget", assignedToBob[0].Title)

	createdByAlice, err := service.ListCreated(ctx, "alice", tasks.Filter{})
	require.NoError(t, err)
	assert.Len(t, createdByAlice, 2)

	highOnly, err := service.ListAll(ctx, tasks.Filter{Priority: tasks.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, highOnly, 1)
	assert.Equal(t, "Review budget", highOnly[0].Title)
}
