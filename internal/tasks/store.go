// Copyright (c) 2026 Trackly. All rights reserved.

package tasks

import "context"

// TaskRepository abstracts task persistence.
//
// # Implementations
//
//   - PostgresTaskRepository (store_postgres.go): production
//   - MemoryTaskRepository (store_memory.go): unit tests
type TaskRepository interface {

	// FindByID retrieves a task by primary key.
	// Returns apperr.NotFound when no task matches.
	FindByID(ctx context.Context, id string) (*Task, error)

	// Create persists a new task.
	Create(ctx context.Context, task *Task) error

	// UpdateAssignee changes who a task is assigned to.
	// Returns apperr.NotFound when no task matches.
	UpdateAssignee(ctx context.Context, id, assigneeID string) (*Task, error)

	// Delete removes a task permanently.
	// Returns apperr.NotFound when no task matches.
	Delete(ctx context.Context, id string) error

	// ListAssigned returns tasks assigned to the user, newest first.
	ListAssigned(ctx context.Context, userID string, filter Filter) ([]*Task, error)

	// ListCreated returns tasks created by the user, newest first.
	ListCreated(ctx context.Context, userID string, filter Filter) ([]*Task, error)

	// ListAll returns every task, newest first. Admin surface only.
	ListAll(ctx context.Context, filter Filter) ([]*Task, error)
}
