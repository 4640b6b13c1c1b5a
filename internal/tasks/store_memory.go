// Copyright (c) 2026 Trackly. All rights reserved.

package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trackly/trackly/internal/platform/apperr"
)

// MemoryTaskRepository is an in-memory TaskRepository for unit tests.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*Task // keyed by ID
}

// NewMemoryTaskRepository creates an empty in-memory task store.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]*Task)}
}

// Create persists a new task.
func (repository *MemoryTaskRepository) Create(_ context.Context, task *Task) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	clone := *task
	repository.tasks[task.ID] = &clone
	return nil
}

// FindByID returns the task with the given ID.
func (repository *MemoryTaskRepository) FindByID(_ context.Context, id string) (*Task, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	task, ok := repository.tasks[id]
	if !ok {
		return nil, apperr.NotFound("Task")
	}
	clone := *task
	return &clone, nil
}

// UpdateAssignee changes who a task is assigned to.
func (repository *MemoryTaskRepository) UpdateAssignee(_ context.Context, id, assigneeID string) (*Task, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	task, ok := repository.tasks[id]
	if !ok {
		return nil, apperr.NotFound("Task")
	}
	task.AssignedTo = assigneeID
	task.UpdatedAt = time.Now()

	clone := *task
	return &clone, nil
}

// Delete removes a task permanently.
func (repository *MemoryTaskRepository) Delete(_ context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.tasks[id]; !ok {
		return apperr.NotFound("Task")
	}
	delete(repository.tasks, id)
	return nil
}

// ListAssigned returns tasks assigned to the user, newest first.
func (repository *MemoryTaskRepository) ListAssigned(_ context.Context, userID string, filter Filter) ([]*Task, error) {
	return repository.collect(func(task *Task) bool {
		return task.AssignedTo == userID && matches(task, filter)
	}), nil
}

// ListCreated returns tasks created by the user, newest first.
func (repository *MemoryTaskRepository) ListCreated(_ context.Context, userID string, filter Filter) ([]*Task, error) {
	return repository.collect(func(task *Task) bool {
		return task.CreatedBy == userID && matches(task, filter)
	}), nil
}

// ListAll returns every task, newest first.
func (repository *MemoryTaskRepository) ListAll(_ context.Context, filter Filter) ([]*Task, error) {
	return repository.collect(func(task *Task) bool {
		return matches(task, filter)
	}), nil
}

// collect snapshots matching tasks sorted by creation time descending.
func (repository *MemoryTaskRepository) collect(keep func(*Task) bool) []*Task {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	var taskList []*Task
	for _, task := range repository.tasks {
		if keep(task) {
			clone := *task
			taskList = append(taskList, &clone)
		}
	}

	sort.Slice(taskList, func(i, j int) bool {
		return taskList[i].CreatedAt.After(taskList[j].CreatedAt)
	})
	return taskList
}

// matches applies the optional listing filter.
func matches(task *Task, filter Filter) bool {
	if filter.Status != "" && task.Status != filter.Status {
		return false
	}
	if filter.Priority != "" && task.Priority != filter.Priority {
		return false
	}
	if filter.DueFrom != nil && (task.DueDate == nil || task.DueDate.Before(*filter.DueFrom)) {
		return false
	}
	if filter.DueTo != nil && (task.DueDate == nil || task.DueDate.After(*filter.DueTo)) {
		return false
	}
	return true
}
