// Copyright (c) 2026 Trackly. All rights reserved.

package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trackly/trackly/internal/audit"
	"github.com/trackly/trackly/internal/platform/apperr"
	"github.com/trackly/trackly/internal/platform/constants"
	"github.com/trackly/trackly/internal/platform/validate"
)

// # Collaborator Interfaces

// Notifier pushes a named event at a single user. Implemented by the
// realtime hub; delivery is best-effort and the service never learns whether
// the recipient was online.
type Notifier interface {
	Dispatch(userID, event string, data any)
}

// UserDirectory answers "does this user exist". Implemented by the auth
// package's user repository; the service only needs existence, never the
// credential fields.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// # Service

// Service implements the task workflows.
type Service struct {
	repo     TaskRepository
	users    UserDirectory
	notifier Notifier
	auditor  audit.Store
	logger   *slog.Logger
}

func NewService(repo TaskRepository, users UserDirectory, notifier Notifier, auditor audit.Store, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		auditor:  auditor,
		logger:   logger,
	}
}

// CreateInput carries the client-supplied fields for a new task.
type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  string     `json:"assigned_to"`
}

/*
Create validates and persists a new task on behalf of creatorID.

Flow:
 1. Validate title, assignee, and the closed status/priority enums.
 2. Confirm the assignee exists (apperr.NotFound otherwise).
 3. Persist with defaults Pending/Low where the input left them blank.
 4. Notify the assignee over the realtime channel, unless they assigned the
    task to themselves.

Parameters:
  - context: context.Context
  - creatorID: the authenticated caller, from verified token claims.
  - input: CreateInput

Returns:
  - *Task: the persisted task
  - error: apperr variants per the flow above
*/
func (service *Service) Create(context context.Context, creatorID string, input CreateInput) (*Task, error) {

	// ── 1. Validation ─────────────────────────────────────────────────────
	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, MaxTitleLength)
	validator.MaxLen(FieldDescription, input.Description, MaxDescriptionLength)
	validator.Required(FieldAssignedTo, input.AssignedTo)
	if input.Status != "" {
		validator.OneOf(FieldStatus, input.Status, statusValues...)
	}
	if input.Priority != "" {
		validator.OneOf(FieldPriority, input.Priority, priorityValues...)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Assignee Existence ─────────────────────────────────────────────
	exists, err := service.users.Exists(context, input.AssignedTo)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("Assigned user")
	}

	// ── 3. Persistence ────────────────────────────────────────────────────
	task := &Task{
		ID:          newTaskID(),
		Title:       input.Title,
		Description: input.Description,
		Status:      StatusPending,
		Priority:    PriorityLow,
		DueDate:     input.DueDate,
		CreatedBy:   creatorID,
		AssignedTo:  input.AssignedTo,
	}
	if input.Status != "" {
		task.Status = Status(input.Status)
	}
	if input.Priority != "" {
		task.Priority = Priority(input.Priority)
	}

	if err := service.repo.Create(context, task); err != nil {
		return nil, err
	}

	service.record(context, creatorID, audit.ActionTaskCreated, task.ID, map[string]any{
		"title":       task.Title,
		"assigned_to": task.AssignedTo,
	})

	// ── 4. Notification ───────────────────────────────────────────────────
	if task.AssignedTo != creatorID {
		service.notifier.Dispatch(task.AssignedTo, constants.EventTaskAssigned, assignedPayload(task, creatorID))
	}

	service.logger.Info("task_created",
		slog.String("task_id", task.ID),
		slog.String("created_by", creatorID),
		slog.String("assigned_to", task.AssignedTo),
	)

	return task, nil
}

/*
Reassign moves an existing task to a new assignee.

Flow:
 1. The task must exist (apperr.NotFound).
 2. Reassigning to the current assignee is apperr.Conflict.
 3. The new assignee must exist (apperr.NotFound).
 4. The new assignee is notified, unless they performed the reassignment
    themselves.

Parameters:
  - context: context.Context
  - actorID: the authenticated caller performing the reassignment.
  - taskID: the task to move.
  - assigneeID: the new assignee.

Returns:
  - *Task: the task after the move
  - error: apperr variants per the flow above
*/
func (service *Service) Reassign(context context.Context, actorID, taskID, assigneeID string) (*Task, error) {
	if assigneeID == "" {
		return nil, validate.RequiredError(FieldAssignedTo, "Assignee is required")
	}

	task, err := service.repo.FindByID(context, taskID)
	if err != nil {
		return nil, err
	}

	if task.AssignedTo == assigneeID {
		return nil, apperr.Conflict("Task is already assigned to this user")
	}

	exists, err := service.users.Exists(context, assigneeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("Assigned user")
	}

	task, err = service.repo.UpdateAssignee(context, taskID, assigneeID)
	if err != nil {
		return nil, err
	}

	service.record(context, actorID, audit.ActionTaskReassigned, task.ID, map[string]any{
		"assigned_to": assigneeID,
	})

	if assigneeID != actorID {
		service.notifier.Dispatch(assigneeID, constants.EventTaskAssigned, assignedPayload(task, actorID))
	}

	service.logger.Info("task_reassigned",
		slog.String("task_id", task.ID),
		slog.String("actor", actorID),
		slog.String("assigned_to", assigneeID),
	)

	return task, nil
}

/*
Delete removes a task permanently and tells the assignee it is gone.

Parameters:
  - context: context.Context
  - actorID: the authenticated caller.
  - taskID: the task to remove.

Returns:
  - error: apperr.NotFound when the task does not exist
*/
func (service *Service) Delete(context context.Context, actorID, taskID string) error {
	task, err := service.repo.FindByID(context, taskID)
	if err != nil {
		return err
	}

	if err := service.repo.Delete(context, taskID); err != nil {
		return err
	}

	service.record(context, actorID, audit.ActionTaskDeleted, task.ID, map[string]any{
		"title": task.Title,
	})

	if task.AssignedTo != actorID {
		service.notifier.Dispatch(task.AssignedTo, constants.EventTaskDeleted, map[string]any{
			"taskId":    task.ID,
			"title":     task.Title,
			"deletedBy": actorID,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}

	service.logger.Warn("task_deleted",
		slog.String("task_id", task.ID),
		slog.String("actor", actorID),
	)

	return nil
}

// ListAssigned returns the tasks currently assigned to userID, newest first.
func (service *Service) ListAssigned(context context.Context, userID string, filter Filter) ([]*Task, error) {
	return service.repo.ListAssigned(context, userID, filter)
}

// ListCreated returns the tasks userID created, newest first.
func (service *Service) ListCreated(context context.Context, userID string, filter Filter) ([]*Task, error) {
	return service.repo.ListCreated(context, userID, filter)
}

// ListAll returns every task, newest first. The handler gates this to Admin.
func (service *Service) ListAll(context context.Context, filter Filter) ([]*Task, error) {
	return service.repo.ListAll(context, filter)
}

// assignedPayload builds the task:assigned event body.
func assignedPayload(task *Task, assignedBy string) map[string]any {
	return map[string]any{
		"taskId":     task.ID,
		"title":      task.Title,
		"assignedBy": assignedBy,
	}
}

// record appends an audit entry. Audit failures are logged and swallowed:
// the mutation already succeeded and must not be reported as failed.
func (service *Service) record(context context.Context, actorID, action, resourceID string, details map[string]any) {
	entry := &audit.Entry{
		ActorID:    actorID,
		Action:     action,
		ResourceID: resourceID,
		Details:    details,
	}
	if err := service.auditor.Append(context, entry); err != nil {
		service.logger.Error("audit_append_failed",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", err.Error()),
		)
	}
}

// newTaskID mints a time-sortable unique id.
func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
