// Copyright (c) 2026 Trackly. All rights reserved.

// Package tasks implements task creation, assignment, and listing.
//
// # Architecture
//
// Tasks are the payload the notification channel exists for: every mutation
// that changes who a task belongs to pushes a realtime event at the affected
// user. The package follows the store/service/handler split used across the
// codebase.
package tasks

import "time"

// # Closed Enums

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Priority is the urgency label of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// statusValues and priorityValues feed the OneOf validators at the boundary.
var (
	statusValues   = []string{string(StatusPending), string(StatusInProgress), string(StatusCompleted)}
	priorityValues = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh)}
)

// # Entity

// Task represents a unit of work created by one user and assigned to another.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Filter narrows task listings. Zero values mean "no constraint".
type Filter struct {
	Status   Status
	Priority Priority
	DueFrom  *time.Time
	DueTo    *time.Time
}

// Field name constants used by validation and error details.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldAssignedTo  = "assigned_to"
)

// Validation limits, matching the persisted column widths.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)
