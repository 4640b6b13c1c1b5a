// Copyright (c) 2026 Trackly. All rights reserved.

// Package audit provides an append-only record of who changed what.
//
// Entries are written by the domain services after a mutation succeeds and
// are never updated or deleted. Recording is advisory: a failed write is
// logged, not propagated, so audit outages cannot fail user requests.
package audit

import (
	"context"
	"time"
)

// Recorded actions.
const (
	ActionTaskCreated    = "task.created"
	ActionTaskReassigned = "task.reassigned"
	ActionTaskDeleted    = "task.deleted"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	ResourceID string         `json:"resource_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Store abstracts audit persistence.
type Store interface {

	// Append persists a new entry. Entries are never modified afterwards.
	Append(ctx context.Context, entry *Entry) error

	// List returns the newest entries first, at most limit of them.
	List(ctx context.Context, limit int) ([]*Entry, error)
}
