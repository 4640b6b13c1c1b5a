// Copyright (c) 2026 Trackly. All rights reserved.

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for unit tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append records the entry in insertion order.
func (store *MemoryStore) Append(_ context.Context, entry *Entry) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	stored := *entry
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	store.entries = append(store.entries, &stored)
	return nil
}

// List returns the newest entries first, at most limit of them.
func (store *MemoryStore) List(_ context.Context, limit int) ([]*Entry, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	var entries []*Entry
	for i := len(store.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		clone := *store.entries[i]
		entries = append(entries, &clone)
	}
	return entries, nil
}

// Len reports the number of recorded entries. Test helper.
func (store *MemoryStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.entries)
}
