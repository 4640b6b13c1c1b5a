// Copyright (c) 2026 Trackly. All rights reserved.

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/trackly/trackly/internal/platform/apperr"
)

// MemoryUserRepository is an in-memory UserRepository.
//
// # Usage
//
// Unit tests and the end-to-end client tests, where spinning up PostgreSQL
// would add nothing. Semantics mirror the Postgres implementation, including
// the duplicate-email conflict.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by ID
}

// NewMemoryUserRepository creates an empty in-memory user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*User)}
}

// Create persists a new user, enforcing email uniqueness.
func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.users {
		if existing.Email == user.Email {
			return apperr.Conflict("User already exists")
		}
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	clone := *user
	repository.users[user.ID] = &clone
	return nil
}

// FindByID returns the user with the given ID.
func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, ok := repository.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

// FindByEmail returns the user with the given email.
func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, user := range repository.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

// FindByRefreshToken returns the user currently holding the given refresh token.
func (repository *MemoryUserRepository) FindByRefreshToken(_ context.Context, token string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	if token == "" {
		return nil, apperr.NotFound("User")
	}
	for _, user := range repository.users {
		if user.RefreshToken == token {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

// Exists reports whether a user with the given id is present.
func (repository *MemoryUserRepository) Exists(_ context.Context, userID string) (bool, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	_, ok := repository.users[userID]
	return ok, nil
}

// UpdateRefreshToken overwrites the stored refresh token for a user.
func (repository *MemoryUserRepository) UpdateRefreshToken(_ context.Context, userID, token string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.RefreshToken = token
	user.UpdatedAt = time.Now()
	return nil
}

// ClearRefreshToken removes the stored refresh token.
func (repository *MemoryUserRepository) ClearRefreshToken(_ context.Context, userID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.RefreshToken = ""
	user.UpdatedAt = time.Now()
	return nil
}
