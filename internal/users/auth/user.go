// Copyright (c) 2026 Trackly. All rights reserved.

/*
Package auth implements the user identity and session-renewal layer.

It defines the core domain entity (User) and the protocol logic for
authentication: short-lived access tokens paired with long-lived refresh
tokens delivered via HTTP-only cookie.

# Architecture

This layer is the "Truth" of the system. The refresh token is a hybrid
credential: self-contained and signed, but valid only while it matches the
value currently stored on the user record. That server-side comparison is
what makes logout and login-rotation effective revocation mechanisms.
*/
package auth

import (
	"time"

	"github.com/trackly/trackly/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Trackly workspace.
//
// At most one refresh token is active per user at a time: a new login
// overwrites RefreshToken in place, which invalidates every other session
// for that user (deliberate single-session-per-user policy).
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.Role  `json:"role"`
	RefreshToken string    `json:"-"` // Currently active refresh token; empty when logged out.
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldRole        = "role"
	FieldAccessToken = "access_token"
	FieldTokenType   = "token_type"
	FieldExpiresIn   = "expires_in"
	FieldMessage     = "message"
)
