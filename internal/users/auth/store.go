// Copyright (c) 2026 Trackly. All rights reserved.

package auth

import (
	"context"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByRefreshToken returns the account currently holding the given refresh token.

		Used by logout, which receives only the cookie value and must locate
		the session owner server-side.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByRefreshToken(context context.Context, token string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures (Conflict on duplicate email)
	*/
	Create(context context.Context, user *User) error

	/*
		UpdateRefreshToken overwrites the stored refresh token for a user.

		The overwrite (not append) is what enforces the single-session-per-user
		policy: whichever login writes last wins, and every previously issued
		refresh token stops matching.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - token: string

		Returns:
		  - error: Persistence failures
	*/
	UpdateRefreshToken(context context.Context, userID, token string) error

	/*
		ClearRefreshToken removes the stored refresh token, ending the session
		server-side.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	ClearRefreshToken(context context.Context, userID string) error
}

// # Volatile Data Access

// LoginThrottle defines the contract for counting login attempts per subject
// within a fixed expiry window.
type LoginThrottle interface {

	/*
		Hit records one attempt for the subject and returns the running count
		within the current window.

		Parameters:
		  - context: context.Context
		  - subject: string (normalized email)

		Returns:
		  - int64: Attempts observed in the window, including this one
		  - error: Counter storage failures
	*/
	Hit(context context.Context, subject string) (int64, error)
}
