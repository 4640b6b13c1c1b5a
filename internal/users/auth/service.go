// Copyright (c) 2026 Trackly. All rights reserved.

/*
Package auth implements the core identity and session-renewal protocol.

It handles user registration with secure password hashing, login with
refresh-token rotation, stateless access-token renewal, and logout.

Architecture:

  - Service: Orchestrates business logic (Register, Login, Refresh, Logout).
  - Repository: Abstracted interfaces for Postgres (Users) and Redis (Throttle).
  - Security: Bcrypt password hashing and HS256-signed JWTs with two secrets.

The package ensures that identity data remains consistent and secure
throughout the platform's lifecycle.
*/
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trackly/trackly/internal/platform/apperr"
	"github.com/trackly/trackly/internal/platform/sec"
	"github.com/trackly/trackly/internal/platform/validate"
)

// # Contracts & Types

// TokenProvider defines the contract for issuing and verifying security tokens.
type TokenProvider interface {
	// IssueAccessToken creates a signed short-lived JWT for the given identity.
	IssueAccessToken(userID string, role sec.Role, email string) (string, error)

	// IssueRefreshToken creates a signed long-lived JWT carrying only the user id.
	IssueRefreshToken(userID string) (string, error)

	// VerifyRefreshToken checks a refresh token against the refresh secret.
	VerifyRefreshToken(token string) (*sec.RefreshClaims, error)

	// RefreshTTL reports the configured refresh token lifetime.
	RefreshTTL() time.Duration
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, login, or
// refresh logic must be reviewed by the security team.
type Service struct {
	userRepository UserRepository
	loginThrottle  LoginThrottle
	tokenProvider  TokenProvider
	bcryptCost     int
}

// NewService constructs a new [Service] with necessary dependencies.
//
// throttle may be nil, in which case login attempts are not rate limited
// (unit tests, single-tenant deployments without Redis).
func NewService(userRepo UserRepository, throttle LoginThrottle, tokenProv TokenProvider, bcryptCost int) *Service {
	return &Service{
		userRepository: userRepo,
		loginThrottle:  throttle,
		tokenProvider:  tokenProv,
		bcryptCost:     bcryptCost,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     sec.Role
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Enrolls a new member with an irreversibly hashed password.
Registration never logs the user in — no tokens are issued here.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: ValidationError, Conflict (if email exists), or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Emails are stored lowercase; fold once so the uniqueness precheck and
	// the persisted entity agree on casing.
	email := strings.ToLower(input.Email)

	// Verify email uniqueness. Return a client-safe Conflict err.
	// A concurrent duplicate slipping past this check is caught by the
	// unique constraint in the store and surfaces as the same Conflict.
	_, err := service.userRepository.FindByEmail(context, email)
	if err == nil {
		return nil, apperr.Conflict("Email already exists")
	}

	// Prevent storing plain-text passwords. The work factor is configurable
	// to balance security against CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password, service.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	role := input.Role
	if role == "" {
		role = sec.RoleUser
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           newID(),
		Name:         input.Name,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

/*
Login validates user credentials and issues security tokens.

Description: Verifies identity with constant-time password comparison, then
issues a fresh access/refresh token pair. The refresh token is persisted on
the user record by overwrite, revoking every other active session for that
user (single-session-per-user policy).

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: Unauthorized, RateLimited, or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	email := strings.ToLower(input.Email)

	// Throttle before touching credentials so the limiter leaks nothing
	// about account existence. Counter failures fail open: availability of
	// login outweighs the throttle on a degraded Redis.
	if service.loginThrottle != nil {
		attempts, err := service.loginThrottle.Hit(context, email)
		if err == nil && attempts > LoginAttemptLimit {
			return nil, apperr.RateLimited(int(LoginAttemptWindow.Seconds()))
		}
	}

	user, err := service.userRepository.FindByEmail(context, email)

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	// Generate short-lived Access Token
	accessToken, err := service.tokenProvider.IssueAccessToken(user.ID, user.Role, user.Email)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Generate long-lived Refresh Token
	refreshToken, err := service.tokenProvider.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Persist by overwrite. Last writer wins: two concurrent logins for the
	// same user each hold an independently valid token pair, but only the
	// one stored last survives the next refresh.
	if err := service.userRepository.UpdateRefreshToken(context, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("auth_service_session_persist_failed: %w", err)
	}
	user.RefreshToken = refreshToken

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: time.Now().Add(service.tokenProvider.RefreshTTL()),
		User:                  user,
	}, nil
}

// # Session Renewal

/*
Refresh exchanges a valid refresh token for a new access token.

Description: A refresh token is honored only if it verifies cryptographically
AND matches the value currently stored on the resolved user — the stored
comparison is the revocation check that makes logout and login-rotation
effective. The refresh token itself is NOT rotated here; only login rotates it.

Parameters:
  - context: context.Context
  - refreshToken: string (cookie value)

Returns:
  - string: Fresh access token
  - err: Unauthorized on any verification or revocation failure
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (string, error) {

	// Cryptographic verification against the refresh secret. An access token
	// presented here always fails: the secrets are never interchangeable.
	claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", apperr.Unauthorized("Invalid refresh token")
	}

	// Resolve the user the token claims to belong to.
	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		return "", apperr.Unauthorized("Invalid refresh token")
	}

	// Revocation check: the presented token must match the stored value.
	// A token superseded by a later login, or cleared by logout, fails here
	// even though its signature is still valid.
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return "", apperr.Unauthorized("Invalid refresh token")
	}

	accessToken, err := service.tokenProvider.IssueAccessToken(user.ID, user.Role, user.Email)
	if err != nil {
		return "", fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	return accessToken, nil
}

/*
Logout permanently revokes the user's active session.

Description: Locates the session owner by stored refresh token and clears it.
Idempotent: an unknown or already-cleared token is a successful logout, not
an error.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation persistence failures only
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {

	// Find the session owner. If the lookup fails the session is already
	// gone — logout succeeded.
	user, err := service.userRepository.FindByRefreshToken(context, refreshToken)
	if err != nil {
		return nil
	}

	if err := service.userRepository.ClearRefreshToken(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// newID returns a time-sortable UUIDv7, falling back to v4 on entropy failure.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
