// Copyright (c) 2026 Trackly. All rights reserved.

/*
Package auth provides the HTTP delivery layer for user identity management.

It implements the gateway for the authentication lifecycle — from account
creation to session renewal and logout.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface.
  - Security: Handles JWT orchestration and refresh token cookie injection.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trackly/trackly/internal/platform/apperr"
	"github.com/trackly/trackly/internal/platform/constants"
	requestutil "github.com/trackly/trackly/internal/platform/request"
	"github.com/trackly/trackly/internal/platform/respond"
	"github.com/trackly/trackly/internal/platform/sec"
	"github.com/trackly/trackly/internal/platform/validate"
)

// # Definitions & Constructors

// HandlerOptions carries the transport-level knobs the handler needs.
type HandlerOptions struct {
	// SecureCookies sets the Secure attribute on the refresh cookie.
	// Enabled in production, disabled for local plain-HTTP development.
	SecureCookies bool

	// AccessTokenTTL is echoed to clients as expires_in.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL drives the refresh cookie's Max-Age.
	RefreshTokenTTL time.Duration
}

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService *Service
	options     HandlerOptions
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, options HandlerOptions) *Handler {
	return &Handler{authService: service, options: options}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register : Creates a new account (does not log in).
//   - POST /login    : Authenticates and returns a JWT + refresh cookie.
//   - GET  /refresh  : Exchanges the refresh cookie for a new access token.
//   - POST /logout   : Revokes the session and clears the cookie.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Get("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	return router
}

// # Request Payloads

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Description: Validates input, checks for identity conflicts, and persists
a new user profile to the database. Never issues tokens.

Request:
  - Body: registerRequest (Name, Email, Password, optional Role)

Response:
  - 200: Message: Registration confirmation
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// Field validation happens in the service. The handler only maps the
	// wire-level role string onto the closed enum.
	role := sec.RoleUser
	if input.Role != "" {
		parsed, err := sec.ParseRole(input.Role)
		if err != nil {
			respond.Error(writer, request, apperr.ValidationError("Invalid role", apperr.FieldError{
				Field:   FieldRole,
				Message: "Must be one of: Admin, Manager, User",
			}))
			return
		}
		role = parsed
	}

	_, err := handler.authService.Register(request.Context(), RegisterInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     role,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Registration Successful!",
	})
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Description: Verifies credentials, generates a JWT access token, and injects
a secure refresh token cookie into the response. Unknown email and wrong
password are indistinguishable to the caller.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 201: Session: Access token and User profile
  - 400: ErrInvalidJSON: Missing fields
  - 401: ErrUnauthorized: Invalid credentials
  - 429: ErrRateLimited: Attempt throttle fired
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken, session.RefreshTokenExpiresAt)

	respond.Created(writer, map[string]any{
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(handler.options.AccessTokenTTL / time.Second),
		"user":           session.User,
	})
}

/*
Refresh issues a new access token using a valid refresh token.

GET /api/v1/auth/refresh

Description: Validates the refresh token cookie (signature, expiry, and the
stored-value revocation check) and issues a fresh access token. The refresh
token itself is not rotated — only login rotates it.

Response:
  - 201: RefreshResponse: New access token credentials
  - 400: ErrValidation: No refresh token cookie present
  - 401: ErrUnauthorized: Invalid, expired, or revoked refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.ValidationError("No refresh token"))
		return
	}

	accessToken, err := handler.authService.Refresh(request.Context(), cookie.Value)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		FieldAccessToken: accessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(handler.options.AccessTokenTTL / time.Second),
	})
}

/*
Logout terminates the current user session.

POST /api/v1/auth/logout

Description: Invalidates the refresh token (if present) and clears the
security cookie from the client. Idempotent — logging out twice succeeds.

Response:
  - 201: Message: Session terminated
  - 204: No Content: No session cookie was present
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.NoContent(writer)
		return
	}

	if err := handler.authService.Logout(request.Context(), cookie.Value); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)

	respond.Created(writer, map[string]string{
		FieldMessage: "Logout Successful",
	})
}

// # Cookie Helpers

// setRefreshCookie installs the HTTP-only refresh token cookie.
//
// Flags follow the session-renewal protocol: HttpOnly always, SameSite=Strict
// always, Secure only in production (plain-HTTP dev would otherwise drop it).
func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    token,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  expiresAt,
		MaxAge:   int(handler.options.RefreshTokenTTL / time.Second),
		Secure:   handler.options.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the refresh token cookie client-side.
func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.options.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
