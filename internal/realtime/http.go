// Copyright (c) 2026 Trackly. All rights reserved.

package realtime

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/trackly/trackly/internal/platform/apperr"
	"github.com/trackly/trackly/internal/platform/constants"
	"github.com/trackly/trackly/internal/platform/middleware"
	"github.com/trackly/trackly/internal/platform/respond"
	"github.com/trackly/trackly/internal/platform/sec"
)

// HandlerOptions carries the environment-dependent handshake policy.
type HandlerOptions struct {
	// AllowAnyOrigin disables the Origin check. Development only.
	AllowAnyOrigin bool

	// ClientOrigin is the single browser origin accepted in production.
	ClientOrigin string
}

// Handler upgrades authenticated HTTP requests into hub connections.
type Handler struct {
	hub      *Hub
	verifier middleware.TokenVerifier
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, verifier middleware.TokenVerifier, options HandlerOptions) *Handler {
	handler := &Handler{hub: hub, verifier: verifier}
	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(request *http.Request) bool {
			if options.AllowAnyOrigin {
				return true
			}
			// Non-browser clients send no Origin header; nothing to enforce.
			origin := request.Header.Get("Origin")
			return origin == "" || origin == options.ClientOrigin
		},
	}
	return handler
}

// Routes mounts the subscription endpoint.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.Subscribe)
	return router
}

// # Handshake

/*
Subscribe authenticates the caller and hands the socket to the hub.

The access token travels either as a standard bearer header or, because the
browser WebSocket API cannot set headers, as a "token" query parameter. The
subscriber identity is always derived from the verified token claims; any
client-supplied user id is ignored.

Failure modes mirror the REST surface: an expired token yields 401 with code
TOKEN_EXPIRED so the client refreshes and reconnects, anything else invalid
yields 403.
*/
func (handler *Handler) Subscribe(writer http.ResponseWriter, request *http.Request) {
	token := bearerToken(request)
	if token == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing access token"))
		return
	}

	claims, err := handler.verifier.VerifyAccessToken(token)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			respond.Error(writer, request, apperr.TokenExpired())
			return
		}
		respond.Error(writer, request, apperr.Forbidden("Invalid token"))
		return
	}

	socket, err := handler.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote its own HTTP error response.
		return
	}

	handler.hub.Attach(claims.UserID, socket)
}

// bearerToken extracts the access token from the Authorization header or,
// failing that, the "token" query parameter.
func bearerToken(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)
	parts := strings.Split(header, " ")
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return request.URL.Query().Get("token")
}
