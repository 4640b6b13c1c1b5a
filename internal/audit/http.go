// Copyright (c) 2026 Trackly. All rights reserved.

package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trackly/trackly/internal/platform/middleware"
	"github.com/trackly/trackly/internal/platform/respond"
	"github.com/trackly/trackly/internal/platform/sec"
)

// defaultListLimit bounds an unqualified listing request.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Handler exposes the audit log read surface.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts the audit endpoints. The whole surface is Admin-only.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireRole(sec.RoleAdmin))
	router.Get("/", handler.list)
	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	limit := defaultListLimit
	if raw := request.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	entries, err := handler.store.List(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, entries)
}
