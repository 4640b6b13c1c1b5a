// Copyright (c) 2026 Trackly. All rights reserved.

package tasks

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trackly/trackly/internal/platform/middleware"
	requestutil "github.com/trackly/trackly/internal/platform/request"
	"github.com/trackly/trackly/internal/platform/respond"
	"github.com/trackly/trackly/internal/platform/sec"
)

// Handler exposes the task HTTP surface.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the task endpoints.
//
// Every route requires authentication; the administrative surface (full
// listing, reassignment, deletion) additionally requires the Admin role.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Post("/", handler.create)
	router.Get("/assigned", handler.listAssigned)
	router.Get("/created", handler.listCreated)

	router.Group(func(adminRoute chi.Router) {
		adminRoute.Use(middleware.RequireRole(sec.RoleAdmin))

		adminRoute.Get("/", handler.listAll)
		adminRoute.Put("/{id}/assign", handler.reassign)
		adminRoute.Delete("/{id}", handler.delete)
	})

	return router
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	task, err := handler.service.Create(request.Context(), actorID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, task)
}

func (handler *Handler) listAssigned(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	taskList, err := handler.service.ListAssigned(request.Context(), userID, filterFromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, taskList)
}

func (handler *Handler) listCreated(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	taskList, err := handler.service.ListCreated(request.Context(), userID, filterFromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, taskList)
}

func (handler *Handler) listAll(writer http.ResponseWriter, request *http.Request) {
	taskList, err := handler.service.ListAll(request.Context(), filterFromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, taskList)
}

func (handler *Handler) reassign(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input struct {
		AssignedTo string `json:"assigned_to"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	task, err := handler.service.Reassign(request.Context(), actorID, requestutil.Param(request, "id"), input.AssignedTo)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, task)
}

func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), actorID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// filterFromRequest parses the optional listing filters. Unparseable values
// are ignored rather than rejected.
func filterFromRequest(request *http.Request) Filter {
	query := request.URL.Query()

	filter := Filter{
		Status:   Status(query.Get("status")),
		Priority: Priority(query.Get("priority")),
	}
	if raw := query.Get("due_from"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DueFrom = &parsed
		}
	}
	if raw := query.Get("due_to"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DueTo = &parsed
		}
	}
	return filter
}
