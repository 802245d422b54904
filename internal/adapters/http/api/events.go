// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rxnight/tally/internal/domain/model"
)

// EventDependencies defines the interface for event operations.
type EventDependencies interface {
	CreateEvent(ctx context.Context, ev model.Event) (model.Event, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ToggleLive(ctx context.Context, eventID string) (model.Event, error)
	ToggleRankings(ctx context.Context, eventID string) (model.Event, error)
	SetRevealTop(ctx context.Context, eventID string, n int) (model.Event, error)
	SeedEvents(ctx context.Context) ([]model.Event, error)
}

// EventsHandler handles event administration requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// revealTopRequest mirrors the OpenAPI schema for the reveal-top control.
type revealTopRequest struct {
	RevealTop int `json:"revealTop"`
}

// HandleCollection handles /api/events requests.
func (h *EventsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		events, err := h.deps.ListEvents(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	case http.MethodPost:
		var ev model.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		created, err := h.deps.CreateEvent(r.Context(), ev)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.NotFound(w, r)
	}
}

// HandleSubtree handles /api/events/{...} requests:
//
//	POST   /api/events/seed
//	GET    /api/events/{id}
//	PUT    /api/events/{id}
//	DELETE /api/events/{id}
//	PUT    /api/events/{id}/toggle-live
//	PUT    /api/events/{id}/toggle-rankings
//	PUT    /api/events/{id}/reveal-top
func (h *EventsHandler) HandleSubtree(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/events/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "seed":
		h.handleSeed(w, r)
	case len(parts) == 1 && parts[0] != "":
		h.handleByID(w, r, parts[0])
	case len(parts) == 2 && r.Method == http.MethodPut:
		h.handleControl(w, r, parts[0], parts[1])
	default:
		http.NotFound(w, r)
	}
}

func (h *EventsHandler) handleSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	events, err := h.deps.SeedEvents(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, events)
}

func (h *EventsHandler) handleByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		ev, err := h.deps.GetEvent(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	case http.MethodPut:
		var ev model.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		ev.ID = id
		updated, err := h.deps.UpdateEvent(r.Context(), ev)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.deps.DeleteEvent(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "event deleted"})
	default:
		http.NotFound(w, r)
	}
}

// handleControl flips the live/visibility switches of an event.
func (h *EventsHandler) handleControl(w http.ResponseWriter, r *http.Request, id, control string) {
	var (
		ev  model.Event
		err error
	)
	switch control {
	case "toggle-live":
		ev, err = h.deps.ToggleLive(r.Context(), id)
	case "toggle-rankings":
		ev, err = h.deps.ToggleRankings(r.Context(), id)
	case "reveal-top":
		var req revealTopRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		ev, err = h.deps.SetRevealTop(r.Context(), id, req.RevealTop)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
