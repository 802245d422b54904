// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rxnight/tally/internal/domain/model"
)

// ContestantDependencies defines the interface for contestant operations.
type ContestantDependencies interface {
	CreateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error)
	GetContestant(ctx context.Context, id string) (model.Contestant, error)
	ListContestants(ctx context.Context, eventID string) ([]model.Contestant, error)
	UpdateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error)
	DeleteContestant(ctx context.Context, id string) error
	SeedContestants(ctx context.Context, eventID string) ([]model.Contestant, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
}

// ContestantsHandler handles contestant administration requests.
type ContestantsHandler struct {
	deps ContestantDependencies
}

// NewContestantsHandler creates a new contestants handler.
func NewContestantsHandler(deps ContestantDependencies) *ContestantsHandler {
	return &ContestantsHandler{deps: deps}
}

// HandleCollection handles /api/contestants requests.
func (h *ContestantsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		var c model.Contestant
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		created, err := h.deps.CreateContestant(r.Context(), c)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.NotFound(w, r)
	}
}

// HandleSubtree handles /api/contestants/{...} requests:
//
//	GET    /api/contestants/event/{eventId}
//	POST   /api/contestants/seed/{eventId}
//	GET    /api/contestants/{id}
//	PUT    /api/contestants/{id}
//	DELETE /api/contestants/{id}
func (h *ContestantsHandler) HandleSubtree(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/contestants/"), "/")

	switch {
	case len(parts) == 2 && parts[0] == "event" && r.Method == http.MethodGet:
		contestants, err := h.deps.ListContestants(r.Context(), parts[1])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contestants)
	case len(parts) == 2 && parts[0] == "seed" && r.Method == http.MethodPost:
		contestants, err := h.deps.SeedContestants(r.Context(), parts[1])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, contestants)
	case len(parts) == 1 && parts[0] != "":
		h.handleByID(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

// handleList handles GET /api/contestants?event= requests. Without an
// event filter it returns the contestants of every event.
func (h *ContestantsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event")
	if eventID != "" {
		contestants, err := h.deps.ListContestants(r.Context(), eventID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contestants)
		return
	}

	events, err := h.deps.ListEvents(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	all := make([]model.Contestant, 0)
	for _, ev := range events {
		contestants, err := h.deps.ListContestants(r.Context(), ev.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		all = append(all, contestants...)
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *ContestantsHandler) handleByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		c, err := h.deps.GetContestant(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var c model.Contestant
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		c.ID = id
		updated, err := h.deps.UpdateContestant(r.Context(), c)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.deps.DeleteContestant(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "contestant deleted"})
	default:
		http.NotFound(w, r)
	}
}
