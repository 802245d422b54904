// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rxnight/tally/internal/adapters/broadcast"
	"github.com/rxnight/tally/internal/adapters/repository"
	service "github.com/rxnight/tally/internal/app"
	"github.com/rxnight/tally/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	EventDependencies
	ContestantDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoresHandler      *ScoresHandler
	eventsHandler      *EventsHandler
	contestantsHandler *ContestantsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scoresHandler:      NewScoresHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		contestantsHandler: NewContestantsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/api/scores", MetricsMiddleware(s.scoresHandler.HandleCollection, "scores"))
	mux.HandleFunc("/api/scores/", MetricsMiddleware(s.scoresHandler.HandleSubtree, "scores"))

	mux.HandleFunc("/api/events", MetricsMiddleware(s.eventsHandler.HandleCollection, "events"))
	mux.HandleFunc("/api/events/", MetricsMiddleware(s.eventsHandler.HandleSubtree, "events"))

	mux.HandleFunc("/api/contestants", MetricsMiddleware(s.contestantsHandler.HandleCollection, "contestants"))
	mux.HandleFunc("/api/contestants/", MetricsMiddleware(s.contestantsHandler.HandleSubtree, "contestants"))
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates service errors into HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, broadcast.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrAlreadySeeded), errors.Is(err, service.ErrRosterExists):
		writeError(w, http.StatusBadRequest, "already_seeded", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
