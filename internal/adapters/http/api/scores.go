// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rxnight/tally/internal/adapters/repository"
	"github.com/rxnight/tally/internal/domain/model"
)

// ScoreDependencies defines the interface for score operations.
type ScoreDependencies interface {
	SubmitScore(ctx context.Context, contestantID string, judgeNumber int, totalScore float64) (model.Score, []model.RankingRow, error)
	DeleteScore(ctx context.Context, scoreID string) ([]model.RankingRow, error)
	ClearEventScores(ctx context.Context, eventID string) (int, error)
	GetScore(ctx context.Context, id string) (model.Score, error)
	ListScores(ctx context.Context, f repository.ScoreFilter) ([]model.Score, error)
	EventRankings(ctx context.Context, eventID string) ([]model.RankingRow, error)
}

// ScoresHandler handles score submission and ledger reads.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// submitRequest mirrors the OpenAPI schema for POST /api/scores.
type submitRequest struct {
	ContestantID string  `json:"contestantId"`
	JudgeNumber  int     `json:"judgeNumber"`
	TotalScore   float64 `json:"totalScore"`
}

func (s submitRequest) validate() error {
	if strings.TrimSpace(s.ContestantID) == "" {
		return errors.New("missing contestantId")
	}
	return nil
}

// submitResponse carries the committed score together with the rankings
// it produced, so judge consoles can render the outcome immediately.
type submitResponse struct {
	Score    model.Score        `json:"score"`
	Rankings []model.RankingRow `json:"rankings"`
}

type clearResponse struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

// HandleCollection handles /api/scores requests.
func (h *ScoresHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

// HandleSubtree handles /api/scores/{...} requests:
//
//	GET    /api/scores/event/{eventId}/rankings
//	DELETE /api/scores/event/{eventId}
//	GET    /api/scores/contestant/{contestantId}
//	GET    /api/scores/{id}
//	DELETE /api/scores/{id}
func (h *ScoresHandler) HandleSubtree(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/scores/"), "/")

	switch {
	case len(parts) == 2 && parts[0] == "event" && r.Method == http.MethodDelete:
		h.handleClear(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "event" && parts[2] == "rankings" && r.Method == http.MethodGet:
		h.handleRankings(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "contestant" && r.Method == http.MethodGet:
		h.handleContestantScores(w, r, parts[1])
	case len(parts) == 1 && parts[0] != "":
		h.handleByID(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

// handleSubmit handles POST /api/scores requests.
func (h *ScoresHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	score, rankings, err := h.deps.SubmitScore(r.Context(), req.ContestantID, req.JudgeNumber, req.TotalScore)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{Score: score, Rankings: rankings})
}

// handleList handles GET /api/scores?event=&contestant= requests.
func (h *ScoresHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := repository.ScoreFilter{
		EventID:      r.URL.Query().Get("event"),
		ContestantID: r.URL.Query().Get("contestant"),
	}
	scores, err := h.deps.ListScores(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (h *ScoresHandler) handleRankings(w http.ResponseWriter, r *http.Request, eventID string) {
	rankings, err := h.deps.EventRankings(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankings)
}

func (h *ScoresHandler) handleContestantScores(w http.ResponseWriter, r *http.Request, contestantID string) {
	scores, err := h.deps.ListScores(r.Context(), repository.ScoreFilter{ContestantID: contestantID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (h *ScoresHandler) handleClear(w http.ResponseWriter, r *http.Request, eventID string) {
	removed, err := h.deps.ClearEventScores(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Message: "all scores cleared for event", Removed: removed})
}

func (h *ScoresHandler) handleByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		score, err := h.deps.GetScore(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, score)
	case http.MethodDelete:
		if _, err := h.deps.DeleteScore(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "score deleted"})
	default:
		http.NotFound(w, r)
	}
}
