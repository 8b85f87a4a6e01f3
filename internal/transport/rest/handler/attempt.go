package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"trainhub/internal/service"
	"trainhub/internal/transport/rest/middleware"
)

const defaultListLimit = 20

// AttemptHandler handles archived attempt and score board endpoints
type AttemptHandler struct {
	svc *service.AssessmentService
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(svc *service.AssessmentService) *AttemptHandler {
	return &AttemptHandler{svc: svc}
}

// ListQuery holds the query parameters of the list endpoints
type ListQuery struct {
	ModuleID int `validate:"gt=0"`
	Limit    int `validate:"gte=1,lte=100"`
}

func parseListQuery(r *http.Request) (*ListQuery, error) {
	q := &ListQuery{Limit: defaultListLimit}
	q.ModuleID, _ = strconv.Atoi(mux.Vars(r)["moduleId"])
	if raw := r.URL.Query().Get("limit"); raw != "" {
		q.Limit, _ = strconv.Atoi(raw)
	}
	if err := validate(q); err != nil {
		return nil, err
	}
	return q, nil
}

// List handles GET /v1/modules/{moduleId}/attempts
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	learner := middleware.GetLearner(r.Context())
	if learner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	attempts, err := h.svc.Attempts(r.Context(), learner, q.ModuleID, q.Limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

// Get handles GET /v1/attempts/{attemptId}
func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	learner := middleware.GetLearner(r.Context())
	if learner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	attempt, err := h.svc.Attempt(r.Context(), learner, mux.Vars(r)["attemptId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// Scoreboard handles GET /v1/modules/{moduleId}/scoreboard
func (h *AttemptHandler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	learner := middleware.GetLearner(r.Context())
	if learner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	board, err := h.svc.Scoreboard(r.Context(), learner, q.ModuleID, q.Limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
