package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"trainhub/internal/model"
	"trainhub/internal/service"
	"trainhub/internal/transport/rest/middleware"
)

// ViewHandler handles module visit and quiz endpoints
type ViewHandler struct {
	svc *service.AssessmentService
}

// NewViewHandler creates a new view handler
func NewViewHandler(svc *service.AssessmentService) *ViewHandler {
	return &ViewHandler{svc: svc}
}

// AnswerRequest is the request body for recording an answer
type AnswerRequest struct {
	Value *string `json:"value" validate:"required,max=2000"`
}

// AnswerResponse reports whether the answer was taken
type AnswerResponse struct {
	Accepted bool              `json:"accepted"`
	View     *model.ModuleView `json:"view"`
}

// Open handles POST /v1/modules/{moduleId}/views
func (h *ViewHandler) Open(w http.ResponseWriter, r *http.Request) {
	learner := middleware.GetLearner(r.Context())
	if learner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	moduleID, ok := intParam(mux.Vars(r)["moduleId"])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid module id")
		return
	}

	view, err := h.svc.OpenView(r.Context(), learner, moduleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// Get handles GET /v1/views/{viewId}
func (h *ViewHandler) Get(w http.ResponseWriter, r *http.Request) {
	learner, viewID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetView(learner, viewID)
	h.respond(w, view, err)
}

// CompleteStep handles POST /v1/views/{viewId}/steps/complete
func (h *ViewHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	learner, viewID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	view, err := h.svc.CompleteStep(learner, viewID)
	h.respond(w, view, err)
}

// GoToStep handles POST /v1/views/{viewId}/steps/{index}
func (h *ViewHandler) GoToStep(w http.ResponseWriter, r *http.Request) {
	learner, viewID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	idx, ok := intParam(mux.Vars(r)["index"])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid step index")
		return
	}
	view, err := h.svc.GoToStep(learner, viewID, idx)
	h.respond(w, view, err)
}

// ResumeQuiz handles POST /v1/views/{viewId}/quiz/resume
func (h *ViewHandler) ResumeQuiz(w http.ResponseWriter, r *http.Request) {
	learner, viewID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	view, err := h.svc.ResumeQuiz(learner, viewID)
	h.respond(w, view, err)
}

// Answer handles PUT /v1/views/{viewId}/quiz/answers/{position}
func (h *ViewHandler) Answer(w http.ResponseWriter, r *http.Request) {
	learner, viewID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	pos, ok := intParam(mux.Vars(r)["position"])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid question position")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, accepted, err := h.svc.Answer(learner, viewID, pos, *req.Value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Accepted: accepted, View: view})
}

// Submit handles POST /v1/views/{viewId}/quiz/submit
func (h *ViewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	learner, viewID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Submit(learner, viewID)
	h.respond(w, view, err)
}

// Close handles DELETE /v1/views/{viewId}
func (h *ViewHandler) Close(w http.ResponseWriter, r *http.Request) {
	learner, viewID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := h.svc.CloseView(learner, viewID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ViewHandler) resolve(w http.ResponseWriter, r *http.Request) (*model.Learner, string, bool) {
	learner := middleware.GetLearner(r.Context())
	if learner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, "", false
	}
	viewID := mux.Vars(r)["viewId"]
	if err := Validator.Var(viewID, "required,uuid"); err != nil {
		writeError(w, http.StatusNotFound, service.ErrViewNotFound.Error())
		return nil, "", false
	}
	return learner, viewID, true
}

func (h *ViewHandler) respond(w http.ResponseWriter, view *model.ModuleView, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
