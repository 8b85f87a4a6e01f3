package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"trainhub/internal/assessment"
	"trainhub/internal/service"
)

// Validator checks request structs against their validate tags
var Validator = validator.New()

func validate(val interface{}) error {
	return Validator.Struct(val)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps domain errors to status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrViewNotFound),
		errors.Is(err, service.ErrModuleNotFound),
		errors.Is(err, service.ErrAttemptNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrLMSUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, assessment.ErrQuestionOutOfRange),
		errors.Is(err, assessment.ErrStepOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assessment.ErrNoQuiz),
		errors.Is(err, assessment.ErrQuizInProgress),
		errors.Is(err, assessment.ErrQuizSubmitted),
		errors.Is(err, assessment.ErrModuleCompleted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// intParam parses a non-negative integer path or query value
func intParam(raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
