package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kasa/internal/amqp"
	"kasa/internal/core"
	"kasa/internal/log"
	"kasa/internal/services"
	"kasa/internal/store"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// FieldError details a validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		// the status line is already out; nothing useful to do on failure
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string, details any) {
	respondJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// respondServiceError maps domain and store errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *core.ValidationError
		bad *malformedError
	)
	switch {
	case errors.As(err, &bad):
		respondError(w, http.StatusBadRequest, "malformed request", bad.Error())
	case errors.As(err, &ve):
		respondError(w, http.StatusUnprocessableEntity, "validation failed",
			FieldError{Field: ve.Field, Reason: ve.Err.Error()})
	case errors.Is(err, store.ErrEmptyName):
		respondError(w, http.StatusUnprocessableEntity, "validation failed",
			FieldError{Field: "name", Reason: store.ErrEmptyName.Error()})
	case errors.Is(err, store.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, store.ErrTransactionNotFound.Error(), nil)
	case errors.Is(err, store.ErrExpenseTypeNotFound):
		respondError(w, http.StatusNotFound, store.ErrExpenseTypeNotFound.Error(), nil)
	case errors.Is(err, store.ErrExpenseTypeInUse):
		respondError(w, http.StatusConflict, store.ErrExpenseTypeInUse.Error(), nil)
	case errors.Is(err, store.ErrDuplicateExpenseType):
		respondError(w, http.StatusConflict, store.ErrDuplicateExpenseType.Error(), nil)
	case errors.Is(err, services.ErrExportUnavailable), errors.Is(err, amqp.ErrCircuitOpen):
		respondError(w, http.StatusServiceUnavailable, "export unavailable", err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
