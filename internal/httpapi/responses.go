package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"gxshared/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps the error taxonomy to a status code. Provider and
// configuration details stay in the logs.
func WriteDomainError(w http.ResponseWriter, err error) {
	status, code, message := classifyError(err)
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message, Fields: verr.Fields}})
		return
	}
	WriteError(w, status, code, message)
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error", "invalid request"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable, "not_configured", "service not configured"
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway, "upstream_error", "upstream service failed"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
