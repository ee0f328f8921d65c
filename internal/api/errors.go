package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"querygate/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var unsafe *domain.UnsafeStatementError
	var unavailable *domain.UnavailableError
	var execution *domain.ExecutionError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unsafe):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &execution):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Risk     string `json:"risk,omitempty"`
	Executed *bool  `json:"executed,omitempty"`
}

// writeError renders a domain error as a JSON error body. An audit-write
// failure after execution carries an explicit executed flag so the client
// can tell the statement ran even though the ledger write failed.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{
		Code:    httpStatusFromDomainError(err),
		Message: err.Error(),
	}

	var unsafe *domain.UnsafeStatementError
	if errors.As(err, &unsafe) {
		resp.Risk = string(unsafe.Risk)
	}
	var auditErr *domain.AuditWriteError
	if errors.As(err, &auditErr) {
		executed := auditErr.Executed
		resp.Executed = &executed
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	_ = json.NewEncoder(w).Encode(resp)
}
