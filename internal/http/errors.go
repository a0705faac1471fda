package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"go.uber.org/zap"
)

// StatusClientClosedRequest is reported when the caller went away before
// the request finished.
const StatusClientClosedRequest = 499

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the domain error taxonomy to HTTP statuses and
// stable codes. Internal details are logged, never returned.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		httpStatus int
		code       string
		message    = err.Error()
	)

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrEmptyCart):
		httpStatus = http.StatusBadRequest
		code = "empty_cart"
	case errors.Is(err, domain.ErrBusy):
		httpStatus = http.StatusConflict
		code = "busy"
	case errors.Is(err, domain.ErrStorage):
		httpStatus = http.StatusServiceUnavailable
		code = "storage_unavailable"
		message = "storage unavailable, retry later"
	case errors.Is(err, context.Canceled):
		logger.FromContext(r.Context(), zap.L()).Debug("request canceled by client", zap.Error(err))
		respondError(w, StatusClientClosedRequest, "canceled", "request canceled")
		return
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
		message = "request timed out"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
		message = "internal server error"
	}

	if httpStatus >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), zap.L()).Error("request failed",
			zap.String("code", code),
			zap.Error(err))
	}

	respondError(w, httpStatus, code, message)
}
