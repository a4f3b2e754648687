package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/logger"
	"github.com/socialchef/moodbite/internal/recommendation"
	"github.com/socialchef/moodbite/internal/sentry"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError answers with the recommendation error envelope. Anything that is
// not an AppError is an internal error whose cause stays out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError("internal server error", "INTERNAL_ERROR", err)
	}

	attrs := []any{
		"path", r.URL.Path,
		"error_type", appErr.Type,
		"error_code", appErr.Code(),
		"status", appErr.StatusCode,
		"error", err,
		logger.WithTraceContext(r.Context()),
	}
	if appErr.StatusCode >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", attrs...)
	} else {
		slog.WarnContext(r.Context(), "Request rejected", attrs...)
	}
	sentry.CaptureError(r.Context(), appErr)

	writeJSON(w, appErr.StatusCode, recommendation.Failed(appErr.Code(), appErr.Message))
}

// HandlePanic writes the response after a recovered panic.
func (s *Server) HandlePanic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusInternalServerError, recommendation.Failed("INTERNAL_ERROR", "internal server error"))
}
