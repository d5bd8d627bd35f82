package web

// errors.go provides unified error response handling for the web layer.
//
// Every failure is logged with its technical detail and request ID, then
// answered with the user-facing mapping from core.MapError:
//
//	{"error": "...", "message": "...", "action": "...", "code": "IMP005"}

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/logging"
	"github.com/pandahoho/importer/internal/store"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing form with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	level := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	respondErrorJSON(w, userMsg, statusCode)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for a handler error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, errUnknownTarget):
		return http.StatusNotFound
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNotCSV):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errNoFile), errors.Is(err, errEmptyFile),
		errors.Is(err, errInvalidBody), errors.Is(err, errInvalidQuery),
		errors.Is(err, store.ErrEmptyBatch):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotSubmittable), errors.Is(err, core.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch core.MapError(err).Code {
	case "DB001", "DB002":
		return http.StatusConflict
	case "DB004", "DB005", "DB007":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
