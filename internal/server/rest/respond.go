package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/logging"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body envelope) {
	payload, err := json.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(payload)
}

func writeOK(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Message: message})
}

func writeFail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Success: false, Message: message})
}

// statusFor maps a service error to an HTTP status and a message that is
// safe to show to the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, common.ErrorAccountInactive):
		return http.StatusUnauthorized, "Account is inactive"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, common.ErrorServiceUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	case errors.Is(err, common.ErrorEmptyObject):
		return http.StatusInternalServerError, "Downloaded file is empty"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeError logs err and writes the mapped status. Only 5xx errors are
// logged at error level.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, op string, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error(ctx, op+" failed", "error", err, "status", code)
	} else {
		logger.Debug(ctx, op+" rejected", "error", err, "status", code)
	}
	writeFail(w, code, msg)
}

func logWarnings(ctx context.Context, logger logging.Logger, warnings []common.Warning) {
	for _, w := range warnings {
		WarningsTotal.Inc()
		logger.Warn(ctx, "best-effort step failed", "op", w.Op, "error", w.Err)
	}
}
