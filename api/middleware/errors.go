package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/igorsal/bitbucket-notifier/internal/interfaces"
	pkgerrors "github.com/igorsal/bitbucket-notifier/pkg/errors"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// WriteError writes err as a structured JSON error response. AppErrors keep
// their status code and message; anything else becomes a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, logger interfaces.Logger, err error) {
	var statusCode int
	var errorResp ErrorResponse

	if appErr, ok := pkgerrors.AsAppError(err); ok {
		statusCode = appErr.StatusCode
		errorResp = ErrorResponse{
			Error: ErrorDetail{
				Type:    string(appErr.Type),
				Message: appErr.Message,
				Code:    appErr.Code,
				Context: appErr.Context,
			},
		}
	} else {
		statusCode = http.StatusInternalServerError
		errorResp = ErrorResponse{
			Error: ErrorDetail{
				Type:    string(pkgerrors.ErrorTypeInternal),
				Message: "Internal server error",
			},
		}
	}

	logger.Error("Request error",
		err,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"status_code", statusCode,
		"error_type", errorResp.Error.Type,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		logger.Error("Failed to encode error response", err)
	}
}

// PanicRecoveryMiddleware recovers from panics and converts them to errors
func PanicRecoveryMiddleware(logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovery := recover(); recovery != nil {
					WriteError(w, r, logger, pkgerrors.NewInternalError("panic recovered").WithCause(fmt.Errorf("%v", recovery)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
