package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/sensorhub-core/internal/device"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// Error represents a structured error response.
//
// Detail carries the underlying fault and is only set on 500 responses.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"error,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// User-facing messages shared by several handlers.
const (
	msgDeviceNotFound = "Device not found"
	msgNoData         = "No data found for this device"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeValidationError writes a 400 with the validation message.
func writeValidationError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response. err, when non-nil, is
// attached as the "error" field.
func writeInternalError(w http.ResponseWriter, message string, err error) {
	e := Error{
		Status:  http.StatusInternalServerError,
		Code:    ErrCodeInternal,
		Message: message,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, e)
}

// writeServiceError maps a device or reading error onto a response.
// internalMsg is used for anything that is not a known sentinel.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, msgDeviceNotFound)
	case errors.Is(err, reading.ErrNoReadings):
		writeNotFound(w, msgNoData)
	case errors.Is(err, device.ErrDeviceExists):
		writeConflict(w, err.Error())
	case errors.Is(err, device.ErrInvalidDevice), errors.Is(err, reading.ErrInvalidReading):
		writeValidationError(w, err)
	default:
		s.logger.Error(internalMsg,
			"error", err,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, internalMsg, err)
	}
}

// decodeJSON decodes the request body into v, reporting oversized and
// malformed bodies as a 400. It returns false when a response was written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeBadRequest(w, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
