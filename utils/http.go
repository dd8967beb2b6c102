package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx collector response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps 2xx payloads in a data envelope
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// errorCodes maps a status to its machine-readable error code and default message
var errorCodes = map[int]struct{ code, message string }{
	http.StatusBadRequest:            {"bad_request", "Bad request"},
	http.StatusUnauthorized:          {"unauthorized", "Authentication required"},
	http.StatusForbidden:             {"forbidden", "Access forbidden"},
	http.StatusNotFound:              {"not_found", "Not found"},
	http.StatusRequestEntityTooLarge: {"payload_too_large", "Payload too large"},
	http.StatusServiceUnavailable:    {"service_unavailable", "Service unavailable"},
	http.StatusInternalServerError:   {"internal_error", "Internal server error"},
}

// WriteJSON writes v as JSON with the given status. A nil v writes no body.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(v)
}

// WriteOK writes 200 with data in the envelope
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteAccepted writes 202 with data in the envelope
func WriteAccepted(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusAccepted, SuccessResponse{Data: data})
}

// WriteError writes an ErrorResponse. Statuses without a known code are
// reported as internal_error; an empty message uses the status default.
func WriteError(w http.ResponseWriter, status int, message string, details map[string]interface{}) error {
	entry, ok := errorCodes[status]
	if !ok {
		entry = errorCodes[http.StatusInternalServerError]
	}
	if message == "" {
		message = entry.message
	}
	return WriteJSON(w, status, ErrorResponse{
		Error:   entry.code,
		Message: message,
		Details: details,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteError(w, http.StatusBadRequest, message, details)
}

func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusUnauthorized, message, nil)
}

func WriteForbidden(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusForbidden, message, nil)
}

func WriteNotFound(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusNotFound, message, nil)
}

func WriteInternalServerError(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusInternalServerError, message, nil)
}

// ValidationDetails converts a ValidationError into per-field response details
func ValidationDetails(err error) map[string]interface{} {
	fields := GetValidationFields(err)
	if len(fields) == 0 {
		return nil
	}
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return details
}
