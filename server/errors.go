package server

import (
	"encoding/json"
	"net/http"
)

// ErrorCode represents stable error codes returned by the HTTP surface.
type ErrorCode string

const (
	// InvalidRequest indicates a malformed or incomplete request body
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// RequestTooLarge indicates the body exceeded the size limit
	RequestTooLarge ErrorCode = "REQUEST_TOO_LARGE"
	// NotFound indicates an unknown route
	NotFound ErrorCode = "NOT_FOUND"
	// MethodNotAllowed indicates a known route hit with the wrong method
	MethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is the JSON error body.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return "[" + string(e.Code) + "] " + e.Message
}

// status maps an error code to its HTTP status.
func (c ErrorCode) status() int {
	switch c {
	case InvalidRequest:
		return http.StatusBadRequest
	case RequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case NotFound:
		return http.StatusNotFound
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code ErrorCode, message string) {
	writeJSON(w, code.status(), map[string]*Error{"error": {Code: code, Message: message}})
}
