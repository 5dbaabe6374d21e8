package httpapi

import (
	"encoding/json"
	"net/http"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeUnauthorized   = "UNAUTHORIZED"
	codeForbidden      = "FORBIDDEN"
	codeConflict       = "ALREADY_EXISTS"
	codeTooLarge       = "PAYLOAD_TOO_LARGE"
	codeRateLimited    = "RATE_LIMIT_EXCEEDED"
	codeInternal       = "INTERNAL_ERROR"
	codeUnavailable    = "UNAVAILABLE"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{Code: code, Message: message})
}

// writeUnauthorized never says why authentication failed.
func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
}

func writeForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
}

func writeInternal(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
