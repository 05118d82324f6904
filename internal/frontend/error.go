package frontend

import (
	"encoding/json"
	"net/http"
)

// Error codes returned by the gateway's own surface.
const (
	ErrorCodeUnauthorized = "unauthorized"
	ErrorCodeBlocked      = "license_blocked"
	ErrorCodeLoading      = "loading"
)

// Error is an API error with an associated HTTP status.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *Error) {
	writeJSON(w, err.HTTPStatus, err)
}
