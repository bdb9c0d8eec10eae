// Package httputil writes the JSON envelopes shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error codes returned in the "error" field.
const (
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal_error"
)

// Error is a client-facing failure with its HTTP status.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Description
}

func BadRequest(description string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Description: description}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a JSON error body. Errors that are not
// *Error become a 500 without a description.
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *Error
	if !errors.As(err, &httpErr) {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": CodeInternal})
		return
	}
	body := map[string]string{"error": httpErr.Code}
	if httpErr.Description != "" {
		body["error_description"] = httpErr.Description
	}
	WriteJSON(w, httpErr.Status, body)
}
