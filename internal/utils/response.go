// Package utils holds the HTTP response writers shared by the server.
package utils

import (
	"encoding/json"
	"net/http"
)

// RespondJSON sends a JSON response with the given status code.
//
// HTML characters are not escaped so values come back as they were sent.
func RespondJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// RespondText sends a plain text response with the given status code.
func RespondText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
