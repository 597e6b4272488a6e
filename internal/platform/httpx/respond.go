// Package httpx provides JSON response utilities and the API error envelope.
package httpx

import (
	"encoding/json"
	"net/http"
)

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends the API error envelope. The code field is a stable
// machine-readable discriminator; clients match on it, so codes never change
// between releases. Extra keys are merged into the top-level object.
func Error(w http.ResponseWriter, status int, errTag, message, code string, extra map[string]any) {
	body := map[string]any{
		"error":   errTag,
		"message": message,
		"code":    code,
	}
	for k, v := range extra {
		if k == "error" || k == "message" || k == "code" {
			continue
		}
		body[k] = v
	}
	JSON(w, status, body)
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(target)
}
