package auth

import (
	"encoding/json"
	"net/http"
)

// Response bodies mirror the HTTP status and carry exactly one of
// result or error, or a message with optional extra fields.

func writeResult(w http.ResponseWriter, status int, result any) {
	writeJSON(w, status, map[string]any{"status": status, "result": result})
}

func writeMessage(w http.ResponseWriter, status int, message string, extra map[string]any) {
	payload := map[string]any{"status": status, "message": message}
	for key, value := range extra {
		payload[key] = value
	}
	writeJSON(w, status, payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": status, "error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
