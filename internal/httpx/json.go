package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

type responseEnvelope struct {
	Data  any    `json:"data,omitempty"`
	Time  string `json:"time"`
	Error any    `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	writeEnvelope(w, status, responseEnvelope{Data: v})
}

func WriteError[T any](w http.ResponseWriter, status int, errBody ErrorResponse[T]) {
	writeEnvelope(w, status, responseEnvelope{Error: errBody})
}

// writeEnvelope marshals before writing the status so an encoding failure
// still produces a well-formed 500.
func writeEnvelope(w http.ResponseWriter, status int, env responseEnvelope) {
	env.Time = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(env)
	if err != nil {
		http.Error(w, `{"error":{"code":"internal_error"}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
