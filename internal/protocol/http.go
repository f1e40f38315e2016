package protocol

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler exposes a Dispatcher over a single net/http endpoint, the
// way the teacher's cmd/server/main.go registers its handlers directly
// against the default mux — here there is exactly one route because every
// operation travels through the same envelope.
func (d *Dispatcher) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, Envelope{OK: false, Message: "malformed request body"})
			return
		}

		env := d.Dispatch(r.Context(), req)
		writeJSON(w, http.StatusOK, env)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
