package handlers

import (
	"net/http"
)

// Health provides a minimal liveness check endpoint.
// sessions, when set, reports the number of open editing sessions.
func Health(sessions func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := map[string]any{"status": "ok"}
		if sessions != nil {
			res["sessions"] = sessions()
		}
		writeJSON(w, r, http.StatusOK, res)
	}
}
