package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]any{"error": msg})
}

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *domain.ValidationError
	var te *domain.TransientServiceError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRouteNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())

	case errors.As(err, &ve):
		body := map[string]any{"error": ve.Reason}
		if errors.Is(err, domain.ErrStaleResult) {
			body["stale"] = true
		}
		writeJSON(w, r, http.StatusUnprocessableEntity, body)

	case errors.As(err, &te):
		log.Printf("%s failed: req_id=%s err=%v", op, obs.RequestID(r.Context()), err)
		writeJSON(w, r, http.StatusBadGateway, map[string]any{
			"error":       te.Service + " is unavailable, try again",
			"recoverable": true,
		})

	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "request timed out")

	case errors.Is(err, context.Canceled):
		// The client is gone; nothing useful can be written.
		log.Printf("%s cancelled: req_id=%s", op, obs.RequestID(r.Context()))

	default:
		log.Printf("%s failed: req_id=%s err=%v", op, obs.RequestID(r.Context()), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
