package handlers

import (
	"errors"
	"net/http"
	"route-optimization-service/internal/api/dto"
	"route-optimization-service/internal/api/stream"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/services"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
)

const routeViewEvent = "route_view"

// SessionHandler serves the route editing sessions.
type SessionHandler struct {
	Manager *services.SessionManager
	Hub     *stream.Hub
	// Origins allowed to open the websocket stream; "*" allows any.
	AllowedOrigins []string
}

// PublishView pushes a recomputed view to the session's websocket clients.
func (h *SessionHandler) PublishView(sessionID string, view services.RouteView) {
	if h.Hub != nil {
		h.Hub.Publish(sessionID, routeViewEvent, view)
	}
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	s, err := h.Manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, r, "get session", err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	routeID := strings.TrimSpace(req.RouteID)

	var (
		s   *services.Session
		err error
	)
	switch {
	case routeID != "" && len(req.Stops) > 0:
		writeError(w, r, http.StatusBadRequest, "send either route_id or stops, not both")
		return
	case routeID != "":
		s, err = h.Manager.Open(r.Context(), routeID)
	case len(req.Stops) > 0:
		stops := make([]domain.Stop, 0, len(req.Stops))
		for _, st := range req.Stops {
			stops = append(stops, st.ToDomain())
		}
		s, err = h.Manager.OpenWithStops("", stops)
	default:
		writeError(w, r, http.StatusBadRequest, "route_id or stops is required")
		return
	}
	if err != nil {
		writeServiceError(w, r, "create session", err)
		return
	}

	h.writeSession(w, r, http.StatusCreated, s)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeSession(w, r, http.StatusOK, s)
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, s *services.Session) {
	view, err := s.View(r.Context())
	if err := r.Context().Err(); err != nil {
		writeServiceError(w, r, "route view", err)
		return
	}

	res := dto.SessionResponse{
		SessionID: s.ID,
		RouteID:   s.RouteID,
		CreatedAt: s.CreatedAt,
		View:      view,
	}
	if err != nil {
		res.Warning = warningFor(err)
	}

	writeJSON(w, r, status, res)
}

// warningFor names the services that failed while computing a view.
func warningFor(err error) string {
	var te *domain.TransientServiceError
	if errors.As(err, &te) {
		return te.Service + " unavailable; metrics may be incomplete"
	}
	return "metrics may be incomplete"
}

func (h *SessionHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FromIndex == nil || req.ToIndex == nil {
		writeError(w, r, http.StatusBadRequest, "from_index and to_index are required")
		return
	}

	changed, err := s.Reorder.Move(*req.FromIndex, *req.ToIndex)
	if err != nil {
		writeServiceError(w, r, "reorder", err)
		return
	}

	writeMutation(w, r, s, changed)
}

func (h *SessionHandler) Drag(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.DragRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	changed := s.Reorder.Drag(services.DragEvent{
		SourceID:      req.SourceID,
		DestinationID: req.DestinationID,
	})

	writeMutation(w, r, s, changed)
}

func writeMutation(w http.ResponseWriter, r *http.Request, s *services.Session, changed bool) {
	stops, version := s.Store.Snapshot()
	writeJSON(w, r, http.StatusOK, dto.MutationResponse{
		Changed: changed,
		Version: version,
		Stops:   stops,
	})
}

func (h *SessionHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.OptimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	outcome, err := s.Optimize(r.Context(), req.Constraints())
	if err != nil {
		writeServiceError(w, r, "optimize", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewOptimizeResponse(outcome))
}

// AddStop mirrors a stop created elsewhere into the session.
func (h *SessionHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.StopRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.Store.Append(req.ToDomain()); err != nil {
		writeServiceError(w, r, "add stop", err)
		return
	}

	stops, version := s.Store.Snapshot()
	writeJSON(w, r, http.StatusCreated, dto.MutationResponse{Changed: true, Version: version, Stops: stops})
}

// RemoveStop mirrors a stop deleted elsewhere out of the session.
func (h *SessionHandler) RemoveStop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if !s.Store.Remove(chi.URLParam(r, "stopID")) {
		writeError(w, r, http.StatusNotFound, "stop not found in session")
		return
	}

	writeMutation(w, r, s, true)
}

func (h *SessionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	ids, err := h.Manager.Commit(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "commit", err)
		return
	}

	s, err := h.Manager.Get(id)
	if err != nil {
		writeServiceError(w, r, "commit", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.CommitResponse{RouteID: s.RouteID, StopIDs: ids})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if err := h.Manager.Close(id); err != nil {
		writeServiceError(w, r, "delete session", err)
		return
	}
	if h.Hub != nil {
		h.Hub.CloseSession(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stream upgrades to a websocket that receives every recomputed view of the session.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.Hub == nil {
		writeError(w, r, http.StatusNotImplemented, "streaming is not enabled")
		return
	}

	var initial *stream.Event
	if view, ok := s.Pipeline.Latest(); ok {
		initial = &stream.Event{Type: routeViewEvent, Data: view}
	}

	alive := func() bool {
		_, err := h.Manager.Get(s.ID)
		return err == nil
	}
	h.Hub.Serve(w, r, s.ID, h.checkOrigin, initial, alive)
}

func (h *SessionHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.AllowedOrigins, "*") || slices.Contains(h.AllowedOrigins, origin)
}
