package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Retcom59/heritage-app/pkg/explore"
	"github.com/Retcom59/heritage-app/pkg/model"
	"github.com/Retcom59/heritage-app/pkg/route"
)

// RouteHandler serves the travel overlay lifecycle.
type RouteHandler struct {
	session *explore.Session
}

func NewRouteHandler(s *explore.Session) *RouteHandler {
	return &RouteHandler{session: s}
}

// HandleRequest computes directions from the user to the selected site.
// Without a position fix it starts acquisition and answers 409 so the
// client can retry once located.
func (h *RouteHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	rt, err := h.session.Directions(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, explore.ErrNoSelection):
			http.Error(w, "no site selected", http.StatusBadRequest)
		case errors.Is(err, route.ErrLocationNeeded):
			writeJSONStatus(w, http.StatusConflict, map[string]string{
				"status": "location_needed",
			})
		case errors.Is(err, route.ErrNoRoute):
			http.Error(w, "no route found", http.StatusNotFound)
		case route.IsSuperseded(err):
			w.WriteHeader(http.StatusNoContent)
		default:
			slog.Error("Route request failed", "error", err)
			http.Error(w, "routing unavailable", http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, rt)
}

// HandleClear removes the active route overlay.
func (h *RouteHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.session.ClearRoute()
	w.WriteHeader(http.StatusNoContent)
}

// HandleMode switches the travel mode. An active route for a different
// mode is invalidated; no recompute happens until requested.
func (h *RouteHandler) HandleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode model.TravelMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Mode.Valid() {
		http.Error(w, "unknown travel mode", http.StatusBadRequest)
		return
	}

	h.session.Routes().SetMode(req.Mode)
	writeJSON(w, map[string]any{
		"mode":  req.Mode,
		"route": h.session.Routes().Active(),
	})
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
