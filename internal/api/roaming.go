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

// RoamingHandler serves roaming mode transitions.
type RoamingHandler struct {
	session *explore.Session
}

func NewRoamingHandler(s *explore.Session) *RoamingHandler {
	return &RoamingHandler{session: s}
}

// HandleActivate enters roaming mode with the walk defaults.
func (h *RoamingHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.session.Roaming().Activate(r.Context())
	h.session.EmitRoaming()
	writeJSON(w, h.session.Roaming().State())
}

// HandleDeactivate leaves roaming mode.
func (h *RoamingHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.session.Roaming().Deactivate()
	h.session.EmitRoaming()
	writeJSON(w, h.session.Roaming().State())
}

// HandleMode switches the roaming preset. Radius defaults to the
// preset for the mode when omitted.
func (h *RoamingHandler) HandleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode         model.TravelMode `json:"mode"`
		RadiusMeters float64          `json:"radius_meters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Mode.Valid() {
		http.Error(w, "unknown travel mode", http.StatusBadRequest)
		return
	}
	if req.RadiusMeters <= 0 {
		req.RadiusMeters = req.Mode.RoamingRadius()
	}

	h.session.Roaming().SetMode(req.RadiusMeters, req.Mode)
	h.session.EmitRoaming()
	writeJSON(w, h.session.Roaming().State())
}

// HandleRefresh re-queries the catalog around the user position.
func (h *RoamingHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RefreshRoaming(r.Context()); err != nil {
		if errors.Is(err, route.ErrLocationNeeded) {
			writeJSONStatus(w, http.StatusConflict, map[string]string{
				"status": "location_needed",
			})
			return
		}
		slog.Error("Roaming refresh failed", "error", err)
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, h.session.Nearby())
}
