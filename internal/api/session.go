package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Retcom59/heritage-app/pkg/catalog"
	"github.com/Retcom59/heritage-app/pkg/explore"
	"github.com/Retcom59/heritage-app/pkg/model"
)

// SessionHandler serves exploration state: candidate sets, filters,
// selection, the custom pin, and the camera.
type SessionHandler struct {
	session *explore.Session
}

func NewSessionHandler(s *explore.Session) *SessionHandler {
	return &SessionHandler{session: s}
}

// HandleState returns the full session snapshot.
func (h *SessionHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.session.State())
}

// HandleCamera returns the current camera instruction.
func (h *SessionHandler) HandleCamera(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.session.CameraCommand())
}

// HandleFilters applies search/city/district/show-all and refreshes
// the candidate set.
func (h *SessionHandler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	var f explore.Filters
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.session.SetFilters(r.Context(), f); err != nil {
		slog.Error("Filter refresh failed", "error", err)
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, h.session.State())
}

// HandleBounds reports a user-driven viewport move.
func (h *SessionHandler) HandleBounds(w http.ResponseWriter, r *http.Request) {
	var b model.MapBounds
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !b.Valid() {
		http.Error(w, "degenerate bounds", http.StatusBadRequest)
		return
	}

	if err := h.session.HandleBoundsChange(r.Context(), b); err != nil {
		slog.Error("Bounds refresh failed", "error", err)
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMapClick drops a custom pin at the clicked location.
func (h *SessionHandler) HandleMapClick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pin := h.session.MapClick(req.Lat, req.Lon)
	writeJSON(w, pin)
}

// HandleSite returns full detail for a single site.
func (h *SessionHandler) HandleSite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	site, err := h.session.SiteDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, "site not found", http.StatusNotFound)
			return
		}
		slog.Error("Site lookup failed", "id", id, "error", err)
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, site)
}

// HandleSelect selects a site by ID.
func (h *SessionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	site, err := h.session.SelectSite(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, "site not found", http.StatusNotFound)
			return
		}
		slog.Error("Select failed", "id", id, "error", err)
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, site)
}

// HandleClearSelection drops the selection and any custom pin.
func (h *SessionHandler) HandleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.session.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

// HandleNearby returns sites within the roaming radius, nearest first.
func (h *SessionHandler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.session.Nearby())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
