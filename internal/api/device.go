package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Retcom59/heritage-app/pkg/location"
)

// DeviceHandler ingests raw position and orientation signals from the
// client device and feeds them to the location tracker.
type DeviceHandler struct {
	tracker *location.Tracker
}

func NewDeviceHandler(t *location.Tracker) *DeviceHandler {
	return &DeviceHandler{tracker: t}
}

// HandlePosition ingests a geolocation fix.
func (h *DeviceHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	var fix location.PositionFix
	if err := json.NewDecoder(r.Body).Decode(&fix); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if fix.Lat < -90 || fix.Lat > 90 || fix.Lon < -180 || fix.Lon > 180 {
		http.Error(w, "coordinates out of range", http.StatusBadRequest)
		return
	}

	h.tracker.OnPosition(fix)
	w.WriteHeader(http.StatusNoContent)
}

// HandleOrientation ingests a device orientation sample.
func (h *DeviceHandler) HandleOrientation(w http.ResponseWriter, r *http.Request) {
	var sample location.OrientationSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.tracker.OnOrientation(sample)
	w.WriteHeader(http.StatusNoContent)
}

// HandleError reports a geolocation failure from the device.
func (h *DeviceHandler) HandleError(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.tracker.OnError(errors.New(req.Message))
	w.WriteHeader(http.StatusNoContent)
}

// HandleRequest asks for location acquisition to start.
func (h *DeviceHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	h.tracker.Request(r.Context())
	w.WriteHeader(http.StatusAccepted)
}
