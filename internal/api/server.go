package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Retcom59/heritage-app/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, sess *SessionHandler, routeH *RouteHandler, roamH *RoamingHandler, devH *DeviceHandler, stats *StatsHandler, events *EventsHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 1b. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Session Endpoints
	mux.HandleFunc("GET /api/state", sess.HandleState)
	mux.HandleFunc("GET /api/camera", sess.HandleCamera)
	mux.HandleFunc("POST /api/filters", sess.HandleFilters)
	mux.HandleFunc("POST /api/map/bounds", sess.HandleBounds)
	mux.HandleFunc("POST /api/map/click", sess.HandleMapClick)
	mux.HandleFunc("GET /api/sites/{id}", sess.HandleSite)
	mux.HandleFunc("POST /api/sites/{id}/select", sess.HandleSelect)
	mux.HandleFunc("POST /api/selection/clear", sess.HandleClearSelection)
	mux.HandleFunc("GET /api/nearby", sess.HandleNearby)

	// 3. Route Endpoints
	mux.HandleFunc("POST /api/route", routeH.HandleRequest)
	mux.HandleFunc("DELETE /api/route", routeH.HandleClear)
	mux.HandleFunc("POST /api/route/mode", routeH.HandleMode)

	// 4. Roaming Endpoints
	mux.HandleFunc("POST /api/roaming/activate", roamH.HandleActivate)
	mux.HandleFunc("POST /api/roaming/deactivate", roamH.HandleDeactivate)
	mux.HandleFunc("POST /api/roaming/mode", roamH.HandleMode)
	mux.HandleFunc("POST /api/roaming/refresh", roamH.HandleRefresh)

	// 5. Device Signal Endpoints
	mux.HandleFunc("POST /api/device/position", devH.HandlePosition)
	mux.HandleFunc("POST /api/device/orientation", devH.HandleOrientation)
	mux.HandleFunc("POST /api/device/error", devH.HandleError)
	mux.HandleFunc("POST /api/location/request", devH.HandleRequest)

	// 6. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 7. Event Stream (WebSocket)
	mux.HandleFunc("GET /api/events", events.HandleEvents)

	// 8. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
