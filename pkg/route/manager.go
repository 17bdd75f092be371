// Package route owns the active travel overlay and its lifecycle:
// request, mode-change invalidation, and replacement.
package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/model"
)

// ErrLocationNeeded is returned when a route is requested without a
// known user position. Callers surface it distinctly from a routing
// failure and re-trigger location acquisition.
var ErrLocationNeeded = errors.New("user location needed for route")

// ErrNoRoute is returned by planners when no path exists for the mode.
var ErrNoRoute = errors.New("no route found")

// errSuperseded marks a response that lost the last-request-wins race.
var errSuperseded = errors.New("route request superseded")

// Path is the raw planner output. Coordinates are (lon, lat) ordered as
// delivered by the routing service.
type Path struct {
	Coordinates     [][2]float64
	DistanceMeters  float64
	DurationSeconds float64
}

// Planner computes a path between two points for a travel mode. Each
// mode maps to a distinct routing profile.
type Planner interface {
	Plan(ctx context.Context, origin, dest geo.Point, mode model.TravelMode) (*Path, error)
}

// Manager holds the at-most-one active route. All access goes through
// the manager; routes are replaced, never mutated.
type Manager struct {
	mu      sync.RWMutex
	planner Planner
	logger  *slog.Logger

	mode   model.TravelMode
	active *model.Route
	// seq tags requests so a stale response can never overwrite a
	// newer one.
	seq uint64
}

// NewManager creates a route manager. The initial travel mode is car,
// the default for on-demand directions outside roaming.
func NewManager(p Planner) *Manager {
	return &Manager{
		planner: p,
		logger:  slog.With("component", "route"),
		mode:    model.ModeCar,
	}
}

// Mode returns the current travel mode.
func (m *Manager) Mode() model.TravelMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// SetMode switches the travel mode. If a route is displayed it is
// cleared immediately so a stale overlay is never shown under a
// mismatched mode label; recomputation is left to the user.
func (m *Manager) SetMode(mode model.TravelMode) {
	if !mode.Valid() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode == m.mode {
		return
	}
	m.mode = mode
	if m.active != nil {
		m.logger.Info("Travel mode changed, clearing route", "mode", mode)
		m.active = nil
	}
}

// Active returns the current route, or nil. The returned route is
// immutable.
func (m *Manager) Active() *model.Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Clear drops the active route (new selection, new map click).
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.logger.Debug("Route cleared")
		m.active = nil
	}
}

// Request computes and stores a route from the user position to dest
// in the current travel mode.
//
// A nil origin returns ErrLocationNeeded without contacting the
// planner. A planner failure leaves any previously displayed route in
// place: clearing on failure would silently remove a valid overlay.
// Only the most recently requested result is ever stored.
func (m *Manager) Request(ctx context.Context, origin *model.UserPosition, dest geo.Point) (*model.Route, error) {
	if origin == nil {
		return nil, ErrLocationNeeded
	}

	m.mu.Lock()
	m.seq++
	tag := m.seq
	mode := m.mode
	m.mu.Unlock()

	path, err := m.planner.Plan(ctx, geo.Point{Lat: origin.Lat, Lon: origin.Lon}, dest, mode)
	if err != nil {
		// Prior route (if any) is retained.
		m.logger.Warn("Route request failed", "mode", mode, "error", err)
		return nil, fmt.Errorf("route request (%s): %w", mode, err)
	}

	coords := make([]model.Coordinate, len(path.Coordinates))
	for i, c := range path.Coordinates {
		// Planner order is (lon, lat); everything downstream is (lat, lon).
		coords[i] = model.Coordinate{Lat: c[1], Lon: c[0]}
	}

	r := &model.Route{
		Coordinates:     coords,
		DistanceMeters:  path.DistanceMeters,
		DurationSeconds: path.DurationSeconds,
		Mode:            mode,
		RequestedAt:     time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tag != m.seq || mode != m.mode {
		// A newer request or a mode change won; discard this response.
		m.logger.Debug("Discarding superseded route response", "tag", tag, "seq", m.seq)
		return nil, errSuperseded
	}
	m.active = r
	m.logger.Info("Route stored",
		"mode", mode,
		"points", len(coords),
		"distance_m", r.DistanceMeters,
		"duration_s", r.DurationSeconds)
	return r, nil
}

// IsSuperseded reports whether err marks a response that lost the
// last-request-wins race; such errors need no user-visible signal.
func IsSuperseded(err error) bool {
	return errors.Is(err, errSuperseded)
}
