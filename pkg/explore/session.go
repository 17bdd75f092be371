// Package explore orchestrates the interactive exploration session:
// catalog candidate sets, selection, search and filters, directions,
// proximity, and the camera. It owns the shared UI state and pushes
// change events to subscribers.
package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Retcom59/heritage-app/pkg/camera"
	"github.com/Retcom59/heritage-app/pkg/catalog"
	"github.com/Retcom59/heritage-app/pkg/config"
	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/location"
	"github.com/Retcom59/heritage-app/pkg/model"
	"github.com/Retcom59/heritage-app/pkg/proximity"
	"github.com/Retcom59/heritage-app/pkg/roaming"
	"github.com/Retcom59/heritage-app/pkg/route"
)

// ErrNoSelection is returned when directions are requested without a
// selected destination.
var ErrNoSelection = errors.New("no site selected")

// Event is a state-change notification pushed to UI subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types.
const (
	EventSites     = "sites"
	EventSelection = "selection"
	EventPosition  = "position"
	EventRoute     = "route"
	EventCamera    = "camera"
	EventRoaming   = "roaming"
	EventNearby    = "nearby"
	// EventLocate asks connected clients to start streaming
	// geolocation and orientation signals.
	EventLocate = "locate"
)

// Filters is the query-based browsing state. Search, city and district
// combine; any non-empty field makes the filter active.
type Filters struct {
	Search   string `json:"search"`
	City     string `json:"city"`
	District string `json:"district"`
	ShowAll  bool   `json:"show_all"`
}

// Active reports whether any query constraint is set.
func (f Filters) Active() bool {
	return f.Search != "" || f.City != "" || f.District != "" || f.ShowAll
}

// Snapshot is the full session state, served on connect and by the
// state endpoint.
type Snapshot struct {
	Sites      []*model.Site       `json:"sites"`
	Generation uint64              `json:"generation"`
	Filters    Filters             `json:"filters"`
	Selected   *model.Site         `json:"selected"`
	Position   *model.UserPosition `json:"position"`
	Route      *model.Route        `json:"route"`
	Roaming    model.RoamingState  `json:"roaming"`
	Nearby     []proximity.Result  `json:"nearby"`
	Camera     camera.Command      `json:"camera"`
	Map        config.MapConfig    `json:"map"`
}

// Session is the per-process exploration state machine. A single
// instance serves all connected UI clients.
type Session struct {
	mu     sync.Mutex
	logger *slog.Logger

	catalog *catalog.Client
	routes  *route.Manager
	roam    *roaming.Controller
	loc     *location.Tracker
	prox    *proximity.Engine
	cam     *camera.Controller
	mapCfg  config.MapConfig

	sites      []*model.Site
	generation uint64
	// catalogSeq tags catalog fetches; a stale result set is dropped.
	catalogSeq uint64

	filters      Filters
	fitToResults bool
	selected     *model.Site

	firstFixDone bool

	subs []func(Event)
}

// New creates the session and wires the roaming controller's side
// effects into it.
func New(cat *catalog.Client, routes *route.Manager, loc *location.Tracker, mapCfg config.MapConfig) *Session {
	s := &Session{
		logger:  slog.With("component", "explore"),
		catalog: cat,
		routes:  routes,
		loc:     loc,
		prox:    proximity.New(),
		cam:     camera.NewController(),
		mapCfg:  mapCfg,
	}
	s.roam = roaming.NewController(routes, roaming.Hooks{
		RequestLocation: loc.Request,
		ClearBrowsing:   s.clearBrowsing,
	})
	loc.Subscribe(s.onPosition)
	return s
}

// Roaming exposes the roaming controller for transport handlers.
func (s *Session) Roaming() *roaming.Controller { return s.roam }

// Routes exposes the route manager for transport handlers.
func (s *Session) Routes() *route.Manager { return s.routes }

// Location exposes the location tracker for transport handlers.
func (s *Session) Location() *location.Tracker { return s.loc }

// Subscribe registers an event listener. Listeners must not block.
func (s *Session) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// SetFilters applies query-based browsing state and refreshes the
// candidate set. The resulting set is framed by the camera.
func (s *Session) SetFilters(ctx context.Context, f Filters) error {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()

	return s.refresh(ctx, s.buildQuery(nil), true)
}

// Filters returns the current browsing state.
func (s *Session) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// HandleBoundsChange refreshes the candidate set for a user-driven
// viewport move. Suppressed while a filter, show-all, or roaming is
// active, since those own the candidate set.
func (s *Session) HandleBoundsChange(ctx context.Context, b model.MapBounds) error {
	if !b.Valid() {
		return errors.New("degenerate bounds")
	}

	s.mu.Lock()
	skip := s.filters.Active() || s.roam.Active()
	s.mu.Unlock()
	if skip {
		s.logger.Debug("Bounds change ignored", "reason", "filters or roaming active")
		return nil
	}

	return s.refresh(ctx, s.buildQuery(&b), false)
}

// RefreshRoaming re-queries the catalog around the user for the
// current roaming radius.
func (s *Session) RefreshRoaming(ctx context.Context) error {
	pos, ok := s.loc.Position()
	if !ok {
		return route.ErrLocationNeeded
	}
	st := s.roam.State()
	if !st.Active {
		return errors.New("roaming not active")
	}

	q := catalog.Query{
		Center:       &geo.Point{Lat: pos.Lat, Lon: pos.Lon},
		RadiusMeters: st.RadiusMeters,
	}
	return s.refresh(ctx, q, false)
}

func (s *Session) buildQuery(b *model.MapBounds) catalog.Query {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := catalog.Query{
		Search:   s.filters.Search,
		City:     s.filters.City,
		District: s.filters.District,
	}
	// Show-all ignores the viewport entirely
	if !s.filters.ShowAll && b != nil {
		q.Bounds = b
	}
	return q
}

// refresh fetches a candidate set and stores it unless a newer fetch
// has been issued meanwhile.
func (s *Session) refresh(ctx context.Context, q catalog.Query, fit bool) error {
	s.mu.Lock()
	s.catalogSeq++
	seq := s.catalogSeq
	s.mu.Unlock()

	sites, err := s.catalog.Sites(ctx, q)
	if err != nil {
		return fmt.Errorf("candidate refresh failed: %w", err)
	}

	s.mu.Lock()
	if seq != s.catalogSeq {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale candidate set", "seq", seq)
		return nil
	}
	s.sites = sites
	s.generation++
	s.fitToResults = fit
	gen := s.generation
	s.mu.Unlock()

	s.logger.Info("Candidate set updated", "count", len(sites), "generation", gen)
	s.emit(Event{Type: EventSites, Payload: sites})
	s.emitCamera()
	s.emitNearby()
	return nil
}

// SelectSite selects a site by ID. Sites outside the current candidate
// set are fetched from the catalog for full detail.
func (s *Session) SelectSite(ctx context.Context, id string) (*model.Site, error) {
	s.mu.Lock()
	var found *model.Site
	for _, site := range s.sites {
		if site.ID == id {
			found = site
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		site, err := s.catalog.Site(ctx, id)
		if err != nil {
			return nil, err
		}
		found = site
	}

	s.mu.Lock()
	s.selected = found
	s.mu.Unlock()

	s.dropRoute()
	s.logger.Info("Site selected", "id", found.ID, "name", found.DisplayName())
	s.emit(Event{Type: EventSelection, Payload: found})
	s.emitCamera()
	return found, nil
}

// SiteDetail fetches full detail for a site without selecting it.
func (s *Session) SiteDetail(ctx context.Context, id string) (*model.Site, error) {
	return s.catalog.Site(ctx, id)
}

// ClearSelection drops the selected site and any custom pin.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()

	s.emit(Event{Type: EventSelection, Payload: nil})
	s.emitCamera()
}

// MapClick drops a custom pin at the clicked location and selects it.
// A previous custom pin is superseded. The click also dismisses any
// active route and search text.
func (s *Session) MapClick(lat, lon float64) *model.Site {
	pin := model.NewCustomSite(lat, lon)

	s.mu.Lock()
	s.selected = pin
	s.filters.Search = ""
	s.mu.Unlock()

	s.dropRoute()
	s.logger.Info("Custom pin placed", "lat", lat, "lon", lon)
	s.emit(Event{Type: EventSelection, Payload: pin})
	s.emitCamera()
	return pin
}

// Selected returns the currently selected site, nil if none.
func (s *Session) Selected() *model.Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Directions requests a route from the user position to the selected
// site. Without a known position it starts location acquisition and
// returns route.ErrLocationNeeded; the caller retries after a fix.
func (s *Session) Directions(ctx context.Context) (*model.Route, error) {
	s.mu.Lock()
	sel := s.selected
	s.mu.Unlock()

	if sel == nil || !sel.HasGeometry {
		return nil, ErrNoSelection
	}

	pos, ok := s.loc.Position()
	if !ok {
		s.loc.Request(ctx)
		return nil, route.ErrLocationNeeded
	}

	dest := geo.Point{Lat: sel.Latitude, Lon: sel.Longitude}
	r, err := s.routes.Request(ctx, &pos, dest)
	if err != nil {
		if route.IsSuperseded(err) {
			return nil, err
		}
		return nil, fmt.Errorf("directions failed: %w", err)
	}

	s.emit(Event{Type: EventRoute, Payload: r})
	s.emitCamera()
	return r, nil
}

// ClearRoute removes the active route overlay.
func (s *Session) ClearRoute() {
	s.routes.Clear()
	s.emit(Event{Type: EventRoute, Payload: nil})
	s.emitCamera()
}

// dropRoute silently clears a route made obsolete by a destination
// change. No-op when no route is active.
func (s *Session) dropRoute() {
	if s.routes.Active() == nil {
		return
	}
	s.routes.Clear()
	s.emit(Event{Type: EventRoute, Payload: nil})
}

// Nearby returns candidate sites within the roaming radius of the user,
// nearest first. Empty outside roaming or without a position fix.
func (s *Session) Nearby() []proximity.Result {
	st := s.roam.State()
	if !st.Active {
		return nil
	}
	pos, ok := s.loc.Position()
	if !ok {
		return nil
	}

	s.mu.Lock()
	sites := s.sites
	s.mu.Unlock()

	return s.prox.Nearby(sites, &pos, st.RadiusMeters)
}

// CameraCommand evaluates the camera priority machine against the
// current session state.
func (s *Session) CameraCommand() camera.Command {
	s.mu.Lock()
	in := camera.Inputs{
		Route:         s.routes.Active(),
		Selected:      s.selected,
		Sites:         s.sites,
		Generation:    s.generation,
		FitToResults:  s.fitToResults,
		RoamingActive: s.roam.Active(),
	}
	s.mu.Unlock()

	return s.cam.Evaluate(in)
}

// State returns the full session snapshot.
func (s *Session) State() Snapshot {
	var posPtr *model.UserPosition
	if pos, ok := s.loc.Position(); ok {
		posPtr = &pos
	}

	snap := Snapshot{
		Position: posPtr,
		Route:    s.routes.Active(),
		Roaming:  s.roam.State(),
		Nearby:   s.Nearby(),
		Map:      s.mapCfg,
	}

	s.mu.Lock()
	snap.Sites = s.sites
	snap.Generation = s.generation
	snap.Filters = s.filters
	snap.Selected = s.selected
	s.mu.Unlock()

	snap.Camera = s.CameraCommand()
	return snap
}

// clearBrowsing resets selection, search, filters and show-all. Wired
// as the roaming activation hook.
func (s *Session) clearBrowsing() {
	s.mu.Lock()
	s.filters = Filters{}
	s.selected = nil
	s.fitToResults = false
	s.mu.Unlock()

	s.emit(Event{Type: EventSelection, Payload: nil})
}

func (s *Session) emitCamera() {
	s.emit(Event{Type: EventCamera, Payload: s.CameraCommand()})
}

func (s *Session) emitNearby() {
	if nearby := s.Nearby(); nearby != nil {
		s.emit(Event{Type: EventNearby, Payload: nearby})
	}
}

// EmitLocate asks connected clients to begin streaming device signals.
func (s *Session) EmitLocate() {
	s.emit(Event{Type: EventLocate})
}

// EmitRoaming pushes the current roaming state to subscribers. Called
// by transport handlers after roaming transitions.
func (s *Session) EmitRoaming() {
	s.emit(Event{Type: EventRoaming, Payload: s.roam.State()})
}

// onPosition fans a fused position out to subscribers. The first fix
// recenters the camera on the user.
func (s *Session) onPosition(pos model.UserPosition) {
	s.emit(Event{Type: EventPosition, Payload: pos})

	s.mu.Lock()
	first := !s.firstFixDone
	s.firstFixDone = true
	s.mu.Unlock()

	if first {
		s.emit(Event{Type: EventCamera, Payload: camera.Command{
			Type:   camera.CommandFlyTo,
			Center: model.Coordinate{Lat: pos.Lat, Lon: pos.Lon},
			Zoom:   s.mapCfg.LocateMaxZoom,
		}})
	}

	s.emitNearby()
}
