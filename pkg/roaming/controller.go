// Package roaming toggles the live-proximity interaction mode and owns
// its radius/mode parameters.
package roaming

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Retcom59/heritage-app/pkg/model"
	"github.com/Retcom59/heritage-app/pkg/route"
)

// Hooks are the side effects roaming transitions trigger in the rest of
// the session. Roaming and query-based browsing are mutually exclusive,
// so activation must clear the browsing state.
type Hooks struct {
	// RequestLocation starts or re-triggers location acquisition.
	RequestLocation func(ctx context.Context)
	// ClearBrowsing drops selection, search text, filters and the
	// show-all toggle.
	ClearBrowsing func()
}

// Controller owns the RoamingState; subscribers read it through State()
// and never mutate it.
type Controller struct {
	mu     sync.RWMutex
	state  model.RoamingState
	routes *route.Manager
	hooks  Hooks
	logger *slog.Logger
}

// NewController creates a roaming controller wired to the route manager
// for mode-change invalidation.
func NewController(routes *route.Manager, hooks Hooks) *Controller {
	return &Controller{
		routes: routes,
		hooks:  hooks,
		logger: slog.With("component", "roaming"),
		state: model.RoamingState{
			Active:       false,
			RadiusMeters: model.WalkRadiusMeters,
			Mode:         model.ModeWalk,
		},
	}
}

// State returns a copy of the current roaming parameters.
func (c *Controller) State() model.RoamingState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Active reports whether roaming mode is on.
func (c *Controller) Active() bool {
	return c.State().Active
}

// Activate enters roaming mode: parameters reset to the walk defaults
// on every activation, location tracking is (re-)requested, and any
// route/selection/search/filter state is cleared.
func (c *Controller) Activate(ctx context.Context) {
	c.mu.Lock()
	c.state = model.RoamingState{
		Active:       true,
		RadiusMeters: model.WalkRadiusMeters,
		Mode:         model.ModeWalk,
	}
	c.mu.Unlock()

	c.logger.Info("Roaming activated", "radius_m", model.WalkRadiusMeters, "mode", model.ModeWalk)

	c.routes.Clear()
	c.routes.SetMode(model.ModeWalk)
	if c.hooks.ClearBrowsing != nil {
		c.hooks.ClearBrowsing()
	}
	if c.hooks.RequestLocation != nil {
		c.hooks.RequestLocation(ctx)
	}
}

// Deactivate leaves roaming mode and resets the travel mode to car,
// the default for on-demand directions outside roaming.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	c.state.Active = false
	c.mu.Unlock()

	c.logger.Info("Roaming deactivated")
	c.routes.SetMode(model.ModeCar)
}

// SetMode updates radius and mode atomically. The route manager clears
// any displayed route when the mode actually changes.
func (c *Controller) SetMode(radiusMeters float64, mode model.TravelMode) {
	if !mode.Valid() {
		return
	}
	c.mu.Lock()
	c.state.RadiusMeters = radiusMeters
	c.state.Mode = mode
	c.mu.Unlock()

	c.logger.Debug("Roaming mode changed", "radius_m", radiusMeters, "mode", mode)
	c.routes.SetMode(mode)
}
