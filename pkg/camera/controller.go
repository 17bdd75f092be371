// Package camera decides where the map viewport should point as route,
// selection and result-set state change.
package camera

import (
	"log/slog"
	"sync"

	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/model"
)

// CommandType identifies the camera instruction.
type CommandType string

const (
	// CommandNone leaves the last user-driven viewport untouched.
	CommandNone CommandType = "none"
	// CommandFitBounds fits the viewport to Bounds with padding.
	CommandFitBounds CommandType = "fit_bounds"
	// CommandFlyTo animates the camera to Center at Zoom.
	CommandFlyTo CommandType = "fly_to"
)

// Fixed fit padding and zoom policy, matching the map frontend.
const (
	fitPaddingPx     = 50
	selectZoom       = 15
	customPinZoom    = 16
	resultFitMaxZoom = 15
)

// Command is the single authoritative viewport instruction.
type Command struct {
	Type      CommandType      `json:"type"`
	Bounds    model.MapBounds  `json:"bounds,omitempty"`
	PaddingPx int              `json:"padding_px,omitempty"`
	MaxZoom   int              `json:"max_zoom,omitempty"`
	Center    model.Coordinate `json:"center,omitempty"`
	Zoom      int              `json:"zoom,omitempty"`
}

// Inputs is the state snapshot the controller evaluates. The controller
// reads these signals but never owns or mutates them.
type Inputs struct {
	Route    *model.Route
	Selected *model.Site
	Sites    []*model.Site
	// Generation identifies the candidate set; it changes whenever a
	// new result set is stored.
	Generation uint64
	// FitToResults is set when a filter was applied and the viewport
	// should frame the result set.
	FitToResults bool
	// RoamingActive suppresses result-set auto-fit entirely.
	RoamingActive bool
}

// Controller is the priority state machine: route > selection >
// fit-to-results > leave alone. Re-evaluated on every relevant state
// transition; idempotent for unchanged inputs; never errors.
type Controller struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Last result set actually fitted, compared by value to suppress
	// redundant re-fits of an unchanged set.
	lastFitGeneration uint64
	lastFitCount      int
	fitted            bool
}

// NewController creates a camera controller.
func NewController() *Controller {
	return &Controller{logger: slog.With("component", "camera")}
}

// Evaluate returns the camera instruction for the given state.
func (c *Controller) Evaluate(in Inputs) Command {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 1. An active route wins; selection and result-set signals are
	// ignored while it is displayed.
	if in.Route != nil && len(in.Route.Coordinates) > 0 {
		bound, ok := geo.Envelope(geo.CoordinatePoints(in.Route.Coordinates))
		if !ok || bound.IsEmpty() {
			return Command{Type: CommandNone}
		}
		return Command{
			Type:      CommandFitBounds,
			Bounds:    geo.BoundsFromOrb(bound),
			PaddingPx: fitPaddingPx,
		}
	}

	// 2. Fly to the selected site.
	if in.Selected != nil && in.Selected.HasGeometry {
		zoom := selectZoom
		if in.Selected.IsCustom() {
			zoom = customPinZoom
		}
		return Command{
			Type:   CommandFlyTo,
			Center: model.Coordinate{Lat: in.Selected.Latitude, Lon: in.Selected.Longitude},
			Zoom:   zoom,
		}
	}

	// 3. Frame the result set after a filter, unless roaming owns the
	// camera policy or the set is the one already framed.
	if in.FitToResults && !in.RoamingActive {
		count := sitesWithGeometry(in.Sites)
		sameSet := c.fitted && in.Generation == c.lastFitGeneration
		if count > 0 && !sameSet && count != c.lastFitCount {
			bound, ok := geo.Envelope(geo.SitePoints(in.Sites))
			if ok && !bound.IsEmpty() {
				c.lastFitGeneration = in.Generation
				c.lastFitCount = count
				c.fitted = true
				c.logger.Debug("Fitting viewport to results", "count", count, "generation", in.Generation)
				return Command{
					Type:      CommandFitBounds,
					Bounds:    geo.BoundsFromOrb(bound),
					PaddingPx: fitPaddingPx,
					MaxZoom:   resultFitMaxZoom,
				}
			}
		}
		// Remember the observed cardinality even when no fit happens,
		// so re-renders of the same set stay quiet.
		c.lastFitCount = count
	}

	return Command{Type: CommandNone}
}

func sitesWithGeometry(sites []*model.Site) int {
	n := 0
	for _, s := range sites {
		if s != nil && s.HasGeometry {
			n++
		}
	}
	return n
}
