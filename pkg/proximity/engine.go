// Package proximity ranks catalog sites by great-circle distance to the
// live user position, filtered to a roaming radius.
package proximity

import (
	"log/slog"
	"sort"

	"github.com/uber/h3-go/v4"

	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/model"
)

// Above this candidate count the engine pre-filters with an H3 cell
// disk before computing exact distances. Catalog pages are usually far
// smaller, so the linear scan is the common path.
const indexThreshold = 256

// H3 resolution 7 cells have an edge length of roughly 1.2 km, a good
// granularity for roaming radii of 0.5-10 km.
const cellResolution = 7

const cellEdgeKm = 1.2

// Result pairs a site with its distance and direction from the user.
type Result struct {
	Site           *model.Site `json:"site"`
	DistanceMeters float64     `json:"distance_meters"`
	// BearingDeg is the initial bearing from the user to the site,
	// [0, 360) clockwise from north.
	BearingDeg float64 `json:"bearing_deg"`
	// RelativeDeg is BearingDeg relative to the user's heading,
	// normalized to [-180, 180]. Nil while no heading is known.
	RelativeDeg *float64 `json:"relative_deg,omitempty"`
}

// Engine computes radius-filtered, distance-ordered candidate lists.
// It is stateless; results are recomputed whenever the candidate set,
// user position or radius changes.
type Engine struct {
	logger *slog.Logger
}

// New creates a proximity engine.
func New() *Engine {
	return &Engine{logger: slog.With("component", "proximity")}
}

// Nearby returns the sites within radiusMeters of pos, ascending by
// distance with ties kept in input order. It returns nil when pos is
// unknown or there are no candidates.
func (e *Engine) Nearby(sites []*model.Site, pos *model.UserPosition, radiusMeters float64) []Result {
	if pos == nil || len(sites) == 0 {
		return nil
	}

	origin := geo.Point{Lat: pos.Lat, Lon: pos.Lon}

	candidates := sites
	if len(sites) >= indexThreshold {
		if pre, ok := e.prefilter(sites, origin, radiusMeters); ok {
			candidates = pre
		}
	}

	results := make([]Result, 0, len(candidates))
	for _, s := range candidates {
		if s == nil || !s.HasGeometry {
			continue
		}
		target := geo.Point{Lat: s.Latitude, Lon: s.Longitude}
		// Internal math is km; the filter contract is meters.
		distKm := geo.DistanceKm(origin, target)
		distM := distKm * 1000.0
		if distM > radiusMeters {
			continue
		}
		res := Result{
			Site:           s,
			DistanceMeters: distM,
			BearingDeg:     geo.Bearing(origin, target),
		}
		if pos.Heading != nil {
			rel := geo.NormalizeAngle(res.BearingDeg - *pos.Heading)
			res.RelativeDeg = &rel
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})
	return results
}

// prefilter narrows the candidate list to sites whose H3 cell lies in
// the disk covering the search radius. Input order is preserved. Any H3
// failure falls back to the full scan.
func (e *Engine) prefilter(sites []*model.Site, origin geo.Point, radiusMeters float64) ([]*model.Site, bool) {
	center, err := h3.LatLngToCell(h3.NewLatLng(origin.Lat, origin.Lon), cellResolution)
	if err != nil {
		e.logger.Warn("H3 prefilter unavailable", "error", err)
		return nil, false
	}

	rings := int(radiusMeters/1000.0/cellEdgeKm) + 2
	disk, err := h3.GridDisk(center, rings)
	if err != nil {
		e.logger.Warn("H3 disk lookup failed", "error", err)
		return nil, false
	}

	allowed := make(map[h3.Cell]struct{}, len(disk))
	for _, c := range disk {
		allowed[c] = struct{}{}
	}

	filtered := make([]*model.Site, 0, len(sites)/4)
	for _, s := range sites {
		if s == nil || !s.HasGeometry {
			continue
		}
		cell, err := h3.LatLngToCell(h3.NewLatLng(s.Latitude, s.Longitude), cellResolution)
		if err != nil {
			// Keep the site; the exact distance check decides.
			filtered = append(filtered, s)
			continue
		}
		if _, ok := allowed[cell]; ok {
			filtered = append(filtered, s)
		}
	}
	return filtered, true
}
