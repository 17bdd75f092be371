package geo

import (
	"github.com/paulmach/orb"

	"github.com/Retcom59/heritage-app/pkg/model"
)

// Envelope returns the bounding box of the given points.
// ok is false when pts is empty, so callers can skip degenerate fits.
func Envelope(pts []Point) (bound orb.Bound, ok bool) {
	if len(pts) == 0 {
		return orb.Bound{}, false
	}

	mp := make(orb.MultiPoint, len(pts))
	for i, p := range pts {
		// orb points are (lon, lat) ordered
		mp[i] = orb.Point{p.Lon, p.Lat}
	}
	return mp.Bound(), true
}

// BoundsFromOrb converts an orb bound back to viewport bounds.
func BoundsFromOrb(b orb.Bound) model.MapBounds {
	return model.MapBounds{
		MinLat: b.Min.Lat(),
		MinLon: b.Min.Lon(),
		MaxLat: b.Max.Lat(),
		MaxLon: b.Max.Lon(),
	}
}

// SitePoints extracts the coordinates of all sites that carry geometry.
func SitePoints(sites []*model.Site) []Point {
	pts := make([]Point, 0, len(sites))
	for _, s := range sites {
		if s == nil || !s.HasGeometry {
			continue
		}
		pts = append(pts, Point{Lat: s.Latitude, Lon: s.Longitude})
	}
	return pts
}

// CoordinatePoints converts route coordinates to geo points.
func CoordinatePoints(coords []model.Coordinate) []Point {
	pts := make([]Point, len(coords))
	for i, c := range coords {
		pts[i] = Point{Lat: c.Lat, Lon: c.Lon}
	}
	return pts
}
