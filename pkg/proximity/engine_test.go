package proximity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/model"
)

func siteAt(id string, lat, lon float64) *model.Site {
	return &model.Site{ID: id, NameTR: id, Latitude: lat, Longitude: lon, HasGeometry: true}
}

// siteAtDistance places a site the given distance north of origin.
func siteAtDistance(id string, origin geo.Point, meters float64) *model.Site {
	p := geo.DestinationPoint(origin, meters, 0)
	return siteAt(id, p.Lat, p.Lon)
}

func TestNearbyRadiusFilter(t *testing.T) {
	origin := geo.Point{Lat: 41.0082, Lon: 28.9784}
	pos := &model.UserPosition{Lat: origin.Lat, Lon: origin.Lon}

	sites := []*model.Site{
		siteAtDistance("near", origin, 100),
		siteAtDistance("outside", origin, 600),
		siteAtDistance("far", origin, 1200),
	}

	results := New().Nearby(sites, pos, 500)

	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Site.ID)
	assert.InDelta(t, 100, results[0].DistanceMeters, 5)
}

func TestNearbyOrdering(t *testing.T) {
	origin := geo.Point{Lat: 41.0082, Lon: 28.9784}
	pos := &model.UserPosition{Lat: origin.Lat, Lon: origin.Lon}

	// Deliberately unsorted input
	sites := []*model.Site{
		siteAtDistance("c", origin, 900),
		siteAtDistance("a", origin, 150),
		siteAtDistance("b", origin, 400),
	}

	results := New().Nearby(sites, pos, 2000)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Site.ID)
	assert.Equal(t, "b", results[1].Site.ID)
	assert.Equal(t, "c", results[2].Site.ID)
}

func TestNearbyBearing(t *testing.T) {
	origin := geo.Point{Lat: 41.0082, Lon: 28.9784}

	east := geo.DestinationPoint(origin, 200, 90)
	sites := []*model.Site{
		siteAtDistance("north", origin, 200),
		siteAt("east", east.Lat, east.Lon),
	}

	// No heading: absolute bearing only
	pos := &model.UserPosition{Lat: origin.Lat, Lon: origin.Lon}
	results := New().Nearby(sites, pos, 500)
	require.Len(t, results, 2)
	assert.InDelta(t, 0, results[0].BearingDeg, 1)
	assert.InDelta(t, 90, results[1].BearingDeg, 1)
	assert.Nil(t, results[0].RelativeDeg)

	// Facing east: north is 90 degrees to the left
	heading := 90.0
	pos.Heading = &heading
	results = New().Nearby(sites, pos, 500)
	require.Len(t, results, 2)
	require.NotNil(t, results[0].RelativeDeg)
	assert.InDelta(t, -90, *results[0].RelativeDeg, 1)
	require.NotNil(t, results[1].RelativeDeg)
	assert.InDelta(t, 0, *results[1].RelativeDeg, 1)
}

func TestNearbyNoPosition(t *testing.T) {
	sites := []*model.Site{siteAt("x", 41, 29)}

	assert.Nil(t, New().Nearby(sites, nil, 500))
	assert.Nil(t, New().Nearby(nil, &model.UserPosition{Lat: 41, Lon: 29}, 500))
}

func TestNearbySkipsMissingGeometry(t *testing.T) {
	origin := geo.Point{Lat: 41.0082, Lon: 28.9784}
	pos := &model.UserPosition{Lat: origin.Lat, Lon: origin.Lon}

	noGeom := &model.Site{ID: "nogeom", NameTR: "nogeom"}
	sites := []*model.Site{noGeom, siteAtDistance("ok", origin, 50)}

	results := New().Nearby(sites, pos, 500)

	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Site.ID)
}

func TestNearbyBoundaryInclusive(t *testing.T) {
	origin := geo.Point{Lat: 41.0082, Lon: 28.9784}
	pos := &model.UserPosition{Lat: origin.Lat, Lon: origin.Lon}

	sites := []*model.Site{siteAtDistance("edge", origin, 499)}

	results := New().Nearby(sites, pos, 500)
	require.Len(t, results, 1)
}

// Above the index threshold the H3 prefilter kicks in; its results must
// match the plain scan.
func TestNearbyPrefilterEquivalence(t *testing.T) {
	origin := geo.Point{Lat: 41.0082, Lon: 28.9784}
	pos := &model.UserPosition{Lat: origin.Lat, Lon: origin.Lon}

	var sites []*model.Site
	for i := 0; i < 400; i++ {
		bearing := float64(i%360)
		dist := float64(i) * 40 // 0m .. 16km
		p := geo.DestinationPoint(origin, dist, bearing)
		sites = append(sites, siteAt(fmt.Sprintf("s%d", i), p.Lat, p.Lon))
	}
	require.GreaterOrEqual(t, len(sites), indexThreshold)

	engine := New()
	fast := engine.Nearby(sites, pos, 5000)

	// Plain scan on a slice below the threshold, chunk by chunk
	var slow []Result
	for i := 0; i < len(sites); i += indexThreshold - 1 {
		end := i + indexThreshold - 1
		if end > len(sites) {
			end = len(sites)
		}
		slow = append(slow, engine.Nearby(sites[i:end], pos, 5000)...)
	}

	require.Equal(t, len(slow), len(fast))
	seen := make(map[string]bool, len(fast))
	for _, r := range fast {
		seen[r.Site.ID] = true
	}
	for _, r := range slow {
		assert.True(t, seen[r.Site.ID], "site %s missing from prefiltered result", r.Site.ID)
	}
}
