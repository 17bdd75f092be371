package explore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Retcom59/heritage-app/pkg/cache"
	"github.com/Retcom59/heritage-app/pkg/camera"
	"github.com/Retcom59/heritage-app/pkg/catalog"
	"github.com/Retcom59/heritage-app/pkg/config"
	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/location"
	"github.com/Retcom59/heritage-app/pkg/model"
	"github.com/Retcom59/heritage-app/pkg/request"
	"github.com/Retcom59/heritage-app/pkg/route"
	"github.com/Retcom59/heritage-app/pkg/tracker"
)

const catalogBody = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [28.9802, 41.0086]},
			"properties": {"id": "ayasofya", "name_tr": "Ayasofya", "category": "Müze"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [28.9833, 41.0115]},
			"properties": {"id": "topkapi", "name_tr": "Topkapı Sarayı", "category": "Müze"}
		}
	]
}`

type stubPlanner struct {
	calls atomic.Int64
}

func (p *stubPlanner) Plan(_ context.Context, origin, dest geo.Point, _ model.TravelMode) (*route.Path, error) {
	p.calls.Add(1)
	return &route.Path{
		Coordinates:     [][2]float64{{origin.Lon, origin.Lat}, {dest.Lon, dest.Lat}},
		DistanceMeters:  900,
		DurationSeconds: 180,
	}, nil
}

type noopSource struct{}

func (noopSource) Watch(ctx context.Context) error { return nil }

type fixture struct {
	session  *Session
	planner  *stubPlanner
	loc      *location.Tracker
	requests *atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(catalogBody))
	}))
	t.Cleanup(srv.Close)

	reqClient := request.New(cache.Null{}, tracker.New(), request.ClientConfig{Retries: 1})
	cat := catalog.New(reqClient, config.CatalogConfig{BaseURL: srv.URL + "/api/sites", Limit: 2000})

	planner := &stubPlanner{}
	routes := route.NewManager(planner)
	loc := location.NewTracker(noopSource{})
	session := New(cat, routes, loc, config.MapConfig{LocateMaxZoom: 16})

	return &fixture{session: session, planner: planner, loc: loc, requests: &requests}
}

func bounds() model.MapBounds {
	return model.MapBounds{MinLat: 40.9, MinLon: 28.8, MaxLat: 41.2, MaxLon: 29.2}
}

func TestFiltersRefreshAndFit(t *testing.T) {
	f := newFixture(t)

	var cameraEvents []camera.Command
	f.session.Subscribe(func(ev Event) {
		if ev.Type == EventCamera {
			if cmd, ok := ev.Payload.(camera.Command); ok {
				cameraEvents = append(cameraEvents, cmd)
			}
		}
	})

	err := f.session.SetFilters(context.Background(), Filters{Search: "saray"})
	require.NoError(t, err)

	snap := f.session.State()
	assert.Len(t, snap.Sites, 2)
	assert.Equal(t, "saray", snap.Filters.Search)

	// A fresh filtered set is framed once, then stays quiet
	require.NotEmpty(t, cameraEvents)
	assert.Equal(t, camera.CommandFitBounds, cameraEvents[0].Type)
	assert.Equal(t, camera.CommandNone, f.session.CameraCommand().Type)
}

func TestBoundsChangeRefreshes(t *testing.T) {
	f := newFixture(t)

	err := f.session.HandleBoundsChange(context.Background(), bounds())
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.requests.Load())
	assert.Len(t, f.session.State().Sites, 2)

	// A viewport-driven set must not trigger a camera fit
	assert.Equal(t, camera.CommandNone, f.session.CameraCommand().Type)
}

func TestBoundsChangeSuppressedByFilters(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.SetFilters(context.Background(), Filters{City: "İstanbul"}))
	before := f.requests.Load()

	require.NoError(t, f.session.HandleBoundsChange(context.Background(), bounds()))
	assert.Equal(t, before, f.requests.Load(), "bounds change must be ignored while filters are active")
}

func TestBoundsChangeSuppressedByRoaming(t *testing.T) {
	f := newFixture(t)

	f.session.Roaming().Activate(context.Background())
	before := f.requests.Load()

	require.NoError(t, f.session.HandleBoundsChange(context.Background(), bounds()))
	assert.Equal(t, before, f.requests.Load())
}

func TestSelectSiteFromCandidates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.HandleBoundsChange(context.Background(), bounds()))

	site, err := f.session.SelectSite(context.Background(), "topkapi")
	require.NoError(t, err)

	assert.Equal(t, "Topkapı Sarayı", site.NameTR)
	assert.Same(t, site, f.session.Selected())

	cmd := f.session.CameraCommand()
	assert.Equal(t, camera.CommandFlyTo, cmd.Type)
	assert.Equal(t, 15, cmd.Zoom)
}

func TestMapClickPlacesCustomPin(t *testing.T) {
	f := newFixture(t)

	pin := f.session.MapClick(41.02, 28.95)

	require.True(t, pin.IsCustom())
	assert.Same(t, pin, f.session.Selected())

	cmd := f.session.CameraCommand()
	assert.Equal(t, camera.CommandFlyTo, cmd.Type)
	assert.Equal(t, 16, cmd.Zoom)

	// A second click supersedes the first pin
	second := f.session.MapClick(41.03, 28.96)
	assert.Same(t, second, f.session.Selected())
	assert.NotEqual(t, pin.ID, second.ID)
}

func TestDirectionsNeedsSelection(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Directions(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestDirectionsNeedsLocationThenSucceeds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.HandleBoundsChange(context.Background(), bounds()))
	_, err := f.session.SelectSite(context.Background(), "ayasofya")
	require.NoError(t, err)

	// No fix yet: acquisition starts, no planner contact
	_, err = f.session.Directions(context.Background())
	assert.ErrorIs(t, err, route.ErrLocationNeeded)
	assert.Equal(t, uint64(1), f.loc.Requests())
	assert.Equal(t, int64(0), f.planner.calls.Load())

	// A fix arrives; retry succeeds
	f.loc.OnPosition(location.PositionFix{Lat: 41.0, Lon: 28.97})
	r, err := f.session.Directions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 900.0, r.DistanceMeters)
	assert.Same(t, r, f.session.Routes().Active())

	// Route now owns the camera
	assert.Equal(t, camera.CommandFitBounds, f.session.CameraCommand().Type)
}

func TestDestinationChangeDropsRoute(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.HandleBoundsChange(context.Background(), bounds()))
	_, err := f.session.SelectSite(context.Background(), "ayasofya")
	require.NoError(t, err)

	f.loc.OnPosition(location.PositionFix{Lat: 41.0, Lon: 28.97})
	_, err = f.session.Directions(context.Background())
	require.NoError(t, err)
	require.NotNil(t, f.session.Routes().Active())

	// Picking another destination makes the overlay stale
	_, err = f.session.SelectSite(context.Background(), "topkapi")
	require.NoError(t, err)
	assert.Nil(t, f.session.Routes().Active())
}

func TestMapClickDropsRouteAndSearch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.SetFilters(context.Background(), Filters{Search: "saray", City: "İstanbul"}))
	_, err := f.session.SelectSite(context.Background(), "ayasofya")
	require.NoError(t, err)

	f.loc.OnPosition(location.PositionFix{Lat: 41.0, Lon: 28.97})
	_, err = f.session.Directions(context.Background())
	require.NoError(t, err)

	f.session.MapClick(41.02, 28.95)

	assert.Nil(t, f.session.Routes().Active())
	assert.Empty(t, f.session.Filters().Search, "search text dismissed")
	assert.Equal(t, "İstanbul", f.session.Filters().City, "city filter kept")
}

func TestStaleCandidateSetDiscarded(t *testing.T) {
	const staleBody = `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [28.9600, 41.0300]},
				"properties": {"id": "yerebatan", "name_tr": "Yerebatan Sarnıcı", "category": "Müze"}
			}
		]
	}`

	gate := make(chan struct{})
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-gate
			_, _ = w.Write([]byte(staleBody))
			return
		}
		_, _ = w.Write([]byte(catalogBody))
	}))
	t.Cleanup(srv.Close)

	reqClient := request.New(cache.Null{}, tracker.New(), request.ClientConfig{Retries: 1})
	cat := catalog.New(reqClient, config.CatalogConfig{BaseURL: srv.URL + "/api/sites", Limit: 2000})
	session := New(cat, route.NewManager(&stubPlanner{}), location.NewTracker(noopSource{}), config.MapConfig{})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- session.HandleBoundsChange(context.Background(), bounds())
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, time.Millisecond, "first fetch must be in flight")

	// A newer fetch is issued while the first is still held
	secondDone := make(chan error, 1)
	go func() {
		secondDone <- session.HandleBoundsChange(context.Background(), bounds())
	}()
	require.Eventually(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.catalogSeq == 2
	}, time.Second, time.Millisecond, "newer fetch must be tagged")

	close(gate)
	require.NoError(t, <-firstDone, "stale result is dropped silently")
	require.NoError(t, <-secondDone)

	snap := session.State()
	require.Len(t, snap.Sites, 2, "stale single-site set must not overwrite the newer one")
	assert.Equal(t, uint64(1), snap.Generation, "only the newer set bumps the generation")
}

func TestRoamingActivationClearsBrowsing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.SetFilters(context.Background(), Filters{Search: "cami", ShowAll: true}))
	f.session.MapClick(41.02, 28.95)

	f.session.Roaming().Activate(context.Background())

	assert.Equal(t, Filters{}, f.session.Filters())
	assert.Nil(t, f.session.Selected())
	assert.Equal(t, uint64(1), f.loc.Requests(), "activation must request location")
}

func TestNearbyOnlyWhileRoaming(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.HandleBoundsChange(context.Background(), bounds()))
	f.loc.OnPosition(location.PositionFix{Lat: 41.0086, Lon: 28.9802})

	assert.Nil(t, f.session.Nearby(), "no nearby list outside roaming")

	f.session.Roaming().Activate(context.Background())
	results := f.session.Nearby()

	require.NotEmpty(t, results)
	assert.Equal(t, "ayasofya", results[0].Site.ID, "nearest site first")
}

func TestFirstFixEmitsLocateCamera(t *testing.T) {
	f := newFixture(t)

	var events []Event
	f.session.Subscribe(func(ev Event) { events = append(events, ev) })

	f.loc.OnPosition(location.PositionFix{Lat: 41.0, Lon: 28.97})
	f.loc.OnPosition(location.PositionFix{Lat: 41.001, Lon: 28.971})

	var flyTos int
	for _, ev := range events {
		if ev.Type != EventCamera {
			continue
		}
		if cmd, ok := ev.Payload.(camera.Command); ok && cmd.Type == camera.CommandFlyTo && cmd.Zoom == 16 {
			flyTos++
		}
	}
	assert.Equal(t, 1, flyTos, "only the first fix recenters the camera")
}

func TestEventsEmittedOnSelection(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.HandleBoundsChange(context.Background(), bounds()))

	var types []string
	f.session.Subscribe(func(ev Event) { types = append(types, ev.Type) })

	_, err := f.session.SelectSite(context.Background(), "ayasofya")
	require.NoError(t, err)

	assert.Contains(t, types, EventSelection)
	assert.Contains(t, types, EventCamera)
}
