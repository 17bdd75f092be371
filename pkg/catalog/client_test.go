package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Retcom59/heritage-app/pkg/cache"
	"github.com/Retcom59/heritage-app/pkg/config"
	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/model"
	"github.com/Retcom59/heritage-app/pkg/request"
	"github.com/Retcom59/heritage-app/pkg/tracker"
)

const listBody = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [28.9802, 41.0086]},
			"properties": {"id": "ayasofya", "name_tr": "Ayasofya", "category": "Müze"}
		},
		{
			"type": "Feature",
			"geometry": null,
			"properties": {"id": "kayip", "name_tr": "Kayıp Konum", "category": "Sit Alanı"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [28.9833, 41.0115]},
			"properties": {"name_tr": "Kimliksiz"}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	reqClient := request.New(cache.Null{}, tracker.New(), request.ClientConfig{Retries: 1})
	return New(reqClient, config.CatalogConfig{BaseURL: srv.URL + "/api/sites", Limit: 2000}), srv
}

func TestSitesParsesGeoJSON(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listBody))
	})

	sites, err := client.Sites(context.Background(), Query{Search: "aya", City: "İstanbul"})
	require.NoError(t, err)

	// The id-less feature is dropped, the geometry-less one kept
	require.Len(t, sites, 2)

	assert.Equal(t, "ayasofya", sites[0].ID)
	assert.True(t, sites[0].HasGeometry)
	assert.InDelta(t, 41.0086, sites[0].Latitude, 1e-9)
	assert.InDelta(t, 28.9802, sites[0].Longitude, 1e-9)

	assert.Equal(t, "kayip", sites[1].ID)
	assert.False(t, sites[1].HasGeometry)

	assert.Equal(t, []string{"aya"}, gotQuery["search"])
	assert.Equal(t, []string{"İstanbul"}, gotQuery["city"])
	assert.Equal(t, []string{"2000"}, gotQuery["limit"])
}

func TestSitesSendsBounds(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	})

	b := model.MapBounds{MinLat: 40.9, MinLon: 28.8, MaxLat: 41.2, MaxLon: 29.2}
	_, err := client.Sites(context.Background(), Query{Bounds: &b})
	require.NoError(t, err)

	assert.Equal(t, []string{"40.9"}, gotQuery["min_lat"])
	assert.Equal(t, []string{"29.2"}, gotQuery["max_lon"])
}

func TestSitesRadiusTrimsToCircle(t *testing.T) {
	center := geo.Point{Lat: 41.0082, Lon: 28.9784}
	near := geo.DestinationPoint(center, 300, 90)
	far := geo.DestinationPoint(center, 650, 45) // inside the box, outside the circle

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := `{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature",
				 "geometry": {"type": "Point", "coordinates": [` +
			formatCoord(near.Lon) + `, ` + formatCoord(near.Lat) + `]},
				 "properties": {"id": "near"}},
				{"type": "Feature",
				 "geometry": {"type": "Point", "coordinates": [` +
			formatCoord(far.Lon) + `, ` + formatCoord(far.Lat) + `]},
				 "properties": {"id": "far"}}
			]
		}`
		_, _ = w.Write([]byte(body))
	})

	sites, err := client.Sites(context.Background(), Query{Center: &center, RadiusMeters: 500})
	require.NoError(t, err)

	require.Len(t, sites, 1)
	assert.Equal(t, "near", sites[0].ID)
}

func TestQueryValidate(t *testing.T) {
	b := model.MapBounds{MinLat: 40, MinLon: 28, MaxLat: 42, MaxLon: 30}
	center := geo.Point{Lat: 41, Lon: 29}

	assert.NoError(t, (&Query{Bounds: &b}).Validate())
	assert.NoError(t, (&Query{Center: &center, RadiusMeters: 500}).Validate())
	assert.Error(t, (&Query{Bounds: &b, Center: &center, RadiusMeters: 500}).Validate())
	assert.Error(t, (&Query{Center: &center}).Validate())
	assert.Error(t, (&Query{Bounds: &model.MapBounds{}}).Validate())
}

func TestSiteNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.Site(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSiteDetail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sites/ayasofya", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [28.9802, 41.0086]},
			"properties": {
				"id": "ayasofya",
				"name_tr": "Ayasofya",
				"name_en": "Hagia Sophia",
				"category": "Müze",
				"city": "İstanbul",
				"is_unesco": true
			}
		}`))
	})

	site, err := client.Site(context.Background(), "ayasofya")
	require.NoError(t, err)

	assert.Equal(t, "Hagia Sophia", site.NameEN)
	assert.True(t, site.IsUNESCO)
	assert.True(t, site.HasGeometry)
}
