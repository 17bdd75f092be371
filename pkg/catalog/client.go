// Package catalog fetches cultural-heritage sites from the remote
// catalog service, which speaks GeoJSON.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Retcom59/heritage-app/pkg/config"
	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/model"
	"github.com/Retcom59/heritage-app/pkg/request"
)

// ErrNotFound is returned when the catalog has no site for an ID.
var ErrNotFound = errors.New("catalog: site not found")

// Query describes a catalog site listing. Bounds and Center/RadiusMeters
// are mutually exclusive viewport constraints.
type Query struct {
	Search   string
	City     string
	District string
	Category string

	Bounds *model.MapBounds

	Center       *geo.Point
	RadiusMeters float64

	Limit int
}

// Validate rejects queries that combine incompatible constraints.
func (q *Query) Validate() error {
	if q.Bounds != nil && q.Center != nil {
		return errors.New("catalog: bounds and radius constraints are mutually exclusive")
	}
	if q.Center != nil && q.RadiusMeters <= 0 {
		return errors.New("catalog: radius query needs a positive radius")
	}
	if q.Bounds != nil && !q.Bounds.Valid() {
		return errors.New("catalog: degenerate bounds")
	}
	return nil
}

// Client talks to the catalog service.
type Client struct {
	http    *request.Client
	baseURL string
	limit   int
	logger  *slog.Logger
}

// New creates a catalog client.
func New(httpClient *request.Client, cfg config.CatalogConfig) *Client {
	return &Client{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		limit:   cfg.Limit,
		logger:  slog.With("component", "catalog"),
	}
}

// Sites lists catalog sites matching the query. Records without point
// geometry come back with HasGeometry false; callers decide whether to
// keep them.
func (c *Client) Sites(ctx context.Context, q Query) ([]*model.Site, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.City != "" {
		params.Set("city", q.City)
	}
	if q.District != "" {
		params.Set("district", q.District)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}

	bounds := q.Bounds
	if q.Center != nil {
		// The service only understands bounding boxes. A radius query
		// becomes the enclosing box, trimmed by distance afterwards.
		b := radiusBounds(*q.Center, q.RadiusMeters)
		bounds = &b
	}
	if bounds != nil {
		params.Set("min_lon", formatCoord(bounds.MinLon))
		params.Set("min_lat", formatCoord(bounds.MinLat))
		params.Set("max_lon", formatCoord(bounds.MaxLon))
		params.Set("max_lat", formatCoord(bounds.MaxLat))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = c.limit
	}
	params.Set("limit", strconv.Itoa(limit))

	u := c.baseURL + "?" + params.Encode()
	body, err := c.http.Get(ctx, u, "")
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}

	sites := make([]*model.Site, 0, len(fc.Features))
	for _, f := range fc.Features {
		site, err := siteFromFeature(f)
		if err != nil {
			c.logger.Warn("Skipping malformed catalog feature", "error", err)
			continue
		}
		sites = append(sites, site)
	}

	if q.Center != nil {
		sites = trimToRadius(sites, *q.Center, q.RadiusMeters)
	}

	c.logger.Debug("Catalog query complete", "count", len(sites))
	return sites, nil
}

// Site fetches a single site by ID with full detail fields.
func (c *Client) Site(ctx context.Context, id string) (*model.Site, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	u := c.baseURL + "/" + url.PathEscape(id)
	body, err := c.http.Get(ctx, u, "catalog:site:"+id)
	if err != nil {
		if request.IsStatus(err, 404) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog site request failed: %w", err)
	}

	f, err := geojson.UnmarshalFeature(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog site: %w", err)
	}
	return siteFromFeature(f)
}

// siteFromFeature maps a GeoJSON feature onto a Site. Properties travel
// as a flat JSON object, so a marshal round-trip does the field mapping.
func siteFromFeature(f *geojson.Feature) (*model.Site, error) {
	raw, err := json.Marshal(f.Properties)
	if err != nil {
		return nil, fmt.Errorf("invalid feature properties: %w", err)
	}

	var site model.Site
	if err := json.Unmarshal(raw, &site); err != nil {
		return nil, fmt.Errorf("invalid feature properties: %w", err)
	}
	if site.ID == "" {
		return nil, errors.New("feature missing id")
	}

	if pt, ok := f.Geometry.(orb.Point); ok {
		site.Longitude = pt.Lon()
		site.Latitude = pt.Lat()
		site.HasGeometry = true
	}
	return &site, nil
}

func radiusBounds(center geo.Point, radiusMeters float64) model.MapBounds {
	north := geo.DestinationPoint(center, radiusMeters, 0)
	east := geo.DestinationPoint(center, radiusMeters, 90)
	south := geo.DestinationPoint(center, radiusMeters, 180)
	west := geo.DestinationPoint(center, radiusMeters, 270)
	return model.MapBounds{
		MinLat: south.Lat,
		MinLon: west.Lon,
		MaxLat: north.Lat,
		MaxLon: east.Lon,
	}
}

func trimToRadius(sites []*model.Site, center geo.Point, radiusMeters float64) []*model.Site {
	kept := sites[:0]
	for _, s := range sites {
		if !s.HasGeometry {
			continue
		}
		d := geo.Distance(center, geo.Point{Lat: s.Latitude, Lon: s.Longitude})
		if d <= radiusMeters {
			kept = append(kept, s)
		}
	}
	return kept
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
