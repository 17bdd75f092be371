// Package osrm implements route planning against OSRM-compatible
// routing services, one endpoint per travel profile.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Retcom59/heritage-app/pkg/config"
	"github.com/Retcom59/heritage-app/pkg/geo"
	"github.com/Retcom59/heritage-app/pkg/model"
	"github.com/Retcom59/heritage-app/pkg/request"
	"github.com/Retcom59/heritage-app/pkg/route"
	"github.com/Retcom59/heritage-app/pkg/tracker"
)

// Client plans routes via OSRM. It implements route.Planner.
type Client struct {
	http    *request.Client
	cfg     config.RoutingConfig
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// New creates an OSRM client.
func New(httpClient *request.Client, cfg config.RoutingConfig, t *tracker.Tracker) *Client {
	return &Client{
		http:    httpClient,
		cfg:     cfg,
		tracker: t,
		logger:  slog.With("component", "osrm"),
	}
}

// osrmResponse is the subset of the OSRM route response we consume.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Plan requests a route for the given travel mode. OSRM takes and
// returns coordinates (lon, lat) ordered.
func (c *Client) Plan(ctx context.Context, origin, dest geo.Point, mode model.TravelMode) (*route.Path, error) {
	endpoint := c.cfg.ModeURL(string(mode))
	u := fmt.Sprintf("%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		endpoint, origin.Lon, origin.Lat, dest.Lon, dest.Lat)

	body, err := c.http.Get(ctx, u, "")
	if err != nil {
		return nil, fmt.Errorf("routing request failed: %w", err)
	}

	var resp osrmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse routing response: %w", err)
	}

	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		c.tracker.TrackAPIEmpty("routing")
		c.logger.Debug("Routing returned no path", "code", resp.Code, "mode", mode)
		return nil, route.ErrNoRoute
	}

	r := resp.Routes[0]
	return &route.Path{
		Coordinates:     r.Geometry.Coordinates,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
	}, nil
}
