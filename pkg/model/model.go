package model

import (
	"time"

	"github.com/google/uuid"
)

// CategoryCustom marks the synthetic site created from a map click.
// It exists only until superseded or deselected and is never persisted.
const CategoryCustom = "Custom"

// Site represents a cultural-heritage site from the remote catalog.
// Instances are immutable once received; only synthetic Custom sites
// are constructed locally.
type Site struct {
	ID           string `json:"id"`
	ExternalCode string `json:"external_code,omitempty"`

	NameTR string `json:"name_tr"`
	NameEN string `json:"name_en,omitempty"`

	Category    string `json:"category"`
	SubCategory string `json:"sub_category,omitempty"`

	// Administrative hierarchy
	City          string `json:"city,omitempty"`
	District      string `json:"district,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	Address       string `json:"address,omitempty"`

	// Descriptive fields
	SummaryTR        string `json:"summary_tr,omitempty"`
	SummaryEN        string `json:"summary_en,omitempty"`
	OpeningHours     string `json:"opening_hours,omitempty"`
	TicketRequired   bool   `json:"ticket_required,omitempty"`
	Website          string `json:"website,omitempty"`
	MainImageURL     string `json:"main_image_url,omitempty"`
	IsUNESCO         bool   `json:"is_unesco,omitempty"`
	ProtectionStatus string `json:"protection_status,omitempty"`
	SourceName       string `json:"source_name,omitempty"`
	SourceURL        string `json:"source_url,omitempty"`

	// WGS84 degrees
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// HasGeometry is false when the catalog record carried no point
	// geometry. Such sites are never rendered or distance-computed.
	HasGeometry bool `json:"has_geometry"`
}

// DisplayName returns the best available name for the site.
// Priority: NameTR > NameEN > ID
func (s *Site) DisplayName() string {
	if s.NameTR != "" {
		return s.NameTR
	}
	if s.NameEN != "" {
		return s.NameEN
	}
	return s.ID
}

// IsCustom reports whether the site is a synthetic map-click pin.
func (s *Site) IsCustom() bool {
	return s.Category == CategoryCustom
}

// NewCustomSite constructs the synthetic site for a user map click.
// All optional fields stay empty.
func NewCustomSite(lat, lon float64) *Site {
	return &Site{
		ID:          "custom-" + uuid.NewString(),
		NameTR:      "Seçilen Konum",
		NameEN:      "Selected Location",
		Category:    CategoryCustom,
		SubCategory: "User Pin",
		Latitude:    lat,
		Longitude:   lon,
		HasGeometry: true,
	}
}

// MapBounds is the rectangular viewport extent, used to request a new
// candidate set from the catalog.
type MapBounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Valid reports whether the bounds span a non-degenerate area.
func (b MapBounds) Valid() bool {
	return b.MinLat < b.MaxLat && b.MinLon < b.MaxLon
}

// UserPosition is the fused live position + heading signal.
// Heading is nil until an orientation signal arrives; once established
// it is refined but never reset to nil.
type UserPosition struct {
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Heading *float64 `json:"heading"`
}

// Route is the active travel overlay. Owned by the route manager,
// replaced (never mutated) on recompute.
type Route struct {
	// Coordinates are (lat, lon) ordered, like all geometry in this
	// system. Routing collaborators deliver (lon, lat) and must be
	// swapped before a Route is built.
	Coordinates     []Coordinate `json:"coordinates"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	Mode            TravelMode   `json:"mode"`
	RequestedAt     time.Time    `json:"requested_at"`
}

// Coordinate is a (lat, lon) pair in WGS84 degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RoamingState holds the roaming interaction mode parameters.
type RoamingState struct {
	Active       bool       `json:"active"`
	RadiusMeters float64    `json:"radius_meters"`
	Mode         TravelMode `json:"mode"`
}
