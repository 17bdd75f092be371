package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Routing RoutingConfig `yaml:"routing"`
	Map     MapConfig     `yaml:"map"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogSettings holds path and level for a single log stream.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path     string   `yaml:"path"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// CatalogConfig holds settings for the heritage site catalog service.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url"`
	Limit   int    `yaml:"limit"`
}

// RoutingConfig holds per-mode OSRM endpoint settings.
type RoutingConfig struct {
	CarURL  string `yaml:"car_url"`
	BikeURL string `yaml:"bike_url"`
	FootURL string `yaml:"foot_url"`
}

// MapConfig holds the initial map viewport.
type MapConfig struct {
	CenterLat     float64 `yaml:"center_lat"`
	CenterLon     float64 `yaml:"center_lon"`
	Zoom          int     `yaml:"zoom"`
	LocateMaxZoom int     `yaml:"locate_max_zoom"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:     "./data/heritage.db",
			CacheTTL: Duration(Week),
		},
		Server: ServerConfig{
			Address: "localhost:1925",
		},
		Catalog: CatalogConfig{
			BaseURL: "http://localhost:8000/api/sites",
			Limit:   2000,
		},
		Routing: RoutingConfig{
			CarURL:  "https://routing.openstreetmap.de/routed-car/route/v1/driving",
			BikeURL: "https://routing.openstreetmap.de/routed-bike/route/v1/driving",
			FootURL: "https://routing.openstreetmap.de/routed-foot/route/v1/driving",
		},
		Map: MapConfig{
			CenterLat:     41.0082,
			CenterLon:     28.9784,
			Zoom:          12,
			LocateMaxZoom: 16,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read existing file if it exists
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Env fallbacks for values not pinned in the file
		if v := os.Getenv("HERITAGE_CATALOG_URL"); v != "" {
			cfg.Catalog.BaseURL = v
		}
		if v := os.Getenv("HERITAGE_SERVER_ADDRESS"); v != "" {
			cfg.Server.Address = v
		}

		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Heritage Explorer Configuration
# -------------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write default config
	return Save(path, DefaultConfig())
}

// ModeURL returns the routing endpoint for a travel mode string
// ("car", "bike", "walk"). Unknown modes fall back to car.
func (r RoutingConfig) ModeURL(mode string) string {
	switch mode {
	case "walk":
		return r.FootURL
	case "bike":
		return r.BikeURL
	default:
		return r.CarURL
	}
}
