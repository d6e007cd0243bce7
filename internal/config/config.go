// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Map      Map      `yaml:"map"`
	Geocoder Geocoder `yaml:"geocoder,omitempty"`
	Parcels  Parcels  `yaml:"parcels,omitempty"`
}

// Map configures the base map and the initial camera.
type Map struct {
	StyleURL  string  `yaml:"style,omitempty"`
	CenterLon float64 `yaml:"center_lon,omitempty"`
	CenterLat float64 `yaml:"center_lat,omitempty"`
	Zoom      float64 `yaml:"zoom,omitempty"`
}

// Geocoder configures the place-search endpoint. An empty endpoint
// disables search.
type Geocoder struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	Country  string `yaml:"country,omitempty"`
	Limit    int    `yaml:"limit,omitempty"`
}

// Parcels configures the tiled parcel reference layer.
type Parcels struct {
	TileURL string `yaml:"tiles,omitempty"`
}

// Default returns the configuration used when no file is given: a camera
// over India at country zoom, no geocoder and the locally served parcel
// archive.
func Default() *Config {
	return &Config{
		Map: Map{
			StyleURL:  "https://demotiles.maplibre.org/style.json",
			CenterLon: 78.9629,
			CenterLat: 20.5937,
			Zoom:      5,
		},
		Geocoder: Geocoder{Limit: 8},
		Parcels:  Parcels{TileURL: "/tiles/parcels.pmtiles"},
	}
}

// Load reads and parses the YAML configuration file from the specified
// path, filling unset fields from Default. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Map.Zoom == 0 {
		cfg.Map.Zoom = Default().Map.Zoom
	}
	if cfg.Geocoder.Limit == 0 {
		cfg.Geocoder.Limit = Default().Geocoder.Limit
	}
	return cfg, nil
}
