// Package config resolves the dashboard options from flags, the config file
// and RADAR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultTimestampsURL = "https://tilecache.rainviewer.com/api/maps.json"
	DefaultFeedURL       = "https://www.nhc.noaa.gov/gis-at.xml"
	DefaultOutlookURL    = "https://www.nhc.noaa.gov/xgtwo/gtwo_shapefiles.zip"

	minUpdateInterval = 30 * time.Second
)

// Marker is a fixed point drawn on top of all other layers.
type Marker struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Color     string  `mapstructure:"color"`
	Radius    float64 `mapstructure:"radius"`
	Label     string  `mapstructure:"label"`
}

type Config struct {
	Longitude      float64
	Latitude       float64
	Zoom           int
	Scheme         int
	Width          string
	Height         string
	UpdateInterval time.Duration
	MaxFrames      int
	Shape          Shape
	Basemap        Basemap
	Markers        []Marker

	Advisories bool
	Outlook    bool

	Listen        string
	BasemapDir    string
	TimestampsURL string
	FeedURL       string
	OutlookURL    string
	FetchTimeout  time.Duration
	FetchRetries  int

	LogLevel  string
	LogFormat string
	LogFile   string
}

// BasemapPath is the boundary file to load, or "" when no directory is set.
func (c *Config) BasemapPath() string {
	if c.BasemapDir == "" {
		return ""
	}
	return filepath.Join(c.BasemapDir, c.Basemap.File())
}

// RegisterFlags declares every option on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Float64("longitude", -81.0912, "initial map centre longitude")
	fs.Float64("latitude", 32.0809, "initial map centre latitude")
	fs.Int("zoom", 6, "initial zoom level")
	fs.Int("scheme", 2, "radar tile colour scheme")
	fs.String("width", "300", "widget width (pixels or CSS length)")
	fs.String("height", "300", "widget height (pixels or CSS length)")
	fs.Duration("update-interval", 10*time.Minute, "how often the feeds are fetched again")
	fs.Int("max-frames", 10, "number of radar frames kept in the loop")
	fs.String("shape", "square", "widget outline (square, circle)")
	fs.String("basemap", "us-states", "boundary map (us-states, us-counties, world, world-110m)")
	fs.String("basemap-dir", "", "directory containing the boundary GeoJSON files")
	fs.Bool("advisories", true, "show NHC advisory shapefiles")
	fs.Bool("outlook", false, "show the NHC tropical weather outlook")
	fs.String("listen", "localhost:8080", "HTTP listen address")
	fs.String("timestamps-url", DefaultTimestampsURL, "radar timestamp list URL")
	fs.String("feed-url", DefaultFeedURL, "advisory RSS feed URL")
	fs.String("outlook-url", DefaultOutlookURL, "tropical weather outlook shapefile URL")
	fs.Duration("fetch-timeout", 30*time.Second, "timeout for a single upstream request")
	fs.Int("fetch-retries", 2, "retries for a failed upstream request")
	fs.String("log-level", "info", "controls the log level (debug, info, warn, error)")
	fs.String("log-format", "console", "controls the log output format (console, json)")
	fs.String("log-file", "", "also write logs to this file (rotated)")
}

// Load reads and validates the options known to v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Longitude:      v.GetFloat64("longitude"),
		Latitude:       v.GetFloat64("latitude"),
		Zoom:           v.GetInt("zoom"),
		Scheme:         v.GetInt("scheme"),
		UpdateInterval: v.GetDuration("update-interval"),
		MaxFrames:      v.GetInt("max-frames"),
		Basemap:        ParseBasemap(v.GetString("basemap")),
		Advisories:     v.GetBool("advisories"),
		Outlook:        v.GetBool("outlook"),
		Listen:         v.GetString("listen"),
		BasemapDir:     v.GetString("basemap-dir"),
		TimestampsURL:  v.GetString("timestamps-url"),
		FeedURL:        v.GetString("feed-url"),
		OutlookURL:     v.GetString("outlook-url"),
		FetchTimeout:   v.GetDuration("fetch-timeout"),
		FetchRetries:   v.GetInt("fetch-retries"),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
		LogFile:        v.GetString("log-file"),
	}

	var err error
	if cfg.Width, err = ParseLength(v.GetString("width")); err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	if cfg.Height, err = ParseLength(v.GetString("height")); err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}
	if cfg.Shape, err = ParseShape(v.GetString("shape")); err != nil {
		return nil, err
	}
	if cfg.Markers, err = LoadMarkers(v); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadMarkers decodes the markers list; it is reloaded when the config file changes.
func LoadMarkers(v *viper.Viper) ([]Marker, error) {
	var markers []Marker
	if err := v.UnmarshalKey("markers", &markers); err != nil {
		return nil, fmt.Errorf("%w: markers: %v", ErrInvalid, err)
	}
	for i := range markers {
		if markers[i].Color == "" {
			markers[i].Color = "#ff0000"
		}
		if markers[i].Radius <= 0 {
			markers[i].Radius = 5
		}
	}
	return markers, nil
}

func (c *Config) validate() error {
	switch {
	case c.MaxFrames < 1:
		return fmt.Errorf("%w: max-frames must be at least 1, got %d", ErrInvalid, c.MaxFrames)
	case c.Latitude < -90 || c.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalid, c.Latitude)
	case c.Longitude < -180 || c.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalid, c.Longitude)
	case c.Zoom < 0 || c.Zoom > 20:
		return fmt.Errorf("%w: zoom %d out of range", ErrInvalid, c.Zoom)
	case c.TimestampsURL == "":
		return fmt.Errorf("%w: timestamps-url is empty", ErrInvalid)
	case c.Advisories && c.FeedURL == "":
		return fmt.Errorf("%w: feed-url is empty", ErrInvalid)
	case c.Outlook && c.OutlookURL == "":
		return fmt.Errorf("%w: outlook-url is empty", ErrInvalid)
	}
	// Enforce minimum interval
	if c.UpdateInterval < minUpdateInterval {
		c.UpdateInterval = minUpdateInterval
	}
	return nil
}
