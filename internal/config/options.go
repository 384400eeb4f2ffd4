package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Basemap selects the static boundary file drawn under the radar.
type Basemap int

const (
	BasemapUSStates Basemap = iota
	BasemapUSCounties
	BasemapWorld
	BasemapWorld110m
)

var basemapNames = map[string]Basemap{
	"us-states":   BasemapUSStates,
	"us-counties": BasemapUSCounties,
	"world":       BasemapWorld,
	"world-110m":  BasemapWorld110m,
}

var basemapFiles = map[Basemap]string{
	BasemapUSStates:   "gz_2010_us_040_00_20m.min.json",
	BasemapUSCounties: "gz_2010_us_050_00_20m.min.json",
	BasemapWorld:      "ne_50m_admin_0_countries.min.json",
	BasemapWorld110m:  "ne_110m_admin_0_countries.min.json",
}

// ParseBasemap maps a configured name to a basemap; unknown names fall back
// to us-states.
func ParseBasemap(name string) Basemap {
	if b, ok := basemapNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return b
	}
	return BasemapUSStates
}

// File is the boundary file name for b.
func (b Basemap) File() string {
	if f, ok := basemapFiles[b]; ok {
		return f
	}
	return basemapFiles[BasemapUSStates]
}

func (b Basemap) String() string {
	for name, v := range basemapNames {
		if v == b {
			return name
		}
	}
	return "us-states"
}

// Shape is the outline of the widget.
type Shape int

const (
	ShapeSquare Shape = iota
	ShapeCircle
)

func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "square", "rectangle":
		return ShapeSquare, nil
	case "circle":
		return ShapeCircle, nil
	default:
		return ShapeSquare, fmt.Errorf("%w: unknown shape %q", ErrInvalid, s)
	}
}

func (s Shape) String() string {
	if s == ShapeCircle {
		return "circle"
	}
	return "square"
}

var cssLength = regexp.MustCompile(`^\d+(\.\d+)?(px|em|rem|%|vh|vw|vmin|vmax|pt|cm|mm|in)$`)

// ParseLength accepts a bare number (pixels) or a CSS length.
func ParseLength(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n <= 0 {
			return "", fmt.Errorf("%w: length must be positive, got %q", ErrInvalid, s)
		}
		return strconv.FormatFloat(n, 'f', -1, 64) + "px", nil
	}
	if cssLength.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("%w: invalid length %q", ErrInvalid, s)
}
