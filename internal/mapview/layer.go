package mapview

import (
	"math"
	"sync/atomic"

	"github.com/paulmach/orb/geojson"
)

// Kind identifies how the page renders a layer
type Kind string

const (
	KindTile    Kind = "tile"
	KindVector  Kind = "vector"
	KindGeoJSON Kind = "geojson"
	KindMarkers Kind = "markers"
)

// Style carries the Leaflet path options for vector layers
type Style struct {
	Color     string  `json:"color,omitempty"`
	FillColor string  `json:"fillColor,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
	Radius    float64 `json:"radius,omitempty"`
	Pane      string  `json:"pane,omitempty"`
}

// revisions numbers every layer ever built, so observers can tell two layers
// with the same ID apart.
var revisions atomic.Uint64

// Layer is a visual handle owned by exactly one subsystem. Its opacity may be
// changed while attached; everything else is fixed at construction.
type Layer struct {
	ID       string
	Revision uint64
	Kind     Kind
	URL      string
	TileSize int
	ZIndex   int64
	Style    Style
	Features *geojson.FeatureCollection

	opacity atomic.Uint64
}

// NewTileLayer creates a hidden tile layer
func NewTileLayer(id, url string, zIndex int64) *Layer {
	return &Layer{
		ID:       id,
		Revision: revisions.Add(1),
		Kind:     KindTile,
		URL:      url,
		TileSize: 256,
		ZIndex:   zIndex,
	}
}

// NewVectorLayer creates a fully opaque layer drawing the given features in order.
func NewVectorLayer(id string, kind Kind, style Style, features []*geojson.Feature) *Layer {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	l := &Layer{
		ID:       id,
		Revision: revisions.Add(1),
		Kind:     kind,
		Style:    style,
		Features: fc,
	}
	l.SetOpacity(1)
	return l
}

func (l *Layer) Opacity() float64 {
	return math.Float64frombits(l.opacity.Load())
}

func (l *Layer) SetOpacity(o float64) {
	l.opacity.Store(math.Float64bits(o))
}
