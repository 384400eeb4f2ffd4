package advisory

import (
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
)

const OutlookLayerID = "outlook"

// Replacer swaps two layers in one step.
type Replacer interface {
	Replace(old, new *mapview.Layer)
}

var riskColors = map[string]string{
	"low":    "#ffff00",
	"medium": "#ffa500",
	"high":   "#ff0000",
}

// risk attributes of the graphical tropical weather outlook, longest horizon first
var riskProperties = []string{"RISK7DAY", "RISK2DAY"}

// Outlook owns the singleton basin outlook layer.
type Outlook struct {
	m       Replacer
	current *mapview.Layer
	issued  uint64
	applied uint64
}

func NewOutlook(m Replacer) *Outlook {
	return &Outlook{m: m}
}

// Begin reserves a sequence number for an outlook fetch about to start.
func (o *Outlook) Begin() uint64 {
	o.issued++
	return o.issued
}

// Complete replaces the outlook layer with one built from features, unless a
// later fetch has already been applied. It reports whether the map changed.
func (o *Outlook) Complete(seq uint64, features []*geojson.Feature) bool {
	if seq <= o.applied {
		return false
	}
	o.applied = seq

	for _, f := range features {
		if color, ok := riskColor(f); ok {
			f.Properties[colorProperty] = color
		}
	}
	next := mapview.NewVectorLayer(OutlookLayerID, mapview.KindVector, mapview.Style{
		Color:  "#ffffff",
		Weight: 1,
		Pane:   "overlayPane",
	}, features)

	o.m.Replace(o.current, next)
	o.current = next
	return true
}

func (o *Outlook) Current() *mapview.Layer { return o.current }

func riskColor(f *geojson.Feature) (string, bool) {
	for _, p := range riskProperties {
		v, ok := f.Properties[p].(string)
		if !ok {
			continue
		}
		if color, ok := riskColors[strings.ToLower(strings.TrimSpace(v))]; ok {
			return color, true
		}
	}
	return "", false
}
