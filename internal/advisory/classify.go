package advisory

import (
	"strings"

	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
)

// Kind is the classification of a feed item.
type Kind int

const (
	KindUnknown Kind = iota
	KindForecast
	KindWindField
	KindBestTrack
)

// Only shapefile items carry a payload we can decode.
const shapefileMarker = "[shp]"

// ordered so that the more specific phrase wins
var kindRules = []struct {
	phrase string
	kind   Kind
}{
	{"wind field", KindWindField},
	{"best track", KindBestTrack},
	{"forecast", KindForecast},
}

var kindNames = map[Kind]string{
	KindForecast:  "forecast",
	KindWindField: "wind-field",
	KindBestTrack: "best-track",
}

var kindColors = map[Kind]string{
	KindForecast:  "#ffffff",
	KindWindField: "#ff8c00",
	KindBestTrack: "#00bfff",
}

// Classify decides whether a feed item should be rendered and how.
func Classify(title string) (Kind, bool) {
	lower := strings.ToLower(title)
	if !strings.Contains(lower, shapefileMarker) {
		return KindUnknown, false
	}
	for _, r := range kindRules {
		if strings.Contains(lower, r.phrase) {
			return r.kind, true
		}
	}
	return KindUnknown, false
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Filter returns the re-injection filter for layers of this kind.
func (k Kind) Filter() Filter {
	if k == KindWindField {
		return FirstPolygonOnly
	}
	return KeepAll
}

func (k Kind) Style() mapview.Style {
	color, ok := kindColors[k]
	if !ok {
		color = "#c0c0c0"
	}
	return mapview.Style{
		Color:     color,
		FillColor: color,
		Weight:    2,
		Radius:    3,
		Pane:      "overlayPane",
	}
}
