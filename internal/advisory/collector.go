package advisory

import (
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
)

// Filter is applied while re-injecting buffered features.
type Filter int

const (
	KeepAll Filter = iota
	FirstPolygonOnly
)

// colorProperty is read by the page when styling individual features.
const colorProperty = "color"

// Collector buffers features while a payload is decoded so they can be drawn
// polygons first, then lines, then points.
type Collector struct {
	buf []*geojson.Feature
}

func (c *Collector) Add(f *geojson.Feature) {
	if f == nil || f.Geometry == nil {
		return
	}
	c.buf = append(c.buf, f)
}

func (c *Collector) Len() int { return len(c.buf) }

// Flush sorts the buffer by draw weight, applies filter and emits the
// survivors in order. The buffer is empty afterwards.
func (c *Collector) Flush(filter Filter, emit func(*geojson.Feature)) {
	sort.SliceStable(c.buf, func(i, j int) bool {
		return weight(c.buf[i]) < weight(c.buf[j])
	})

	polygons := 0
	for _, f := range c.buf {
		if mapview.ClassOf(f.Geometry.GeoJSONType()) == mapview.GeometryPolygon {
			polygons++
			if filter == FirstPolygonOnly && polygons > 1 {
				continue
			}
		}
		emit(f)
	}
	c.buf = nil
}

func weight(f *geojson.Feature) int {
	return int(mapview.ClassOf(f.Geometry.GeoJSONType()))
}

// Assemble runs decode through a Collector and returns the features in
// render order, each carrying its stroke colour.
func Assemble(filter Filter, decode func(emit func(*geojson.Feature)) error) ([]*geojson.Feature, error) {
	var c Collector
	if err := decode(c.Add); err != nil {
		return nil, err
	}
	out := make([]*geojson.Feature, 0, c.Len())
	c.Flush(filter, func(f *geojson.Feature) {
		if _, ok := f.Properties[colorProperty]; !ok {
			if f.Properties == nil {
				f.Properties = geojson.Properties{}
			}
			f.Properties[colorProperty] = mapview.ColorFor(mapview.ClassOf(f.Geometry.GeoJSONType()))
		}
		out = append(out, f)
	})
	return out, nil
}
