package mapview

// Geometry classes used for styling and draw order.
type GeometryClass int

const (
	GeometryPolygon GeometryClass = iota
	GeometryLine
	GeometryPoint
	GeometryUnknown
)

// ClassOf maps a GeoJSON geometry type name to its class.
func ClassOf(geoJSONType string) GeometryClass {
	switch geoJSONType {
	case "Polygon", "MultiPolygon":
		return GeometryPolygon
	case "LineString", "MultiLineString":
		return GeometryLine
	case "Point", "MultiPoint":
		return GeometryPoint
	default:
		return GeometryUnknown
	}
}

var geometryColors = map[GeometryClass]string{
	GeometryPolygon: "#ffffff",
	GeometryLine:    "#000000",
	GeometryPoint:   "#ff0000",
}

const defaultGeometryColor = "#c0c0c0"

// ColorFor returns the stroke colour for a geometry class.
func ColorFor(c GeometryClass) string {
	if color, ok := geometryColors[c]; ok {
		return color
	}
	return defaultGeometryColor
}
