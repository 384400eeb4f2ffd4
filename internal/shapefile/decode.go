// Package shapefile turns zipped ESRI shapefiles into GeoJSON features.
package shapefile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SourceProperty names the shapefile a feature came from.
const SourceProperty = "source"

var wanted = map[string]bool{
	".shp": true,
	".shx": true,
	".dbf": true,
}

// Decode emits every feature of every shapefile in the zip archive, in
// archive order. Shapes that have no GeoJSON equivalent are skipped.
func Decode(data []byte, emit func(*geojson.Feature)) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open shapefile archive: %w", err)
	}

	dir, err := os.MkdirTemp("", "radar-shp-")
	if err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var shps []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := filepath.Base(f.Name)
		ext := strings.ToLower(filepath.Ext(base))
		if !wanted[ext] {
			continue
		}
		// go-shp looks for the .dbf next to the .shp with a lowercase extension
		path := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+ext)
		if err := extract(f, path); err != nil {
			return err
		}
		if ext == ".shp" {
			shps = append(shps, path)
		}
	}
	if len(shps) == 0 {
		return fmt.Errorf("no .shp file in archive")
	}

	for _, path := range shps {
		if err := decodeFile(path, emit); err != nil {
			return err
		}
	}
	return nil
}

func extract(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

func decodeFile(path string, emit func(*geojson.Feature)) error {
	r, err := shp.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer r.Close()

	source := strings.TrimSuffix(filepath.Base(path), ".shp")
	_, dbfErr := os.Stat(strings.TrimSuffix(path, ".shp") + ".dbf")
	var fields []shp.Field
	if dbfErr == nil {
		fields = r.Fields()
	}

	for r.Next() {
		n, shape := r.Shape()
		g := geometry(shape)
		if g == nil {
			continue
		}
		f := geojson.NewFeature(g)
		f.Properties[SourceProperty] = source
		for i, field := range fields {
			f.Properties[field.String()] = strings.TrimSpace(r.ReadAttribute(n, i))
		}
		emit(f)
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return nil
}

func geometry(s shp.Shape) orb.Geometry {
	switch v := s.(type) {
	case *shp.Point:
		return orb.Point{v.X, v.Y}
	case *shp.PointZ:
		return orb.Point{v.X, v.Y}
	case *shp.PointM:
		return orb.Point{v.X, v.Y}
	case *shp.MultiPoint:
		mp := make(orb.MultiPoint, 0, len(v.Points))
		for _, p := range v.Points {
			mp = append(mp, orb.Point{p.X, p.Y})
		}
		return mp
	case *shp.PolyLine:
		return lines(v.Parts, v.Points)
	case *shp.PolyLineZ:
		return lines(v.Parts, v.Points)
	case *shp.PolyLineM:
		return lines(v.Parts, v.Points)
	case *shp.Polygon:
		return polygons(v.Parts, v.Points)
	case *shp.PolygonZ:
		return polygons(v.Parts, v.Points)
	case *shp.PolygonM:
		return polygons(v.Parts, v.Points)
	default:
		return nil
	}
}

// split cuts the flat point list into its parts.
func split(parts []int32, points []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		seg := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			seg = append(seg, orb.Point{p.X, p.Y})
		}
		out = append(out, seg)
	}
	return out
}

func lines(parts []int32, points []shp.Point) orb.Geometry {
	segs := split(parts, points)
	switch len(segs) {
	case 0:
		return nil
	case 1:
		return orb.LineString(segs[0])
	}
	mls := make(orb.MultiLineString, 0, len(segs))
	for _, s := range segs {
		mls = append(mls, orb.LineString(s))
	}
	return mls
}

// polygons groups rings: a clockwise ring starts a polygon, counter-clockwise
// rings are holes of the polygon before them.
func polygons(parts []int32, points []shp.Point) orb.Geometry {
	var mp orb.MultiPolygon
	for _, seg := range split(parts, points) {
		ring := orb.Ring(seg)
		if len(mp) == 0 || ring.Orientation() != orb.CCW {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	switch len(mp) {
	case 0:
		return nil
	case 1:
		return mp[0]
	}
	return mp
}
