package mvt

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// Projection maps tile-local coordinates to output coordinates.
type Projection func(Coordinate) orb.Point

// TileLocal keeps coordinates in tile units.
func TileLocal(c Coordinate) orb.Point {
	return orb.Point{float64(c.X), float64(c.Y)}
}

// WGS84 returns a projection from tile units of extent to longitude/latitude
// for the XYZ tile t.
func WGS84(t maptile.Tile, extent uint32) Projection {
	if extent == 0 {
		extent = DefaultExtent
	}
	n := math.Exp2(float64(t.Z))
	ext := float64(extent)
	return func(c Coordinate) orb.Point {
		x := (float64(t.X) + float64(c.X)/ext) / n
		y := (float64(t.Y) + float64(c.Y)/ext) / n
		lon := x*360 - 180
		lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
		return orb.Point{lon, lat}
	}
}

// Geometry builds an orb geometry from the feature's paths. Unknown geometry
// types and empty paths return nil.
func (f *AssembledFeature) Geometry(project Projection) orb.Geometry {
	if project == nil {
		project = TileLocal
	}
	switch f.Type {
	case Point:
		var mp orb.MultiPoint
		for _, p := range f.Paths {
			for _, c := range p {
				mp = append(mp, project(c))
			}
		}
		switch len(mp) {
		case 0:
			return nil
		case 1:
			return mp[0]
		}
		return mp
	case LineString:
		var mls orb.MultiLineString
		for _, p := range f.Paths {
			mls = append(mls, lineString(p, project))
		}
		switch len(mls) {
		case 0:
			return nil
		case 1:
			return mls[0]
		}
		return mls
	case Polygon:
		mp := polygons(f.Paths, project)
		switch len(mp) {
		case 0:
			return nil
		case 1:
			return mp[0]
		}
		return mp
	}
	return nil
}

// LayerProperty GeoJSON 图层名属性
const LayerProperty = "@layer"

// GeoJSON returns the feature as a GeoJSON feature, or nil if it has no
// geometry. The layer name is stored in the LayerProperty property unless
// the feature carries an attribute of that name.
func (f *AssembledFeature) GeoJSON(layer string, project Projection) *geojson.Feature {
	g := f.Geometry(project)
	if g == nil {
		return nil
	}
	gf := geojson.NewFeature(g)
	if f.HasID {
		gf.ID = f.ID
	}
	for _, kv := range f.Attributes {
		gf.Properties[kv.Key] = kv.Value.JSONValue()
	}
	if _, ok := gf.Properties[LayerProperty]; !ok {
		gf.Properties[LayerProperty] = layer
	}
	return gf
}

func lineString(p []Coordinate, project Projection) orb.LineString {
	ls := make(orb.LineString, 0, len(p))
	for _, c := range p {
		ls = append(ls, project(c))
	}
	return ls
}

// polygons groups rings into polygons. A ring whose winding matches the
// first ring starts a new polygon; the others are its holes. Winding is
// taken in tile units so projections that flip the y axis do not matter.
func polygons(paths [][]Coordinate, project Projection) orb.MultiPolygon {
	var (
		mp       orb.MultiPolygon
		exterior float64
	)
	for _, p := range paths {
		area := signedArea(p)
		if area == 0 {
			continue
		}
		ring := orb.Ring(lineString(p, project))
		if len(mp) == 0 || (area > 0) == (exterior > 0) {
			if len(mp) == 0 {
				exterior = area
			}
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		mp[len(mp)-1] = append(mp[len(mp)-1], ring)
	}
	return mp
}

func signedArea(p []Coordinate) float64 {
	var sum int64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return float64(sum) / 2
}
