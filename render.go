package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"

	"mvtdump/mvt"
)

// Output formats
const (
	TEXT    = "text"
	JSON    = "json"
	YAML    = "yaml"
	GEOJSON = "geojson"
)

// DecodedTile 解码后的瓦片
type DecodedTile struct {
	T      maptile.Tile
	Layers []*mvt.DecodedLayer
}

// Renderer writes decoded tiles in one output format.
type Renderer interface {
	// Ext is the file extension used for per-tile output.
	Ext() string
	Render(w io.Writer, dt *DecodedTile) error
}

// RenderOptions 输出选项
type RenderOptions struct {
	Color bool // colored text headers
	WGS84 bool // project geojson coordinates to lon/lat
}

// NewRenderer 根据格式创建输出器
func NewRenderer(format string, opts RenderOptions) (Renderer, error) {
	switch strings.ToLower(format) {
	case TEXT, "":
		header := color.New(color.FgCyan, color.Bold)
		if opts.Color {
			header.EnableColor()
		} else {
			header.DisableColor()
		}
		return &textRenderer{header: header}, nil
	case JSON:
		return jsonRenderer{}, nil
	case YAML:
		return yamlRenderer{}, nil
	case GEOJSON:
		return geojsonRenderer{wgs84: opts.WGS84}, nil
	}
	return nil, errors.Errorf("unknown output format %q", format)
}

type textRenderer struct {
	header *color.Color
}

func (r *textRenderer) Ext() string { return "txt" }

func (r *textRenderer) Render(w io.Writer, dt *DecodedTile) error {
	bw := bufio.NewWriter(w)
	r.header.Fprintf(bw, "=== Tile: z=%d, x=%d, y=%d ===", dt.T.Z, dt.T.X, dt.T.Y)
	bw.WriteString("\n")
	for _, l := range dt.Layers {
		fmt.Fprintf(bw, "Layer: %s\nVersion: %d\nExtent: %d\n", l.Name, l.Version, l.Extent)
		for _, f := range l.Features {
			attrs, err := json.Marshal(f.Attributes)
			if err != nil {
				return errors.Wrapf(err, "layer %s feature %d attributes", l.Name, f.ID)
			}
			fmt.Fprintf(bw, "\nFeature ID: %d\nType: %s\nAttributes: %s\nGeometry: %s\n",
				f.ID, f.Type, attrs, formatCoordinates(f.Coordinates))
		}
		bw.WriteString("\n")
	}
	bw.WriteString(strings.Repeat("=", 80))
	bw.WriteString("\n\n")
	return bw.Flush()
}

// formatCoordinates renders [[x, y], [x, y]].
func formatCoordinates(cs []mvt.Coordinate) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range cs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('[')
		sb.WriteString(strconv.FormatInt(c.X, 10))
		sb.WriteString(", ")
		sb.WriteString(strconv.FormatInt(c.Y, 10))
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}

type jsonTile struct {
	Z      uint32      `json:"z"`
	X      uint32      `json:"x"`
	Y      uint32      `json:"y"`
	Layers []jsonLayer `json:"layers"`
}

type jsonLayer struct {
	Name     string        `json:"name"`
	Version  uint32        `json:"version"`
	Extent   uint32        `json:"extent"`
	Features []jsonFeature `json:"features"`
}

type jsonFeature struct {
	ID         *uint64        `json:"id,omitempty"`
	Type       string         `json:"type"`
	Attributes mvt.Attributes `json:"attributes"`
	Geometry   [][2]int64     `json:"geometry"`
}

func newJSONTile(dt *DecodedTile) jsonTile {
	jt := jsonTile{Z: uint32(dt.T.Z), X: dt.T.X, Y: dt.T.Y, Layers: make([]jsonLayer, 0, len(dt.Layers))}
	for _, l := range dt.Layers {
		jl := jsonLayer{Name: l.Name, Version: l.Version, Extent: l.Extent, Features: make([]jsonFeature, 0, len(l.Features))}
		for _, f := range l.Features {
			jf := jsonFeature{Type: f.Type.String(), Attributes: f.Attributes, Geometry: make([][2]int64, 0, len(f.Coordinates))}
			if f.HasID {
				id := f.ID
				jf.ID = &id
			}
			for _, c := range f.Coordinates {
				jf.Geometry = append(jf.Geometry, [2]int64{c.X, c.Y})
			}
			jl.Features = append(jl.Features, jf)
		}
		jt.Layers = append(jt.Layers, jl)
	}
	return jt
}

// jsonRenderer writes one JSON document per line.
type jsonRenderer struct{}

func (jsonRenderer) Ext() string { return "json" }

func (jsonRenderer) Render(w io.Writer, dt *DecodedTile) error {
	return errors.Wrap(json.NewEncoder(w).Encode(newJSONTile(dt)), "encode json")
}

// yamlRenderer writes one YAML document per tile with attributes in order.
type yamlRenderer struct{}

func (yamlRenderer) Ext() string { return "yaml" }

func (yamlRenderer) Render(w io.Writer, dt *DecodedTile) error {
	jt := newJSONTile(dt)
	layers := make([]yaml.MapSlice, 0, len(jt.Layers))
	for _, l := range jt.Layers {
		features := make([]yaml.MapSlice, 0, len(l.Features))
		for _, f := range l.Features {
			attrs := make(yaml.MapSlice, 0, len(f.Attributes))
			for _, kv := range f.Attributes {
				attrs = append(attrs, yaml.MapItem{Key: kv.Key, Value: kv.Value.Interface()})
			}
			geom := make([][]int64, 0, len(f.Geometry))
			for _, c := range f.Geometry {
				geom = append(geom, []int64{c[0], c[1]})
			}
			item := yaml.MapSlice{}
			if f.ID != nil {
				item = append(item, yaml.MapItem{Key: "id", Value: *f.ID})
			}
			item = append(item,
				yaml.MapItem{Key: "type", Value: f.Type},
				yaml.MapItem{Key: "attributes", Value: attrs},
				yaml.MapItem{Key: "geometry", Value: geom},
			)
			features = append(features, item)
		}
		layers = append(layers, yaml.MapSlice{
			{Key: "name", Value: l.Name},
			{Key: "version", Value: l.Version},
			{Key: "extent", Value: l.Extent},
			{Key: "features", Value: features},
		})
	}
	doc := yaml.MapSlice{
		{Key: "z", Value: jt.Z},
		{Key: "x", Value: jt.X},
		{Key: "y", Value: jt.Y},
		{Key: "layers", Value: layers},
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// geojsonRenderer writes one FeatureCollection per tile.
type geojsonRenderer struct {
	wgs84 bool
}

func (geojsonRenderer) Ext() string { return "geojson" }

func (r geojsonRenderer) Render(w io.Writer, dt *DecodedTile) error {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{"tile": fmt.Sprintf("%d/%d/%d", dt.T.Z, dt.T.X, dt.T.Y)}
	for _, l := range dt.Layers {
		var project mvt.Projection
		if r.wgs84 {
			project = mvt.WGS84(dt.T, l.Extent)
		}
		for _, f := range l.Features {
			if gf := f.GeoJSON(l.Name, project); gf != nil {
				fc.Append(gf)
			}
		}
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return errors.Wrap(err, "encode geojson")
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
