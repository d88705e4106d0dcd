package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb/maptile"

	"mvtdump/mvt"
)

func testDecodedTile() *DecodedTile {
	return &DecodedTile{
		T: maptile.New(1, 2, 3),
		Layers: []*mvt.DecodedLayer{{
			Name:    "poi",
			Version: 2,
			Extent:  4096,
			Features: []*mvt.AssembledFeature{
				{
					ID:    1,
					HasID: true,
					Type:  mvt.Point,
					Attributes: mvt.Attributes{
						{Key: "name", Value: mvt.StringValue("cafe")},
						{Key: "rank", Value: mvt.IntValue(3)},
						{Key: "note", Value: mvt.Value{}},
					},
					Coordinates: []mvt.Coordinate{{X: 25, Y: 17}},
					Paths:       [][]mvt.Coordinate{{{X: 25, Y: 17}}},
				},
				{
					Type:        mvt.LineString,
					Attributes:  mvt.Attributes{},
					Coordinates: []mvt.Coordinate{{X: 2, Y: 2}, {X: 3, Y: 3}},
					Paths:       [][]mvt.Coordinate{{{X: 2, Y: 2}, {X: 3, Y: 3}}},
				},
			},
		}},
	}
}

func render(t *testing.T, format string, opts RenderOptions) string {
	t.Helper()
	r, err := NewRenderer(format, opts)
	if err != nil {
		t.Fatalf("NewRenderer(%s): %v", format, err)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, testDecodedTile()); err != nil {
		t.Fatalf("Render(%s): %v", format, err)
	}
	return buf.String()
}

func TestRenderText(t *testing.T) {
	want := `=== Tile: z=3, x=1, y=2 ===
Layer: poi
Version: 2
Extent: 4096

Feature ID: 1
Type: POINT
Attributes: {"name":"cafe","rank":3,"note":null}
Geometry: [[25, 17]]

Feature ID: 0
Type: LINESTRING
Attributes: {}
Geometry: [[2, 2], [3, 3]]

` + strings.Repeat("=", 80) + "\n\n"
	if diff := cmp.Diff(want, render(t, TEXT, RenderOptions{})); diff != "" {
		t.Errorf("text (-want +got):\n%s", diff)
	}
}

func TestRenderJSON(t *testing.T) {
	out := render(t, JSON, RenderOptions{})
	if !strings.HasSuffix(out, "\n") || strings.Count(out, "\n") != 1 {
		t.Errorf("json output is not one line: %q", out)
	}
	want := `{"z":3,"x":1,"y":2,"layers":[{"name":"poi","version":2,"extent":4096,"features":[` +
		`{"id":1,"type":"POINT","attributes":{"name":"cafe","rank":3,"note":null},"geometry":[[25,17]]},` +
		`{"type":"LINESTRING","attributes":{},"geometry":[[2,2],[3,3]]}]}]}`
	if diff := cmp.Diff(want, strings.TrimSpace(out)); diff != "" {
		t.Errorf("json (-want +got):\n%s", diff)
	}
}

func TestRenderYAML(t *testing.T) {
	out := render(t, YAML, RenderOptions{})
	if !strings.HasPrefix(out, "---\n") {
		t.Errorf("yaml output has no document marker: %q", out)
	}
	var doc struct {
		Z      int
		Layers []struct {
			Name     string
			Features []struct {
				Type       string
				Attributes map[string]interface{}
				Geometry   [][]int
			}
		}
	}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v\n%s", err, out)
	}
	if doc.Z != 3 || len(doc.Layers) != 1 || doc.Layers[0].Name != "poi" {
		t.Fatalf("doc = %+v", doc)
	}
	f := doc.Layers[0].Features[0]
	if f.Type != "POINT" || f.Attributes["name"] != "cafe" {
		t.Errorf("feature = %+v", f)
	}
	if v, ok := f.Attributes["note"]; !ok || v != nil {
		t.Errorf("absent attribute rendered as %v, %v", v, ok)
	}
	if name := strings.Index(out, "name: cafe"); name < 0 || name > strings.Index(out, "rank: 3") {
		t.Errorf("attribute order lost:\n%s", out)
	}
}

func TestRenderGeoJSON(t *testing.T) {
	out := render(t, GEOJSON, RenderOptions{})
	var fc struct {
		Type     string `json:"type"`
		Tile     string `json:"tile"`
		Features []struct {
			ID       uint64                 `json:"id"`
			Geometry map[string]interface{} `json:"geometry"`
			Props    map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal([]byte(out), &fc); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if fc.Type != "FeatureCollection" || fc.Tile != "3/1/2" || len(fc.Features) != 2 {
		t.Fatalf("collection = %+v", fc)
	}
	if fc.Features[0].Geometry["type"] != "Point" || fc.Features[0].Props[mvt.LayerProperty] != "poi" {
		t.Errorf("feature 0 = %+v", fc.Features[0])
	}
	if fc.Features[1].Geometry["type"] != "LineString" {
		t.Errorf("feature 1 = %+v", fc.Features[1])
	}
}

func TestRenderGeoJSONWGS84(t *testing.T) {
	out := render(t, GEOJSON, RenderOptions{WGS84: true})
	var fc struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal([]byte(out), &fc); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	c := fc.Features[0].Geometry.Coordinates
	// tile 3/1/2 spans lon -135..-90
	if len(c) != 2 || c[0] < -135 || c[0] > -90 {
		t.Errorf("projected point = %v", c)
	}
}

func TestNewRendererUnknown(t *testing.T) {
	if _, err := NewRenderer("csv", RenderOptions{}); err == nil {
		t.Errorf("csv accepted")
	}
}
