package main

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb/maptile"
)

func TestTilePath(t *testing.T) {
	tile := maptile.New(12, 34, 6)
	tests := []struct {
		tmpl string
		want string
	}{
		{"", filepath.Join("out", "6", "12", "34.json")},
		{"{z}-{x}-{y}.{ext}", filepath.Join("out", "6-12-34.json")},
		{"tiles/{z}/{y}/{x}.{ext}", filepath.Join("out", "tiles", "6", "34", "12.json")},
	}
	for _, tt := range tests {
		if got := TilePath("out", tt.tmpl, tile, "json"); got != tt.want {
			t.Errorf("TilePath(%q) = %s, want %s", tt.tmpl, got, tt.want)
		}
	}
}

func TestTilesetIsVector(t *testing.T) {
	for format, want := range map[string]bool{"": true, "pbf": true, "MVT": true, "png": false, "jpg": false} {
		if got := (Tileset{Format: format}).IsVector(); got != want {
			t.Errorf("IsVector(%q) = %v, want %v", format, got, want)
		}
	}
}

func TestLoadBound(t *testing.T) {
	b, err := loadBound(nil)
	if err != nil || b != nil {
		t.Errorf("loadBound(nil) = %v, %v", b, err)
	}
	b, err = loadBound([]float64{-10, -5, 10, 5})
	if err != nil {
		t.Fatalf("loadBound: %v", err)
	}
	if b.Min.Lon() != -10 || b.Max.Lat() != 5 {
		t.Errorf("bound = %v", b)
	}
	if _, err := loadBound([]float64{1, 2, 3}); err == nil {
		t.Errorf("3 values accepted")
	}
	if _, err := loadBound([]float64{10, 0, -10, 5}); err == nil {
		t.Errorf("inverted bound accepted")
	}
}
