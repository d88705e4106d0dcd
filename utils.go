package main

import (
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// saveToFiles writes one rendered tile, creating parent directories.
func saveToFiles(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write %s", path)
}

// loadBound turns [minLon, minLat, maxLon, maxLat] into a bound.
func loadBound(b []float64) (*orb.Bound, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) != 4 {
		return nil, errors.Errorf("bounds needs 4 values, got %d", len(b))
	}
	if b[0] > b[2] || b[1] > b[3] {
		return nil, errors.Errorf("bounds %v: min exceeds max", b)
	}
	return &orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}, nil
}
