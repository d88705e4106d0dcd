package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // import sqlite3 driver
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"
)

// Filter 瓦片过滤条件
type Filter struct {
	MinZoom int
	MaxZoom int
	Bound   *orb.Bound // lon/lat, nil for no restriction
}

// Match reports whether t passes the filter.
func (f Filter) Match(t maptile.Tile) bool {
	if int(t.Z) < f.MinZoom || int(t.Z) > f.MaxZoom {
		return false
	}
	if f.Bound != nil && !t.Bound().Intersects(*f.Bound) {
		return false
	}
	return true
}

// MBTiles 只读瓦片库
type MBTiles struct {
	db   *sql.DB
	path string
}

// OpenMBTiles opens an existing MBTiles file read-only.
func OpenMBTiles(path string) (*MBTiles, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &MBTiles{db: db, path: path}, nil
}

// Close 关闭瓦片库
func (m *MBTiles) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Metadata reads the metadata table. Files without one yield an empty Tileset.
func (m *MBTiles) Metadata() (Tileset, error) {
	ts := Tileset{MinZoom: ZoomMin, MaxZoom: ZoomMax, Meta: map[string]string{}}
	rows, err := m.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return ts, nil
		}
		return ts, errors.Wrap(err, "read metadata")
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return ts, errors.Wrap(err, "read metadata")
		}
		ts.Meta[name] = value
		switch name {
		case "name":
			ts.Name = value
		case "description":
			ts.Description = value
		case "format":
			ts.Format = value
		case "minzoom":
			if z, err := strconv.Atoi(value); err == nil {
				ts.MinZoom = z
			}
		case "maxzoom":
			if z, err := strconv.Atoi(value); err == nil {
				ts.MaxZoom = z
			}
		}
	}
	return ts, errors.Wrap(rows.Err(), "read metadata")
}

// Count 统计过滤后的瓦片数
func (m *MBTiles) Count(f Filter) (int64, error) {
	if f.Bound == nil {
		var n int64
		err := m.db.QueryRow(
			"SELECT count(*) FROM tiles WHERE zoom_level BETWEEN ? AND ?",
			f.MinZoom, f.MaxZoom,
		).Scan(&n)
		if err != nil {
			return 0, errors.Wrap(err, "count tiles")
		}
		return n, nil
	}

	// bound filtering needs the tile coordinates, not the blobs
	rows, err := m.db.Query(
		"SELECT zoom_level, tile_column, tile_row FROM tiles WHERE zoom_level BETWEEN ? AND ?",
		f.MinZoom, f.MaxZoom,
	)
	if err != nil {
		return 0, errors.Wrap(err, "count tiles")
	}
	defer rows.Close()
	var n int64
	for rows.Next() {
		var z, x, row uint32
		if err := rows.Scan(&z, &x, &row); err != nil {
			return 0, errors.Wrap(err, "count tiles")
		}
		t, err := flipRow(z, x, row)
		if err != nil {
			return 0, err
		}
		if f.Match(t) {
			n++
		}
	}
	return n, errors.Wrap(rows.Err(), "count tiles")
}

// flipRow converts a stored TMS row to an XYZ tile.
func flipRow(z, x, row uint32) (maptile.Tile, error) {
	if z > ZoomMax || row >= 1<<z {
		return maptile.Tile{}, errors.Errorf("tile row %d out of range at zoom %d", row, z)
	}
	return maptile.New(x, (1<<z)-1-row, maptile.Zoom(z)), nil
}

// VisitTiles calls visit for every tile matching f, ordered by zoom, column
// and XYZ row. Rows are stored TMS and flipped here.
func (m *MBTiles) VisitTiles(ctx context.Context, f Filter, visit func(Tile) error) error {
	rows, err := m.db.QueryContext(ctx,
		"SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles WHERE zoom_level BETWEEN ? AND ? ORDER BY zoom_level, tile_column, tile_row DESC",
		f.MinZoom, f.MaxZoom,
	)
	if err != nil {
		return errors.Wrap(err, "query tiles")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			z, x, row uint32
			data      []byte
		)
		if err := rows.Scan(&z, &x, &row, &data); err != nil {
			return errors.Wrap(err, "scan tile")
		}
		tt, err := flipRow(z, x, row)
		if err != nil {
			return err
		}
		t := Tile{T: tt, Data: data}
		if !f.Match(t.T) {
			continue
		}
		if err := visit(t); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), "iterate tiles")
}
