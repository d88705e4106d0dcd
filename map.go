package main

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// DefaultPathTemplate 默认瓦片输出路径模板
const DefaultPathTemplate = "{z}/{x}/{y}.{ext}"

// Tileset 瓦片集元数据
type Tileset struct {
	Name        string
	Description string
	Format      string
	MinZoom     int
	MaxZoom     int
	Meta        map[string]string
}

// IsVector reports whether the tileset declares vector content. Tilesets
// without a format are assumed to be vector.
func (ts Tileset) IsVector() bool {
	switch strings.ToLower(ts.Format) {
	case "", "pbf", "mvt":
		return true
	}
	return false
}

// TilePath 获取瓦片输出路径
func TilePath(dir, tmpl string, t maptile.Tile, ext string) string {
	if tmpl == "" {
		tmpl = DefaultPathTemplate
	}
	p := strings.Replace(tmpl, "{x}", strconv.Itoa(int(t.X)), -1)
	p = strings.Replace(p, "{y}", strconv.Itoa(int(t.Y)), -1)
	p = strings.Replace(p, "{z}", strconv.Itoa(int(t.Z)), -1)
	p = strings.Replace(p, "{ext}", ext, -1)
	return filepath.Join(dir, filepath.FromSlash(p))
}
