// Package mvt decodes Mapbox Vector Tiles.
//
// Unmarshal reads the protobuf envelope into Tile, Layer and Feature values.
// AssembleFeature then resolves a feature's tag indices against its layer's
// key and value tables and decodes its geometry command stream into absolute
// tile coordinates. Every function is pure and safe for concurrent use on
// independent inputs.
package mvt
