package mvt

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// GeomType 要素几何类型
type GeomType int32

// Geometry types as carried in Feature.type.
const (
	Unknown    GeomType = 0
	Point      GeomType = 1
	LineString GeomType = 2
	Polygon    GeomType = 3
)

// String maps the tag to its symbolic name; unrecognized tags are UNKNOWN.
func (t GeomType) String() string {
	switch t {
	case Point:
		return "POINT"
	case LineString:
		return "LINESTRING"
	case Polygon:
		return "POLYGON"
	}
	return "UNKNOWN"
}

// Tile 矢量瓦片
type Tile struct {
	Layers []Layer
}

// Layer 图层
type Layer struct {
	Name     string
	Version  uint32
	Extent   uint32
	Keys     []string
	Values   []RawValue
	Features []Feature
}

// Feature 要素
type Feature struct {
	ID       uint64
	HasID    bool
	Type     GeomType
	Tags     []uint32
	Geometry []uint32
}

// Attribute is one resolved key/value pair.
type Attribute struct {
	Key   string
	Value Value
}

// Attributes keeps attributes in first-insertion order. Setting an existing
// key replaces its value in place.
type Attributes []Attribute

// Set inserts or replaces key.
func (a *Attributes) Set(key string, v Value) {
	for i := range *a {
		if (*a)[i].Key == key {
			(*a)[i].Value = v
			return
		}
	}
	*a = append(*a, Attribute{Key: key, Value: v})
}

// Get returns the value of key and whether the key exists. An existing key
// may still hold an absent value.
func (a Attributes) Get(key string) (Value, bool) {
	for _, kv := range a {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return Value{}, false
}

// Map returns the attributes as a plain map, absent values as nil.
func (a Attributes) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(a))
	for _, kv := range a {
		m[kv.Key] = kv.Value.Interface()
	}
	return m
}

// MarshalJSON writes an object preserving attribute order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AssembledFeature 解码后的要素
type AssembledFeature struct {
	ID          uint64
	HasID       bool
	Type        GeomType
	Attributes  Attributes
	Coordinates []Coordinate

	// Paths holds the same positions split at each MoveTo, rings closed on
	// their own first point.
	Paths [][]Coordinate
}

// AssembleFeature resolves a feature against its layer with the strict options.
func AssembleFeature(f Feature, l *Layer) (*AssembledFeature, error) {
	return AssembleFeatureWithOptions(f, l, DefaultDecodeOptions())
}

// AssembleFeatureWithOptions resolves the feature's tags against the layer
// tables and decodes its geometry. Failures are returned as *FeatureError.
func AssembleFeatureWithOptions(f Feature, l *Layer, opts DecodeOptions) (*AssembledFeature, error) {
	if len(f.Tags)%2 != 0 {
		return nil, &FeatureError{
			Kind:      MalformedTags,
			FeatureID: f.ID,
			Err:       errors.Errorf("odd tag count %d, key index %d has no value", len(f.Tags), f.Tags[len(f.Tags)-1]),
		}
	}

	attrs := make(Attributes, 0, len(f.Tags)/2)
	for i := 0; i < len(f.Tags); i += 2 {
		ki, vi := f.Tags[i], f.Tags[i+1]
		if int64(ki) >= int64(len(l.Keys)) {
			return nil, &FeatureError{
				Kind:      IndexOutOfRange,
				FeatureID: f.ID,
				Err:       errors.Errorf("key index %d at tag %d, layer %q has %d keys", ki, i, l.Name, len(l.Keys)),
			}
		}
		if int64(vi) >= int64(len(l.Values)) {
			return nil, &FeatureError{
				Kind:      IndexOutOfRange,
				FeatureID: f.ID,
				Err:       errors.Errorf("value index %d at tag %d, layer %q has %d values", vi, i+1, l.Name, len(l.Values)),
			}
		}
		attrs.Set(l.Keys[ki], DecodeValue(l.Values[vi]))
	}

	flat, paths, err := decodeGeometry(f.Geometry, opts)
	if err != nil {
		return nil, &FeatureError{Kind: Geometry, FeatureID: f.ID, Err: err}
	}

	return &AssembledFeature{
		ID:          f.ID,
		HasID:       f.HasID,
		Type:        f.Type,
		Attributes:  attrs,
		Coordinates: flat,
		Paths:       paths,
	}, nil
}

// DecodedLayer 解码后的图层
type DecodedLayer struct {
	Name     string
	Version  uint32
	Extent   uint32
	Features []*AssembledFeature

	// Errors collects skipped feature failures when SkipBadFeatures is set.
	Errors []error
}

// AssembleLayer assembles every feature of l. Without SkipBadFeatures the
// first feature error aborts the layer.
func AssembleLayer(l *Layer, opts DecodeOptions) (*DecodedLayer, error) {
	dl := &DecodedLayer{
		Name:     l.Name,
		Version:  l.Version,
		Extent:   l.Extent,
		Features: make([]*AssembledFeature, 0, len(l.Features)),
	}
	for _, f := range l.Features {
		af, err := AssembleFeatureWithOptions(f, l, opts)
		if err != nil {
			if !opts.SkipBadFeatures {
				return nil, err
			}
			dl.Errors = append(dl.Errors, err)
			continue
		}
		dl.Features = append(dl.Features, af)
	}
	return dl, nil
}
