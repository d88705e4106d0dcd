package mvt

import (
	"math"

	"github.com/golang/protobuf/proto"
)

// Protobuf wire types.
const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// Field numbers of vector_tile.proto.
const (
	tileLayers = 3

	layerName     = 1
	layerFeatures = 2
	layerKeys     = 3
	layerValues   = 4
	layerExtent   = 5
	layerVersion  = 15

	featureID       = 1
	featureTags     = 2
	featureType     = 3
	featureGeometry = 4

	valueString = 1
	valueFloat  = 2
	valueDouble = 3
	valueInt    = 4
	valueUint   = 5
	valueSint   = 6
	valueBool   = 7
)

// Layer defaults when the fields are omitted.
const (
	DefaultVersion = 1
	DefaultExtent  = 4096
)

// Unmarshal parses an uncompressed vector tile.
func Unmarshal(data []byte) (*Tile, error) {
	t := &Tile{}
	err := eachField(data, "tile", func(num, wt int, b *proto.Buffer) error {
		if num != tileLayers {
			return skipField(b, wt)
		}
		raw, err := message(b, wt, "tile.layers")
		if err != nil {
			return err
		}
		l, err := unmarshalLayer(raw)
		if err != nil {
			return err
		}
		t.Layers = append(t.Layers, *l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func unmarshalLayer(data []byte) (*Layer, error) {
	l := &Layer{Version: DefaultVersion, Extent: DefaultExtent}
	err := eachField(data, "layer", func(num, wt int, b *proto.Buffer) error {
		switch num {
		case layerName:
			raw, err := message(b, wt, "layer.name")
			if err != nil {
				return err
			}
			l.Name = string(raw)
		case layerFeatures:
			raw, err := message(b, wt, "layer.features")
			if err != nil {
				return err
			}
			f, err := unmarshalFeature(raw)
			if err != nil {
				return err
			}
			l.Features = append(l.Features, *f)
		case layerKeys:
			raw, err := message(b, wt, "layer.keys")
			if err != nil {
				return err
			}
			l.Keys = append(l.Keys, string(raw))
		case layerValues:
			raw, err := message(b, wt, "layer.values")
			if err != nil {
				return err
			}
			v, err := unmarshalValue(raw)
			if err != nil {
				return err
			}
			l.Values = append(l.Values, v)
		case layerExtent:
			v, err := uint32Field(b, wt, "layer.extent")
			if err != nil {
				return err
			}
			l.Extent = v
		case layerVersion:
			v, err := uint32Field(b, wt, "layer.version")
			if err != nil {
				return err
			}
			l.Version = v
		default:
			return skipField(b, wt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func unmarshalFeature(data []byte) (*Feature, error) {
	f := &Feature{}
	err := eachField(data, "feature", func(num, wt int, b *proto.Buffer) error {
		var err error
		switch num {
		case featureID:
			if wt != wireVarint {
				return malformedTile("feature.id: wire type %d", wt)
			}
			if f.ID, err = b.DecodeVarint(); err != nil {
				return malformedTile("feature.id: %v", err)
			}
			f.HasID = true
		case featureTags:
			f.Tags, err = appendUint32s(f.Tags, b, wt, "feature.tags")
		case featureType:
			if wt != wireVarint {
				return malformedTile("feature.type: wire type %d", wt)
			}
			v, err := b.DecodeVarint()
			if err != nil {
				return malformedTile("feature.type: %v", err)
			}
			f.Type = GeomType(int32(v))
		case featureGeometry:
			f.Geometry, err = appendUint32s(f.Geometry, b, wt, "feature.geometry")
		default:
			err = skipField(b, wt)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func unmarshalValue(data []byte) (RawValue, error) {
	var v RawValue
	err := eachField(data, "value", func(num, wt int, b *proto.Buffer) error {
		switch num {
		case valueString:
			raw, err := message(b, wt, "value.string_value")
			if err != nil {
				return err
			}
			s := string(raw)
			v.StringValue = &s
		case valueFloat:
			if wt != wireFixed32 {
				return malformedTile("value.float_value: wire type %d", wt)
			}
			bits, err := b.DecodeFixed32()
			if err != nil {
				return malformedTile("value.float_value: %v", err)
			}
			f := math.Float32frombits(uint32(bits))
			v.FloatValue = &f
		case valueDouble:
			if wt != wireFixed64 {
				return malformedTile("value.double_value: wire type %d", wt)
			}
			bits, err := b.DecodeFixed64()
			if err != nil {
				return malformedTile("value.double_value: %v", err)
			}
			d := math.Float64frombits(bits)
			v.DoubleValue = &d
		case valueInt, valueUint, valueBool:
			if wt != wireVarint {
				return malformedTile("value field %d: wire type %d", num, wt)
			}
			x, err := b.DecodeVarint()
			if err != nil {
				return malformedTile("value field %d: %v", num, err)
			}
			switch num {
			case valueInt:
				i := int64(x)
				v.IntValue = &i
			case valueUint:
				v.UintValue = &x
			default:
				t := x != 0
				v.BoolValue = &t
			}
		case valueSint:
			if wt != wireVarint {
				return malformedTile("value.sint_value: wire type %d", wt)
			}
			x, err := b.DecodeZigzag64()
			if err != nil {
				return malformedTile("value.sint_value: %v", err)
			}
			i := int64(x)
			v.SintValue = &i
		default:
			return skipField(b, wt)
		}
		return nil
	})
	return v, err
}

// eachField walks the top level fields of one message.
func eachField(data []byte, msg string, fn func(num, wt int, b *proto.Buffer) error) error {
	b := proto.NewBuffer(data)
	for len(b.Unread()) > 0 {
		key, err := b.DecodeVarint()
		if err != nil {
			return malformedTile("%s: field key: %v", msg, err)
		}
		num, wt := int(key>>3), int(key&0x7)
		if num == 0 {
			return malformedTile("%s: field number 0", msg)
		}
		if err := fn(num, wt, b); err != nil {
			return err
		}
	}
	return nil
}

func message(b *proto.Buffer, wt int, field string) ([]byte, error) {
	if wt != wireBytes {
		return nil, malformedTile("%s: wire type %d", field, wt)
	}
	raw, err := b.DecodeRawBytes(false)
	if err != nil {
		return nil, malformedTile("%s: %v", field, err)
	}
	return raw, nil
}

func uint32Field(b *proto.Buffer, wt int, field string) (uint32, error) {
	if wt != wireVarint {
		return 0, malformedTile("%s: wire type %d", field, wt)
	}
	v, err := b.DecodeVarint()
	if err != nil {
		return 0, malformedTile("%s: %v", field, err)
	}
	if v > math.MaxUint32 {
		return 0, malformedTile("%s: %d overflows uint32", field, v)
	}
	return uint32(v), nil
}

// appendUint32s reads a repeated uint32 field in either packed or unpacked
// encoding.
func appendUint32s(dst []uint32, b *proto.Buffer, wt int, field string) ([]uint32, error) {
	switch wt {
	case wireVarint:
		v, err := uint32Field(b, wt, field)
		if err != nil {
			return nil, err
		}
		return append(dst, v), nil
	case wireBytes:
		raw, err := b.DecodeRawBytes(false)
		if err != nil {
			return nil, malformedTile("%s: %v", field, err)
		}
		pb := proto.NewBuffer(raw)
		for len(pb.Unread()) > 0 {
			v, err := uint32Field(pb, wireVarint, field)
			if err != nil {
				return nil, err
			}
			dst = append(dst, v)
		}
		return dst, nil
	}
	return nil, malformedTile("%s: wire type %d", field, wt)
}

func skipField(b *proto.Buffer, wt int) error {
	var err error
	switch wt {
	case wireVarint:
		_, err = b.DecodeVarint()
	case wireFixed64:
		_, err = b.DecodeFixed64()
	case wireBytes:
		_, err = b.DecodeRawBytes(false)
	case wireFixed32:
		_, err = b.DecodeFixed32()
	default:
		return malformedTile("unsupported wire type %d", wt)
	}
	if err != nil {
		return malformedTile("skip field: %v", err)
	}
	return nil
}
