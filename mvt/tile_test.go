package mvt

import (
	"math"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func fieldKey(b *proto.Buffer, num, wt int) {
	b.EncodeVarint(uint64(num<<3 | wt))
}

func encodeValue(v RawValue) []byte {
	b := proto.NewBuffer(nil)
	if v.StringValue != nil {
		fieldKey(b, valueString, wireBytes)
		b.EncodeStringBytes(*v.StringValue)
	}
	if v.FloatValue != nil {
		fieldKey(b, valueFloat, wireFixed32)
		b.EncodeFixed32(uint64(math.Float32bits(*v.FloatValue)))
	}
	if v.DoubleValue != nil {
		fieldKey(b, valueDouble, wireFixed64)
		b.EncodeFixed64(math.Float64bits(*v.DoubleValue))
	}
	if v.IntValue != nil {
		fieldKey(b, valueInt, wireVarint)
		b.EncodeVarint(uint64(*v.IntValue))
	}
	if v.UintValue != nil {
		fieldKey(b, valueUint, wireVarint)
		b.EncodeVarint(*v.UintValue)
	}
	if v.SintValue != nil {
		fieldKey(b, valueSint, wireVarint)
		b.EncodeZigzag64(uint64(*v.SintValue))
	}
	if v.BoolValue != nil {
		fieldKey(b, valueBool, wireVarint)
		if *v.BoolValue {
			b.EncodeVarint(1)
		} else {
			b.EncodeVarint(0)
		}
	}
	return b.Bytes()
}

func packed(vs []uint32) []byte {
	b := proto.NewBuffer(nil)
	for _, v := range vs {
		b.EncodeVarint(uint64(v))
	}
	return b.Bytes()
}

func encodeFeature(f Feature) []byte {
	b := proto.NewBuffer(nil)
	if f.HasID {
		fieldKey(b, featureID, wireVarint)
		b.EncodeVarint(f.ID)
	}
	if len(f.Tags) > 0 {
		fieldKey(b, featureTags, wireBytes)
		b.EncodeRawBytes(packed(f.Tags))
	}
	fieldKey(b, featureType, wireVarint)
	b.EncodeVarint(uint64(f.Type))
	if len(f.Geometry) > 0 {
		fieldKey(b, featureGeometry, wireBytes)
		b.EncodeRawBytes(packed(f.Geometry))
	}
	return b.Bytes()
}

func encodeLayer(l Layer) []byte {
	b := proto.NewBuffer(nil)
	fieldKey(b, layerVersion, wireVarint)
	b.EncodeVarint(uint64(l.Version))
	fieldKey(b, layerName, wireBytes)
	b.EncodeStringBytes(l.Name)
	for _, f := range l.Features {
		fieldKey(b, layerFeatures, wireBytes)
		b.EncodeRawBytes(encodeFeature(f))
	}
	for _, k := range l.Keys {
		fieldKey(b, layerKeys, wireBytes)
		b.EncodeStringBytes(k)
	}
	for _, v := range l.Values {
		fieldKey(b, layerValues, wireBytes)
		b.EncodeRawBytes(encodeValue(v))
	}
	fieldKey(b, layerExtent, wireVarint)
	b.EncodeVarint(uint64(l.Extent))
	return b.Bytes()
}

func encodeTile(t Tile) []byte {
	b := proto.NewBuffer(nil)
	for _, l := range t.Layers {
		fieldKey(b, tileLayers, wireBytes)
		b.EncodeRawBytes(encodeLayer(l))
	}
	return b.Bytes()
}

func testLayer() Layer {
	return Layer{
		Name:    "poi",
		Version: 2,
		Extent:  4096,
		Keys:    []string{"name", "rank", "open", "note"},
		Values: []RawValue{
			{StringValue: strp("cafe")},
			{IntValue: i64p(3)},
			{BoolValue: boolp(false)},
			{},
			{DoubleValue: f64p(0.25)},
			{SintValue: i64p(-12)},
			{FloatValue: f32p(1.5)},
			{UintValue: u64p(99)},
		},
		Features: []Feature{
			{ID: 1, HasID: true, Type: Point, Tags: []uint32{0, 0, 1, 1}, Geometry: []uint32{9, 50, 34}},
			{ID: 2, HasID: true, Type: LineString, Tags: []uint32{2, 2, 3, 3}, Geometry: []uint32{9, 4, 4, 18, 2, 2, 2, 2}},
			{Type: Polygon, Tags: []uint32{1, 4, 1, 5, 0, 6, 2, 7}, Geometry: []uint32{9, 0, 0, 18, 20, 0, 0, 20, 15}},
		},
	}
}

func TestUnmarshal(t *testing.T) {
	want := &Tile{Layers: []Layer{testLayer(), {
		Name:    "empty",
		Version: 2,
		Extent:  512,
	}}}
	got, err := Unmarshal(encodeTile(*want))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tile (-want +got):\n%s", diff)
	}
}

func TestUnmarshalDefaults(t *testing.T) {
	b := proto.NewBuffer(nil)
	fieldKey(b, layerName, wireBytes)
	b.EncodeStringBytes("bare")
	tb := proto.NewBuffer(nil)
	fieldKey(tb, tileLayers, wireBytes)
	tb.EncodeRawBytes(b.Bytes())

	tile, err := Unmarshal(tb.Bytes())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	l := tile.Layers[0]
	if l.Version != DefaultVersion || l.Extent != DefaultExtent {
		t.Errorf("version %d extent %d, want defaults", l.Version, l.Extent)
	}
}

func TestUnmarshalUnpackedAndUnknownFields(t *testing.T) {
	fb := proto.NewBuffer(nil)
	// unknown fields of every supported wire type
	fieldKey(fb, 9, wireVarint)
	fb.EncodeVarint(5)
	fieldKey(fb, 10, wireFixed64)
	fb.EncodeFixed64(1)
	fieldKey(fb, 11, wireFixed32)
	fb.EncodeFixed32(1)
	fieldKey(fb, 12, wireBytes)
	fb.EncodeStringBytes("skip")
	for _, g := range []uint32{9, 2, 4} {
		fieldKey(fb, featureGeometry, wireVarint)
		fb.EncodeVarint(uint64(g))
	}
	fieldKey(fb, featureType, wireVarint)
	fb.EncodeVarint(7)

	lb := proto.NewBuffer(nil)
	fieldKey(lb, layerFeatures, wireBytes)
	lb.EncodeRawBytes(fb.Bytes())
	tb := proto.NewBuffer(nil)
	fieldKey(tb, tileLayers, wireBytes)
	tb.EncodeRawBytes(lb.Bytes())

	tile, err := Unmarshal(tb.Bytes())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	f := tile.Layers[0].Features[0]
	if diff := cmp.Diff([]uint32{9, 2, 4}, f.Geometry); diff != "" {
		t.Errorf("geometry (-want +got):\n%s", diff)
	}
	if f.Type.String() != "UNKNOWN" {
		t.Errorf("type %d named %q, want UNKNOWN", f.Type, f.Type)
	}
	if f.HasID {
		t.Errorf("HasID set without id field")
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	overflow := proto.NewBuffer(nil)
	fieldKey(overflow, featureGeometry, wireVarint)
	overflow.EncodeVarint(1 << 33)
	lb := proto.NewBuffer(nil)
	fieldKey(lb, layerFeatures, wireBytes)
	lb.EncodeRawBytes(overflow.Bytes())
	tb := proto.NewBuffer(nil)
	fieldKey(tb, tileLayers, wireBytes)
	tb.EncodeRawBytes(lb.Bytes())

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated length", []byte{tileLayers<<3 | wireBytes, 10, 1}},
		{"truncated varint", []byte{0x80}},
		{"field zero", []byte{0x00, 0x01}},
		{"group wire type", []byte{1<<3 | 3}},
		{"layer wrong wire type", []byte{tileLayers<<3 | wireVarint, 1}},
		{"geometry overflow", tb.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			if !errors.Is(err, ErrMalformedTile) {
				t.Errorf("err = %v, want ErrMalformedTile", err)
			}
		})
	}
}

func TestUnmarshalEmpty(t *testing.T) {
	tile, err := Unmarshal(nil)
	if err != nil {
		t.Fatalf("Unmarshal(nil): %v", err)
	}
	if len(tile.Layers) != 0 {
		t.Errorf("got %d layers", len(tile.Layers))
	}
}
