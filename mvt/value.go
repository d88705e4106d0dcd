package mvt

import (
	"encoding/json"
	"math"
	"strconv"
)

// ValueKind 属性值类型
type ValueKind uint8

// Value kinds, in decode priority order after KindAbsent.
const (
	KindAbsent ValueKind = iota
	KindString
	KindFloat
	KindDouble
	KindInt
	KindUint
	KindSint
	KindBool
)

var kindNames = [...]string{"absent", "string", "float", "double", "int", "uint", "sint", "bool"}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// RawValue is a layer value record as it appears on the wire. A nil field
// means the field was not present in the message.
type RawValue struct {
	StringValue *string
	FloatValue  *float32
	DoubleValue *float64
	IntValue    *int64
	UintValue   *uint64
	SintValue   *int64
	BoolValue   *bool
}

// Value is a decoded attribute value. The zero Value is absent.
type Value struct {
	kind ValueKind
	s    string
	f    float64
	i    int64
	u    uint64
	b    bool
}

// DecodeValue resolves a raw value record to the first present field in the
// order string, float, double, int, uint, sint, bool. A record with no field
// present yields an absent Value.
func DecodeValue(raw RawValue) Value {
	switch {
	case raw.StringValue != nil:
		return StringValue(*raw.StringValue)
	case raw.FloatValue != nil:
		return FloatValue(*raw.FloatValue)
	case raw.DoubleValue != nil:
		return DoubleValue(*raw.DoubleValue)
	case raw.IntValue != nil:
		return IntValue(*raw.IntValue)
	case raw.UintValue != nil:
		return UintValue(*raw.UintValue)
	case raw.SintValue != nil:
		return SintValue(*raw.SintValue)
	case raw.BoolValue != nil:
		return BoolValue(*raw.BoolValue)
	}
	return Value{}
}

func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func FloatValue(f float32) Value { return Value{kind: KindFloat, f: float64(f)} }
func DoubleValue(f float64) Value { return Value{kind: KindDouble, f: f} }
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }
func UintValue(u uint64) Value { return Value{kind: KindUint, u: u} }
func SintValue(i int64) Value { return Value{kind: KindSint, i: i} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which variant is held.
func (v Value) Kind() ValueKind { return v.kind }

// Absent reports whether the value record had no populated field.
func (v Value) Absent() bool { return v.kind == KindAbsent }

// Interface returns the held value as a Go value: string, float32, float64,
// int64, uint64 or bool. Absent values return nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindFloat:
		return float32(v.f)
	case KindDouble:
		return v.f
	case KindInt, KindSint:
		return v.i
	case KindUint:
		return v.u
	case KindBool:
		return v.b
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInt, KindSint:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return "<absent>"
}

// MarshalJSON encodes absent values as null. NaN and infinities have no
// JSON number form and are written as the strings "NaN", "+Inf" and "-Inf".
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.JSONValue())
}

// JSONValue is Interface with non-finite floats replaced by their string
// form, safe to hand to encoding/json.
func (v Value) JSONValue() interface{} {
	if (v.kind == KindFloat || v.kind == KindDouble) && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return v.Interface()
}
