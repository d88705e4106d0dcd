package mvt

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedGeometry is matched by every geometry decode failure.
	ErrMalformedGeometry = errors.New("malformed geometry")

	// ErrMalformedTile is matched by protobuf envelope failures.
	ErrMalformedTile = errors.New("malformed tile")
)

// GeometryError describes where a command stream went wrong.
type GeometryError struct {
	Offset  int    // index of the offending command integer
	Command uint32 // the raw command integer
	Reason  string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("malformed geometry at %d (command %#x): %s", e.Offset, e.Command, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedGeometry) hold.
func (e *GeometryError) Is(target error) bool {
	return target == ErrMalformedGeometry
}

// FeatureErrorKind 要素错误类型
type FeatureErrorKind int

const (
	// IndexOutOfRange: a tag references a key or value beyond the layer tables.
	IndexOutOfRange FeatureErrorKind = iota + 1
	// MalformedTags: the tag sequence has odd length.
	MalformedTags
	// Geometry: the geometry stream failed to decode.
	Geometry
)

func (k FeatureErrorKind) String() string {
	switch k {
	case IndexOutOfRange:
		return "index out of range"
	case MalformedTags:
		return "malformed tags"
	case Geometry:
		return "geometry"
	}
	return fmt.Sprintf("FeatureErrorKind(%d)", int(k))
}

// FeatureError is the single per-feature failure returned by AssembleFeature.
type FeatureError struct {
	Kind      FeatureErrorKind
	FeatureID uint64
	Err       error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("feature %d: %s: %v", e.FeatureID, e.Kind, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }

func malformedTile(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedTile, format, args...)
}
