package mvt

import (
	"fmt"
)

// Command 几何命令
type Command uint32

// Geometry commands.
const (
	MoveTo    Command = 1
	LineTo    Command = 2
	ClosePath Command = 7
)

func (c Command) String() string {
	switch c {
	case MoveTo:
		return "MoveTo"
	case LineTo:
		return "LineTo"
	case ClosePath:
		return "ClosePath"
	}
	return fmt.Sprintf("Command(%d)", uint32(c))
}

// Coordinate 瓦片坐标
type Coordinate struct {
	X, Y int64
}

// DecodeCommand splits a command integer into its id and repeat count.
func DecodeCommand(cmd uint32) (Command, uint32) {
	return Command(cmd & 0x7), cmd >> 3
}

// EncodeCommand packs a command id and repeat count.
func EncodeCommand(c Command, count uint32) uint32 {
	return uint32(c)&0x7 | count<<3
}

// DecodeZigzag decodes a zigzag encoded parameter integer.
func DecodeZigzag(raw uint32) int32 {
	return int32(raw>>1) ^ -int32(raw&1)
}

// EncodeZigzag is the inverse of DecodeZigzag.
func EncodeZigzag(d int32) uint32 {
	return uint32((d << 1) ^ (d >> 31))
}

// DecodeOptions 解码选项
type DecodeOptions struct {
	// SkipUnknownCommands skips command ids other than MoveTo, LineTo and
	// ClosePath without consuming parameters instead of failing.
	SkipUnknownCommands bool

	// SkipBadFeatures makes AssembleLayer collect feature errors and keep
	// going instead of returning the first one.
	SkipBadFeatures bool
}

// DefaultDecodeOptions returns the strict options.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{}
}

// DecodeGeometry decodes a command stream into the flat sequence of absolute
// coordinates. ClosePath repeats the first coordinate of the whole sequence,
// not of the current ring.
func DecodeGeometry(cmds []uint32) ([]Coordinate, error) {
	return DecodeGeometryWithOptions(cmds, DefaultDecodeOptions())
}

// DecodeGeometryWithOptions is DecodeGeometry with explicit options.
func DecodeGeometryWithOptions(cmds []uint32, opts DecodeOptions) ([]Coordinate, error) {
	flat, _, err := decodeGeometry(cmds, opts)
	return flat, err
}

// DecodePaths decodes a command stream into one coordinate path per MoveTo.
// ClosePath closes the current path with that path's first coordinate.
func DecodePaths(cmds []uint32, opts DecodeOptions) ([][]Coordinate, error) {
	_, paths, err := decodeGeometry(cmds, opts)
	return paths, err
}

func decodeGeometry(cmds []uint32, opts DecodeOptions) ([]Coordinate, [][]Coordinate, error) {
	var (
		flat  []Coordinate
		paths [][]Coordinate
	)
	err := walkGeometry(cmds, opts, func(c Command, p Coordinate) {
		switch c {
		case MoveTo:
			flat = append(flat, p)
			paths = append(paths, []Coordinate{p})
		case LineTo:
			flat = append(flat, p)
			if len(paths) == 0 {
				paths = append(paths, nil)
			}
			paths[len(paths)-1] = append(paths[len(paths)-1], p)
		case ClosePath:
			if len(flat) > 0 {
				flat = append(flat, flat[0])
			}
			if n := len(paths); n > 0 && len(paths[n-1]) > 0 {
				paths[n-1] = append(paths[n-1], paths[n-1][0])
			}
		}
	})
	if err != nil {
		return nil, nil, err
	}
	if flat == nil {
		flat = []Coordinate{}
	}
	return flat, paths, nil
}

// walkGeometry runs the command stream, reporting every emitted position
// and every ClosePath. The cursor position persists across commands.
func walkGeometry(cmds []uint32, opts DecodeOptions, visit func(Command, Coordinate)) error {
	var x, y int64
	for i := 0; i < len(cmds); {
		offset := i
		c, count := DecodeCommand(cmds[i])
		i++

		switch c {
		case MoveTo, LineTo:
			need := 2 * uint64(count)
			if need > uint64(len(cmds)-i) {
				return &GeometryError{
					Offset:  offset,
					Command: cmds[offset],
					Reason:  fmt.Sprintf("%s count %d needs %d parameters, %d left", c, count, need, len(cmds)-i),
				}
			}
			for n := uint32(0); n < count; n++ {
				x += int64(DecodeZigzag(cmds[i]))
				y += int64(DecodeZigzag(cmds[i+1]))
				i += 2
				visit(c, Coordinate{X: x, Y: y})
			}
		case ClosePath:
			visit(ClosePath, Coordinate{X: x, Y: y})
		default:
			if opts.SkipUnknownCommands {
				continue
			}
			return &GeometryError{
				Offset:  offset,
				Command: cmds[offset],
				Reason:  fmt.Sprintf("unknown command id %d", uint32(c)),
			}
		}
	}
	return nil
}
