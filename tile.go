package main

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"
)

// ZoomMin 最小级别
const ZoomMin = 0

// ZoomMax 最大级别
const ZoomMax = 24

// Tile 瓦片记录
type Tile struct {
	T    maptile.Tile
	Data []byte
}

// Key 断点记录键
func (t Tile) Key() string {
	return tileKey(t.T)
}

func tileKey(t maptile.Tile) string {
	return fmt.Sprintf("%d-%d-%d", t.Z, t.X, t.Y)
}

// Constants representing tile content encodings
const (
	GZIP string = "gzip" // encoding = gzip
	ZLIB        = "zlib" // encoding = deflate
	RAW         = "raw"
)

// encodingOf sniffs the compression header of a tile blob.
func encodingOf(data []byte) string {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		return GZIP
	}
	// zlib: CM=8 and the header checksum holds
	if len(data) >= 2 && data[0]&0x0f == 8 && (uint16(data[0])<<8|uint16(data[1]))%31 == 0 {
		return ZLIB
	}
	return RAW
}

// MaxTileSize 解压后瓦片大小上限
const MaxTileSize = 64 << 20

// decompress 解压瓦片数据
func decompress(data []byte) ([]byte, error) {
	return decompressLimit(data, MaxTileSize)
}

// decompressLimit inflates data and fails once the output exceeds limit bytes.
func decompressLimit(data []byte, limit int64) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch encodingOf(data) {
	case GZIP:
		r, err = gzip.NewReader(bytes.NewReader(data))
	case ZLIB:
		r, err = zlib.NewReader(bytes.NewReader(data))
	default:
		return data, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open compressed tile")
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "inflate tile")
	}
	if int64(len(out)) > limit {
		return nil, errors.Errorf("inflated tile exceeds %d bytes", limit)
	}
	return out, nil
}
