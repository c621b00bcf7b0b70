package envelope

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how the structure bytes are packed.
type Compression uint8

const (
	CompNone Compression = iota
	CompZstd
	CompLZ4

	compMask = 0x0003
)

func (c Compression) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompZstd:
		return "zstd"
	case CompLZ4:
		return "lz4"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression reads none, zstd or lz4.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return CompNone, nil
	case "zstd":
		return CompZstd, nil
	case "lz4":
		return CompLZ4, nil
	}
	return CompNone, fmt.Errorf("%w: unknown compression %q", ErrCompression, s)
}

var errIncompressible = errors.New("envelope: data is incompressible")

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		panic("envelope: zstd encoder: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("envelope: zstd decoder: " + err.Error())
	}
}

// compress appends the packed form of raw to dst. errIncompressible
// means the caller should store raw as is.
func compress(dst []byte, c Compression, raw []byte) ([]byte, error) {
	switch c {
	case CompNone:
		return append(dst, raw...), nil
	case CompZstd:
		start := len(dst)
		out := zstdEncoder.EncodeAll(raw, dst)
		if len(out)-start >= len(raw) {
			return dst, errIncompressible
		}
		return out, nil
	case CompLZ4:
		start := len(dst)
		out := append(dst, make([]byte, lz4.CompressBlockBound(len(raw)))...)
		n, err := lz4.CompressBlock(raw, out[start:], nil)
		if err != nil {
			return dst, fmt.Errorf("%w: lz4: %v", ErrCompression, err)
		}
		if n == 0 || n >= len(raw) {
			return dst, errIncompressible
		}
		return out[:start+n], nil
	}
	return dst, fmt.Errorf("%w: %s", ErrCompression, c)
}

// decompress unpacks payload into dst, which must be exactly the raw size.
func decompress(dst []byte, c Compression, payload []byte) error {
	switch c {
	case CompNone:
		if len(payload) != len(dst) {
			return fmt.Errorf("%w: payload %d bytes, want %d", ErrTruncated, len(payload), len(dst))
		}
		copy(dst, payload)
		return nil
	case CompZstd:
		out, err := zstdDecoder.DecodeAll(payload, dst[:0])
		if err != nil {
			return fmt.Errorf("%w: zstd: %v", ErrCompression, err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("%w: zstd produced %d bytes, want %d", ErrCompression, len(out), len(dst))
		}
		copy(dst, out)
		return nil
	case CompLZ4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return fmt.Errorf("%w: lz4: %v", ErrCompression, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: lz4 produced %d bytes, want %d", ErrCompression, n, len(dst))
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCompression, c)
}
