package common

import (
	"encoding/binary"
)

// PutFixed stores the low width bytes of bits into b, little-endian.
// width must be 1, 2, 4 or 8.
func PutFixed(b []byte, width int, bits uint64) {
	switch width {
	case 1:
		b[0] = byte(bits)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(bits))
	case 8:
		binary.LittleEndian.PutUint64(b, bits)
	default:
		panic("common: unsupported fixed width")
	}
}

// ReadFixed loads width bytes from b, zero-extended to 64 bits.
func ReadFixed(b []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	default:
		panic("common: unsupported fixed width")
	}
}

// SignExtend interprets the low width bytes of bits as a two's complement
// integer.
func SignExtend(bits uint64, width int) int64 {
	shift := uint(64 - width*8)
	return int64(bits<<shift) >> shift
}

// Truncate keeps the low width bytes of bits.
func Truncate(bits uint64, width int) uint64 {
	if width >= 8 {
		return bits
	}
	return bits & (1<<(uint(width)*8) - 1)
}

// Align rounds n up to the next multiple of a.
func Align(n, a int) int {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

// Zero clears b.
func Zero(b []byte) {
	clear(b)
}

// WriteVarUint appends a varint to buf (allocating if needed).
func WriteVarUint(buf []byte, x uint64) []byte {
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
// A zero count means b held no complete varint.
func ReadVarUint(b []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == binary.MaxVarintLen64 {
			return 0, 0
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1
		}
		s += 7
	}
	return 0, 0
}
