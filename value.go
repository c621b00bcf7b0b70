// Package ipcstruct implements typed, fixed-layout structures exchanged
// between cooperating processes.
//
// A Value is a tagged variant over the closed set of kinds. A Struct binds
// a schema.Schema to a region of a zc.Buffer and exposes typed field
// accessors that all funnel through one validation routine, so every
// accessor reports failures with the same precedence.
package ipcstruct

import (
	"encoding/hex"
	"fmt"
	"math"
	"net/netip"
	"strconv"

	"github.com/rawbytedev/ipcstruct/internal/common"
	"github.com/rawbytedev/ipcstruct/pkg/netaddr"
	"github.com/rawbytedev/ipcstruct/pkg/numparse"
	"github.com/rawbytedev/ipcstruct/pkg/schema"
)

type Kind = schema.Kind

const (
	KindNull    = schema.KindNull
	KindInt8    = schema.KindInt8
	KindUint8   = schema.KindUint8
	KindInt16   = schema.KindInt16
	KindUint16  = schema.KindUint16
	KindInt32   = schema.KindInt32
	KindUint32  = schema.KindUint32
	KindInt64   = schema.KindInt64
	KindUint64  = schema.KindUint64
	KindFloat32 = schema.KindFloat32
	KindFloat64 = schema.KindFloat64
	KindIPv4    = schema.KindIPv4
	KindIPv6    = schema.KindIPv6
	KindText    = schema.KindText
	KindBytes   = schema.KindBytes
	KindStruct  = schema.KindStruct
)

// Value is an immutable tagged variant. The zero Value is Null.
//
// Integers are held in bits: signed kinds sign-extended, unsigned kinds
// zero-extended. Floats hold their IEEE-754 bits. Text, bytes and raw
// address bytes live in data, which is never exposed without a copy.
type Value struct {
	kind Kind
	bits uint64
	data string
	st   *Struct
}

func Null() Value { return Value{} }

func Int8(v int8) Value   { return Value{kind: KindInt8, bits: uint64(int64(v))} }
func Int16(v int16) Value { return Value{kind: KindInt16, bits: uint64(int64(v))} }
func Int32(v int32) Value { return Value{kind: KindInt32, bits: uint64(int64(v))} }
func Int64(v int64) Value { return Value{kind: KindInt64, bits: uint64(v)} }

func Uint8(v uint8) Value   { return Value{kind: KindUint8, bits: uint64(v)} }
func Uint16(v uint16) Value { return Value{kind: KindUint16, bits: uint64(v)} }
func Uint32(v uint32) Value { return Value{kind: KindUint32, bits: uint64(v)} }
func Uint64(v uint64) Value { return Value{kind: KindUint64, bits: v} }

func Float32(v float32) Value {
	return Value{kind: KindFloat32, bits: uint64(math.Float32bits(v))}
}

func Float64(v float64) Value {
	return Value{kind: KindFloat64, bits: math.Float64bits(v)}
}

// Uint8FromInt and its siblings build unsigned values from signed natives,
// rejecting negatives and magnitudes above 2^width-1.
func Uint8FromInt(v int64) (Value, error)  { return uintFromInt(KindUint8, v) }
func Uint16FromInt(v int64) (Value, error) { return uintFromInt(KindUint16, v) }
func Uint32FromInt(v int64) (Value, error) { return uintFromInt(KindUint32, v) }
func Uint64FromInt(v int64) (Value, error) { return uintFromInt(KindUint64, v) }

func uintFromInt(k Kind, v int64) (Value, error) {
	if v < 0 || uint64(v) != common.Truncate(uint64(v), k.Width()) {
		return Value{}, rangeError(k, v)
	}
	return Value{kind: k, bits: uint64(v)}, nil
}

// Int8FromInt and its siblings narrow a native int64 with a range check.
func Int8FromInt(v int64) (Value, error)  { return intFromInt(KindInt8, v) }
func Int16FromInt(v int64) (Value, error) { return intFromInt(KindInt16, v) }
func Int32FromInt(v int64) (Value, error) { return intFromInt(KindInt32, v) }

func intFromInt(k Kind, v int64) (Value, error) {
	if common.SignExtend(uint64(v), k.Width()) != v {
		return Value{}, rangeError(k, v)
	}
	return Value{kind: k, bits: uint64(v)}, nil
}

func Text(s string) Value { return Value{kind: KindText, data: s} }

// Bytes copies b. A nil slice yields an empty BINARY value.
func Bytes(b []byte) Value { return Value{kind: KindBytes, data: string(b)} }

// Addr wraps an address, choosing IPV4 or IPV6 from its family. The scope
// is dropped. An invalid address yields Null.
func Addr(a netip.Addr) Value {
	switch {
	case a.Is4():
		b := a.As4()
		return Value{kind: KindIPv4, data: string(b[:])}
	case a.Is6():
		b := a.As16()
		return Value{kind: KindIPv6, data: string(b[:])}
	default:
		return Value{}
	}
}

// AddrFromBytes dispatches on length alone: 4 bytes give IPV4, 16 give
// IPV6 even when the content is v4-mapped.
func AddrFromBytes(b []byte) (Value, error) {
	a, err := netaddr.FromBytes(b)
	if err != nil {
		return Value{}, fmt.Errorf("%w: address of %d bytes", ErrRange, len(b))
	}
	if len(b) == netaddr.IPv6Len {
		return IPv6(a), nil
	}
	return Addr(a), nil
}

func IPv4FromBytes(b []byte) (Value, error) {
	a, err := netaddr.FromIPv4Bytes(b)
	if err != nil {
		return Value{}, rangeError(KindIPv4, len(b))
	}
	return Addr(a), nil
}

func IPv6FromBytes(b []byte) (Value, error) {
	a, err := netaddr.FromIPv6Bytes(b)
	if err != nil {
		return Value{}, rangeError(KindIPv6, len(b))
	}
	return IPv6(a), nil
}

// IPv6 forces the 16-byte form; IPv4 addresses become v4-mapped.
func IPv6(a netip.Addr) Value {
	b := netaddr.To16(a).As16()
	return Value{kind: KindIPv6, data: string(b[:])}
}

// StructValue references s. It does not copy.
func StructValue(s *Struct) Value {
	if s == nil {
		return Value{}
	}
	return Value{kind: KindStruct, st: s}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Bits returns the raw payload: sign-extended for signed kinds, IEEE-754
// bits for floats.
func (v Value) Bits() uint64 { return v.bits }

// Int64 converts numeric values. Unsigned 64-bit magnitudes above
// MaxInt64 wrap; floats truncate toward zero.
func (v Value) Int64() int64 {
	switch {
	case v.kind.IsInteger():
		return int64(v.bits)
	case v.kind.IsFloat():
		return int64(v.Float64())
	}
	return 0
}

// Uint64 converts numeric values. Signed negatives wrap.
func (v Value) Uint64() uint64 {
	switch {
	case v.kind.IsInteger():
		return v.bits
	case v.kind.IsFloat():
		return uint64(v.Float64())
	}
	return 0
}

// Float64 converts numeric values. Unsigned kinds convert from their
// unsigned magnitude.
func (v Value) Float64() float64 {
	switch {
	case v.kind.IsSigned():
		return float64(int64(v.bits))
	case v.kind.IsUnsigned():
		return float64(v.bits)
	case v.kind == KindFloat32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case v.kind == KindFloat64:
		return math.Float64frombits(v.bits)
	}
	return 0
}

// Float32 narrows Float64.
func (v Value) Float32() float32 {
	if v.kind == KindFloat32 {
		return math.Float32frombits(uint32(v.bits))
	}
	return float32(v.Float64())
}

// Addr returns the address of an IPV4 or IPV6 value.
func (v Value) Addr() netip.Addr {
	if !v.kind.IsAddress() {
		return netip.Addr{}
	}
	a, _ := netaddr.FromBytes([]byte(v.data))
	return a
}

// Text returns the content of a STRING value, or "".
func (v Value) Text() string {
	if v.kind == KindText {
		return v.data
	}
	return ""
}

// Bytes returns a fresh copy of the content of a BINARY, STRING or address
// value. Every call returns an independent slice.
func (v Value) Bytes() []byte {
	switch v.kind {
	case KindBytes, KindText, KindIPv4, KindIPv6:
		return []byte(v.data)
	}
	return nil
}

// Len is the content length of BINARY and STRING values.
func (v Value) Len() int { return len(v.data) }

// Struct returns the referenced structure of a STRUCT value.
func (v Value) Struct() *Struct { return v.st }

// String renders the text form: unsigned kinds print their unsigned
// magnitude, floats use NaN/Infinity, addresses their canonical form.
func (v Value) String() string {
	switch {
	case v.kind == KindNull:
		return "null"
	case v.kind.IsSigned():
		return strconv.FormatInt(int64(v.bits), 10)
	case v.kind.IsUnsigned():
		return strconv.FormatUint(v.bits, 10)
	case v.kind == KindFloat32:
		return numparse.FormatFloat(v.Float64(), 32)
	case v.kind == KindFloat64:
		return numparse.FormatFloat(v.Float64(), 64)
	case v.kind.IsAddress():
		return netaddr.Format(v.Addr())
	case v.kind == KindText:
		return v.data
	case v.kind == KindBytes:
		return hex.EncodeToString([]byte(v.data))
	case v.kind == KindStruct:
		return v.st.String()
	}
	return v.kind.String()
}

// GoString includes the kind, e.g. UINT16(65535).
func (v Value) GoString() string {
	if v.kind == KindNull {
		return "NULL"
	}
	if v.kind == KindText {
		return v.kind.String() + "(" + strconv.Quote(v.data) + ")"
	}
	return v.kind.String() + "(" + v.String() + ")"
}
