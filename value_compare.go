package ipcstruct

import (
	"cmp"
	"math"
	"strings"

	"github.com/rawbytedev/ipcstruct/internal/common"
)

// Compare orders two values. Values of different kinds order by kind, so
// Null sorts before everything else. Unsigned kinds compare as unsigned
// magnitudes. Floats follow IEEE-754 order with -0 equal to +0, except that
// every NaN equals every other NaN and sorts after +Inf.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch k := a.kind; {
	case k == KindNull:
		return 0
	case k.IsSigned():
		return cmp.Compare(int64(a.bits), int64(b.bits))
	case k.IsUnsigned():
		return cmp.Compare(a.bits, b.bits)
	case k.IsFloat():
		return compareFloat(a.Float64(), b.Float64())
	case k == KindStruct:
		return compareStructs(a.st, b.st)
	default:
		return strings.Compare(a.data, b.data)
	}
}

func compareFloat(x, y float64) int {
	xn, yn := math.IsNaN(x), math.IsNaN(y)
	switch {
	case xn && yn:
		return 0
	case xn:
		return 1
	case yn:
		return -1
	}
	return cmp.Compare(x, y)
}

func compareStructs(a, b *Struct) int {
	switch {
	case a == b:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(b)
}

// Equal reports Compare(a, b) == 0.
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

func (v Value) Compare(o Value) int { return Compare(v, o) }

func (v Value) Equal(o Value) bool { return Compare(v, o) == 0 }

// Key is a comparable form of a Value: two values have the same Key iff
// they are Equal. It is meant for map keys and uniqueness sets.
type Key struct {
	kind Kind
	bits uint64
	data string
}

const (
	canonicalNaN32 = 0x7fc00000
	canonicalNaN64 = 0x7ff8000000000000
)

// Key canonicalizes NaN payloads and negative zero. Structures key on
// their field contents.
func (v Value) Key() Key {
	switch v.kind {
	case KindFloat32:
		f := math.Float32frombits(uint32(v.bits))
		switch {
		case f != f:
			return Key{kind: v.kind, bits: canonicalNaN32}
		case f == 0:
			return Key{kind: v.kind}
		}
	case KindFloat64:
		f := math.Float64frombits(v.bits)
		switch {
		case math.IsNaN(f):
			return Key{kind: v.kind, bits: canonicalNaN64}
		case f == 0:
			return Key{kind: v.kind}
		}
	case KindStruct:
		return Key{kind: v.kind, data: string(v.st.appendKey(nil))}
	}
	return Key{kind: v.kind, bits: v.bits, data: v.data}
}

func appendValueKey(b []byte, v Value) []byte {
	k := v.Key()
	b = append(b, byte(k.kind))
	b = common.WriteVarUint(b, k.bits)
	b = common.WriteVarUint(b, uint64(len(k.data)))
	return append(b, k.data...)
}
