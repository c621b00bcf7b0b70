package ipcstruct

import (
	"math"
	"net/netip"

	"github.com/rawbytedev/ipcstruct/internal/common"
	"github.com/rawbytedev/ipcstruct/pkg/netaddr"
	"github.com/rawbytedev/ipcstruct/pkg/schema"
)

// codec binds a native Go type to the field kinds it may access. Integer
// accessors accept both signednesses of their width.
type codec[T any] struct {
	want  []Kind
	get   func([]byte) T
	put   func([]byte, T)
	valid func(T) bool // nil accepts every value
}

var (
	fam8  = []Kind{KindInt8, KindUint8}
	fam16 = []Kind{KindInt16, KindUint16}
	fam32 = []Kind{KindInt32, KindUint32}
	fam64 = []Kind{KindInt64, KindUint64}
)

func intCodec[T ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64](want []Kind, width int) *codec[T] {
	return &codec[T]{
		want: want,
		get:  func(b []byte) T { return T(common.ReadFixed(b, width)) },
		put:  func(b []byte, v T) { common.PutFixed(b, width, uint64(v)) },
	}
}

var (
	int8Codec   = intCodec[int8](fam8, 1)
	uint8Codec  = intCodec[uint8](fam8, 1)
	int16Codec  = intCodec[int16](fam16, 2)
	uint16Codec = intCodec[uint16](fam16, 2)
	int32Codec  = intCodec[int32](fam32, 4)
	uint32Codec = intCodec[uint32](fam32, 4)
	int64Codec  = intCodec[int64](fam64, 8)
	uint64Codec = intCodec[uint64](fam64, 8)

	float32Codec = &codec[float32]{
		want: []Kind{KindFloat32},
		get:  func(b []byte) float32 { return math.Float32frombits(uint32(common.ReadFixed(b, 4))) },
		put:  func(b []byte, v float32) { common.PutFixed(b, 4, uint64(math.Float32bits(v))) },
	}
	float64Codec = &codec[float64]{
		want: []Kind{KindFloat64},
		get:  func(b []byte) float64 { return math.Float64frombits(common.ReadFixed(b, 8)) },
		put:  func(b []byte, v float64) { common.PutFixed(b, 8, math.Float64bits(v)) },
	}

	// The zero netip.Addr is the no-value address and clears an element.
	ipv4Codec = &codec[netip.Addr]{
		want: []Kind{KindIPv4},
		get:  func(b []byte) netip.Addr { return netip.AddrFrom4([4]byte(b)) },
		put: func(b []byte, a netip.Addr) {
			if !a.IsValid() {
				common.Zero(b)
				return
			}
			v4 := a.Unmap().As4()
			copy(b, v4[:])
		},
		valid: func(a netip.Addr) bool { return !a.IsValid() || a.Unmap().Is4() },
	}
	ipv6Codec = &codec[netip.Addr]{
		want: []Kind{KindIPv6},
		get:  func(b []byte) netip.Addr { return netip.AddrFrom16([16]byte(b)) },
		put: func(b []byte, a netip.Addr) {
			if !a.IsValid() {
				common.Zero(b)
				return
			}
			v6 := netaddr.To16(a).As16()
			copy(b, v6[:])
		},
	}
)

func invalidAddr(f *schema.Field, a netip.Addr) error {
	return &FieldError{Err: ErrKindMismatch, Field: f.String(), Kind: KindIPv6, Want: []Kind{KindIPv4},
		Detail: "address " + netaddr.Format(a) + " is not IPv4"}
}

func load[T any](s *Struct, c *codec[T], name string, idx int, indexed bool) (T, error) {
	var zero T
	f, err := s.resolve(request{name: name, idx: idx, indexed: indexed, want: c.want})
	if err != nil {
		return zero, err
	}
	return c.get(s.at(f, idx)), nil
}

func store[T any](s *Struct, c *codec[T], name string, idx int, indexed bool, v T) error {
	f, err := s.resolve(request{name: name, idx: idx, indexed: indexed, write: true, want: c.want})
	if err != nil {
		return err
	}
	if c.valid != nil && !c.valid(v) {
		return invalidAddr(f, any(v).(netip.Addr))
	}
	c.put(s.at(f, idx), v)
	return nil
}

func loadAll[T any](s *Struct, c *codec[T], name string) ([]T, error) {
	f, err := s.resolveArray(request{name: name, want: c.want}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]T, f.ArrayLen)
	for i := range out {
		out[i] = c.get(s.at(f, i))
	}
	return out, nil
}

func storeAll[T any](s *Struct, c *codec[T], name string, vs []T) error {
	n := len(vs)
	if vs == nil {
		n = -1
	}
	f, err := s.resolveArray(request{name: name, write: true, want: c.want}, n)
	if err != nil {
		return err
	}
	if vs == nil {
		for i := 0; i < f.ArrayLen; i++ {
			common.Zero(s.at(f, i))
		}
		return nil
	}
	if c.valid != nil {
		for _, v := range vs {
			if !c.valid(v) {
				return invalidAddr(f, any(v).(netip.Addr))
			}
		}
	}
	for i, v := range vs {
		c.put(s.at(f, i), v)
	}
	return nil
}

func (s *Struct) Int8(name string) (int8, error) { return load(s, int8Codec, name, 0, false) }
func (s *Struct) Int8At(name string, i int) (int8, error) {
	return load(s, int8Codec, name, i, true)
}
func (s *Struct) SetInt8(name string, v int8) error { return store(s, int8Codec, name, 0, false, v) }
func (s *Struct) SetInt8At(name string, i int, v int8) error {
	return store(s, int8Codec, name, i, true, v)
}
func (s *Struct) Int8Array(name string) ([]int8, error) { return loadAll(s, int8Codec, name) }
func (s *Struct) SetInt8Array(name string, v []int8) error {
	return storeAll(s, int8Codec, name, v)
}

func (s *Struct) Uint8(name string) (uint8, error) { return load(s, uint8Codec, name, 0, false) }
func (s *Struct) Uint8At(name string, i int) (uint8, error) {
	return load(s, uint8Codec, name, i, true)
}
func (s *Struct) SetUint8(name string, v uint8) error { return store(s, uint8Codec, name, 0, false, v) }
func (s *Struct) SetUint8At(name string, i int, v uint8) error {
	return store(s, uint8Codec, name, i, true, v)
}

// Uint8Array reads an 8-bit array field as a byte slice.
func (s *Struct) Uint8Array(name string) ([]byte, error) { return loadAll(s, uint8Codec, name) }
func (s *Struct) SetUint8Array(name string, v []byte) error {
	return storeAll(s, uint8Codec, name, v)
}

func (s *Struct) Int16(name string) (int16, error) { return load(s, int16Codec, name, 0, false) }
func (s *Struct) Int16At(name string, i int) (int16, error) {
	return load(s, int16Codec, name, i, true)
}
func (s *Struct) SetInt16(name string, v int16) error { return store(s, int16Codec, name, 0, false, v) }
func (s *Struct) SetInt16At(name string, i int, v int16) error {
	return store(s, int16Codec, name, i, true, v)
}
func (s *Struct) Int16Array(name string) ([]int16, error) { return loadAll(s, int16Codec, name) }
func (s *Struct) SetInt16Array(name string, v []int16) error {
	return storeAll(s, int16Codec, name, v)
}

func (s *Struct) Uint16(name string) (uint16, error) { return load(s, uint16Codec, name, 0, false) }
func (s *Struct) Uint16At(name string, i int) (uint16, error) {
	return load(s, uint16Codec, name, i, true)
}
func (s *Struct) SetUint16(name string, v uint16) error {
	return store(s, uint16Codec, name, 0, false, v)
}
func (s *Struct) SetUint16At(name string, i int, v uint16) error {
	return store(s, uint16Codec, name, i, true, v)
}
func (s *Struct) Uint16Array(name string) ([]uint16, error) { return loadAll(s, uint16Codec, name) }
func (s *Struct) SetUint16Array(name string, v []uint16) error {
	return storeAll(s, uint16Codec, name, v)
}

func (s *Struct) Int32(name string) (int32, error) { return load(s, int32Codec, name, 0, false) }
func (s *Struct) Int32At(name string, i int) (int32, error) {
	return load(s, int32Codec, name, i, true)
}
func (s *Struct) SetInt32(name string, v int32) error { return store(s, int32Codec, name, 0, false, v) }
func (s *Struct) SetInt32At(name string, i int, v int32) error {
	return store(s, int32Codec, name, i, true, v)
}
func (s *Struct) Int32Array(name string) ([]int32, error) { return loadAll(s, int32Codec, name) }
func (s *Struct) SetInt32Array(name string, v []int32) error {
	return storeAll(s, int32Codec, name, v)
}

func (s *Struct) Uint32(name string) (uint32, error) { return load(s, uint32Codec, name, 0, false) }
func (s *Struct) Uint32At(name string, i int) (uint32, error) {
	return load(s, uint32Codec, name, i, true)
}
func (s *Struct) SetUint32(name string, v uint32) error {
	return store(s, uint32Codec, name, 0, false, v)
}
func (s *Struct) SetUint32At(name string, i int, v uint32) error {
	return store(s, uint32Codec, name, i, true, v)
}
func (s *Struct) Uint32Array(name string) ([]uint32, error) { return loadAll(s, uint32Codec, name) }
func (s *Struct) SetUint32Array(name string, v []uint32) error {
	return storeAll(s, uint32Codec, name, v)
}

func (s *Struct) Int64(name string) (int64, error) { return load(s, int64Codec, name, 0, false) }
func (s *Struct) Int64At(name string, i int) (int64, error) {
	return load(s, int64Codec, name, i, true)
}
func (s *Struct) SetInt64(name string, v int64) error { return store(s, int64Codec, name, 0, false, v) }
func (s *Struct) SetInt64At(name string, i int, v int64) error {
	return store(s, int64Codec, name, i, true, v)
}
func (s *Struct) Int64Array(name string) ([]int64, error) { return loadAll(s, int64Codec, name) }
func (s *Struct) SetInt64Array(name string, v []int64) error {
	return storeAll(s, int64Codec, name, v)
}

func (s *Struct) Uint64(name string) (uint64, error) { return load(s, uint64Codec, name, 0, false) }
func (s *Struct) Uint64At(name string, i int) (uint64, error) {
	return load(s, uint64Codec, name, i, true)
}
func (s *Struct) SetUint64(name string, v uint64) error {
	return store(s, uint64Codec, name, 0, false, v)
}
func (s *Struct) SetUint64At(name string, i int, v uint64) error {
	return store(s, uint64Codec, name, i, true, v)
}
func (s *Struct) Uint64Array(name string) ([]uint64, error) { return loadAll(s, uint64Codec, name) }
func (s *Struct) SetUint64Array(name string, v []uint64) error {
	return storeAll(s, uint64Codec, name, v)
}

// Float32 and Float64 accept only their own kind.
func (s *Struct) Float32(name string) (float32, error) {
	return load(s, float32Codec, name, 0, false)
}
func (s *Struct) Float32At(name string, i int) (float32, error) {
	return load(s, float32Codec, name, i, true)
}
func (s *Struct) SetFloat32(name string, v float32) error {
	return store(s, float32Codec, name, 0, false, v)
}
func (s *Struct) SetFloat32At(name string, i int, v float32) error {
	return store(s, float32Codec, name, i, true, v)
}
func (s *Struct) Float32Array(name string) ([]float32, error) {
	return loadAll(s, float32Codec, name)
}
func (s *Struct) SetFloat32Array(name string, v []float32) error {
	return storeAll(s, float32Codec, name, v)
}

func (s *Struct) Float64(name string) (float64, error) {
	return load(s, float64Codec, name, 0, false)
}
func (s *Struct) Float64At(name string, i int) (float64, error) {
	return load(s, float64Codec, name, i, true)
}
func (s *Struct) SetFloat64(name string, v float64) error {
	return store(s, float64Codec, name, 0, false, v)
}
func (s *Struct) SetFloat64At(name string, i int, v float64) error {
	return store(s, float64Codec, name, i, true, v)
}
func (s *Struct) Float64Array(name string) ([]float64, error) {
	return loadAll(s, float64Codec, name)
}
func (s *Struct) SetFloat64Array(name string, v []float64) error {
	return storeAll(s, float64Codec, name, v)
}

// IPv4 reads a 4-byte address field. SetIPv4 accepts IPv4 and v4-mapped
// addresses; the zero netip.Addr clears the field.
func (s *Struct) IPv4(name string) (netip.Addr, error) { return load(s, ipv4Codec, name, 0, false) }
func (s *Struct) IPv4At(name string, i int) (netip.Addr, error) {
	return load(s, ipv4Codec, name, i, true)
}
func (s *Struct) SetIPv4(name string, a netip.Addr) error {
	return store(s, ipv4Codec, name, 0, false, a)
}
func (s *Struct) SetIPv4At(name string, i int, a netip.Addr) error {
	return store(s, ipv4Codec, name, i, true, a)
}
func (s *Struct) IPv4Array(name string) ([]netip.Addr, error) { return loadAll(s, ipv4Codec, name) }

// SetIPv4Array also accepts nil, which clears every element.
func (s *Struct) SetIPv4Array(name string, v []netip.Addr) error {
	return storeAll(s, ipv4Codec, name, v)
}

// IPv6 reads a 16-byte address field. IPv4 addresses written to it are
// stored v4-mapped.
func (s *Struct) IPv6(name string) (netip.Addr, error) { return load(s, ipv6Codec, name, 0, false) }
func (s *Struct) IPv6At(name string, i int) (netip.Addr, error) {
	return load(s, ipv6Codec, name, i, true)
}
func (s *Struct) SetIPv6(name string, a netip.Addr) error {
	return store(s, ipv6Codec, name, 0, false, a)
}
func (s *Struct) SetIPv6At(name string, i int, a netip.Addr) error {
	return store(s, ipv6Codec, name, i, true, a)
}
func (s *Struct) IPv6Array(name string) ([]netip.Addr, error) { return loadAll(s, ipv6Codec, name) }
func (s *Struct) SetIPv6Array(name string, v []netip.Addr) error {
	return storeAll(s, ipv6Codec, name, v)
}
