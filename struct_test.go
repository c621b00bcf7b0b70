package ipcstruct

import (
	"math"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/ipcstruct/pkg/schema"
	"github.com/rawbytedev/ipcstruct/zc"
)

func TestScalarScenario(t *testing.T) {
	s := newStruct(t, "S1")

	require.NoError(t, s.Set("f", Int16(300)))
	v, err := s.Get("f")
	require.NoError(t, err)
	assert.True(t, Equal(v, Int16(300)))

	err = s.SetAt("f", 0, Int16(1))
	assert.ErrorIs(t, err, ErrArity)
	assert.EqualError(t, err, "S1.f: not an array field")

	_, err = s.Get("g")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.EqualError(t, err, "unknown field name: S1.g")

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "S1.g", fe.Field)
	assert.Equal(t, "S1{f=300}", s.String())
}

func TestLittleEndianLayout(t *testing.T) {
	reg := testRegistry(t)
	sc, err := reg.Lookup("S1")
	require.NoError(t, err)

	buf := zc.New(64)
	defer buf.Release()
	view, err := Wrap(sc, buf, 10)
	require.NoError(t, err)
	assert.True(t, view.IsView())
	require.NoError(t, view.SetInt16("f", 300))
	assert.Equal(t, []byte{0x2c, 0x01}, buf.Bytes()[10:12])

	h, base := view.Handle()
	assert.Same(t, buf, h)
	assert.Equal(t, 10, base)

	_, err = Wrap(sc, buf, 63)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = Wrap(sc, buf, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestNewNamed(t *testing.T) {
	reg := testRegistry(t)
	_, err := NewNamed(reg, "")
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = NewNamed(reg, "Nope")
	assert.ErrorIs(t, err, ErrUnknownSchema)

	s, err := NewNamed(reg, "Flow")
	require.NoError(t, err)
	defer s.Release()
	assert.False(t, s.IsView())
	for _, b := range s.Bytes() {
		require.Zero(t, b)
	}
	assert.Len(t, s.Fields(), 10)
}

func TestTypedFamilies(t *testing.T) {
	s := newStruct(t, "Flow")

	require.NoError(t, s.SetInt16("port", -1))
	u, err := s.Uint16("port")
	require.NoError(t, err)
	assert.Equal(t, uint16(math.MaxUint16), u)
	v, err := s.Get("port")
	require.NoError(t, err)
	assert.Equal(t, "65535", v.String())

	err = s.SetInt32("port", 1)
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.Contains(t, err.Error(), "INT32 or UINT32")

	_, err = s.Float32("rate")
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.Contains(t, err.Error(), "expects FLOAT")

	require.NoError(t, s.SetFloat64("rate", 2.5))
	require.NoError(t, s.SetFloat32("ratio", 0.5))
	require.NoError(t, s.SetUint64("bytes", math.MaxUint64))
	require.NoError(t, s.SetUint8("proto", 6))
	r, _ := s.Float64("rate")
	assert.Equal(t, 2.5, r)
	q, _ := s.Float32("ratio")
	assert.Equal(t, float32(0.5), q)
	i, _ := s.Int64("bytes")
	assert.Equal(t, int64(-1), i)
	p, _ := s.Int8("proto")
	assert.Equal(t, int8(6), p)
}

func TestGenericSetExactKind(t *testing.T) {
	s := newStruct(t, "Flow")
	err := s.Set("port", Int16(1))
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.Contains(t, err.Error(), "expects INT16")
	require.NoError(t, s.Set("port", Uint16(443)))

	err = s.Set("inner", Int16(1))
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestAccessPrecedence(t *testing.T) {
	s := newStruct(t, "Flow")
	cases := []struct {
		name string
		err  error
		run  func() error
	}{
		{"empty name beats everything", ErrNameRequired, func() error { return s.SetAt("", -1, Text("x")) }},
		{"unknown name beats unsupported kind", ErrUnknownField, func() error { return s.Set("g", Text("x")) }},
		{"unsupported kind beats arity", ErrUnsupportedKind, func() error { return s.SetAt("port", 5, Text("x")) }},
		{"unsupported kind beats range on arrays", ErrUnsupportedKind, func() error { return s.SetAt("ports", 9, Bytes(nil)) }},
		{"null is unsupported", ErrUnsupportedKind, func() error { return s.Set("port", Null()) }},
		{"negative index beats arity", ErrIndexOutOfRange, func() error { _, err := s.GetAt("port", -1); return err }},
		{"negative index beats kind", ErrIndexOutOfRange, func() error { return s.SetAt("ports", -1, Int32(1)) }},
		{"scalar with index", ErrArity, func() error { _, err := s.GetAt("port", 0); return err }},
		{"array without index", ErrArity, func() error { _, err := s.Int16("ports"); return err }},
		{"index beyond length beats kind", ErrIndexOutOfRange, func() error { return s.SetAt("ports", 7, Int32(1)) }},
		{"kind after range", ErrKindMismatch, func() error { return s.SetAt("ports", 3, Int32(1)) }},
		{"typed read beyond length", ErrIndexOutOfRange, func() error { _, err := s.Int16At("ports", 4); return err }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorIs(t, c.run(), c.err)
		})
	}

	_, err := s.Int16At("ports", 4)
	assert.EqualError(t, err, "Flow.ports: index 4 out of range, length 4")
	_, err = s.Int16("ports")
	assert.EqualError(t, err, "Flow.ports: index required")
}

func TestNoPartialWrites(t *testing.T) {
	s := newStruct(t, "Flow")
	require.NoError(t, s.SetInt16Array("ports", []int16{1, 2, 3, 4}))
	before := s.Bytes()

	assert.ErrorIs(t, s.SetAt("ports", 1, Text("x")), ErrUnsupportedKind)
	assert.ErrorIs(t, s.SetInt16Array("ports", []int16{9, 9, 9}), ErrLengthMismatch)
	assert.ErrorIs(t, s.SetInt16Array("ports", []int16{9, 9, 9, 9, 9}), ErrLengthMismatch)
	assert.ErrorIs(t, s.SetArray("ports", []Value{Int16(9), Int16(9), Int16(9), Int32(9)}), ErrKindMismatch)
	assert.ErrorIs(t, s.SetIPv4Array("src", nil), ErrArity)
	assert.Equal(t, before, s.Bytes())
}

func TestWholeArrays(t *testing.T) {
	s := newStruct(t, "Flow")

	require.NoError(t, s.SetInt16Array("ports", []int16{80, 443, -1, 0}))
	got, err := s.Uint16Array("ports")
	require.NoError(t, err)
	assert.Equal(t, []uint16{80, 443, 65535, 0}, got)

	err = s.SetInt32Array("ports", []int32{1, 2, 3})
	assert.ErrorIs(t, err, ErrLengthMismatch, "length is checked before kind")
	err = s.SetInt32Array("ports", []int32{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.ErrorIs(t, s.SetInt16Array("ports", nil), ErrLengthMismatch)
	assert.ErrorIs(t, s.SetInt16Array("port", []int16{1}), ErrArity)

	vals, err := s.Array("ports")
	require.NoError(t, err)
	assert.Equal(t, "[80 443 -1 0]", formatValues(vals))

	require.NoError(t, innerView(t, s).SetUint8Array("tags", []byte("abcd")))
}

func formatValues(vs []Value) string {
	out := "["
	for i, v := range vs {
		if i > 0 {
			out += " "
		}
		out += v.String()
	}
	return out + "]"
}

func innerView(t *testing.T, s *Struct) *Struct {
	t.Helper()
	v, err := s.View("inner")
	require.NoError(t, err)
	return v
}

func TestAddressFields(t *testing.T) {
	s := newStruct(t, "Flow")

	require.NoError(t, s.SetIPv4("src", netip.MustParseAddr("192.168.1.1")))
	a, err := s.IPv4("src")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", a.String())

	require.NoError(t, s.SetIPv4("src", netip.MustParseAddr("::ffff:10.0.0.1")))
	a, _ = s.IPv4("src")
	assert.Equal(t, "10.0.0.1", a.String())
	assert.ErrorIs(t, s.SetIPv4("src", netip.MustParseAddr("::1")), ErrKindMismatch)
	assert.ErrorIs(t, s.SetIPv6("src", netip.MustParseAddr("::1")), ErrKindMismatch)

	hops := []netip.Addr{netip.MustParseAddr("fe80::1%eth0"), netip.MustParseAddr("10.1.1.1")}
	require.NoError(t, s.SetIPv6Array("hops", hops))
	got, err := s.IPv6Array("hops")
	require.NoError(t, err)
	assert.Equal(t, "fe80::1", got[0].String())
	assert.Equal(t, "::ffff:10.1.1.1", got[1].String())

	require.NoError(t, s.SetIPv6Array("hops", nil))
	got, _ = s.IPv6Array("hops")
	assert.Equal(t, netip.IPv6Unspecified(), got[0])
	assert.Equal(t, netip.IPv6Unspecified(), got[1])

	v6, err := ParseIPv6("2001:db8::1")
	require.NoError(t, err)
	require.NoError(t, s.SetArray("hops", []Value{Null(), v6}))
	v, err := s.GetAt("hops", 1)
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", v.String())
	assert.ErrorIs(t, s.SetArray("ports", []Value{Null(), Null(), Null(), Null()}), ErrUnsupportedKind)
}

func fillFlow(t *testing.T, s *Struct) {
	t.Helper()
	require.NoError(t, s.SetUint16("port", 8080))
	require.NoError(t, s.SetFloat64("rate", math.NaN()))
	require.NoError(t, s.SetInt16Array("ports", []int16{1, 2, 3, 4}))
	in := innerView(t, s)
	require.NoError(t, in.SetUint32("id", 7))
	require.NoError(t, in.SetUint8Array("tags", []byte{1, 2, 3, 4}))
	for i := 0; i < 2; i++ {
		v, err := s.ViewAt("inners", i)
		require.NoError(t, err)
		require.NoError(t, v.SetUint32("id", uint32(100+i)))
	}
}

func TestCloneLaw(t *testing.T) {
	s := newStruct(t, "Flow")
	fillFlow(t, s)

	c, err := s.Clone()
	require.NoError(t, err)
	defer c.Release()
	assert.False(t, c.Same(s))
	assert.True(t, c.Equal(s), "NaN fields compare equal")
	assert.Equal(t, StructValue(s).Key(), StructValue(c).Key())

	deep, err := s.ViewAt("inners", 1)
	require.NoError(t, err)
	require.NoError(t, deep.SetUint32("id", 999))
	assert.False(t, c.Equal(s))
	cv, err := c.ViewAt("inners", 1)
	require.NoError(t, err)
	id, _ := cv.Uint32("id")
	assert.Equal(t, uint32(101), id)

	require.NoError(t, cv.SetUint8At("tags", 0, 42))
	tag, _ := deep.Uint8At("tags", 0)
	assert.Zero(t, tag)

	require.True(t, s.Release())
	id, err = cv.Uint32("id")
	require.NoError(t, err, "clones survive the original's release")
	assert.Equal(t, uint32(101), id)
}

func TestCopyVersusView(t *testing.T) {
	s := newStruct(t, "Flow")
	fillFlow(t, s)

	cp, err := s.Struct("inner")
	require.NoError(t, err)
	defer cp.Release()
	view, err := s.View("inner")
	require.NoError(t, err)

	require.NoError(t, view.SetUint32("id", 8))
	id, _ := cp.Uint32("id")
	assert.Equal(t, uint32(7), id, "copies are isolated")

	require.NoError(t, s.SetStruct("inner", cp))
	id, _ = view.Uint32("id")
	assert.Equal(t, uint32(7), id, "views see parent writes")

	v, err := s.Get("inner")
	require.NoError(t, err)
	assert.Equal(t, KindStruct, v.Kind())
	assert.True(t, v.Struct().Equal(view))
	assert.False(t, v.Struct().IsView())

	other := newStruct(t, "Other")
	assert.ErrorIs(t, s.SetStruct("inner", other), ErrKindMismatch)
	assert.ErrorIs(t, s.SetStruct("inner", nil), ErrUnsupportedKind)
	assert.ErrorIs(t, s.SetStructAt("inner", 0, cp), ErrArity)
}

func TestSetStructArrayFromOwnViews(t *testing.T) {
	s := newStruct(t, "Flow")
	fillFlow(t, s)

	views, err := s.Views("inners")
	require.NoError(t, err)
	require.NoError(t, s.SetStructArray("inners", []*Struct{views[1], views[0]}))

	copies, err := s.StructArray("inners")
	require.NoError(t, err)
	a, _ := copies[0].Uint32("id")
	b, _ := copies[1].Uint32("id")
	assert.Equal(t, []uint32{101, 100}, []uint32{a, b})

	assert.ErrorIs(t, s.SetStructArray("inners", []*Struct{views[0]}), ErrLengthMismatch)
	assert.ErrorIs(t, s.SetStructArray("inners", []*Struct{views[0], nil}), ErrUnsupportedKind)
	assert.ErrorIs(t, s.SetStructArray("inner", []*Struct{views[0]}), ErrArity)
}

func TestSetArrayFromOwnViews(t *testing.T) {
	s := newStruct(t, "Flow")
	fillFlow(t, s)

	views, err := s.Views("inners")
	require.NoError(t, err)
	require.NoError(t, s.SetArray("inners", []Value{StructValue(views[1]), StructValue(views[0])}))

	ids := make([]uint32, 2)
	for i := range ids {
		v, err := s.ViewAt("inners", i)
		require.NoError(t, err)
		ids[i], _ = v.Uint32("id")
	}
	assert.Equal(t, []uint32{101, 100}, ids)
}

func TestCompareAcrossRegistries(t *testing.T) {
	narrow := schema.MustRegistry(schema.Definition{Name: "S", Fields: []schema.FieldDefinition{
		{Name: "f", Type: "int16"},
	}})
	wide := schema.MustRegistry(schema.Definition{Name: "S", Fields: []schema.FieldDefinition{
		{Name: "f", Type: "int16"},
		{Name: "g", Type: "int64"},
	}})
	same := schema.MustRegistry(schema.Definition{Name: "S", Fields: []schema.FieldDefinition{
		{Name: "f", Type: "int16"},
	}})

	a, err := NewNamed(narrow, "S")
	require.NoError(t, err)
	defer a.Release()
	b, err := NewNamed(wide, "S")
	require.NoError(t, err)
	defer b.Release()
	c, err := NewNamed(same, "S")
	require.NoError(t, err)
	defer c.Release()

	assert.False(t, a.Equal(b))
	assert.NotZero(t, a.Compare(b))
	assert.Equal(t, -a.Compare(b), b.Compare(a))
	assert.NotEqual(t, StructValue(a).Key(), StructValue(b).Key())

	assert.True(t, a.Equal(c), "identical layouts from separate registries compare by content")
	assert.Equal(t, StructValue(a).Key(), StructValue(c).Key())
}

func TestRelease(t *testing.T) {
	reg := testRegistry(t)
	s, err := NewNamed(reg, "Flow")
	require.NoError(t, err)
	view := innerView(t, s)

	assert.False(t, view.Release(), "views never release")
	assert.True(t, s.Release())
	assert.False(t, s.Release())

	_, err = s.Get("port")
	assert.ErrorIs(t, err, ErrReleased)
	_, err = view.Uint32("id")
	assert.ErrorIs(t, err, ErrReleased)
	_, err = s.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownField, "validation runs before the buffer check")
	_, err = s.Clone()
	assert.ErrorIs(t, err, ErrReleased)
	assert.Nil(t, s.Bytes())
	assert.Equal(t, "Flow{released}", s.String())
}

func TestStructOrdering(t *testing.T) {
	a := newStruct(t, "S1")
	b := newStruct(t, "S1")
	require.NoError(t, a.SetInt16("f", -5))
	require.NoError(t, b.SetInt16("f", 3))
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, Compare(StructValue(b), StructValue(a)))
	assert.Positive(t, Compare(StructValue(a), StructValue(newStruct(t, "Flow"))), "structures order by name first")
}
