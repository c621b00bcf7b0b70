package ipcstruct

import (
	"slices"

	"github.com/rawbytedev/ipcstruct/internal/common"
	"github.com/rawbytedev/ipcstruct/pkg/schema"
)

// request describes one field access. Every accessor builds one and calls
// resolve, so all of them share the same failure precedence.
type request struct {
	name    string
	idx     int
	indexed bool
	write   bool
	stores  bool   // value must be a storable kind
	value   Kind   // kind of the value being stored
	want    []Kind // accepted field kinds; nil accepts any
}

func forbidden(k Kind) bool {
	return k == KindText || k == KindBytes || k == KindNull
}

// resolve checks, in order: name present, field known, stored kind
// storable, index not negative, arity, index below length, kind family,
// buffer live.
func (s *Struct) resolve(r request) (*schema.Field, error) {
	if r.name == "" {
		return nil, nameRequired(s.Name())
	}
	f, ok := s.schema.Lookup(r.name)
	if !ok {
		return nil, unknownField(s.Name(), r.name)
	}
	if r.stores && forbidden(r.value) {
		return nil, unsupportedKind(f, r.value)
	}
	if r.indexed && r.idx < 0 {
		return nil, outOfRange(f, r.idx)
	}
	switch {
	case r.indexed && !f.IsArray():
		return nil, notArray(f, r.idx)
	case !r.indexed && f.IsArray():
		return nil, indexRequired(f)
	case r.indexed && r.idx >= f.ArrayLen:
		return nil, outOfRange(f, r.idx)
	}
	if r.want != nil && !slices.Contains(r.want, f.Kind) {
		return nil, kindMismatch(f, r.want...)
	}
	if s.buf.Released() {
		return nil, released(f)
	}
	return f, nil
}

// resolveArray is resolve for whole-array accessors. n is the length of
// the supplied array for writes, -1 for a nil array.
func (s *Struct) resolveArray(r request, n int) (*schema.Field, error) {
	if r.name == "" {
		return nil, nameRequired(s.Name())
	}
	f, ok := s.schema.Lookup(r.name)
	if !ok {
		return nil, unknownField(s.Name(), r.name)
	}
	if r.stores && forbidden(r.value) {
		return nil, unsupportedKind(f, r.value)
	}
	if !f.IsArray() {
		return nil, notArray(f, -1)
	}
	if r.write {
		switch {
		case n < 0 && !f.Kind.IsAddress():
			return nil, &FieldError{Err: ErrLengthMismatch, Field: f.String(), Index: -1,
				Length: f.ArrayLen, Detail: "nil array for a non-address field"}
		case n >= 0 && n != f.ArrayLen:
			return nil, lengthMismatch(f, n)
		}
	}
	if r.want != nil && !slices.Contains(r.want, f.Kind) {
		return nil, kindMismatch(f, r.want...)
	}
	if s.buf.Released() {
		return nil, released(f)
	}
	return f, nil
}

// at returns the bytes of element idx of f. Scalars use idx 0.
func (s *Struct) at(f *schema.Field, idx int) []byte {
	off := s.base + f.Offset + idx*f.ElemSize
	return s.buf.Bytes()[off : off+f.ElemSize]
}

func (s *Struct) viewOf(f *schema.Field, idx int) *Struct {
	return &Struct{schema: f.NestedSchema(), buf: s.buf, base: s.base + f.Offset + idx*f.ElemSize}
}

// elemValue decodes element idx of f. Struct elements come back as views.
func (s *Struct) elemValue(f *schema.Field, idx int) Value {
	if f.Kind == KindStruct {
		return StructValue(s.viewOf(f, idx))
	}
	return decode(f.Kind, s.at(f, idx))
}

func decode(k Kind, b []byte) Value {
	switch {
	case k.IsSigned():
		return Value{kind: k, bits: uint64(common.SignExtend(common.ReadFixed(b, len(b)), len(b)))}
	case k.IsUnsigned(), k.IsFloat():
		return Value{kind: k, bits: common.ReadFixed(b, len(b))}
	case k.IsAddress():
		return Value{kind: k, data: string(b)}
	}
	return Value{}
}

// encode stores v into b. Integer bits are truncated to the field width;
// a Null address clears the element.
func encode(b []byte, v Value) {
	switch k := v.kind; {
	case k.IsInteger(), k.IsFloat():
		common.PutFixed(b, len(b), v.bits)
	case k.IsAddress():
		copy(b, v.data)
	case k == KindNull:
		common.Zero(b)
	case k == KindStruct:
		copy(b, v.st.region())
	}
}

// copyValue detaches struct values from the buffer they were read from.
func copyValue(v Value) Value {
	if v.kind != KindStruct {
		return v
	}
	c, err := v.st.Clone()
	if err != nil {
		return Value{}
	}
	return StructValue(c)
}

// Get reads a scalar field.
func (s *Struct) Get(name string) (Value, error) {
	f, err := s.resolve(request{name: name})
	if err != nil {
		return Value{}, err
	}
	return copyValue(s.elemValue(f, 0)), nil
}

// GetAt reads element idx of an array field.
func (s *Struct) GetAt(name string, idx int) (Value, error) {
	f, err := s.resolve(request{name: name, idx: idx, indexed: true})
	if err != nil {
		return Value{}, err
	}
	return copyValue(s.elemValue(f, idx)), nil
}

// Set writes a scalar field. The value kind must equal the field kind;
// STRUCT values must hold the same structure.
func (s *Struct) Set(name string, v Value) error {
	return s.setValue(request{name: name, write: true, stores: true, value: v.kind, want: []Kind{v.kind}}, v)
}

// SetAt writes element idx of an array field.
func (s *Struct) SetAt(name string, idx int, v Value) error {
	return s.setValue(request{name: name, idx: idx, indexed: true, write: true, stores: true, value: v.kind, want: []Kind{v.kind}}, v)
}

func (s *Struct) setValue(r request, v Value) error {
	f, err := s.resolve(r)
	if err != nil {
		return err
	}
	if err := s.checkNested(f, v); err != nil {
		return err
	}
	encode(s.at(f, r.idx), v)
	return nil
}

func (s *Struct) checkNested(f *schema.Field, v Value) error {
	if v.kind != KindStruct {
		return nil
	}
	if v.st.Name() != f.Nested {
		return structMismatch(f, v.st.Name())
	}
	if v.st.Released() {
		return released(f)
	}
	return nil
}

// Array reads every element of an array field.
func (s *Struct) Array(name string) ([]Value, error) {
	f, err := s.resolveArray(request{name: name}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Value, f.ArrayLen)
	for i := range out {
		out[i] = copyValue(s.elemValue(f, i))
	}
	return out, nil
}

// SetArray replaces every element of an array field. vs must have exactly
// the declared length; address fields also accept nil, which clears every
// element, and Null elements, which clear one. Nothing is written unless
// every element is valid.
func (s *Struct) SetArray(name string, vs []Value) error {
	r := request{name: name, write: true}
	f, ok := s.schema.Lookup(name)
	address := ok && f.Kind.IsAddress()
	for _, v := range vs {
		if forbidden(v.kind) && !(address && v.kind == KindNull) {
			r.stores, r.value = true, v.kind
			break
		}
	}
	n := len(vs)
	if vs == nil {
		n = -1
	}
	f, err := s.resolveArray(r, n)
	if err != nil {
		return err
	}
	for _, v := range vs {
		if v.kind == KindNull {
			continue
		}
		if v.kind != f.Kind {
			return kindMismatch(f, v.kind)
		}
		if err := s.checkNested(f, v); err != nil {
			return err
		}
	}
	if vs == nil {
		for i := 0; i < f.ArrayLen; i++ {
			common.Zero(s.at(f, i))
		}
		return nil
	}
	if f.Kind == KindStruct {
		// Sources may be views into s itself; stage them before writing.
		staged := make([][]byte, len(vs))
		for i, v := range vs {
			staged[i] = v.st.Bytes()
		}
		for i, b := range staged {
			copy(s.at(f, i), b)
		}
		return nil
	}
	for i, v := range vs {
		encode(s.at(f, i), v)
	}
	return nil
}
