// Package schema describes the fixed layouts of IPC structures: which
// fields a structure has, their kinds, array lengths, nesting, and the byte
// offset of each field inside a structure buffer.
//
// Schemas are built once into a Registry from compiled definitions and are
// immutable afterwards, so they can be shared by every structure instance
// without synchronization.
package schema

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownStruct     = errors.New("unknown structure")
	ErrUnknownField      = errors.New("unknown field name")
	ErrInvalidDefinition = errors.New("invalid structure definition")
	ErrAlreadyInstalled  = errors.New("schema: registry already installed")
)

// Field describes one field of a structure.
type Field struct {
	Struct   string // owning structure name
	Name     string
	Kind     Kind
	ArrayLen int    // 0 for scalar fields
	Nested   string // nested structure name, set iff Kind == KindStruct
	Offset   int    // byte offset from the start of the structure
	ElemSize int    // size in bytes of one element

	index  int
	nested *Schema
}

// String returns the canonical "<struct>.<field>" form.
func (f *Field) String() string {
	return f.Struct + "." + f.Name
}

func (f *Field) IsArray() bool { return f.ArrayLen > 0 }

// Index is the position of the field in declaration order.
func (f *Field) Index() int { return f.index }

// Size is the number of bytes the field occupies.
func (f *Field) Size() int {
	if f.ArrayLen > 0 {
		return f.ElemSize * f.ArrayLen
	}
	return f.ElemSize
}

// NestedSchema returns the layout of a struct field's elements, or nil.
func (f *Field) NestedSchema() *Schema { return f.nested }

// Schema is the immutable layout of a named structure.
type Schema struct {
	name   string
	fields []*Field
	byName map[string]*Field
	size   int
	align  int
	id     uint64
}

func (s *Schema) Name() string { return s.name }

// Size is the total byte size of one structure instance.
func (s *Schema) Size() int { return s.size }

func (s *Schema) Align() int { return s.align }

// ID is a fingerprint of the layout, stable across processes that were
// built from the same definitions.
func (s *Schema) ID() uint64 { return s.id }

func (s *Schema) NumFields() int { return len(s.fields) }

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []*Field {
	out := make([]*Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldAt returns the i'th field in declaration order.
func (s *Schema) FieldAt(i int) *Field { return s.fields[i] }

// Lookup finds a field by exact, case-sensitive name.
func (s *Schema) Lookup(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Field is Lookup returning ErrUnknownField on a miss.
func (s *Schema) Field(name string) (*Field, error) {
	f, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, s.name, name)
	}
	return f, nil
}

func (s *Schema) String() string {
	return fmt.Sprintf("%s{size=%d, fields=%d}", s.name, s.size, len(s.fields))
}
