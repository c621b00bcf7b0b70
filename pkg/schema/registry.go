package schema

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/zeebo/blake3"

	"github.com/rawbytedev/ipcstruct/internal/common"
	"github.com/rawbytedev/ipcstruct/internal/logging"
)

// Definition is one structure as supplied by a compiled definition source.
type Definition struct {
	Name   string            `yaml:"name" json:"name" cbor:"name"`
	Size   int               `yaml:"size,omitempty" json:"size,omitempty" cbor:"size,omitempty"`
	Fields []FieldDefinition `yaml:"fields" json:"fields" cbor:"fields"`
}

// FieldDefinition is one field of a Definition.
type FieldDefinition struct {
	Name   string `yaml:"name" json:"name" cbor:"name"`
	Type   string `yaml:"type" json:"type" cbor:"type"`
	Array  int    `yaml:"array,omitempty" json:"array,omitempty" cbor:"array,omitempty"`
	Struct string `yaml:"struct,omitempty" json:"struct,omitempty" cbor:"struct,omitempty"`
}

// Registry maps structure names to schemas. It is immutable once built.
type Registry struct {
	schemas map[string]*Schema
	order   []string
}

// NewRegistry resolves defs into schemas. Nested references may point at
// any definition in defs regardless of order; cycles are rejected.
func NewRegistry(defs ...Definition) (*Registry, error) {
	b := &builder{
		defs:    make(map[string]*Definition, len(defs)),
		done:    make(map[string]*Schema, len(defs)),
		visited: make(map[string]bool, len(defs)),
	}
	order := make([]string, 0, len(defs))
	for i := range defs {
		d := &defs[i]
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%w: definition %d has no name", ErrInvalidDefinition, i)
		}
		if _, dup := b.defs[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate structure %q", ErrInvalidDefinition, d.Name)
		}
		b.defs[d.Name] = d
		order = append(order, d.Name)
	}
	for _, name := range order {
		if _, err := b.resolve(name); err != nil {
			return nil, err
		}
	}
	logging.L().Debug().Int("structs", len(order)).Msg("schema registry built")
	return &Registry{schemas: b.done, order: order}, nil
}

// MustRegistry is NewRegistry panicking on error, for static definitions.
func MustRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup resolves a structure by name.
func (r *Registry) Lookup(name string) (*Schema, error) {
	if s, ok := r.schemas[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStruct, name)
}

// Names lists the structures in definition order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.order) }

// Definitions returns the definitions the registry was built from, with
// every Size filled in.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		s := r.schemas[name]
		d := Definition{Name: s.name, Size: s.size, Fields: make([]FieldDefinition, 0, len(s.fields))}
		for _, f := range s.fields {
			d.Fields = append(d.Fields, FieldDefinition{
				Name:   f.Name,
				Type:   f.Kind.String(),
				Array:  f.ArrayLen,
				Struct: f.Nested,
			})
		}
		out = append(out, d)
	}
	return out
}

type builder struct {
	defs    map[string]*Definition
	done    map[string]*Schema
	visited map[string]bool
}

func (b *builder) resolve(name string) (*Schema, error) {
	if s, ok := b.done[name]; ok {
		return s, nil
	}
	d, ok := b.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStruct, name)
	}
	if b.visited[name] {
		return nil, fmt.Errorf("%w: structure %q contains itself", ErrInvalidDefinition, name)
	}
	b.visited[name] = true

	s := &Schema{
		name:   d.Name,
		fields: make([]*Field, 0, len(d.Fields)),
		byName: make(map[string]*Field, len(d.Fields)),
		align:  1,
	}
	off := 0
	for i, fd := range d.Fields {
		f, err := b.field(d.Name, i, fd)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %s.%s", ErrInvalidDefinition, d.Name, f.Name)
		}
		align := f.Kind.Align()
		if f.nested != nil {
			align = f.nested.align
		}
		off = common.Align(off, align)
		f.Offset = off
		off += f.Size()
		if align > s.align {
			s.align = align
		}
		s.fields = append(s.fields, f)
		s.byName[f.Name] = f
	}
	s.size = common.Align(off, s.align)
	if d.Size > 0 {
		if d.Size < s.size {
			return nil, fmt.Errorf("%w: %s declares size %d but needs %d", ErrInvalidDefinition, d.Name, d.Size, s.size)
		}
		s.size = d.Size
	}
	s.id = fingerprint(s)
	b.done[name] = s
	return s, nil
}

func (b *builder) field(owner string, index int, fd FieldDefinition) (*Field, error) {
	if strings.TrimSpace(fd.Name) == "" {
		return nil, fmt.Errorf("%w: %s field %d has no name", ErrInvalidDefinition, owner, index)
	}
	kind, err := ParseKind(fd.Type)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", owner, fd.Name, err)
	}
	if !kind.Storable() {
		return nil, fmt.Errorf("%w: %s.%s: kind %s cannot be stored in a structure", ErrInvalidDefinition, owner, fd.Name, kind)
	}
	if fd.Array < 0 {
		return nil, fmt.Errorf("%w: %s.%s: negative array length %d", ErrInvalidDefinition, owner, fd.Name, fd.Array)
	}
	f := &Field{
		Struct:   owner,
		Name:     fd.Name,
		Kind:     kind,
		ArrayLen: fd.Array,
		ElemSize: kind.Width(),
		index:    index,
	}
	switch {
	case kind == KindStruct && fd.Struct == "":
		return nil, fmt.Errorf("%w: %s.%s: struct field without nested structure name", ErrInvalidDefinition, owner, fd.Name)
	case kind != KindStruct && fd.Struct != "":
		return nil, fmt.Errorf("%w: %s.%s: nested structure name on %s field", ErrInvalidDefinition, owner, fd.Name, kind)
	case kind == KindStruct:
		nested, err := b.resolve(fd.Struct)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", owner, fd.Name, err)
		}
		f.Nested = fd.Struct
		f.nested = nested
		f.ElemSize = nested.size
	}
	return f, nil
}

// fingerprint hashes the canonical layout of s, nested layouts included
// through their own fingerprints.
func fingerprint(s *Schema) uint64 {
	h := blake3.New()
	fmt.Fprintf(h, "%s:%d:%d\n", s.name, s.size, s.align)
	for _, f := range s.fields {
		var nestedID uint64
		if f.nested != nil {
			nestedID = f.nested.id
		}
		fmt.Fprintf(h, "%s:%s:%d:%d:%x\n", f.Name, f.Kind, f.ArrayLen, f.Offset, nestedID)
	}
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// Merge builds a registry holding the definitions of every input.
func Merge(regs ...*Registry) (*Registry, error) {
	var defs []Definition
	for _, r := range regs {
		defs = append(defs, r.Definitions()...)
	}
	return NewRegistry(defs...)
}

var (
	global atomic.Pointer[Registry]
	empty  = &Registry{schemas: map[string]*Schema{}}
)

// Install publishes r as the process-wide registry. It succeeds once.
func Install(r *Registry) error {
	if r == nil {
		return fmt.Errorf("%w: nil registry", ErrInvalidDefinition)
	}
	if !global.CompareAndSwap(nil, r) {
		return ErrAlreadyInstalled
	}
	names := r.Names()
	sort.Strings(names)
	logging.L().Debug().Strs("structs", names).Msg("schema registry installed")
	return nil
}

// Default returns the installed process-wide registry, or an empty one.
func Default() *Registry {
	if r := global.Load(); r != nil {
		return r
	}
	return empty
}

// Lookup resolves name in the process-wide registry.
func Lookup(name string) (*Schema, error) {
	return Default().Lookup(name)
}
