package ipcstruct

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/rawbytedev/ipcstruct/internal/logging"
	"github.com/rawbytedev/ipcstruct/pkg/schema"
	"github.com/rawbytedev/ipcstruct/zc"
)

// Struct is one structure instance: a schema bound to a region of a
// buffer. Owners allocate and release the buffer; views borrow the
// buffer of an owner and must not be used after the owner is released.
//
// A Struct is not safe for concurrent mutation, and neither are views
// sharing its buffer.
type Struct struct {
	schema *schema.Schema
	buf    *zc.Buffer
	base   int
	owner  bool
}

// New allocates a zero-filled instance of sc.
func New(sc *schema.Schema) *Struct {
	return &Struct{schema: sc, buf: zc.New(sc.Size()), owner: true}
}

// NewNamed allocates a zero-filled instance of the structure called name
// in reg. A nil reg means schema.Default().
func NewNamed(reg *schema.Registry, name string) (*Struct, error) {
	if name == "" {
		return nil, fmt.Errorf("structure: %w", ErrNameRequired)
	}
	if reg == nil {
		reg = schema.Default()
	}
	sc, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	return New(sc), nil
}

// Wrap binds a view of sc at base inside a buffer supplied by the
// transport. The caller keeps ownership of buf.
func Wrap(sc *schema.Schema, buf *zc.Buffer, base int) (*Struct, error) {
	if err := checkRegion(sc, buf, base); err != nil {
		return nil, err
	}
	return &Struct{schema: sc, buf: buf, base: base}, nil
}

// Adopt binds an owning instance of sc at base; releasing the instance
// releases buf.
func Adopt(sc *schema.Schema, buf *zc.Buffer, base int) (*Struct, error) {
	if err := checkRegion(sc, buf, base); err != nil {
		return nil, err
	}
	return &Struct{schema: sc, buf: buf, base: base, owner: true}, nil
}

func checkRegion(sc *schema.Schema, buf *zc.Buffer, base int) error {
	if err := buf.Check(); err != nil {
		return fmt.Errorf("%s: %w", sc.Name(), err)
	}
	if base < 0 || base+sc.Size() > buf.Len() {
		return fmt.Errorf("%s: %w: region [%d,%d) outside buffer of %d bytes",
			sc.Name(), ErrIndexOutOfRange, base, base+sc.Size(), buf.Len())
	}
	return nil
}

func (s *Struct) Schema() *schema.Schema { return s.schema }

func (s *Struct) Name() string { return s.schema.Name() }

// Fields lists the field descriptors in declaration order.
func (s *Struct) Fields() []*schema.Field { return s.schema.Fields() }

// Handle is the (buffer, base offset) pair handed to the transport.
func (s *Struct) Handle() (*zc.Buffer, int) { return s.buf, s.base }

func (s *Struct) IsView() bool { return !s.owner }

func (s *Struct) Released() bool { return s.buf.Released() }

// Bytes returns a copy of the instance's region, or nil once released.
func (s *Struct) Bytes() []byte {
	r := s.region()
	if r == nil {
		return nil
	}
	out := make([]byte, len(r))
	copy(out, r)
	return out
}

func (s *Struct) region() []byte {
	b := s.buf.Bytes()
	if b == nil {
		return nil
	}
	return b[s.base : s.base+s.schema.Size()]
}

// Clone returns an owning deep copy. Nested structures are part of the
// region, so every level is copied.
func (s *Struct) Clone() (*Struct, error) {
	r := s.region()
	if r == nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), ErrReleased)
	}
	return &Struct{schema: s.schema, buf: zc.Copy(r), owner: true}, nil
}

// Release returns an owner's buffer. Views and already released owners
// report false.
func (s *Struct) Release() bool {
	if !s.owner {
		logging.L().Debug().Str("struct", s.Name()).Msg("release ignored on view")
		return false
	}
	return s.buf.Release()
}

// Same reports whether s and o are the same region of the same buffer.
func (s *Struct) Same(o *Struct) bool {
	return s.buf == o.buf && s.base == o.base && s.schema == o.schema
}

// Equal reports field-wise content equality.
func (s *Struct) Equal(o *Struct) bool {
	if s == o || (o != nil && s.Same(o)) {
		return true
	}
	if o == nil {
		return false
	}
	return s.Compare(o) == 0
}

// Compare orders by structure name, then schema ID, then field values in
// declaration order. Released instances sort first.
func (s *Struct) Compare(o *Struct) int {
	if c := strings.Compare(s.Name(), o.Name()); c != 0 {
		return c
	}
	if s.schema != o.schema {
		if c := cmp.Compare(s.schema.ID(), o.schema.ID()); c != 0 {
			return c
		}
	}
	ra, rb := s.region(), o.region()
	switch {
	case ra == nil || rb == nil:
		return cmp.Compare(len(ra), len(rb))
	case s.Same(o):
		return 0
	}
	for _, f := range s.schema.Fields() {
		for i := 0; i < max(1, f.ArrayLen); i++ {
			if c := Compare(s.elemValue(f, i), o.elemValue(f, i)); c != 0 {
				return c
			}
		}
	}
	return 0
}

func (s *Struct) appendKey(b []byte) []byte {
	b = append(b, s.Name()...)
	b = append(b, 0)
	b = binary.LittleEndian.AppendUint64(b, s.schema.ID())
	if s.region() == nil {
		return b
	}
	for _, f := range s.schema.Fields() {
		for i := 0; i < max(1, f.ArrayLen); i++ {
			if f.Kind == KindStruct {
				b = s.viewOf(f, i).appendKey(b)
				continue
			}
			b = appendValueKey(b, s.elemValue(f, i))
		}
	}
	return b
}

// String renders a text dump such as Flow{src=10.0.0.1, ports=[80, 443]}.
func (s *Struct) String() string {
	var b strings.Builder
	s.writeTo(&b)
	return b.String()
}

func (s *Struct) writeTo(b *strings.Builder) {
	b.WriteString(s.Name())
	if s.region() == nil {
		b.WriteString("{released}")
		return
	}
	b.WriteByte('{')
	for n, f := range s.schema.Fields() {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		if f.IsArray() {
			b.WriteByte('[')
		}
		for i := 0; i < max(1, f.ArrayLen); i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			if f.Kind == KindStruct {
				s.viewOf(f, i).writeTo(b)
				continue
			}
			b.WriteString(s.elemValue(f, i).String())
		}
		if f.IsArray() {
			b.WriteByte(']')
		}
	}
	b.WriteByte('}')
}
