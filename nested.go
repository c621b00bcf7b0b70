package ipcstruct

import "github.com/rawbytedev/ipcstruct/pkg/schema"

var famStruct = []Kind{KindStruct}

// Struct returns an owning deep copy of a nested structure field. Later
// writes to either side are not seen by the other.
func (s *Struct) Struct(name string) (*Struct, error) {
	f, err := s.resolve(request{name: name, want: famStruct})
	if err != nil {
		return nil, err
	}
	return s.viewOf(f, 0).Clone()
}

func (s *Struct) StructAt(name string, i int) (*Struct, error) {
	f, err := s.resolve(request{name: name, idx: i, indexed: true, want: famStruct})
	if err != nil {
		return nil, err
	}
	return s.viewOf(f, i).Clone()
}

// View returns a live view of a nested structure field. Writes through
// the view land in s and writes to s are visible through the view. The
// view must not be used after the owner of s is released.
func (s *Struct) View(name string) (*Struct, error) {
	f, err := s.resolve(request{name: name, want: famStruct})
	if err != nil {
		return nil, err
	}
	return s.viewOf(f, 0), nil
}

func (s *Struct) ViewAt(name string, i int) (*Struct, error) {
	f, err := s.resolve(request{name: name, idx: i, indexed: true, want: famStruct})
	if err != nil {
		return nil, err
	}
	return s.viewOf(f, i), nil
}

// SetStruct copies v into a nested structure field. v must be an instance
// of the field's structure; a nil v is a Null value and is rejected.
func (s *Struct) SetStruct(name string, v *Struct) error {
	return s.setValue(structRequest(name, 0, false, v), StructValue(v))
}

func (s *Struct) SetStructAt(name string, i int, v *Struct) error {
	return s.setValue(structRequest(name, i, true, v), StructValue(v))
}

func structRequest(name string, idx int, indexed bool, v *Struct) request {
	vk := KindStruct
	if v == nil {
		vk = KindNull
	}
	return request{name: name, idx: idx, indexed: indexed, write: true, stores: true, value: vk, want: famStruct}
}

// StructArray returns deep copies of every element of a nested structure
// array.
func (s *Struct) StructArray(name string) ([]*Struct, error) {
	f, err := s.resolveArray(request{name: name, want: famStruct}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*Struct, f.ArrayLen)
	for i := range out {
		if out[i], err = s.viewOf(f, i).Clone(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Views returns live views of every element of a nested structure array.
func (s *Struct) Views(name string) ([]*Struct, error) {
	f, err := s.resolveArray(request{name: name, want: famStruct}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*Struct, f.ArrayLen)
	for i := range out {
		out[i] = s.viewOf(f, i)
	}
	return out, nil
}

// SetStructArray copies every element of vs into a nested structure
// array. vs must match the declared length and hold no nil entries.
func (s *Struct) SetStructArray(name string, vs []*Struct) error {
	r := request{name: name, write: true, want: famStruct}
	for _, v := range vs {
		if v == nil {
			r.stores, r.value = true, KindNull
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
		if err := s.checkNested(f, StructValue(v)); err != nil {
			return err
		}
	}
	// Sources may be views into s itself; stage them before writing.
	staged := make([][]byte, len(vs))
	for i, v := range vs {
		staged[i] = v.Bytes()
	}
	for i, b := range staged {
		copy(s.at(f, i), b)
	}
	return nil
}

// NestedSchema is a convenience for the schema of a struct field.
func (s *Struct) NestedSchema(name string) (*schema.Schema, error) {
	f, err := s.schema.Field(name)
	if err != nil {
		return nil, err
	}
	if f.Kind != KindStruct {
		return nil, kindMismatch(f, KindStruct)
	}
	return f.NestedSchema(), nil
}
