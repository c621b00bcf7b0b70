package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/ipcstruct/internal/testutil/testlog"
)

func hdrDefs() []Definition {
	return []Definition{
		{Name: "Outer", Fields: []FieldDefinition{
			{Name: "x", Type: "int8"},
			{Name: "h", Type: "struct", Struct: "Hdr", Array: 2},
		}},
		{Name: "Hdr", Fields: []FieldDefinition{
			{Name: "a", Type: "INT8"},
			{Name: "b", Type: "int32"},
			{Name: "c", Type: "ipv6"},
			{Name: "d", Type: "int16", Array: 3},
		}},
	}
}

func TestLayout(t *testing.T) {
	testlog.Start(t)
	r, err := NewRegistry(hdrDefs()...)
	require.NoError(t, err)

	hdr, err := r.Lookup("Hdr")
	require.NoError(t, err)
	offsets := map[string]int{}
	for _, f := range hdr.Fields() {
		offsets[f.Name] = f.Offset
	}
	assert.Equal(t, map[string]int{"a": 0, "b": 4, "c": 8, "d": 24}, offsets)
	assert.Equal(t, 32, hdr.Size())
	assert.Equal(t, 4, hdr.Align())

	outer, err := r.Lookup("Outer")
	require.NoError(t, err)
	h, ok := outer.Lookup("h")
	require.True(t, ok)
	assert.Equal(t, 4, h.Offset)
	assert.Equal(t, 32, h.ElemSize)
	assert.Equal(t, 64, h.Size())
	assert.Same(t, hdr, h.NestedSchema())
	assert.Equal(t, 68, outer.Size())
	assert.Equal(t, "Outer.h", h.String())
	assert.Equal(t, []string{"Outer", "Hdr"}, r.Names())
}

func TestDeclaredSize(t *testing.T) {
	r, err := NewRegistry(Definition{Name: "P", Size: 16, Fields: []FieldDefinition{{Name: "v", Type: "int32"}}})
	require.NoError(t, err)
	s, _ := r.Lookup("P")
	assert.Equal(t, 16, s.Size())

	_, err = NewRegistry(Definition{Name: "P", Size: 2, Fields: []FieldDefinition{{Name: "v", Type: "int32"}}})
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestRegistryRejects(t *testing.T) {
	cases := map[string][]Definition{
		"text field":     {{Name: "A", Fields: []FieldDefinition{{Name: "s", Type: "string"}}}},
		"bytes field":    {{Name: "A", Fields: []FieldDefinition{{Name: "s", Type: "binary"}}}},
		"null field":     {{Name: "A", Fields: []FieldDefinition{{Name: "s", Type: "null"}}}},
		"bad kind":       {{Name: "A", Fields: []FieldDefinition{{Name: "s", Type: "complex128"}}}},
		"negative array": {{Name: "A", Fields: []FieldDefinition{{Name: "s", Type: "int8", Array: -1}}}},
		"duplicate field": {{Name: "A", Fields: []FieldDefinition{
			{Name: "s", Type: "int8"}, {Name: "s", Type: "int16"},
		}}},
		"duplicate struct": {{Name: "A"}, {Name: "A"}},
		"self nesting":     {{Name: "A", Fields: []FieldDefinition{{Name: "a", Type: "struct", Struct: "A"}}}},
		"cycle": {
			{Name: "A", Fields: []FieldDefinition{{Name: "b", Type: "struct", Struct: "B"}}},
			{Name: "B", Fields: []FieldDefinition{{Name: "a", Type: "struct", Struct: "A"}}},
		},
		"struct without name": {{Name: "A", Fields: []FieldDefinition{{Name: "b", Type: "struct"}}}},
		"name on scalar":      {{Name: "A", Fields: []FieldDefinition{{Name: "b", Type: "int8", Struct: "B"}}}},
		"unnamed field":       {{Name: "A", Fields: []FieldDefinition{{Type: "int8"}}}},
	}
	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(defs...)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}

	_, err := NewRegistry(Definition{Name: "A", Fields: []FieldDefinition{{Name: "b", Type: "struct", Struct: "Missing"}}})
	assert.ErrorIs(t, err, ErrUnknownStruct)
}

func TestLookupErrors(t *testing.T) {
	r := MustRegistry(hdrDefs()...)
	_, err := r.Lookup("Nope")
	assert.ErrorIs(t, err, ErrUnknownStruct)

	hdr, _ := r.Lookup("Hdr")
	_, err = hdr.Field("g")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.EqualError(t, err, "unknown field name: Hdr.g")
	_, ok := hdr.Lookup("A")
	assert.False(t, ok, "field names are case-sensitive")
}

func TestFingerprint(t *testing.T) {
	a := MustRegistry(hdrDefs()...)
	b := MustRegistry(hdrDefs()...)
	sa, _ := a.Lookup("Outer")
	sb, _ := b.Lookup("Outer")
	assert.Equal(t, sa.ID(), sb.ID())

	defs := hdrDefs()
	defs[1].Fields[3].Array = 4
	c := MustRegistry(defs...)
	sc, _ := c.Lookup("Outer")
	assert.NotEqual(t, sa.ID(), sc.ID(), "nested layout change must reach the outer fingerprint")
}

const yamlSource = `
version: 1
structs:
  - name: Flow
    fields:
      - {name: src, type: ipv4}
      - {name: dst, type: ipv6}
      - {name: ports, type: uint16, array: 2}
`

const jsoncSource = `{
  // flow statistics
  "version": 1,
  "structs": [
    {"name": "Stats", "fields": [
      {"name": "flow", "type": "struct", "struct": "Flow"},
      {"name": "bytes", "type": "uint64"},
    ]},
    {"name": "Flow", "fields": [
      {"name": "src", "type": "ipv4"},
      {"name": "dst", "type": "ipv6"},
      {"name": "ports", "type": "uint16", "array": 2},
    ]},
  ],
}`

func TestParseSources(t *testing.T) {
	r, err := ParseYAML([]byte(yamlSource))
	require.NoError(t, err)
	flow, err := r.Lookup("Flow")
	require.NoError(t, err)
	assert.Equal(t, 24, flow.Size())

	r2, err := ParseJSONC([]byte(jsoncSource))
	require.NoError(t, err)
	stats, err := r2.Lookup("Stats")
	require.NoError(t, err)
	assert.Equal(t, 32, stats.Size())
	flow2, _ := r2.Lookup("Flow")
	assert.Equal(t, flow.ID(), flow2.ID())

	_, err = ParseYAML([]byte("version: 7\nstructs: []\n"))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
	_, err = ParseJSONC([]byte("{"))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestCompileRoundTrip(t *testing.T) {
	r, err := ParseJSONC([]byte(jsoncSource))
	require.NoError(t, err)

	a, err := Compile(r)
	require.NoError(t, err)
	b, err := Compile(r)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	back, err := ParseCompiled(a)
	require.NoError(t, err)
	assert.Equal(t, r.Names(), back.Names())
	for _, name := range r.Names() {
		x, _ := r.Lookup(name)
		y, _ := back.Lookup(name)
		assert.Equal(t, x.ID(), y.ID(), name)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	flow := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(flow, []byte(yamlSource), 0o600))
	stats := filepath.Join(dir, "stats.jsonc")
	require.NoError(t, os.WriteFile(stats, []byte(`{"structs": [
		{"name": "Stats", "fields": [{"name": "flow", "type": "struct", "struct": "Flow"}]},
	]}`), 0o600))

	_, err := LoadFile(stats)
	assert.ErrorIs(t, err, ErrUnknownStruct)

	r, err := LoadFiles(flow, stats)
	require.NoError(t, err)
	assert.Equal(t, []string{"Flow", "Stats"}, r.Names())

	compiled, err := Compile(r)
	require.NoError(t, err)
	bin := filepath.Join(dir, "all.ipcs")
	require.NoError(t, os.WriteFile(bin, compiled, 0o600))
	back, err := LoadFile(bin)
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())

	_, err = LoadFile(filepath.Join(dir, "x.txt"))
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	for k := KindNull; k <= KindStruct; k++ {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	assert.Equal(t, 4, KindIPv6.Align())
	assert.Equal(t, 16, KindIPv6.Width())
	assert.False(t, KindText.Storable())
	assert.True(t, KindStruct.Storable())
}
