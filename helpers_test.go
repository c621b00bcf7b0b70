package ipcstruct

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/ipcstruct/internal/testutil/testlog"
	"github.com/rawbytedev/ipcstruct/pkg/schema"
)

const testDefinitions = `
version: 1
structs:
  - name: S1
    fields:
      - {name: f, type: int16}
  - name: Inner
    fields:
      - {name: id, type: uint32}
      - {name: tags, type: uint8, array: 4}
  - name: Other
    fields:
      - {name: id, type: uint32}
      - {name: tags, type: uint8, array: 4}
  - name: Flow
    fields:
      - {name: proto, type: uint8}
      - {name: port, type: uint16}
      - {name: ports, type: int16, array: 4}
      - {name: src, type: ipv4}
      - {name: hops, type: ipv6, array: 2}
      - {name: rate, type: double}
      - {name: ratio, type: float}
      - {name: bytes, type: uint64}
      - {name: inner, type: struct, struct: Inner}
      - {name: inners, type: struct, struct: Inner, array: 2}
`

func testRegistry(t testing.TB) *schema.Registry {
	t.Helper()
	testlog.Start(t)
	r, err := schema.ParseYAML([]byte(testDefinitions))
	require.NoError(t, err)
	return r
}

func newStruct(t testing.TB, name string) *Struct {
	t.Helper()
	s, err := NewNamed(testRegistry(t), name)
	require.NoError(t, err)
	t.Cleanup(func() { s.Release() })
	return s
}
