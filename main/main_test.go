package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/ipcstruct"
	"github.com/rawbytedev/ipcstruct/internal/testutil/testlog"
)

const routeDefs = `
version: 1
structs:
  - name: Point
    fields:
      - {name: x, type: int32}
      - {name: y, type: int32}
  - name: Route
    fields:
      - {name: id, type: uint16}
      - {name: via, type: ipv4}
      - {name: hops, type: struct, struct: Point, array: 2}
`

func setup(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	testlog.Start(t)
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defs.yaml"), []byte(routeDefs), 0o600))
	cfgPath = filepath.Join(dir, "structc.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("schemas = [\"defs.yaml\"]\noutput_dir = \".\"\n"), 0o600))
	return dir, cfgPath
}

func exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func TestDescribe(t *testing.T) {
	_, cfg := setup(t)
	out, err := exec(t, "--config", cfg, "describe", "Route")
	require.NoError(t, err)
	assert.Contains(t, out, "Route size=24 align=4")
	assert.Contains(t, out, "Point[2]")
	assert.NotContains(t, out, "Point size=")
}

func TestNewAndDump(t *testing.T) {
	dir, cfg := setup(t)
	want := "Route{id=7, via=10.0.0.1, hops=[Point{x=0, y=0}, Point{x=0, y=-3}]}"

	for _, c := range []struct {
		compression string
		view        bool
	}{{"none", true}, {"none", false}, {"lz4", false}, {"zstd", false}} {
		t.Run(c.compression, func(t *testing.T) {
			out, err := exec(t, "--config", cfg, "--compression", c.compression,
				"new", "Route", "--set", "id=7", "--set", "via=10.0.0.1", "--set", "hops[1].y=-3", "-o", "r.ipsf")
			require.NoError(t, err)
			assert.Contains(t, out, want)

			args := []string{"--config", cfg, "dump"}
			if c.view {
				args = append(args, "--view")
			}
			out, err = exec(t, append(args, filepath.Join(dir, "r.ipsf"))...)
			require.NoError(t, err)
			assert.Contains(t, out, "Route version=1")
			assert.Contains(t, out, want)
		})
	}
}

func TestCompile(t *testing.T) {
	dir, cfg := setup(t)
	out, err := exec(t, "--config", cfg, "compile", "-o", "defs.ipcs")
	require.NoError(t, err)
	assert.Contains(t, out, "compiled 2 structures")

	out, err = exec(t, "--schema", filepath.Join(dir, "defs.ipcs"), "describe", "Point")
	require.NoError(t, err)
	assert.Contains(t, out, "Point size=8 align=4")
}

func TestErrors(t *testing.T) {
	_, cfg := setup(t)

	_, err := exec(t, "--config", cfg, "frobnicate")
	assert.ErrorIs(t, err, errUsage)
	_, err = exec(t, "--config", cfg, "--compression", "gzip", "describe")
	assert.ErrorIs(t, err, errUsage)
	_, err = exec(t, "--config", cfg, "new", "Route", "--set", "nope=1")
	assert.ErrorIs(t, err, ipcstruct.ErrUnknownField)
	_, err = exec(t, "--config", cfg, "new", "Route", "--set", "id=70000")
	assert.ErrorIs(t, err, ipcstruct.ErrRange)
	_, err = exec(t, "--config", cfg, "new", "Route", "--set", "hops[2].x=1")
	assert.ErrorIs(t, err, ipcstruct.ErrIndexOutOfRange)
	_, err = exec(t, "--config", cfg, "new", "Route", "--set", "id")
	assert.ErrorIs(t, err, errUsage)
	_, err = exec(t, "--config", cfg, "describe", "Missing")
	assert.ErrorIs(t, err, ipcstruct.ErrUnknownSchema)
}

func TestSplitIndex(t *testing.T) {
	name, idx, indexed, err := splitIndex("hops[12]")
	require.NoError(t, err)
	assert.Equal(t, "hops", name)
	assert.Equal(t, 12, idx)
	assert.True(t, indexed)

	_, _, indexed, err = splitIndex("id")
	require.NoError(t, err)
	assert.False(t, indexed)

	_, _, _, err = splitIndex("hops[x]")
	assert.ErrorIs(t, err, errUsage)
}
