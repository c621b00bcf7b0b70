package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileVersion is the only definition file version understood.
const FileVersion = 1

// File is the on-disk shape of a definition source.
type File struct {
	Version int          `yaml:"version" json:"version" cbor:"version"`
	Structs []Definition `yaml:"structs" json:"structs" cbor:"structs"`
}

var compiledMode cbor.EncMode

func init() {
	var err error
	compiledMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func (f *File) check(src string) error {
	if f.Version != 0 && f.Version != FileVersion {
		return fmt.Errorf("%w: %s: unsupported version %d", ErrInvalidDefinition, src, f.Version)
	}
	return nil
}

func build(f File, src string) (*Registry, error) {
	if err := f.check(src); err != nil {
		return nil, err
	}
	r, err := NewRegistry(f.Structs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return r, nil
}

// ParseYAML reads a YAML definition source.
func ParseYAML(data []byte) (*Registry, error) {
	f, err := decodeYAML(data)
	if err != nil {
		return nil, err
	}
	return build(f, "yaml")
}

func decodeYAML(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("%w: yaml: %v", ErrInvalidDefinition, err)
	}
	return f, nil
}

// ParseJSONC reads a JSON definition source. Comments and trailing commas
// are permitted.
func ParseJSONC(data []byte) (*Registry, error) {
	f, err := decodeJSONC(data)
	if err != nil {
		return nil, err
	}
	return build(f, "json")
}

func decodeJSONC(data []byte) (File, error) {
	var f File
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return File{}, fmt.Errorf("%w: json: %v", ErrInvalidDefinition, err)
	}
	return f, nil
}

// Compile encodes the definitions of r as deterministic CBOR. Identical
// registries compile to identical bytes.
func Compile(r *Registry) ([]byte, error) {
	return compiledMode.Marshal(File{Version: FileVersion, Structs: r.Definitions()})
}

// ParseCompiled reads the output of Compile.
func ParseCompiled(data []byte) (*Registry, error) {
	var f File
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: cbor: %v", ErrInvalidDefinition, err)
	}
	return build(f, "compiled")
}

// LoadFile reads a definition source, choosing the format by extension:
// .yaml/.yml, .json/.jsonc, or .cbor/.ipcs for compiled definitions.
func LoadFile(path string) (*Registry, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return build(f, path)
}

// LoadFiles reads several sources into one registry. Structures in one
// file may nest structures defined in another.
func LoadFiles(paths ...string) (*Registry, error) {
	var all File
	for _, p := range paths {
		f, err := readFile(p)
		if err != nil {
			return nil, err
		}
		if err := f.check(p); err != nil {
			return nil, err
		}
		all.Structs = append(all.Structs, f.Structs...)
	}
	return build(all, strings.Join(paths, ","))
}

func readFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".json", ".jsonc":
		return decodeJSONC(data)
	case ".cbor", ".ipcs":
		var f File
		if err := cbor.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, path, err)
		}
		return f, nil
	default:
		return File{}, fmt.Errorf("%w: %s: unrecognised extension", ErrInvalidDefinition, path)
	}
}
