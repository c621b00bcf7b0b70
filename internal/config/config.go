// Package config loads structc.toml.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rawbytedev/ipcstruct/pkg/envelope"
)

const DefaultFile = "structc.toml"

// Config is the resolved tool configuration.
type Config struct {
	Schemas     []string // definition sources, resolved against the config file directory
	Compression envelope.Compression
	LogLevel    string
	OutputDir   string
}

// structc.toml key mapping.
type fileConfig struct {
	Schemas     []string `toml:"schemas"`
	Compression string   `toml:"compression"`
	LogLevel    string   `toml:"log_level"`
	OutputDir   string   `toml:"output_dir"`
}

func Default() Config {
	return Config{
		Compression: envelope.CompNone,
		LogLevel:    "info",
		OutputDir:   ".",
	}
}

// Load overlays the keys defined in path onto Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	base := filepath.Dir(path)
	if meta.IsDefined("schemas") {
		for _, s := range raw.Schemas {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if !filepath.IsAbs(s) {
				s = filepath.Join(base, s)
			}
			cfg.Schemas = append(cfg.Schemas, s)
		}
	}
	if meta.IsDefined("compression") {
		c, err := envelope.ParseCompression(raw.Compression)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg.Compression = c
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("output_dir") {
		dir := strings.TrimSpace(raw.OutputDir)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		cfg.OutputDir = dir
	}
	return cfg, nil
}
