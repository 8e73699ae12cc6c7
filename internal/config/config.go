// Package config loads treefreeze.yaml.
//
//	work_dir: .treefreeze
//	manifest: .treefreeze/manifest.db
//	toolchain:
//	  cc: gcc
//	  cflags: [-O3, -march=native]
//	  openmp: true
//	  go: go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up by the CLI.
const DefaultFile = "treefreeze.yaml"

// Config is the file-level configuration.
type Config struct {
	// WorkDir holds persistent sources and artifacts. Relative paths are
	// resolved against the config file's directory.
	WorkDir string `yaml:"work_dir,omitempty"`

	// TempDir holds ephemeral artifacts. Empty means os.TempDir().
	TempDir string `yaml:"temp_dir,omitempty"`

	// Manifest is the SQLite build manifest path. Empty disables it.
	Manifest string `yaml:"manifest,omitempty"`

	Toolchain Toolchain `yaml:"toolchain,omitempty"`
}

// Toolchain configures the external builders.
type Toolchain struct {
	CC      string   `yaml:"cc,omitempty"`
	CFlags  []string `yaml:"cflags,omitempty"`
	LDFlags []string `yaml:"ldflags,omitempty"`
	OpenMP  bool     `yaml:"openmp,omitempty"`
	Go      string   `yaml:"go,omitempty"`
	GoFlags []string `yaml:"goflags,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		WorkDir: ".treefreeze",
		Toolchain: Toolchain{
			CC: "cc",
			Go: "go",
		},
	}
}

// Load reads the config file at path. A missing file yields Default().
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.WorkDir = resolve(base, cfg.WorkDir)
	cfg.TempDir = resolve(base, cfg.TempDir)
	cfg.Manifest = resolve(base, cfg.Manifest)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("work_dir is required")
	}
	if c.Toolchain.CC == "" {
		return fmt.Errorf("toolchain.cc must not be empty")
	}
	if c.Toolchain.Go == "" {
		return fmt.Errorf("toolchain.go must not be empty")
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
