// Package config loads the weft.json configuration the CLI runs with:
// inspector bind address, bench workload defaults, snapshot store
// settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FileName is the name of the configuration file.
	FileName = "weft.json"

	// DefaultInspectorAddr is the default diagnostics bind address.
	DefaultInspectorAddr = "localhost:7363"

	// DefaultBenchNodes is the default keyed-list size for bench runs.
	DefaultBenchNodes = 1000

	// DefaultBenchPasses is the default number of passes per bench run.
	DefaultBenchPasses = 200
)

// Config is the complete weft.json schema.
type Config struct {
	// Inspector configures the diagnostics server the bench tool can
	// expose.
	Inspector InspectorConfig `json:"inspector,omitempty"`

	// Bench configures default workload parameters for `weft bench`.
	Bench BenchConfig `json:"bench,omitempty"`

	// Snapshot configures the context snapshot store.
	Snapshot SnapshotConfig `json:"snapshot,omitempty"`

	// path records where the config was loaded from, empty for
	// defaults.
	path string
}

// InspectorConfig configures the diagnostics HTTP server.
type InspectorConfig struct {
	// Addr is the bind address ("localhost:7363").
	Addr string `json:"addr,omitempty"`
}

// BenchConfig holds default workload parameters.
type BenchConfig struct {
	// Nodes is the keyed-list size.
	Nodes int `json:"nodes,omitempty"`

	// Passes is the number of reconciliation passes per run.
	Passes int `json:"passes,omitempty"`

	// Profile selects the mutation mix: "shuffle", "prepend",
	// "append", "update" or "mixed".
	Profile string `json:"profile,omitempty"`

	// Seed fixes the workload RNG; 0 means time-based.
	Seed int64 `json:"seed,omitempty"`
}

// SnapshotConfig selects and configures the snapshot store.
type SnapshotConfig struct {
	// Driver is "memory", "sqlite" or "s3". Empty means memory.
	Driver string `json:"driver,omitempty"`

	// Path is the database file for the sqlite driver.
	Path string `json:"path,omitempty"`

	// Bucket and Prefix locate snapshots for the s3 driver.
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Inspector: InspectorConfig{Addr: DefaultInspectorAddr},
		Bench: BenchConfig{
			Nodes:   DefaultBenchNodes,
			Passes:  DefaultBenchPasses,
			Profile: "mixed",
		},
		Snapshot: SnapshotConfig{Driver: "memory"},
	}
}

// Load reads a config file and applies defaults for anything unset.
// With an empty path it looks for weft.json in the current directory
// and silently falls back to Default when there is none; an explicit
// path that does not exist is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the CLI cannot run
// with.
func (c *Config) Validate() error {
	if c.Bench.Nodes < 0 {
		return fmt.Errorf("bench.nodes must be >= 0, got %d", c.Bench.Nodes)
	}
	if c.Bench.Passes < 0 {
		return fmt.Errorf("bench.passes must be >= 0, got %d", c.Bench.Passes)
	}
	switch c.Bench.Profile {
	case "", "shuffle", "prepend", "append", "update", "mixed":
	default:
		return fmt.Errorf("unknown bench profile %q", c.Bench.Profile)
	}
	switch c.Snapshot.Driver {
	case "", "memory":
	case "sqlite":
		if c.Snapshot.Path == "" {
			return errors.New("snapshot.path is required for the sqlite driver")
		}
	case "s3":
		if c.Snapshot.Bucket == "" {
			return errors.New("snapshot.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown snapshot driver %q", c.Snapshot.Driver)
	}
	return nil
}

// Path returns where the config was loaded from, or empty for the
// built-in defaults.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	data = append(data, '\n')
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
