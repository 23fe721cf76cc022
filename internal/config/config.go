// Package config loads engine tunables from defaults overlaid by either
// environment variables (LoadFromEnv) or a YAML file (LoadFile); the two
// sources are not merged with each other. This keeps the teacher's
// config package shape (Default/LoadFromEnv/Validate), generalized with
// a YAML loader since the engine's config now has nested sections worth
// writing down once rather than exporting one env var apiece.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the engine/CLI needs at startup.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	CLI       CLIConfig       `yaml:"cli"`
}

// EngineConfig controls morsel size and worker-pool width (spec.md
// section 5's "N workers, default 4" and section 3's morsel batches).
type EngineConfig struct {
	MorselSize  int `yaml:"morsel_size"`
	Workers     int `yaml:"workers"`
	MemoryLimit int64 `yaml:"memory_limit_bytes"`
}

// OptimizerConfig exposes the global enable/disable toggle spec.md
// section 4.2 describes ("a global toggle may disable all
// optimization").
type OptimizerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CLIConfig mirrors the flags spec.md section 6 lists.
type CLIConfig struct {
	Color         bool   `yaml:"color"`
	Stats         bool   `yaml:"stats"`
	Cycles        int    `yaml:"cycles"`
	TableWidth    int    `yaml:"table_width"`
	MaxColWidth   int    `yaml:"max_col_width"`
	OutputPath    string `yaml:"output_path"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MorselSize:  4096,
			Workers:     4,
			MemoryLimit: 512 * 1024 * 1024,
		},
		Optimizer: OptimizerConfig{Enabled: true},
		CLI: CLIConfig{
			Color:       true,
			Stats:       false,
			Cycles:      1,
			TableWidth:  120,
			MaxColWidth: 30,
		},
	}
}

// LoadFile reads a YAML config file, starting from Default() so a file
// only needs to specify the fields it overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables, falling
// back to defaults for anything unset. The CLI calls it only when no
// config file is given, so these variables are not applied on top of a
// file loaded with LoadFile.
func LoadFromEnv() *Config {
	cfg := Default()
	if v := os.Getenv("MORSELSQL_MORSEL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MorselSize = n
		}
	}
	if v := os.Getenv("MORSELSQL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("MORSELSQL_MEMORY_LIMIT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Engine.MemoryLimit = n
		}
	}
	if v := os.Getenv("MORSELSQL_OPTIMIZER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Optimizer.Enabled = b
		}
	}
	return cfg
}

// Validate checks if the configuration is self-consistent.
func (c *Config) Validate() error {
	if c.Engine.MorselSize <= 0 {
		return errors.Errorf("morsel size must be positive: %d", c.Engine.MorselSize)
	}
	if c.Engine.Workers <= 0 {
		return errors.Errorf("worker count must be positive: %d", c.Engine.Workers)
	}
	if c.Engine.MemoryLimit <= 0 {
		return errors.Errorf("memory limit must be positive: %d", c.Engine.MemoryLimit)
	}
	if c.CLI.Cycles <= 0 {
		return errors.Errorf("cycles must be positive: %d", c.CLI.Cycles)
	}
	return nil
}
