// Package config loads driver settings. Later layers override earlier ones:
// built-in defaults, then sysyc.toml, then SYSYC_* environment variables.
// Command-line flags are applied on top by the driver.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"github.com/xyproto/env/v2"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "sysyc.toml"

// Modes lists the accepted values of Config.Mode.
var Modes = []string{"koopa", "riscv", "llvm", "run", "ast"}

type Config struct {
	Mode      string `toml:"mode"`
	Jobs      int    `toml:"jobs"`
	Verbose   bool   `toml:"verbose"`
	OutputDir string `toml:"output_dir"`
	// StepLimit bounds the simulator in run mode.
	StepLimit int `toml:"step_limit"`
}

func Default() *Config {
	return &Config{
		Mode:      "riscv",
		Jobs:      4,
		StepLimit: 1_000_000,
	}
}

// Load builds the configuration from defaults, the file at path (if it
// exists) and the environment. It does not validate: callers apply their
// own overrides first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.MergeEnv()
	return cfg, nil
}

// MergeFile overrides the fields set in the TOML file at path. A missing
// file is not an error.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// MergeEnv overrides fields from SYSYC_* variables that are set.
func (c *Config) MergeEnv() {
	// env caches the environment on first use.
	env.Load()
	if env.Has("SYSYC_MODE") {
		c.Mode = env.Str("SYSYC_MODE")
	}
	if env.Has("SYSYC_JOBS") {
		c.Jobs = env.Int("SYSYC_JOBS", c.Jobs)
	}
	if env.Has("SYSYC_VERBOSE") {
		c.Verbose = env.Bool("SYSYC_VERBOSE")
	}
	if env.Has("SYSYC_OUTPUT_DIR") {
		c.OutputDir = env.Str("SYSYC_OUTPUT_DIR")
	}
	if env.Has("SYSYC_STEP_LIMIT") {
		c.StepLimit = env.Int("SYSYC_STEP_LIMIT", c.StepLimit)
	}
}

func (c *Config) Validate() error {
	if !slices.Contains(Modes, c.Mode) {
		return fmt.Errorf("invalid mode %q (want one of %v)", c.Mode, Modes)
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("jobs must be positive, got %d", c.Jobs)
	}
	if c.StepLimit <= 0 {
		return fmt.Errorf("step_limit must be positive, got %d", c.StepLimit)
	}
	return nil
}

// Save writes c as TOML, e.g. to create a starting sysyc.toml.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
