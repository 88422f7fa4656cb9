// Package config provides the JSON simulator configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/mipsim/machine"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Mode selects the timing engine.
type Mode string

// Engine modes.
const (
	ModePipelined  Mode = "pipelined"
	ModeSequential Mode = "sequential"
)

// CacheConfig enables and sizes one L1 cache model.
type CacheConfig struct {
	Enabled bool `json:"enabled"`
	cache.Config
}

// SimConfig holds the simulator settings.
type SimConfig struct {
	// Mode is the timing engine. Default: pipelined.
	Mode Mode `json:"mode"`

	// MaxCycles stops a run after this many cycles. Zero means no limit.
	// Default: 1,000,000.
	MaxCycles uint64 `json:"max_cycles"`

	// ICache is the L1 instruction cache model. Default: disabled.
	ICache CacheConfig `json:"icache"`

	// DCache is the L1 data cache model. Default: disabled.
	DCache CacheConfig `json:"dcache"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *SimConfig {
	return &SimConfig{
		Mode:      ModePipelined,
		MaxCycles: 1_000_000,
		ICache:    CacheConfig{Config: cache.DefaultL1IConfig()},
		DCache:    CacheConfig{Config: cache.DefaultL1DConfig()},
	}
}

// LoadConfig loads a SimConfig from a JSON file. Fields missing from the
// file keep their defaults.
func LoadConfig(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a SimConfig to a JSON file.
func (c *SimConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the mode and every enabled cache geometry.
func (c *SimConfig) Validate() error {
	switch c.Mode {
	case ModePipelined, ModeSequential:
	default:
		return fmt.Errorf("%w: mode must be %q or %q, got %q",
			ErrInvalid, ModePipelined, ModeSequential, c.Mode)
	}

	if c.ICache.Enabled {
		if err := c.ICache.Validate(); err != nil {
			return fmt.Errorf("%w: icache: %w", ErrInvalid, err)
		}
	}

	if c.DCache.Enabled {
		if err := c.DCache.Validate(); err != nil {
			return fmt.Errorf("%w: dcache: %w", ErrInvalid, err)
		}
	}

	return nil
}

// Clone returns a copy of the SimConfig.
func (c *SimConfig) Clone() *SimConfig {
	clone := *c
	return &clone
}

// MachineOptions translates the configuration into machine options.
func (c *SimConfig) MachineOptions() []machine.Option {
	var opts []machine.Option

	if c.Mode == ModeSequential {
		opts = append(opts, machine.WithSequential())
	}

	if c.ICache.Enabled {
		opts = append(opts, machine.WithEngineOptions(pipeline.WithICache(c.ICache.Config)))
	}

	if c.DCache.Enabled {
		opts = append(opts, machine.WithEngineOptions(pipeline.WithDCache(c.DCache.Config)))
	}

	return opts
}
