// Package config resolves the VM's tunable resource ceilings from defaults,
// an optional YAML file, and environment variables, in that override order
// (SPEC_FULL.md §2). spec.md leaves these limits to the implementer; this
// package only makes the existing constants (64 frames, 64×256 stack slots)
// and the step-budget runaway-script guard configurable, it does not change
// any invariant.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"github.com/loxvm/loxvm/lang/vm"
)

// Config holds the VM tunables a process can override. Zero values fall
// back to vm.DefaultMaxFrames / vm.DefaultMaxStack; MaxSteps of zero means
// unlimited.
type Config struct {
	MaxFrames int `yaml:"max_frames" env:"LOXVM_MAX_FRAMES"`
	MaxStack  int `yaml:"max_stack"  env:"LOXVM_MAX_STACK"`
	MaxSteps  int `yaml:"max_steps"  env:"LOXVM_MAX_STEPS"`
}

// Default returns the out-of-the-box ceilings (§4.4.1).
func Default() Config {
	return Config{
		MaxFrames: vm.DefaultMaxFrames,
		MaxStack:  vm.DefaultMaxStack,
		MaxSteps:  0,
	}
}

// Load resolves a Config: defaults, overlaid by path's YAML content (if
// path is non-empty), overlaid by environment variables. Each layer only
// overrides fields it actually sets.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse environment: %w", err)
	}

	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = vm.DefaultMaxFrames
	}
	if cfg.MaxStack <= 0 {
		cfg.MaxStack = vm.DefaultMaxStack
	}
	return cfg, nil
}
