// Package config loads the .forgeline.yml build configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".forgeline.yml"

// ErrInvalidConfig wraps configuration errors; the message always names the
// offending identifier.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the top-level forgeline configuration.
type Config struct {
	Workspace WorkspaceConfig    `yaml:"workspace"`
	Toolchain ToolchainConfig    `yaml:"toolchain"`
	Groups    []GroupConfig      `yaml:"groups"`
	Cache     CacheConfig        `yaml:"cache"`
	Platforms []PlatformOverride `yaml:"platforms"`
	Shell     ShellConfig        `yaml:"shell"`
}

// Load reads configuration from a YAML file. If path is empty, it tries the
// default file. A missing file yields defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return defaults(), nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Workspace: DefaultWorkspaceConfig(),
		Toolchain: DefaultToolchainConfig(),
		Cache:     DefaultCacheConfig(),
		Shell:     ShellConfig{Env: map[string]string{}},
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("%w: group with empty name", ErrInvalidConfig)
		}
		if seen[g.Name] {
			return fmt.Errorf("%w: duplicate group %q", ErrInvalidConfig, g.Name)
		}
		seen[g.Name] = true
		if len(g.Members) == 0 {
			return fmt.Errorf("%w: group %q has no members", ErrInvalidConfig, g.Name)
		}
		if g.MainProgram == "" {
			return fmt.Errorf("%w: group %q has no main_program", ErrInvalidConfig, g.Name)
		}
	}
	for _, o := range c.Platforms {
		if o.Platform == "" {
			return fmt.Errorf("%w: platform override with empty platform", ErrInvalidConfig)
		}
	}
	return nil
}

// Group returns the named package group.
func (c *Config) Group(name string) (GroupConfig, error) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, nil
		}
	}
	return GroupConfig{}, fmt.Errorf("%w: unknown group %q", ErrInvalidConfig, name)
}
