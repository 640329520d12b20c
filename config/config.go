// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package config holds the shaderconverter configuration: tool paths,
// detection rules and disabled plugins. It is read from YAML by the command
// and passed to builtin.Register by library users.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shadertools"
)

// ToolsConfig holds paths of external executables. Empty values use the
// default names looked up in $PATH.
type ToolsConfig struct {
	Glslang    string `yaml:"glslang"`
	SpirvVal   string `yaml:"spirv_val"`
	SpirvAs    string `yaml:"spirv_as"`
	SpirvOpt   string `yaml:"spirv_opt"`
	SpirvDis   string `yaml:"spirv_dis"`
	SpirvCross string `yaml:"spirv_cross"`
}

// DetectionRule maps file name patterns to a format name.
type DetectionRule struct {
	Format   string   `yaml:"format"`
	Patterns []string `yaml:"patterns"`
}

// Config is the shaderconverter configuration.
type Config struct {
	Tools ToolsConfig `yaml:"tools"`

	// Detection replaces the built-in detection rules when non-empty.
	// Rules are tried in order.
	Detection []DetectionRule `yaml:"detection"`

	// Disabled lists plugin names that are not registered.
	Disabled []string `yaml:"disabled"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{LogLevel: "info"}
}

// Load reads a configuration file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the log level and detection rules.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := c.Detector(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the configured log level, or info if it does not parse.
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// DetectionRules converts the configured rules, falling back to
// shadertools.DefaultDetectionRules.
func (c *Config) DetectionRules() ([]shadertools.DetectionRule, error) {
	if len(c.Detection) == 0 {
		return shadertools.DefaultDetectionRules(), nil
	}
	rules := make([]shadertools.DetectionRule, 0, len(c.Detection))
	for i, r := range c.Detection {
		format, err := shadertools.ParseFormat(r.Format)
		if err != nil {
			return nil, fmt.Errorf("detection[%d]: %w", i, err)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("detection[%d]: no patterns for %s", i, format)
		}
		rules = append(rules, shadertools.DetectionRule{Format: format, Patterns: r.Patterns})
	}
	return rules, nil
}

// Detector builds a format detector from the detection rules.
func (c *Config) Detector() (*shadertools.Detector, error) {
	rules, err := c.DetectionRules()
	if err != nil {
		return nil, err
	}
	return shadertools.NewDetector(rules)
}

// IsDisabled reports whether the plugin name is disabled.
func (c *Config) IsDisabled(name string) bool {
	return slices.Contains(c.Disabled, name)
}
