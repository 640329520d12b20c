// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package builtin registers every converter shipped with shadertools.
package builtin

import (
	"fmt"

	"github.com/gogpu/shadertools"
	"github.com/gogpu/shadertools/glslang"
	"github.com/gogpu/shadertools/config"
	"github.com/gogpu/shadertools/toolexec"
	"github.com/gogpu/shadertools/nagaconv"
	"github.com/gogpu/shadertools/spirvcross"
	"github.com/gogpu/shadertools/spirvtools"
)

// Plugins returns the built-in plugins, including AnyShaderConverter bound
// to r. A nil runner starts real processes.
func Plugins(r *shadertools.Registry, cfg *config.Config, runner toolexec.Runner) ([]shadertools.Plugin, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	detector, err := cfg.Detector()
	if err != nil {
		return nil, err
	}
	return []shadertools.Plugin{
		glslang.Plugin(cfg.Tools.Glslang, runner),
		spirvtools.Plugin(spirvtools.Tools{
			Val: cfg.Tools.SpirvVal,
			As:  cfg.Tools.SpirvAs,
			Opt: cfg.Tools.SpirvOpt,
			Dis: cfg.Tools.SpirvDis,
		}, runner),
		spirvcross.Plugin(cfg.Tools.SpirvCross, runner),
		nagaconv.Plugin(),
		shadertools.AnyPlugin(r, shadertools.WithDetector(detector)),
	}, nil
}

// Register adds the built-in plugins to r, skipping those disabled in cfg.
func Register(r *shadertools.Registry, cfg *config.Config) error {
	return RegisterWith(r, cfg, nil)
}

// RegisterWith is Register with an explicit tool runner.
func RegisterWith(r *shadertools.Registry, cfg *config.Config, runner toolexec.Runner) error {
	if cfg == nil {
		cfg = config.Default()
	}
	plugins, err := Plugins(r, cfg, runner)
	if err != nil {
		return err
	}
	for _, p := range plugins {
		if cfg.IsDisabled(p.Name) {
			continue
		}
		if err := r.Register(p); err != nil {
			return fmt.Errorf("register %s: %w", p.Name, err)
		}
	}
	return nil
}
