// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/gogpu/shadertools"
)

// settings are the converter settings shared by validate and convert.
type settings struct {
	inputFormat   string
	inputVersion  string
	outputFormat  string
	outputVersion string
	stage         string
	defines       []string
	undefines     []string
	debugInfo     string
	optimization  string
}

func (s *settings) registerInput(flags *pflag.FlagSet) {
	flags.StringVar(&s.inputFormat, "input-format", "", "input format, required for stdin")
	flags.StringVar(&s.inputVersion, "input-version", "", "input format version, e.g. \"450\" or \"310 es\"")
	flags.StringVar(&s.stage, "stage", "", "shader stage, e.g. vertex or frag")
	flags.StringArrayVarP(&s.defines, "define", "D", nil, "preprocessor definition NAME[=VALUE]")
	flags.StringArrayVarP(&s.undefines, "undefine", "U", nil, "remove a preprocessor definition")
}

func (s *settings) registerOutput(flags *pflag.FlagSet) {
	flags.StringVar(&s.outputFormat, "output-format", "", "output format, required for stdout")
	flags.StringVar(&s.outputVersion, "output-version", "", "output format version, e.g. \"vulkan1.1\" or \"spv1.4\"")
	flags.StringVarP(&s.debugInfo, "debug-info", "g", "", "debug info level")
	flags.StringVarP(&s.optimization, "optimize", "O", "", "optimization level")
}

// apply configures c and returns the requested stage.
func (s *settings) apply(c shadertools.Converter) (shadertools.Stage, error) {
	stage, err := shadertools.ParseStage(s.stage)
	if err != nil {
		return stage, err
	}
	in, err := shadertools.ParseFormat(s.inputFormat)
	if err != nil {
		return stage, fmt.Errorf("--input-format: %w", err)
	}
	out, err := shadertools.ParseFormat(s.outputFormat)
	if err != nil {
		return stage, fmt.Errorf("--output-format: %w", err)
	}

	defs := make([]shadertools.Definition, 0, len(s.defines)+len(s.undefines))
	for _, d := range s.defines {
		name, value, _ := strings.Cut(d, "=")
		if name == "" {
			return stage, fmt.Errorf("--define: empty name in %q", d)
		}
		defs = append(defs, shadertools.Definition{Name: name, Value: value})
	}
	for _, name := range s.undefines {
		defs = append(defs, shadertools.Definition{Name: name, Undefine: true})
	}

	c.SetInputFormat(in, s.inputVersion)
	c.SetOutputFormat(out, s.outputVersion)
	if len(defs) > 0 {
		c.SetDefinitions(defs)
	}
	c.SetDebugInfoLevel(s.debugInfo)
	c.SetOptimizationLevel(s.optimization)
	return stage, nil
}
