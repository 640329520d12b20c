// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spirvcross cross-compiles SPIR-V to GLSL with spirv-cross.
package spirvcross

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/shadertools"
	"github.com/gogpu/shadertools/internal/spvasm"
	"github.com/gogpu/shadertools/toolexec"
)

const (
	// Component is the component name used in diagnostics.
	Component = "ShaderTools::SpirvCrossConverter"

	// PluginName is the registry name of the converter.
	PluginName = "SpirvCrossShaderConverter"

	// DefaultBin is the spirv-cross executable looked up in $PATH.
	DefaultBin = "spirv-cross"

	// DefaultVersion is the GLSL version generated when none is set.
	DefaultVersion = "450"
)

// Plugin returns the registry entry for the converter.
func Plugin(bin string, runner toolexec.Runner) shadertools.Plugin {
	if bin == "" {
		bin = DefaultBin
	}
	return shadertools.Plugin{
		Name:     PluginName,
		Provides: []string{"SpirvToGlslShaderConverter"},
		Load: func(context.Context) error {
			return toolexec.LookPath(bin)
		},
		New: func(string) shadertools.Converter {
			return New(bin, runner)
		},
	}
}

// Converter translates SPIR-V binaries to GLSL source.
type Converter struct {
	shadertools.Settings

	bin    string
	runner toolexec.Runner
}

// New creates a converter running bin. A nil runner starts real processes.
func New(bin string, runner toolexec.Runner) *Converter {
	if runner == nil {
		runner = toolexec.ExecRunner{}
	}
	return &Converter{bin: bin, runner: runner}
}

// Features implements shadertools.Converter.
func (c *Converter) Features() shadertools.Features {
	return shadertools.FeatureConvertData
}

// ValidateData implements shadertools.Converter. Validation is not supported.
func (c *Converter) ValidateData(context.Context, shadertools.Stage, []byte) (bool, string, error) {
	return false, "", c.Report(shadertools.NewError(shadertools.ErrNotSupported, Component, "validateData", "validation is not supported"))
}

// ValidateFile implements shadertools.Converter. Validation is not supported.
func (c *Converter) ValidateFile(context.Context, shadertools.Stage, string) (bool, string, error) {
	return false, "", c.Report(shadertools.NewError(shadertools.ErrNotSupported, Component, "validateFile", "validation is not supported"))
}

// ConvertDataToData implements shadertools.Converter.
func (c *Converter) ConvertDataToData(ctx context.Context, _ shadertools.Stage, data []byte) ([]byte, error) {
	return c.convert(ctx, data)
}

// ConvertFileToData implements shadertools.Converter.
func (c *Converter) ConvertFileToData(ctx context.Context, _ shadertools.Stage, filename string) ([]byte, error) {
	data, err := c.ReadFile(Component, "convertFileToData", filename)
	if err != nil {
		return nil, err
	}
	return c.convert(ctx, data)
}

// ConvertFileToFile implements shadertools.Converter.
func (c *Converter) ConvertFileToFile(ctx context.Context, _ shadertools.Stage, from, to string) error {
	data, err := c.ReadFile(Component, "convertFileToFile", from)
	if err != nil {
		return err
	}
	out, err := c.convert(ctx, data)
	if err != nil {
		return err
	}
	return c.WriteFile(Component, "convertFileToFile", to, out)
}

func (c *Converter) convert(ctx context.Context, data []byte) ([]byte, error) {
	const op = "convertDataToData"

	if format, _ := c.InputFormat(); format != shadertools.FormatUnspecified && format != shadertools.FormatSpirv {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"input format should be Spirv or Unspecified but got %s", format))
	}
	format, version := c.OutputFormat()
	if format != shadertools.FormatUnspecified && format != shadertools.FormatGlsl {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format should be Glsl or Unspecified but got %s", format))
	}
	args, ok := versionArgs(version)
	if !ok {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format version should be a GLSL #version string but got %s", version))
	}
	if len(c.Definitions()) != 0 {
		return nil, c.Report(shadertools.NewError(shadertools.ErrInvalidSettings, Component, op,
			"definitions are not supported"))
	}
	if err := spvasm.Validate(data); err != nil {
		e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "invalid SPIR-V: %v", err)
		e.Err = err
		return nil, c.Report(e)
	}

	res, err := c.runner.Run(ctx, c.bin, append(args, "-"), data)
	if err != nil {
		e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "cannot run %s", c.bin)
		e.Err = err
		return nil, c.Report(e)
	}
	msg := strings.TrimSpace(string(res.Stderr))
	if !res.Success() {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrBackend, Component, op, "conversion failed:\n%s", msg))
	}
	if msg != "" {
		if c.Flags().Has(shadertools.FlagWarningAsError) {
			return nil, c.Report(shadertools.Errorf(shadertools.ErrBackend, Component, op, "conversion failed:\n%s", msg))
		}
		c.Warn(fmt.Sprintf("%s::%s(): conversion succeeded with the following message:\n%s", Component, op, msg))
	}
	return res.Stdout, nil
}

// versionArgs maps "450" or "310 es" to spirv-cross arguments.
func versionArgs(version string) ([]string, bool) {
	if version == "" {
		version = DefaultVersion
	}
	number, es := strings.CutSuffix(version, " es")
	if _, err := strconv.Atoi(number); err != nil || len(number) != 3 {
		return nil, false
	}
	args := []string{"--version", number}
	if es {
		args = append([]string{"--es"}, args...)
	}
	return args, true
}
