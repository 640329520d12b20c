// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package nagaconv validates WGSL and translates it to SPIR-V, GLSL, HLSL
// and MSL in-process with naga.
package nagaconv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/hlsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/msl"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/naga/wgsl"

	"github.com/gogpu/shadertools"
	"github.com/gogpu/shadertools/internal/target"
)

const (
	// Component is the component name used in diagnostics.
	Component = "ShaderTools::NagaConverter"

	// PluginName is the registry name of the converter.
	PluginName = "NagaShaderConverter"
)

// aliases maps each provided name to its default output format.
var aliases = map[string]shadertools.Format{
	"WgslShaderConverter":        shadertools.FormatUnspecified,
	"WgslToSpirvShaderConverter": shadertools.FormatSpirv,
	"WgslToGlslShaderConverter":  shadertools.FormatGlsl,
	"WgslToHlslShaderConverter":  shadertools.FormatHlsl,
	"WgslToMslShaderConverter":   shadertools.FormatMsl,
}

var shaderModels = map[string]hlsl.ShaderModel{
	"5_0": hlsl.ShaderModel5_0,
	"5_1": hlsl.ShaderModel5_1,
	"6_0": hlsl.ShaderModel6_0,
	"6_1": hlsl.ShaderModel6_1,
	"6_2": hlsl.ShaderModel6_2,
	"6_3": hlsl.ShaderModel6_3,
	"6_4": hlsl.ShaderModel6_4,
	"6_5": hlsl.ShaderModel6_5,
	"6_6": hlsl.ShaderModel6_6,
	"6_7": hlsl.ShaderModel6_7,
}

var irStages = map[shadertools.Stage]ir.ShaderStage{
	shadertools.StageVertex:   ir.StageVertex,
	shadertools.StageFragment: ir.StageFragment,
	shadertools.StageCompute:  ir.StageCompute,
}

// Plugin returns the registry entry for the converter. It has no external
// dependencies, so loading always succeeds.
func Plugin() shadertools.Plugin {
	provides := make([]string, 0, len(aliases))
	for name := range aliases {
		provides = append(provides, name)
	}
	return shadertools.Plugin{
		Name:     PluginName,
		Provides: provides,
		New: func(alias string) shadertools.Converter {
			return New(alias)
		},
	}
}

// Converter compiles WGSL with naga.
type Converter struct {
	shadertools.Settings

	defaultOut shadertools.Format
}

// New creates a converter. The alias it was requested by selects the
// default output format.
func New(alias string) *Converter {
	return &Converter{defaultOut: aliases[alias]}
}

// Features implements shadertools.Converter.
func (c *Converter) Features() shadertools.Features {
	return shadertools.FeatureValidateData | shadertools.FeatureConvertData
}

// ValidateData implements shadertools.Converter.
func (c *Converter) ValidateData(_ context.Context, _ shadertools.Stage, data []byte) (bool, string, error) {
	return c.validate(data)
}

// ValidateFile implements shadertools.Converter.
func (c *Converter) ValidateFile(_ context.Context, _ shadertools.Stage, filename string) (bool, string, error) {
	data, err := c.ReadFile(Component, "validateFile", filename)
	if err != nil {
		return false, "", err
	}
	return c.validate(data)
}

// ConvertDataToData implements shadertools.Converter.
func (c *Converter) ConvertDataToData(_ context.Context, stage shadertools.Stage, data []byte) ([]byte, error) {
	return c.convert(stage, data, "")
}

// ConvertFileToData implements shadertools.Converter.
func (c *Converter) ConvertFileToData(_ context.Context, stage shadertools.Stage, filename string) ([]byte, error) {
	data, err := c.ReadFile(Component, "convertFileToData", filename)
	if err != nil {
		return nil, err
	}
	return c.convert(stage, data, "")
}

// ConvertFileToFile implements shadertools.Converter. Without an explicit or
// default output format it is detected from the output file name.
func (c *Converter) ConvertFileToFile(_ context.Context, stage shadertools.Stage, from, to string) error {
	data, err := c.ReadFile(Component, "convertFileToFile", from)
	if err != nil {
		return err
	}
	out, err := c.convert(stage, data, to)
	if err != nil {
		return err
	}
	return c.WriteFile(Component, "convertFileToFile", to, out)
}

func (c *Converter) validate(data []byte) (bool, string, error) {
	const op = "validateData"

	if err := c.checkInput(op); err != nil {
		return false, "", err
	}
	if format, _ := c.OutputFormat(); format != shadertools.FormatUnspecified {
		return false, "", c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format should be Unspecified but got %s", format))
	}

	if _, msg := compile(string(data)); msg != "" {
		return false, msg, nil
	}
	return true, "", nil
}

func (c *Converter) convert(stage shadertools.Stage, data []byte, outFilename string) ([]byte, error) {
	const op = "convertDataToData"

	if err := c.checkInput(op); err != nil {
		return nil, err
	}
	if len(c.Definitions()) != 0 {
		return nil, c.Report(shadertools.NewError(shadertools.ErrInvalidSettings, Component, op,
			"definitions are not supported"))
	}
	if level := c.OptimizationLevel(); level != "" && level != "0" {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"optimization level should be 0 or empty but got %s", level))
	}

	format, version := c.OutputFormat()
	if format == shadertools.FormatUnspecified {
		format = c.defaultOutput(outFilename)
	}

	module, msg := compile(string(data))
	if msg != "" {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrBackend, Component, op, "compilation failed:\n%s", msg))
	}

	var (
		out        []byte
		err        error
		badVersion bool
	)
	switch format {
	case shadertools.FormatSpirv:
		opts := naga.DefaultOptions()
		v, ok := spirvVersion(version, opts.SPIRVVersion)
		if !ok {
			badVersion = true
			break
		}
		out, err = naga.GenerateSPIRV(module, spirv.Options{
			Version: v,
			Debug:   c.DebugInfoLevel() != "" && c.DebugInfoLevel() != "0",
		})
	case shadertools.FormatGlsl:
		v, ok := glslVersion(version)
		if !ok {
			badVersion = true
			break
		}
		opts := glsl.DefaultOptions()
		opts.LangVersion = v
		if opts.EntryPoint, err = entryPoint(module, stage); err != nil {
			break
		}
		var src string
		src, _, err = glsl.Compile(module, opts)
		out = []byte(src)
	case shadertools.FormatHlsl:
		opts := hlsl.DefaultOptions()
		if version != "" {
			sm, ok := shaderModels[strings.ReplaceAll(version, ".", "_")]
			if !ok {
				badVersion = true
				break
			}
			opts.ShaderModel = sm
		}
		var src string
		src, _, err = hlsl.Compile(module, opts)
		out = []byte(src)
	case shadertools.FormatMsl:
		v, ok := mslVersion(version)
		if !ok {
			badVersion = true
			break
		}
		opts := msl.DefaultOptions()
		if v != (msl.Version{}) {
			opts.LangVersion = v
		}
		var src string
		src, _, err = msl.Compile(module, opts)
		out = []byte(src)
	default:
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format should be Spirv, Glsl, Hlsl or Msl but got %s", format))
	}

	if badVersion {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format version %s is not supported for %s", version, format))
	}
	if err != nil {
		e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "%s generation failed: %v", format, err)
		e.Err = err
		return nil, c.Report(e)
	}
	return out, nil
}

func (c *Converter) checkInput(op string) error {
	format, version := c.InputFormat()
	if format != shadertools.FormatUnspecified && format != shadertools.FormatWgsl {
		return c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"input format should be Wgsl or Unspecified but got %s", format))
	}
	if version != "" {
		return c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"input format version should be empty but got %s", version))
	}
	return nil
}

// defaultOutput picks the output format when none is set: the alias
// default, then the output file name, then SPIR-V.
func (c *Converter) defaultOutput(filename string) shadertools.Format {
	if c.defaultOut != shadertools.FormatUnspecified {
		return c.defaultOut
	}
	if filename != "" {
		if format, ok := shadertools.DefaultDetector().Detect(filename); ok && format != shadertools.FormatWgsl {
			return format
		}
	}
	return shadertools.FormatSpirv
}

// compile parses, lowers and validates WGSL. A non-empty message means the
// source is invalid.
func compile(source string) (*ir.Module, string) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, describe(err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, describe(err)
	}
	problems, err := naga.Validate(module)
	if err != nil {
		return nil, describe(err)
	}
	if len(problems) > 0 {
		lines := make([]string, len(problems))
		for i, p := range problems {
			lines[i] = p.Error()
		}
		return nil, strings.Join(lines, "\n")
	}
	return module, ""
}

func describe(err error) string {
	var list wgsl.SourceErrors
	if errors.As(err, &list) {
		return strings.TrimSpace(list.FormatAll())
	}
	return err.Error()
}

// entryPoint returns the name of the entry point for stage, or "" to let
// the backend pick the first one.
func entryPoint(module *ir.Module, stage shadertools.Stage) (string, error) {
	if stage == shadertools.StageUnspecified {
		return "", nil
	}
	want, ok := irStages[stage]
	if !ok {
		return "", fmt.Errorf("%s stage is not supported", stage)
	}
	for _, ep := range module.EntryPoints {
		if ep.Stage == want {
			return ep.Name, nil
		}
	}
	return "", fmt.Errorf("no %s entry point", stage)
}

func spirvVersion(version string, def spirv.Version) (spirv.Version, bool) {
	if version == "" {
		return def, true
	}
	env, ok := target.ParseAs(version, "spv", ">= 1.0, <= 1.6")
	if !ok {
		return spirv.Version{}, false
	}
	return spirv.Version{Major: uint8(env.Version.Major()), Minor: uint8(env.Version.Minor())}, true
}

// glslVersion parses "450" or "300 es".
func glslVersion(version string) (glsl.Version, bool) {
	if version == "" {
		return glsl.Version330, true
	}
	number, es := strings.CutSuffix(version, " es")
	n, err := strconv.Atoi(number)
	if err != nil || n < 100 || n > 999 {
		return glsl.Version{}, false
	}
	return glsl.Version{Major: uint8(n / 100), Minor: uint8(n % 100), ES: es}, true
}

// mslVersion parses "2.1". An empty version returns the zero value.
func mslVersion(version string) (msl.Version, bool) {
	if version == "" {
		return msl.Version{}, true
	}
	if strings.Count(version, ".") != 1 {
		return msl.Version{}, false
	}
	v, err := semver.NewVersion(version)
	if err != nil || v.Major() < 1 || v.Major() > 3 {
		return msl.Version{}, false
	}
	return msl.Version{Major: uint8(v.Major()), Minor: uint8(v.Minor())}, true
}
