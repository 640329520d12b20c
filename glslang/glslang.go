// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glslang validates GLSL and compiles it to SPIR-V with the Khronos
// reference compiler, glslangValidator.
package glslang

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/shadertools"
	"github.com/gogpu/shadertools/internal/target"
	"github.com/gogpu/shadertools/toolexec"
)

const (
	// Component is the component name used in diagnostics.
	Component = "ShaderTools::GlslangConverter"

	// PluginName is the registry name of the converter.
	PluginName = "GlslangShaderConverter"

	// DefaultBin is the glslangValidator executable looked up in $PATH.
	DefaultBin = "glslangValidator"
)

// supportedVersions are the #version strings glslang accepts.
var supportedVersions = map[string]string{
	"110": "110", "120": "120", "130": "130", "140": "140", "150": "150",
	"330": "330", "400": "400", "410": "410", "420": "420", "430": "430",
	"440": "440", "450": "450", "460": "460",
	"300 es": "300es", "310 es": "310es", "320 es": "320es",
}

// Plugin returns the registry entry for the converter. It provides GLSL
// validation and GLSL to SPIR-V compilation.
func Plugin(bin string, runner toolexec.Runner) shadertools.Plugin {
	if bin == "" {
		bin = DefaultBin
	}
	return shadertools.Plugin{
		Name:     PluginName,
		Provides: []string{"GlslShaderConverter", "GlslToSpirvShaderConverter"},
		Load: func(context.Context) error {
			return toolexec.LookPath(bin)
		},
		New: func(string) shadertools.Converter {
			return New(bin, runner)
		},
	}
}

// Converter runs glslangValidator on GLSL sources.
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
	return shadertools.FeatureValidateData | shadertools.FeatureConvertData
}

// ValidateData implements shadertools.Converter.
func (c *Converter) ValidateData(ctx context.Context, stage shadertools.Stage, data []byte) (bool, string, error) {
	return c.validate(ctx, stage, data, "")
}

// ValidateFile implements shadertools.Converter.
func (c *Converter) ValidateFile(ctx context.Context, stage shadertools.Stage, filename string) (bool, string, error) {
	data, err := c.ReadFile(Component, "validateFile", filename)
	if err != nil {
		return false, "", err
	}
	return c.validate(ctx, stage, data, filename)
}

// ConvertDataToData implements shadertools.Converter.
func (c *Converter) ConvertDataToData(ctx context.Context, stage shadertools.Stage, data []byte) ([]byte, error) {
	return c.convert(ctx, stage, data, "")
}

// ConvertFileToData implements shadertools.Converter.
func (c *Converter) ConvertFileToData(ctx context.Context, stage shadertools.Stage, filename string) ([]byte, error) {
	data, err := c.ReadFile(Component, "convertFileToData", filename)
	if err != nil {
		return nil, err
	}
	return c.convert(ctx, stage, data, filename)
}

// ConvertFileToFile implements shadertools.Converter.
func (c *Converter) ConvertFileToFile(ctx context.Context, stage shadertools.Stage, from, to string) error {
	data, err := c.ReadFile(Component, "convertFileToFile", from)
	if err != nil {
		return err
	}
	out, err := c.convert(ctx, stage, data, from)
	if err != nil {
		return err
	}
	return c.WriteFile(Component, "convertFileToFile", to, out)
}

func (c *Converter) validate(ctx context.Context, stage shadertools.Stage, data []byte, filename string) (bool, string, error) {
	const op = "validateData"

	args, err := c.commonArgs(op, stage, filename)
	if err != nil {
		return false, "", err
	}
	if format, _ := c.OutputFormat(); format != shadertools.FormatUnspecified {
		return false, "", c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format should be Unspecified but got %s", format))
	}

	res, err := c.runner.Run(ctx, c.bin, args, data)
	if err != nil {
		e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "cannot run %s", c.bin)
		e.Err = err
		return false, "", c.Report(e)
	}

	msg := formatMessages(res.Output(), filename)
	if !res.Success() {
		return false, msg, nil
	}
	if hasWarnings(msg) && c.Flags().Has(shadertools.FlagWarningAsError) {
		return false, msg, nil
	}
	return true, msg, nil
}

func (c *Converter) convert(ctx context.Context, stage shadertools.Stage, data []byte, filename string) ([]byte, error) {
	const op = "convertDataToData"

	args, err := c.commonArgs(op, stage, filename)
	if err != nil {
		return nil, err
	}
	targetArgs, err := c.targetArgs(op)
	if err != nil {
		return nil, err
	}
	args = append(args, targetArgs...)

	var out []byte
	err = toolexec.InTempDir(func(dir string) error {
		path := filepath.Join(dir, "out.spv")
		res, err := c.runner.Run(ctx, c.bin, append(args, "-o", path), data)
		if err != nil {
			e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "cannot run %s", c.bin)
			e.Err = err
			return c.Report(e)
		}

		msg := formatMessages(res.Output(), filename)
		if !res.Success() || (hasWarnings(msg) && c.Flags().Has(shadertools.FlagWarningAsError)) {
			return c.Report(shadertools.Errorf(shadertools.ErrBackend, Component, op, "compilation failed:\n%s", msg))
		}
		if msg != "" {
			c.Warn(fmt.Sprintf("%s::%s(): compilation succeeded with the following message:\n%s", Component, op, msg))
		}

		out, err = os.ReadFile(path)
		if err != nil {
			e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "cannot read compiled output")
			e.Err = err
			return c.Report(e)
		}
		return nil
	})
	return out, err
}

// commonArgs checks the input settings and returns the arguments shared by
// validation and compilation.
func (c *Converter) commonArgs(op string, stage shadertools.Stage, filename string) ([]string, error) {
	format, version := c.InputFormat()
	if format != shadertools.FormatUnspecified && format != shadertools.FormatGlsl {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"input format should be Glsl or Unspecified but got %s", format))
	}
	glslVersion, ok := supportedVersions[version]
	if version != "" && !ok {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"input format version should be one of supported GLSL #version strings but got %s", version))
	}

	if stage == shadertools.StageUnspecified && filename != "" {
		stage = shadertools.StageFromFilename(filename)
	}
	if stage == shadertools.StageUnspecified {
		return nil, c.Report(shadertools.NewError(shadertools.ErrInvalidSettings, Component, op,
			"cannot determine the shader stage"))
	}

	args := []string{"--stdin", "-S", stage.Suffix()}
	if glslVersion != "" {
		args = append(args, "--glsl-version", glslVersion)
	}
	for _, d := range c.Definitions() {
		switch {
		case d.Undefine:
			args = append(args, "-U"+d.Name)
		case d.Value != "":
			args = append(args, "-D"+d.Name+"="+d.Value)
		default:
			args = append(args, "-D"+d.Name)
		}
	}
	if level := c.DebugInfoLevel(); level != "" && level != "0" {
		args = append(args, "-g")
	}
	if level := c.OptimizationLevel(); level != "" && level != "0" {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"optimization level should be 0 or empty but got %s", level))
	}
	return args, nil
}

// targetArgs checks the output settings of a compilation.
func (c *Converter) targetArgs(op string) ([]string, error) {
	format, version := c.OutputFormat()
	if format != shadertools.FormatUnspecified && format != shadertools.FormatSpirv {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format should be Spirv or Unspecified but got %s", format))
	}
	if version == "" {
		return []string{"-V"}, nil
	}
	if _, ok := target.ParseAs(version, "opengl", "= 4.5"); ok {
		return []string{"-G"}, nil
	}
	if env, ok := target.ParseAs(version, "vulkan", ">= 1.0, < 2.0"); ok {
		return []string{"-V", "--target-env", env.String()}, nil
	}
	return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
		"output format version target should be opengl4.5 or vulkanX.Y but got %s", version))
}

// formatMessages cleans glslangValidator output: blank lines and the stdin
// banner are dropped and the string index "0:" of each diagnostic is
// replaced with the file name, if there is one.
func formatMessages(out, filename string) string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r ")
		if line == "" || line == "stdin" {
			continue
		}
		if filename != "" {
			for _, prefix := range []string{"ERROR: ", "WARNING: "} {
				if strings.HasPrefix(line, prefix+"0:") {
					line = prefix + filename + ":" + strings.TrimPrefix(line, prefix+"0:")
				}
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func hasWarnings(msg string) bool {
	for _, line := range strings.Split(msg, "\n") {
		if strings.HasPrefix(line, "WARNING: ") {
			return true
		}
	}
	return false
}
