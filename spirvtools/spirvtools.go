// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spirvtools validates, assembles, disassembles and optimizes SPIR-V
// using the SPIRV-Tools executables. Disassembly runs in-process and falls
// back to spirv-dis for modules the built-in disassembler cannot print.
package spirvtools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/shadertools"
	"github.com/gogpu/shadertools/internal/spvasm"
	"github.com/gogpu/shadertools/internal/target"
	"github.com/gogpu/shadertools/toolexec"
)

const (
	// Component is the component name used in diagnostics.
	Component = "ShaderTools::SpirvToolsConverter"

	// PluginName is the registry name of the converter.
	PluginName = "SpirvToolsShaderConverter"
)

// Tools are the SPIRV-Tools executables. Empty fields use the default names
// looked up in $PATH.
type Tools struct {
	Val string
	As  string
	Opt string
	Dis string
}

func (t Tools) withDefaults() Tools {
	if t.Val == "" {
		t.Val = "spirv-val"
	}
	if t.As == "" {
		t.As = "spirv-as"
	}
	if t.Opt == "" {
		t.Opt = "spirv-opt"
	}
	if t.Dis == "" {
		t.Dis = "spirv-dis"
	}
	return t
}

// aliases maps each provided name to its default input and output formats.
var aliases = map[string][2]shadertools.Format{
	"SpirvShaderConverter":                {shadertools.FormatSpirv, shadertools.FormatSpirv},
	"SpirvAssemblyShaderConverter":        {shadertools.FormatSpirvAssembly, shadertools.FormatSpirvAssembly},
	"SpirvAssemblyToSpirvShaderConverter": {shadertools.FormatSpirvAssembly, shadertools.FormatSpirv},
	"SpirvToSpirvAssemblyShaderConverter": {shadertools.FormatSpirv, shadertools.FormatSpirvAssembly},
}

var optimizationFlags = map[string]string{
	"1":            "-O",
	"s":            "-Os",
	"legalizeHlsl": "--legalize-hlsl",
}

// Plugin returns the registry entry for the converter.
func Plugin(tools Tools, runner toolexec.Runner) shadertools.Plugin {
	tools = tools.withDefaults()
	provides := make([]string, 0, len(aliases))
	for name := range aliases {
		provides = append(provides, name)
	}
	return shadertools.Plugin{
		Name:     PluginName,
		Provides: provides,
		Load: func(context.Context) error {
			for _, bin := range []string{tools.Val, tools.As, tools.Opt, tools.Dis} {
				if err := toolexec.LookPath(bin); err != nil {
					return err
				}
			}
			return nil
		},
		New: func(alias string) shadertools.Converter {
			return New(alias, tools, runner)
		},
	}
}

// Converter handles SPIR-V binaries and SPIR-V assembly.
type Converter struct {
	shadertools.Settings

	tools      Tools
	runner     toolexec.Runner
	defaultIn  shadertools.Format
	defaultOut shadertools.Format
}

// New creates a converter. The alias it was requested by selects default
// input and output formats; with PluginName both are inferred from the data.
func New(alias string, tools Tools, runner toolexec.Runner) *Converter {
	if runner == nil {
		runner = toolexec.ExecRunner{}
	}
	formats := aliases[alias]
	return &Converter{
		tools:      tools.withDefaults(),
		runner:     runner,
		defaultIn:  formats[0],
		defaultOut: formats[1],
	}
}

// Features implements shadertools.Converter.
func (c *Converter) Features() shadertools.Features {
	return shadertools.FeatureValidateData | shadertools.FeatureConvertData
}

// ValidateData implements shadertools.Converter.
func (c *Converter) ValidateData(ctx context.Context, _ shadertools.Stage, data []byte) (bool, string, error) {
	return c.validate(ctx, data)
}

// ValidateFile implements shadertools.Converter.
func (c *Converter) ValidateFile(ctx context.Context, _ shadertools.Stage, filename string) (bool, string, error) {
	data, err := c.ReadFile(Component, "validateFile", filename)
	if err != nil {
		return false, "", err
	}
	return c.validate(ctx, data)
}

// ConvertDataToData implements shadertools.Converter.
func (c *Converter) ConvertDataToData(ctx context.Context, _ shadertools.Stage, data []byte) ([]byte, error) {
	return c.convert(ctx, data, "")
}

// ConvertFileToData implements shadertools.Converter.
func (c *Converter) ConvertFileToData(ctx context.Context, _ shadertools.Stage, filename string) ([]byte, error) {
	data, err := c.ReadFile(Component, "convertFileToData", filename)
	if err != nil {
		return nil, err
	}
	return c.convert(ctx, data, "")
}

// ConvertFileToFile implements shadertools.Converter. Without an explicit or
// default output format it is detected from the output file name.
func (c *Converter) ConvertFileToFile(ctx context.Context, _ shadertools.Stage, from, to string) error {
	data, err := c.ReadFile(Component, "convertFileToFile", from)
	if err != nil {
		return err
	}
	out, err := c.convert(ctx, data, to)
	if err != nil {
		return err
	}
	return c.WriteFile(Component, "convertFileToFile", to, out)
}

func (c *Converter) validate(ctx context.Context, data []byte) (bool, string, error) {
	const op = "validateData"

	in, err := c.inputFormat(op, data)
	if err != nil {
		return false, "", err
	}
	if format, _ := c.OutputFormat(); format != shadertools.FormatUnspecified {
		return false, "", c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format should be Unspecified but got %s", format))
	}
	_, version := c.InputFormat()
	env, err := c.targetEnv(op, "input", version)
	if err != nil {
		return false, "", err
	}

	binary := data
	if in == shadertools.FormatSpirvAssembly {
		run, err := c.runToFile(ctx, op, c.tools.As, env, data)
		if err != nil {
			return false, "", err
		}
		if !run.ok {
			return false, run.msg, nil
		}
		binary = run.out
	}

	if err := spvasm.Validate(binary); err != nil {
		return false, err.Error(), nil
	}

	res, err := c.runner.Run(ctx, c.tools.Val, append(env, "-"), binary)
	if err != nil {
		return false, "", c.reportRun(op, c.tools.Val, err)
	}
	msg := strings.TrimSpace(res.Output())
	if !res.Success() {
		return false, msg, nil
	}
	if msg != "" && c.Flags().Has(shadertools.FlagWarningAsError) {
		return false, msg, nil
	}
	return true, msg, nil
}

func (c *Converter) convert(ctx context.Context, data []byte, outFilename string) ([]byte, error) {
	const op = "convertDataToData"

	if len(c.Definitions()) != 0 {
		return nil, c.Report(shadertools.NewError(shadertools.ErrInvalidSettings, Component, op,
			"definitions are not supported"))
	}
	in, err := c.inputFormat(op, data)
	if err != nil {
		return nil, err
	}
	out, err := c.outputFormat(op, in, outFilename)
	if err != nil {
		return nil, err
	}
	_, version := c.OutputFormat()
	env, err := c.targetEnv(op, "output", version)
	if err != nil {
		return nil, err
	}

	level := c.OptimizationLevel()
	optFlag, ok := optimizationFlags[level]
	if !ok && level != "" && level != "0" {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"optimization level should be 0, 1, s, legalizeHlsl or empty but got %s", level))
	}

	binary := data
	if in == shadertools.FormatSpirvAssembly {
		run, err := c.runToFile(ctx, op, c.tools.As, env, data)
		if err != nil {
			return nil, err
		}
		if !run.ok {
			return nil, c.Report(shadertools.Errorf(shadertools.ErrBackend, Component, op, "assembly failed:\n%s", run.msg))
		}
		binary = run.out
	}

	if optFlag != "" {
		run, err := c.runToFile(ctx, op, c.tools.Opt, append([]string{optFlag}, env...), binary)
		if err != nil {
			return nil, err
		}
		if !run.ok {
			return nil, c.Report(shadertools.Errorf(shadertools.ErrBackend, Component, op, "optimization failed:\n%s", run.msg))
		}
		if run.msg != "" {
			c.Warn(fmt.Sprintf("%s::%s(): optimization succeeded with the following message:\n%s", Component, op, run.msg))
		}
		binary = run.out
	}

	if out == shadertools.FormatSpirvAssembly {
		return c.disassemble(ctx, op, binary)
	}

	if err := spvasm.Validate(binary); err != nil {
		e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "invalid SPIR-V: %v", err)
		e.Err = err
		return nil, c.Report(e)
	}
	return binary, nil
}

// disassemble prints binary in-process, or with spirv-dis when it uses
// instructions the built-in disassembler does not know.
func (c *Converter) disassemble(ctx context.Context, op string, binary []byte) ([]byte, error) {
	text, err := spvasm.Disassemble(binary)
	if err == nil {
		return []byte(text), nil
	}
	if !errors.Is(err, spvasm.ErrUnsupported) {
		e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "disassembly failed: %v", err)
		e.Err = err
		return nil, c.Report(e)
	}

	c.Debug(fmt.Sprintf("%s::%s(): %v, using %s", Component, op, err, c.tools.Dis))
	run, err := c.runToFile(ctx, op, c.tools.Dis, []string{"--raw-id"}, binary)
	if err != nil {
		return nil, err
	}
	if !run.ok {
		return nil, c.Report(shadertools.Errorf(shadertools.ErrBackend, Component, op, "disassembly failed:\n%s", run.msg))
	}
	return run.out, nil
}

// inputFormat resolves the input format: explicit, then the alias default,
// then sniffed from the SPIR-V magic number.
func (c *Converter) inputFormat(op string, data []byte) (shadertools.Format, error) {
	format, _ := c.InputFormat()
	switch format {
	case shadertools.FormatSpirv, shadertools.FormatSpirvAssembly:
		return format, nil
	case shadertools.FormatUnspecified:
	default:
		return shadertools.FormatUnspecified, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"input format should be Spirv, SpirvAssembly or Unspecified but got %s", format))
	}
	if c.defaultIn != shadertools.FormatUnspecified {
		return c.defaultIn, nil
	}
	if spvasm.IsBinary(data) {
		return shadertools.FormatSpirv, nil
	}
	return shadertools.FormatSpirvAssembly, nil
}

// outputFormat resolves the output format: explicit, then the alias
// default, then detected from the output file name, then the opposite of
// the input format.
func (c *Converter) outputFormat(op string, in shadertools.Format, filename string) (shadertools.Format, error) {
	format, _ := c.OutputFormat()
	switch format {
	case shadertools.FormatSpirv, shadertools.FormatSpirvAssembly:
		return format, nil
	case shadertools.FormatUnspecified:
	default:
		return shadertools.FormatUnspecified, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
			"output format should be Spirv, SpirvAssembly or Unspecified but got %s", format))
	}
	if c.defaultOut != shadertools.FormatUnspecified {
		return c.defaultOut, nil
	}
	if filename != "" {
		if detected, ok := shadertools.DefaultDetector().Detect(filename); ok &&
			(detected == shadertools.FormatSpirv || detected == shadertools.FormatSpirvAssembly) {
			return detected, nil
		}
	}
	if in == shadertools.FormatSpirv {
		return shadertools.FormatSpirvAssembly, nil
	}
	return shadertools.FormatSpirv, nil
}

// targetEnv converts a format version to --target-env arguments.
func (c *Converter) targetEnv(op, which, version string) ([]string, error) {
	if version == "" {
		return nil, nil
	}
	if env, ok := target.ParseAs(version, "spv", ">= 1.0, <= 1.6"); ok {
		return []string{"--target-env", env.String()}, nil
	}
	if env, ok := target.ParseAs(version, "vulkan", ">= 1.0, < 2.0"); ok {
		return []string{"--target-env", env.String()}, nil
	}
	return nil, c.Report(shadertools.Errorf(shadertools.ErrInvalidSettings, Component, op,
		"%s format version target should be spvX.Y or vulkanX.Y but got %s", which, version))
}

type toolRun struct {
	out []byte
	msg string
	ok  bool
}

// runToFile runs bin on stdin with its output written to a temporary file.
func (c *Converter) runToFile(ctx context.Context, op, bin string, args []string, stdin []byte) (toolRun, error) {
	var run toolRun
	err := toolexec.InTempDir(func(dir string) error {
		path := filepath.Join(dir, "out.spv")
		full := append(append([]string(nil), args...), "-o", path, "-")
		res, err := c.runner.Run(ctx, bin, full, stdin)
		if err != nil {
			return c.reportRun(op, bin, err)
		}
		run.msg = strings.TrimSpace(res.Output())
		if !res.Success() {
			return nil
		}
		run.out, err = os.ReadFile(path)
		if err != nil {
			e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "cannot read output of %s", bin)
			e.Err = err
			return c.Report(e)
		}
		run.ok = true
		return nil
	})
	return run, err
}

func (c *Converter) reportRun(op, bin string, err error) error {
	e := shadertools.Errorf(shadertools.ErrBackend, Component, op, "cannot run %s", bin)
	e.Err = err
	return c.Report(e)
}
