// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestAnyValidateFileUnknownFormat(t *testing.T) {
	logger, logs := newObservedLogger()
	r := NewRegistry(logger)
	glsl := &fakeBackend{}
	require.NoError(t, r.Register(glsl.plugin("GlslangShaderConverter", "GlslShaderConverter")))

	c := NewAnyConverter(r)
	c.SetLogger(logger)
	ok, msg, err := c.ValidateFile(context.Background(), StageUnspecified, "dead.cg")
	assert.False(t, ok)
	assert.Empty(t, msg)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUnknownFormat))
	assert.Equal(t, []string{"ShaderTools::AnyConverter::validateFile(): cannot determine the format of dead.cg"}, messages(logs))
	assert.Equal(t, 0, glsl.loads)
	assert.Equal(t, LoadStateNotLoaded, r.LoadState("GlslShaderConverter"))
}

func TestAnyMissingPlugin(t *testing.T) {
	logger, logs := newObservedLogger()
	r := NewRegistry(logger)

	c := NewAnyConverter(r)
	c.SetLogger(logger)
	ok, _, err := c.ValidateFile(context.Background(), StageFragment, "file.glsl")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, "ShaderTools::AnyConverter::validateFile(): cannot load the GlslShaderConverter plugin", err.Error())
	assert.True(t, IsKind(err, ErrPluginLoad))
	assert.True(t, IsKind(err, ErrPluginNotFound))

	assert.Equal(t, []string{
		"PluginManager::Manager::load(): plugin GlslShaderConverter was not found",
		"ShaderTools::AnyConverter::validateFile(): cannot load the GlslShaderConverter plugin",
	}, messages(logs))
}

func TestAnyLogsToRegistryLogger(t *testing.T) {
	logger, logs := newObservedLogger()
	c := NewAnyConverter(NewRegistry(logger))
	ok, _, err := c.ValidateFile(context.Background(), StageFragment, "file.glsl")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, []string{
		"PluginManager::Manager::load(): plugin GlslShaderConverter was not found",
		"ShaderTools::AnyConverter::validateFile(): cannot load the GlslShaderConverter plugin",
	}, messages(logs))

	r := NewRegistry(logger)
	spirv := &fakeBackend{ok: true}
	require.NoError(t, r.Register(spirv.plugin("SpirvToolsShaderConverter", "SpirvShaderConverter")))
	c = NewAnyConverter(r)
	c.SetFlags(FlagVerbose)
	_, _, err = c.ValidateFile(context.Background(), StageUnspecified, "flat.spv")
	require.NoError(t, err)
	assert.Equal(t, "ShaderTools::AnyConverter::validateFile(): using SpirvShaderConverter (provided by SpirvToolsShaderConverter)", logs.All()[2].Message)

	// An explicit logger replaces the registry's.
	other, otherLogs := newObservedLogger()
	c.SetLogger(other)
	_, _, err = c.ValidateFile(context.Background(), StageUnspecified, "flat.spv")
	require.NoError(t, err)
	assert.Equal(t, 1, otherLogs.FilterMessageSnippet("using SpirvShaderConverter").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("using SpirvShaderConverter").Len())
}

func TestAnyLoadFailure(t *testing.T) {
	logger, logs := newObservedLogger()
	r := NewRegistry(logger)
	glsl := &fakeBackend{loadErr: errors.New("glslangValidator not found in $PATH")}
	require.NoError(t, r.Register(glsl.plugin("GlslangShaderConverter", "GlslShaderConverter", "GlslToSpirvShaderConverter")))

	c := NewAnyConverter(r)
	c.SetLogger(logger)
	c.SetOutputFormat(FormatSpirv, "")
	_, err := c.ConvertFileToData(context.Background(), StageFragment, "shader.frag")
	require.Error(t, err)

	assert.Equal(t, []string{
		"PluginManager::Manager::load(): plugin GlslToSpirvShaderConverter failed to load: glslangValidator not found in $PATH",
		"ShaderTools::AnyConverter::convertFileToData(): cannot load the GlslToSpirvShaderConverter plugin",
	}, messages(logs))
	assert.Equal(t, 0, glsl.instances)
	assert.Equal(t, 1, glsl.loads)

	_, err = c.ConvertFileToData(context.Background(), StageFragment, "shader.frag")
	require.Error(t, err)
	assert.Equal(t, 1, glsl.loads, "a failed load is not retried")
	assert.Equal(t, 4, logs.Len())
}

func TestAnyVerbose(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		logger, logs := newObservedLogger()
		r := NewRegistry(logger)
		spirv := &fakeBackend{ok: true}
		require.NoError(t, r.Register(spirv.plugin("SpirvToolsShaderConverter", "SpirvShaderConverter")))

		c := NewAnyConverter(r)
		c.SetLogger(logger)
		if verbose {
			c.SetFlags(FlagVerbose)
		}
		ok, _, err := c.ValidateFile(context.Background(), StageUnspecified, "flat.spv")
		require.NoError(t, err)
		assert.True(t, ok)

		want := []string{"FakeSpirvToolsShaderConverter::validateFile(): called"}
		if verbose {
			want = append([]string{
				"ShaderTools::AnyConverter::validateFile(): using SpirvShaderConverter (provided by SpirvToolsShaderConverter)",
			}, want...)
			assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
		}
		assert.Equal(t, want, messages(logs), "verbose=%v", verbose)
	}
}

func TestAnyPropagatesSettings(t *testing.T) {
	r := NewRegistry(nil)
	glsl := &fakeBackend{ok: true, msg: "WARNING: file.glsl:1: '__x' : identifiers containing consecutive underscores are reserved"}
	require.NoError(t, r.Register(glsl.plugin("GlslangShaderConverter", "GlslShaderConverter")))

	defs := []Definition{{Name: "FOO", Value: "1"}, {Name: "BAR", Undefine: true}}
	c := NewAnyConverter(r)
	c.SetFlags(FlagQuiet | FlagWarningAsError)
	c.SetInputFormat(FormatUnspecified, "310 es")
	c.SetOutputFormat(FormatUnspecified, "vulkan1.1")
	c.SetDefinitions(defs)
	c.SetDebugInfoLevel("1")
	c.SetOptimizationLevel("s")

	ok, msg, err := c.ValidateFile(context.Background(), StageFragment, "file.glsl")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, glsl.msg, msg)

	want := []fakeCall{{
		op:                "validateFile",
		stage:             StageFragment,
		filename:          "file.glsl",
		flags:             FlagQuiet | FlagWarningAsError,
		inputVersion:      "310 es",
		outputVersion:     "vulkan1.1",
		definitions:       defs,
		debugInfoLevel:    "1",
		optimizationLevel: "s",
	}}
	if diff := cmp.Diff(want, glsl.calls, cmp.AllowUnexported(fakeCall{})); diff != "" {
		t.Errorf("backend call mismatch (-want +got):\n%s", diff)
	}
}

func TestAnyReturnsBackendResult(t *testing.T) {
	r := NewRegistry(nil)
	wgsl := &fakeBackend{output: []byte{1, 2, 3}}
	require.NoError(t, r.Register(wgsl.plugin("NagaShaderConverter", "WgslToMslShaderConverter")))

	c := NewAnyConverter(r)
	c.SetOutputFormat(FormatMsl, "")
	out, err := c.ConvertFileToData(context.Background(), StageCompute, "shader.wgsl")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, out)

	backendErr := NewError(ErrBackend, "ShaderTools::NagaConverter", "convertDataToData", "compilation failed")
	wgsl.err = backendErr
	wgsl.output = nil
	c2 := NewAnyConverter(r)
	c2.SetOutputFormat(FormatMsl, "")
	_, err = c2.ConvertFileToData(context.Background(), StageCompute, "shader.wgsl")
	assert.Same(t, backendErr, err)
}

func TestAnyNewInstancePerCall(t *testing.T) {
	r := NewRegistry(nil)
	spirv := &fakeBackend{ok: true}
	require.NoError(t, r.Register(spirv.plugin("SpirvToolsShaderConverter", "SpirvShaderConverter")))

	c := NewAnyConverter(r)
	for i := 0; i < 3; i++ {
		_, _, err := c.ValidateFile(context.Background(), StageUnspecified, "flat.spv")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, spirv.instances)
	assert.Equal(t, 1, spirv.loads)
}

func TestAnyConvertFileToFile(t *testing.T) {
	r := NewRegistry(nil)
	spirv := &fakeBackend{}
	require.NoError(t, r.Register(spirv.plugin("SpirvToolsShaderConverter", "SpirvAssemblyToSpirvShaderConverter")))

	c := NewAnyConverter(r)
	require.NoError(t, c.ConvertFileToFile(context.Background(), StageRayAnyHit, "test.asm.rahit", "test.spv"))
	require.Len(t, spirv.calls, 1)
	assert.Equal(t, "test.asm.rahit", spirv.calls[0].filename)
	assert.Equal(t, "test.spv", spirv.calls[0].to)
	assert.Equal(t, StageRayAnyHit, spirv.calls[0].stage)

	err := c.ConvertFileToFile(context.Background(), StageUnspecified, "test.spvasm", "out.bin")
	require.Error(t, err)
	assert.Equal(t, "ShaderTools::AnyConverter::convertFileToFile(): cannot determine the format of out.bin", err.Error())

	c.SetOutputFormat(FormatSpirv, "")
	require.NoError(t, c.ConvertFileToFile(context.Background(), StageUnspecified, "test.spvasm", "out.bin"))
	assert.Len(t, spirv.calls, 2)
}

func TestAnyDetectedFormatWins(t *testing.T) {
	r := NewRegistry(nil)
	glsl := &fakeBackend{ok: true}
	spirv := &fakeBackend{ok: true}
	require.NoError(t, r.Register(glsl.plugin("GlslangShaderConverter", "GlslShaderConverter")))
	require.NoError(t, r.Register(spirv.plugin("SpirvToolsShaderConverter", "SpirvShaderConverter")))

	c := NewAnyConverter(r)
	c.SetInputFormat(FormatSpirv, "")

	// The file name is recognised, so the explicit format is not used.
	_, _, err := c.ValidateFile(context.Background(), StageUnspecified, "shader.frag")
	require.NoError(t, err)
	assert.Len(t, glsl.calls, 1)
	assert.Empty(t, spirv.calls)

	// It is only used for names detection cannot place.
	_, _, err = c.ValidateFile(context.Background(), StageUnspecified, "shader.cg")
	require.NoError(t, err)
	assert.Len(t, glsl.calls, 1)
	require.Len(t, spirv.calls, 1)
	assert.Equal(t, "shader.cg", spirv.calls[0].filename)
}

func TestAnyDataOperations(t *testing.T) {
	r := NewRegistry(nil)
	spirv := &fakeBackend{ok: true, output: []byte("OpCapability Shader\n")}
	require.NoError(t, r.Register(spirv.plugin("SpirvToolsShaderConverter", "SpirvShaderConverter", "SpirvToSpirvAssemblyShaderConverter")))

	c := NewAnyConverter(r)
	_, _, err := c.ValidateData(context.Background(), StageUnspecified, []byte{1})
	require.Error(t, err)
	assert.Equal(t, "ShaderTools::AnyConverter::validateData(): no input format specified", err.Error())

	c.SetInputFormat(FormatSpirv, "")
	ok, _, err := c.ValidateData(context.Background(), StageUnspecified, []byte{1})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.ConvertDataToData(context.Background(), StageUnspecified, []byte{1})
	require.Error(t, err)
	assert.Equal(t, "ShaderTools::AnyConverter::convertDataToData(): no output format specified", err.Error())

	c.SetOutputFormat(FormatSpirvAssembly, "")
	out, err := c.ConvertDataToData(context.Background(), StageUnspecified, []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "OpCapability Shader\n", string(out))
	assert.Equal(t, []byte{1}, spirv.calls[len(spirv.calls)-1].data)
}

func TestAnyNotSupported(t *testing.T) {
	logger, logs := newObservedLogger()
	c := NewAnyConverter(NewRegistry(logger))
	c.SetLogger(logger)

	_, _, err := c.ValidateFile(context.Background(), StageUnspecified, "shader.hlsl")
	require.Error(t, err)
	assert.Equal(t, "ShaderTools::AnyConverter::validateFile(): cannot validate Hlsl files", err.Error())
	assert.True(t, IsKind(err, ErrNotSupported))

	c.SetOutputFormat(FormatWgsl, "")
	_, err = c.ConvertFileToData(context.Background(), StageUnspecified, "shader.glsl")
	require.Error(t, err)
	assert.Equal(t, "ShaderTools::AnyConverter::convertFileToData(): cannot convert from Glsl to Wgsl", err.Error())
	assert.Equal(t, 2, logs.Len())
}

func TestAnyOperationNames(t *testing.T) {
	tests := []struct {
		op  string
		run func(c *AnyConverter) error
	}{
		{"validateData", func(c *AnyConverter) error {
			_, _, err := c.ValidateData(context.Background(), StageUnspecified, nil)
			return err
		}},
		{"validateFile", func(c *AnyConverter) error {
			_, _, err := c.ValidateFile(context.Background(), StageUnspecified, "file.glsl")
			return err
		}},
		{"convertDataToData", func(c *AnyConverter) error {
			_, err := c.ConvertDataToData(context.Background(), StageUnspecified, nil)
			return err
		}},
		{"convertFileToData", func(c *AnyConverter) error {
			_, err := c.ConvertFileToData(context.Background(), StageUnspecified, "file.glsl")
			return err
		}},
		{"convertFileToFile", func(c *AnyConverter) error {
			return c.ConvertFileToFile(context.Background(), StageUnspecified, "file.glsl", "file.spv")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			c := NewAnyConverter(NewRegistry(nil))
			c.SetInputFormat(FormatGlsl, "")
			c.SetOutputFormat(FormatSpirv, "")
			err := tt.run(c)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, AnyComponent, e.Component)
			assert.Equal(t, tt.op, e.Op)
		})
	}
}

func TestAnyWithDetector(t *testing.T) {
	d, err := NewDetector([]DetectionRule{{Format: FormatGlsl, Patterns: []string{"*.cg"}}})
	require.NoError(t, err)

	r := NewRegistry(nil)
	glsl := &fakeBackend{ok: true}
	require.NoError(t, r.Register(glsl.plugin("GlslangShaderConverter", "GlslShaderConverter")))

	c := NewAnyConverter(r, WithDetector(d))
	ok, _, err := c.ValidateFile(context.Background(), StageFragment, "dead.cg")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAnyPlugin(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(AnyPlugin(r)))

	c, err := r.LoadAndInstantiate(context.Background(), AnyPluginName)
	require.NoError(t, err)
	assert.IsType(t, &AnyConverter{}, c)
	assert.Equal(t, FeatureValidateData|FeatureConvertData, c.Features())
}
