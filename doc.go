// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package shadertools validates and converts shaders through pluggable
// converters.
//
// Converters are registered in a Registry under a plugin name and any number
// of alias names:
//   - GlslangShaderConverter: GLSL validation and GLSL to SPIR-V (glslangValidator)
//   - SpirvToolsShaderConverter: SPIR-V and SPIR-V assembly (spirv-val, spirv-as, spirv-opt, spirv-dis)
//   - SpirvCrossShaderConverter: SPIR-V to GLSL (spirv-cross)
//   - NagaShaderConverter: WGSL to SPIR-V, GLSL, HLSL and MSL, in-process
//
// AnyShaderConverter sits in front of them. It detects formats from file
// names, resolves the alias handling the combination, loads it and forwards
// the call together with every setting.
//
// Example usage:
//
//	registry := shadertools.NewRegistry(logger)
//	if err := builtin.Register(registry, nil); err != nil {
//	    log.Fatal(err)
//	}
//	c := shadertools.NewAnyConverter(registry)
//	c.SetLogger(logger)
//	c.SetOutputFormat(shadertools.FormatUnspecified, "vulkan1.1")
//	if err := c.ConvertFileToFile(ctx, shadertools.StageUnspecified, "phong.frag", "phong.frag.spv"); err != nil {
//	    log.Fatal(err)
//	}
//
// Diagnostics are written to the converter's zap logger as they happen,
// using the "<Component>::<operation>(): <message>" form. Errors returned by
// converters are *Error values carrying the same text.
package shadertools
