// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"fmt"
	"strings"
)

// Format identifies a shader representation.
type Format uint8

// Shader formats.
const (
	// FormatUnspecified means the format is not known or left for detection.
	FormatUnspecified Format = iota

	// FormatSpirv is a SPIR-V binary module.
	FormatSpirv

	// FormatSpirvAssembly is SPIR-V in its textual assembly form.
	FormatSpirvAssembly

	// FormatGlsl is OpenGL Shading Language source.
	FormatGlsl

	// FormatWgsl is WebGPU Shading Language source.
	FormatWgsl

	// FormatHlsl is High-Level Shading Language source.
	FormatHlsl

	// FormatMsl is Metal Shading Language source.
	FormatMsl
)

var formatNames = [...]string{
	FormatUnspecified:   "Unspecified",
	FormatSpirv:         "Spirv",
	FormatSpirvAssembly: "SpirvAssembly",
	FormatGlsl:          "Glsl",
	FormatWgsl:          "Wgsl",
	FormatHlsl:          "Hlsl",
	FormatMsl:           "Msl",
}

// String returns the format name, e.g. "Spirv".
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat parses a format name as returned by Format.String.
// Matching is case-insensitive; "spirv-assembly" and "spvasm" are accepted too.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unspecified":
		return FormatUnspecified, nil
	case "spirv", "spv":
		return FormatSpirv, nil
	case "spirvassembly", "spirv-assembly", "spvasm":
		return FormatSpirvAssembly, nil
	case "glsl":
		return FormatGlsl, nil
	case "wgsl":
		return FormatWgsl, nil
	case "hlsl":
		return FormatHlsl, nil
	case "msl", "metal":
		return FormatMsl, nil
	}
	return FormatUnspecified, fmt.Errorf("unknown shader format %q", s)
}
