// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"fmt"
	"sort"
)

type conversion struct {
	from, to Format
}

// Resolver maps detected formats to the name of the plugin handling them.
// There is exactly one plugin per combination and no fallback.
type Resolver struct {
	validate map[Format]string
	convert  map[conversion]string
}

// DefaultResolver returns the built-in plugin mapping.
func DefaultResolver() *Resolver {
	return &Resolver{
		validate: map[Format]string{
			FormatSpirv:         "SpirvShaderConverter",
			FormatSpirvAssembly: "SpirvAssemblyShaderConverter",
			FormatGlsl:          "GlslShaderConverter",
			FormatWgsl:          "WgslShaderConverter",
		},
		convert: map[conversion]string{
			{FormatSpirv, FormatSpirv}:                 "SpirvShaderConverter",
			{FormatSpirvAssembly, FormatSpirv}:         "SpirvAssemblyToSpirvShaderConverter",
			{FormatSpirv, FormatSpirvAssembly}:         "SpirvToSpirvAssemblyShaderConverter",
			{FormatSpirvAssembly, FormatSpirvAssembly}: "SpirvAssemblyShaderConverter",
			{FormatGlsl, FormatSpirv}:                  "GlslToSpirvShaderConverter",
			{FormatSpirv, FormatGlsl}:                  "SpirvToGlslShaderConverter",
			{FormatWgsl, FormatSpirv}:                  "WgslToSpirvShaderConverter",
			{FormatWgsl, FormatGlsl}:                   "WgslToGlslShaderConverter",
			{FormatWgsl, FormatHlsl}:                   "WgslToHlslShaderConverter",
			{FormatWgsl, FormatMsl}:                    "WgslToMslShaderConverter",
		},
	}
}

// Validate returns the plugin validating files of the given format.
func (r *Resolver) Validate(from Format) (string, error) {
	if name, ok := r.validate[from]; ok {
		return name, nil
	}
	return "", NewError(ErrNotSupported, "", "", fmt.Sprintf("cannot validate %s files", from))
}

// Convert returns the plugin converting between the given formats.
func (r *Resolver) Convert(from, to Format) (string, error) {
	if name, ok := r.convert[conversion{from, to}]; ok {
		return name, nil
	}
	return "", NewError(ErrNotSupported, "", "", fmt.Sprintf("cannot convert from %s to %s", from, to))
}

// Plugins returns every plugin name the resolver can produce, sorted.
func (r *Resolver) Plugins() []string {
	seen := make(map[string]bool)
	for _, name := range r.validate {
		seen[name] = true
	}
	for _, name := range r.convert {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
