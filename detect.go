// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// stageSuffixPattern is the glob alternation of every glslang stage suffix.
const stageSuffixPattern = "{vert,frag,geom,tesc,tese,comp,rgen,rint,rahit,rchit,rmiss,rcall,mesh,task}"

// DetectionRule maps file name patterns to a format. Patterns are globs
// matched against the lower-cased base name of a path.
type DetectionRule struct {
	Format   Format
	Patterns []string
}

// DefaultDetectionRules returns the built-in rules. Order matters: the
// first matching rule wins, so "phong.frag.spv" is SPIR-V and
// "test.asm.rahit" is SPIR-V assembly rather than GLSL.
func DefaultDetectionRules() []DetectionRule {
	return []DetectionRule{
		{Format: FormatSpirv, Patterns: []string{"*.spv"}},
		{Format: FormatSpirvAssembly, Patterns: []string{"*.spvasm", "*.asm." + stageSuffixPattern}},
		{Format: FormatGlsl, Patterns: []string{"*.glsl", "*." + stageSuffixPattern}},
		{Format: FormatWgsl, Patterns: []string{"*.wgsl"}},
		{Format: FormatHlsl, Patterns: []string{"*.hlsl"}},
		{Format: FormatMsl, Patterns: []string{"*.metal", "*.msl"}},
	}
}

type compiledRule struct {
	format   Format
	patterns []glob.Glob
}

// Detector infers shader formats from file names.
type Detector struct {
	rules []compiledRule
}

// NewDetector compiles detection rules.
func NewDetector(rules []DetectionRule) (*Detector, error) {
	if len(rules) == 0 {
		return nil, errors.New("no detection rules")
	}
	d := &Detector{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		if rule.Format == FormatUnspecified {
			return nil, errors.New("detection rule without a format")
		}
		if len(rule.Patterns) == 0 {
			return nil, fmt.Errorf("detection rule for %s has no patterns", rule.Format)
		}
		cr := compiledRule{format: rule.Format}
		for _, p := range rule.Patterns {
			g, err := glob.Compile(strings.ToLower(p))
			if err != nil {
				return nil, fmt.Errorf("detection rule for %s: bad pattern %q: %w", rule.Format, p, err)
			}
			cr.patterns = append(cr.patterns, g)
		}
		d.rules = append(d.rules, cr)
	}
	return d, nil
}

// DefaultDetector returns a detector for DefaultDetectionRules.
func DefaultDetector() *Detector {
	d, err := NewDetector(DefaultDetectionRules())
	if err != nil {
		panic(err)
	}
	return d
}

// Detect returns the format of path, or false if no rule matches.
func (d *Detector) Detect(path string) (Format, bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, rule := range d.rules {
		for _, g := range rule.patterns {
			if g.Match(name) {
				return rule.format, true
			}
		}
	}
	return FormatUnspecified, false
}
