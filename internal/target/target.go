// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package target parses target environment strings such as "vulkan1.1",
// "spv1.4" or "opengl4.5".
package target

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Env is a named environment with a major.minor version.
type Env struct {
	Name    string
	Version *semver.Version
}

// String returns the environment in the form it was parsed from.
func (e Env) String() string {
	return fmt.Sprintf("%s%d.%d", e.Name, e.Version.Major(), e.Version.Minor())
}

// Parse splits s into a lowercase name and a "major.minor" version.
func Parse(s string) (Env, error) {
	i := strings.IndexAny(s, "0123456789")
	if i <= 0 {
		return Env{}, fmt.Errorf("invalid target %q", s)
	}
	name, ver := s[:i], s[i:]
	if strings.Count(ver, ".") != 1 {
		return Env{}, fmt.Errorf("invalid target %q: version must be major.minor", s)
	}
	v, err := semver.NewVersion(ver)
	if err != nil {
		return Env{}, fmt.Errorf("invalid target %q: %w", s, err)
	}
	return Env{Name: strings.ToLower(name), Version: v}, nil
}

// Is reports whether the environment has the given name and its version
// satisfies constraint, e.g. ">= 1.0, < 2.0". An empty constraint matches
// any version.
func (e Env) Is(name, constraint string) bool {
	if e.Name != name || e.Version == nil {
		return false
	}
	if constraint == "" {
		return true
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	return c.Check(e.Version)
}

// ParseAs parses s and checks it names the given environment.
func ParseAs(s, name, constraint string) (Env, bool) {
	env, err := Parse(s)
	if err != nil || !env.Is(name, constraint) {
		return Env{}, false
	}
	return env, true
}
