// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Stage is the pipeline stage a shader is written for.
// The zero value leaves the stage to be inferred by the backend.
type Stage uint8

// Shader stages.
const (
	StageUnspecified Stage = iota
	StageVertex
	StageTessellationControl
	StageTessellationEvaluation
	StageGeometry
	StageFragment
	StageCompute
	StageRayGeneration
	StageRayAnyHit
	StageRayClosestHit
	StageRayMiss
	StageRayIntersection
	StageRayCallable
	StageMeshTask
	StageMesh
)

var stageNames = [...]string{
	StageUnspecified:            "Unspecified",
	StageVertex:                 "Vertex",
	StageTessellationControl:    "TessellationControl",
	StageTessellationEvaluation: "TessellationEvaluation",
	StageGeometry:               "Geometry",
	StageFragment:               "Fragment",
	StageCompute:                "Compute",
	StageRayGeneration:          "RayGeneration",
	StageRayAnyHit:              "RayAnyHit",
	StageRayClosestHit:          "RayClosestHit",
	StageRayMiss:                "RayMiss",
	StageRayIntersection:        "RayIntersection",
	StageRayCallable:            "RayCallable",
	StageMeshTask:               "MeshTask",
	StageMesh:                   "Mesh",
}

// stageSuffixes maps the conventional glslang file suffixes to stages.
var stageSuffixes = map[string]Stage{
	"vert":  StageVertex,
	"tesc":  StageTessellationControl,
	"tese":  StageTessellationEvaluation,
	"geom":  StageGeometry,
	"frag":  StageFragment,
	"comp":  StageCompute,
	"rgen":  StageRayGeneration,
	"rahit": StageRayAnyHit,
	"rchit": StageRayClosestHit,
	"rmiss": StageRayMiss,
	"rint":  StageRayIntersection,
	"rcall": StageRayCallable,
	"task":  StageMeshTask,
	"mesh":  StageMesh,
}

// String returns the stage name, e.g. "Fragment".
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Suffix returns the glslang file suffix for the stage ("frag" for
// StageFragment), or an empty string for StageUnspecified.
func (s Stage) Suffix() string {
	for suffix, stage := range stageSuffixes {
		if stage == s {
			return suffix
		}
	}
	return ""
}

// ParseStage parses a stage name or a glslang stage suffix.
func ParseStage(s string) (Stage, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return StageUnspecified, nil
	}
	if stage, ok := stageSuffixes[name]; ok {
		return stage, nil
	}
	for i, n := range stageNames {
		if strings.ToLower(n) == name {
			return Stage(i), nil
		}
	}
	return StageUnspecified, fmt.Errorf("unknown shader stage %q", s)
}

// StageFromFilename infers the stage from a stage suffix in the file name.
// Container suffixes such as ".glsl", ".spv", ".spvasm" and ".asm" are
// skipped, so "phong.frag.spv" and "test.asm.rahit" both resolve.
func StageFromFilename(path string) Stage {
	name := strings.ToLower(filepath.Base(path))
	for {
		ext := filepath.Ext(name)
		if ext == "" {
			return StageUnspecified
		}
		suffix := ext[1:]
		if stage, ok := stageSuffixes[suffix]; ok {
			return stage
		}
		switch suffix {
		case "glsl", "spv", "spvasm", "asm":
			name = strings.TrimSuffix(name, ext)
		default:
			return StageUnspecified
		}
	}
}
