// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package toolexec runs external shader tools such as glslangValidator,
// spirv-as or spirv-cross.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Result is the outcome of a tool run that managed to start.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports whether the tool exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stdout followed by stderr.
func (r Result) Output() string {
	return string(r.Stdout) + string(r.Stderr)
}

// Runner runs a tool. A non-zero exit status is not an error; err is set
// only if the tool could not be run at all.
type Runner interface {
	Run(ctx context.Context, bin string, args []string, stdin []byte) (Result, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, bin string, args []string, stdin []byte) (Result, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("failed to run %s: %w", bin, err)
	}
	return res, nil
}

// LookPath checks that bin can be executed.
func LookPath(bin string) error {
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%s not found in $PATH: %w", bin, err)
	}
	return nil
}

// InTempDir calls fn with a fresh temporary directory that is removed afterwards.
// Tools that only write to files get their output paths inside it.
func InTempDir(fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", "shadertools-")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}
