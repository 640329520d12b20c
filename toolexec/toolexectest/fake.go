// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package toolexectest provides a scripted toolexec.Runner for tests.
package toolexectest

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/gogpu/shadertools/toolexec"
)

// Call records one tool invocation.
type Call struct {
	Bin   string
	Args  []string
	Stdin []byte
}

// Step is the scripted response to one invocation.
type Step struct {
	Result toolexec.Result
	Err    error

	// OutputArg names the flag whose value is the output path; Output is
	// written there.
	OutputArg string
	Output    []byte
}

// Runner replays Steps in order. Once they run out every call succeeds
// with an empty result.
type Runner struct {
	mu    sync.Mutex
	Steps []Step
	Calls []Call
}

// Run implements toolexec.Runner.
func (r *Runner) Run(_ context.Context, bin string, args []string, stdin []byte) (toolexec.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, Call{
		Bin:   bin,
		Args:  append([]string(nil), args...),
		Stdin: append([]byte(nil), stdin...),
	})
	if len(r.Steps) == 0 {
		return toolexec.Result{}, nil
	}
	step := r.Steps[0]
	r.Steps = r.Steps[1:]

	if step.OutputArg != "" {
		for i := 0; i+1 < len(args); i++ {
			if args[i] == step.OutputArg {
				if err := os.MkdirAll(filepath.Dir(args[i+1]), 0o755); err != nil {
					return toolexec.Result{}, err
				}
				if err := os.WriteFile(args[i+1], step.Output, 0o644); err != nil {
					return toolexec.Result{}, err
				}
			}
		}
	}
	return step.Result, step.Err
}

// LastCall returns the most recent invocation.
func (r *Runner) LastCall() Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return Call{}
	}
	return r.Calls[len(r.Calls)-1]
}
