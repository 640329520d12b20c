// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type validation struct {
	ok  bool
	msg string
	err error
}

func (a *app) validateCmd() *cobra.Command {
	var s settings
	var jobs int
	cmd := &cobra.Command{
		Use:   "validate [flags] <file>...",
		Short: "Validate shader files",
		Long: `Validate one or more shader files. Use "-" to read stdin, which
requires --input-format.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validate(cmd.Context(), &s, jobs, args)
		},
	}
	s.registerInput(cmd.Flags())
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "files validated in parallel")
	return cmd
}

// validate checks every file and prints the results in argument order.
// Converters are not safe for concurrent use, so each file gets its own.
func (a *app) validate(ctx context.Context, s *settings, jobs int, files []string) error {
	if jobs < 1 {
		return fmt.Errorf("--jobs must be positive, got %d", jobs)
	}

	var stdin []byte
	for _, f := range files {
		if f == "-" {
			data, err := io.ReadAll(a.stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			stdin = data
			break
		}
	}

	results := make([]validation, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range files {
		g.Go(func() error {
			c, err := a.newConverter(gctx)
			if err != nil {
				return err
			}
			stage, err := s.apply(c)
			if err != nil {
				return err
			}
			r := &results[i]
			if file == "-" {
				r.ok, r.msg, r.err = c.ValidateData(gctx, stage, stdin)
			} else {
				r.ok, r.msg, r.err = c.ValidateFile(gctx, stage, file)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := false
	for i, r := range results {
		name := files[i]
		if name == "-" {
			name = "<stdin>"
		}
		switch {
		case r.err != nil:
			failed = true
		case !r.ok && r.msg != "":
			failed = true
			fmt.Fprintf(a.stdout, "%s: validation failed:\n%s\n", name, r.msg)
		case !r.ok:
			failed = true
			fmt.Fprintf(a.stdout, "%s: validation failed\n", name)
		case r.msg != "":
			fmt.Fprintf(a.stdout, "%s: validation passed with the following message:\n%s\n", name, r.msg)
		default:
			fmt.Fprintf(a.stdout, "%s: validation passed\n", name)
		}
	}
	if failed {
		return errReported
	}
	return nil
}
