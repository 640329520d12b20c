// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) convertCmd() *cobra.Command {
	var s settings
	var watch bool
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "convert [flags] <input> <output>",
		Short: "Convert a shader between formats",
		Long: `Convert a shader file. Formats are detected from both file names;
--input-format and --output-format apply when detection fails. Use "-" for
stdin or stdout, which requires the corresponding format flag.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := args[0], args[1]
			if !watch {
				return a.convert(cmd.Context(), &s, from, to)
			}
			if from == "-" || to == "-" {
				return errors.New("--watch needs an input and an output file")
			}
			return a.watch(cmd.Context(), &s, from, to, debounce)
		},
	}
	s.registerInput(cmd.Flags())
	s.registerOutput(cmd.Flags())
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "convert again whenever the input changes")
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "delay before converting a changed input")
	return cmd
}

func (a *app) convert(ctx context.Context, s *settings, from, to string) error {
	c, err := a.newConverter(ctx)
	if err != nil {
		return err
	}
	stage, err := s.apply(c)
	if err != nil {
		return err
	}

	switch {
	case from != "-" && to != "-":
		return c.ConvertFileToFile(ctx, stage, from, to)
	case from != "-":
		out, err := c.ConvertFileToData(ctx, stage, from)
		if err != nil {
			return err
		}
		return a.writeOutput(to, out)
	default:
		in, err := io.ReadAll(a.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		out, err := c.ConvertDataToData(ctx, stage, in)
		if err != nil {
			return err
		}
		return a.writeOutput(to, out)
	}
}

func (a *app) writeOutput(to string, data []byte) error {
	if to == "-" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(to, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// watch converts once and then again after every change of the input,
// until ctx is canceled. Conversion failures are reported and do not stop
// watching.
func (a *app) watch(ctx context.Context, s *settings, from, to string, debounce time.Duration) error {
	w, err := newFileWatcher(from, debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	convert := func(ctx context.Context) {
		if err := a.convert(ctx, s, from, to); err != nil {
			if !reported(err) {
				a.logger.Error(err.Error())
			}
			return
		}
		fmt.Fprintf(a.stdout, "converted %s to %s\n", from, to)
	}

	convert(ctx)
	w.OnError = func(err error) { a.logger.Warn(err.Error()) }
	return w.Run(ctx, convert)
}
