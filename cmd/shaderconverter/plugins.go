// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) pluginsCmd() *cobra.Command {
	var load bool
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List converter plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listPlugins(cmd.Context(), load)
		},
	}
	cmd.Flags().BoolVar(&load, "load", false, "load every plugin to check that its tools are installed")
	return cmd
}

func (a *app) listPlugins(ctx context.Context, load bool) error {
	if load {
		for _, p := range a.registry.Plugins() {
			// Failures are logged by the registry and shown as the state.
			_, _ = a.registry.Load(ctx, p.Name)
		}
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tPROVIDES")
	for _, p := range a.registry.Plugins() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.State, strings.Join(p.Provides, ", "))
	}
	return tw.Flush()
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "shaderconverter version %s\n", version)
			if v := nagaVersion(); v != "" {
				fmt.Fprintf(a.stdout, "naga %s\n", v)
			}
		},
	}
}

// nagaVersion returns the version of the linked naga module, if known.
func nagaVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path == "github.com/gogpu/naga" {
			return dep.Version
		}
	}
	return ""
}
