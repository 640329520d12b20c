// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command shaderconverter validates and converts shaders. The converter is
// picked from the file names unless --plugin names one.
//
// Usage:
//
//	shaderconverter validate [flags] <file>...
//	shaderconverter convert [flags] <input> <output>
//	shaderconverter plugins [--load]
//
// Examples:
//
//	shaderconverter validate shader.frag shader.vert    # Validate with glslang
//	shaderconverter convert shader.wgsl shader.spv      # Compile WGSL to SPIR-V
//	shaderconverter convert --watch in.wgsl out.metal   # Recompile on change
//	shaderconverter convert --output-version vulkan1.1 phong.frag phong.frag.spv
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gogpu/shadertools"
	"github.com/gogpu/shadertools/builtin"
	"github.com/gogpu/shadertools/config"
	"github.com/gogpu/shadertools/toolexec"
)

const version = "0.1.0-dev"

// errReported is returned when the failure was already printed.
var errReported = errors.New("failure reported")

type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath     string
	verbose        bool
	quiet          bool
	warningAsError bool
	plugin         string

	// runner replaces real tool processes in tests.
	runner toolexec.Runner

	cfg      *config.Config
	logger   *zap.Logger
	registry *shadertools.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(ctx)
	a.teardown()
	if err == nil {
		return 0
	}
	if !reported(err) {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return 1
}

// reported reports whether err was already logged as a diagnostic.
func reported(err error) bool {
	var diag *shadertools.Error
	return errors.Is(err, errReported) || errors.As(err, &diag)
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shaderconverter",
		Short: "Shader validator and converter",
		Long: `shaderconverter validates shaders and converts them between SPIR-V,
SPIR-V assembly, GLSL, WGSL, HLSL and MSL.

Formats are detected from file names. The matching converter plugin is
loaded on demand; glslang, SPIRV-Tools and SPIRV-Cross based plugins need
the corresponding executables, WGSL is handled in-process.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (YAML)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "print which plugin handles each file")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "suppress warnings")
	flags.BoolVar(&a.warningAsError, "warning-as-error", false, "treat warnings as errors")
	flags.StringVar(&a.plugin, "plugin", "", "converter plugin to use instead of "+shadertools.AnyPluginName)

	cmd.AddCommand(
		a.validateCmd(),
		a.convertCmd(),
		a.pluginsCmd(),
		a.versionCmd(),
	)
	return cmd
}

// setup loads the configuration and registers the built-in plugins.
func (a *app) setup() error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	level := a.cfg.Level()
	if a.verbose {
		level = zapcore.DebugLevel
	}
	a.logger = newLogger(a.stderr, level)

	a.registry = shadertools.NewRegistry(a.logger)
	if err := builtin.RegisterWith(a.registry, a.cfg, a.runner); err != nil {
		return fmt.Errorf("failed to register plugins: %w", err)
	}
	return nil
}

func (a *app) teardown() {
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			a.logger.Warn(err.Error())
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// newLogger returns a logger printing bare messages, one per line.
func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level))
}

func (a *app) flags() shadertools.Flags {
	var f shadertools.Flags
	if a.quiet {
		f |= shadertools.FlagQuiet
	}
	if a.verbose {
		f |= shadertools.FlagVerbose
	}
	if a.warningAsError {
		f |= shadertools.FlagWarningAsError
	}
	return f
}

// newConverter instantiates the selected plugin with the global flags set.
func (a *app) newConverter(ctx context.Context) (shadertools.Converter, error) {
	name := a.plugin
	if name == "" {
		name = shadertools.AnyPluginName
	}
	c, err := a.registry.LoadAndInstantiate(ctx, name)
	if err != nil {
		return nil, err
	}
	c.SetFlags(a.flags())
	return c, nil
}
