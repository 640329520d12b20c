// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"context"
	"os"

	"go.uber.org/zap"
)

// Flags configure converter behavior. They are forwarded unchanged from a
// delegating converter to the backend it selects.
type Flags uint8

const (
	// FlagQuiet suppresses warnings. Errors are still reported.
	FlagQuiet Flags = 1 << iota

	// FlagVerbose enables additional debug output.
	FlagVerbose

	// FlagWarningAsError treats warnings as errors.
	FlagWarningAsError
)

// Has reports whether all flags in other are set.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// Features describes what a converter can do. File operations are available
// whenever the corresponding data operation is.
type Features uint8

const (
	// FeatureValidateData means ValidateData and ValidateFile are implemented.
	FeatureValidateData Features = 1 << iota

	// FeatureConvertData means the Convert* operations are implemented.
	FeatureConvertData
)

// Has reports whether all features in other are present.
func (f Features) Has(other Features) bool {
	return f&other == other
}

// Definition is a preprocessor definition passed to the backend.
type Definition struct {
	Name  string
	Value string

	// Undefine removes a definition instead of adding one.
	Undefine bool
}

// Configurable is the state shared by all converters. Settings implements it.
type Configurable interface {
	Flags() Flags
	SetFlags(flags Flags)
	InputFormat() (Format, string)
	SetInputFormat(format Format, version string)
	OutputFormat() (Format, string)
	SetOutputFormat(format Format, version string)
	Definitions() []Definition
	SetDefinitions(defs []Definition)
	DebugInfoLevel() string
	SetDebugInfoLevel(level string)
	OptimizationLevel() string
	SetOptimizationLevel(level string)
	Logger() *zap.Logger
	SetLogger(logger *zap.Logger)
}

// Converter is the capability interface implemented by every backend and by
// AnyConverter.
//
// Validation returns whether the input is valid together with the messages
// the backend produced for it; a non-nil error means validation could not
// run at all (bad settings, unreadable file, missing plugin). Conversion
// failures, including compilation errors, are returned as errors.
type Converter interface {
	Configurable

	// Features reports the supported operations.
	Features() Features

	ValidateData(ctx context.Context, stage Stage, data []byte) (bool, string, error)
	ValidateFile(ctx context.Context, stage Stage, filename string) (bool, string, error)
	ConvertDataToData(ctx context.Context, stage Stage, data []byte) ([]byte, error)
	ConvertFileToData(ctx context.Context, stage Stage, filename string) ([]byte, error)
	ConvertFileToFile(ctx context.Context, stage Stage, from, to string) error
}

// Settings holds the Configurable state. Converters embed it.
type Settings struct {
	flags             Flags
	inputFormat       Format
	inputVersion      string
	outputFormat      Format
	outputVersion     string
	definitions       []Definition
	debugInfoLevel    string
	optimizationLevel string
	logger            *zap.Logger
}

func (s *Settings) Flags() Flags         { return s.flags }
func (s *Settings) SetFlags(flags Flags) { s.flags = flags }

// InputFormat returns the explicitly set input format and version.
func (s *Settings) InputFormat() (Format, string) { return s.inputFormat, s.inputVersion }

// SetInputFormat overrides the input format and version. An empty version
// leaves the choice to the backend.
func (s *Settings) SetInputFormat(format Format, version string) {
	s.inputFormat = format
	s.inputVersion = version
}

// OutputFormat returns the explicitly set output format and version.
func (s *Settings) OutputFormat() (Format, string) { return s.outputFormat, s.outputVersion }

// SetOutputFormat overrides the output format and version.
func (s *Settings) SetOutputFormat(format Format, version string) {
	s.outputFormat = format
	s.outputVersion = version
}

func (s *Settings) Definitions() []Definition { return s.definitions }

func (s *Settings) SetDefinitions(defs []Definition) {
	s.definitions = append([]Definition(nil), defs...)
}

func (s *Settings) DebugInfoLevel() string         { return s.debugInfoLevel }
func (s *Settings) SetDebugInfoLevel(level string) { s.debugInfoLevel = level }

func (s *Settings) OptimizationLevel() string         { return s.optimizationLevel }
func (s *Settings) SetOptimizationLevel(level string) { s.optimizationLevel = level }

// Logger returns the diagnostic logger, never nil.
func (s *Settings) Logger() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

func (s *Settings) SetLogger(logger *zap.Logger) { s.logger = logger }

// PropagateTo copies every setting onto another converter unmodified.
// The logger is only copied if one was set.
func (s *Settings) PropagateTo(c Configurable) {
	c.SetFlags(s.flags)
	c.SetInputFormat(s.inputFormat, s.inputVersion)
	c.SetOutputFormat(s.outputFormat, s.outputVersion)
	c.SetDefinitions(s.definitions)
	c.SetDebugInfoLevel(s.debugInfoLevel)
	c.SetOptimizationLevel(s.optimizationLevel)
	if s.logger != nil {
		c.SetLogger(s.logger)
	}
}

// Report logs err as an error diagnostic and returns it.
func (s *Settings) Report(err *Error) *Error {
	s.Logger().Error(err.Error())
	return err
}

// Warn logs a warning diagnostic unless FlagQuiet is set.
func (s *Settings) Warn(msg string) {
	if s.flags.Has(FlagQuiet) {
		return
	}
	s.Logger().Warn(msg)
}

// Debug logs a debug diagnostic if FlagVerbose is set.
func (s *Settings) Debug(msg string) {
	if !s.flags.Has(FlagVerbose) {
		return
	}
	s.Logger().Debug(msg)
}

// ReadFile reads an input file, reporting failures as component::op errors.
func (s *Settings) ReadFile(component, op, filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		e := Errorf(ErrIO, component, op, "cannot open file %s", filename)
		e.Err = err
		return nil, s.Report(e)
	}
	return data, nil
}

// WriteFile writes an output file, reporting failures as component::op errors.
func (s *Settings) WriteFile(component, op, filename string, data []byte) error {
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		e := Errorf(ErrIO, component, op, "cannot write to file %s", filename)
		e.Err = err
		return s.Report(e)
	}
	return nil
}
