// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeCall records what a fakeConverter was invoked with, including the
// settings it had at the time.
type fakeCall struct {
	op       string
	stage    Stage
	filename string
	to       string
	data     []byte

	flags             Flags
	inputFormat       Format
	inputVersion      string
	outputFormat      Format
	outputVersion     string
	definitions       []Definition
	debugInfoLevel    string
	optimizationLevel string
}

// fakeConverter is a backend that records calls and returns canned results.
type fakeConverter struct {
	Settings

	name   string
	calls  *[]fakeCall
	ok     bool
	msg    string
	output []byte
	err    error
}

func (f *fakeConverter) Features() Features { return FeatureValidateData | FeatureConvertData }

func (f *fakeConverter) record(op string, stage Stage, filename, to string, data []byte) {
	in, inVersion := f.InputFormat()
	out, outVersion := f.OutputFormat()
	*f.calls = append(*f.calls, fakeCall{
		op:                op,
		stage:             stage,
		filename:          filename,
		to:                to,
		data:              data,
		flags:             f.Flags(),
		inputFormat:       in,
		inputVersion:      inVersion,
		outputFormat:      out,
		outputVersion:     outVersion,
		definitions:       f.Definitions(),
		debugInfoLevel:    f.DebugInfoLevel(),
		optimizationLevel: f.OptimizationLevel(),
	})
	f.Logger().Info(fmt.Sprintf("%s::%s(): called", f.name, op))
}

func (f *fakeConverter) ValidateData(_ context.Context, stage Stage, data []byte) (bool, string, error) {
	f.record("validateData", stage, "", "", data)
	return f.ok, f.msg, f.err
}

func (f *fakeConverter) ValidateFile(_ context.Context, stage Stage, filename string) (bool, string, error) {
	f.record("validateFile", stage, filename, "", nil)
	return f.ok, f.msg, f.err
}

func (f *fakeConverter) ConvertDataToData(_ context.Context, stage Stage, data []byte) ([]byte, error) {
	f.record("convertDataToData", stage, "", "", data)
	return f.output, f.err
}

func (f *fakeConverter) ConvertFileToData(_ context.Context, stage Stage, filename string) ([]byte, error) {
	f.record("convertFileToData", stage, filename, "", nil)
	return f.output, f.err
}

func (f *fakeConverter) ConvertFileToFile(_ context.Context, stage Stage, from, to string) error {
	f.record("convertFileToFile", stage, from, to, nil)
	return f.err
}

// fakeBackend registers one fake plugin and counts its instances.
type fakeBackend struct {
	calls     []fakeCall
	instances int
	loads     int
	loadErr   error

	ok     bool
	msg    string
	output []byte
	err    error
}

func (b *fakeBackend) plugin(name string, provides ...string) Plugin {
	return Plugin{
		Name:     name,
		Provides: provides,
		Load: func(context.Context) error {
			b.loads++
			return b.loadErr
		},
		New: func(string) Converter {
			b.instances++
			return &fakeConverter{
				name:   "Fake" + name,
				calls:  &b.calls,
				ok:     b.ok,
				msg:    b.msg,
				output: b.output,
				err:    b.err,
			}
		},
	}
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func messages(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.All() {
		out = append(out, e.Message)
	}
	return out
}
