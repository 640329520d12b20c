// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"context"
	"errors"
	"fmt"
)

// AnyComponent is the component name used in AnyConverter diagnostics.
const AnyComponent = "ShaderTools::AnyConverter"

// AnyPluginName is the registry name of the delegating converter.
const AnyPluginName = "AnyShaderConverter"

// AnyConverter detects the shader format from file names and delegates to
// the plugin handling it.
//
// Every call detects the format, resolves exactly one plugin name, loads it
// from the registry, copies all settings onto a fresh instance and forwards
// the call with unchanged arguments. The backend's result and messages are
// returned verbatim. An AnyConverter must not be used from multiple
// goroutines at once; create one per goroutine instead.
type AnyConverter struct {
	Settings

	registry *Registry
	detector *Detector
	resolver *Resolver
}

// AnyOption configures an AnyConverter.
type AnyOption func(*AnyConverter)

// WithDetector replaces the default format detector.
func WithDetector(d *Detector) AnyOption {
	return func(a *AnyConverter) { a.detector = d }
}

// WithResolver replaces the default plugin resolver.
func WithResolver(r *Resolver) AnyOption {
	return func(a *AnyConverter) { a.resolver = r }
}

// NewAnyConverter creates a delegating converter loading backends from
// registry. It logs to the registry's logger until SetLogger is called.
func NewAnyConverter(registry *Registry, opts ...AnyOption) *AnyConverter {
	a := &AnyConverter{registry: registry}
	a.SetLogger(registry.Logger())
	for _, opt := range opts {
		opt(a)
	}
	if a.detector == nil {
		a.detector = DefaultDetector()
	}
	if a.resolver == nil {
		a.resolver = DefaultResolver()
	}
	return a
}

// AnyPlugin returns the registry entry for AnyConverter. Instances load their
// backends from the same registry.
func AnyPlugin(registry *Registry, opts ...AnyOption) Plugin {
	return Plugin{
		Name: AnyPluginName,
		New: func(string) Converter {
			return NewAnyConverter(registry, opts...)
		},
	}
}

// Features implements Converter.
func (a *AnyConverter) Features() Features {
	return FeatureValidateData | FeatureConvertData
}

// ValidateData validates data in the explicitly set input format.
func (a *AnyConverter) ValidateData(ctx context.Context, stage Stage, data []byte) (bool, string, error) {
	const op = "validateData"
	from, err := a.dataFormat(op, a.inputFormat, "input")
	if err != nil {
		return false, "", err
	}
	c, err := a.validator(ctx, op, from)
	if err != nil {
		return false, "", err
	}
	return c.ValidateData(ctx, stage, data)
}

// ValidateFile validates a file whose format is detected from its name.
func (a *AnyConverter) ValidateFile(ctx context.Context, stage Stage, filename string) (bool, string, error) {
	const op = "validateFile"
	from, err := a.detect(op, filename, a.inputFormat)
	if err != nil {
		return false, "", err
	}
	c, err := a.validator(ctx, op, from)
	if err != nil {
		return false, "", err
	}
	return c.ValidateFile(ctx, stage, filename)
}

// ConvertDataToData converts between the explicitly set input and output formats.
func (a *AnyConverter) ConvertDataToData(ctx context.Context, stage Stage, data []byte) ([]byte, error) {
	const op = "convertDataToData"
	from, err := a.dataFormat(op, a.inputFormat, "input")
	if err != nil {
		return nil, err
	}
	to, err := a.dataFormat(op, a.outputFormat, "output")
	if err != nil {
		return nil, err
	}
	c, err := a.converter(ctx, op, from, to)
	if err != nil {
		return nil, err
	}
	return c.ConvertDataToData(ctx, stage, data)
}

// ConvertFileToData converts a file to the explicitly set output format.
func (a *AnyConverter) ConvertFileToData(ctx context.Context, stage Stage, filename string) ([]byte, error) {
	const op = "convertFileToData"
	from, err := a.detect(op, filename, a.inputFormat)
	if err != nil {
		return nil, err
	}
	to, err := a.dataFormat(op, a.outputFormat, "output")
	if err != nil {
		return nil, err
	}
	c, err := a.converter(ctx, op, from, to)
	if err != nil {
		return nil, err
	}
	return c.ConvertFileToData(ctx, stage, filename)
}

// ConvertFileToFile converts between files, detecting both formats from the
// file names.
func (a *AnyConverter) ConvertFileToFile(ctx context.Context, stage Stage, from, to string) error {
	const op = "convertFileToFile"
	fromFormat, err := a.detect(op, from, a.inputFormat)
	if err != nil {
		return err
	}
	toFormat, err := a.detect(op, to, a.outputFormat)
	if err != nil {
		return err
	}
	c, err := a.converter(ctx, op, fromFormat, toFormat)
	if err != nil {
		return err
	}
	return c.ConvertFileToFile(ctx, stage, from, to)
}

// detect infers the format of path. A recognised file name wins over an
// explicitly set format, which is used only for names detection cannot place.
func (a *AnyConverter) detect(op, path string, explicit Format) (Format, error) {
	if format, ok := a.detector.Detect(path); ok {
		return format, nil
	}
	if explicit != FormatUnspecified {
		return explicit, nil
	}
	return FormatUnspecified, a.Report(Errorf(ErrUnknownFormat, AnyComponent, op, "cannot determine the format of %s", path))
}

func (a *AnyConverter) dataFormat(op string, format Format, what string) (Format, error) {
	if format == FormatUnspecified {
		return FormatUnspecified, a.Report(Errorf(ErrUnknownFormat, AnyComponent, op, "no %s format specified", what))
	}
	return format, nil
}

func (a *AnyConverter) validator(ctx context.Context, op string, from Format) (Converter, error) {
	plugin, err := a.resolver.Validate(from)
	if err != nil {
		return nil, a.Report(a.rescope(op, err))
	}
	return a.load(ctx, op, plugin)
}

func (a *AnyConverter) converter(ctx context.Context, op string, from, to Format) (Converter, error) {
	plugin, err := a.resolver.Convert(from, to)
	if err != nil {
		return nil, a.Report(a.rescope(op, err))
	}
	return a.load(ctx, op, plugin)
}

// rescope attributes a resolver error to this converter's operation.
func (a *AnyConverter) rescope(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return NewError(e.Kind, AnyComponent, op, e.Message)
	}
	return NewError(ErrNotSupported, AnyComponent, op, err.Error())
}

// load loads and instantiates plugin and hands it every setting. The
// registry reports its own failure first; ours follows.
func (a *AnyConverter) load(ctx context.Context, op, plugin string) (Converter, error) {
	c, err := a.registry.LoadAndInstantiate(ctx, plugin)
	if err != nil {
		e := Errorf(ErrPluginLoad, AnyComponent, op, "cannot load the %s plugin", plugin)
		e.Err = err
		return nil, a.Report(e)
	}

	a.PropagateTo(c)

	if provider, ok := a.registry.Provider(plugin); ok {
		a.Debug(fmt.Sprintf("%s::%s(): using %s (provided by %s)", AnyComponent, op, plugin, provider))
	}
	return c, nil
}
