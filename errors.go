// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadertools

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes converter errors.
type ErrorKind uint8

const (
	// ErrUnknownFormat indicates the format of a file could not be detected
	// or was not specified for in-memory data.
	ErrUnknownFormat ErrorKind = iota

	// ErrNotSupported indicates no plugin handles the requested operation.
	ErrNotSupported

	// ErrPluginNotFound indicates a plugin name is not known to the registry.
	ErrPluginNotFound

	// ErrPluginLoad indicates a known plugin failed to load, or that a
	// delegating converter could not load the plugin it resolved.
	ErrPluginLoad

	// ErrInvalidSettings indicates a backend rejected a flag, format or version.
	ErrInvalidSettings

	// ErrBackend indicates the backend itself reported a failure.
	ErrBackend

	// ErrIO indicates a file could not be read or written.
	ErrIO
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownFormat:
		return "UnknownFormat"
	case ErrNotSupported:
		return "NotSupported"
	case ErrPluginNotFound:
		return "PluginNotFound"
	case ErrPluginLoad:
		return "PluginLoad"
	case ErrInvalidSettings:
		return "InvalidSettings"
	case ErrBackend:
		return "Backend"
	case ErrIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Error is returned by converters and the registry. Its text is the
// diagnostic line that was logged for it, in the
// "<Component>::<op>(): <message>" form.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Component names the reporting converter, e.g. "ShaderTools::AnyConverter".
	Component string

	// Op is the operation that failed, e.g. "validateFile".
	Op string

	// Message provides details about the error.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Component == "" {
		return e.Message
	}
	return fmt.Sprintf("%s::%s(): %s", e.Component, e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new error without an underlying cause.
func NewError(kind ErrorKind, component, op, message string) *Error {
	return &Error{
		Kind:      kind,
		Component: component,
		Op:        op,
		Message:   message,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(kind ErrorKind, component, op, format string, args ...any) *Error {
	return NewError(kind, component, op, fmt.Sprintf(format, args...))
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
