// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spvasm reads SPIR-V binaries: header and instruction stream
// checks, and disassembly to the textual .spvasm form.
package spvasm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the SPIR-V magic number.
const Magic = 0x07230203

// headerWords is the number of words in a SPIR-V module header.
const headerWords = 5

// ErrNotSpirv is returned for data that does not start with the SPIR-V magic number.
var ErrNotSpirv = errors.New("not a SPIR-V binary")

// Header is the SPIR-V module header.
type Header struct {
	Major, Minor uint8
	Generator    uint32
	Bound        uint32
	Schema       uint32
}

// Version returns the SPIR-V version as "major.minor".
func (h Header) Version() string {
	return fmt.Sprintf("%d.%d", h.Major, h.Minor)
}

// Instruction is one decoded instruction.
type Instruction struct {
	Opcode   uint16
	Operands []uint32

	// Offset is the byte offset of the instruction in the module.
	Offset int
}

// Module is a decoded SPIR-V binary.
type Module struct {
	Header       Header
	Instructions []Instruction
}

// byteOrder returns the byte order of a module from its magic number.
func byteOrder(data []byte) (binary.ByteOrder, bool) {
	if len(data) < 4 {
		return nil, false
	}
	switch {
	case binary.LittleEndian.Uint32(data) == Magic:
		return binary.LittleEndian, true
	case binary.BigEndian.Uint32(data) == Magic:
		return binary.BigEndian, true
	}
	return nil, false
}

// IsBinary reports whether data starts with the SPIR-V magic number in
// either byte order.
func IsBinary(data []byte) bool {
	_, ok := byteOrder(data)
	return ok
}

// Parse decodes a SPIR-V binary and checks its structure: header, version,
// and that every instruction's word count stays within the module.
func Parse(data []byte) (*Module, error) {
	order, ok := byteOrder(data)
	if !ok {
		if len(data) >= 4 {
			return nil, fmt.Errorf("%w: invalid magic 0x%08X", ErrNotSpirv, binary.LittleEndian.Uint32(data))
		}
		return nil, fmt.Errorf("%w: %d bytes", ErrNotSpirv, len(data))
	}
	if len(data) < headerWords*4 {
		return nil, fmt.Errorf("SPIR-V binary too small: %d bytes", len(data))
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V binary size %d is not a multiple of four", len(data))
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[i*4:])
	}

	version := words[1]
	m := &Module{Header: Header{
		Major:     uint8(version >> 16),
		Minor:     uint8(version >> 8),
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}}
	if m.Header.Major != 1 || m.Header.Minor > 6 {
		return nil, fmt.Errorf("unsupported SPIR-V version %s", m.Header.Version())
	}
	if m.Header.Bound == 0 {
		return nil, errors.New("SPIR-V id bound is zero")
	}

	for i := headerWords; i < len(words); {
		opcode := uint16(words[i])
		count := int(words[i] >> 16)
		if count == 0 || i+count > len(words) {
			return nil, fmt.Errorf("invalid word count %d at offset 0x%X", count, i*4)
		}
		m.Instructions = append(m.Instructions, Instruction{
			Opcode:   opcode,
			Operands: words[i+1 : i+count],
			Offset:   i * 4,
		})
		i += count
	}
	return m, nil
}

// Validate checks the structure of a SPIR-V binary without keeping the
// decoded module.
func Validate(data []byte) error {
	_, err := Parse(data)
	return err
}

// literalString decodes a nul-terminated literal string packed into words
// and returns it with the number of words it occupies.
func literalString(words []uint32) (string, int) {
	var buf []byte
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, b)
		}
	}
	return string(buf), len(words)
}
