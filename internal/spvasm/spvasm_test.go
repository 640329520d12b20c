// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvasm

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inst encodes one instruction.
func inst(opcode uint16, operands ...uint32) []uint32 {
	return append([]uint32{uint32(len(operands)+1)<<16 | uint32(opcode)}, operands...)
}

// str packs a literal string into words, nul-terminated.
func str(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}

func module(order binary.ByteOrder, body ...[]uint32) []byte {
	words := []uint32{Magic, 0x00010300, 0x000D000B, 8, 0}
	for _, b := range body {
		words = append(words, b...)
	}
	data := make([]byte, len(words)*4)
	for i, w := range words {
		order.PutUint32(data[i*4:], w)
	}
	return data
}

// minimalFragment is `void main() {}` as a fragment shader.
func minimalFragment(order binary.ByteOrder) []byte {
	entryPoint := append([]uint32{4, 1}, str("main")...)
	name := append([]uint32{1}, str("main")...)
	return module(order,
		inst(17, 1),             // OpCapability Shader
		inst(14, 0, 1),          // OpMemoryModel Logical GLSL450
		inst(15, entryPoint...), // OpEntryPoint Fragment %1 "main"
		inst(16, 1, 7),          // OpExecutionMode %1 OriginUpperLeft
		inst(5, name...),        // OpName %1 "main"
		inst(19, 2),             // %2 = OpTypeVoid
		inst(33, 3, 2),          // %3 = OpTypeFunction %2
		inst(54, 2, 1, 0, 3),    // %1 = OpFunction %2 None %3
		inst(248, 4),            // %4 = OpLabel
		inst(253),               // OpReturn
		inst(56),                // OpFunctionEnd
	)
}

func TestParseHeader(t *testing.T) {
	m, err := Parse(minimalFragment(binary.LittleEndian))
	require.NoError(t, err)
	assert.Equal(t, "1.3", m.Header.Version())
	assert.Equal(t, uint32(8), m.Header.Bound)
	assert.Len(t, m.Instructions, 11)
	assert.Equal(t, uint16(17), m.Instructions[0].Opcode)
	assert.Equal(t, 20, m.Instructions[0].Offset)
}

func TestParseBigEndian(t *testing.T) {
	data := minimalFragment(binary.BigEndian)
	assert.True(t, IsBinary(data))
	m, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, m.Instructions, 11)
}

func TestParseErrors(t *testing.T) {
	valid := minimalFragment(binary.LittleEndian)
	badVersion := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badVersion[4:], 0x00020000)
	zeroBound := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(zeroBound[12:], 0)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "not a SPIR-V binary"},
		{"text", []byte("#version 450\n"), "invalid magic"},
		{"header only magic", valid[:8], "too small"},
		{"unaligned", append(append([]byte(nil), valid...), 0), "multiple of four"},
		{"bad version", badVersion, "unsupported SPIR-V version 2.0"},
		{"zero bound", zeroBound, "bound is zero"},
		{"word count overflow", module(binary.LittleEndian, []uint32{5<<16 | 17, 1}), "invalid word count 5 at offset 0x14"},
		{"zero word count", module(binary.LittleEndian, []uint32{17}), "invalid word count 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.True(t, errors.Is(Validate([]byte("abcd")), ErrNotSpirv))
}

func TestIsBinary(t *testing.T) {
	assert.True(t, IsBinary(minimalFragment(binary.LittleEndian)))
	assert.False(t, IsBinary([]byte("OpCapability Shader")))
	assert.False(t, IsBinary([]byte{0x03, 0x02}))
}

func TestDisassemble(t *testing.T) {
	text, err := Disassemble(minimalFragment(binary.LittleEndian))
	require.NoError(t, err)

	for _, want := range []string{
		"; SPIR-V\n",
		"; Version: 1.3\n",
		"; Generator: 0x000D000B\n",
		"; Bound: 8\n",
		"OpCapability Shader\n",
		"OpMemoryModel Logical GLSL450\n",
		`OpEntryPoint Fragment %1 "main"` + "\n",
		"OpExecutionMode %1 OriginUpperLeft\n",
		`OpName %1 "main"` + "\n",
		"%2 = OpTypeVoid\n",
		"%3 = OpTypeFunction %2\n",
		"%1 = OpFunction %2 None %3\n",
		"%4 = OpLabel\n",
		"OpReturn\n",
		"OpFunctionEnd\n",
	} {
		assert.Contains(t, text, want)
	}

	// Results are right-aligned so the '=' signs line up.
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.Contains(line, " = ") {
			assert.Equal(t, 15, strings.Index(line, "="), "line %q", line)
		}
	}
}

// Type declarations the operand tests refer to.
var (
	uint32Type  = inst(21, 7, 32, 0)  // %7 = OpTypeInt 32 0
	int32Type   = inst(21, 12, 32, 1) // %12 = OpTypeInt 32 1
	int64Type   = inst(21, 13, 64, 1) // %13 = OpTypeInt 64 1
	float32Type = inst(22, 14, 32)    // %14 = OpTypeFloat 32
	float64Type = inst(22, 15, 64)    // %15 = OpTypeFloat 64
	float16Type = inst(22, 16, 16)    // %16 = OpTypeFloat 16
)

func TestDisassembleOperands(t *testing.T) {
	glslImport := append([]uint32{20}, str("GLSL.std.450")...)

	tests := []struct {
		name string
		body [][]uint32
		want string
	}{
		{"builtin decoration", [][]uint32{inst(71, 5, 11, 0)}, "OpDecorate %5 BuiltIn Position"},
		{"location decoration", [][]uint32{inst(71, 5, 30, 2)}, "OpDecorate %5 Location 2"},
		{"pointer", [][]uint32{inst(32, 6, 3, 7)}, "%6 = OpTypePointer Output %7"},
		{"arithmetic", [][]uint32{inst(129, 7, 8, 9, 10)}, "%8 = OpFAdd %7 %9 %10"},
		{"comparison", [][]uint32{inst(180, 7, 8, 9, 10)}, "%8 = OpFOrdEqual %7 %9 %10"},
		{"select", [][]uint32{inst(169, 7, 8, 9, 10, 11)}, "%8 = OpSelect %7 %9 %10 %11"},
		{"derivative", [][]uint32{inst(207, 7, 8, 9)}, "%8 = OpDPdx %7 %9"},
		{"image", [][]uint32{inst(25, 9, 7, 1, 0, 0, 0, 1, 0)}, "%9 = OpTypeImage %7 2D 0 0 0 1 Unknown"},
		{"storage image", [][]uint32{inst(25, 9, 7, 1, 0, 0, 0, 2, 4, 1)}, "%9 = OpTypeImage %7 2D 0 0 0 2 Rgba8 WriteOnly"},
		{"unsigned", [][]uint32{uint32Type, inst(43, 7, 11, 42)}, "%11 = OpConstant %7 42"},
		{"negative", [][]uint32{int32Type, inst(43, 12, 11, 0xFFFFFFFE)}, "%11 = OpConstant %12 -2"},
		{"int64", [][]uint32{int64Type, inst(43, 13, 11, 0, 1)}, "%11 = OpConstant %13 4294967296"},
		{"negative int64", [][]uint32{int64Type, inst(43, 13, 11, 0xFFFFFFFF, 0xFFFFFFFF)}, "%11 = OpConstant %13 -1"},
		{"float", [][]uint32{float32Type, inst(43, 14, 11, math.Float32bits(0.5))}, "%11 = OpConstant %14 0.5"},
		{"float one", [][]uint32{float32Type, inst(43, 14, 11, math.Float32bits(1))}, "%11 = OpConstant %14 1"},
		{"negative float", [][]uint32{float32Type, inst(43, 14, 11, math.Float32bits(-0.25))}, "%11 = OpConstant %14 -0.25"},
		{"double", [][]uint32{float64Type, inst(43, 15, 11, lo(math.Float64bits(0.1)), hi(math.Float64bits(0.1)))}, "%11 = OpConstant %15 0.1"},
		{"half", [][]uint32{float16Type, inst(43, 16, 11, 0x3C00)}, "%11 = OpConstant %16 1"},
		{"spec constant", [][]uint32{float32Type, inst(50, 14, 11, math.Float32bits(2.5))}, "%11 = OpSpecConstant %14 2.5"},
		{"switch", [][]uint32{int32Type, inst(61, 12, 17, 18), inst(251, 17, 30, 1, 31, 0xFFFFFFFF, 32)}, "OpSwitch %17 %30 1 %31 -1 %32"},
		{"switch int64", [][]uint32{int64Type, inst(61, 13, 17, 18), inst(251, 17, 30, 0, 1, 31)}, "OpSwitch %17 %30 4294967296 %31"},
		{"ext inst", [][]uint32{inst(11, glslImport...), inst(12, 14, 21, 20, 26, 22, 23)}, "%21 = OpExtInst %14 %20 Pow %22 %23"},
		{"loop merge", [][]uint32{inst(246, 40, 41, 0)}, "OpLoopMerge %40 %41 None"},
		{"selection merge", [][]uint32{inst(247, 40, 1)}, "OpSelectionMerge %40 Flatten"},
		{"aligned load", [][]uint32{inst(61, 7, 8, 9, 0x3, 4)}, "%8 = OpLoad %7 %9 Volatile|Aligned 4"},
		{"image operands", [][]uint32{inst(88, 7, 8, 9, 10, 0x2, 11)}, "%8 = OpImageSampleExplicitLod %7 %9 %10 Lod %11"},
		{"source", [][]uint32{inst(3, 10, 100)}, "OpSource WGSL 100"},
		{"escaped name", [][]uint32{inst(5, append([]uint32{1}, str(`a"b`)...)...)}, `OpName %1 "a\"b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Disassemble(module(binary.LittleEndian, tt.body...))
			require.NoError(t, err)
			assert.Contains(t, text, tt.want+"\n")
		})
	}
}

func lo(v uint64) uint32 { return uint32(v) }
func hi(v uint64) uint32 { return uint32(v >> 32) }

func TestDisassembleUnsupported(t *testing.T) {
	tests := []struct {
		name string
		body [][]uint32
		want string
	}{
		{"unknown opcode", [][]uint32{inst(4000, 1, 2)}, "opcode 4000 at offset 0x14"},
		{"opcode gap", [][]uint32{inst(192, 7, 8, 9)}, "opcode 192"},
		{"constant of undeclared type", [][]uint32{inst(43, 7, 11, 42)}, "constant of type %7"},
		{"truncated int64", [][]uint32{int64Type, inst(43, 13, 11, 1)}, "1-word literal for a 64-bit type"},
		{"infinity", [][]uint32{float32Type, inst(43, 14, 11, 0x7F800000)}, "non-finite"},
		{"unknown capability", [][]uint32{inst(17, 9999)}, "operand value 9999"},
		{"unknown built-in", [][]uint32{inst(71, 5, 11, 9999)}, "built-in 9999"},
		{"linkage", [][]uint32{inst(71, 5, 41, 0)}, "LinkageAttributes decoration"},
		{"unknown mask bit", [][]uint32{inst(247, 40, 0x100)}, "mask bit 0x100"},
		{"foreign instruction set", [][]uint32{inst(12, 14, 21, 20, 26, 22)}, "instruction set %20"},
		{"switch on unknown type", [][]uint32{inst(251, 17, 30, 1, 31)}, "switch on %17"},
		{"extra operands", [][]uint32{inst(19, 2, 3)}, "1 extra operands of OpTypeVoid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Disassemble(module(binary.LittleEndian, tt.body...))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupported), err.Error())
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHalfToFloat(t *testing.T) {
	tests := []struct {
		bits uint16
		want float32
	}{
		{0x0000, 0},
		{0x3C00, 1},
		{0xC000, -2},
		{0x3800, 0.5},
		{0x7BFF, 65504},
		{0x0001, 1.0 / (1 << 24)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, halfToFloat(tt.bits), "0x%04X", tt.bits)
	}
	assert.True(t, math.IsInf(float64(halfToFloat(0x7C00)), 1))
	assert.True(t, math.IsNaN(float64(halfToFloat(0x7E00))))
}

func TestLiteralString(t *testing.T) {
	s, n := literalString(str("main"))
	assert.Equal(t, "main", s)
	assert.Equal(t, 2, n)

	s, n = literalString(str("abc"))
	assert.Equal(t, "abc", s)
	assert.Equal(t, 1, n)
}
