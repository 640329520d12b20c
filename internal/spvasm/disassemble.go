// Copyright 2026 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvasm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnsupported is returned by Disassemble for instructions and operand
// values it cannot print in a form spirv-as reads back.
var ErrUnsupported = errors.New("not supported by the disassembler")

// Operand layouts, one character per operand kind:
//
//	r result id        t result type id    i id              n literal number
//	s literal string   K typed constant    w switch targets  x ext instruction
//	C capability       A addressing        W memory model    E execution model
//	X execution mode   D decoration        S storage class   G image dim
//	F image format     Q access qualifier  L source language M memory access
//	c function control Y selection control P loop control   I image operands
//
// A '*' applies the following kind to all remaining operands.
var layouts = map[uint16]string{
	0:   "",          // OpNop
	1:   "tr",        // OpUndef
	2:   "s",         // OpSourceContinued
	3:   "Lnis",      // OpSource
	4:   "s",         // OpSourceExtension
	5:   "is",        // OpName
	6:   "ins",       // OpMemberName
	7:   "rs",        // OpString
	10:  "s",         // OpExtension
	11:  "rs",        // OpExtInstImport
	12:  "trix*i",    // OpExtInst
	14:  "AW",        // OpMemoryModel
	15:  "Eis*i",     // OpEntryPoint
	16:  "iX*n",      // OpExecutionMode
	17:  "C",         // OpCapability
	19:  "r",         // OpTypeVoid
	20:  "r",         // OpTypeBool
	21:  "rnn",       // OpTypeInt
	22:  "rn",        // OpTypeFloat
	23:  "rin",       // OpTypeVector
	24:  "rin",       // OpTypeMatrix
	25:  "riGnnnnFQ", // OpTypeImage
	26:  "r",         // OpTypeSampler
	27:  "ri",        // OpTypeSampledImage
	28:  "rii",       // OpTypeArray
	29:  "ri",        // OpTypeRuntimeArray
	30:  "r*i",       // OpTypeStruct
	32:  "rSi",       // OpTypePointer
	33:  "ri*i",      // OpTypeFunction
	41:  "tr",        // OpConstantTrue
	42:  "tr",        // OpConstantFalse
	43:  "trK",       // OpConstant
	44:  "tr*i",      // OpConstantComposite
	46:  "tr",        // OpConstantNull
	48:  "tr",        // OpSpecConstantTrue
	49:  "tr",        // OpSpecConstantFalse
	50:  "trK",       // OpSpecConstant
	51:  "tr*i",      // OpSpecConstantComposite
	54:  "trci",      // OpFunction
	55:  "tr",        // OpFunctionParameter
	56:  "",          // OpFunctionEnd
	57:  "tri*i",     // OpFunctionCall
	59:  "trSi",      // OpVariable
	61:  "triM",      // OpLoad
	62:  "iiM",       // OpStore
	65:  "tri*i",     // OpAccessChain
	66:  "tri*i",     // OpInBoundsAccessChain
	68:  "trin",      // OpArrayLength
	71:  "iD",        // OpDecorate
	72:  "inD",       // OpMemberDecorate
	77:  "trii",      // OpVectorExtractDynamic
	78:  "triii",     // OpVectorInsertDynamic
	79:  "trii*n",    // OpVectorShuffle
	80:  "tr*i",      // OpCompositeConstruct
	81:  "tri*n",     // OpCompositeExtract
	82:  "trii*n",    // OpCompositeInsert
	83:  "tri",       // OpCopyObject
	84:  "tri",       // OpTranspose
	86:  "trii",      // OpSampledImage
	87:  "triiI*i",   // OpImageSampleImplicitLod
	88:  "triiI*i",   // OpImageSampleExplicitLod
	89:  "triiiI*i",  // OpImageSampleDrefImplicitLod
	90:  "triiiI*i",  // OpImageSampleDrefExplicitLod
	95:  "triiI*i",   // OpImageFetch
	96:  "triiiI*i",  // OpImageGather
	97:  "triiiI*i",  // OpImageDrefGather
	98:  "triiI*i",   // OpImageRead
	99:  "iiiI*i",    // OpImageWrite
	100: "tri",       // OpImage
	103: "trii",      // OpImageQuerySizeLod
	104: "tri",       // OpImageQuerySize
	105: "trii",      // OpImageQueryLod
	106: "tri",       // OpImageQueryLevels
	107: "tri",       // OpImageQuerySamples
	224: "iii",       // OpControlBarrier
	225: "ii",        // OpMemoryBarrier
	227: "triii",     // OpAtomicLoad
	228: "iiii",      // OpAtomicStore
	230: "triiiiii",  // OpAtomicCompareExchange
	232: "triii",     // OpAtomicIIncrement
	233: "triii",     // OpAtomicIDecrement
	245: "tr*i",      // OpPhi
	246: "iiP",       // OpLoopMerge
	247: "iY",        // OpSelectionMerge
	248: "r",         // OpLabel
	249: "i",         // OpBranch
	250: "iii*n",     // OpBranchConditional
	251: "iiw",       // OpSwitch
	252: "",          // OpKill
	253: "",          // OpReturn
	254: "i",         // OpReturnValue
	255: "",          // OpUnreachable
}

// layoutFor returns the operand layout of an opcode. Conversion, arithmetic,
// relational and bit instructions take a result type, a result and operand
// ids, as do derivatives and the read-modify-write atomics.
func layoutFor(opcode uint16) (string, bool) {
	if l, ok := layouts[opcode]; ok {
		return l, true
	}
	switch {
	case opcode >= 109 && opcode <= 205, opcode >= 207 && opcode <= 215:
		return "tr*i", true
	case opcode == 229, opcode >= 234 && opcode <= 242:
		return "triiii", true
	}
	return "", false
}

const (
	opExtInstImport = 11
	opTypeInt       = 21
	opTypeFloat     = 22

	decorationBuiltIn           = 11
	decorationFuncParamAttr     = 38
	decorationFPRoundingMode    = 39
	decorationFPFastMathMode    = 40
	decorationLinkageAttributes = 41

	memoryAccessAligned = 0x2
)

// enums maps operand kinds to the names of their values.
var enums = map[byte]map[uint32]string{
	'C': capabilities,
	'A': addressingModels,
	'W': memoryModels,
	'E': executionModels,
	'X': executionModes,
	'S': storageClasses,
	'G': dims,
	'F': imageFormats,
	'Q': accessQualifiers,
	'L': sourceLanguages,
}

// masks maps bit mask operand kinds to the names of their bits.
var masks = map[byte]map[uint32]string{
	'c': functionControls,
	'Y': selectionControls,
	'P': loopControls,
	'I': imageOperands,
}

// scalarType is a numeric type declared by OpTypeInt or OpTypeFloat.
type scalarType struct {
	float  bool
	signed bool
	width  uint32
}

// words returns the number of words a literal of the type occupies.
func (s scalarType) words() int {
	return int(s.width+31) / 32
}

// literal formats a literal of the type stored in words, low-order word first.
func (s scalarType) literal(words []uint32) (string, error) {
	bits := uint64(words[0])
	if len(words) == 2 {
		bits |= uint64(words[1]) << 32
	}
	if !s.float {
		if s.signed {
			shift := 64 - s.width
			return strconv.FormatInt(int64(bits<<shift)>>shift, 10), nil
		}
		return strconv.FormatUint(bits, 10), nil
	}

	var f float64
	bitSize := 32
	switch s.width {
	case 16:
		f = float64(halfToFloat(uint16(bits)))
	case 32:
		f = float64(math.Float32frombits(uint32(bits)))
	default:
		f, bitSize = math.Float64frombits(bits), 64
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", unsupported("non-finite float constant")
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize), nil
}

// halfToFloat widens an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff
	switch exp {
	case 0:
		f := float32(mant) / (1 << 24)
		if sign != 0 {
			f = -f
		}
		return f
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
}

// disassembler carries what earlier instructions declared: numeric types
// for constants and switch literals, and imported instruction sets.
type disassembler struct {
	scalars    map[uint32]scalarType
	valueTypes map[uint32]uint32
	extSets    map[uint32]map[uint32]string
}

// Disassemble converts a SPIR-V binary to assembly text. Modules using
// instructions or operand values outside the known subset fail with an
// error wrapping ErrUnsupported.
func Disassemble(data []byte) (string, error) {
	m, err := Parse(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "; SPIR-V\n")
	fmt.Fprintf(&sb, "; Version: %s\n", m.Header.Version())
	fmt.Fprintf(&sb, "; Generator: 0x%08X\n", m.Header.Generator)
	fmt.Fprintf(&sb, "; Bound: %d\n", m.Header.Bound)
	fmt.Fprintf(&sb, "; Schema: %d\n", m.Header.Schema)

	d := &disassembler{
		scalars:    make(map[uint32]scalarType),
		valueTypes: make(map[uint32]uint32),
		extSets:    make(map[uint32]map[uint32]string),
	}
	for _, inst := range m.Instructions {
		result, text, err := d.instruction(inst)
		if err != nil {
			return "", fmt.Errorf("%w at offset 0x%X", err, inst.Offset)
		}
		if result != "" {
			fmt.Fprintf(&sb, "%14s = %s\n", result, text)
		} else {
			fmt.Fprintf(&sb, "%17s%s\n", "", text)
		}
	}
	return sb.String(), nil
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}

func id(n uint32) string {
	return "%" + strconv.FormatUint(uint64(n), 10)
}

func number(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}

// instruction returns the result id, if any, and the instruction text.
func (d *disassembler) instruction(inst Instruction) (result, text string, err error) {
	name, named := opcodeNames[inst.Opcode]
	layout, known := layoutFor(inst.Opcode)
	if !named || !known {
		return "", "", unsupported("opcode %d", inst.Opcode)
	}
	d.record(inst, layout)

	tokens := []string{name}
	ops := inst.Operands
	for len(layout) > 0 && len(ops) > 0 {
		kind := layout[0]
		repeat := kind == '*'
		if repeat {
			kind = layout[1]
		}

		if kind == 'r' {
			result = id(ops[0])
			ops = ops[1:]
		} else {
			toks, n, err := d.operand(kind, inst, ops)
			if err != nil {
				return "", "", err
			}
			tokens = append(tokens, toks...)
			ops = ops[n:]
		}

		if !repeat {
			layout = layout[1:]
		}
	}
	if len(ops) > 0 {
		return "", "", unsupported("%d extra operands of %s", len(ops), name)
	}
	return result, strings.Join(tokens, " "), nil
}

// record notes the declarations later instructions depend on.
func (d *disassembler) record(inst Instruction, layout string) {
	ops := inst.Operands
	switch inst.Opcode {
	case opTypeInt:
		if len(ops) == 3 && (ops[1] == 8 || ops[1] == 16 || ops[1] == 32 || ops[1] == 64) {
			d.scalars[ops[0]] = scalarType{width: ops[1], signed: ops[2] == 1}
		}
	case opTypeFloat:
		if len(ops) == 2 && (ops[1] == 16 || ops[1] == 32 || ops[1] == 64) {
			d.scalars[ops[0]] = scalarType{float: true, width: ops[1]}
		}
	case opExtInstImport:
		if len(ops) > 1 {
			if set, _ := literalString(ops[1:]); set == "GLSL.std.450" {
				d.extSets[ops[0]] = glslStd450
			}
		}
	}
	if strings.HasPrefix(layout, "tr") && len(ops) >= 2 {
		d.valueTypes[ops[1]] = ops[0]
	}
}

// operand formats the operand of the given kind at the start of ops and
// returns its tokens and the number of words consumed.
func (d *disassembler) operand(kind byte, inst Instruction, ops []uint32) ([]string, int, error) {
	switch kind {
	case 't', 'i':
		return []string{id(ops[0])}, 1, nil
	case 'n':
		return []string{number(ops[0])}, 1, nil
	case 's':
		s, n := literalString(ops)
		return []string{quote(s)}, n, nil
	case 'K':
		return d.constant(inst.Operands[0], ops)
	case 'w':
		return d.switchTargets(inst.Operands[0], ops)
	case 'x':
		return d.extInst(inst.Operands[2], ops[0])
	case 'D':
		return decoration(ops)
	case 'M':
		return memoryAccess(ops)
	}

	if names, ok := enums[kind]; ok {
		name, ok := names[ops[0]]
		if !ok {
			return nil, 0, unsupported("operand value %d", ops[0])
		}
		return []string{name}, 1, nil
	}
	if names, ok := masks[kind]; ok {
		s, err := mask(names, ops[0])
		if err != nil {
			return nil, 0, err
		}
		return []string{s}, 1, nil
	}
	return nil, 0, unsupported("operand kind %q", kind)
}

// constant formats the literal of OpConstant or OpSpecConstant according to
// the width and kind of its result type.
func (d *disassembler) constant(typeID uint32, ops []uint32) ([]string, int, error) {
	st, ok := d.scalars[typeID]
	if !ok {
		return nil, 0, unsupported("constant of type %s", id(typeID))
	}
	if len(ops) != st.words() {
		return nil, 0, unsupported("%d-word literal for a %d-bit type", len(ops), st.width)
	}
	lit, err := st.literal(ops)
	if err != nil {
		return nil, 0, err
	}
	return []string{lit}, len(ops), nil
}

// switchTargets formats the literal and label pairs of OpSwitch. Literals
// have the width of the selector's type.
func (d *disassembler) switchTargets(selector uint32, ops []uint32) ([]string, int, error) {
	st, ok := d.scalars[d.valueTypes[selector]]
	if !ok || st.float {
		return nil, 0, unsupported("switch on %s", id(selector))
	}
	step := st.words() + 1
	if len(ops)%step != 0 {
		return nil, 0, unsupported("truncated switch target")
	}
	tokens := make([]string, 0, 2*len(ops)/step)
	for i := 0; i < len(ops); i += step {
		lit, err := st.literal(ops[i : i+step-1])
		if err != nil {
			return nil, 0, err
		}
		tokens = append(tokens, lit, id(ops[i+step-1]))
	}
	return tokens, len(ops), nil
}

func (d *disassembler) extInst(set, n uint32) ([]string, int, error) {
	names, ok := d.extSets[set]
	if !ok {
		return nil, 0, unsupported("instruction set %s", id(set))
	}
	name, ok := names[n]
	if !ok {
		return nil, 0, unsupported("extended instruction %d", n)
	}
	return []string{name}, 1, nil
}

// decoration formats a decoration and its extra operands.
func decoration(ops []uint32) ([]string, int, error) {
	name, ok := decorations[ops[0]]
	if !ok {
		return nil, 0, unsupported("decoration %d", ops[0])
	}
	tokens := []string{name}

	switch ops[0] {
	case decorationBuiltIn:
		if len(ops) != 2 {
			return nil, 0, unsupported("BuiltIn with %d operands", len(ops)-1)
		}
		b, ok := builtins[ops[1]]
		if !ok {
			return nil, 0, unsupported("built-in %d", ops[1])
		}
		return append(tokens, b), 2, nil
	case decorationFuncParamAttr, decorationFPRoundingMode, decorationFPFastMathMode, decorationLinkageAttributes:
		return nil, 0, unsupported("%s decoration", name)
	}

	for _, v := range ops[1:] {
		tokens = append(tokens, number(v))
	}
	return tokens, len(ops), nil
}

func memoryAccess(ops []uint32) ([]string, int, error) {
	s, err := mask(memoryAccesses, ops[0])
	if err != nil {
		return nil, 0, err
	}
	if ops[0]&memoryAccessAligned == 0 {
		return []string{s}, 1, nil
	}
	if len(ops) < 2 {
		return nil, 0, unsupported("Aligned without alignment")
	}
	return []string{s, number(ops[1])}, 2, nil
}

// mask joins the names of the bits set in v with '|'.
func mask(names map[uint32]string, v uint32) (string, error) {
	if v == 0 {
		return names[0], nil
	}
	var parts []string
	for bit := uint32(1); bit != 0; bit <<= 1 {
		if v&bit == 0 {
			continue
		}
		name, ok := names[bit]
		if !ok {
			return "", unsupported("mask bit 0x%X", bit)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, "|"), nil
}
