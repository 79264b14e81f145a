package wasm

import "github.com/cwasmjit/cwasmjit/internal/ir"

// OpKind enumerates the structured Wasm instructions the translator
// understands. This is intentionally a much smaller, already-decoded
// vocabulary than the raw opcode byte space the binary format uses: LEB128
// decoding and immediate parsing are the parser's job (out of scope here).
type OpKind byte

const (
	OpUnreachable OpKind = iota
	OpNop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpBrTable
	OpReturn
	OpCall
	OpCallIndirect
	OpReturnCall
	OpReturnCallIndirect
	OpDrop
	OpSelect
	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet
	OpLoad
	OpStore
	OpMemorySize
	OpMemoryGrow
	OpMemoryCopy
	OpMemoryFill
	OpMemoryInit
	OpTableGet
	OpTableSet
	OpTableCopy
	OpTableFill
	OpTableInit
	OpConstI32
	OpConstI64
	OpConstF32
	OpConstF64
	OpRefNull
	OpRefIsNull
	OpRefFunc
	OpUnary  // opcode-specific unary numeric op, see NumOp
	OpBinary // opcode-specific binary numeric op, see NumOp
	OpCompare
	OpConvert
)

// NumOp identifies a specific numeric operator for Unary/Binary/Compare/
// Convert instructions by directly naming the ir.Opcode (and, where
// relevant, the comparison condition or source/result types) it should
// translate to — the decoder already knows exactly which IR instruction a
// given Wasm numeric opcode corresponds to, so there is no value in
// introducing a second, parallel enumeration.
type NumOp struct {
	Op        ir.Opcode
	Type      ir.Type    // the instruction's result (or operand, for compares) type
	IntCond   ir.IntCmpCond
	FloatCond ir.FloatCmpCond
	SrcType   ir.Type // source type for Convert
	Signed    bool    // for Convert variants with signed/unsigned forms
	Sat       bool    // for Convert: saturating vs. trapping
}

// BlockType describes a structured block's parameter and result arity by
// referencing a FuncType (a single-result shorthand collapses to a FuncType
// with zero params).
type BlockType struct {
	Params, Results []ValueType
}

// Op is one decoded instruction in a function body's instruction stream.
type Op struct {
	Kind OpKind

	// Generic immediates; meaning depends on Kind.
	I32   int32
	I64   int64
	F32   uint32
	F64   uint64
	Index uint32 // local/global/func/table/type index
	Index2 uint32

	NumOp NumOp
	Mem   MemArg
	Block BlockType

	BrTargets []uint32 // relative depths, for OpBrTable
	BrDefault uint32
}

// MemArg mirrors ir.MemArg for the decoded-but-not-yet-IR instruction
// stream (offset/align as Wasm encodes them; width/signedness folded into
// NumOp for loads/stores of narrower-than-register width).
type MemArg struct {
	Offset uint32
	Align  uint32
}
