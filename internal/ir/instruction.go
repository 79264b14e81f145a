package ir

import (
	"fmt"
	"math"
	"strings"
)

// Opcode identifies the operation performed by an Instruction.
type Opcode uint32

const (
	OpcodeInvalid Opcode = iota

	// Constants.
	OpcodeIconst // integer constant, value in u1
	OpcodeFconst // float constant, bits in u1

	// Integer arithmetic.
	OpcodeIadd
	OpcodeIsub
	OpcodeImul
	OpcodeUdiv
	OpcodeSdiv
	OpcodeUrem
	OpcodeSrem
	OpcodeIneg

	// Bitwise / shifts.
	OpcodeBand
	OpcodeBor
	OpcodeBxor
	OpcodeBnot
	OpcodeIshl
	OpcodeUshr
	OpcodeSshr
	OpcodeRotl
	OpcodeRotr
	OpcodeClz
	OpcodeCtz
	OpcodePopcnt

	// Comparisons (i32 result, 0 or 1).
	OpcodeIcmp // condition code in u1, see IntCmpCond

	// Float arithmetic.
	OpcodeFadd
	OpcodeFsub
	OpcodeFmul
	OpcodeFdiv
	OpcodeFneg
	OpcodeFabs
	OpcodeFcopysign
	OpcodeFmin
	OpcodeFmax
	OpcodeSqrt
	OpcodeCeil
	OpcodeFloor
	OpcodeTrunc
	OpcodeNearest
	OpcodeFcmp // condition code in u1, see FloatCmpCond

	// Conversions.
	OpcodeFcvtToSint   // trapping float->int
	OpcodeFcvtToUint   // trapping float->int
	OpcodeFcvtToSintSat // saturating float->int
	OpcodeFcvtToUintSat // saturating float->int
	OpcodeFcvtFromSint
	OpcodeFcvtFromUint
	OpcodeFdemote  // f64 -> f32
	OpcodeFpromote // f32 -> f64
	OpcodeIreduce  // i64 -> i32 (truncate)
	OpcodeUextend  // i32 -> i64 zero extend
	OpcodeSextend  // i32 -> i64 sign extend
	OpcodeBitcast  // reinterpret bits, same width

	// Memory.
	OpcodeLoad  // width/signedness in u1/u2, offset in u2 high bits -- see decode helpers
	OpcodeStore
	OpcodeMemoryGrow
	OpcodeMemorySize

	// Globals (index in u1).
	OpcodeGlobalGet
	OpcodeGlobalSet

	// Control-flow support (non-terminator).
	OpcodeSelect

	// Calls.
	OpcodeCall
	OpcodeCallIndirect
	OpcodeReturnCall         // tail call
	OpcodeReturnCallIndirect // tail call

	// Reference types.
	OpcodeRefNull
	OpcodeRefIsNull
	OpcodeRefFunc
	OpcodeTableGet
	OpcodeTableSet

	// Bulk memory.
	OpcodeMemoryCopy
	OpcodeMemoryFill
	OpcodeMemoryInit
	OpcodeTableCopy
	OpcodeTableFill
	OpcodeTableInit

	// GC (partial).
	OpcodeStructNew
	OpcodeStructGet
	OpcodeStructSet
	OpcodeArrayNew
	OpcodeArrayGet
	OpcodeArraySet
	OpcodeArrayLen

	// Explicit trap, used by the translator for unreachable/bounds helpers
	// that have no other natural IR representation.
	OpcodeTrap

	opcodeMax
)

var opcodeNames = [opcodeMax]string{
	OpcodeIconst: "iconst", OpcodeFconst: "fconst",
	OpcodeIadd: "iadd", OpcodeIsub: "isub", OpcodeImul: "imul",
	OpcodeUdiv: "udiv", OpcodeSdiv: "sdiv", OpcodeUrem: "urem", OpcodeSrem: "srem", OpcodeIneg: "ineg",
	OpcodeBand: "band", OpcodeBor: "bor", OpcodeBxor: "bxor", OpcodeBnot: "bnot",
	OpcodeIshl: "ishl", OpcodeUshr: "ushr", OpcodeSshr: "sshr",
	OpcodeRotl: "rotl", OpcodeRotr: "rotr", OpcodeClz: "clz", OpcodeCtz: "ctz", OpcodePopcnt: "popcnt",
	OpcodeIcmp: "icmp",
	OpcodeFadd: "fadd", OpcodeFsub: "fsub", OpcodeFmul: "fmul", OpcodeFdiv: "fdiv",
	OpcodeFneg: "fneg", OpcodeFabs: "fabs", OpcodeFcopysign: "fcopysign",
	OpcodeFmin: "fmin", OpcodeFmax: "fmax", OpcodeSqrt: "sqrt",
	OpcodeCeil: "ceil", OpcodeFloor: "floor", OpcodeTrunc: "trunc", OpcodeNearest: "nearest",
	OpcodeFcmp: "fcmp",
	OpcodeFcvtToSint: "fcvt_to_sint", OpcodeFcvtToUint: "fcvt_to_uint",
	OpcodeFcvtToSintSat: "fcvt_to_sint_sat", OpcodeFcvtToUintSat: "fcvt_to_uint_sat",
	OpcodeFcvtFromSint: "fcvt_from_sint", OpcodeFcvtFromUint: "fcvt_from_uint",
	OpcodeFdemote: "fdemote", OpcodeFpromote: "fpromote",
	OpcodeIreduce: "ireduce", OpcodeUextend: "uextend", OpcodeSextend: "sextend", OpcodeBitcast: "bitcast",
	OpcodeLoad: "load", OpcodeStore: "store", OpcodeMemoryGrow: "memory.grow", OpcodeMemorySize: "memory.size",
	OpcodeGlobalGet: "global.get", OpcodeGlobalSet: "global.set",
	OpcodeSelect: "select",
	OpcodeCall: "call", OpcodeCallIndirect: "call_indirect",
	OpcodeReturnCall: "return_call", OpcodeReturnCallIndirect: "return_call_indirect",
	OpcodeRefNull: "ref.null", OpcodeRefIsNull: "ref.is_null", OpcodeRefFunc: "ref.func",
	OpcodeTableGet: "table.get", OpcodeTableSet: "table.set",
	OpcodeMemoryCopy: "memory.copy", OpcodeMemoryFill: "memory.fill", OpcodeMemoryInit: "memory.init",
	OpcodeTableCopy: "table.copy", OpcodeTableFill: "table.fill", OpcodeTableInit: "table.init",
	OpcodeStructNew: "struct.new", OpcodeStructGet: "struct.get", OpcodeStructSet: "struct.set",
	OpcodeArrayNew: "array.new", OpcodeArrayGet: "array.get", OpcodeArraySet: "array.set", OpcodeArrayLen: "array.len",
	OpcodeTrap: "trap",
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if o < opcodeMax && opcodeNames[o] != "" {
		return opcodeNames[o]
	}
	return fmt.Sprintf("opcode(%d)", o)
}

// sideEffecting reports whether an instruction of this opcode must never be
// deleted while dead, because it may be observably trapping or because it
// mutates state outside the SSA value graph.
var sideEffecting = map[Opcode]bool{
	OpcodeUdiv: true, OpcodeSdiv: true, OpcodeUrem: true, OpcodeSrem: true,
	OpcodeFcvtToSint: true, OpcodeFcvtToUint: true,
	OpcodeLoad: true, OpcodeStore: true,
	OpcodeMemoryGrow: true, OpcodeMemorySize: true,
	OpcodeGlobalGet: true, OpcodeGlobalSet: true,
	OpcodeCall: true, OpcodeCallIndirect: true,
	OpcodeReturnCall: true, OpcodeReturnCallIndirect: true,
	OpcodeTableGet: true, OpcodeTableSet: true,
	OpcodeMemoryCopy: true, OpcodeMemoryFill: true, OpcodeMemoryInit: true,
	OpcodeTableCopy: true, OpcodeTableFill: true, OpcodeTableInit: true,
	OpcodeStructNew: true, OpcodeStructGet: true, OpcodeStructSet: true,
	OpcodeArrayNew: true, OpcodeArrayGet: true, OpcodeArraySet: true,
	OpcodeTrap: true,
}

// SideEffecting reports whether o may trap or otherwise must not be deleted
// purely because its result is unused.
func (o Opcode) SideEffecting() bool { return sideEffecting[o] }

// CanTrap reports whether an instance of this opcode can observably trap.
// This is a superset refinement used by the optimizer's purity rule: a
// rewrite may fold a CanTrap instruction only if it preserves the exact
// trap condition.
func (o Opcode) CanTrap() bool {
	switch o {
	case OpcodeUdiv, OpcodeSdiv, OpcodeUrem, OpcodeSrem,
		OpcodeFcvtToSint, OpcodeFcvtToUint,
		OpcodeLoad, OpcodeStore, OpcodeMemoryGrow,
		OpcodeCallIndirect, OpcodeReturnCallIndirect,
		OpcodeTableGet, OpcodeTableSet, OpcodeTrap,
		OpcodeStructGet, OpcodeStructSet, OpcodeArrayGet, OpcodeArraySet:
		return true
	default:
		return false
	}
}

// IntCmpCond is the condition code carried by an Icmp instruction.
type IntCmpCond byte

const (
	IntEq IntCmpCond = iota
	IntNe
	IntSlt
	IntSle
	IntSgt
	IntSge
	IntUlt
	IntUle
	IntUgt
	IntUge
)

func (c IntCmpCond) String() string {
	return [...]string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge"}[c]
}

// Inverted returns the logical negation of c (used when folding branches).
func (c IntCmpCond) Inverted() IntCmpCond {
	switch c {
	case IntEq:
		return IntNe
	case IntNe:
		return IntEq
	case IntSlt:
		return IntSge
	case IntSle:
		return IntSgt
	case IntSgt:
		return IntSle
	case IntSge:
		return IntSlt
	case IntUlt:
		return IntUge
	case IntUle:
		return IntUgt
	case IntUgt:
		return IntUle
	case IntUge:
		return IntUlt
	}
	panic("unreachable")
}

// FloatCmpCond is the condition code carried by an Fcmp instruction.
type FloatCmpCond byte

const (
	FloatEq FloatCmpCond = iota
	FloatNe
	FloatLt
	FloatLe
	FloatGt
	FloatGe
)

func (c FloatCmpCond) String() string {
	return [...]string{"eq", "ne", "lt", "le", "gt", "ge"}[c]
}

// MemArg carries the (offset, align, width, signed) fields shared by
// Load/Store instructions.
type MemArg struct {
	Offset uint32
	Align  uint8
	Width  byte // 8, 16, 32, 64, or 128 bits
	Signed bool // for sub-word loads
}

// Instruction is a single IR instruction. Since Go lacks tagged unions,
// one flattened struct is reused for every opcode; the meaning of each
// field is determined by Opcode, mirroring the rest of this IR's design.
type Instruction struct {
	opcode     Opcode
	u1, u2     uint64
	v, v2, v3  Value
	vs         []Value
	typ        Type
	mem        MemArg
	sig        SignatureID
	blk        *BasicBlock
	targets    []*BasicBlock // for Jump/BrIf/BrTable terminators
	brArgs     [][]Value     // per-target argument lists for terminators
	prev, next *Instruction

	rValue  Value
	rValues []Value

	gid  InstructionGroupID
	live bool // used by DCE/copy-prop passes as scratch
}

// InstructionGroupID partitions a block's instructions into groups that are
// free to be reordered relative to one another within the group, but never
// across a group boundary. A new group starts after every side-effecting
// instruction (loads, stores, calls, trapping ops) and at the start of
// every block, since a block always ends with a terminator that itself
// carries side effects.
type InstructionGroupID uint32

func (i *Instruction) reset() {
	*i = Instruction{v: ValueInvalid, v2: ValueInvalid, v3: ValueInvalid, rValue: ValueInvalid}
}

// Opcode returns the instruction's opcode.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// GroupID returns the InstructionGroupID assigned to this instruction by
// the last run of the optimizer driver.
func (i *Instruction) GroupID() InstructionGroupID { return i.gid }

// Block returns the owning BasicBlock.
func (i *Instruction) Block() *BasicBlock { return i.blk }

// Next / Prev walk the per-block doubly-linked instruction list.
func (i *Instruction) Next() *Instruction { return i.next }
func (i *Instruction) Prev() *Instruction { return i.prev }

// Return / Returns access the produced Value(s).
func (i *Instruction) Return() Value                { return i.rValue }
func (i *Instruction) Returns() (Value, []Value)     { return i.rValue, i.rValues }
func (i *Instruction) setResult(v Value)             { i.rValue = v }
func (i *Instruction) setResults(v Value, vs []Value) { i.rValue, i.rValues = v, vs }

// Args returns the up-to-three scalar operands plus the variadic tail.
func (i *Instruction) Args() (Value, Value, Value, []Value) { return i.v, i.v2, i.v3, i.vs }
func (i *Instruction) Arg() Value                            { return i.v }
func (i *Instruction) Arg2() (Value, Value)                  { return i.v, i.v2 }

// ConstValue returns the raw bits of an Iconst/Fconst instruction.
func (i *Instruction) ConstValue() uint64 { return i.u1 }

// IntCmpCond returns the condition of an Icmp instruction.
func (i *Instruction) IntCmpCond() IntCmpCond { return IntCmpCond(i.u1) }

// FloatCmpCond returns the condition of an Fcmp instruction.
func (i *Instruction) FloatCmpCond() FloatCmpCond { return FloatCmpCond(i.u1) }

// MemArg returns the memory access descriptor of a Load/Store instruction.
func (i *Instruction) MemArg() MemArg { return i.mem }

// Signature returns the SignatureID referenced by a Call/CallIndirect.
func (i *Instruction) Signature() SignatureID { return i.sig }

// FuncIndex returns the direct-call target encoded in u1 for OpcodeCall.
func (i *Instruction) FuncIndex() uint32 { return uint32(i.u1) }

// GlobalIndex returns the global index encoded in u1 for GlobalGet/GlobalSet.
func (i *Instruction) GlobalIndex() uint32 { return uint32(i.u1) }

// TableIndex returns the table index encoded in u2 for table/call_indirect ops.
func (i *Instruction) TableIndex() uint32 { return uint32(i.u2) }

// String renders a debug form of the instruction, e.g. "v3 = iadd v1, v2".
func (i *Instruction) String() string {
	var b strings.Builder
	if i.rValue.Valid() {
		fmt.Fprintf(&b, "%s = ", i.rValue)
	}
	b.WriteString(i.opcode.String())
	switch i.opcode {
	case OpcodeIconst:
		fmt.Fprintf(&b, " %d", int64(i.u1))
	case OpcodeFconst:
		if i.typ == TypeF32 {
			fmt.Fprintf(&b, " %f", math.Float32frombits(uint32(i.u1)))
		} else {
			fmt.Fprintf(&b, " %f", math.Float64frombits(i.u1))
		}
	case OpcodeIcmp:
		fmt.Fprintf(&b, ".%s %s, %s", i.IntCmpCond(), i.v, i.v2)
	case OpcodeFcmp:
		fmt.Fprintf(&b, ".%s %s, %s", i.FloatCmpCond(), i.v, i.v2)
	case OpcodeLoad:
		fmt.Fprintf(&b, " %s+%d", i.v, i.mem.Offset)
	case OpcodeStore:
		fmt.Fprintf(&b, " %s, %s+%d", i.v2, i.v, i.mem.Offset)
	default:
		var args []string
		if i.v.Valid() {
			args = append(args, i.v.String())
		}
		if i.v2.Valid() {
			args = append(args, i.v2.String())
		}
		if i.v3.Valid() {
			args = append(args, i.v3.String())
		}
		for _, a := range i.vs {
			args = append(args, a.String())
		}
		if len(args) > 0 {
			b.WriteString(" " + strings.Join(args, ", "))
		}
	}
	return b.String()
}
