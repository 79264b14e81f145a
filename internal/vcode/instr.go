package vcode

import (
	"fmt"
	"strings"
)

// Cond is an AArch64 condition code, used by BranchCmp/SelectCmp/Csel
// family instructions. Values match the encoding used in the condition
// field of B.cond/CSEL (AArch64 ARM ARM table C1-1).
type Cond uint8

const (
	CondEQ Cond = iota
	CondNE
	CondCS // HS, unsigned >=
	CondCC // LO, unsigned <
	CondMI
	CondPL
	CondVS
	CondVC
	CondHI // unsigned >
	CondLS // unsigned <=
	CondGE
	CondLT
	CondGT
	CondLE
	CondAL
	CondNV
)

var condNames = [...]string{"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc", "hi", "ls", "ge", "lt", "gt", "le", "al", "nv"}

func (c Cond) String() string { return condNames[c] }

// Invert returns the logical negation of c.
func (c Cond) Invert() Cond {
	return c ^ 1
}

// FromIntCmp maps an ir.IntCmpCond to the AArch64 condition that tests
// "true" directly off the flags set by a CMP of the same two operands
// (lhs CMP rhs; then B.cond tests lhs <cond> rhs).
func FromIntCmp(cond int, signed bool) Cond {
	// cond values mirror ir.IntCmpCond's iota ordering: eq,ne,slt,sle,sgt,sge,ult,ule,ugt,uge.
	switch cond {
	case 0:
		return CondEQ
	case 1:
		return CondNE
	case 2:
		return CondLT
	case 3:
		return CondLE
	case 4:
		return CondGT
	case 5:
		return CondGE
	case 6:
		return CondCC
	case 7:
		return CondLS
	case 8:
		return CondHI
	case 9:
		return CondCS
	}
	panic("unreachable")
}

// Shift describes a shifted-register second operand, used by AddShifted
// and friends (spec §4.3 "shifted operand" fusion).
type Shift struct {
	Kind   ShiftKind
	Amount uint8
}

type ShiftKind uint8

const (
	ShiftLSL ShiftKind = iota
	ShiftLSR
	ShiftASR
)

// AddrMode describes a fused load/store address: base register, optional
// shifted index register, or an immediate offset. Index is meaningful only
// when IndexSet is true; otherwise the address is Base+ImmOffset.
type AddrMode struct {
	Base      VReg
	Index     VReg // VRegInvalid if this is a base+imm addressing mode
	IndexSet  bool
	Shift     uint8 // LSL amount applied to Index (0 if none)
	ImmOffset int64
}

// Opcode enumerates VCode instruction kinds. Names mirror the AArch64
// operation each lowers to, per spec §3.2/§4.3/§4.5.
type Opcode uint16

const (
	OpInvalid Opcode = iota

	OpAddReg
	OpAddImm
	OpAddShifted
	OpSubReg
	OpSubImm
	OpSubShifted
	OpMadd
	OpMsub
	OpMneg
	OpMul
	OpSDiv
	OpUDiv
	OpMSubRem // computes remainder as a - (a/b)*b fused, after a Div
	OpAndReg
	OpAndImm
	OpOrrReg
	OpOrrImm
	OpEorReg
	OpEorImm
	OpMvn
	OpLslReg
	OpLslImm
	OpLsrReg
	OpLsrImm
	OpAsrReg
	OpAsrImm
	OpRorReg
	OpRorImm
	OpClz
	OpRbit // used to implement ctz as clz(rbit(x))
	OpCnt  // vector popcount building block for i32/i64 popcnt sequence
	OpNeg

	OpMovReg
	OpMovZ
	OpMovK
	OpMovN
	OpLoadConst // literal-pool load, PC-relative

	OpFmovToInt   // move float bits into a GPR (param/result marshalling)
	OpFmovFromInt // move GPR bits into a float register
	OpFaddReg
	OpFsubReg
	OpFmulReg
	OpFdivReg
	OpFnegReg
	OpFabsReg
	OpFsqrt
	OpFminReg
	OpFmaxReg
	OpFrintp // ceil
	OpFrintm // floor
	OpFrintz // trunc
	OpFrintn // nearest (ties to even)
	OpFcvtToSintReg
	OpFcvtToUintReg
	OpFcvtFromSintReg
	OpFcvtFromUintReg
	OpFcvtNarrow // f64 -> f32
	OpFcvtWiden  // f32 -> f64

	OpCmpReg
	OpCmpImm
	OpCset // materialize a cond as 0/1 in a GPR (non-fused compare use)
	OpCsel // select between two GPRs based on a Cond (select+compare fusion)
	OpFcselCmp

	OpLdrImm    // base+imm addressing
	OpLdrAmode  // base + shifted-index addressing (memory address fusion)
	OpStrImm
	OpStrAmode
	OpBoundsCheck // explicit CMP end_addr, mem_size; B.HI trap
	OpDivZeroCheck
	OpDivOverflowCheck
	OpFcvtRangeCheck // NaN/out-of-range check ahead of a trapping float->int conversion

	OpSpillLoad
	OpSpillStore

	OpCall
	OpCallIndirect
	OpReturnCall
	OpReturnCallIndirect
	OpMemGrow // host call + cache reload of RegMemBase/RegMemSize

	OpBrk // BRK #imm, trap signal (spec §4.6 trap kinds)
	OpNop

	// OpExtraResBufAddr materializes the address of this function's shared
	// extra-results scratch buffer (Function.ExtraResBufBytes) into Defs[0];
	// the emitter resolves it to an SP-relative address once frame layout
	// is final, the same way it resolves OpSpillLoad/OpSpillStore.
	OpExtraResBufAddr
)

// Inst is a single VCode instruction. As with ir.Instruction, one
// flattened struct is reused for every opcode; fields are interpreted
// according to Op.
type Inst struct {
	Op Opcode

	// Defs/Uses are ordered operand lists; by convention Defs[0] (if any)
	// is the instruction's primary result.
	Defs []VReg
	Uses []VReg

	Imm   int64 // immediate operand (ADD/SUB/AND/OR/XOR imm, shift amount, MOVZ/MOVK imm+shift, BRK code)
	Imm2  int64 // secondary immediate (MOVK shift amount, CMP-imm width)
	Cond  Cond
	Shift Shift
	Mode  AddrMode

	Width   byte // 8,16,32,64,128: access/operation width
	Signed  bool
	IsFloat bool
	Double  bool // for float ops: true = D (f64), false = S (f32)

	// Call-site metadata.
	CallTarget    uint32 // direct-call function index
	CallClobbers  []RealReg
	CallSig       uint32 // SignatureID, opaque to vcode
	NeedsExtraRes bool

	// Spill/reload slot index, valid for OpSpillLoad/OpSpillStore.
	SpillSlot int

	// WasmOffset records the originating Wasm bytecode offset, threaded
	// through from the IR instruction that produced this VCode instruction,
	// for the PC-to-wasm-offset map the trap reporter consults (spec §3.4,
	// §6.3).
WasmOffset uint32
}

func (i *Inst) String() string {
	var b strings.Builder
	if len(i.Defs) > 0 {
		for idx, d := range i.Defs {
			if idx > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.String())
		}
		b.WriteString(" = ")
	}
	fmt.Fprintf(&b, "%s", opcodeNames[i.Op])
	for _, u := range i.Uses {
		b.WriteString(" " + u.String())
	}
	return b.String()
}

var opcodeNames = map[Opcode]string{
	OpAddReg: "add", OpAddImm: "add.imm", OpAddShifted: "add.shifted",
	OpSubReg: "sub", OpSubImm: "sub.imm", OpSubShifted: "sub.shifted",
	OpMadd: "madd", OpMsub: "msub", OpMneg: "mneg", OpMul: "mul",
	OpSDiv: "sdiv", OpUDiv: "udiv",
	OpAndReg: "and", OpAndImm: "and.imm", OpOrrReg: "orr", OpOrrImm: "orr.imm",
	OpEorReg: "eor", OpEorImm: "eor.imm", OpMvn: "mvn",
	OpLslReg: "lsl", OpLslImm: "lsl.imm", OpLsrReg: "lsr", OpLsrImm: "lsr.imm",
	OpAsrReg: "asr", OpAsrImm: "asr.imm", OpRorReg: "ror", OpRorImm: "ror.imm",
	OpClz: "clz", OpRbit: "rbit", OpCnt: "cnt", OpNeg: "neg",
	OpMovReg: "mov", OpMovZ: "movz", OpMovK: "movk", OpMovN: "movn", OpLoadConst: "ldr.lit",
	OpFmovToInt: "fmov.x", OpFmovFromInt: "fmov.f",
	OpFaddReg: "fadd", OpFsubReg: "fsub", OpFmulReg: "fmul", OpFdivReg: "fdiv",
	OpFnegReg: "fneg", OpFabsReg: "fabs", OpFsqrt: "fsqrt",
	OpFminReg: "fmin", OpFmaxReg: "fmax",
	OpFrintp: "frintp", OpFrintm: "frintm", OpFrintz: "frintz", OpFrintn: "frintn",
	OpFcvtToSintReg: "fcvtzs", OpFcvtToUintReg: "fcvtzu",
	OpFcvtFromSintReg: "scvtf", OpFcvtFromUintReg: "ucvtf",
	OpFcvtNarrow: "fcvt.narrow", OpFcvtWiden: "fcvt.widen",
	OpCmpReg: "cmp", OpCmpImm: "cmp.imm", OpCset: "cset", OpCsel: "csel", OpFcselCmp: "fcsel",
	OpLdrImm: "ldr", OpLdrAmode: "ldr.amode", OpStrImm: "str", OpStrAmode: "str.amode",
	OpBoundsCheck: "bounds_check", OpDivZeroCheck: "divzero_check", OpDivOverflowCheck: "divovf_check",
	OpFcvtRangeCheck: "fcvt_range_check",
	OpSpillLoad: "spill_load", OpSpillStore: "spill_store",
	OpCall: "call", OpCallIndirect: "call_indirect",
	OpReturnCall: "return_call", OpReturnCallIndirect: "return_call_indirect",
	OpMemGrow: "memory.grow", OpBrk: "brk", OpNop: "nop",
	OpExtraResBufAddr: "extra_res_buf.addr",
}
