package lower

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

// lowerInstr selects VCode for one non-terminator IR instruction, in
// program order. Every case is responsible for recording the result vreg(s)
// in lw.val before returning.
func (lw *lowerer) lowerInstr(instr *ir.Instruction) {
	if rv, _ := instr.Returns(); rv.Valid() {
		if _, ok := lw.val[rv.ID()]; ok {
			return // already materialized via fusion from a later use
		}
	}
	switch instr.Opcode() {
	case ir.OpcodeIconst:
		lw.lowerIconst(instr)
	case ir.OpcodeFconst:
		lw.lowerFconst(instr)

	case ir.OpcodeIadd, ir.OpcodeIsub, ir.OpcodeBand, ir.OpcodeBor, ir.OpcodeBxor:
		lw.lowerIntBinary(instr)
	case ir.OpcodeImul:
		lw.lowerImul(instr)
	case ir.OpcodeUdiv, ir.OpcodeSdiv:
		lw.lowerDiv(instr)
	case ir.OpcodeUrem, ir.OpcodeSrem:
		lw.lowerRem(instr)
	case ir.OpcodeIneg:
		lw.lowerIneg(instr)
	case ir.OpcodeBnot:
		lw.lowerBnot(instr)
	case ir.OpcodeIshl, ir.OpcodeUshr, ir.OpcodeSshr:
		lw.lowerShift(instr)
	case ir.OpcodeRotl, ir.OpcodeRotr:
		lw.lowerRotate(instr)
	case ir.OpcodeClz:
		lw.lowerClz(instr)
	case ir.OpcodeCtz:
		lw.lowerCtz(instr)
	case ir.OpcodePopcnt:
		lw.lowerPopcnt(instr)
	case ir.OpcodeIcmp:
		lw.lowerIcmpStandalone(instr)

	case ir.OpcodeFadd, ir.OpcodeFsub, ir.OpcodeFmul, ir.OpcodeFdiv, ir.OpcodeFmin, ir.OpcodeFmax:
		lw.lowerFloatBinary(instr)
	case ir.OpcodeFneg:
		lw.lowerFUnary(instr, vcode.OpFnegReg)
	case ir.OpcodeFabs:
		lw.lowerFUnary(instr, vcode.OpFabsReg)
	case ir.OpcodeSqrt:
		lw.lowerFUnary(instr, vcode.OpFsqrt)
	case ir.OpcodeFcopysign:
		lw.lowerFcopysign(instr)
	case ir.OpcodeCeil, ir.OpcodeFloor, ir.OpcodeTrunc, ir.OpcodeNearest:
		lw.lowerFRound(instr)
	case ir.OpcodeFcmp:
		lw.lowerFcmpStandalone(instr)

	case ir.OpcodeFcvtToSint, ir.OpcodeFcvtToUint, ir.OpcodeFcvtToSintSat, ir.OpcodeFcvtToUintSat:
		lw.lowerFcvtToInt(instr)
	case ir.OpcodeFcvtFromSint, ir.OpcodeFcvtFromUint:
		lw.lowerFcvtFromInt(instr)
	case ir.OpcodeFdemote, ir.OpcodeFpromote:
		lw.lowerFcvtWidth(instr)
	case ir.OpcodeIreduce, ir.OpcodeUextend, ir.OpcodeSextend, ir.OpcodeBitcast:
		lw.lowerIntConvert(instr)

	case ir.OpcodeLoad:
		lw.lowerLoad(instr)
	case ir.OpcodeStore:
		lw.lowerStore(instr)
	case ir.OpcodeMemorySize:
		lw.lowerMemorySize(instr)
	case ir.OpcodeMemoryGrow:
		lw.lowerMemoryGrow(instr)

	case ir.OpcodeSelect:
		lw.lowerSelect(instr)

	case ir.OpcodeCall:
		lw.lowerCall(instr)
	case ir.OpcodeCallIndirect:
		lw.lowerCallIndirect(instr)
	case ir.OpcodeReturnCall:
		lw.lowerReturnCall(instr)
	case ir.OpcodeReturnCallIndirect:
		lw.lowerReturnCallIndirect(instr)

	case ir.OpcodeTrap:
		lw.lowerTrap(instr)

	default:
		panic(&ErrUnsupportedIROp{Op: instr.Opcode()})
	}
}

// defVReg allocates a fresh vreg of the type's natural class for instr's
// result and records it in lw.val.
func (lw *lowerer) defVReg(instr *ir.Instruction) vcode.VReg {
	v, _ := instr.Returns()
	vr := lw.vf.NewVReg(classOf(v.Type()))
	lw.val[v.ID()] = vr
	return vr
}
