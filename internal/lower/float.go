package lower

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

func isDouble(t ir.Type) bool { return t == ir.TypeF64 }

func (lw *lowerer) lowerFloatBinary(instr *ir.Instruction) {
	a, b := instr.Arg2()
	v, _ := instr.Returns()
	var op vcode.Opcode
	switch instr.Opcode() {
	case ir.OpcodeFadd:
		op = vcode.OpFaddReg
	case ir.OpcodeFsub:
		op = vcode.OpFsubReg
	case ir.OpcodeFmul:
		op = vcode.OpFmulReg
	case ir.OpcodeFdiv:
		op = vcode.OpFdivReg
	case ir.OpcodeFmin:
		op = vcode.OpFminReg
	case ir.OpcodeFmax:
		op = vcode.OpFmaxReg
	}
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: op, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a), lw.vreg(b)}, IsFloat: true, Double: isDouble(v.Type())})
}

func (lw *lowerer) lowerFUnary(instr *ir.Instruction, op vcode.Opcode) {
	a := instr.Arg()
	v, _ := instr.Returns()
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: op, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, IsFloat: true, Double: isDouble(v.Type())})
}

// lowerFcopysign has no single AArch64 instruction; it is synthesized as
// (abs(a) with b's sign bit copied in), via a bitwise blend over the GPR
// reinterpretation of both operands. This repo lowers it through the
// integer path: move both operands to GPRs, mask/merge sign bits, move
// back - grounded on the same fmov-to-int/fmov-from-int roundtrip the ABI
// marshalling sequence already uses.
func (lw *lowerer) lowerFcopysign(instr *ir.Instruction) {
	a, b := instr.Arg2()
	v, _ := instr.Returns()
	width := v.Type().Bits()
	double := isDouble(v.Type())

	ai := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpFmovToInt, Defs: []vcode.VReg{ai}, Uses: []vcode.VReg{lw.vreg(a)}, Width: width, Double: double})
	bi := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpFmovToInt, Defs: []vcode.VReg{bi}, Uses: []vcode.VReg{lw.vreg(b)}, Width: width, Double: double})

	signMask := uint64(1) << (width - 1)
	magMask := signMask - 1

	magConst := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emitMovImm(magConst, magMask, width)
	mag := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpAndReg, Defs: []vcode.VReg{mag}, Uses: []vcode.VReg{ai, magConst}, Width: width})

	signConst := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emitMovImm(signConst, signMask, width)
	sign := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpAndReg, Defs: []vcode.VReg{sign}, Uses: []vcode.VReg{bi, signConst}, Width: width})

	merged := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpOrrReg, Defs: []vcode.VReg{merged}, Uses: []vcode.VReg{mag, sign}, Width: width})

	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpFmovFromInt, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{merged}, Width: width, Double: double})
}

// lowerFRound covers ceil/floor/trunc/nearest, each its own FRINT variant.
func (lw *lowerer) lowerFRound(instr *ir.Instruction) {
	a := instr.Arg()
	v, _ := instr.Returns()
	var op vcode.Opcode
	switch instr.Opcode() {
	case ir.OpcodeCeil:
		op = vcode.OpFrintp
	case ir.OpcodeFloor:
		op = vcode.OpFrintm
	case ir.OpcodeTrunc:
		op = vcode.OpFrintz
	case ir.OpcodeNearest:
		op = vcode.OpFrintn
	}
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: op, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, IsFloat: true, Double: isDouble(v.Type())})
}

func (lw *lowerer) lowerFcmpStandalone(instr *ir.Instruction) {
	a, b := instr.Arg2()
	cond := floatCond(instr.FloatCmpCond())
	lw.emit(&vcode.Inst{Op: vcode.OpCmpReg, Uses: []vcode.VReg{lw.vreg(a), lw.vreg(b)}, IsFloat: true, Double: isDouble(a.Type())})
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpCset, Defs: []vcode.VReg{dst}, Cond: cond, Width: 32})
}

func floatCond(c ir.FloatCmpCond) vcode.Cond {
	switch c {
	case ir.FloatEq:
		return vcode.CondEQ
	case ir.FloatNe:
		return vcode.CondNE
	case ir.FloatLt:
		return vcode.CondMI
	case ir.FloatLe:
		return vcode.CondLS
	case ir.FloatGt:
		return vcode.CondGT
	case ir.FloatGe:
		return vcode.CondGE
	}
	panic("unreachable")
}
