package lower

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

func (lw *lowerer) lowerIconst(instr *ir.Instruction) {
	lw.materializeConst(instr)
}

// materializeConst emits the MOVZ/MOVK (or literal-pool) sequence for an
// Iconst/Fconst definition and records its vreg. Called both from the
// ordinary per-instruction walk and lazily from lw.vreg when a constant
// that was folded as an immediate elsewhere is also used as a plain
// register value.
func (lw *lowerer) materializeConst(instr *ir.Instruction) vcode.VReg {
	v, _ := instr.Returns()
	if instr.Opcode() == ir.OpcodeFconst {
		return lw.materializeFconst(instr)
	}
	bits := instr.ConstValue()
	width := v.Type().Bits()
	vr := lw.defVReg(instr)
	lw.emitMovImm(vr, bits, width)
	return vr
}

// emitMovImm materializes a width-bit constant into dst via MOVZ plus up
// to three MOVK instructions, one per 16-bit chunk, skipping all-zero
// chunks after the first (spec §4.3 "constant materialization").
func (lw *lowerer) emitMovImm(dst vcode.VReg, bits uint64, width byte) {
	if width < 64 {
		bits &= (uint64(1) << width) - 1
	}
	chunks := int(width) / 16
	first := true
	for i := 0; i < chunks; i++ {
		chunk := (bits >> uint(i*16)) & 0xffff
		if chunk == 0 && !first {
			continue
		}
		if first {
			lw.emit(&vcode.Inst{Op: vcode.OpMovZ, Defs: []vcode.VReg{dst}, Imm: int64(chunk), Imm2: int64(i * 16), Width: width})
			first = false
		} else {
			lw.emit(&vcode.Inst{Op: vcode.OpMovK, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{dst}, Imm: int64(chunk), Imm2: int64(i * 16), Width: width})
		}
	}
	if first {
		// bits == 0: a single MOVZ #0 still materializes it.
		lw.emit(&vcode.Inst{Op: vcode.OpMovZ, Defs: []vcode.VReg{dst}, Imm: 0, Width: width})
	}
}

func (lw *lowerer) lowerFconst(instr *ir.Instruction) {
	lw.materializeFconst(instr)
}

func (lw *lowerer) materializeFconst(instr *ir.Instruction) vcode.VReg {
	v, _ := instr.Returns()
	vr := lw.defVReg(instr)
	double := v.Type() == ir.TypeF64
	width := byte(8)
	if !double {
		width = 4
	}
	bytes := make([]byte, width)
	bits := instr.ConstValue()
	for i := 0; i < int(width); i++ {
		bytes[i] = byte(bits >> uint(8*i))
	}
	idx := lw.vf.AllocateConst(bytes)
	lw.emit(&vcode.Inst{Op: vcode.OpLoadConst, Defs: []vcode.VReg{vr}, Imm: int64(idx), IsFloat: true, Double: double})
	return vr
}

// asConstImm reports whether v is defined by an Iconst, returning the raw
// bits if so; callers check whether the bits fit their immediate form. It does not
// require single use: if the constant is also needed as a plain register
// elsewhere, that use lazily materializes it independently via lw.vreg.
func (lw *lowerer) asConstImm(v ir.Value) (bits uint64, ok bool) {
	instr := lw.dc.Get(v)
	if instr == nil || instr.Opcode() != ir.OpcodeIconst {
		return 0, false
	}
	return instr.ConstValue(), true
}

func (lw *lowerer) lowerIntBinary(instr *ir.Instruction) {
	v, _ := instr.Returns()
	width := v.Type().Bits()
	a, b := instr.Arg2()

	regOp, immOp := opPairFor(instr.Opcode())

	if bits, ok := lw.asConstImm(b); ok && fitsImmFor(instr.Opcode(), int64(bits), width) {
		dst := lw.defVReg(instr)
		lw.emit(&vcode.Inst{Op: immOp, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, Imm: int64(bits), Width: width})
		return
	}
	// Iadd(Imul(x,y), z) / Iadd(z, Imul(x,y)) -> Madd fusion.
	if instr.Opcode() == ir.OpcodeIadd {
		if mul, okA := lw.sameBlock(a); okA && mul.Opcode() == ir.OpcodeImul && lw.single(a) {
			lw.emitMadd(instr, mul, b, vcode.OpMadd)
			return
		}
		if mul, okB := lw.sameBlock(b); okB && mul.Opcode() == ir.OpcodeImul && lw.single(b) {
			lw.emitMadd(instr, mul, a, vcode.OpMadd)
			return
		}
	}
	// Isub(z, Imul(x,y)) -> Msub fusion.
	if instr.Opcode() == ir.OpcodeIsub {
		if mul, okB := lw.sameBlock(b); okB && mul.Opcode() == ir.OpcodeImul && lw.single(b) {
			lw.emitMadd(instr, mul, a, vcode.OpMsub)
			return
		}
	}

	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: regOp, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a), lw.vreg(b)}, Width: width})
}

func (lw *lowerer) emitMadd(addSub, mul *ir.Instruction, addend ir.Value, op vcode.Opcode) {
	dst := lw.defVReg(addSub)
	mx, my := mul.Arg2()
	lw.emit(&vcode.Inst{Op: op, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(mx), lw.vreg(my), lw.vreg(addend)}, Width: addSub.Return().Type().Bits()})
}

func opPairFor(op ir.Opcode) (reg, imm vcode.Opcode) {
	switch op {
	case ir.OpcodeIadd:
		return vcode.OpAddReg, vcode.OpAddImm
	case ir.OpcodeIsub:
		return vcode.OpSubReg, vcode.OpSubImm
	case ir.OpcodeBand:
		return vcode.OpAndReg, vcode.OpAndImm
	case ir.OpcodeBor:
		return vcode.OpOrrReg, vcode.OpOrrImm
	case ir.OpcodeBxor:
		return vcode.OpEorReg, vcode.OpEorImm
	}
	panic("unreachable")
}

func fitsImmFor(op ir.Opcode, v int64, width byte) bool {
	switch op {
	case ir.OpcodeIadd, ir.OpcodeIsub:
		return fitsAddImm12(v)
	case ir.OpcodeBand, ir.OpcodeBor, ir.OpcodeBxor:
		return fitsLogicalImm(uint64(v), width)
	}
	return false
}

func (lw *lowerer) lowerImul(instr *ir.Instruction) {
	a, b := instr.Arg2()
	v, _ := instr.Returns()
	width := v.Type().Bits()

	if bits, ok := lw.asConstImm(b); ok {
		if bits == 0 {
			dst := lw.defVReg(instr)
			lw.emitMovImm(dst, 0, width)
			return
		}
		if shift, isP2 := log2IfPow2(bits); isP2 {
			dst := lw.defVReg(instr)
			lw.emit(&vcode.Inst{Op: vcode.OpLslImm, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, Imm: int64(shift), Width: width})
			return
		}
	}
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpMul, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a), lw.vreg(b)}, Width: width})
}

func log2IfPow2(v uint64) (uint, bool) {
	if v == 0 || v&(v-1) != 0 {
		return 0, false
	}
	var s uint
	for v > 1 {
		v >>= 1
		s++
	}
	return s, true
}

func (lw *lowerer) lowerDiv(instr *ir.Instruction) {
	a, b := instr.Arg2()
	v, _ := instr.Returns()
	width := v.Type().Bits()
	signed := instr.Opcode() == ir.OpcodeSdiv
	op := vcode.OpUDiv
	if signed {
		op = vcode.OpSDiv
	}
	bv := lw.vreg(b)
	lw.emit(&vcode.Inst{Op: vcode.OpDivZeroCheck, Uses: []vcode.VReg{bv}, Width: width, WasmOffset: instr.MemArg().Offset})
	dst := lw.defVReg(instr)
	if signed {
		// Signed division overflow: INT_MIN / -1 traps per Wasm semantics.
		lw.emit(&vcode.Inst{Op: vcode.OpDivOverflowCheck, Uses: []vcode.VReg{lw.vreg(a), bv}, Width: width})
	}
	lw.emit(&vcode.Inst{Op: op, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a), bv}, Width: width, Signed: signed})
}

func (lw *lowerer) lowerRem(instr *ir.Instruction) {
	a, b := instr.Arg2()
	v, _ := instr.Returns()
	width := v.Type().Bits()
	signed := instr.Opcode() == ir.OpcodeSrem
	divOp := vcode.OpUDiv
	if signed {
		divOp = vcode.OpSDiv
	}
	av, bv := lw.vreg(a), lw.vreg(b)
	lw.emit(&vcode.Inst{Op: vcode.OpDivZeroCheck, Uses: []vcode.VReg{bv}, Width: width, WasmOffset: instr.MemArg().Offset})
	q := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: divOp, Defs: []vcode.VReg{q}, Uses: []vcode.VReg{av, bv}, Width: width, Signed: signed})
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpMSubRem, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{q, bv, av}, Width: width, Signed: signed})
}

func (lw *lowerer) lowerIneg(instr *ir.Instruction) {
	a := instr.Arg()
	v, _ := instr.Returns()
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpNeg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, Width: v.Type().Bits()})
}

func (lw *lowerer) lowerBnot(instr *ir.Instruction) {
	a := instr.Arg()
	v, _ := instr.Returns()
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpMvn, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, Width: v.Type().Bits()})
}

func (lw *lowerer) lowerShift(instr *ir.Instruction) {
	a, b := instr.Arg2()
	v, _ := instr.Returns()
	width := v.Type().Bits()

	var regOp, immOp vcode.Opcode
	switch instr.Opcode() {
	case ir.OpcodeIshl:
		regOp, immOp = vcode.OpLslReg, vcode.OpLslImm
	case ir.OpcodeUshr:
		regOp, immOp = vcode.OpLsrReg, vcode.OpLsrImm
	case ir.OpcodeSshr:
		regOp, immOp = vcode.OpAsrReg, vcode.OpAsrImm
	}
	dst := lw.defVReg(instr)
	if bits, ok := lw.asConstImm(b); ok && isShiftAmountInRange(bits&uint64(width-1)) {
		lw.emit(&vcode.Inst{Op: immOp, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, Imm: int64(bits) & int64(width-1), Width: width})
		return
	}
	lw.emit(&vcode.Inst{Op: regOp, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a), lw.vreg(b)}, Width: width})
}

func (lw *lowerer) lowerRotate(instr *ir.Instruction) {
	a, b := instr.Arg2()
	v, _ := instr.Returns()
	width := v.Type().Bits()
	av := lw.vreg(a)
	dst := lw.defVReg(instr)

	if instr.Opcode() == ir.OpcodeRotr {
		if bits, ok := lw.asConstImm(b); ok {
			lw.emit(&vcode.Inst{Op: vcode.OpRorImm, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{av}, Imm: int64(bits) & int64(width-1), Width: width})
			return
		}
		lw.emit(&vcode.Inst{Op: vcode.OpRorReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{av, lw.vreg(b)}, Width: width})
		return
	}
	// Rotl(x, k) == Ror(x, width-k).
	if bits, ok := lw.asConstImm(b); ok {
		amt := (uint64(width) - (bits & uint64(width-1))) & uint64(width-1)
		lw.emit(&vcode.Inst{Op: vcode.OpRorImm, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{av}, Imm: int64(amt), Width: width})
		return
	}
	bv := lw.vreg(b)
	widthConst := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emitMovImm(widthConst, uint64(width), width)
	amt := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpSubReg, Defs: []vcode.VReg{amt}, Uses: []vcode.VReg{widthConst, bv}, Width: width})
	lw.emit(&vcode.Inst{Op: vcode.OpRorReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{av, amt}, Width: width})
}

func (lw *lowerer) lowerClz(instr *ir.Instruction) {
	a := instr.Arg()
	v, _ := instr.Returns()
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpClz, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, Width: v.Type().Bits()})
}

// lowerCtz implements ctz(x) as clz(rbit(x)), the standard AArch64 idiom
// (there is no native CTZ instruction).
func (lw *lowerer) lowerCtz(instr *ir.Instruction) {
	a := instr.Arg()
	v, _ := instr.Returns()
	width := v.Type().Bits()
	av := lw.vreg(a)
	rev := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpRbit, Defs: []vcode.VReg{rev}, Uses: []vcode.VReg{av}, Width: width})
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpClz, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{rev}, Width: width})
}

// lowerPopcnt emits the vector popcount idiom (FMOV to vector lane, CNT,
// ADDV, FMOV back); the per-lane encoding detail is the emitter's concern,
// this op is the contract between the two passes.
func (lw *lowerer) lowerPopcnt(instr *ir.Instruction) {
	a := instr.Arg()
	v, _ := instr.Returns()
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpCnt, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, Width: v.Type().Bits()})
}

// lowerIcmpStandalone materializes an Icmp result as a plain 0/1 GPR via
// CMP+CSET, used when the comparison is not immediately consumed by a BrIf
// or Select (those fuse the CMP directly into the branch/csel instead, see
// control.go and mem.go's lowerSelect).
func (lw *lowerer) lowerIcmpStandalone(instr *ir.Instruction) {
	a, b := instr.Arg2()
	width := a.Type().Bits()
	cond := vcode.FromIntCmp(int(instr.IntCmpCond()), true)
	av := lw.vreg(a)
	if bits, ok := lw.asConstImm(b); ok && fitsAddImm12(int64(bits)) {
		lw.emit(&vcode.Inst{Op: vcode.OpCmpImm, Uses: []vcode.VReg{av}, Imm: int64(bits), Width: width})
	} else {
		lw.emit(&vcode.Inst{Op: vcode.OpCmpReg, Uses: []vcode.VReg{av, lw.vreg(b)}, Width: width})
	}
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpCset, Defs: []vcode.VReg{dst}, Cond: cond, Width: 32})
}
