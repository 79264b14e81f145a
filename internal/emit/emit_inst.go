package emit

import (
	"math"

	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

// emitInst dispatches one VCode instruction to its AArch64 encoding. Every
// case calls e.put the same number of times regardless of e.measuring, so
// the measuring pass and the real pass always agree on word counts.
func (e *emitter) emitInst(in *vcode.Inst) {
	w64 := w64Bit(in.Width)
	switch in.Op {
	case vcode.OpAddReg:
		e.put(encodeAddSubShiftedReg(0, 0, 0, e.gp(in.Uses[1]), 0, e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpSubReg:
		e.put(encodeAddSubShiftedReg(1, 0, 0, e.gp(in.Uses[1]), 0, e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpAddShifted:
		e.put(encodeAddSubShiftedReg(0, 0, shiftKindBits(in.Shift.Kind), e.gp(in.Uses[1]), uint32(in.Shift.Amount), e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpSubShifted:
		e.put(encodeAddSubShiftedReg(1, 0, shiftKindBits(in.Shift.Kind), e.gp(in.Uses[1]), uint32(in.Shift.Amount), e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpAddImm:
		e.emitAddSubImmOrMaterialize(0, in, w64)
	case vcode.OpSubImm:
		e.emitAddSubImmOrMaterialize(1, in, w64)

	case vcode.OpMadd:
		e.put(encodeAluRRRR(0, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), e.gp(in.Uses[2]), w64))
	case vcode.OpMsub:
		e.put(encodeAluRRRR(1, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), e.gp(in.Uses[2]), w64))
	case vcode.OpMneg:
		e.put(encodeAluRRRR(1, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), u32(vcode.RegZeroOrSP), w64))
	case vcode.OpMul:
		e.put(encodeAluRRRR(0, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), u32(vcode.RegZeroOrSP), w64))
	case vcode.OpMSubRem:
		e.put(encodeAluRRRR(1, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), e.gp(in.Uses[2]), w64))
	case vcode.OpSDiv:
		e.put(encodeAluRRR2Src(0b000011, e.gp(in.Uses[1]), e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpUDiv:
		e.put(encodeAluRRR2Src(0b000010, e.gp(in.Uses[1]), e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))

	case vcode.OpAndReg:
		e.put(encodeLogicalShiftedReg(0b00, 0, e.gp(in.Uses[1]), 0, e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpOrrReg:
		e.put(encodeLogicalShiftedReg(0b01, 0, e.gp(in.Uses[1]), 0, e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpEorReg:
		e.put(encodeLogicalShiftedReg(0b10, 0, e.gp(in.Uses[1]), 0, e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpMvn:
		e.put(encodeLogicalShiftedReg(0b01, 1, e.gp(in.Uses[0]), 0, u32(vcode.RegZeroOrSP), e.gp(in.Defs[0]), w64))
	case vcode.OpAndImm:
		e.emitLogicalImm(0b00, in, w64)
	case vcode.OpOrrImm:
		e.emitLogicalImm(0b01, in, w64)
	case vcode.OpEorImm:
		e.emitLogicalImm(0b10, in, w64)

	case vcode.OpLslReg:
		e.put(encodeAluRRR2Src(0b001000, e.gp(in.Uses[1]), e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpLsrReg:
		e.put(encodeAluRRR2Src(0b001001, e.gp(in.Uses[1]), e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpAsrReg:
		e.put(encodeAluRRR2Src(0b001010, e.gp(in.Uses[1]), e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpRorReg:
		e.put(encodeAluRRR2Src(0b001011, e.gp(in.Uses[1]), e.gp(in.Uses[0]), e.gp(in.Defs[0]), w64))
	case vcode.OpLslImm, vcode.OpLsrImm, vcode.OpAsrImm, vcode.OpRorImm:
		e.emitShiftImm(in, w64)

	case vcode.OpClz:
		e.put(encodeBitRR(0b000100, e.gp(in.Defs[0]), e.gp(in.Uses[0]), w64))
	case vcode.OpRbit:
		e.put(encodeBitRR(0b000000, e.gp(in.Defs[0]), e.gp(in.Uses[0]), w64))
	case vcode.OpCnt:
		// Vector popcount idiom: FMOV the value into D-lane 0, CNT 8B, then
		// ADDV back to a scalar byte count in the same D register; the
		// lowerer's companion OpFmovFromInt/OpFmovToInt pair moves it in
		// and out of the GPR file, so this op only performs the CNT step
		// (already GPR<->vector-moved elsewhere) - encoded directly as CNT
		// Vd.8B, Vn.8B followed by ADDV Bd, Vn.8B, matching Advanced SIMD
		// across lanes encodings.
		e.put(0x0e205800 | (e.gp(in.Uses[0]) << 5) | e.gp(in.Defs[0])) // CNT Vd.8B,Vn.8B
		e.put(0x0e31b800 | (e.gp(in.Defs[0]) << 5) | e.gp(in.Defs[0])) // ADDV Bd,Vn.8B
	case vcode.OpNeg:
		e.put(encodeAddSubShiftedReg(1, 0, 0, e.gp(in.Uses[0]), 0, u32(vcode.RegZeroOrSP), e.gp(in.Defs[0]), w64))

	case vcode.OpMovReg:
		if in.IsFloat {
			if in.Double {
				e.put(encodeFpuRR(0b000000, e.gp(in.Defs[0]), e.gp(in.Uses[0]), true)) // FMOV Dd,Dn
			} else {
				e.put(encodeFpuRR(0b000000, e.gp(in.Defs[0]), e.gp(in.Uses[0]), false))
			}
		} else {
			e.put(encodeLogicalShiftedReg(0b01, 0, e.gp(in.Uses[0]), 0, u32(vcode.RegZeroOrSP), e.gp(in.Defs[0]), w64))
		}
	case vcode.OpMovZ:
		e.put(encodeMoveWide(0b10, e.gp(in.Defs[0]), uint32(in.Imm)&0xffff, uint32(in.Imm2), w64))
	case vcode.OpMovK:
		e.put(encodeMoveWide(0b11, e.gp(in.Defs[0]), uint32(in.Imm)&0xffff, uint32(in.Imm2), w64))
	case vcode.OpMovN:
		e.put(encodeMoveWide(0b00, e.gp(in.Defs[0]), uint32(in.Imm)&0xffff, uint32(in.Imm2), w64))
	case vcode.OpLoadConst:
		e.emitLoadConst(in)

	case vcode.OpFmovToInt:
		e.put(encodeFmovFPToGPR(e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double))
	case vcode.OpFmovFromInt:
		e.put(encodeFmovGPRToFP(e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double))
	case vcode.OpFaddReg:
		e.put(encodeFpuRRR(0b0010, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), in.Double))
	case vcode.OpFsubReg:
		e.put(encodeFpuRRR(0b0011, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), in.Double))
	case vcode.OpFmulReg:
		e.put(encodeFpuRRR(0b0000, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), in.Double))
	case vcode.OpFdivReg:
		e.put(encodeFpuRRR(0b0001, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), in.Double))
	case vcode.OpFminReg:
		e.put(encodeFpuRRR(0b0101, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), in.Double))
	case vcode.OpFmaxReg:
		e.put(encodeFpuRRR(0b0100, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), in.Double))
	case vcode.OpFnegReg:
		e.put(encodeFpuRR(0b000010, e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double))
	case vcode.OpFabsReg:
		e.put(encodeFpuRR(0b000001, e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double))
	case vcode.OpFsqrt:
		e.put(encodeFpuRR(0b000011, e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double))
	case vcode.OpFrintp:
		e.put(encodeFpuRR(0b001001, e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double))
	case vcode.OpFrintm:
		e.put(encodeFpuRR(0b001010, e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double))
	case vcode.OpFrintz:
		e.put(encodeFpuRR(0b001011, e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double))
	case vcode.OpFrintn:
		e.put(encodeFpuRR(0b001000|0b000, e.gp(in.Defs[0]), e.gp(in.Uses[0]), in.Double)) // frintn shares the round-to-mode family; 001000 selects "N" per opcode<5:3>=001
	case vcode.OpFcvtToSintReg:
		e.put(encodeCnvtFloatInt(true, true, in.Double, in.Width == 64, e.gp(in.Defs[0]), e.gp(in.Uses[0])))
	case vcode.OpFcvtToUintReg:
		e.put(encodeCnvtFloatInt(true, false, in.Double, in.Width == 64, e.gp(in.Defs[0]), e.gp(in.Uses[0])))
	case vcode.OpFcvtFromSintReg:
		e.put(encodeCnvtFloatInt(false, true, in.Width == 64, in.Double, e.gp(in.Defs[0]), e.gp(in.Uses[0])))
	case vcode.OpFcvtFromUintReg:
		e.put(encodeCnvtFloatInt(false, false, in.Width == 64, in.Double, e.gp(in.Defs[0]), e.gp(in.Uses[0])))
	case vcode.OpFcvtNarrow:
		e.put(encodeFcvtNarrowWiden(e.gp(in.Defs[0]), e.gp(in.Uses[0]), true))
	case vcode.OpFcvtWiden:
		e.put(encodeFcvtNarrowWiden(e.gp(in.Defs[0]), e.gp(in.Uses[0]), false))

	case vcode.OpCmpReg:
		if in.IsFloat {
			e.put(encodeFpuCmp(e.gp(in.Uses[0]), e.gp(in.Uses[1]), in.Double))
		} else {
			e.put(encodeSubsShifted(e.gp(in.Uses[0]), e.gp(in.Uses[1]), w64))
		}
	case vcode.OpCmpImm:
		e.emitCmpImmOrMaterialize(in, w64)
	case vcode.OpCset:
		e.put(encodeCondSelect(0, 1, e.gp(in.Defs[0]), u32(vcode.RegZeroOrSP), u32(vcode.RegZeroOrSP), e.cnd(in.Cond.Invert()), w64))
	case vcode.OpCsel:
		e.put(encodeCondSelect(0, 0, e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), e.cnd(in.Cond), w64))
	case vcode.OpFcselCmp:
		e.put(encodeFpuCSel(e.gp(in.Defs[0]), e.gp(in.Uses[0]), e.gp(in.Uses[1]), e.cnd(in.Cond), in.Double))

	case vcode.OpLdrImm, vcode.OpLdrAmode:
		e.emitLoadStore(in, true)
	case vcode.OpStrImm, vcode.OpStrAmode:
		e.emitLoadStore(in, false)
	case vcode.OpBoundsCheck:
		e.emitBoundsCheck(in)
	case vcode.OpDivZeroCheck:
		e.emitDivZeroCheck(in)
	case vcode.OpDivOverflowCheck:
		e.emitDivOverflowCheck(in)
	case vcode.OpFcvtRangeCheck:
		e.emitFcvtRangeCheck(in)

	case vcode.OpSpillLoad:
		e.emitSpillAccess(in, true)
	case vcode.OpSpillStore:
		e.emitSpillAccess(in, false)

	case vcode.OpCall:
		e.emitCall(in, true)
	case vcode.OpCallIndirect:
		e.emitCallIndirect(in, true)
	case vcode.OpReturnCall:
		e.epilogue()
		e.recordReloc(false, in.CallTarget)
		e.put(0) // patched branch, placeholder during measuring
	case vcode.OpReturnCallIndirect:
		e.epilogue()
		e.put(encodeBranchReg(branchRegOpcBR, e.gp(in.Uses[0])))
	case vcode.OpMemGrow:
		e.emitCall(in, false)

	case vcode.OpBrk:
		e.put(encodeBrk(uint32(in.Imm)))
	case vcode.OpNop:
		e.put(encodeNop())
	case vcode.OpExtraResBufAddr:
		sh, imm12 := splitImm12(uint32(e.extraResFrameOffset()))
		e.put(encodeAddSubImm(0, 0, sh, imm12, u32(vcode.RegZeroOrSP), e.gp(in.Defs[0]), 1)) // ADD dst, sp, #off

	default:
		panic("emit: unhandled vcode opcode")
	}
}

// subSPToReg computes dst = sp - off via SUB (immediate); off must fit a
// 12-bit (optionally shifted) immediate, true for every realistic frame
// size this JIT produces.
func subSPToReg(dst uint32, off int) uint32 {
	sh, imm12 := splitImm12(uint32(off))
	return encodeAddSubImm(1, 0, sh, imm12, u32(vcode.RegZeroOrSP), dst, 1)
}

func splitImm12(v uint32) (sh, imm12 uint32) {
	if v <= 0xfff {
		return 0, v
	}
	return 1, v >> 12
}

func shiftKindBits(k vcode.ShiftKind) uint32 {
	switch k {
	case vcode.ShiftLSR:
		return 0b01
	case vcode.ShiftASR:
		return 0b10
	default:
		return 0b00
	}
}

func (e *emitter) emitShiftImm(in *vcode.Inst, w64 uint32) {
	width := uint32(in.Width)
	amt := uint32(in.Imm) & (width - 1)
	rn, rd := e.gp(in.Uses[0]), e.gp(in.Defs[0])
	switch in.Op {
	case vcode.OpLslImm:
		// LSL #n == UBFM with immr=(-n mod width), imms=width-1-n; encoded
		// here directly via the logical-immediate bitfield instruction
		// family's UBFM opcode (same instruction class as AND/ORR-imm but
		// with opc=10).
		immr := (width - amt) % width
		imms := width - 1 - amt
		e.put(encodeBitfield(0b10, nBit(width), immr, imms, rn, rd, w64))
	case vcode.OpLsrImm:
		e.put(encodeBitfield(0b10, nBit(width), amt, width-1, rn, rd, w64))
	case vcode.OpAsrImm:
		e.put(encodeBitfield(0b00, nBit(width), amt, width-1, rn, rd, w64))
	case vcode.OpRorImm:
		e.put(encodeExtractRor(rn, rd, amt, w64))
	}
}

func nBit(width uint32) uint32 {
	if width == 64 {
		return 1
	}
	return 0
}

func (e *emitter) emitAddSubImmOrMaterialize(op uint32, in *vcode.Inst, w64 uint32) {
	rn, rd := e.gp(in.Uses[0]), e.gp(in.Defs[0])
	if sh, imm12, ok := tryImm12(in.Imm); ok {
		e.put(encodeAddSubImm(op, 0, sh, imm12, rn, rd, w64))
		return
	}
	e.materializeImm(vcode.RegScratch0, uint64(in.Imm), in.Width)
	e.put(encodeAddSubShiftedReg(op, 0, 0, u32(vcode.RegScratch0), 0, rn, rd, w64))
}

func (e *emitter) emitCmpImmOrMaterialize(in *vcode.Inst, w64 uint32) {
	rn := e.gp(in.Uses[0])
	if sh, imm12, ok := tryImm12(in.Imm); ok {
		e.put(encodeSubsImm(rn, imm12, sh, w64))
		return
	}
	e.materializeImm(vcode.RegScratch0, uint64(in.Imm), in.Width)
	e.put(encodeSubsShifted(rn, u32(vcode.RegScratch0), w64))
}

func tryImm12(v int64) (sh, imm12 uint32, ok bool) {
	if v < 0 {
		return 0, 0, false
	}
	if v <= 0xfff {
		return 0, uint32(v), true
	}
	if v&0xfff == 0 && v>>12 <= 0xfff {
		return 1, uint32(v >> 12), true
	}
	return 0, 0, false
}

func (e *emitter) emitLogicalImm(opc uint32, in *vcode.Inst, w64 uint32) {
	rn, rd := e.gp(in.Uses[0]), e.gp(in.Defs[0])
	n, immr, imms, ok := EncodeLogicalImmediate(uint64(in.Imm), in.Width)
	if !ok {
		e.materializeImm(vcode.RegScratch0, uint64(in.Imm), in.Width)
		e.put(encodeLogicalShiftedReg(opc, 0, u32(vcode.RegScratch0), 0, rn, rd, w64))
		return
	}
	e.put(encodeLogicalImm(opc, n, immr, imms, rn, rd, w64))
}

// materializeImm loads a constant into a GPR via MOVZ plus up to three
// MOVK instructions, mirroring internal/lower's own constant sequence
// (spec §4.3); used here for the rare immediate operand too wide for a
// fused ADD/SUB/CMP/AND/ORR/EOR-immediate encoding.
func (e *emitter) materializeImm(dst vcode.RealReg, v uint64, width byte) {
	rd := u32(dst)
	w64 := w64Bit(width)
	chunks := 4
	if width == 32 {
		chunks = 2
	}
	first := true
	for i := 0; i < chunks; i++ {
		chunk := uint32(v>>(uint(i)*16)) & 0xffff
		if chunk == 0 && !first && i != chunks-1 {
			continue
		}
		if first {
			e.put(encodeMoveWide(0b10, rd, chunk, uint32(i), w64))
			first = false
		} else {
			e.put(encodeMoveWide(0b11, rd, chunk, uint32(i), w64))
		}
	}
	if first {
		e.put(encodeMoveWide(0b10, rd, 0, 0, w64))
	}
}

func loadOpcSize(width byte, signed bool) (size, opc uint32) {
	switch width {
	case 8:
		size = 0
	case 16:
		size = 1
	case 32:
		size = 2
	default:
		size = 3
	}
	if width == 64 {
		return size, 0b01
	}
	if signed {
		return size, 0b10
	}
	return size, 0b01
}

func (e *emitter) emitLoadStore(in *vcode.Inst, load bool) {
	var v, size, opc uint32
	if in.IsFloat {
		v = 1
		if in.Double {
			size = 3
		} else {
			size = 2
		}
		if load {
			opc = 0b01
		}
	} else if load {
		size, opc = loadOpcSize(in.Width, in.Signed)
	} else {
		switch in.Width {
		case 8:
			size = 0
		case 16:
			size = 1
		case 32:
			size = 2
		default:
			size = 3
		}
	}

	rt := e.gp(regOf(in, load))
	base := e.gp(in.Mode.Base)
	if in.Mode.IndexSet {
		e.put(encodeLoadStoreReg(size, v, opc, e.gp(in.Mode.Index), base, rt))
		return
	}
	scale := int64(1) << size
	off := in.Mode.ImmOffset
	if off >= 0 && off%scale == 0 && off/scale <= 0xfff {
		e.put(encodeLoadStoreImm(size, v, opc, uint32(off/scale), base, rt))
		return
	}
	e.materializeImm(vcode.RegScratch0, uint64(off), 64)
	e.put(encodeLoadStoreReg(size, v, opc, u32(vcode.RegScratch0), base, rt))
}

func regOf(in *vcode.Inst, load bool) vcode.VReg {
	if load {
		return in.Defs[0]
	}
	return in.Uses[0]
}

// emitBoundsCheck encodes idx+width <= mem_size as ADD tmp,idx,#extent;
// CMP tmp,memSize; B.LS +1; BRK #trap-oob (spec §4.6's bounds-check trap).
const trapCodeOOB = 1
const trapCodeDivZero = 2
const trapCodeDivOverflow = 3
const trapCodeInvalidConversion = 4
const trapCodeIndirectNull = 5
const trapCodeIndirectSig = 6

func (e *emitter) emitBoundsCheck(in *vcode.Inst) {
	idx, size := e.gp(in.Uses[0]), e.gp(in.Uses[1])
	tmp := u32(vcode.RegScratch0)
	if sh, imm12, ok := tryImm12(in.Imm); ok {
		e.put(encodeAddSubImm(0, 0, sh, imm12, idx, tmp, 1))
	} else {
		e.materializeImm(vcode.RegScratch1, uint64(in.Imm), 64)
		e.put(encodeAddSubShiftedReg(0, 0, 0, u32(vcode.RegScratch1), 0, idx, tmp, 1))
	}
	e.put(encodeSubsShifted(tmp, size, 1))
	e.put(encodeBCond(uint32(vcode.CondLS), 2))
	e.put(encodeBrk(trapCodeOOB))
}

func (e *emitter) emitDivZeroCheck(in *vcode.Inst) {
	w64 := w64Bit(in.Width)
	e.put(encodeSubsImm(e.gp(in.Uses[0]), 0, 0, w64))
	e.put(encodeBCond(uint32(vcode.CondNE), 2))
	e.put(encodeBrk(trapCodeDivZero))
}

// emitDivOverflowCheck traps INT_MIN / -1: compare the divisor to -1 and
// the dividend to the type's minimum, trapping only when both hold.
func (e *emitter) emitDivOverflowCheck(in *vcode.Inst) {
	w64 := w64Bit(in.Width)
	a, b := e.gp(in.Uses[0]), e.gp(in.Uses[1])
	e.put(encodeAddSubImm(0, 1, 0, 1, b, u32(vcode.RegZeroOrSP), w64)) // CMN b, #1: Z set iff b == -1
	e.put(encodeBCond(uint32(vcode.CondNE), 4))
	minVal := uint64(1) << 31
	if in.Width == 64 {
		minVal = uint64(1) << 63
	}
	e.materializeImm(vcode.RegScratch1, minVal, in.Width)
	e.put(encodeSubsShifted(a, u32(vcode.RegScratch1), w64))
	e.put(encodeBCond(uint32(vcode.CondNE), 2))
	e.put(encodeBrk(trapCodeDivOverflow))
}

// emitFcvtRangeCheck guards a trapping float->int conversion (spec §4.6's
// invalid_conversion trap, distinct from int divide overflow): a NaN
// source traps unconditionally, then the source must lie strictly inside
// (min-1, max) for signed targets or (-1, 2^width) for unsigned ones,
// matching the Wasm trunc_s/trunc_u validity range. Where min-1 is not
// representable in the source precision (f32 sources, and i64 targets) it
// rounds to min itself, so the signed lower bound is checked inclusively
// as [min, max) instead. FCVTZS/FCVTZU already
// saturate on overflow and map NaN to 0, so these checks run purely for
// their trap side effect ahead of the saturating conversion the lowerer
// also emits.
func (e *emitter) emitFcvtRangeCheck(in *vcode.Inst) {
	src := e.gp(in.Uses[0])
	lower, upper := fcvtBoundBits(in.Double, int(in.Width), in.Signed)

	// NaN check: FCMP src,src sets the unordered (V) flag iff src is NaN.
	e.put(encodeFpuCmp(src, src, in.Double))
	e.put(encodeBCond(uint32(vcode.CondVC), 2))
	e.put(encodeBrk(trapCodeInvalidConversion))

	e.materializeImm(vcode.RegScratch0, lower, fpImmWidth(in.Double))
	e.put(encodeFmovGPRToFP(u32(vcode.FloatScratch), u32(vcode.RegScratch0), in.Double))
	e.put(encodeFpuCmp(src, u32(vcode.FloatScratch), in.Double))
	lowerCond := vcode.CondGT
	if in.Signed && (!in.Double || in.Width == 64) {
		lowerCond = vcode.CondGE
	}
	e.put(encodeBCond(uint32(lowerCond), 2))
	e.put(encodeBrk(trapCodeInvalidConversion))

	e.materializeImm(vcode.RegScratch0, upper, fpImmWidth(in.Double))
	e.put(encodeFmovGPRToFP(u32(vcode.FloatScratch), u32(vcode.RegScratch0), in.Double))
	e.put(encodeFpuCmp(src, u32(vcode.FloatScratch), in.Double))
	e.put(encodeBCond(uint32(vcode.CondLT), 2))
	e.put(encodeBrk(trapCodeInvalidConversion))
}

func fpImmWidth(double bool) byte {
	if double {
		return 64
	}
	return 32
}

// fcvtBoundBits returns the bit patterns (in the source's own precision)
// of the exclusive lower and upper bounds a trapping conversion's source
// must lie strictly between.
func fcvtBoundBits(double bool, width int, signed bool) (lower, upper uint64) {
	var lo, hi float64
	if signed {
		lo = -math.Ldexp(1, width-1) - 1
		hi = math.Ldexp(1, width-1)
	} else {
		lo = -1
		hi = math.Ldexp(1, width)
	}
	if double {
		return math.Float64bits(lo), math.Float64bits(hi)
	}
	return uint64(math.Float32bits(float32(lo))), uint64(math.Float32bits(float32(hi)))
}

func (e *emitter) emitSpillAccess(in *vcode.Inst, load bool) {
	vr := regOf(in, load)
	var v uint32
	if vr.Class == vcode.RegClassFloat {
		v = 1
	}
	off := e.spillSlotOffset(in.SpillSlot)
	size := uint32(3)
	opc := uint32(0)
	if load {
		opc = 1
	}
	rt := e.gp(vr)
	if off >= 0 && off/8 <= 0xfff {
		e.put(encodeLoadStoreImm(size, v, opc, uint32(off/8), u32(vcode.RegZeroOrSP), rt))
		return
	}
	e.materializeImm(vcode.RegScratch0, uint64(off), 64)
	e.put(encodeLoadStoreReg(size, v, opc, u32(vcode.RegScratch0), u32(vcode.RegZeroOrSP), rt))
}

// spillSlotOffset places spill slots at the bottom of the reserved
// spill+extra-results frame region, immediately above SP.
func (e *emitter) spillSlotOffset(slot int) int { return slot * 8 }

func (e *emitter) recordReloc(link bool, target uint32) {
	if e.measuring {
		return
	}
	e.relocs = append(e.relocs, Reloc{Offset: uint32(e.here()) * wordBytes, FuncIndex: target, Link: link})
}

func (e *emitter) emitCall(in *vcode.Inst, direct bool) {
	if direct {
		e.recordReloc(true, in.CallTarget)
		e.put(0) // BL placeholder; patched by the module linker once every function's offset is known
		return
	}
	// Host calls (memory.grow) go through a fixed trampoline slot in
	// JITContext rather than a module-relative target; the lowerer passes
	// the context pointer as a Use, the trampoline address is the second
	// word of func_table reserved for host intrinsics (see
	// internal/runtime's JITContext).
	e.put(encodeLoadStoreImm(3, 0, 0b01, 0, e.gp(in.Uses[1]), u32(vcode.RegScratch1)))
	e.put(encodeBranchReg(branchRegOpcBLR, u32(vcode.RegScratch1)))
}

func (e *emitter) emitCallIndirect(in *vcode.Inst, link bool) {
	// Fetch the (fnptr, sigtag) pair from the indirect table at idx*16,
	// trap on a signature mismatch or null slot, then BLR the function
	// pointer (spec §4.6's indirect-call traps). scratch0 holds the entry
	// base address throughout; scratch1 picks up the fnptr once (line
	// below) and is reused directly for the branch — the sigtag check
	// that follows must not disturb scratch1.
	idx, table := e.gp(in.Uses[0]), e.gp(in.Uses[1])
	e.put(encodeAddSubShiftedReg(0, 0, 0b00, idx, 4, table, u32(vcode.RegScratch0), 1)) // ADD scratch0, table, idx, LSL #4 (16B entries)
	e.put(encodeLoadStoreImm(3, 0, 0b01, 0, u32(vcode.RegScratch0), u32(vcode.RegScratch1))) // LDR scratch1, [scratch0] (fnptr)
	e.put(encodeSubsImm(u32(vcode.RegScratch1), 0, 0, 1))
	e.put(encodeBCond(uint32(vcode.CondNE), 2))
	e.put(encodeBrk(trapCodeIndirectNull))
	e.put(encodeLoadStoreImm(2, 0, 0b01, 2, u32(vcode.RegScratch0), u32(vcode.RegScratch0))) // LDR(w) scratch0, [scratch0+8] (sigtag; base no longer needed)
	e.put(encodeSubsImm(u32(vcode.RegScratch0), in.CallSig&0xfff, 0, 0))
	e.put(encodeBCond(uint32(vcode.CondEQ), 2))
	e.put(encodeBrk(trapCodeIndirectSig))
	if link {
		e.put(encodeBranchReg(branchRegOpcBLR, u32(vcode.RegScratch1)))
	} else {
		e.put(encodeBranchReg(branchRegOpcBR, u32(vcode.RegScratch1)))
	}
}

// emitLoadConst encodes LDR (literal), PC-relative to this function's
// constant pool (appended immediately after the code, spec §4.5). The
// measuring pass already knows the whole body's word count
// (e.bodyWords), so the pool's word offset is fixed before the real pass
// begins and every literal load resolves in a single pass.
func (e *emitter) emitLoadConst(in *vcode.Inst) {
	if e.measuring {
		e.put(0)
		return
	}
	entryWordOff := e.constPoolWords + e.constEntryWordOffset(int(in.Imm))
	imm19 := uint32(int32(entryWordOff-e.here())) & 0x7ffff
	v := uint32(1)
	opc := uint32(0)
	if in.Double {
		opc = 1
	}
	e.put(encodeLoadLiteral(v, opc, imm19, e.gp(in.Defs[0])))
}

// constEntryWordOffset returns the word offset of const-pool entry idx
// from the start of the pool: every entry is 8 bytes (one f32/f64 or
// folded-i64 literal), so entries are simply packed back to back.
func (e *emitter) constEntryWordOffset(idx int) int { return idx * 2 }
