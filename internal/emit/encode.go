// Package emit implements the AArch64 machine-code emitter (spec §4.5):
// VCode instructions become 4-byte-aligned native instructions, branch
// targets are resolved by a two-pass layout, and a per-function constant
// pool is appended for literals too wide to materialize cheaply.
//
// Bit-level instruction formulas are grounded directly on the ARM
// Architecture Reference Manual encodings (the same ones the teacher's
// own AArch64 backend hand-encodes in backend/isa/arm64/instr_encoding.go);
// RealReg numbers already match the AArch64 register numbering (X19 is
// RealReg(19), etc.) so no remapping table is needed here.
package emit

import "github.com/cwasmjit/cwasmjit/internal/vcode"

func u32(r vcode.RealReg) uint32 { return uint32(r) }

func w64Bit(width byte) uint32 {
	if width == 64 {
		return 1
	}
	return 0
}

// encodeAddSubImm encodes Add/subtract (immediate): ARM ARM
// §C4.1.2 "Data Processing -- Immediate" / add/sub-imm12 forms.
// op: 0=ADD, 1=SUB. sh: 1 means imm12 is LSL#12.
func encodeAddSubImm(op, s uint32, sh uint32, imm12 uint32, rn, rd uint32, w64 uint32) uint32 {
	ret := (op << 30) | (s << 29) | (0b100010 << 23) | (sh << 22) | ((imm12 & 0xfff) << 10) | (rn << 5) | rd
	ret |= w64 << 31
	return ret
}

// encodeAddSubShiftedReg encodes Add/subtract (shifted register).
// shiftKind: 0=LSL,1=LSR,2=ASR.
func encodeAddSubShiftedReg(op, s uint32, shiftKind uint32, rm, amount, rn, rd uint32, w64 uint32) uint32 {
	ret := (op << 30) | (s << 29) | (0b01011 << 24) | (shiftKind << 22) | (rm << 16) | ((amount & 0x3f) << 10) | (rn << 5) | rd
	ret |= w64 << 31
	return ret
}

// encodeLogicalShiftedReg encodes Logical (shifted register): AND/ORR/EOR
// reg-reg, shift amount 0 for the register-only fusion forms this emitter
// selects (the lowerer also uses this opcode space for MVN via ORN and for
// plain MOV via ORR-with-XZR).
func encodeLogicalShiftedReg(opc uint32, n uint32, rm, shift, rn, rd uint32, w64 uint32) uint32 {
	ret := (opc << 29) | (0b01010 << 24) | (n << 21) | (rm << 16) | ((shift & 0x3f) << 10) | (rn << 5) | rd
	ret |= w64 << 31
	return ret
}

// encodeLogicalImm encodes Logical (immediate): AND/ORR/EOR with a
// bitmask-immediate operand (see logicalimm.go).
func encodeLogicalImm(opc uint32, n, immr, imms, rn, rd uint32, w64 uint32) uint32 {
	ret := (opc << 29) | (0b100100 << 23) | (n << 22) | (immr << 16) | (imms << 10) | (rn << 5) | rd
	ret |= w64 << 31
	return ret
}

// encodeAluRRR2Src encodes Data-processing (2 source): MUL-family
// (implemented as MADD with a zero accumulator uses RRRR below), SDIV,
// UDIV, LSLV/LSRV/ASRV/RORV.
func encodeAluRRR2Src(opcode6 uint32, rm, rn, rd uint32, w64 uint32) uint32 {
	ret := (0b11010110 << 21) | (rm << 16) | (opcode6 << 10) | (rn << 5) | rd
	ret |= w64 << 31
	return ret
}

// encodeAluRRRR encodes Data-processing (3 source): MADD/MSUB.
func encodeAluRRRR(sub uint32, rd, rn, rm, ra uint32, w64 uint32) uint32 {
	ret := (0b11011 << 24) | (rm << 16) | (sub << 15) | (ra << 10) | (rn << 5) | rd
	ret |= w64 << 31
	return ret
}

// encodeBitRR encodes Data-processing (1 source): CLZ, RBIT.
func encodeBitRR(opcode uint32, rd, rn uint32, w64 uint32) uint32 {
	ret := (0b1_0_11010110 << 21) | (opcode << 10) | (rn << 5) | rd
	ret |= w64 << 31
	return ret
}

// encodeMoveWide encodes MOVZ/MOVK/MOVN. opc: 0=MOVN, 2=MOVZ, 3=MOVK.
// hw is the shift amount/16 (0..3 for 64-bit, 0..1 for 32-bit).
func encodeMoveWide(opc, rd, imm16, hw uint32, w64 uint32) uint32 {
	ret := rd | (imm16 << 5) | (hw << 21) | (0b100101 << 23) | (opc << 29)
	ret |= w64 << 31
	return ret
}

// encodeCondSelect encodes CSEL/CSINC/CSINV/CSNEG (Conditional select).
// op2: 0b00=CSEL, 0b01=CSINC.
func encodeCondSelect(op, op2, rd, rn, rm uint32, cond uint32, w64 uint32) uint32 {
	ret := (0b11010100 << 21) | (rm << 16) | (cond << 12) | (op2 << 10) | (rn << 5) | rd
	ret |= op << 30
	ret |= w64 << 31
	return ret
}

// encodeSubsShifted is the register-register CMP alias of SUBS.
func encodeSubsShifted(rn, rm uint32, w64 uint32) uint32 {
	return encodeAddSubShiftedReg(1, 1, 0, rm, 0, rn, 31 /*xzr*/, w64)
}

// encodeSubsImm is the immediate CMP alias of SUBS.
func encodeSubsImm(rn uint32, imm12 uint32, sh uint32, w64 uint32) uint32 {
	return encodeAddSubImm(1, 1, sh, imm12, rn, 31, w64)
}

// encodeCBZCBNZ encodes CBZ/CBNZ. imm19 is a (target-pc)/4 signed offset.
func encodeCBZCBNZ(rt uint32, nz bool, imm19 uint32, w64 uint32) uint32 {
	ret := rt | (imm19 << 5) | (0b11010 << 25)
	if nz {
		ret |= 1 << 24
	}
	ret |= w64 << 31
	return ret
}

// encodeBCond encodes B.cond. imm19 is a (target-pc)/4 signed offset.
func encodeBCond(cond uint32, imm19 uint32) uint32 {
	return (0b01010100 << 24) | (imm19 << 5) | cond
}

// encodeUnconditionalBranch encodes B/BL. imm26 is a (target-pc)/4 signed
// offset.
func encodeUnconditionalBranch(link bool, imm26 uint32) uint32 {
	ret := imm26 & 0x3ffffff
	ret |= 0b101 << 26
	if link {
		ret |= 1 << 31
	}
	return ret
}

// encodeBranchReg encodes BR/BLR/RET (Unconditional branch (register)).
func encodeBranchReg(opc uint32, rn uint32) uint32 {
	return (0b1101011 << 25) | (opc << 21) | (0b11111 << 16) | (rn << 5)
}

const (
	branchRegOpcBR  = 0b00
	branchRegOpcBLR = 0b01
	branchRegOpcRET = 0b10
)

// encodeLoadStoreImm encodes the unsigned-immediate form of LDR/STR for
// GPRs and FP/SIMD registers. size: 0=byte,1=half,2=word,3=dword(also used
// as the 64-bit/128-bit selector for FP via opc/V). opc: 0b01=load,
// 0b00=store (GPR); for FP loads opc bit1 set too (handled by caller via
// v=1).
func encodeLoadStoreImm(size uint32, v uint32, opc uint32, imm12 uint32, rn, rt uint32) uint32 {
	ret := rt | (rn << 5) | (imm12 << 10) | (opc << 22) | (0b1 << 24) | (v << 26) | (0b111 << 27) | (size << 30)
	return ret
}

// encodeLoadStorePairImm64 encodes STP/LDP for 64-bit GPRs: signed-offset
// (no writeback) when neither preIndex nor postIndex is set, otherwise the
// pre/post-indexed form. imm7 is in units of 8 bytes.
func encodeLoadStorePairImm64(load bool, preIndex, postIndex bool, rn, rt, rt2 uint32, imm7 int32) uint32 {
	ret := rt | (rn << 5) | (rt2 << 10) | ((uint32(imm7) & 0x7f) << 15)
	if load {
		ret |= 1 << 22
	}
	ret |= uint32(0b101010010) << 23 // opc=10(64-bit),101,V=0,fixed0,indexmode=10(signed offset)
	if preIndex {
		ret |= 1 << 23 // indexmode 11
	} else if postIndex {
		ret &^= 1 << 24
		ret |= 1 << 23 // indexmode 01
	}
	return ret
}

// encodeLoadStoreImmPrePost encodes the pre/post-indexed immediate form of
// LDR/STR (a single GPR or FP/SIMD register), imm9 a signed 9-bit byte
// offset. size/v/opc match encodeLoadStoreImm's encoding.
func encodeLoadStoreImmPrePost(size, v, opc uint32, imm9 int32, pre bool, rn, rt uint32) uint32 {
	ret := rt | (rn << 5) | (0b01 << 10) | ((uint32(imm9) & 0x1ff) << 12) | (opc << 22) | (v << 26) | (0b111 << 27) | (size << 30)
	if pre {
		ret |= 0b11 << 10
	}
	return ret
}

// encodeBrk encodes BRK #imm16.
func encodeBrk(imm16 uint32) uint32 {
	return (0b11010100001 << 21) | ((imm16 & 0xffff) << 5)
}

// encodeRet encodes RET (LR implicit).
func encodeRet() uint32 { return encodeBranchReg(branchRegOpcRET, u32(vcode.RegLR)) }

func encodeNop() uint32 { return 0xd503201f }

// --- Floating point (scalar) ---

// encodeFpuRRR encodes Floating-point data-processing (2 source):
// FADD/FSUB/FMUL/FDIV/FMAX/FMIN.
func encodeFpuRRR(opcode4 uint32, rd, rn, rm uint32, double bool) uint32 {
	var ptype uint32
	if double {
		ptype = 0b01
	}
	return (0b1111 << 25) | (ptype << 22) | (0b1 << 21) | (rm << 16) | (opcode4 << 12) | (0b1 << 11) | (rn << 5) | rd
}

// encodeFpuRR encodes Floating-point data-processing (1 source):
// FNEG/FABS/FSQRT/FRINT*.
func encodeFpuRR(opcode6 uint32, rd, rn uint32, double bool) uint32 {
	var ptype uint32
	if double {
		ptype = 0b01
	}
	return (0b1111 << 25) | (ptype << 22) | (0b1 << 21) | (opcode6 << 15) | (0b1 << 14) | (rn << 5) | rd
}

// encodeFpuCmp encodes FCMP (scalar, quiet).
func encodeFpuCmp(rn, rm uint32, double bool) uint32 {
	var ptype uint32
	if double {
		ptype = 0b01
	}
	return (0b1111 << 25) | (ptype << 22) | (1 << 21) | (rm << 16) | (0b1 << 13) | (rn << 5)
}

// encodeFpuCSel encodes Floating-point conditional select.
func encodeFpuCSel(rd, rn, rm, cond uint32, double bool) uint32 {
	var ptype uint32
	if double {
		ptype = 0b01
	}
	return (0b1111 << 25) | (ptype << 22) | (0b1 << 21) | (rm << 16) | (cond << 12) | (0b11 << 10) | (rn << 5) | rd
}

// encodeFmovGPRToFP / encodeFmovFPToGPR encode the bit-exact move between
// an integer and a same-width FP register (Conversion between FP and
// integer, rmode=00 opcode=110/111).
func encodeFmovGPRToFP(rd, rn uint32, double bool) uint32 {
	var sf, ptype uint32
	if double {
		sf, ptype = 1, 0b01
	}
	return (sf << 31) | (0b1111 << 25) | (ptype << 22) | (0b1 << 21) | (0b00 << 19) | (0b111 << 16) | (rn << 5) | rd
}

func encodeFmovFPToGPR(rd, rn uint32, double bool) uint32 {
	var sf, ptype uint32
	if double {
		sf, ptype = 1, 0b01
	}
	return (sf << 31) | (0b1111 << 25) | (ptype << 22) | (0b1 << 21) | (0b00 << 19) | (0b110 << 16) | (rn << 5) | rd
}

// encodeCnvtFloatInt encodes Conversion between floating-point and integer:
// FCVTZS/FCVTZU (toInt, rmode=11) and SCVTF/UCVTF (fromInt, rmode=00).
func encodeCnvtFloatInt(toInt, signed bool, srcDouble, dstDouble bool, rd, rn uint32) uint32 {
	var sf, ptype, rmode, opcode uint32
	if toInt {
		rmode = 0b11
		if signed {
			opcode = 0b000
		} else {
			opcode = 0b001
		}
		if dstDouble { // destination GPR width
			sf = 1
		}
		if srcDouble {
			ptype = 0b01
		}
	} else {
		rmode = 0b00
		if signed {
			opcode = 0b010
		} else {
			opcode = 0b011
		}
		if srcDouble { // source GPR width
			sf = 1
		}
		if dstDouble {
			ptype = 0b01
		}
	}
	return (sf << 31) | (0b1111 << 25) | (ptype << 22) | (0b1 << 21) | (rmode << 19) | (opcode << 16) | (rn << 5) | rd
}

// encodeFcvtNarrowWiden encodes FCVT Sd,Dn / FCVT Dd,Sn (Floating-point
// data-processing (1 source), opcode family 0b0001xx).
func encodeFcvtNarrowWiden(rd, rn uint32, toSingle bool) uint32 {
	var ptype, opcode uint32
	if toSingle {
		ptype = 0b01
		opcode = 0b000100
	} else {
		ptype = 0b00
		opcode = 0b000101
	}
	return (0b1111 << 25) | (ptype << 22) | (0b1 << 21) | (opcode << 15) | (0b1 << 14) | (rn << 5) | rd
}

// encodeLoadLiteral encodes LDR (literal), GPR or FP/SIMD form. imm19 is a
// (target-pc)/4 signed offset.
func encodeLoadLiteral(v uint32, opc uint32, imm19 uint32, rt uint32) uint32 {
	return rt | (imm19 << 5) | (0b011 << 27) | (opc << 30) | (v << 26)
}

// encodeBitfield encodes the Bitfield family (SBFM/BFM/UBFM) used here to
// synthesize LSL/LSR/ASR-by-immediate: opc selects SBFM(00)/UBFM(10).
func encodeBitfield(opc, n, immr, imms, rn, rd, w64 uint32) uint32 {
	ret := rd | (rn << 5) | (imms << 10) | (immr << 16) | (n << 22) | (0b100110 << 23) | (opc << 29)
	ret |= w64 << 31
	return ret
}

// encodeExtractRor encodes EXTR (used as ROR-by-immediate with Rn==Rm).
func encodeExtractRor(rn, rd, lsb, w64 uint32) uint32 {
	ret := rd | (rn << 5) | (lsb << 10) | (rn << 16) | (0b100111 << 23)
	if w64 == 1 {
		ret |= 1 << 22
	}
	ret |= w64 << 31
	return ret
}

// encodeLoadStoreReg encodes the register-offset form of LDR/STR: base
// register plus an unscaled, unextended 64-bit index register, the
// addressing mode internal/lower's effectiveAddr produces for a
// zero-offset memory access.
func encodeLoadStoreReg(size, v, opc, rm, rn, rt uint32) uint32 {
	return rt | (rn << 5) | (0b10 << 10) | (0b011 << 13) | (1 << 21) | (rm << 16) | (opc << 22) | (v << 26) | (0b111 << 27) | (size << 30)
}
