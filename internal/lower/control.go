package lower

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

func (lw *lowerer) lowerTerminator(blk *ir.BasicBlock) {
	switch blk.Terminator() {
	case ir.TermJump:
		lw.lowerJump(blk)
	case ir.TermBrIf:
		lw.lowerBrIf(blk)
	case ir.TermBrTable:
		lw.lowerBrTable(blk)
	case ir.TermReturn:
		lw.lowerReturn(blk)
	case ir.TermUnreachable:
		if lw.tailCallEmitted {
			return // the return_call instruction already set the terminator
		}
		lw.emit(&vcode.Inst{Op: vcode.OpBrk, Imm: trapCodeUnreachable})
		lw.cur.Term = vcode.Terminator{Kind: vcode.TermReturn}
	default:
		panic("lower: block has no terminator")
	}
}

// trapCodeUnreachable is the BRK immediate identifying an explicit
// unreachable instruction in the trap signal handler's decode table (spec
// §4.6); other trap kinds (bounds, div-by-zero, div-overflow, indirect
// call signature mismatch/null) each get their own code, defined alongside
// the checks that raise them.
const trapCodeUnreachable = 0

// movEdgeArgs emits, for one CFG edge, the register moves that place the
// current block's outgoing values into the target block's parameter
// vregs, skipping self-moves (e.g. `jump header(x)` where header's first
// param is already x's vreg - the common loop back-edge shape after
// copy-prop canonicalizes the increment).
func (lw *lowerer) movEdgeArgs(target *ir.BasicBlock, args []ir.Value) {
	params := target.Params()
	for i, p := range params {
		dstVR := lw.val[p.Value.ID()]
		srcVR := lw.vreg(args[i])
		if dstVR == srcVR {
			continue
		}
		lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{dstVR}, Uses: []vcode.VReg{srcVR}, Width: p.Type.Bits(), IsFloat: p.Type.IsFloat(), Double: p.Type == ir.TypeF64})
	}
}

func (lw *lowerer) lowerJump(blk *ir.BasicBlock) {
	target := blk.Targets()[0]
	lw.movEdgeArgs(target, blk.TermArgs(0))
	lw.cur.Term = vcode.Terminator{Kind: vcode.TermBranch, Targets: []int{lw.blockIdx[target.ID()]}}
}

func (lw *lowerer) lowerBrIf(blk *ir.BasicBlock) {
	then, els := blk.Targets()[0], blk.Targets()[1]
	cond := blk.BrIfCond()

	if cmp, ok := lw.sameBlock(cond); ok && cmp.Opcode() == ir.OpcodeIcmp {
		a, b := cmp.Arg2()
		lw.emitIntCmp(a, b)
		lw.movEdgeArgs(then, blk.TermArgs(0))
		lw.movEdgeArgs(els, blk.TermArgs(1))
		lw.cur.Term = vcode.Terminator{
			Kind: vcode.TermBranchCmp, Cond: vcode.FromIntCmp(int(cmp.IntCmpCond()), true),
			Targets: []int{lw.blockIdx[then.ID()], lw.blockIdx[els.ID()]},
		}
		return
	}
	if cmp, ok := lw.sameBlock(cond); ok && cmp.Opcode() == ir.OpcodeFcmp {
		a, b := cmp.Arg2()
		lw.emit(&vcode.Inst{Op: vcode.OpCmpReg, Uses: []vcode.VReg{lw.vreg(a), lw.vreg(b)}, IsFloat: true, Double: isDouble(a.Type())})
		lw.movEdgeArgs(then, blk.TermArgs(0))
		lw.movEdgeArgs(els, blk.TermArgs(1))
		lw.cur.Term = vcode.Terminator{
			Kind: vcode.TermBranchCmp, Cond: floatCond(cmp.FloatCmpCond()),
			Targets: []int{lw.blockIdx[then.ID()], lw.blockIdx[els.ID()]},
		}
		return
	}

	condReg := lw.vreg(cond)
	lw.movEdgeArgs(then, blk.TermArgs(0))
	lw.movEdgeArgs(els, blk.TermArgs(1))
	lw.cur.Term = vcode.Terminator{
		Kind: vcode.TermBranchZero, LHS: condReg, Nonzero: true,
		Targets: []int{lw.blockIdx[then.ID()], lw.blockIdx[els.ID()]},
	}
}

func (lw *lowerer) lowerBrTable(blk *ir.BasicBlock) {
	targets := blk.Targets()
	n := len(targets)
	jt := make([]int, n-1)
	for i := 0; i < n-1; i++ {
		lw.movEdgeArgs(targets[i], blk.TermArgs(i))
		jt[i] = lw.blockIdx[targets[i].ID()]
	}
	lw.movEdgeArgs(targets[n-1], blk.TermArgs(n-1))
	def := lw.blockIdx[targets[n-1].ID()]

	idxReg := lw.vreg(blk.BrIfCond())
	lw.cur.Term = vcode.Terminator{Kind: vcode.TermBrTable, Index: idxReg, JumpTable: jt, Default: def}
}

// maxRegResultsPerClass is the number of values of one RegClass a Return
// (or a callee's own result list) places directly in X0/X1 or D0/D1; a
// third or later value of either class spills into the shared
// extra-results buffer addressed through X23 instead (spec §4.5's
// extra-results convention).
const maxRegResultsPerClass = 2

func (lw *lowerer) lowerReturn(blk *ir.BasicBlock) {
	vals := blk.ReturnValues()
	intIdx, floatIdx, extra := 0, 0, 0
	var resultRegs []vcode.VReg
	for _, v := range vals {
		cls := classOf(v.Type())
		var idx *int
		if cls == vcode.RegClassFloat {
			idx = &floatIdx
		} else {
			idx = &intIdx
		}
		if *idx >= maxRegResultsPerClass {
			lw.vf.NeedsExtraResBuf = true
			lw.emit(&vcode.Inst{
				Op: vcode.OpStrImm, Uses: []vcode.VReg{lw.vreg(v)},
				Mode: vcode.AddrMode{Base: lw.fixed(vcode.RegClassInt, vcode.RegExtraRes), ImmOffset: int64(extra) * 8},
				Width: v.Type().Bits(), IsFloat: cls == vcode.RegClassFloat, Double: v.Type() == ir.TypeF64,
			})
			extra++
			continue
		}
		r := vcode.RealReg(*idx)
		*idx++
		dst := lw.fixed(cls, r)
		src := lw.vreg(v)
		lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{src}, Width: v.Type().Bits(), IsFloat: cls == vcode.RegClassFloat, Double: v.Type() == ir.TypeF64})
		resultRegs = append(resultRegs, dst)
	}
	lw.vf.ResultRegs = resultRegs
	lw.cur.Term = vcode.Terminator{Kind: vcode.TermReturn}
}

// captureExtraResBuf pre-scans every return site for a result count that
// overflows the per-class register cap; if any does, the whole function
// needs its extra-results buffer captured from X7 into X23 at entry,
// before the body can clobber X7 (spec §4.5's prologue step for
// multi-result functions). The scan must run before any block is lowered
// since the capture has to be the very first instruction in the entry
// block.
func (lw *lowerer) captureExtraResBuf(rpo []*ir.BasicBlock) {
	for _, blk := range rpo {
		if blk.Terminator() != ir.TermReturn {
			continue
		}
		if extraResBytes(blk.ReturnValues()) > 0 {
			lw.vf.NeedsExtraResBuf = true
			break
		}
	}
	if !lw.vf.NeedsExtraResBuf {
		return
	}
	entryIdx := lw.blockIdx[lw.irf.Entry().ID()]
	lw.cur = lw.vf.Blocks[entryIdx]
	dst := lw.fixed(vcode.RegClassInt, vcode.RegExtraRes)
	src := lw.fixed(vcode.RegClassInt, 7)
	lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{src}, Width: 64})
	lw.cur = nil
}

func (lw *lowerer) lowerTrap(instr *ir.Instruction) {
	lw.emit(&vcode.Inst{Op: vcode.OpBrk, Imm: trapCodeUnreachable, WasmOffset: instr.MemArg().Offset})
}
