// Package lower implements the IR-to-VCode lowering pass: AArch64-aware
// instruction selection over the optimized SSA IR (spec §4.3), including
// immediate folding, multiply-accumulate fusion, compare+branch/select
// fusion, and ABI parameter/result placement via pre-colored virtual
// registers consumed by internal/regalloc.
package lower

import (
	"fmt"

	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

// ErrUnsupportedIROp is returned when a function uses an IR opcode this
// lowerer does not yet select machine code for. The compiler driver treats
// this as a per-function lowering failure and falls back to the bytecode
// interpreter for that function, per spec §4.3's "Failure" clause.
type ErrUnsupportedIROp struct {
	Op ir.Opcode
}

func (e *ErrUnsupportedIROp) Error() string {
	return fmt.Sprintf("lower: unsupported IR opcode %s", e.Op)
}

type lowerer struct {
	irf *ir.Function
	vf  *vcode.Function
	dc  *ir.DefCache

	refCounts []int

	blockIdx map[ir.BlockID]int
	val      map[ir.ValueID]vcode.VReg

	cur    *vcode.Block
	curBlk *ir.BasicBlock

	// tailCallEmitted marks that the current block's body already lowered
	// a ReturnCall(Indirect) and set the terminator itself; the IR's
	// trailing TermUnreachable for that block (set by the translator after
	// a tail call) must not also emit a trap, since control never falls
	// through to it.
	tailCallEmitted bool
}

// Function lowers one optimized IR function into VCode, selecting AArch64-
// shaped instructions over virtual registers. It returns ErrUnsupportedIROp
// if the function uses an opcode outside this lowerer's coverage.
func Function(irf *ir.Function) (vf *vcode.Function, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ue, ok := r.(*ErrUnsupportedIROp); ok {
				vf, err = nil, ue
				return
			}
			panic(r)
		}
	}()

	irf.ComputeRefCounts()

	lw := &lowerer{
		irf:       irf,
		vf:        vcode.NewFunction(irf.Name, irf.Index),
		dc:        irf.BuildDefCache(),
		refCounts: irf.RefCounts(),
		blockIdx:  map[ir.BlockID]int{},
		val:       map[ir.ValueID]vcode.VReg{},
	}

	rpo := irf.ReversePostOrder()
	for _, blk := range rpo {
		vb := lw.vf.AppendBlock()
		vb.LoopDepth = blk.LoopDepth()
		lw.blockIdx[blk.ID()] = lw.vf.BlockIndex(vb)
	}

	lw.assignBlockParamVRegs(rpo)
	lw.marshalEntryParams()
	lw.captureExtraResBuf(rpo)

	for _, blk := range rpo {
		lw.curBlk = blk
		lw.cur = lw.vf.Blocks[lw.blockIdx[blk.ID()]]
		lw.tailCallEmitted = false
		for _, instr := range blk.Instructions() {
			lw.lowerInstr(instr)
		}
		lw.lowerTerminator(blk)
	}

	return lw.vf, nil
}

func (lw *lowerer) emit(in *vcode.Inst) {
	lw.cur.Insts = append(lw.cur.Insts, in)
}

func classOf(t ir.Type) vcode.RegClass {
	if t.IsFloat() {
		return vcode.RegClassFloat
	}
	return vcode.RegClassInt
}

// assignBlockParamVRegs gives every reachable block's parameters a fresh
// vreg up front, so any predecessor lowered before a successor (impossible
// in RPO, but terminator lowering references successors by params) can
// look them up uniformly, and so loop back-edges (a successor appearing
// before its predecessor never happens in RPO for the merge block itself,
// but the loop header's own params must exist before the loop body that
// branches back to it is lowered) resolve correctly.
func (lw *lowerer) assignBlockParamVRegs(rpo []*ir.BasicBlock) {
	for _, blk := range rpo {
		if blk == lw.irf.Entry() {
			continue // entry params are ABI-placed, handled separately
		}
		for _, p := range blk.Params() {
			lw.val[p.Value.ID()] = lw.vf.NewVReg(classOf(p.Type))
		}
	}
}

// marshalEntryParams pre-colors the entry block's parameter vregs directly
// into the AArch64 argument registers (spec §4.5 "Parameter Passing"): up
// to 8 integer params in X0-X7 and up to 8 float params in D0-D7,
// independently counted per class. Functions needing more than 8 params of
// one class (rare for Wasm; stack-passed overflow args are a documented
// lowering gap) lower fine up to the point of this call and then report
// ErrUnsupportedIROp.
func (lw *lowerer) marshalEntryParams() {
	entry := lw.irf.Entry()
	intIdx, floatIdx := 0, 0
	var paramRegs []vcode.VReg
	for _, p := range entry.Params() {
		cls := classOf(p.Type)
		vr := lw.vf.NewVReg(cls)
		var r vcode.RealReg
		if cls == vcode.RegClassFloat {
			if floatIdx >= 8 {
				panic(&ErrUnsupportedIROp{Op: ir.OpcodeInvalid})
			}
			r = vcode.RealReg(floatIdx)
			floatIdx++
		} else {
			if intIdx >= 8 {
				panic(&ErrUnsupportedIROp{Op: ir.OpcodeInvalid})
			}
			r = vcode.RealReg(intIdx)
			intIdx++
		}
		lw.vf.Assignments[vr] = r
		lw.val[p.Value.ID()] = vr
		paramRegs = append(paramRegs, vr)
	}
	lw.vf.ParamRegs = paramRegs
}

// fixed mints a fresh vreg of class cls pre-colored to the physical
// register r. Because ABI-cache registers (context/func table/memory
// base/size/indirect table/extra-results) sit entirely outside the
// allocatable RegEnv pools, minting a new short-lived fixed vreg at every
// use site (rather than holding one persistent vreg alive across the whole
// function) is always safe: no ordinary bundle can ever be assigned that
// physical register, so there is nothing to conflict with.
func (lw *lowerer) fixed(cls vcode.RegClass, r vcode.RealReg) vcode.VReg {
	vr := lw.vf.NewVReg(cls)
	lw.vf.Assignments[vr] = r
	return vr
}

func (lw *lowerer) contextReg() vcode.VReg  { return lw.fixed(vcode.RegClassInt, vcode.RegContext) }
func (lw *lowerer) memBaseReg() vcode.VReg  { return lw.fixed(vcode.RegClassInt, vcode.RegMemBase) }
func (lw *lowerer) memSizeReg() vcode.VReg  { return lw.fixed(vcode.RegClassInt, vcode.RegMemSize) }
func (lw *lowerer) funcTblReg() vcode.VReg  { return lw.fixed(vcode.RegClassInt, vcode.RegFuncTbl) }
func (lw *lowerer) indirectReg() vcode.VReg { return lw.fixed(vcode.RegClassInt, vcode.RegIndirect) }

// vreg returns the vreg materializing IR value v, lowering its definition
// on demand if this is the first reference (every operand is either a
// block param, already assigned in assignBlockParamVRegs, or an
// instruction result in a dominating block that has already been visited
// in RPO order - so this path only actually fires for same-block operands
// whose defining instruction lowering chose to defer materialization,
// which this pass does not do; kept as a safety net, not a hot path).
func (lw *lowerer) vreg(v ir.Value) vcode.VReg {
	if vr, ok := lw.val[v.ID()]; ok {
		return vr
	}
	instr := lw.dc.Get(v)
	if instr == nil {
		panic(fmt.Sprintf("lower: value %s has no definition", v))
	}
	lw.lowerInstr(instr)
	return lw.val[v.ID()]
}

func (lw *lowerer) single(v ir.Value) bool {
	if !v.Valid() || int(v.ID()) >= len(lw.refCounts) {
		return false
	}
	return lw.refCounts[v.ID()] == 1
}

// sameBlock reports whether v's defining instruction lives in the block
// currently being lowered, a precondition for compare/madd fusion (folding
// across a block boundary would require sinking the definition into a
// block it may not dominate exclusively).
func (lw *lowerer) sameBlock(v ir.Value) (*ir.Instruction, bool) {
	instr := lw.dc.Get(v)
	if instr == nil || instr.Block() != lw.curBlk {
		return nil, false
	}
	return instr, true
}
