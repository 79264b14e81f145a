package emit

import "github.com/cwasmjit/cwasmjit/internal/vcode"

// emitTerm encodes one block's terminator, then (for TermReturn) the
// inline epilogue, using e.blockOffset to resolve cross-block branch
// displacements - the payoff of the measuring pass run before this one.
func (e *emitter) emitTerm(t vcode.Terminator, blockIdx int) {
	switch t.Kind {
	case vcode.TermBranch:
		e.put(encodeUnconditionalBranch(false, e.disp26(t.Targets[0])))
	case vcode.TermBranchCmp, vcode.TermBranchCmpImm:
		e.put(encodeBCond(uint32(t.Cond), e.disp19(t.Targets[0])))
		e.put(encodeUnconditionalBranch(false, e.disp26(t.Targets[1])))
	case vcode.TermBranchZero:
		e.put(encodeCBZCBNZ(e.gp(t.LHS), t.Nonzero, e.disp19(t.Targets[0]), 1))
		e.put(encodeUnconditionalBranch(false, e.disp26(t.Targets[1])))
	case vcode.TermBrTable:
		e.emitBrTable(t)
	case vcode.TermReturn:
		e.epilogue()
	default:
		panic("emit: block has no terminator")
	}
}

func (e *emitter) disp19(target int) uint32 {
	return uint32(int32(e.blockOffset[target]-e.here())) & 0x7ffff
}

func (e *emitter) disp26(target int) uint32 {
	return uint32(int32(e.blockOffset[target]-e.here())) & 0x3ffffff
}

// emitBrTable lowers an n-way branch table as a linear CMP/B.EQ chain
// (spec's br_table Non-goal leaves the exact dispatch strategy open; a
// chain avoids needing a PC-relative data table and its own relocation
// bookkeeping, at the cost of O(n) dispatch instead of O(1) - acceptable
// for the small case counts real Wasm br_table instructions have).
func (e *emitter) emitBrTable(t vcode.Terminator) {
	idx := e.gp(t.Index)
	for i, target := range t.JumpTable {
		e.put(encodeSubsImm(idx, uint32(i), 0, 1))
		e.put(encodeBCond(uint32(vcode.CondEQ), e.disp19(target)))
	}
	e.put(encodeUnconditionalBranch(false, e.disp26(t.Default)))
}
