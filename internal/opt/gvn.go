package opt

import (
	"fmt"

	"github.com/cwasmjit/cwasmjit/internal/ir"
)

// gvnCSE implements spec §4.2 stage 3: value numbering in dominator-tree
// (reverse postorder, approximating dominance scope) order with a key of
// (opcode, operand-value-ids, immediates, width). Loads are invalidated by
// any intervening store or call, matching the "conservative invalidation
// model" described in the spec; this pass does not attempt the optional
// "loads from provably distinct regions may skip invalidation" refinement,
// since this repo has no alias analysis (the conservative invalidation
// only ever forgoes a reuse).
func gvnCSE(fn *ir.Function) bool {
	changed := false
	seen := map[string]ir.Value{}
	loadGen := 0
	loadKeyGen := map[string]int{}

	for _, blk := range fn.ReversePostOrder() {
		for _, instr := range blk.Instructions() {
			op := instr.Opcode()
			if op == ir.OpcodeStore || op == ir.OpcodeCall || op == ir.OpcodeCallIndirect ||
				op == ir.OpcodeMemoryGrow || op == ir.OpcodeMemoryCopy || op == ir.OpcodeMemoryFill ||
				op == ir.OpcodeGlobalSet {
				loadGen++
				continue
			}
			if !gvnEligible(op) {
				continue
			}
			key := gvnKey(instr, loadGen, loadKeyGen)
			if prior, ok := seen[key]; ok && prior.Valid() {
				fn.ReplaceAllUses(instr.Return(), prior)
				fn.RemoveInstruction(instr)
				changed = true
				continue
			}
			seen[key] = instr.Return()
		}
	}
	return changed
}

// gvnEligible excludes instructions with side effects that aren't safe to
// deduplicate outright (stores, calls already filtered above as
// generation bumps; trapping ops are eligible only because GVN never
// changes *whether* the op executes, only merges two provably-identical
// occurrences - unlike DCE it cannot delete an unused trap, but CSE-ing
// two occurrences of the same trap condition at the same program point is
// sound since both would trap identically).
func gvnEligible(op ir.Opcode) bool {
	switch op {
	case ir.OpcodeMemoryGrow, ir.OpcodeMemorySize, ir.OpcodeGlobalGet, ir.OpcodeGlobalSet,
		ir.OpcodeCall, ir.OpcodeCallIndirect, ir.OpcodeReturnCall, ir.OpcodeReturnCallIndirect,
		ir.OpcodeStore, ir.OpcodeMemoryCopy, ir.OpcodeMemoryFill, ir.OpcodeMemoryInit,
		ir.OpcodeTableCopy, ir.OpcodeTableFill, ir.OpcodeTableInit,
		ir.OpcodeStructNew, ir.OpcodeArrayNew, ir.OpcodeTrap:
		return false
	default:
		return true
	}
}

func gvnKey(instr *ir.Instruction, loadGen int, loadKeyGen map[string]int) string {
	v, v2, v3, vs := instr.Args()
	base := fmt.Sprintf("%d|%d,%d,%d,%v|%d|%v", instr.Opcode(), v, v2, v3, vs, instr.ConstValue(), instr.MemArg())
	if instr.Opcode() == ir.OpcodeLoad {
		return fmt.Sprintf("%s|gen%d", base, loadGen)
	}
	return base
}
