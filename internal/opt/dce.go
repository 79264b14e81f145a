package opt

import "github.com/cwasmjit/cwasmjit/internal/ir"

// dce removes pure (non-side-effecting) instructions whose result is
// unused, per spec §4.2 stage 1 and the IR invariant in spec §3.1 that
// trapping/side-effecting instructions must never be deleted merely for
// being unused.
func dce(fn *ir.Function) bool {
	changed := false
	// Iterate to a local fixpoint: removing one dead instruction can make
	// its sole operand's producer dead in turn.
	for {
		fn.ComputeRefCounts()
		removedThisPass := false
		for _, blk := range fn.ReversePostOrder() {
			for _, instr := range blk.Instructions() {
				if instr.Opcode().SideEffecting() {
					continue
				}
				r, rs := instr.Returns()
				if fn.Used(r) {
					continue
				}
				deadMulti := true
				for _, rv := range rs {
					if fn.Used(rv) {
						deadMulti = false
						break
					}
				}
				if !deadMulti {
					continue
				}
				if !r.Valid() && len(rs) == 0 {
					// No result at all (shouldn't occur for a pure op);
					// leave it alone defensively.
					continue
				}
				fn.RemoveInstruction(instr)
				removedThisPass = true
			}
		}
		if removedThisPass {
			changed = true
			continue
		}
		break
	}
	return changed
}
