package opt

import "github.com/cwasmjit/cwasmjit/internal/ir"

// rematerializable reports whether op is cheap and pure enough to clone at
// every use site instead of holding its result live across a range (spec
// §4.2 stage 5 and GLOSSARY "Rematerialization").
//
// ALU-with-immediate (e.g. Iadd/Isub/Band with one constant operand) is
// also named as a remat candidate by spec §4.2 stage 5, but is
// deliberately left out here: cloning such an instruction would also
// require proving its non-constant operand is still live at every clone
// site, which this single-opcode check can't express. Only constants
// (Iconst, Fconst) and Bnot are handled.
func rematerializable(op ir.Opcode) bool {
	switch op {
	case ir.OpcodeIconst, ir.OpcodeFconst, ir.OpcodeBnot:
		return true
	default:
		return false
	}
}

// rematerialize clones each eligible definition into every block that uses
// it (other than its own defining block), placed immediately before the
// first use in that block, then runs DCE so the original becomes dead if
// its home block no longer needs it (spec §4.2 stage 5: "Follow with
// DCE"). A per-(block, value) cache ensures at most one clone per block
// even when a value is used many times there; this pass is non-recursive -
// the inserted clones are never themselves candidates within the same
// run, matching "non-recursive" in the spec.
func rematerialize(fn *ir.Function) {
	dc := fn.BuildDefCache()
	type key struct {
		blk ir.BlockID
		v   ir.ValueID
	}
	cache := map[key]ir.Value{}

	for _, blk := range fn.ReversePostOrder() {
		for _, instr := range blk.Instructions() {
			v, v2, v3, vs := instr.Args()
			operands := append([]ir.Value{v, v2, v3}, vs...)
			for _, opnd := range operands {
				if !opnd.Valid() {
					continue
				}
				def := dc.Get(opnd)
				if def == nil || !rematerializable(def.Opcode()) || def.Block() == blk {
					continue
				}
				k := key{blk.ID(), opnd.ID()}
				clone, ok := cache[k]
				if !ok {
					c := fn.CloneInstructionShallow(def)
					fn.InsertInstructionBefore(blk, c, instr)
					clone = c.Return()
					cache[k] = clone
				}
				instr.ReplaceOperand(opnd, clone)
			}
		}
	}
	dce(fn)
}
