package opt

import "github.com/cwasmjit/cwasmjit/internal/ir"

// copyAliasResolve chases all Copy-like identities to a canonical value id
// (spec §4.2 stage 1). Two shapes count as copies in this IR: an identity
// Bitcast (result type equals operand type — only ever produced by a
// rewrite that didn't need to change representation) and a Select whose
// two arms are syntactically the same value (the condition is then dead
// weight).
func copyAliasResolve(fn *ir.Function) bool {
	changed := false
	for _, blk := range fn.ReversePostOrder() {
		for _, instr := range blk.Instructions() {
			var canon ir.Value
			switch instr.Opcode() {
			case ir.OpcodeBitcast:
				arg := instr.Arg()
				if arg.Valid() && arg.Type() == instr.Return().Type() {
					canon = arg
				}
			case ir.OpcodeSelect:
				_, t, f2, _ := instr.Args()
				if t.Valid() && t == f2 {
					canon = t
				}
			}
			if !canon.Valid() {
				continue
			}
			fn.ReplaceAllUses(instr.Return(), canon)
			fn.RemoveInstruction(instr)
			changed = true
		}
	}
	return changed
}
