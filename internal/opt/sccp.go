package opt

import "github.com/cwasmjit/cwasmjit/internal/ir"

// constantBlockParamElim implements the `{⊥, const c, ⊤}` lattice over
// block-parameter sources described in spec §4.2 stage 1: when every
// predecessor supplies the same constant for a given parameter position,
// the parameter is replaced by a materialized constant in the block and
// removed.
func constantBlockParamElim(fn *ir.Function) bool {
	changed := false
	dc := fn.BuildDefCache()
	for _, blk := range fn.ReversePostOrder() {
		params := blk.Params()
		for idx := len(params) - 1; idx >= 0; idx-- {
			if len(blk.Preds()) == 0 {
				continue
			}
			var proto *ir.Instruction
			uniform := true
			for _, pred := range blk.Preds() {
				succIdx := succIndex(pred, blk)
				if succIdx < 0 || idx >= len(pred.TermArgs(succIdx)) {
					uniform = false
					break
				}
				argVal := pred.TermArgs(succIdx)[idx]
				def := dc.Get(argVal)
				if def == nil || (def.Opcode() != ir.OpcodeIconst && def.Opcode() != ir.OpcodeFconst) {
					uniform = false
					break
				}
				if proto == nil {
					proto = def
				} else if proto.Opcode() != def.Opcode() || proto.ConstValue() != def.ConstValue() || proto.Return().Type() != def.Return().Type() {
					uniform = false
					break
				}
			}
			if !uniform || proto == nil {
				continue
			}
			clone := fn.CloneInstructionShallow(proto)
			fn.PrependInstruction(blk, clone)
			fn.ReplaceAllUses(params[idx].Value, clone.Return())
			fn.RemoveBlockParam(blk, idx)
			changed = true
			dc = fn.BuildDefCache()
			params = blk.Params()
		}
	}
	return changed
}

// deadBlockParamElim removes block parameters with no remaining uses
// (spec §4.2 stage 1), after DCE/constant-folding may have made one
// unreferenced.
func deadBlockParamElim(fn *ir.Function) bool {
	changed := false
	fn.ComputeRefCounts()
	for _, blk := range fn.ReversePostOrder() {
		params := blk.Params()
		for idx := len(params) - 1; idx >= 0; idx-- {
			if fn.Used(params[idx].Value) {
				continue
			}
			fn.RemoveBlockParam(blk, idx)
			changed = true
			params = blk.Params()
		}
	}
	return changed
}

func succIndex(pred, target *ir.BasicBlock) int {
	for i, t := range pred.Targets() {
		if t == target {
			return i
		}
	}
	return -1
}
