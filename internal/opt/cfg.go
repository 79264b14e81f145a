package opt

import "github.com/cwasmjit/cwasmjit/internal/ir"

// cfgCleanup implements spec §4.2 stage 4 (O2+): branch simplification for
// constant conditions, unreachable-block elimination, single-pred/single-
// succ block merging, and jump threading through trivially-forwarding
// blocks.
func cfgCleanup(fn *ir.Function) bool {
	changed := false
	changed = branchSimplify(fn) || changed
	changed = jumpThread(fn) || changed
	changed = mergeBlocks(fn) || changed
	changed = dropUnreachable(fn) || changed
	return changed
}

func branchSimplify(fn *ir.Function) bool {
	changed := false
	dc := fn.BuildDefCache()
	for _, blk := range fn.ReversePostOrder() {
		if blk.Terminator() != ir.TermBrIf {
			continue
		}
		cond := blk.BrIfCond()
		def := dc.Get(cond)
		if def == nil || def.Opcode() != ir.OpcodeIconst {
			continue
		}
		targets := blk.Targets()
		keep, drop := 0, 1
		if def.ConstValue() == 0 {
			keep, drop = 1, 0
		}
		keepTarget, dropTarget := targets[keep], targets[drop]
		keepArgs := blk.TermArgs(keep)
		if dropTarget != keepTarget {
			dropTarget.RemovePred(blk)
		}
		blk.SetTargets([]*ir.BasicBlock{keepTarget}, [][]ir.Value{keepArgs})
		blk.SetTermKind(ir.TermJump, ir.ValueInvalid)
		changed = true
	}
	return changed
}

// jumpThread redirects any predecessor of a trivially-forwarding block (no
// instructions, unconditional Jump terminator) directly to that block's own
// target, substituting the forwarding block's parameters for the jump
// arguments it would have received. The forwarding block itself is left in
// place (still reachable from elsewhere, perhaps); dropUnreachable removes
// it once nothing points to it anymore.
func jumpThread(fn *ir.Function) bool {
	changed := false
	for _, blk := range fn.ReversePostOrder() {
		if blk.Terminator() != ir.TermJump || len(blk.Instructions()) != 0 {
			continue
		}
		target := blk.Targets()[0]
		if target == blk {
			continue
		}
		args := blk.TermArgs(0)
		params := blk.Params()
		for _, pred := range append([]*ir.BasicBlock{}, blk.Preds()...) {
			for succIdx, t := range pred.Targets() {
				if t != blk {
					continue
				}
				predArgs := pred.TermArgs(succIdx)
				substituted := make([]ir.Value, len(args))
				for i, a := range args {
					substituted[i] = a
					for pi, p := range params {
						if a == p.Value && pi < len(predArgs) {
							substituted[i] = predArgs[pi]
						}
					}
				}
				newTargets := append([]*ir.BasicBlock{}, pred.Targets()...)
				newArgsList := append([][]ir.Value{}, targetArgsOf(pred)...)
				newTargets[succIdx] = target
				newArgsList[succIdx] = substituted
				pred.SetTargets(newTargets, newArgsList)
				changed = true
			}
		}
	}
	return changed
}

func targetArgsOf(b *ir.BasicBlock) [][]ir.Value {
	out := make([][]ir.Value, len(b.Targets()))
	for i := range out {
		out[i] = b.TermArgs(i)
	}
	return out
}

// mergeBlocks folds a block into its unique predecessor when that
// predecessor has exactly one successor (this block) and this block has
// exactly one predecessor, splicing its parameters (substituted for the
// jump args) and instructions directly into the predecessor.
func mergeBlocks(fn *ir.Function) bool {
	changed := false
	for _, blk := range fn.ReversePostOrder() {
		preds := blk.Preds()
		if len(preds) != 1 {
			continue
		}
		pred := preds[0]
		if pred.Terminator() != ir.TermJump || len(pred.Targets()) != 1 || pred.Targets()[0] != blk {
			continue
		}
		if pred == blk {
			continue
		}
		args := pred.TermArgs(0)
		for i, p := range blk.Params() {
			if i < len(args) {
				fn.ReplaceAllUses(p.Value, args[i])
			}
		}
		for _, instr := range blk.Instructions() {
			fn.RemoveInstruction(instr)
			fn.InsertInstructionBefore(pred, instr, nil)
		}
		pred.SetTargets(blk.Targets(), targetArgsOf(blk))
		pred.CopyTerminatorKindFrom(blk)
		for _, succ := range blk.Targets() {
			succ.RemovePred(blk)
			succ.AddPredPublic(pred)
		}
		changed = true
	}
	return changed
}

func dropUnreachable(fn *ir.Function) bool {
	changed := false
	var kept []*ir.BasicBlock
	for _, blk := range fn.Blocks() {
		if blk.RPOIndex() < 0 {
			changed = true
			continue
		}
		kept = append(kept, blk)
	}
	if changed {
		fn.SetBlocks(kept)
	}
	return changed
}
