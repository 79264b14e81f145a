package ir

// This file exposes the mutation primitives the optimizer (internal/opt,
// a separate package) needs to rewrite IR in place: removing dead
// instructions, splicing in rematerialized clones, and redirecting uses
// during copy/alias resolution and GVN. ir.Function/BasicBlock/Instruction
// otherwise keep their fields unexported so construction stays funneled
// through Builder; the optimizer is the one privileged downstream mutator.

// RemoveInstruction unlinks instr from its owning block's instruction list.
// instr must not be a terminator (those are mutated via the Builder's
// SetXxx methods instead).
func (f *Function) RemoveInstruction(instr *Instruction) {
	instr.blk.removeInstruction(instr)
}

// InsertInstructionBefore splices instr into blk immediately before at. If
// at is nil, instr is appended at the end of blk's instruction list.
func (f *Function) InsertInstructionBefore(blk *BasicBlock, instr, at *Instruction) {
	blk.insertInstructionBefore(instr, at)
}

// PrependInstruction splices instr to the very start of blk's instruction
// list, before any existing instruction (and before the implicit block
// parameters, which are not part of the instruction list at all). Used by
// constant-block-parameter elimination and rematerialization to introduce
// a new definition that dominates every use in blk.
func (f *Function) PrependInstruction(blk *BasicBlock, instr *Instruction) {
	blk.insertInstructionBefore(instr, blk.first)
}

// CloneInstructionShallow returns a fresh, unlinked Instruction with the
// same opcode/operands/immediates as src, and allocates a fresh result
// Value of the same type(s). Used by rematerialization (spec §4.2 stage 5).
func (f *Function) CloneInstructionShallow(src *Instruction) *Instruction {
	clone := &Instruction{}
	*clone = *src
	clone.prev, clone.next, clone.blk = nil, nil, nil
	if src.rValue.Valid() {
		clone.rValue = f.allocateValue(src.rValue.Type())
	}
	if len(src.rValues) > 0 {
		clone.rValues = make([]Value, len(src.rValues))
		for i, v := range src.rValues {
			clone.rValues[i] = f.allocateValue(v.Type())
		}
	}
	return clone
}

// ReplaceAllUses rewrites every operand occurrence of old (across every
// instruction and every terminator argument list in the function) to new.
// Used by copy/alias resolution and GVN/CSE redirection.
func (f *Function) ReplaceAllUses(old, new Value) {
	if old == new || !old.Valid() {
		return
	}
	repl := func(v Value) Value {
		if v == old {
			return new
		}
		return v
	}
	for _, blk := range f.blocks {
		for i := blk.first; i != nil; i = i.next {
			i.v, i.v2, i.v3 = repl(i.v), repl(i.v2), repl(i.v3)
			for idx, a := range i.vs {
				i.vs[idx] = repl(a)
			}
		}
		blk.termCond = repl(blk.termCond)
		for _, vals := range blk.args {
			for idx, a := range vals {
				vals[idx] = repl(a)
			}
		}
		for idx, a := range blk.retVals {
			blk.retVals[idx] = repl(a)
		}
	}
}

// SetArgs overwrites an instruction's scalar/variadic operand fields in
// place, used by rewrite rules that fold/canonicalize an existing
// instruction rather than replacing it outright (keeps its result Value id
// stable so other uses need no redirection).
func (i *Instruction) SetArgs(v, v2, v3 Value, vs []Value) {
	i.v, i.v2, i.v3, i.vs = v, v2, v3, vs
}

// ReplaceOperand rewrites every scalar/variadic operand of i equal to old
// to new, without touching its result Value. Used by rematerialization to
// redirect one instruction's use of a remat candidate to its local clone.
func (i *Instruction) ReplaceOperand(old, new Value) {
	if i.v == old {
		i.v = new
	}
	if i.v2 == old {
		i.v2 = new
	}
	if i.v3 == old {
		i.v3 = new
	}
	for idx, a := range i.vs {
		if a == old {
			i.vs[idx] = new
		}
	}
}

// SetOpcode overwrites an instruction's opcode in place (e.g. strength
// reduction rewriting `imul x (iconst 2)` into `ishl x (iconst 1)`).
func (i *Instruction) SetOpcode(op Opcode) { i.opcode = op }

// SetConstValue overwrites the raw bits of an Iconst/Fconst instruction,
// used by constant folding.
func (i *Instruction) SetConstValue(bits uint64) { i.u1 = bits }

// SetIntCmpCond overwrites the condition of an Icmp instruction, used by
// comparison-normalization rewrites (e.g. canonicalizing `sgt` to `slt`
// with swapped operands).
func (i *Instruction) SetIntCmpCond(c IntCmpCond) { i.u1 = uint64(c) }

// Used reports whether v has at least one recorded use, per
// f.RefCounts(); ComputeRefCounts must have been run first.
func (f *Function) Used(v Value) bool {
	if !v.Valid() || int(v.ID()) >= len(f.refCounts) {
		return false
	}
	return f.refCounts[v.ID()] > 0
}

// ComputeRefCounts recomputes f.RefCounts() by scanning every operand
// occurrence across the function, including terminator arguments and
// return values. The optimizer driver calls this at the start of every
// DCE-dependent stage.
func (f *Function) ComputeRefCounts() {
	counts := make([]int, f.nextValueID)
	bump := func(v Value) {
		if v.Valid() {
			counts[v.ID()]++
		}
	}
	for _, blk := range f.blocks {
		for i := blk.first; i != nil; i = i.next {
			bump(i.v)
			bump(i.v2)
			bump(i.v3)
			for _, a := range i.vs {
				bump(a)
			}
		}
		bump(blk.termCond)
		for _, vals := range blk.args {
			for _, a := range vals {
				bump(a)
			}
		}
		for _, a := range blk.retVals {
			bump(a)
		}
	}
	f.refCounts = counts
}

// RemoveBlockParam deletes the paramIdx-th parameter of blk and the
// corresponding argument slot from every predecessor's terminator args.
// Used by dead-block-parameter elimination (spec §4.2 stage 1).
func (f *Function) RemoveBlockParam(blk *BasicBlock, paramIdx int) {
	blk.params = append(blk.params[:paramIdx], blk.params[paramIdx+1:]...)
	for _, pred := range blk.preds {
		for succIdx, t := range pred.targets {
			if t == blk {
				args := pred.args[succIdx]
				if paramIdx < len(args) {
					pred.args[succIdx] = append(args[:paramIdx], args[paramIdx+1:]...)
				}
			}
		}
	}
}

// SetTargets replaces a block's successor list and its per-successor
// argument lists, for passes that run after construction (DCE, CFG
// cleanup) without needing Builder.
func (b *BasicBlock) SetTargets(targets []*BasicBlock, args [][]Value) {
	b.targets, b.args = targets, args
}

// SetTermKind overwrites a block's terminator kind and condition operand,
// used by branch-folding (constant condition -> direct Jump) in CFG
// cleanup.
func (b *BasicBlock) SetTermKind(k TermKind, cond Value) {
	b.term, b.termCond = k, cond
}

// CopyTerminatorKindFrom copies src's terminator kind, condition/index
// operand, and return values onto b (but not its targets/args, which the
// caller sets separately via SetTargets) - used when splicing a block's
// body into its sole predecessor during CFG block merging.
func (b *BasicBlock) CopyTerminatorKindFrom(src *BasicBlock) {
	b.term = src.term
	b.termCond = src.termCond
	b.retVals = append([]Value{}, src.retVals...)
}

// AddPredPublic records p as a predecessor of b without the construction-
// time "already sealed" panic check, for use by post-construction passes
// (CFG cleanup) that patch up the CFG after the initial SSA build.
func (b *BasicBlock) AddPredPublic(p *BasicBlock) {
	b.preds = append(b.preds, p)
}

// RemovePred deletes p from blk's recorded predecessor list, used by CFG
// cleanup when an edge is folded away.
func (b *BasicBlock) RemovePred(p *BasicBlock) {
	for i, pr := range b.preds {
		if pr == p {
			b.preds = append(b.preds[:i], b.preds[i+1:]...)
			return
		}
	}
}

// SetBlocks overwrites the function's block list, used by CFG cleanup
// after merging/removing blocks (dead blocks are dropped from iteration
// but their IDs remain valid/unused).
func (f *Function) SetBlocks(blocks []*BasicBlock) { f.blocks = blocks }
