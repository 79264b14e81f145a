package ir

// Builder incrementally constructs a Function's SSA form while the
// translator walks a Wasm function body. It implements the well-known
// Braun-et-al. local/global value numbering algorithm so that callers never
// need to pre-compute dominance or insert block parameters by hand:
// reads of a not-yet-defined variable in an unsealed block install a
// placeholder parameter that is resolved once the block is sealed.
type Builder struct {
	f *Function
	cur *BasicBlock

	// varTypes records the declared type of each Variable.
	varTypes []Type
	// defs[blockID][variable] is the current reaching definition of
	// variable at the end of that block, during construction.
	defs map[BlockID]map[Variable]Value
	// paramVar remembers which Variable an incomplete block parameter was
	// installed for. Seal resolves placeholders through
	// BasicBlock.incompletePhis, not through this map.
	paramVar map[Value]Variable

	annotations map[ValueID]string
}

// NewBuilder creates a Builder for constructing fn's body. fn must be fresh
// from NewFunction.
func NewBuilder(fn *Function) *Builder {
	b := &Builder{
		f:           fn,
		cur:         fn.entry,
		defs:        map[BlockID]map[Variable]Value{},
		paramVar:    map[Value]Variable{},
		annotations: map[ValueID]string{},
	}
	// The entry block is always implicitly sealed: it has no predecessors.
	fn.entry.sealed = true
	return b
}

// Func returns the Function under construction.
func (b *Builder) Func() *Function { return b.f }

// CurrentBlock returns the block instructions are currently inserted into.
func (b *Builder) CurrentBlock() *BasicBlock { return b.cur }

// SetCurrentBlock redirects instruction insertion to blk.
func (b *Builder) SetCurrentBlock(blk *BasicBlock) { b.cur = blk }

// DeclareVariable introduces a new source-level variable of type t (a Wasm
// local, or an operand-stack slot used as a merge point).
func (b *Builder) DeclareVariable(t Type) Variable {
	v := Variable(len(b.varTypes))
	b.varTypes = append(b.varTypes, t)
	return v
}

// DefineVariable records that variable's value in blk is val.
func (b *Builder) DefineVariable(variable Variable, val Value, blk *BasicBlock) {
	m, ok := b.defs[blk.id]
	if !ok {
		m = map[Variable]Value{}
		b.defs[blk.id] = m
	}
	m[variable] = val
}

// DefineVariableInCurrentBB is DefineVariable(variable, val, CurrentBlock()).
func (b *Builder) DefineVariableInCurrentBB(variable Variable, val Value) {
	b.DefineVariable(variable, val, b.cur)
}

// FindValue resolves the reaching definition of variable as observed from
// the current block, recursing through predecessors and installing block
// parameters for merges as needed (Braun et al., §2.2-2.3).
func (b *Builder) FindValue(variable Variable) Value {
	return b.findValueInBlock(variable, b.cur)
}

func (b *Builder) findValueInBlock(variable Variable, blk *BasicBlock) Value {
	if m, ok := b.defs[blk.id]; ok {
		if v, ok := m[variable]; ok {
			return v
		}
	}
	return b.findValueRecursive(variable, blk)
}

func (b *Builder) findValueRecursive(variable Variable, blk *BasicBlock) Value {
	var val Value
	if !blk.sealed {
		// Predecessors aren't all known yet: install a placeholder param
		// and remember it so Seal() can back-patch it later.
		val = b.f.AppendBlockParam(blk, b.varTypes[variable])
		if blk.incompletePhis == nil {
			blk.incompletePhis = map[Variable]Value{}
		}
		blk.incompletePhis[variable] = val
		b.paramVar[val] = variable
	} else if len(blk.preds) == 1 {
		val = b.findValueInBlock(variable, blk.preds[0])
	} else if len(blk.preds) == 0 {
		// Unreachable block reading an undefined variable: materialize a
		// zero value of the right type so later passes stay well-typed.
		val = b.zeroValue(b.varTypes[variable], blk)
	} else {
		// Genuine merge point: add a param eagerly (blk is sealed, so all
		// predecessors are already known) and wire each predecessor's
		// terminator to supply it.
		val = b.f.AppendBlockParam(blk, b.varTypes[variable])
		b.DefineVariable(variable, val, blk) // break potential cycles before recursing
		for _, pred := range blk.preds {
			predVal := b.findValueInBlock(variable, pred)
			b.appendTermArg(pred, blk, paramIndex(blk, val), predVal)
		}
	}
	b.DefineVariable(variable, val, blk)
	return val
}

func (b *Builder) zeroValue(t Type, blk *BasicBlock) Value {
	save := b.cur
	b.cur = blk
	var v Value
	switch {
	case t.IsInt():
		v = b.Iconst(t, 0)
	case t.IsFloat():
		v = b.Fconst(t, 0)
	default:
		v = b.RefNull(t)
	}
	b.cur = save
	return v
}

// appendTermArg appends val as the argument passed to target's idx-th
// parameter along the edge from pred's succIdx-th successor.
func (b *Builder) appendTermArg(pred, target *BasicBlock, paramIdx int, val Value) {
	for succIdx, t := range pred.targets {
		if t == target {
			for len(pred.args[succIdx]) <= paramIdx {
				pred.args[succIdx] = append(pred.args[succIdx], ValueInvalid)
			}
			pred.args[succIdx][paramIdx] = val
		}
	}
}

// AddPred records that blk is reachable from pred along the edge ending at
// blk. Must be called for every edge before Seal(blk).
func (b *Builder) AddPred(blk, pred *BasicBlock) {
	blk.addPred(pred)
}

// Seal declares that every predecessor of blk is now known via AddPred.
// Any placeholder parameters installed by FindValue while blk was unsealed
// are resolved against the now-complete predecessor set by filling in each
// predecessor's terminator argument. Parameters whose incoming values are
// all identical are kept; Seal does not remove them.
func (b *Builder) Seal(blk *BasicBlock) {
	blk.sealed = true
	for variable, param := range blk.incompletePhis {
		for _, pred := range blk.preds {
			val := b.findValueInBlock(variable, pred)
			paramIdx := paramIndex(blk, param)
			for succIdx, t := range pred.targets {
				if t == blk {
					for len(pred.args[succIdx]) <= paramIdx {
						pred.args[succIdx] = append(pred.args[succIdx], ValueInvalid)
					}
					pred.args[succIdx][paramIdx] = val
				}
			}
		}
	}
	blk.incompletePhis = nil
}

func paramIndex(blk *BasicBlock, param Value) int {
	for i, p := range blk.params {
		if p.Value == param {
			return i
		}
	}
	panic("BUG: param not found in its own block")
}

// AllocateInstruction returns a zero-valued, owned Instruction ready to be
// filled in and inserted via InsertInstruction.
func (b *Builder) AllocateInstruction() *Instruction {
	i := &Instruction{}
	i.reset()
	return i
}

// InsertInstruction appends instr to the current block. It allocates no
// result Values; callers set instr's results before inserting it.
func (b *Builder) InsertInstruction(instr *Instruction) {
	b.cur.insertInstruction(instr)
}

// AnnotateValue records a human-readable name for v, purely for dumps.
func (b *Builder) AnnotateValue(v Value, name string) { b.annotations[v.ID()] = name }

// --- convenience constructors used by the translator and by zeroValue ---

func (b *Builder) emit1(op Opcode, t Type, args ...Value) Value {
	i := b.AllocateInstruction()
	i.opcode = op
	i.typ = t
	if len(args) > 0 {
		i.v = args[0]
	}
	if len(args) > 1 {
		i.v2 = args[1]
	}
	if len(args) > 2 {
		i.v3 = args[2]
	}
	if len(args) > 3 {
		i.vs = args[3:]
	}
	v := b.f.allocateValue(t)
	i.rValue = v
	b.InsertInstruction(i)
	return v
}

// Iconst builds an integer constant of type t with the given value.
func (b *Builder) Iconst(t Type, v uint64) Value {
	i := b.AllocateInstruction()
	i.opcode, i.typ, i.u1 = OpcodeIconst, t, v
	i.rValue = b.f.allocateValue(t)
	b.InsertInstruction(i)
	return i.rValue
}

// Fconst builds a float constant of type t from its raw bit pattern.
func (b *Builder) Fconst(t Type, bits uint64) Value {
	i := b.AllocateInstruction()
	i.opcode, i.typ, i.u1 = OpcodeFconst, t, bits
	i.rValue = b.f.allocateValue(t)
	b.InsertInstruction(i)
	return i.rValue
}

// RefNull builds a null reference constant of type t.
func (b *Builder) RefNull(t Type) Value {
	i := b.AllocateInstruction()
	i.opcode, i.typ = OpcodeRefNull, t
	i.rValue = b.f.allocateValue(t)
	b.InsertInstruction(i)
	return i.rValue
}

// SetJump terminates the current block with an unconditional jump.
func (b *Builder) SetJump(target *BasicBlock, args []Value) {
	blk := b.cur
	blk.term = TermJump
	blk.targets = []*BasicBlock{target}
	blk.args = [][]Value{append([]Value{}, args...)}
}

// SetBrIf terminates the current block with a conditional branch.
func (b *Builder) SetBrIf(cond Value, then, els *BasicBlock, thenArgs, elsArgs []Value) {
	blk := b.cur
	blk.term = TermBrIf
	blk.termCond = cond
	blk.targets = []*BasicBlock{then, els}
	blk.args = [][]Value{append([]Value{}, thenArgs...), append([]Value{}, elsArgs...)}
}

// SetBrTable terminates the current block with an indexed multiway branch.
// Every target (including the default, appended last) receives the same
// args, matching the Wasm requirement that all br_table labels share one
// arity.
func (b *Builder) SetBrTable(idx Value, targets []*BasicBlock, def *BasicBlock, args []Value) {
	blk := b.cur
	blk.term = TermBrTable
	blk.termCond = idx
	blk.targets = append(append([]*BasicBlock{}, targets...), def)
	blk.args = make([][]Value, len(blk.targets))
	for i := range blk.args {
		blk.args[i] = append([]Value{}, args...)
	}
}

// SetReturn terminates the current block with a return of vals.
func (b *Builder) SetReturn(vals []Value) {
	blk := b.cur
	blk.term = TermReturn
	blk.retVals = vals
}

// SetUnreachable terminates the current block with an unreachable trap.
func (b *Builder) SetUnreachable() { b.cur.term = TermUnreachable }
