package ir

import "fmt"

// BlockID uniquely identifies a BasicBlock within a Function.
type BlockID uint32

// TermKind distinguishes the terminator variants of §3.1.
type TermKind byte

const (
	TermInvalid TermKind = iota
	TermJump
	TermBrIf
	TermBrTable
	TermReturn
	TermUnreachable
)

// BlockParam is a typed SSA value introduced at a block boundary, acting
// as the phi-equivalent for values merged from multiple predecessors.
type BlockParam struct {
	Value Value
	Type  Type
}

// BasicBlock is a single-entry, single-exit sequence of instructions ending
// in exactly one terminator.
type BasicBlock struct {
	id     BlockID
	params []BlockParam
	first, last *Instruction // instruction list, excluding the terminator

	term     TermKind
	termCond Value         // BrIf condition / BrTable index
	termIcmp *Instruction  // the fused Icmp instruction, set only during lowering hints
	targets  []*BasicBlock // Jump: [then]; BrIf: [then, else]; BrTable: [t0..tn-1, default]
	args     [][]Value     // per-target block-parameter arguments
	retVals  []Value       // TermReturn operands

	preds []*BasicBlock
	sealed bool
	incompletePhis map[Variable]Value // unsealed-block placeholder params, keyed by Variable

	// reachable / RPO bookkeeping, set by pass_cfg.
	rpoIndex  int
	loopDepth int
}

// ID returns the unique identifier of b.
func (b *BasicBlock) ID() BlockID { return b.id }

// Params returns the block parameters of b, in declaration order.
func (b *BasicBlock) Params() []BlockParam { return b.params }

// Preds returns the predecessor blocks of b known so far. Valid once b has
// been Sealed.
func (b *BasicBlock) Preds() []*BasicBlock { return b.preds }

// Sealed reports whether all predecessors of b are known.
func (b *BasicBlock) Sealed() bool { return b.sealed }

// Terminator returns the kind of terminator ending b.
func (b *BasicBlock) Terminator() TermKind { return b.term }

// Targets returns the successor blocks referenced by the terminator.
func (b *BasicBlock) Targets() []*BasicBlock { return b.targets }

// TermArgs returns, for a given successor index, the block-parameter
// argument list passed along that edge.
func (b *BasicBlock) TermArgs(succIdx int) []Value { return b.args[succIdx] }

// BrIfCond returns the branch condition of a BrIf/BrTable terminator.
func (b *BasicBlock) BrIfCond() Value { return b.termCond }

// ReturnValues returns the operands of a TermReturn terminator.
func (b *BasicBlock) ReturnValues() []Value { return b.retVals }

// RPOIndex returns the reverse-postorder index assigned by the last
// dominance computation. -1 if the block is unreachable.
func (b *BasicBlock) RPOIndex() int { return b.rpoIndex }

// LoopDepth returns the loop nesting depth computed by pass_cfg, used to
// scale spill weights and rewrite costs.
func (b *BasicBlock) LoopDepth() int { return b.loopDepth }

// InstrIteratorBegin / InstrIteratorNext walk the instruction list of b,
// excluding the terminator (use Terminator()/Targets() for that).
func (b *BasicBlock) InstrIteratorBegin() *Instruction { return b.first }

func instrNext(i *Instruction) *Instruction { return i.next }

// Instructions returns every non-terminator instruction of b in order.
func (b *BasicBlock) Instructions() []*Instruction {
	var out []*Instruction
	for i := b.first; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

func (b *BasicBlock) insertInstruction(instr *Instruction) {
	instr.blk = b
	if b.last == nil {
		b.first, b.last = instr, instr
		return
	}
	b.last.next = instr
	instr.prev = b.last
	b.last = instr
}

// removeInstruction unlinks instr from b's instruction list. Used by DCE
// and the rewrite passes.
func (b *BasicBlock) removeInstruction(instr *Instruction) {
	if instr.prev != nil {
		instr.prev.next = instr.next
	} else {
		b.first = instr.next
	}
	if instr.next != nil {
		instr.next.prev = instr.prev
	} else {
		b.last = instr.prev
	}
	instr.prev, instr.next = nil, nil
}

// insertInstructionBefore inserts instr immediately before at in b.
func (b *BasicBlock) insertInstructionBefore(instr, at *Instruction) {
	instr.blk = b
	if at == nil {
		b.insertInstruction(instr)
		return
	}
	instr.prev = at.prev
	instr.next = at
	if at.prev != nil {
		at.prev.next = instr
	} else {
		b.first = instr
	}
	at.prev = instr
}

func (b *BasicBlock) addPred(p *BasicBlock) {
	if b.sealed {
		panic(fmt.Sprintf("BUG: AddPred to sealed block %d", b.id))
	}
	b.preds = append(b.preds, p)
}

// String renders "blk0" style names for debug dumps.
func (b *BasicBlock) String() string { return fmt.Sprintf("blk%d", b.id) }
