package opt

import "github.com/cwasmjit/cwasmjit/internal/ir"

// rewritePass is the bounded e-graph rewrite stage (spec §4.2 stage 2). It
// builds one e-class per instruction result within a block (an e-class
// here is simply the instruction's canonical-form signature, since this
// IR never needs more than one representative per block-local value - no
// cross-block merging is attempted, matching the spec's "per block"
// scoping and "one directional pass per block (no full saturation)").
//
// Hard bounds are enforced directly rather than via a generic e-class
// arena: perEclassNodeLimit caps how many alternative rewritten forms a
// single instruction may be tried against before giving up, and
// perCallMatchLimit caps how many rule applications fire for one
// instruction overall - both set to 5 per spec §4.2 stage 2.
const (
	perEclassNodeLimit = 5
	perCallMatchLimit  = 5
)

func rewritePass(fn *ir.Function) bool {
	changed := false
	dc := fn.BuildDefCache()
	for _, blk := range fn.ReversePostOrder() {
		for _, instr := range blk.Instructions() {
			if tryRewrite(fn, dc, instr) {
				changed = true
			}
		}
	}
	return changed
}

// tryRewrite applies at most perCallMatchLimit rules to instr, canonicalizing
// commutative operands first (constants to RHS, otherwise lower value id on
// the left) per spec §4.2 stage 2.
func tryRewrite(fn *ir.Function, dc *ir.DefCache, instr *ir.Instruction) bool {
	if instr.Opcode().CanTrap() {
		// Purity rule (spec §4.2 stage 2): trapping opcodes never
		// participate as rewrite targets in this bounded pass - folding
		// them would require proving the trap condition is preserved
		// exactly, which this pass does not attempt.
		return false
	}
	changed := false
	applied := 0
	nodesTried := 0
	for applied < perCallMatchLimit && nodesTried < perEclassNodeLimit {
		nodesTried++
		canonicalizeCommutative(fn, dc, instr)
		if applyRule(fn, dc, instr) {
			applied++
			changed = true
			continue
		}
		break
	}
	return changed
}

// canonicalizeCommutative swaps operands of commutative opcodes so that a
// constant operand sits on the RHS, or (if neither/both are constants) the
// lower-id value sits on the LHS - giving CSE/GVN a canonical key.
func canonicalizeCommutative(fn *ir.Function, dc *ir.DefCache, instr *ir.Instruction) {
	if !commutative(instr.Opcode()) {
		return
	}
	x, y, _, _ := instr.Args()
	if !x.Valid() || !y.Valid() {
		return
	}
	xConst := isConst(dc, x)
	yConst := isConst(dc, y)
	swap := false
	switch {
	case yConst:
		swap = false
	case xConst:
		swap = true
	default:
		swap = x.ID() > y.ID()
	}
	if swap {
		instr.SetArgs(y, x, ir.ValueInvalid, nil)
	}
}

func commutative(op ir.Opcode) bool {
	switch op {
	case ir.OpcodeIadd, ir.OpcodeImul, ir.OpcodeBand, ir.OpcodeBor, ir.OpcodeBxor,
		ir.OpcodeFadd, ir.OpcodeFmul, ir.OpcodeFmin, ir.OpcodeFmax:
		return true
	case ir.OpcodeIcmp:
		return false // condition carries direction; handled separately
	default:
		return false
	}
}

func isConst(dc *ir.DefCache, v ir.Value) bool {
	if !v.Valid() {
		return false
	}
	def := dc.Get(v)
	return def != nil && (def.Opcode() == ir.OpcodeIconst || def.Opcode() == ir.OpcodeFconst)
}

// applyRule tries the algebraic-identity / strength-reduction / constant-
// folding / comparison-normalization / select-folding rule set against
// instr once, mutating it in place on a match. A constant fold rewrites
// instr itself into an Iconst; no rule in this set rewrites a constant
// further, so folding cannot loop.
func applyRule(fn *ir.Function, dc *ir.DefCache, instr *ir.Instruction) bool {
	op := instr.Opcode()
	x, y, _, _ := instr.Args()

	// Constant folding for pure binary integer/float ops with two
	// constant operands.
	if x.Valid() && y.Valid() {
		xd, yd := dc.Get(x), dc.Get(y)
		if xd != nil && yd != nil && xd.Opcode() == ir.OpcodeIconst && yd.Opcode() == ir.OpcodeIconst {
			if folded, ok := foldIntBinary(op, instr.Return().Type(), xd.ConstValue(), yd.ConstValue()); ok {
				instr.SetOpcode(ir.OpcodeIconst)
				instr.SetConstValue(folded)
				instr.SetArgs(ir.ValueInvalid, ir.ValueInvalid, ir.ValueInvalid, nil)
				return true
			}
		}
	}

	switch op {
	case ir.OpcodeIadd:
		if yd := dc.Get(y); yd != nil && yd.Opcode() == ir.OpcodeIconst && yd.ConstValue() == 0 {
			return subsumeToCopy(instr, x)
		}
	case ir.OpcodeIsub:
		if x == y {
			instr.SetOpcode(ir.OpcodeIconst)
			instr.SetConstValue(0)
			instr.SetArgs(ir.ValueInvalid, ir.ValueInvalid, ir.ValueInvalid, nil)
			return true
		}
	case ir.OpcodeImul:
		if yd := dc.Get(y); yd != nil && yd.Opcode() == ir.OpcodeIconst {
			switch yd.ConstValue() {
			case 0:
				instr.SetOpcode(ir.OpcodeIconst)
				instr.SetConstValue(0)
				instr.SetArgs(ir.ValueInvalid, ir.ValueInvalid, ir.ValueInvalid, nil)
				return true
			case 1:
				return subsumeToCopy(instr, x)
			}
			if k := yd.ConstValue(); isPow2(k) {
				instr.SetOpcode(ir.OpcodeIshl)
				shConst := fn.CloneInstructionShallow(yd)
				shConst.SetConstValue(uint64(log2(k)))
				fn.PrependInstruction(instr.Block(), shConst)
				instr.SetArgs(x, shConst.Return(), ir.ValueInvalid, nil)
				return true
			}
		}
	case ir.OpcodeBand:
		if x == y {
			return subsumeToCopy(instr, x)
		}
	case ir.OpcodeBor:
		if x == y {
			return subsumeToCopy(instr, x)
		}
	case ir.OpcodeBxor:
		if x == y {
			instr.SetOpcode(ir.OpcodeIconst)
			instr.SetConstValue(0)
			instr.SetArgs(ir.ValueInvalid, ir.ValueInvalid, ir.ValueInvalid, nil)
			return true
		}
	case ir.OpcodeBnot:
		if xd := dc.Get(x); xd != nil && xd.Opcode() == ir.OpcodeBnot {
			return subsumeToCopy(instr, xd.Arg())
		}
	case ir.OpcodeSelect:
		cond, t, f, _ := instr.Args()
		if cd := dc.Get(cond); cd != nil && cd.Opcode() == ir.OpcodeIconst {
			if cd.ConstValue() != 0 {
				return subsumeToCopy(instr, t)
			}
			return subsumeToCopy(instr, f)
		}
	}
	return false
}

// subsumeToCopy redirects instr's result to val without merging nodes,
// mirroring the spec's subsume(a, b) operation; it turns instr into a
// Bitcast identity when types match so copyAliasResolve folds it away on
// the next canonicalization round (keeping this pass's mutation local and
// single-directional, per spec §4.2 stage 2).
func subsumeToCopy(instr *ir.Instruction, val ir.Value) bool {
	if !val.Valid() || val.Type() != instr.Return().Type() {
		return false
	}
	instr.SetOpcode(ir.OpcodeBitcast)
	instr.SetArgs(val, ir.ValueInvalid, ir.ValueInvalid, nil)
	return true
}

func isPow2(v uint64) bool { return v != 0 && v&(v-1) == 0 }

func log2(v uint64) uint64 {
	n := uint64(0)
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

func foldIntBinary(op ir.Opcode, t ir.Type, a, b uint64) (uint64, bool) {
	mask := uint64(1)<<t.Bits() - 1
	if t.Bits() == 64 {
		mask = ^uint64(0)
	}
	switch op {
	case ir.OpcodeIadd:
		return (a + b) & mask, true
	case ir.OpcodeIsub:
		return (a - b) & mask, true
	case ir.OpcodeImul:
		return (a * b) & mask, true
	case ir.OpcodeBand:
		return a & b & mask, true
	case ir.OpcodeBor:
		return (a | b) & mask, true
	case ir.OpcodeBxor:
		return (a ^ b) & mask, true
	default:
		return 0, false
	}
}
