package opt

import (
	"testing"

	"github.com/cwasmjit/cwasmjit/internal/ir"
)

func newAddFunc(t *testing.T) (*ir.Function, *ir.Builder, ir.Value, ir.Value) {
	t.Helper()
	sig := &ir.Signature{ID: 1, Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}}
	f := ir.NewFunction(sig)
	b := ir.NewBuilder(f)
	params := f.Entry().Params()
	return f, b, params[0].Value, params[1].Value
}

func TestDCERemovesUnusedPureInstruction(t *testing.T) {
	f, b, a, c := newAddFunc(t)
	_ = b.Binary(ir.OpcodeIadd, ir.TypeI32, a, c) // unused, dead
	b.SetReturn([]ir.Value{a})

	before := len(f.Entry().Instructions())
	Optimize(f, O1)
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify() after Optimize: %v", err)
	}
	after := len(f.Entry().Instructions())
	if after >= before {
		t.Errorf("expected dead iadd to be removed: before=%d after=%d", before, after)
	}
}

func TestDCEPreservesSideEffectingInstructions(t *testing.T) {
	f, b, a, _ := newAddFunc(t)
	// A div can trap; its result is unused but it must survive DCE.
	b.Binary(ir.OpcodeSdiv, ir.TypeI32, a, a)
	b.SetReturn([]ir.Value{a})

	Optimize(f, O1)
	found := false
	for _, blk := range f.Blocks() {
		for _, instr := range blk.Instructions() {
			if instr.Opcode() == ir.OpcodeSdiv {
				found = true
			}
		}
	}
	if !found {
		t.Error("trapping sdiv must not be deleted even though its result is unused")
	}
}

func TestCopyAliasResolveIdentitySelect(t *testing.T) {
	f, b, a, c := newAddFunc(t)
	sel := b.Select(c, a, a) // both arms identical: sel is just `a`
	b.SetReturn([]ir.Value{sel})

	f.RunDominance()
	changed := copyAliasResolve(f)
	if !changed {
		t.Fatal("copyAliasResolve should report a change")
	}
	if got := f.Entry().ReturnValues()[0]; got != a {
		t.Errorf("return value = %s, want %s (redirected through identity select)", got, a)
	}
}

func TestGVNDeduplicatesIdenticalPureOps(t *testing.T) {
	f, b, a, c := newAddFunc(t)
	x := b.Binary(ir.OpcodeIadd, ir.TypeI32, a, c)
	y := b.Binary(ir.OpcodeIadd, ir.TypeI32, a, c) // structurally identical to x
	sum := b.Binary(ir.OpcodeIadd, ir.TypeI32, x, y)
	b.SetReturn([]ir.Value{sum})

	f.RunDominance()
	changed := gvnCSE(f)
	if !changed {
		t.Fatal("gvnCSE should report a change for the duplicate iadd")
	}

	var iadds int
	for _, instr := range f.Entry().Instructions() {
		if instr.Opcode() == ir.OpcodeIadd {
			iadds++
		}
	}
	// x+y collapses to one iadd of (a,c); the final sum instruction remains.
	if iadds != 2 {
		t.Errorf("iadd count after CSE = %d, want 2 (deduped a+c, plus the outer sum)", iadds)
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	f, b, a, c := newAddFunc(t)
	x := b.Binary(ir.OpcodeIadd, ir.TypeI32, a, c)
	y := b.Binary(ir.OpcodeIadd, ir.TypeI32, a, c)
	sum := b.Binary(ir.OpcodeIadd, ir.TypeI32, x, y)
	dead := b.Binary(ir.OpcodeImul, ir.TypeI32, a, c)
	_ = dead
	b.SetReturn([]ir.Value{sum})

	Optimize(f, O2)
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify() after first Optimize: %v", err)
	}
	firstCount := 0
	for _, blk := range f.Blocks() {
		firstCount += len(blk.Instructions())
	}

	Optimize(f, O2)
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify() after second Optimize: %v", err)
	}
	secondCount := 0
	for _, blk := range f.Blocks() {
		secondCount += len(blk.Instructions())
	}

	if firstCount != secondCount {
		t.Errorf("optimize is not idempotent on instruction count: %d vs %d", firstCount, secondCount)
	}
}

func TestOptimizeFoldsConstantBranch(t *testing.T) {
	sig := &ir.Signature{ID: 1, Results: []ir.Type{ir.TypeI32}}
	f := ir.NewFunction(sig)
	b := ir.NewBuilder(f)

	then := f.AppendBlockParamsBlock(nil)
	els := f.AppendBlockParamsBlock(nil)

	cond := b.Iconst(ir.TypeI32, 1)
	b.AddPred(then, f.Entry())
	b.AddPred(els, f.Entry())
	b.SetBrIf(cond, then, els, nil, nil)
	b.Seal(then)
	b.Seal(els)

	b.SetCurrentBlock(then)
	tenVal := b.Iconst(ir.TypeI32, 10)
	b.SetReturn([]ir.Value{tenVal})

	b.SetCurrentBlock(els)
	twentyVal := b.Iconst(ir.TypeI32, 20)
	b.SetReturn([]ir.Value{twentyVal})

	Optimize(f, O2)
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify() after Optimize: %v", err)
	}
	// Constant-condition folding collapses the branch to a direct jump to
	// "then", and block merging then splices "then" into the entry block
	// (single pred/single succ), leaving one block that returns 10.
	if f.Entry().Terminator() != ir.TermReturn {
		t.Errorf("entry terminator = %v, want TermReturn after branch folding + block merge", f.Entry().Terminator())
	}
	if len(f.Entry().ReturnValues()) != 1 {
		t.Fatalf("entry return values = %v, want exactly 1", f.Entry().ReturnValues())
	}
}
