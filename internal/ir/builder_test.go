package ir

import "testing"

// buildDiamond constructs:
//
//	entry: v0 = iconst 1 (cond)
//	       brif v0, then, els
//	then:  x := 10; jump merge
//	els:   x := 20; jump merge
//	merge: return x
//
// where x is a Builder Variable resolved to a block parameter at merge.
func buildDiamond(t *testing.T) (*Function, *Builder) {
	t.Helper()
	sig := &Signature{ID: 1, Params: nil, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)

	x := b.DeclareVariable(TypeI32)

	then := f.AllocateBasicBlock()
	els := f.AllocateBasicBlock()
	merge := f.AllocateBasicBlock()

	cond := b.Iconst(TypeI32, 1)
	b.AddPred(then, f.Entry())
	b.AddPred(els, f.Entry())
	b.SetBrIf(cond, then, els, nil, nil)
	b.Seal(then)
	b.Seal(els)

	b.SetCurrentBlock(then)
	tenVal := b.Iconst(TypeI32, 10)
	b.DefineVariableInCurrentBB(x, tenVal)
	b.AddPred(merge, then)
	b.SetJump(merge, nil)

	b.SetCurrentBlock(els)
	twentyVal := b.Iconst(TypeI32, 20)
	b.DefineVariableInCurrentBB(x, twentyVal)
	b.AddPred(merge, els)
	b.SetJump(merge, nil)

	b.Seal(merge)
	b.SetCurrentBlock(merge)
	resolved := b.FindValue(x)
	b.SetReturn([]Value{resolved})

	return f, b
}

func TestBuilderDiamondMergeInsertsBlockParam(t *testing.T) {
	f, _ := buildDiamond(t)

	var merge *BasicBlock
	for _, blk := range f.Blocks() {
		if blk.Terminator() == TermReturn {
			merge = blk
		}
	}
	if merge == nil {
		t.Fatal("no merge block found")
	}
	if len(merge.Params()) != 1 {
		t.Fatalf("merge block should have 1 param from the unsealed read, got %d", len(merge.Params()))
	}

	if err := f.Verify(); err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
}

func TestBuilderTerminatorArgArityMatchesParams(t *testing.T) {
	f, _ := buildDiamond(t)
	for _, blk := range f.Blocks() {
		for idx, target := range blk.Targets() {
			if target == nil {
				continue
			}
			if got, want := len(blk.TermArgs(idx)), len(target.Params()); got != want {
				t.Errorf("block %s -> %s: %d args, %d params", blk, target, got, want)
			}
		}
	}
}

func TestBuilderSingleCopyPredElision(t *testing.T) {
	// A variable read through a single-predecessor chain should not force
	// a block parameter; FindValue should resolve straight through.
	sig := &Signature{ID: 2, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)

	x := b.DeclareVariable(TypeI32)
	v := b.Iconst(TypeI32, 7)
	b.DefineVariableInCurrentBB(x, v)

	next := f.AllocateBasicBlock()
	b.AddPred(next, f.Entry())
	b.SetJump(next, nil)
	b.Seal(next)

	b.SetCurrentBlock(next)
	got := b.FindValue(x)
	if got != v {
		t.Errorf("FindValue through single pred = %s, want %s (no new param)", got, v)
	}
	if len(next.Params()) != 0 {
		t.Errorf("single-pred block should not gain a parameter, got %d", len(next.Params()))
	}
}

func TestFunctionAllocateValueTypesGrowLazily(t *testing.T) {
	sig := &Signature{ID: 3}
	f := NewFunction(sig)
	b := NewBuilder(f)
	v1 := b.Iconst(TypeI32, 1)
	v2 := b.Iconst(TypeI64, 2)
	if v1.Type() != TypeI32 {
		t.Errorf("v1 type = %v, want i32", v1.Type())
	}
	if v2.Type() != TypeI64 {
		t.Errorf("v2 type = %v, want i64", v2.Type())
	}
	if f.NumValues() < 2 {
		t.Errorf("NumValues() = %d, want >= 2", f.NumValues())
	}
}
