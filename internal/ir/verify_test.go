package ir

import "testing"

func TestVerifyPassesOnWellFormedFunction(t *testing.T) {
	f, _ := buildDiamond(t)
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestVerifyCatchesMissingTerminator(t *testing.T) {
	sig := &Signature{ID: 1, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)
	b.Iconst(TypeI32, 1) // leave the entry block without a terminator
	_ = b

	if err := f.Verify(); err == nil {
		t.Fatal("Verify() = nil, want an error for a block with no terminator")
	}
}

func TestVerifyCatchesArityMismatch(t *testing.T) {
	sig := &Signature{ID: 1}
	f := NewFunction(sig)
	b := NewBuilder(f)

	target := f.AppendBlockParamsBlock([]Type{TypeI32})
	b.AddPred(target, f.Entry())
	// Deliberately supply zero arguments where the target expects one.
	b.SetJump(target, nil)
	b.Seal(target)

	b.SetCurrentBlock(target)
	b.SetReturn(nil)

	if err := f.Verify(); err == nil {
		t.Fatal("Verify() = nil, want an arity-mismatch error")
	}
}

func TestVerifyCatchesTypeMismatch(t *testing.T) {
	sig := &Signature{ID: 1}
	f := NewFunction(sig)
	b := NewBuilder(f)

	target := f.AppendBlockParamsBlock([]Type{TypeI64})
	b.AddPred(target, f.Entry())
	wrongTyped := b.Iconst(TypeI32, 5)
	b.SetJump(target, []Value{wrongTyped})
	b.Seal(target)

	b.SetCurrentBlock(target)
	b.SetReturn(nil)

	if err := f.Verify(); err == nil {
		t.Fatal("Verify() = nil, want a type-mismatch error")
	}
}
