package ir

import "testing"

// buildLoop constructs a single natural loop:
//
//	entry -> header -> body -> header (back edge)
//	header -> exit (loop condition false)
func buildLoop(t *testing.T) *Function {
	t.Helper()
	sig := &Signature{ID: 1, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)

	header := f.AllocateBasicBlock()
	body := f.AllocateBasicBlock()
	exit := f.AllocateBasicBlock()

	b.AddPred(header, f.Entry())
	b.SetJump(header, nil)
	// header has two preds (entry, body) so it cannot be sealed until the
	// back edge from body is known; leave it unsealed for now.

	b.SetCurrentBlock(header)
	cond := b.Iconst(TypeI32, 1)
	b.AddPred(body, header)
	b.AddPred(exit, header)
	b.SetBrIf(cond, body, exit, nil, nil)
	b.Seal(exit)

	b.SetCurrentBlock(body)
	b.AddPred(header, body)
	b.SetJump(header, nil)
	b.Seal(header) // now both entry and body preds are known
	b.Seal(body)

	b.SetCurrentBlock(exit)
	b.SetReturn([]Value{b.Iconst(TypeI32, 0)})

	return f
}

func TestRunDominanceLoopDepth(t *testing.T) {
	f := buildLoop(t)
	f.RunDominance()

	if err := f.Verify(); err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}

	var header, body, exit *BasicBlock
	for _, blk := range f.Blocks() {
		switch blk.Terminator() {
		case TermBrIf:
			header = blk
		case TermJump:
			body = blk
		case TermReturn:
			exit = blk
		}
	}
	if header == nil || body == nil || exit == nil {
		t.Fatal("failed to identify header/body/exit blocks")
	}
	if header.LoopDepth() < 1 {
		t.Errorf("header loop depth = %d, want >= 1", header.LoopDepth())
	}
	if body.LoopDepth() < 1 {
		t.Errorf("body loop depth = %d, want >= 1", body.LoopDepth())
	}
	if f.Entry().RPOIndex() != 0 {
		t.Errorf("entry RPOIndex = %d, want 0", f.Entry().RPOIndex())
	}
}

func TestRunDominanceUnreachableBlockHasNegativeIndex(t *testing.T) {
	sig := &Signature{ID: 2, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)
	b.SetReturn([]Value{b.Iconst(TypeI32, 0)})

	unreachable := f.AllocateBasicBlock()
	b.Seal(unreachable)

	f.RunDominance()
	if unreachable.RPOIndex() != -1 {
		t.Errorf("unreachable block RPOIndex = %d, want -1", unreachable.RPOIndex())
	}
}
