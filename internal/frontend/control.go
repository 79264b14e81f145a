package frontend

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/wasm"
)

// closeInto, if the current block hasn't already been terminated by an
// unreachable/br/return/br_table inside this frame, jumps into target with
// the top argCount stack values and records the predecessor edge.
func (t *translator) closeInto(target *ir.BasicBlock, argCount int) {
	if t.b.CurrentBlock().Terminator() != ir.TermInvalid {
		return
	}
	args := t.popN(argCount)
	t.b.SetJump(target, args)
	t.b.AddPred(target, t.b.CurrentBlock())
}

func (t *translator) enterBlock(bt wasm.BlockType) {
	after := t.f.AppendBlockParamsBlock(bt.Results)
	t.ctrl = append(t.ctrl, &controlFrame{
		kind: ctrlBlock, blockType: bt, branchTarget: after, afterBlock: after,
		stackHeightAtEntry: len(t.stack) - len(bt.Params),
	})
}

func (t *translator) enterLoop(bt wasm.BlockType) {
	header := t.f.AppendBlockParamsBlock(bt.Params)
	t.closeInto(header, len(bt.Params))
	t.ctrl = append(t.ctrl, &controlFrame{
		kind: ctrlLoop, blockType: bt, branchTarget: header, afterBlock: nil,
		stackHeightAtEntry: len(t.stack),
	})
	t.b.SetCurrentBlock(header)
	for _, p := range header.Params() {
		t.push(p.Value)
	}
}

func (t *translator) enterIf(bt wasm.BlockType) {
	cond := t.pop()
	then := t.f.AppendBlockParamsBlock(bt.Params)
	els := t.f.AppendBlockParamsBlock(bt.Params)
	after := t.f.AppendBlockParamsBlock(bt.Results)

	args := t.popN(len(bt.Params))
	t.b.SetBrIf(cond, then, els, args, args)
	t.b.AddPred(then, t.b.CurrentBlock())
	t.b.AddPred(els, t.b.CurrentBlock())
	t.b.Seal(then)
	t.b.Seal(els)

	t.ctrl = append(t.ctrl, &controlFrame{
		kind: ctrlIf, blockType: bt, branchTarget: after, afterBlock: after, elseBlock: els,
		stackHeightAtEntry: len(t.stack),
	})
	t.b.SetCurrentBlock(then)
	for _, p := range then.Params() {
		t.push(p.Value)
	}
}

func (t *translator) enterElse() {
	frame := t.curFrame()
	frame.sawElse = true
	frame.unreachable = false // the else arm starts fresh, even if `then` diverged
	t.closeInto(frame.afterBlock, len(frame.blockType.Results))

	t.stack = t.stack[:frame.stackHeightAtEntry]
	t.b.SetCurrentBlock(frame.elseBlock)
	for _, p := range frame.elseBlock.Params() {
		t.push(p.Value)
	}
}

func (t *translator) leaveFrame() {
	frame := t.curFrame()
	t.ctrl = t.ctrl[:len(t.ctrl)-1]

	switch frame.kind {
	case ctrlLoop:
		t.b.Seal(frame.branchTarget) // the loop header
		// Fallthrough continues in whatever block we ended in; no merge.
	case ctrlIf:
		if !frame.sawElse {
			// Implicit else: identity passthrough, params == results.
			t.closeInto(frame.afterBlock, len(frame.blockType.Results))
			t.stack = t.stack[:frame.stackHeightAtEntry]
			t.b.SetCurrentBlock(frame.elseBlock)
			for _, p := range frame.elseBlock.Params() {
				t.push(p.Value)
			}
		}
		t.closeInto(frame.afterBlock, len(frame.blockType.Results))
		t.b.Seal(frame.afterBlock)
		t.stack = t.stack[:frame.stackHeightAtEntry]
		t.b.SetCurrentBlock(frame.afterBlock)
		for _, p := range frame.afterBlock.Params() {
			t.push(p.Value)
		}
	case ctrlBlock:
		t.closeInto(frame.afterBlock, len(frame.blockType.Results))
		t.b.Seal(frame.afterBlock)
		t.stack = t.stack[:frame.stackHeightAtEntry]
		t.b.SetCurrentBlock(frame.afterBlock)
		for _, p := range frame.afterBlock.Params() {
			t.push(p.Value)
		}
	}
	if len(t.ctrl) > 0 && t.ctrl[len(t.ctrl)-1].unreachable {
		// A previously-unreachable enclosing frame becomes reachable again
		// only via explicit branches into it, already handled by AddPred;
		// its `unreachable` flag governs *its own* tail, not blocks we just
		// switched into above.
	}
}

func (t *translator) branchArity(depth int) (target *ir.BasicBlock, argCount int) {
	frame := t.ctrl[len(t.ctrl)-1-depth]
	if frame.kind == ctrlLoop {
		return frame.branchTarget, len(frame.blockType.Params)
	}
	return frame.branchTarget, len(frame.blockType.Results)
}

func (t *translator) br(depth int) {
	target, n := t.branchArity(depth)
	args := t.popN(n)
	t.b.SetJump(target, args)
	t.b.AddPred(target, t.b.CurrentBlock())
}

func (t *translator) brIf(depth int) {
	cond := t.pop()
	target, n := t.branchArity(depth)
	args := append([]ir.Value{}, t.stack[len(t.stack)-n:]...)
	cont := t.f.AllocateBasicBlock()
	t.b.SetBrIf(cond, target, cont, args, nil)
	t.b.AddPred(target, t.b.CurrentBlock())
	t.b.AddPred(cont, t.b.CurrentBlock())
	t.b.Seal(cont)
	t.b.SetCurrentBlock(cont)
}

func (t *translator) brTable(relDepths []uint32, def uint32) {
	idx := t.pop()
	defTarget, n := t.branchArity(int(def))
	args := t.popN(n)
	targets := make([]*ir.BasicBlock, len(relDepths))
	for i, d := range relDepths {
		tgt, _ := t.branchArity(int(d))
		targets[i] = tgt
		t.b.AddPred(tgt, t.b.CurrentBlock())
	}
	t.b.AddPred(defTarget, t.b.CurrentBlock())
	t.b.SetBrTable(idx, targets, defTarget, args)
}

func (t *translator) select_() {
	cond := t.pop()
	f := t.pop()
	v := t.pop()
	t.push(t.b.Select(cond, v, f))
}

func (t *translator) refIsNull() { t.push(t.b.RefIsNull(t.pop())) }
