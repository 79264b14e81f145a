package ir

import "testing"

func TestComputeRefCountsAndUsed(t *testing.T) {
	sig := &Signature{ID: 1, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)

	x := b.Iconst(TypeI32, 1)
	y := b.Iconst(TypeI32, 2)
	sum := b.Binary(OpcodeIadd, TypeI32, x, y)
	b.SetReturn([]Value{sum})

	f.ComputeRefCounts()
	if !f.Used(x) {
		t.Error("x should be used (operand of iadd)")
	}
	if !f.Used(y) {
		t.Error("y should be used (operand of iadd)")
	}
	if !f.Used(sum) {
		t.Error("sum should be used (return value)")
	}
}

func TestReplaceAllUses(t *testing.T) {
	sig := &Signature{ID: 1, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)

	x := b.Iconst(TypeI32, 1)
	y := b.Iconst(TypeI32, 2)
	sum := b.Binary(OpcodeIadd, TypeI32, x, y)
	b.SetReturn([]Value{sum})

	z := b.Iconst(TypeI32, 99)
	f.ReplaceAllUses(x, z)

	found := false
	for _, blk := range f.Blocks() {
		for i := blk.first; i != nil; i = i.next {
			if i.Opcode() == OpcodeIadd {
				v1, v2 := i.Arg2()
				if v1 != z {
					t.Errorf("iadd operand 1 = %s, want replaced value %s", v1, z)
				}
				if v2 != y {
					t.Errorf("iadd operand 2 = %s, want unchanged %s", v2, y)
				}
				found = true
			}
		}
	}
	if !found {
		t.Fatal("iadd instruction not found")
	}
}

func TestRemoveInstructionUnlinks(t *testing.T) {
	sig := &Signature{ID: 1, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)

	x := b.Iconst(TypeI32, 1)
	dead := b.Iconst(TypeI32, 2)
	b.SetReturn([]Value{x})

	blk := f.Entry()
	var deadInstr *Instruction
	for i := blk.first; i != nil; i = i.next {
		if i.Return() == dead {
			deadInstr = i
		}
	}
	if deadInstr == nil {
		t.Fatal("dead instruction not found")
	}
	f.RemoveInstruction(deadInstr)

	for i := blk.first; i != nil; i = i.next {
		if i.Return() == dead {
			t.Fatal("removed instruction still linked into block")
		}
	}
}

func TestCloneInstructionShallowAllocatesFreshValue(t *testing.T) {
	sig := &Signature{ID: 1, Results: []Type{TypeI32}}
	f := NewFunction(sig)
	b := NewBuilder(f)

	x := b.Iconst(TypeI32, 7)
	b.SetReturn([]Value{x})

	var src *Instruction
	for i := f.Entry().first; i != nil; i = i.next {
		if i.Return() == x {
			src = i
		}
	}
	clone := f.CloneInstructionShallow(src)
	if clone.Return() == src.Return() {
		t.Error("clone should get a fresh result value")
	}
	if clone.Opcode() != src.Opcode() {
		t.Errorf("clone opcode = %v, want %v", clone.Opcode(), src.Opcode())
	}
	if clone.ConstValue() != src.ConstValue() {
		t.Errorf("clone const value = %d, want %d", clone.ConstValue(), src.ConstValue())
	}
}
