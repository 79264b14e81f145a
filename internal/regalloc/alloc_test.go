package regalloc

import (
	"testing"

	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

func TestAllocateSimpleAddFunction(t *testing.T) {
	f := vcode.NewFunction("add", 0)
	blk := f.AppendBlock()

	v0 := f.NewVReg(vcode.RegClassInt)
	v1 := f.NewVReg(vcode.RegClassInt)
	sum := f.NewVReg(vcode.RegClassInt)
	f.ParamRegs = []vcode.VReg{v0, v1}
	f.ResultRegs = []vcode.VReg{sum}

	blk.Insts = append(blk.Insts, &vcode.Inst{
		Op: vcode.OpAddReg, Defs: []vcode.VReg{sum}, Uses: []vcode.VReg{v0, v1}, Width: 32,
	})
	blk.Term = vcode.Terminator{Kind: vcode.TermReturn}

	res := Allocate(f)
	if res.NumSpillSlots != 0 {
		t.Errorf("NumSpillSlots = %d, want 0 for a 3-vreg function", res.NumSpillSlots)
	}

	r0, ok0 := f.Assignments[v0]
	r1, ok1 := f.Assignments[v1]
	rs, oks := f.Assignments[sum]
	if !ok0 || !ok1 || !oks {
		t.Fatalf("expected every vreg to receive a physical register: v0=%v v1=%v sum=%v", ok0, ok1, oks)
	}
	if r0 == r1 || r0 == rs || r1 == rs {
		t.Errorf("live, simultaneously-overlapping vregs must not share a physical register: v0=%v v1=%v sum=%v", r0, r1, rs)
	}
}

func TestAllocatePreColoredVRegIsReserved(t *testing.T) {
	f := vcode.NewFunction("f", 0)
	blk := f.AppendBlock()

	arg := f.NewVReg(vcode.RegClassInt)
	f.Assignments[arg] = vcode.RealReg(0) // pre-colored, e.g. an ABI-fixed entry param

	other := f.NewVReg(vcode.RegClassInt)
	blk.Insts = append(blk.Insts, &vcode.Inst{
		Op: vcode.OpAddImm, Defs: []vcode.VReg{other}, Uses: []vcode.VReg{arg}, Imm: 1, Width: 32,
	})
	f.ResultRegs = []vcode.VReg{other}
	blk.Term = vcode.Terminator{Kind: vcode.TermReturn}

	Allocate(f)
	if got := f.Assignments[arg]; got != vcode.RealReg(0) {
		t.Errorf("pre-colored vreg must keep its fixed register, got %v", got)
	}
	if got := f.Assignments[other]; got == vcode.RealReg(0) {
		t.Error("a simultaneously-live vreg must not be placed in the pre-colored register")
	}
}
