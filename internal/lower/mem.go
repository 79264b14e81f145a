package lower

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

// effectiveAddr builds the AddrMode for a linear-memory access at the given
// index value and MemArg, selecting the Index-fused amode (no extra ADD)
// when the static offset is zero, or folding memory_base+index into one
// temp register followed by an immediate-offset access otherwise (spec
// §4.3 "memory address fusion"). idx64 must already be the zero-extended
// 64-bit index.
func (lw *lowerer) effectiveAddr(idx64 vcode.VReg, mem ir.MemArg) (indexed bool, mode vcode.AddrMode) {
	if mem.Offset == 0 {
		return true, vcode.AddrMode{Base: lw.memBaseReg(), Index: idx64, IndexSet: true}
	}
	eff := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpAddReg, Defs: []vcode.VReg{eff}, Uses: []vcode.VReg{lw.memBaseReg(), idx64}, Width: 64})
	return false, vcode.AddrMode{Base: eff, ImmOffset: int64(mem.Offset)}
}

func (lw *lowerer) emitBoundsCheck(idx64 vcode.VReg, mem ir.MemArg) {
	accessBytes := int64(mem.Width) / 8
	lw.emit(&vcode.Inst{
		Op:         vcode.OpBoundsCheck,
		Uses:       []vcode.VReg{idx64, lw.memSizeReg()},
		Imm:        int64(mem.Offset) + accessBytes,
		WasmOffset: mem.Offset,
	})
}

// widenIndex zero-extends a Wasm i32 memory index into a 64-bit vreg (Wasm
// MVP linear memory addressing is always 32-bit; memory64 is not
// supported).
func (lw *lowerer) widenIndex(idx ir.Value) vcode.VReg {
	src := lw.vreg(idx)
	dst := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{src}, Signed: false, Width: 32})
	return dst
}

func (lw *lowerer) lowerLoad(instr *ir.Instruction) {
	idx := instr.Arg()
	mem := instr.MemArg()
	v, _ := instr.Returns()
	idx64 := lw.widenIndex(idx)
	lw.emitBoundsCheck(idx64, mem)

	indexed, mode := lw.effectiveAddr(idx64, mem)
	op := vcode.OpLdrImm
	if indexed {
		op = vcode.OpLdrAmode
	}
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{
		Op: op, Defs: []vcode.VReg{dst}, Mode: mode,
		Width: mem.Width, Signed: mem.Signed, IsFloat: v.Type().IsFloat(), Double: v.Type() == ir.TypeF64,
		WasmOffset: mem.Offset,
	})
}

func (lw *lowerer) lowerStore(instr *ir.Instruction) {
	idx, val := instr.Arg2()
	mem := instr.MemArg()
	idx64 := lw.widenIndex(idx)
	lw.emitBoundsCheck(idx64, mem)

	indexed, mode := lw.effectiveAddr(idx64, mem)
	op := vcode.OpStrImm
	if indexed {
		op = vcode.OpStrAmode
	}
	lw.emit(&vcode.Inst{
		Op: op, Uses: []vcode.VReg{lw.vreg(val)}, Mode: mode,
		Width: mem.Width, IsFloat: val.Type().IsFloat(), Double: val.Type() == ir.TypeF64,
		WasmOffset: mem.Offset,
	})
}

// lowerMemorySize reads the cached byte count (RegMemSize) and divides by
// the Wasm page size (65536) to produce the page count Wasm's memory.size
// returns.
func (lw *lowerer) lowerMemorySize(instr *ir.Instruction) {
	sizeReg := lw.memSizeReg()
	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpLsrImm, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{sizeReg}, Imm: 16, Width: 64})
}

// lowerMemoryGrow lowers memory.grow as a host call through the
// JITContext's grow-memory trampoline (spec §4.5's "host-call cache-reload
// sequence"): the delta (in pages) is passed in X0, the call returns the
// previous page count in X0 (or -1 on failure), and because growth may
// move the backing allocation, RegMemBase/RegMemSize are reloaded from
// JITContext immediately after the call rather than trusted to still hold
// their pre-call values.
func (lw *lowerer) lowerMemoryGrow(instr *ir.Instruction) {
	delta := instr.Arg()
	argReg := lw.fixed(vcode.RegClassInt, 0)
	lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{argReg}, Uses: []vcode.VReg{lw.vreg(delta)}, Width: 64})

	resReg := lw.fixed(vcode.RegClassInt, 0)
	lw.emit(&vcode.Inst{
		Op: vcode.OpMemGrow, Defs: []vcode.VReg{resReg}, Uses: []vcode.VReg{argReg, lw.contextReg()},
		CallClobbers: append([]vcode.RealReg{}, vcode.IntEnv.Preferred...),
	})

	// Reload the cached base/size from the (possibly relocated) memory
	// after growth. These fixed-colored defs take over RegMemBase/
	// RegMemSize for the remainder of the function.
	newBase := lw.fixed(vcode.RegClassInt, vcode.RegMemBase)
	newSize := lw.fixed(vcode.RegClassInt, vcode.RegMemSize)
	lw.emit(&vcode.Inst{Op: vcode.OpLdrImm, Defs: []vcode.VReg{newBase}, Mode: vcode.AddrMode{Base: lw.contextReg(), ImmOffset: ctxOffsetMemoryBase}, Width: 64})
	lw.emit(&vcode.Inst{Op: vcode.OpLdrImm, Defs: []vcode.VReg{newSize}, Mode: vcode.AddrMode{Base: lw.contextReg(), ImmOffset: ctxOffsetMemorySize}, Width: 64})

	dst := lw.defVReg(instr)
	lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{resReg}, Width: 32})
}

// ctxOffsetMemoryBase/ctxOffsetMemorySize are byte offsets of the
// memory_base/memory_size fields within JITContext (spec §3.4's header
// layout: func_table@0, indirect_table@8, memory_base@16, memory_size@24),
// duplicated here from internal/runtime's authoritative layout to avoid an
// import cycle (runtime depends on vcode/emit output, not the other way
// around); nothing checks that the two copies stay in sync.
const (
	ctxOffsetFuncTable    = 0
	ctxOffsetIndirectTbl  = 8
	ctxOffsetMemoryBase   = 16
	ctxOffsetMemorySize   = 24
	ctxOffsetIndirectTbls = 32
	ctxOffsetTableCount   = 40
)

func (lw *lowerer) lowerSelect(instr *ir.Instruction) {
	cond, ifTrue, ifFalse, _ := instr.Args()
	v, _ := instr.Returns()
	cls := classOf(v.Type())

	if cmp, ok := lw.sameBlock(cond); ok && lw.single(cond) && (cmp.Opcode() == ir.OpcodeIcmp || cmp.Opcode() == ir.OpcodeFcmp) {
		var vcCond vcode.Cond
		if cmp.Opcode() == ir.OpcodeIcmp {
			ca, cb := cmp.Arg2()
			lw.emitIntCmp(ca, cb)
			vcCond = vcode.FromIntCmp(int(cmp.IntCmpCond()), true)
		} else {
			ca, cb := cmp.Arg2()
			lw.emit(&vcode.Inst{Op: vcode.OpCmpReg, Uses: []vcode.VReg{lw.vreg(ca), lw.vreg(cb)}, IsFloat: true, Double: isDouble(ca.Type())})
			vcCond = floatCond(cmp.FloatCmpCond())
		}
		dst := lw.defVReg(instr)
		if cls == vcode.RegClassFloat {
			lw.emit(&vcode.Inst{Op: vcode.OpFcselCmp, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(ifTrue), lw.vreg(ifFalse)}, Cond: vcCond, IsFloat: true, Double: isDouble(v.Type())})
		} else {
			lw.emit(&vcode.Inst{Op: vcode.OpCsel, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(ifTrue), lw.vreg(ifFalse)}, Cond: vcCond, Width: v.Type().Bits()})
		}
		return
	}

	// Fall back: materialize the condition as a 0/1 GPR, compare against 0.
	condReg := lw.vreg(cond)
	lw.emit(&vcode.Inst{Op: vcode.OpCmpImm, Uses: []vcode.VReg{condReg}, Imm: 0, Width: 32})
	dst := lw.defVReg(instr)
	if cls == vcode.RegClassFloat {
		lw.emit(&vcode.Inst{Op: vcode.OpFcselCmp, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(ifTrue), lw.vreg(ifFalse)}, Cond: vcode.CondNE, IsFloat: true, Double: isDouble(v.Type())})
	} else {
		lw.emit(&vcode.Inst{Op: vcode.OpCsel, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(ifTrue), lw.vreg(ifFalse)}, Cond: vcode.CondNE, Width: v.Type().Bits()})
	}
}

// emitIntCmp emits a CMP (register or immediate) for a,b without
// materializing a Cset - used by both select fusion and BrIf fusion.
func (lw *lowerer) emitIntCmp(a, b ir.Value) {
	width := a.Type().Bits()
	av := lw.vreg(a)
	if bits, ok := lw.asConstImm(b); ok && fitsAddImm12(int64(bits)) {
		lw.emit(&vcode.Inst{Op: vcode.OpCmpImm, Uses: []vcode.VReg{av}, Imm: int64(bits), Width: width})
		return
	}
	lw.emit(&vcode.Inst{Op: vcode.OpCmpReg, Uses: []vcode.VReg{av, lw.vreg(b)}, Width: width})
}
