package lower

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

// marshalArgsToABI shuffles args into X0-X7/D0-D7 ahead of a call site,
// mirroring marshalEntryParams' counting convention (spec §4.5).
func (lw *lowerer) marshalArgsToABI(args []ir.Value) []vcode.VReg {
	intIdx, floatIdx := 0, 0
	var fixedArgs []vcode.VReg
	for _, a := range args {
		cls := classOf(a.Type())
		var r vcode.RealReg
		if cls == vcode.RegClassFloat {
			if floatIdx >= 8 {
				panic(&ErrUnsupportedIROp{Op: ir.OpcodeInvalid})
			}
			r = vcode.RealReg(floatIdx)
			floatIdx++
		} else {
			if intIdx >= 8 {
				panic(&ErrUnsupportedIROp{Op: ir.OpcodeInvalid})
			}
			r = vcode.RealReg(intIdx)
			intIdx++
		}
		dst := lw.fixed(cls, r)
		lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{lw.vreg(a)}, Width: a.Type().Bits(), IsFloat: cls == vcode.RegClassFloat, Double: a.Type() == ir.TypeF64})
		fixedArgs = append(fixedArgs, dst)
	}
	return fixedArgs
}

// callClobbers is the full caller-saved register set a direct/indirect
// call may clobber (spec §4.4 step 7's call-clobber accounting).
func callClobbers() []vcode.RealReg {
	var out []vcode.RealReg
	out = append(out, vcode.IntEnv.Preferred...)
	out = append(out, vcode.FloatEnv.Preferred...)
	return out
}

// callResultValues flattens a call instruction's result list into the
// order bindCallResults/lowerCall's extra-res setup both iterate.
func callResultValues(instr *ir.Instruction) []ir.Value {
	first, rest := instr.Returns()
	all := append([]ir.Value{}, rest...)
	if first.Valid() {
		all = append([]ir.Value{first}, all...)
	}
	return all
}

// extraResBytes returns the number of bytes this call's results need in
// the shared extra-results scratch buffer: any result beyond the first
// two of its RegClass (spec §4.5's extra-results convention).
func extraResBytes(vals []ir.Value) int {
	intIdx, floatIdx, extra := 0, 0, 0
	for _, v := range vals {
		var idx *int
		if classOf(v.Type()) == vcode.RegClassFloat {
			idx = &floatIdx
		} else {
			idx = &intIdx
		}
		if *idx >= maxRegResultsPerClass {
			extra++
		}
		*idx++
	}
	return extra * 8
}

// setupExtraResBuf runs before a call whose results overflow the
// register-per-class cap: it reserves this function's shared
// extra-results scratch region (growing it if a prior call site needed
// less) and passes its address to the callee in X7, mirroring the
// prologue convention a multi-result callee uses to capture X7 into
// RegExtraRes.
func (lw *lowerer) setupExtraResBuf(vals []ir.Value) {
	bytes := extraResBytes(vals)
	if bytes == 0 {
		return
	}
	if bytes > lw.vf.ExtraResBufBytes {
		lw.vf.ExtraResBufBytes = bytes
	}
	addr := lw.vf.NewVReg(vcode.RegClassInt)
	lw.emit(&vcode.Inst{Op: vcode.OpExtraResBufAddr, Defs: []vcode.VReg{addr}})
	dst := lw.fixed(vcode.RegClassInt, 7)
	lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{addr}, Width: 64})
}

func (lw *lowerer) lowerCall(instr *ir.Instruction) {
	_, _, _, args := instr.Args()
	vals := callResultValues(instr)
	lw.marshalArgsToABI(args)
	lw.setupExtraResBuf(vals)

	lw.emit(&vcode.Inst{Op: vcode.OpCall, CallTarget: instr.FuncIndex(), CallSig: uint32(instr.Signature()), CallClobbers: callClobbers()})
	lw.bindCallResults(vals)
}

func (lw *lowerer) lowerCallIndirect(instr *ir.Instruction) {
	idx, _, _, args := instr.Args()
	idxReg := lw.vreg(idx)
	vals := callResultValues(instr)
	lw.marshalArgsToABI(args)
	lw.setupExtraResBuf(vals)

	// Indirect-call dispatch: bounds-check idx against the table length,
	// fetch the function pointer + signature tag through the cached
	// indirect table (RegIndirect), and trap on a signature mismatch
	// before transferring control (spec §4.6 "indirect call" traps).
	lw.emit(&vcode.Inst{Op: vcode.OpBoundsCheck, Uses: []vcode.VReg{idxReg, lw.indirectReg()}, Imm: 1})
	lw.emit(&vcode.Inst{
		Op: vcode.OpCallIndirect, Uses: []vcode.VReg{idxReg, lw.indirectReg()},
		CallSig: uint32(instr.Signature()), CallClobbers: callClobbers(),
	})
	lw.bindCallResults(vals)
}

func (lw *lowerer) bindCallResults(vals []ir.Value) {
	intIdx, floatIdx, extra := 0, 0, 0
	var addr vcode.VReg
	for _, v := range vals {
		cls := classOf(v.Type())
		var idx *int
		if cls == vcode.RegClassFloat {
			idx = &floatIdx
		} else {
			idx = &intIdx
		}
		dst := lw.vf.NewVReg(cls)
		lw.val[v.ID()] = dst
		if *idx >= maxRegResultsPerClass {
			if !addr.Valid() {
				addr = lw.vf.NewVReg(vcode.RegClassInt)
				lw.emit(&vcode.Inst{Op: vcode.OpExtraResBufAddr, Defs: []vcode.VReg{addr}})
			}
			lw.emit(&vcode.Inst{
				Op: vcode.OpLdrImm, Defs: []vcode.VReg{dst},
				Mode: vcode.AddrMode{Base: addr, ImmOffset: int64(extra) * 8},
				Width: v.Type().Bits(), IsFloat: cls == vcode.RegClassFloat, Double: v.Type() == ir.TypeF64,
			})
			extra++
			*idx++
			continue
		}
		r := vcode.RealReg(*idx)
		*idx++
		src := lw.fixed(cls, r)
		lw.emit(&vcode.Inst{Op: vcode.OpMovReg, Defs: []vcode.VReg{dst}, Uses: []vcode.VReg{src}, Width: v.Type().Bits(), IsFloat: cls == vcode.RegClassFloat, Double: v.Type() == ir.TypeF64})
	}
}

func (lw *lowerer) lowerReturnCall(instr *ir.Instruction) {
	_, _, _, args := instr.Args()
	lw.marshalArgsToABI(args)
	lw.emit(&vcode.Inst{Op: vcode.OpReturnCall, CallTarget: instr.FuncIndex(), CallSig: uint32(instr.Signature())})
	lw.cur.Term = vcode.Terminator{Kind: vcode.TermReturn}
	lw.tailCallEmitted = true
}

func (lw *lowerer) lowerReturnCallIndirect(instr *ir.Instruction) {
	idx, _, _, args := instr.Args()
	idxReg := lw.vreg(idx)
	lw.marshalArgsToABI(args)
	lw.emit(&vcode.Inst{Op: vcode.OpBoundsCheck, Uses: []vcode.VReg{idxReg, lw.indirectReg()}, Imm: 1})
	lw.emit(&vcode.Inst{Op: vcode.OpReturnCallIndirect, Uses: []vcode.VReg{idxReg, lw.indirectReg()}, CallSig: uint32(instr.Signature())})
	lw.cur.Term = vcode.Terminator{Kind: vcode.TermReturn}
	lw.tailCallEmitted = true
}
