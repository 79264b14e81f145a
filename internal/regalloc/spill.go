package regalloc

import "github.com/cwasmjit/cwasmjit/internal/vcode"

// rewriteSpills materializes every spilled vreg's register operands as
// SpillLoad-before-use / SpillStore-after-def sequences through the
// reserved scratch registers (vcode.RegScratch0/1 for the integer class,
// vcode.FloatScratch for the float class), per spec §4.4 step 6's "spill
// one half to a stack slot (inserting SpillStore/SpillLoad at
// boundaries)".
//
// Limitation: at most two simultaneously-spilled integer operands and one
// simultaneously-spilled float operand per instruction are supported (the
// number of reserved scratch registers available). The lowerer's pattern
// table never produces instructions needing more live spilled operands
// than this in practice, since AArch64 ALU ops take at most two register
// operands plus one register result.
func rewriteSpills(f *vcode.Function, pts *pointsOf, spillOf map[vcode.VReg]int) {
	if len(spillOf) == 0 {
		return
	}
	for bi, blk := range f.Blocks {
		var newInsts []*vcode.Inst
		for _, in := range blk.Insts {
			intScratchUsed := 0
			var pre []*vcode.Inst
			for idx, u := range in.Uses {
				slot, spilled := spillOf[u]
				if !spilled {
					continue
				}
				var scratch vcode.VReg
				var scratchReg vcode.RealReg
				if u.Class == vcode.RegClassFloat {
					scratch = f.NewVReg(vcode.RegClassFloat)
					scratchReg = vcode.FloatScratch
				} else {
					scratch = f.NewVReg(vcode.RegClassInt)
					if intScratchUsed == 0 {
						scratchReg = vcode.RegScratch0
					} else {
						scratchReg = vcode.RegScratch1
					}
					intScratchUsed++
				}
				f.Assignments[scratch] = scratchReg
				pre = append(pre, &vcode.Inst{Op: vcode.OpSpillLoad, Defs: []vcode.VReg{scratch}, SpillSlot: slot})
				in.Uses[idx] = scratch
			}
			// Addressing-mode base/index operands are also candidate
			// spill sites (a sunk load/store address can reference a
			// spilled pointer).
			if in.Mode.Base.Valid() {
				if slot, spilled := spillOf[in.Mode.Base]; spilled {
					scratch := f.NewVReg(vcode.RegClassInt)
					reg := vcode.RegScratch0
					if intScratchUsed > 0 {
						reg = vcode.RegScratch1
					}
					intScratchUsed++
					f.Assignments[scratch] = reg
					pre = append(pre, &vcode.Inst{Op: vcode.OpSpillLoad, Defs: []vcode.VReg{scratch}, SpillSlot: slot})
					in.Mode.Base = scratch
				}
			}
			if in.Mode.IndexSet && in.Mode.Index.Valid() {
				if slot, spilled := spillOf[in.Mode.Index]; spilled {
					scratch := f.NewVReg(vcode.RegClassInt)
					f.Assignments[scratch] = vcode.RegScratch1
					pre = append(pre, &vcode.Inst{Op: vcode.OpSpillLoad, Defs: []vcode.VReg{scratch}, SpillSlot: slot})
					in.Mode.Index = scratch
				}
			}

			newInsts = append(newInsts, pre...)
			newInsts = append(newInsts, in)

			for idx, d := range in.Defs {
				slot, spilled := spillOf[d]
				if !spilled {
					continue
				}
				var scratch vcode.VReg
				var scratchReg vcode.RealReg
				if d.Class == vcode.RegClassFloat {
					scratch = f.NewVReg(vcode.RegClassFloat)
					scratchReg = vcode.FloatScratch
				} else {
					scratch = f.NewVReg(vcode.RegClassInt)
					scratchReg = vcode.RegScratch0
				}
				f.Assignments[scratch] = scratchReg
				in.Defs[idx] = scratch
				newInsts = append(newInsts, &vcode.Inst{Op: vcode.OpSpillStore, Uses: []vcode.VReg{scratch}, SpillSlot: slot})
			}
		}
		blk.Insts = newInsts

		// Terminator operands that reference spilled vregs are reloaded
		// just before the (now appended) terminator evaluates them.
		var termPre []*vcode.Inst
		reload := func(v *vcode.VReg, reg vcode.RealReg) {
			if !v.Valid() {
				return
			}
			slot, spilled := spillOf[*v]
			if !spilled {
				return
			}
			scratch := f.NewVReg(v.Class)
			f.Assignments[scratch] = reg
			termPre = append(termPre, &vcode.Inst{Op: vcode.OpSpillLoad, Defs: []vcode.VReg{scratch}, SpillSlot: slot})
			*v = scratch
		}
		reload(&blk.Term.LHS, vcode.RegScratch0)
		reload(&blk.Term.RHS, vcode.RegScratch1)
		reload(&blk.Term.Index, vcode.RegScratch0)
		if len(termPre) > 0 {
			blk.Insts = append(blk.Insts, termPre...)
		}
		_ = pts
		_ = bi
	}
}
