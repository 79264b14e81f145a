package regalloc

import (
	"sort"

	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

// Allocate assigns every virtual register in f a physical register or
// spill slot (spec §4.4). It mutates f in place: Defs/Uses are rewritten
// from VReg ids into vcode.Function.Assignments entries, SpillLoad/
// SpillStore instructions are inserted around spilled uses/defs, and
// f.NumSpillSlots / f.CalleeSavedInt / f.CalleeSavedFloat are populated.
//
// Fixed-register constraints (spec §4.4 step 8 - entry parameters, call
// argument setup, return sites) are established by the lowerer calling
// f.NewVReg followed by directly setting f.Assignments[vreg] = realReg
// *before* Allocate runs; such pre-colored vregs are never placed in the
// allocator's priority queue, only reserved into the relevant pregState up
// front so ordinary bundles correctly conflict (and evict/spill) around
// them.
//
// Simplification from the full Ion-style algorithm: this allocator does
// not perform bundle splitting into sub-ranges (spec §4.4 step 6's "split
// the current bundle at the first conflict point" option) — on conflict
// with a strictly-higher-weight bundle it always spills the losing bundle
// in full, to one stack slot for its entire live range, rather than
// splitting into a partially-registered, partially-spilled bundle. This is
// sound (every use is still served, from a register or a reload) and
// matches the weight-ordered eviction/spill decision of step 6 exactly;
// it only gives up the finer-grained "spill only the overflowing segment"
// optimization, which does not change allocation correctness.
func Allocate(f *vcode.Function) *Result {
	pts := computePoints(f)
	lrs := liveness(f, pts)

	pregs := map[vcode.RealReg]*pregState{}
	for vr, lr := range lrs {
		if r, preColored := f.Assignments[vr]; preColored {
			ps := pregs[r]
			if ps == nil {
				ps = &pregState{}
				pregs[r] = ps
			}
			ps.insert(lr.Ranges)
			delete(lrs, vr)
		}
	}

	bundles := make([]*Bundle, 0, len(lrs))
	for _, lr := range lrs {
		bundles = append(bundles, &Bundle{Ranges: []*LiveRange{lr}, Weight: lr.Weight})
	}
	biasAcrossCalls(f, pts, bundles)

	sort.Slice(bundles, func(i, j int) bool {
		if bundles[i].Weight != bundles[j].Weight {
			return bundles[i].Weight > bundles[j].Weight
		}
		return bundles[i].Ranges[0].VReg.ID < bundles[j].Ranges[0].VReg.ID
	})

	spillSlots := 0
	calleeSavedUsed := map[vcode.RegClass]map[vcode.RealReg]bool{
		vcode.RegClassInt:   {},
		vcode.RegClassFloat: {},
	}
	assign := func(vr vcode.VReg, r vcode.RealReg) { f.Assignments[vr] = r }
	spillOf := map[vcode.VReg]int{}

	queue := make([]*Bundle, len(bundles))
	copy(queue, bundles)

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if len(b.Ranges) == 0 {
			continue
		}
		class := b.Ranges[0].VReg.Class
		env := class.Env()
		ranges := b.allRanges()

		placed := false
		for _, pool := range [][]vcode.RealReg{env.Preferred, env.NonPreferred} {
			for _, r := range pool {
				ps := pregs[r]
				if ps == nil {
					ps = &pregState{}
					pregs[r] = ps
				}
				if len(ps.conflict(ranges)) != 0 {
					continue
				}
				ps.insert(ranges)
				for _, lr := range b.Ranges {
					assign(lr.VReg, r)
				}
				if isCalleeSaved(r, env) {
					calleeSavedUsed[class][r] = true
				}
				placed = true
				break
			}
			if placed {
				break
			}
		}
		if placed {
			continue
		}

		// Try eviction: find a register whose sole conflicting occupants
		// all have strictly lower weight than this bundle.
		evicted := false
		for _, pool := range [][]vcode.RealReg{env.Preferred, env.NonPreferred} {
			if evicted {
				break
			}
			for _, r := range pool {
				ps := pregs[r]
				if ps == nil {
					continue
				}
				conflicts := ps.conflict(ranges)
				if len(conflicts) == 0 {
					continue
				}
				if conflictsAllLighter(conflicts, lrs, b.Weight) {
					for vr, lr := range lrs {
						if lr.overlapsAny(conflicts) {
							spillOf[vr] = allocSlot(&spillSlots)
							delete(f.Assignments, vr)
						}
					}
					ps.evict(conflicts)
					ps.insert(ranges)
					for _, lr := range b.Ranges {
						assign(lr.VReg, r)
					}
					if isCalleeSaved(r, env) {
						calleeSavedUsed[class][r] = true
					}
					evicted = true
					break
				}
			}
		}
		if evicted {
			continue
		}

		// No register available at any weight: spill this bundle whole.
		for _, lr := range b.Ranges {
			spillOf[lr.VReg] = allocSlot(&spillSlots)
		}
	}

	rewriteSpills(f, pts, spillOf)

	res := &Result{NumSpillSlots: spillSlots}
	for r := range calleeSavedUsed[vcode.RegClassInt] {
		res.CalleeSavedInt = append(res.CalleeSavedInt, r)
	}
	for r := range calleeSavedUsed[vcode.RegClassFloat] {
		res.CalleeSavedFloat = append(res.CalleeSavedFloat, r)
	}
	sort.Slice(res.CalleeSavedInt, func(i, j int) bool { return res.CalleeSavedInt[i] < res.CalleeSavedInt[j] })
	sort.Slice(res.CalleeSavedFloat, func(i, j int) bool { return res.CalleeSavedFloat[i] < res.CalleeSavedFloat[j] })

	f.NumSpillSlots = res.NumSpillSlots
	f.CalleeSavedInt = res.CalleeSavedInt
	f.CalleeSavedFloat = res.CalleeSavedFloat
	return res
}

func allocSlot(n *int) int {
	s := *n
	*n++
	return s
}

func conflictsAllLighter(conflicts []Range, lrs map[vcode.VReg]*LiveRange, weight float64) bool {
	owned := map[Range]bool{}
	for _, lr := range lrs {
		if lr.overlapsAny(conflicts) && lr.Weight >= weight {
			return false
		}
		for _, r := range lr.Ranges {
			owned[r] = true
		}
	}
	// A conflicting span owned by no live range is a pre-colored
	// reservation, which is never evicted.
	for _, c := range conflicts {
		if !owned[c] {
			return false
		}
	}
	return true
}

func isCalleeSaved(r vcode.RealReg, env vcode.RegEnv) bool {
	for _, nr := range env.NonPreferred {
		if nr == r {
			return true
		}
	}
	return false
}

// biasAcrossCalls inflates the weight of any bundle whose live range spans
// a Call/CallIndirect/MemGrow instruction, so the priority queue considers
// it before lighter bundles and preferentially lands it in a callee-saved
// register (spec §4.4 step 7). This is a heuristic bias, not a hard
// constraint: the placement loop above still falls back to spilling such a
// bundle across the call if no callee-saved register is free, which
// remains correct (a call's clobber set can never corrupt a spilled
// value).
func biasAcrossCalls(f *vcode.Function, pts *pointsOf, bundles []*Bundle) {
	var callPoints []ProgramPoint
	for bi, blk := range f.Blocks {
		for ii, in := range blk.Insts {
			if in.Op == vcode.OpCall || in.Op == vcode.OpCallIndirect || in.Op == vcode.OpMemGrow {
				callPoints = append(callPoints, pts.instPoint[bi][ii])
			}
		}
	}
	if len(callPoints) == 0 {
		return
	}
	for _, b := range bundles {
		for _, lr := range b.Ranges {
			for _, r := range lr.Ranges {
				for _, cp := range callPoints {
					if r.Start <= cp && cp < r.End {
						b.Weight += 1000
					}
				}
			}
		}
	}
}
