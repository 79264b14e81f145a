// Package regalloc implements a backtracking (Ion-style) register
// allocator: live-range analysis over block-linearized VCode, one bundle
// per vreg (copies are not coalesced), and a priority-queue-driven
// placement loop that on conflict evicts lower-weight bundles or else
// spills the whole bundle. Live ranges are never split.
package regalloc

import "github.com/cwasmjit/cwasmjit/internal/vcode"

// ProgramPoint is a position in the block-linearized instruction stream:
// one slot per non-terminator instruction, plus one trailing slot per
// block for its terminator. Points increase monotonically across the
// whole function in block order.
type ProgramPoint int

// Range is a half-open program-point interval [Start, End) during which a
// vreg is live, per spec §3.3.
type Range struct {
	Start, End ProgramPoint
}

func (r Range) overlaps(o Range) bool { return r.Start < o.End && o.Start < r.End }

// LiveRange is the set of Range intervals computed for one virtual
// register, plus its aggregate spill weight.
type LiveRange struct {
	VReg   vcode.VReg
	Ranges []Range
	Weight float64
}

func (lr *LiveRange) overlapsAny(ranges []Range) bool {
	for _, a := range lr.Ranges {
		for _, b := range ranges {
			if a.overlaps(b) {
				return true
			}
		}
	}
	return false
}

func (lr *LiveRange) firstStart() ProgramPoint {
	start := ProgramPoint(1 << 30)
	for _, r := range lr.Ranges {
		if r.Start < start {
			start = r.Start
		}
	}
	return start
}

// Bundle is a set of LiveRanges the allocator tries to place in a single
// physical register, per spec §3.3. Bundles start one-per-vreg and are
// merged by copy coalescing (not performed by this simplified allocator's
// MVP path, see Allocate's doc comment).
type Bundle struct {
	Ranges []*LiveRange
	Weight float64
}

func (b *Bundle) allRanges() []Range {
	var out []Range
	for _, lr := range b.Ranges {
		out = append(out, lr.Ranges...)
	}
	return out
}

// Result is the allocator's output for one Function: a physical-register
// or spill-slot assignment for every (vreg, program point) use, materialized
// by mutating the VCode in place (spill loads/stores inserted, Defs/Uses
// rewritten from virtual to physical register numbers via
// vcode.Function.Assignments).
type Result struct {
	NumSpillSlots    int
	CalleeSavedInt   []vcode.RealReg
	CalleeSavedFloat []vcode.RealReg
}
