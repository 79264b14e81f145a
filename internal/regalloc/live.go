package regalloc

import "github.com/cwasmjit/cwasmjit/internal/vcode"

// pointsOf assigns one ProgramPoint per instruction (in block order) plus
// one trailing point per block for its terminator, and records, for each
// block, the [start, end) point range it occupies.
type pointsOf struct {
	blockStart []ProgramPoint
	blockEnd   []ProgramPoint // exclusive, includes the terminator's point
	instPoint  [][]ProgramPoint
	termPoint  []ProgramPoint
	total      int
}

func computePoints(f *vcode.Function) *pointsOf {
	p := &pointsOf{
		blockStart: make([]ProgramPoint, len(f.Blocks)),
		blockEnd:   make([]ProgramPoint, len(f.Blocks)),
		instPoint:  make([][]ProgramPoint, len(f.Blocks)),
		termPoint:  make([]ProgramPoint, len(f.Blocks)),
	}
	cur := ProgramPoint(0)
	for bi, blk := range f.Blocks {
		p.blockStart[bi] = cur
		p.instPoint[bi] = make([]ProgramPoint, len(blk.Insts))
		for ii := range blk.Insts {
			p.instPoint[bi][ii] = cur
			cur++
		}
		p.termPoint[bi] = cur
		cur++
		p.blockEnd[bi] = cur
	}
	p.total = int(cur)
	return p
}

// liveness computes live-in/live-out vreg sets per block via iterative
// backward dataflow over the VCode CFG (spec §4.4 step 1), then converts
// per-block liveness plus per-instruction def/use points into per-vreg
// LiveRange interval sets (step 2).
func liveness(f *vcode.Function, pts *pointsOf) map[vcode.VReg]*LiveRange {
	n := len(f.Blocks)
	liveIn := make([]map[vcode.VReg]bool, n)
	liveOut := make([]map[vcode.VReg]bool, n)
	gen := make([]map[vcode.VReg]bool, n)
	kill := make([]map[vcode.VReg]bool, n)

	for bi, blk := range f.Blocks {
		g, k := map[vcode.VReg]bool{}, map[vcode.VReg]bool{}
		// Walk backward within the block: a use not yet killed is a gen.
		noteUse := func(v vcode.VReg) {
			if v.Valid() && !k[v] {
				g[v] = true
			}
		}
		noteDef := func(v vcode.VReg) {
			if v.Valid() {
				k[v] = true
			}
		}
		switch blk.Term.Kind {
		case vcode.TermBranchCmp, vcode.TermBranchCmpImm:
			noteUse(blk.Term.LHS)
			noteUse(blk.Term.RHS)
		case vcode.TermBranchZero:
			noteUse(blk.Term.LHS)
		case vcode.TermBrTable:
			noteUse(blk.Term.Index)
		}
		for ii := len(blk.Insts) - 1; ii >= 0; ii-- {
			in := blk.Insts[ii]
			for _, d := range in.Defs {
				noteDef(d)
			}
			for _, u := range in.Uses {
				noteUse(u)
			}
			if in.Mode.IndexSet {
				noteUse(in.Mode.Base)
				noteUse(in.Mode.Index)
			} else if in.Op == vcode.OpLdrAmode || in.Op == vcode.OpStrAmode || in.Op == vcode.OpLdrImm || in.Op == vcode.OpStrImm {
				noteUse(in.Mode.Base)
			}
		}
		gen[bi], kill[bi] = g, k
		liveIn[bi], liveOut[bi] = map[vcode.VReg]bool{}, map[vcode.VReg]bool{}
	}

	changed := true
	for changed {
		changed = false
		for bi, blk := range f.Blocks {
			out := map[vcode.VReg]bool{}
			for _, t := range blk.Term.Targets {
				for v := range liveIn[t] {
					out[v] = true
				}
			}
			in := map[vcode.VReg]bool{}
			for v := range gen[bi] {
				in[v] = true
			}
			for v := range out {
				if !kill[bi][v] {
					in[v] = true
				}
			}
			if !sameSet(in, liveIn[bi]) || !sameSet(out, liveOut[bi]) {
				liveIn[bi], liveOut[bi] = in, out
				changed = true
			}
		}
	}

	ranges := map[vcode.VReg]*LiveRange{}
	get := func(v vcode.VReg) *LiveRange {
		lr, ok := ranges[v]
		if !ok {
			lr = &LiveRange{VReg: v}
			ranges[v] = lr
		}
		return lr
	}
	extend := func(v vcode.VReg, start, end ProgramPoint, weight float64) {
		if !v.Valid() || start >= end {
			return
		}
		lr := get(v)
		lr.Ranges = append(lr.Ranges, Range{start, end})
		lr.Weight += weight
	}

	for bi, blk := range f.Blocks {
		blockStart, blockEndExclusive := pts.blockStart[bi], pts.blockEnd[bi]
		loopScale := float64(uint(1) << uint(min(blk.LoopDepth, 10)))
		// Start every live-out vreg's range spanning the whole block; it
		// will be trimmed to its actual last-def point below by merging
		// overlapping ranges being unnecessary for correctness (a
		// superset of the true live range is conservative-correct for
		// conflict detection, matching the "ordered two-pointer scan over
		// sorted spans" model of spec §4.4 step 6, which never requires a
		// tight range, only a sound one).
		for v := range liveOut[bi] {
			extend(v, blockStart, blockEndExclusive, loopScale)
		}
		for v := range liveIn[bi] {
			extend(v, blockStart, blockStart+1, loopScale)
		}
		for ii, in := range blk.Insts {
			p := pts.instPoint[bi][ii]
			for _, d := range in.Defs {
				extend(d, p, p+1, 2*loopScale)
			}
			for range in.Uses {
				// Use weight is already captured by the live-in/live-out
				// span above for cross-instruction liveness; same-point
				// uses add a small constant bump so heavily-used-in-place
				// vregs still outrank a barely-touched one with an
				// identical interval shape.
			}
		}
	}
	for _, in := range func() (all []*vcode.Inst) {
		for _, blk := range f.Blocks {
			all = append(all, blk.Insts...)
		}
		return all
	}() {
		for _, u := range in.Uses {
			if lr, ok := ranges[u]; ok {
				lr.Weight += 0.5
			}
		}
	}
	return ranges
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func sameSet(a, b map[vcode.VReg]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
