// Package opt implements the optimizer (spec §4.2): a bounded pipeline of
// mandatory canonicalization, an e-graph-bounded rewrite pass, GVN/CSE,
// CFG cleanup, and rematerialization, run by a driver that iterates to a
// fixpoint or a hard iteration cap.
package opt

import "github.com/cwasmjit/cwasmjit/internal/ir"

// Level selects how much of the pipeline runs, per spec §4.2.
type Level int

const (
	O0 Level = iota
	O1
	O2
	O3
)

// maxIterations is the outer-loop iteration cap (spec §4.2 stage 6).
const maxIterations = 100

// Optimize transforms fn in place to semantically equivalent IR of lower
// cost, preserving Wasm trap semantics (spec §8.1 "Optimizer preserves
// semantics", "Trap preservation").
func Optimize(fn *ir.Function, level Level) {
	fn.RunDominance()
	for iter := 0; iter < maxIterations; iter++ {
		changed := canonicalize(fn)
		if level >= O1 {
			changed = rewritePass(fn) || changed
			changed = gvnCSE(fn) || changed
		}
		if level >= O2 {
			changed = cfgCleanup(fn) || changed
		}
		if !changed {
			break
		}
		fn.RunDominance()
	}
	if level >= O1 {
		rematerialize(fn)
		canonicalize(fn)
	}
}

// canonicalize runs the mandatory stage-1 passes (spec §4.2 stage 1):
// DCE over pure instructions, constant-block-parameter elimination,
// dead-block-parameter elimination, and copy/alias resolution. It reports
// whether any material change occurred, for the driver's fixpoint check.
func canonicalize(fn *ir.Function) bool {
	changed := false
	changed = copyAliasResolve(fn) || changed
	changed = constantBlockParamElim(fn) || changed
	changed = deadBlockParamElim(fn) || changed
	changed = dce(fn) || changed
	return changed
}
