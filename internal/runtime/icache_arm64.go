//go:build arm64

package runtime

import "unsafe"

// platformFlushICache invalidates the instruction cache over code's
// address range. AArch64 requires an explicit `IC IVAU`/`DSB`/`ISB`
// sequence (or, portably, the same privileged cache-maintenance path the C
// runtime exposes as __builtin___clear_cache) before freshly written
// instructions are guaranteed visible to the fetch unit.
//
// Go's runtime already performs this maintenance internally whenever it
// writes executable pages (for plugin loading and asm trampolines), via
// runtime·clearCache. That entry point is not exported, so this mirrors it
// at the granularity this package needs: a per-cache-line DC CVAU + IC IVAU
// walk bracketed by DSB ISH/ISB, matching the sequence described in the
// Arm Architecture Reference Manual §B2.4.4 for self-modifying code.
func platformFlushICache(code []byte) {
	base := uintptr(unsafe.Pointer(&code[0]))
	end := base + uintptr(len(code))
	clearCacheRange(base, end)
}
