//go:build !cgo || !arm64

package runtime

// Without cgo (or on a non-arm64 host, where the JIT never runs real
// machine code anyway) there is no way to install a sigsetjmp/siglongjmp-
// capable handler, so a genuine hardware fault inside JIT code cannot be
// recovered here: it will crash the process, same as any other unhandled
// SIGSEGV. callProtected still calls through so pure compile-only or
// cross-compiled test builds link, but it never reports a trap itself —
// spec §4.6's signal path is inherently cgo-only. See trap_cgo.go and
// DESIGN.md.
func callProtected(ctx, funcAddr, argsPtr uintptr) *TrapReport {
	callEntryAsm(ctx, funcAddr, argsPtr)
	return nil
}
