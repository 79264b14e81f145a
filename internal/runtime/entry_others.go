//go:build !arm64

package runtime

import "runtime"

// callEntryAsm has no implementation outside arm64: the JIT only ever
// emits AArch64 machine code (spec §1 "Target machine: AArch64"), so
// reaching this on another GOARCH is a caller/build-configuration bug,
// not a runtime condition to recover from. Mirrors the teacher's
// entrypoint_others.go panic stub.
func callEntryAsm(ctx, funcAddr, argsPtr uintptr) {
	panic("cwasmjit: JIT execution requires GOARCH=arm64, got " + runtime.GOARCH)
}
