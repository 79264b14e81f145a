//go:build arm64

package runtime

// callEntryAsm bridges Go's calling convention into the AArch64 System-V-
// like ABI the JIT-emitted code expects (spec §4.5): X19 holds the context
// pointer, X0-X7/D0-D7 carry the first 8 integer/float arguments, and
// results are written back into the same buffer. Implemented in
// entry_arm64.s, grounded on the teacher's go:linkname-declared
// entrypoint/afterStackGrowEntrypoint split (entrypoint_arm64.go /
// entrypoint_others.go): a build-tagged Go declaration with no body here,
// a hand-written assembly body in entry_arm64.s, and an arch-mismatch
// panic stub in entry_others.go for any other GOARCH.
//
// argsPtr points at a caller-allocated buffer of at least 128 bytes
// (entry_arm64.s loads and stores fixed offsets 0-120): on entry it holds the call's
// arguments (ints and floats interleaved per wasm signature, matching the
// order internal/lower's call-lowering assigns to ParamRegs); on return it
// holds the results in ResultRegs order.
func callEntryAsm(ctx, funcAddr, argsPtr uintptr)
