package runtime

import "unsafe"

// Invoke calls a compiled function's entry address with the given
// context, marshaling params/results through a single shared buffer the
// same way entry_arm64.s's ABI expects (spec §4.5), mirroring the
// teacher's callEngine.Call (call_engine.go): a plain params...uint64 in,
// []uint64 out shape, with the params/results slice sized to the wider
// of the two arities and never below 16 slots.
//
// A non-nil *TrapReport means the call did not return normally; results
// is nil in that case.
func Invoke(ctx *Context, funcAddr uintptr, numResults int, params ...uint64) ([]uint64, *TrapReport) {
	n := len(params)
	if numResults > n {
		n = numResults
	}
	if n < 16 {
		n = 16 // entry_arm64.s reads and writes fixed slots up to byte offset 120.
	}
	buf := make([]uint64, n)
	copy(buf, params)

	argsPtr := uintptr(unsafe.Pointer(&buf[0]))
	if report := callProtected(ctx.Ptr(), funcAddr, argsPtr); report != nil {
		return nil, report
	}
	return buf[:numResults], nil
}
