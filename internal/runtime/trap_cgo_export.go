//go:build cgo && arm64

package runtime

// #include <stdint.h>
import "C"

// goJitCallTrampoline is the cgo-exported entry point cwasmjit_enter (in
// trap_cgo.go) calls once the sigjmp_buf is armed. It must live in its own
// file: cgo requires a file using //export to carry no C definitions in its
// own preamble, only declarations, since the preamble is copied into two
// separate generated C translation units.
//
//export goJitCallTrampoline
func goJitCallTrampoline(ctx, funcAddr, argsPtr C.uintptr_t) {
	callEntryAsm(uintptr(ctx), uintptr(funcAddr), uintptr(argsPtr))
}
