package runtime

import (
	"fmt"
	goruntime "runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CodeBlock is a page-aligned, executable allocation owned by one JIT
// module (spec §3.4 "Executable code block", §4.6 "Executable memory
// manager"). Allocate returns it RW; Finalize flips it to RX after the
// caller has copied in the final bytes; Release unmaps it on module
// teardown.
type CodeBlock struct {
	mem  []byte // the full mmap'd region, page-aligned
	size int    // bytes actually used (<= len(mem))
}

// pageSize is queried once; AArch64 Linux/Apple both default to 16KiB or
// 4KiB pages depending on platform, so this is resolved at init rather than
// hardcoded, mirroring how platform-aware mmap wrappers in the ecosystem
// avoid assuming 4096.
var pageSize = unix.Getpagesize()

// AllocateCodeBlock reserves n bytes of RW anonymous memory rounded up to a
// whole number of pages, ready for the emitter's bytes to be copied in.
func AllocateCodeBlock(n int) (*CodeBlock, error) {
	if n <= 0 {
		n = 1
	}
	size := roundUpPage(n)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("runtime: mmap code block: %w", err)
	}
	return &CodeBlock{mem: mem}, nil
}

func roundUpPage(n int) int {
	return (n + pageSize - 1) &^ (pageSize - 1)
}

// Bytes returns the writable region backing this block, valid only before
// Finalize re-protects it RX.
func (b *CodeBlock) Bytes() []byte { return b.mem }

// Addr returns the base address of the block, used as the function-table
// entry once Finalize has made it executable.
func (b *CodeBlock) Addr() uintptr {
	if len(b.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.mem[0]))
}

// Finalize copies code into the block (truncated/padded to the block's
// capacity must already have been checked by the caller via Size),
// flushes the instruction cache over the written range, then transitions
// the page from RW to RX (spec §4.6 "after copy + icache_flush,
// re-protected to RX").
func (b *CodeBlock) Finalize(code []byte) error {
	if len(code) > len(b.mem) {
		return fmt.Errorf("runtime: code block too small: need %d, have %d", len(code), len(b.mem))
	}
	n := copy(b.mem, code)
	b.size = n
	flushInstructionCache(b.mem[:n])
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("runtime: mprotect RX: %w", err)
	}
	return nil
}

// Size returns the usable capacity of the block (page-rounded).
func (b *CodeBlock) Size() int { return len(b.mem) }

// Release unmaps the block. Callers must not dereference any function
// pointer into this block afterwards; ownership is single: a block belongs
// to exactly one JIT module and is released exactly once by the
// runtime-resource manager at module teardown (spec §3.5).
func (b *CodeBlock) Release() error {
	if b.mem == nil {
		return nil
	}
	err := unix.Munmap(b.mem)
	b.mem = nil
	return err
}

// flushInstructionCache invokes the instruction-cache invalidation
// primitive over code before the page is re-protected R-X (spec §4.5
// "Instruction-cache maintenance"). On AArch64 this must happen before
// execution since the data and instruction caches are not coherent by
// default (unlike x86); the no-op path on a non-AArch64 host (e.g. running
// the test suite under amd64 CI, where these bytes are never executed) is
// explicit rather than accidental.
func flushInstructionCache(code []byte) {
	if len(code) == 0 {
		return
	}
	if goruntime.GOARCH == "arm64" {
		platformFlushICache(code)
	}
}
