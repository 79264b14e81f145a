// Package runtime implements the runtime ABI and trap plumbing described in
// spec §4.6 and §3.4: the JITContext header layout read directly by
// generated code, the executable-memory manager, and the entry-trampoline /
// trap-report machinery that bridges a signal-raised BRK back to a Go
// caller.
package runtime

import (
	"encoding/binary"
	"unsafe"
)

// Context header field byte offsets, fixed by spec §3.4 and read directly
// by JIT-compiled code via the cached registers of internal/vcode (X19
// holds a pointer to this struct; RegFuncTbl/RegMemBase/RegMemSize/
// RegIndirect are loaded from the offsets below in the prologue of every
// function that uses them, see internal/emit's emitPrologue).
const (
	OffsetFuncTable      = 0
	OffsetIndirectTable  = 8
	OffsetMemoryBase     = 16
	OffsetMemorySize     = 24
	OffsetIndirectTables = 32
	OffsetTableCount     = 40
	ContextSize          = 48
)

// IndirectEntry is one slot of an indirect-call table: a function pointer
// plus the runtime type tag call_indirect checks against (spec §4.6
// "Indirect-table entries carry runtime type tags").
type IndirectEntry struct {
	Func    uintptr
	TypeTag uint64
}

// Context is the Go-side owner of one module instance's JITContext header.
// raw holds the bytes JIT code dereferences directly through X19; the
// typed slices below are the Go-owned backing storage the raw header's
// pointer fields reference, keeping the two views of the data in sync.
//
// Per spec §3.4 "open question" on indirect-table unification: Tables[]
// entries are pre-populated with FuncTable pointers where indices overlap,
// so the indirect table is always a superset view of the direct-call
// table. This is preserved exactly as documented, not redesigned.
type Context struct {
	raw []byte

	FuncTable      []uintptr
	IndirectTable  []IndirectEntry
	MemoryBase     uintptr
	MemorySizeByte uint64
	IndirectTables [][]IndirectEntry // one per table, multi-table support

	memory    []byte    // Go-owned backing store for linear memory, when local
	tablePtrs []uintptr // backing array for the raw indirect_tables pointer
}

// NewContext allocates a zeroed Context header for a module instance with
// numFuncs call slots and no tables yet; callers populate FuncTable via
// SetFunc and memory via SetMemory/Grow before first entry.
func NewContext(numFuncs int) *Context {
	c := &Context{
		raw:       make([]byte, ContextSize),
		FuncTable: make([]uintptr, numFuncs),
	}
	binary.LittleEndian.PutUint32(c.raw[OffsetTableCount:], 0)
	return c
}

// Ptr returns the address JIT code should be given as its X19 context
// pointer. The Context must not move (e.g. via a growing slice header) for
// as long as any compiled function may dereference this pointer, so callers
// must keep the *Context alive and unmoved (pinned by being heap-allocated
// and never copied by value) for the module instance's lifetime.
func (c *Context) Ptr() uintptr { return uintptr(unsafe.Pointer(&c.raw[0])) }

// SetFunc installs the entry address of a compiled (or host-trampoline)
// function at idx in the unified function-index space, keeping both the
// typed FuncTable and the raw header's func_table pointer consistent.
func (c *Context) SetFunc(idx int, addr uintptr) {
	c.FuncTable[idx] = addr
	c.syncFuncTable()
}

func (c *Context) syncFuncTable() {
	ptr := uintptr(0)
	if len(c.FuncTable) > 0 {
		ptr = uintptr(unsafe.Pointer(&c.FuncTable[0]))
	}
	binary.LittleEndian.PutUint64(c.raw[OffsetFuncTable:], uint64(ptr))
}

// SetIndirectTable installs table 0's flattened (func ptr, type tag) slots,
// used by call_indirect's bounds+signature check in the emitted code.
func (c *Context) SetIndirectTable(entries []IndirectEntry) {
	c.IndirectTable = entries
	ptr := uintptr(0)
	if len(entries) > 0 {
		ptr = uintptr(unsafe.Pointer(&entries[0]))
	}
	binary.LittleEndian.PutUint64(c.raw[OffsetIndirectTable:], uint64(ptr))
}

// SetMemory installs mem as this instance's linear memory backing store and
// republishes memory_base/memory_size into the header, which JIT code
// caches into X21/X22 at function entry (spec §4.5 prologue step 3).
func (c *Context) SetMemory(mem []byte) {
	c.memory = mem
	c.MemorySizeByte = uint64(len(mem))
	base := uintptr(0)
	if len(mem) > 0 {
		base = uintptr(unsafe.Pointer(&mem[0]))
	}
	c.MemoryBase = base
	binary.LittleEndian.PutUint64(c.raw[OffsetMemoryBase:], uint64(base))
	binary.LittleEndian.PutUint64(c.raw[OffsetMemorySize:], c.MemorySizeByte)
}

// Memory returns the Go-owned linear memory slice backing this instance.
func (c *Context) Memory() []byte { return c.memory }

// Grow implements memory.grow's host-side half (spec §4.3 "memory.grow
// emits a host call that updates the JIT context"): it reallocates the
// backing store by delta pages (65536 bytes each), copies the old
// contents, and republishes the header so the *next* cached-register
// reload (emitted by the lowerer immediately after the memory.grow call
// returns) observes the new base and size. Returns the previous size in
// pages, or -1 if growth would exceed maxPages.
func (c *Context) Grow(deltaPages uint32, maxPages uint32) int32 {
	const pageSize = 65536
	oldPages := uint32(len(c.memory)) / pageSize
	newPages := oldPages + deltaPages
	if maxPages > 0 && newPages > maxPages {
		return -1
	}
	grown := make([]byte, newPages*pageSize)
	copy(grown, c.memory)
	c.SetMemory(grown)
	return int32(oldPages)
}

// SetIndirectTables installs the multi-table array (spec §3.4's
// `indirect_tables`/`table_count` fields), used by call_indirect sites that
// target a non-zero table index.
func (c *Context) SetIndirectTables(tables [][]IndirectEntry) {
	c.IndirectTables = tables
	ptrs := make([]uintptr, len(tables))
	for i, t := range tables {
		if len(t) > 0 {
			ptrs[i] = uintptr(unsafe.Pointer(&t[0]))
		}
	}
	tablesPtr := uintptr(0)
	if len(ptrs) > 0 {
		tablesPtr = uintptr(unsafe.Pointer(&ptrs[0]))
	}
	c.tablePtrs = ptrs // keep the backing slice alive
	binary.LittleEndian.PutUint64(c.raw[OffsetIndirectTables:], uint64(tablesPtr))
	binary.LittleEndian.PutUint32(c.raw[OffsetTableCount:], uint32(len(tables)))
}
