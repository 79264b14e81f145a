// Package wasm defines the data model produced by the (out-of-scope)
// binary/text parser and validator, and consumed by the IR translator and
// linker. Only the fields the JIT core actually reads are modeled here;
// decoding .wasm/.wat bytes into this shape is explicitly a collaborator's
// responsibility (see spec §1, §4.1).
package wasm

import "github.com/cwasmjit/cwasmjit/internal/ir"

// ValueType mirrors ir.Type for the subset Wasm allows in module-level
// declarations (locals, globals, table element types).
type ValueType = ir.Type

// FuncType is a function signature as declared in a module's type section.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// Import describes a single module-level import.
type Import struct {
	Module, Name string
	Kind         ImportKind
	TypeIndex    uint32 // for Kind == ImportKindFunc
	Global       *GlobalType
	Memory       *MemoryType
	Table        *TableType
}

// ImportKind enumerates the four importable external kinds.
type ImportKind byte

const (
	ImportKindFunc ImportKind = iota
	ImportKindGlobal
	ImportKindMemory
	ImportKindTable
)

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	Type    ValueType
	Mutable bool
}

// MemoryType describes a memory's page-count limits (64KiB pages).
type MemoryType struct {
	Min, Max uint32
	MaxSet   bool
}

// TableType describes a table's element type and size limits.
type TableType struct {
	ElemType ValueType
	Min, Max uint32
	MaxSet   bool
}

// Function is one module-defined function: its signature, declared locals,
// and decoded instruction stream (decoding raw LEB128 Wasm bytecode into
// this already-typed stream is the parser's job, not the core's).
type Function struct {
	Type   FuncType
	Locals []ValueType // additional locals beyond the parameters
	Body   []Op
}

// Export describes one module-level export.
type Export struct {
	Name  string
	Kind  ImportKind
	Index uint32
}

// ElementSegment initializes a range of a table with function indices.
type ElementSegment struct {
	TableIndex uint32
	Offset     int32 // constant offset; active segments only
	FuncIndices []uint32
	Passive    bool
}

// DataSegment initializes a range of linear memory with raw bytes.
type DataSegment struct {
	MemoryIndex uint32
	Offset      int32
	Bytes       []byte
	Passive     bool
}

// Global is a module-defined global, with its constant initializer already
// evaluated by the collaborator that built this Module.
type Global struct {
	Type GlobalType
	Init uint64 // bit pattern; refs carry a table-relative index instead
}

// Module is the validated, fully-resolved representation of one Wasm
// module, as produced by the parser+validator and consumed by the core.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Functions []Function // module-defined functions only (imports excluded)
	Tables    []TableType
	Memories  []MemoryType
	Globals   []Global
	Exports   []Export
	Elements  []ElementSegment
	DataSegs  []DataSegment
	StartFunc uint32
	HasStart  bool

	Name string
}

// ImportFuncCount returns the number of imported functions, which precede
// module-defined functions in the unified function index space.
func (m *Module) ImportFuncCount() int {
	n := 0
	for _, im := range m.Imports {
		if im.Kind == ImportKindFunc {
			n++
		}
	}
	return n
}

// TypeByIndex resolves a type-section entry directly, used for
// call_indirect's statically-declared signature.
func (m *Module) TypeByIndex(idx uint32) FuncType { return m.Types[idx] }

// GlobalType resolves a global's declared type in the unified (imports
// first) global index space.
func (m *Module) GlobalType(idx uint32) GlobalType {
	n := 0
	for _, im := range m.Imports {
		if im.Kind == ImportKindGlobal {
			if n == int(idx) {
				return *im.Global
			}
			n++
		}
	}
	return m.Globals[int(idx)-n].Type
}

// HasMemory reports whether the module has any memory, local or imported.
func (m *Module) HasMemory() bool {
	if len(m.Memories) > 0 {
		return true
	}
	for _, im := range m.Imports {
		if im.Kind == ImportKindMemory {
			return true
		}
	}
	return false
}

// TableType resolves a table's declared type in the unified table index
// space.
func (m *Module) TableType(idx uint32) TableType {
	n := 0
	for _, im := range m.Imports {
		if im.Kind == ImportKindTable {
			if n == int(idx) {
				return *im.Table
			}
			n++
		}
	}
	return m.Tables[int(idx)-n]
}

// TypeOfFunc resolves the FuncType for a function in the unified index
// space, whether imported or module-defined.
func (m *Module) TypeOfFunc(idx uint32) FuncType {
	importFns := m.ImportFuncCount()
	if int(idx) < importFns {
		i := 0
		for _, im := range m.Imports {
			if im.Kind != ImportKindFunc {
				continue
			}
			if i == int(idx) {
				return m.Types[im.TypeIndex]
			}
			i++
		}
		panic("unreachable")
	}
	return m.Functions[int(idx)-importFns].Type
}
