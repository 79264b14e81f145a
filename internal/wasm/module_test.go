package wasm

import (
	"testing"

	"github.com/cwasmjit/cwasmjit/internal/ir"
)

func buildMixedImportModule(t *testing.T) *Module {
	t.Helper()
	return &Module{
		Types: []FuncType{
			{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}}, // type 0
			{Results: []ir.Type{ir.TypeI64}},                                // type 1
		},
		Imports: []Import{
			{Module: "env", Name: "f0", Kind: ImportKindFunc, TypeIndex: 1},
			{Module: "env", Name: "g0", Kind: ImportKindGlobal, Global: &GlobalType{Type: ir.TypeF64, Mutable: false}},
			{Module: "env", Name: "f1", Kind: ImportKindFunc, TypeIndex: 0},
		},
		Functions: []Function{
			{Type: FuncType{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}}},
		},
		Globals: []Global{
			{Type: GlobalType{Type: ir.TypeI32, Mutable: true}, Init: 7},
		},
	}
}

func TestImportFuncCount(t *testing.T) {
	m := buildMixedImportModule(t)
	if got := m.ImportFuncCount(); got != 2 {
		t.Errorf("ImportFuncCount() = %d, want 2", got)
	}
}

func TestTypeOfFuncResolvesImportsThenDefined(t *testing.T) {
	m := buildMixedImportModule(t)

	if got := m.TypeOfFunc(0); len(got.Results) != 1 || got.Results[0] != ir.TypeI64 {
		t.Errorf("TypeOfFunc(0) = %+v, want type 1 (i64 result)", got)
	}
	if got := m.TypeOfFunc(1); len(got.Params) != 1 || got.Params[0] != ir.TypeI32 {
		t.Errorf("TypeOfFunc(1) = %+v, want type 0 (i32 param)", got)
	}
	// Index 2 is the first module-defined function, past the 2 imports.
	if got := m.TypeOfFunc(2); len(got.Params) != 1 || got.Params[0] != ir.TypeI32 {
		t.Errorf("TypeOfFunc(2) = %+v, want the sole module-defined function's signature", got)
	}
}

func TestGlobalTypeResolvesUnifiedIndexSpace(t *testing.T) {
	m := buildMixedImportModule(t)

	if got := m.GlobalType(0); got.Type != ir.TypeF64 || got.Mutable {
		t.Errorf("GlobalType(0) = %+v, want the imported immutable f64 global", got)
	}
	if got := m.GlobalType(1); got.Type != ir.TypeI32 || !got.Mutable {
		t.Errorf("GlobalType(1) = %+v, want the module-defined mutable i32 global", got)
	}
}

func TestHasMemoryDetectsImportedMemory(t *testing.T) {
	m := &Module{}
	if m.HasMemory() {
		t.Error("empty module should report no memory")
	}
	m.Imports = append(m.Imports, Import{Kind: ImportKindMemory, Memory: &MemoryType{Min: 1}})
	if !m.HasMemory() {
		t.Error("module with an imported memory should report HasMemory")
	}
}

func TestTableTypeResolvesUnifiedIndexSpace(t *testing.T) {
	m := &Module{
		Imports: []Import{{Kind: ImportKindTable, Table: &TableType{ElemType: ir.TypeFuncref, Min: 1}}},
		Tables:  []TableType{{ElemType: ir.TypeFuncref, Min: 4, Max: 4, MaxSet: true}},
	}
	if got := m.TableType(0); got.Min != 1 {
		t.Errorf("TableType(0) = %+v, want the imported table", got)
	}
	if got := m.TableType(1); got.Min != 4 {
		t.Errorf("TableType(1) = %+v, want the module-defined table", got)
	}
}
