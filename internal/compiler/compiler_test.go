package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/opt"
	"github.com/cwasmjit/cwasmjit/internal/wasm"
)

func addModule() *wasm.Module {
	return &wasm.Module{
		Name: "addmod",
		Functions: []wasm.Function{
			{
				Type: wasm.FuncType{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}},
				Body: []wasm.Op{
					{Kind: wasm.OpLocalGet, Index: 0},
					{Kind: wasm.OpLocalGet, Index: 1},
					{Kind: wasm.OpBinary, NumOp: wasm.NumOp{Op: ir.OpcodeIadd, Type: ir.TypeI32}},
				},
			},
		},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ImportKindFunc, Index: 0}},
	}
}

func TestCompileModuleAddFunction(t *testing.T) {
	mod := addModule()
	cm, err := CompileModule(mod, nil, Options{OptLevel: opt.O2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cm.Code.Release() })

	require.Len(t, cm.Funcs, 1)
	fn := cm.Funcs[0]
	require.Falsef(t, fn.Unsupported, "add(a,b) should be fully supported, got err=%v", fn.Err)
	require.NotZero(t, fn.CodeLen)
	require.NotZero(t, fn.EntryAddr)
	require.NotEmpty(t, fn.PCMap)
	require.Equal(t, fn.EntryAddr, cm.Context.FuncTable[0])
}

func TestCompileModuleLinksMultipleFunctionsDistinctly(t *testing.T) {
	mod := addModule()
	// A second, independent exported function: doubles its single param.
	mod.Functions = append(mod.Functions, wasm.Function{
		Type: wasm.FuncType{Params: []ir.Type{ir.TypeI32}, Results: []ir.Type{ir.TypeI32}},
		Body: []wasm.Op{
			{Kind: wasm.OpLocalGet, Index: 0},
			{Kind: wasm.OpLocalGet, Index: 0},
			{Kind: wasm.OpBinary, NumOp: wasm.NumOp{Op: ir.OpcodeIadd, Type: ir.TypeI32}},
		},
	})
	mod.Exports = append(mod.Exports, wasm.Export{Name: "double", Kind: wasm.ImportKindFunc, Index: 1})

	cm, err := CompileModule(mod, nil, Options{OptLevel: opt.O1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cm.Code.Release() })

	require.Len(t, cm.Funcs, 2)
	for i, fn := range cm.Funcs {
		require.Falsef(t, fn.Unsupported, "func %d unexpectedly unsupported: %v", i, fn.Err)
	}
	require.NotEqual(t, cm.Funcs[0].EntryAddr, cm.Funcs[1].EntryAddr)
	require.GreaterOrEqual(t, cm.Funcs[1].CodeOffset, cm.Funcs[0].CodeOffset+cm.Funcs[0].CodeLen)
}
