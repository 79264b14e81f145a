package frontend

import (
	"testing"

	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/wasm"
)

// stubModule satisfies ModuleContext for translations that never touch
// calls, globals, or memory.
type stubModule struct{}

func (stubModule) TypeOfFunc(uint32) wasm.FuncType    { panic("not reached") }
func (stubModule) TypeByIndex(uint32) wasm.FuncType    { panic("not reached") }
func (stubModule) GlobalType(uint32) wasm.GlobalType   { panic("not reached") }
func (stubModule) HasMemory() bool                     { return false }
func (stubModule) TableType(uint32) wasm.TableType     { panic("not reached") }

func TestTranslateSimpleAddFunction(t *testing.T) {
	fn := &wasm.Function{
		Type: wasm.FuncType{
			Params:  []ir.Type{ir.TypeI32, ir.TypeI32},
			Results: []ir.Type{ir.TypeI32},
		},
		Body: []wasm.Op{
			{Kind: wasm.OpLocalGet, Index: 0},
			{Kind: wasm.OpLocalGet, Index: 1},
			{Kind: wasm.OpBinary, NumOp: wasm.NumOp{Op: ir.OpcodeIadd, Type: ir.TypeI32}},
		},
	}

	f, err := Translate(stubModule{}, fn, ir.SignatureID(1))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify() on translated function: %v", err)
	}

	entry := f.Entry()
	if entry.Terminator() != ir.TermReturn {
		t.Fatalf("entry terminator = %v, want TermReturn (implicit fallthrough)", entry.Terminator())
	}
	rvs := entry.ReturnValues()
	if len(rvs) != 1 {
		t.Fatalf("return values = %v, want exactly 1", rvs)
	}

	var found bool
	for _, instr := range entry.Instructions() {
		if instr.Opcode() == ir.OpcodeIadd && instr.Return() == rvs[0] {
			found = true
		}
	}
	if !found {
		t.Error("expected the returned value to be produced by an iadd instruction")
	}
}

func TestTranslateLocalTeeRebindsWithoutPopping(t *testing.T) {
	fn := &wasm.Function{
		Type: wasm.FuncType{
			Params:  []ir.Type{ir.TypeI32},
			Results: []ir.Type{ir.TypeI32},
		},
		Locals: []ir.Type{ir.TypeI32},
		Body: []wasm.Op{
			{Kind: wasm.OpLocalGet, Index: 0},
			{Kind: wasm.OpLocalTee, Index: 1},
		},
	}

	f, err := Translate(stubModule{}, fn, ir.SignatureID(2))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if err := f.Verify(); err != nil {
		t.Fatalf("Verify(): %v", err)
	}
	if len(f.Entry().ReturnValues()) != 1 {
		t.Fatal("local.tee must leave exactly one value on the stack for the implicit return")
	}
}
