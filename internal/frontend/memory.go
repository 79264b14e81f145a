package frontend

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/wasm"
)

func (t *translator) load(op wasm.Op) {
	addr := t.pop()
	mem := ir.MemArg{Offset: op.Mem.Offset, Align: uint8(op.Mem.Align), Width: widthOf(op.NumOp), Signed: op.NumOp.Signed}
	t.push(t.b.Load(op.NumOp.Type, addr, mem))
}

func (t *translator) store(op wasm.Op) {
	val := t.pop()
	addr := t.pop()
	mem := ir.MemArg{Offset: op.Mem.Offset, Align: uint8(op.Mem.Align), Width: widthOf(op.NumOp)}
	t.b.Store(addr, val, mem)
}

func widthOf(n wasm.NumOp) byte {
	if n.Type == ir.TypeI64 || n.Type == ir.TypeF64 {
		if n.SrcType.Valid() && n.SrcType.Size() < 8 {
			return n.SrcType.Bits()
		}
	}
	return n.Type.Bits()
}

func (t *translator) memorySize() ir.Value { return t.b.MemorySize() }

func (t *translator) memoryGrow(delta ir.Value) ir.Value { return t.b.MemoryGrow(delta) }
