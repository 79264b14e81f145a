package frontend

import (
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/wasm"
)

func (t *translator) unary(n wasm.NumOp) {
	x := t.pop()
	t.push(t.b.Unary(n.Op, n.Type, x))
}

func (t *translator) binary(n wasm.NumOp) {
	y := t.pop()
	x := t.pop()
	t.push(t.b.Binary(n.Op, n.Type, x, y))
}

func (t *translator) compare(n wasm.NumOp) {
	y := t.pop()
	x := t.pop()
	if n.Type.IsFloat() {
		t.push(t.b.Fcmp(n.FloatCond, x, y))
	} else {
		t.push(t.b.Icmp(n.IntCond, x, y))
	}
}

func (t *translator) convert(n wasm.NumOp) {
	x := t.pop()
	switch n.Op {
	case ir.OpcodeFcvtToSint, ir.OpcodeFcvtToUint, ir.OpcodeFcvtToSintSat, ir.OpcodeFcvtToUintSat,
		ir.OpcodeFcvtFromSint, ir.OpcodeFcvtFromUint,
		ir.OpcodeFdemote, ir.OpcodeFpromote,
		ir.OpcodeIreduce, ir.OpcodeUextend, ir.OpcodeSextend, ir.OpcodeBitcast:
		t.push(t.b.Unary(n.Op, n.Type, x))
	default:
		panic("BUG: unhandled convert opcode")
	}
}
