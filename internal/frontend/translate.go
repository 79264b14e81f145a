// Package frontend translates a validated Wasm function body into the
// mid-level SSA ir.Function the optimizer and lowerer operate on.
package frontend

import (
	"fmt"

	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/wasm"
)

// TranslationErrorKind distinguishes the two ways translation can fail, per
// spec §4.1.
type TranslationErrorKind byte

const (
	Unsupported TranslationErrorKind = iota
	Malformed
)

// TranslationError is returned when a function body cannot be translated.
type TranslationError struct {
	Kind TranslationErrorKind
	Msg  string
}

func (e *TranslationError) Error() string { return e.Msg }

func unsupported(format string, args ...interface{}) *TranslationError {
	return &TranslationError{Kind: Unsupported, Msg: fmt.Sprintf(format, args...)}
}

func malformed(format string, args ...interface{}) *TranslationError {
	return &TranslationError{Kind: Malformed, Msg: fmt.Sprintf(format, args...)}
}

// ModuleContext is the module-level symbol resolution the translator needs:
// signatures for call/call_indirect, global types, and memory/table
// presence. It is satisfied directly by *wasm.Module.
type ModuleContext interface {
	TypeOfFunc(idx uint32) wasm.FuncType
	TypeByIndex(typeIdx uint32) wasm.FuncType
	GlobalType(idx uint32) wasm.GlobalType
	HasMemory() bool
	TableType(idx uint32) wasm.TableType
}

// Translate converts fn's decoded body into an ir.Function. sigID is the
// SignatureID to assign the new function (callers own SignatureID
// allocation so direct-call sites elsewhere can reference it consistently).
func Translate(mod ModuleContext, fn *wasm.Function, sigID ir.SignatureID) (*ir.Function, error) {
	sig := &ir.Signature{ID: sigID, Params: fn.Type.Params, Results: fn.Type.Results}
	f := ir.NewFunction(sig)
	b := ir.NewBuilder(f)

	t := &translator{mod: mod, f: f, b: b, fn: fn, sigIDs: map[string]ir.SignatureID{}}
	t.initLocals()
	if err := t.run(); err != nil {
		return nil, err
	}
	return f, nil
}

type controlKind byte

const (
	ctrlBlock controlKind = iota
	ctrlLoop
	ctrlIf
)

// controlFrame tracks one open structured-control region.
type controlFrame struct {
	kind controlKind

	blockType wasm.BlockType
	// branchTarget is the block a `br` to this depth jumps to: the loop
	// header for ctrlLoop, the continuation ("after") block otherwise.
	branchTarget *ir.BasicBlock
	// afterBlock is the block execution resumes in once this frame's `end`
	// is reached (same as branchTarget for ctrlBlock/ctrlIf).
	afterBlock *ir.BasicBlock
	elseBlock  *ir.BasicBlock // ctrlIf only, nil once Else has been seen or never had one
	sawElse    bool

	stackHeightAtEntry int
	unreachable        bool // true once a terminator (unreachable/br/return) makes the rest of this frame dead
	preds              []*ir.BasicBlock
}

type translator struct {
	mod ModuleContext
	f   *ir.Function
	b   *ir.Builder
	fn  *wasm.Function

	locals []ir.Variable
	stack  []ir.Value
	ctrl   []*controlFrame
	sigIDs map[string]ir.SignatureID
}

func (t *translator) initLocals() {
	for _, pt := range t.fn.Type.Params {
		v := t.b.DeclareVariable(pt)
		t.locals = append(t.locals, v)
	}
	for _, lt := range t.fn.Locals {
		v := t.b.DeclareVariable(lt)
		t.locals = append(t.locals, v)
	}
	// Bind parameter locals to the entry block's parameters.
	for i, p := range t.f.Entry().Params() {
		t.b.DefineVariable(t.locals[i], p.Value, t.f.Entry())
	}
	// Remaining locals default-initialize to zero, per the Wasm spec.
	for i := len(t.fn.Type.Params); i < len(t.locals); i++ {
		lt := t.locals[i]
		_ = lt
		zt := t.fn.Locals[i-len(t.fn.Type.Params)]
		var zero ir.Value
		switch {
		case zt.IsInt():
			zero = t.b.Iconst(zt, 0)
		case zt.IsFloat():
			zero = t.b.Fconst(zt, 0)
		default:
			zero = t.b.RefNull(zt)
		}
		t.b.DefineVariable(t.locals[i], zero, t.f.Entry())
	}
}

func (t *translator) push(v ir.Value)  { t.stack = append(t.stack, v) }
func (t *translator) pop() ir.Value {
	v := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return v
}
func (t *translator) popN(n int) []ir.Value {
	vs := append([]ir.Value{}, t.stack[len(t.stack)-n:]...)
	t.stack = t.stack[:len(t.stack)-n]
	return vs
}

func (t *translator) curFrame() *controlFrame { return t.ctrl[len(t.ctrl)-1] }

func (t *translator) run() error {
	// Implicit outermost "function" frame: branching past depth
	// len(ctrl)-1 isn't legal Wasm, so the function body is simply a
	// sequence terminated by `return`/fallthrough-to-return.
	for pc := 0; pc < len(t.fn.Body); pc++ {
		op := t.fn.Body[pc]
		if err := t.step(op); err != nil {
			return err
		}
	}
	if t.b.CurrentBlock().Terminator() == ir.TermInvalid {
		t.b.SetReturn(t.coerceReturn())
	}
	return nil
}

func (t *translator) coerceReturn() []ir.Value {
	n := len(t.fn.Type.Results)
	return t.popN(n)
}

func (t *translator) step(op wasm.Op) error {
	if t.inUnreachableCode() && op.Kind != wasm.OpBlock && op.Kind != wasm.OpLoop &&
		op.Kind != wasm.OpIf && op.Kind != wasm.OpElse && op.Kind != wasm.OpEnd {
		// Dead code between a terminator and the matching `else`/`end`:
		// track nesting so structured markers still pop correctly, but
		// perform no SSA construction (the block has no insertion point).
		return nil
	}
	switch op.Kind {
	case wasm.OpUnreachable:
		t.b.SetUnreachable()
		t.markUnreachable()
	case wasm.OpNop:
	case wasm.OpBlock:
		t.enterBlock(op.Block)
	case wasm.OpLoop:
		t.enterLoop(op.Block)
	case wasm.OpIf:
		t.enterIf(op.Block)
	case wasm.OpElse:
		t.enterElse()
	case wasm.OpEnd:
		t.leaveFrame()
	case wasm.OpBr:
		t.br(int(op.Index))
		t.markUnreachable()
	case wasm.OpBrIf:
		t.brIf(int(op.Index))
	case wasm.OpBrTable:
		t.brTable(op.BrTargets, op.BrDefault)
		t.markUnreachable()
	case wasm.OpReturn:
		t.b.SetReturn(t.coerceReturn())
		t.markUnreachable()
	case wasm.OpCall:
		return t.call(op.Index)
	case wasm.OpCallIndirect:
		return t.callIndirect(op.Index, op.Index2)
	case wasm.OpReturnCall:
		return t.returnCall(op.Index)
	case wasm.OpReturnCallIndirect:
		return t.returnCallIndirect(op.Index, op.Index2)
	case wasm.OpDrop:
		t.pop()
	case wasm.OpSelect:
		t.select_()
	case wasm.OpLocalGet:
		t.push(t.getLocal(op.Index))
	case wasm.OpLocalSet:
		t.setLocal(op.Index, t.pop())
	case wasm.OpLocalTee:
		v := t.pop()
		t.setLocal(op.Index, v)
		t.push(v)
	case wasm.OpGlobalGet:
		gt := t.mod.GlobalType(op.Index)
		t.push(t.b.GlobalGet(op.Index, gt.Type))
	case wasm.OpGlobalSet:
		t.b.GlobalSet(op.Index, t.pop())
	case wasm.OpLoad:
		t.load(op)
	case wasm.OpStore:
		t.store(op)
	case wasm.OpMemorySize:
		t.push(t.memorySize())
	case wasm.OpMemoryGrow:
		t.push(t.memoryGrow(t.pop()))
	case wasm.OpConstI32:
		t.push(t.b.Iconst(ir.TypeI32, uint64(uint32(op.I32))))
	case wasm.OpConstI64:
		t.push(t.b.Iconst(ir.TypeI64, uint64(op.I64)))
	case wasm.OpConstF32:
		t.push(t.b.Fconst(ir.TypeF32, uint64(op.F32)))
	case wasm.OpConstF64:
		t.push(t.b.Fconst(ir.TypeF64, op.F64))
	case wasm.OpRefNull:
		t.push(t.b.RefNull(resultType(op)))
	case wasm.OpRefIsNull:
		t.refIsNull()
	case wasm.OpUnary:
		t.unary(op.NumOp)
	case wasm.OpBinary:
		t.binary(op.NumOp)
	case wasm.OpCompare:
		t.compare(op.NumOp)
	case wasm.OpConvert:
		t.convert(op.NumOp)
	default:
		return unsupported("unsupported wasm opcode kind %d", op.Kind)
	}
	return nil
}

func resultType(op wasm.Op) ir.Type {
	if len(op.Block.Results) == 1 {
		return op.Block.Results[0]
	}
	return ir.TypeFuncref
}

func (t *translator) inUnreachableCode() bool {
	return len(t.ctrl) > 0 && t.curFrame().unreachable
}

func (t *translator) markUnreachable() {
	if len(t.ctrl) > 0 {
		t.curFrame().unreachable = true
	}
}

func (t *translator) getLocal(idx uint32) ir.Value { return t.b.FindValue(t.locals[idx]) }
func (t *translator) setLocal(idx uint32, v ir.Value) {
	t.b.DefineVariableInCurrentBB(t.locals[idx], v)
}
