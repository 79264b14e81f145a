package frontend

import (
	"strings"

	"github.com/cwasmjit/cwasmjit/internal/ir"
)

func (t *translator) call(funcIdx uint32) error {
	ft := t.mod.TypeOfFunc(funcIdx)
	args := t.popN(len(ft.Params))
	sig := t.internSignature(ft.Params, ft.Results)
	first, rest := t.b.Call(funcIdx, sig, args, ft.Results)
	t.pushResults(first, rest)
	return nil
}

func (t *translator) callIndirect(typeIdx, tableIdx uint32) error {
	ft := t.mod.TypeByIndex(typeIdx)
	idx := t.pop()
	args := t.popN(len(ft.Params))
	sig := t.internSignature(ft.Params, ft.Results)
	first, rest := t.b.CallIndirect(tableIdx, sig, idx, args, ft.Results)
	t.pushResults(first, rest)
	return nil
}

func (t *translator) returnCall(funcIdx uint32) error {
	ft := t.mod.TypeOfFunc(funcIdx)
	args := t.popN(len(ft.Params))
	sig := t.internSignature(ft.Params, ft.Results)
	t.b.ReturnCall(funcIdx, sig, args)
	t.markUnreachable()
	return nil
}

func (t *translator) returnCallIndirect(typeIdx, tableIdx uint32) error {
	ft := t.mod.TypeByIndex(typeIdx)
	idx := t.pop()
	args := t.popN(len(ft.Params))
	sig := t.internSignature(ft.Params, ft.Results)
	t.b.ReturnCallIndirect(tableIdx, sig, idx, args)
	t.markUnreachable()
	return nil
}

func (t *translator) pushResults(first ir.Value, rest []ir.Value) {
	if first.Valid() {
		t.push(first)
	}
	for _, r := range rest {
		t.push(r)
	}
}

// internSignature returns a stable SignatureID for (params, results),
// registering a fresh *ir.Signature with the Function the first time a
// given shape is seen so Call/CallIndirect sites referencing the same
// shape share one descriptor (the lowerer uses this to build one ABI
// thunk per distinct shape instead of one per call site).
func (t *translator) internSignature(params, results []ir.Type) ir.SignatureID {
	key := sigKey(params, results)
	if id, ok := t.sigIDs[key]; ok {
		return id
	}
	id := ir.SignatureID(len(t.sigIDs) + 1)
	t.sigIDs[key] = id
	t.f.Signatures[id] = &ir.Signature{ID: id, Params: params, Results: results}
	return id
}

func sigKey(params, results []ir.Type) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteByte(byte(p))
	}
	b.WriteByte('|')
	for _, r := range results {
		b.WriteByte(byte(r))
	}
	return b.String()
}
