package ir

// Function is a single compiled Wasm function in IR form: an entry block,
// a set of reachable blocks, and a globally-scoped pool of SSA values.
type Function struct {
	Name      string
	Index     uint32
	Sig       *Signature
	Signatures map[SignatureID]*Signature

	blocks  []*BasicBlock
	entry   *BasicBlock
	rpo     []*BasicBlock // set by RunDominance; reverse postorder, unreachable blocks excluded

	nextBlockID BlockID
	nextValueID ValueID
	valueTypes  []Type // indexed by ValueID, grown lazily

	refCounts []int // indexed by ValueID, maintained by the optimizer driver
}

// NewFunction allocates an empty Function for the given signature.
func NewFunction(sig *Signature) *Function {
	f := &Function{Sig: sig, Signatures: map[SignatureID]*Signature{sig.ID: sig}}
	f.entry = f.AllocateBasicBlock()
	for _, p := range sig.Params {
		f.AppendBlockParam(f.entry, p)
	}
	return f
}

// Entry returns the function's entry block.
func (f *Function) Entry() *BasicBlock { return f.entry }

// Blocks returns every block allocated so far, in allocation order
// (including now-unreachable ones; use ReversePostOrder for compiled order).
func (f *Function) Blocks() []*BasicBlock { return f.blocks }

// ReversePostOrder returns the reachable blocks in reverse postorder, valid
// after RunDominance.
func (f *Function) ReversePostOrder() []*BasicBlock { return f.rpo }

// AllocateBasicBlock creates and registers a new, initially unsealed block.
func (f *Function) AllocateBasicBlock() *BasicBlock {
	b := &BasicBlock{id: f.nextBlockID, rpoIndex: -1}
	f.nextBlockID++
	f.blocks = append(f.blocks, b)
	return b
}

// allocateValue reserves a fresh Value of the given type.
func (f *Function) allocateValue(t Type) Value {
	id := f.nextValueID
	f.nextValueID++
	for int(id) >= len(f.valueTypes) {
		f.valueTypes = append(f.valueTypes, typeInvalid)
	}
	f.valueTypes[id] = t
	return valueWithType(id, t)
}

// AppendBlockParamsBlock allocates a new block and gives it one parameter
// per entry of types, in order. It is the usual way to create a Wasm
// structured-control merge point whose arity is known statically from the
// block's declared type.
func (f *Function) AppendBlockParamsBlock(types []Type) *BasicBlock {
	b := f.AllocateBasicBlock()
	for _, t := range types {
		f.AppendBlockParam(b, t)
	}
	return b
}

// AppendBlockParam adds a new typed parameter to b and returns its Value.
func (f *Function) AppendBlockParam(b *BasicBlock, t Type) Value {
	v := f.allocateValue(t)
	b.params = append(b.params, BlockParam{Value: v, Type: t})
	return v
}

// NumValues returns the number of Values allocated so far (i.e. one past
// the highest ValueID).
func (f *Function) NumValues() int { return int(f.nextValueID) }

// ValueType returns the declared type of v.
func (f *Function) ValueType(v Value) Type { return v.Type() }

// RefCounts returns the per-value use counts computed by the last
// optimizer driver run (DCE/rewrite passes keep it updated incrementally).
func (f *Function) RefCounts() []int { return f.refCounts }
