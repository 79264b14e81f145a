package ir

// Unary emits a single-operand instruction of the given opcode.
func (b *Builder) Unary(op Opcode, t Type, x Value) Value { return b.emit1(op, t, x) }

// Binary emits a two-operand instruction of the given opcode.
func (b *Builder) Binary(op Opcode, t Type, x, y Value) Value { return b.emit1(op, t, x, y) }

// Icmp emits an integer comparison, always producing an i32 0/1 result.
func (b *Builder) Icmp(cond IntCmpCond, x, y Value) Value {
	i := b.AllocateInstruction()
	i.opcode, i.typ, i.u1, i.v, i.v2 = OpcodeIcmp, TypeI32, uint64(cond), x, y
	i.rValue = b.f.allocateValue(TypeI32)
	b.InsertInstruction(i)
	return i.rValue
}

// Fcmp emits a float comparison, always producing an i32 0/1 result.
func (b *Builder) Fcmp(cond FloatCmpCond, x, y Value) Value {
	i := b.AllocateInstruction()
	i.opcode, i.typ, i.u1, i.v, i.v2 = OpcodeFcmp, TypeI32, uint64(cond), x, y
	i.rValue = b.f.allocateValue(TypeI32)
	b.InsertInstruction(i)
	return i.rValue
}

// Select emits a select(cond, ifTrue, ifFalse) instruction.
func (b *Builder) Select(cond, ifTrue, ifFalse Value) Value {
	return b.emit1(OpcodeSelect, ifTrue.Type(), cond, ifTrue, ifFalse)
}

// Load emits a memory load of the given result type and access descriptor.
func (b *Builder) Load(t Type, addr Value, mem MemArg) Value {
	i := b.AllocateInstruction()
	i.opcode, i.typ, i.v, i.mem = OpcodeLoad, t, addr, mem
	i.rValue = b.f.allocateValue(t)
	b.InsertInstruction(i)
	return i.rValue
}

// Store emits a memory store; produces no result.
func (b *Builder) Store(addr, val Value, mem MemArg) {
	i := b.AllocateInstruction()
	i.opcode, i.v, i.v2, i.mem = OpcodeStore, addr, val, mem
	b.InsertInstruction(i)
}

// MemorySize emits a memory.size instruction, result in pages (i32).
func (b *Builder) MemorySize() Value { return b.emit1(OpcodeMemorySize, TypeI32) }

// MemoryGrow emits a memory.grow instruction; result is the previous size
// in pages, or -1 on failure.
func (b *Builder) MemoryGrow(delta Value) Value { return b.emit1(OpcodeMemoryGrow, TypeI32, delta) }

// GlobalGet emits a read of the idx-th module global.
func (b *Builder) GlobalGet(idx uint32, t Type) Value {
	i := b.AllocateInstruction()
	i.opcode, i.typ, i.u1 = OpcodeGlobalGet, t, uint64(idx)
	i.rValue = b.f.allocateValue(t)
	b.InsertInstruction(i)
	return i.rValue
}

// GlobalSet emits a write to the idx-th module global.
func (b *Builder) GlobalSet(idx uint32, val Value) {
	i := b.AllocateInstruction()
	i.opcode, i.u1, i.v = OpcodeGlobalSet, uint64(idx), val
	b.InsertInstruction(i)
}

// RefIsNull emits a ref.is_null instruction.
func (b *Builder) RefIsNull(ref Value) Value { return b.emit1(OpcodeRefIsNull, TypeI32, ref) }

// Call emits a direct call to funcIdx with the given signature and args,
// returning the (possibly multi-value) results.
func (b *Builder) Call(funcIdx uint32, sig SignatureID, args []Value, resultTypes []Type) (Value, []Value) {
	i := b.AllocateInstruction()
	i.opcode, i.u1, i.sig, i.vs = OpcodeCall, uint64(funcIdx), sig, args
	return b.finishCallResults(i, resultTypes)
}

// CallIndirect emits an indirect call through tableIdx at index idx.
func (b *Builder) CallIndirect(tableIdx uint32, sig SignatureID, idx Value, args []Value, resultTypes []Type) (Value, []Value) {
	i := b.AllocateInstruction()
	i.opcode, i.u2, i.sig, i.v, i.vs = OpcodeCallIndirect, uint64(tableIdx), sig, idx, args
	return b.finishCallResults(i, resultTypes)
}

// ReturnCall emits a tail call to funcIdx; it is a terminator and no
// further instructions may follow it in the block.
func (b *Builder) ReturnCall(funcIdx uint32, sig SignatureID, args []Value) {
	i := b.AllocateInstruction()
	i.opcode, i.u1, i.sig, i.vs = OpcodeReturnCall, uint64(funcIdx), sig, args
	b.InsertInstruction(i)
}

// ReturnCallIndirect emits a tail call through a table.
func (b *Builder) ReturnCallIndirect(tableIdx uint32, sig SignatureID, idx Value, args []Value) {
	i := b.AllocateInstruction()
	i.opcode, i.u2, i.sig, i.v, i.vs = OpcodeReturnCallIndirect, uint64(tableIdx), sig, idx, args
	b.InsertInstruction(i)
}

func (b *Builder) finishCallResults(i *Instruction, resultTypes []Type) (Value, []Value) {
	if len(resultTypes) == 0 {
		b.InsertInstruction(i)
		return ValueInvalid, nil
	}
	first := b.f.allocateValue(resultTypes[0])
	var rest []Value
	for _, rt := range resultTypes[1:] {
		rest = append(rest, b.f.allocateValue(rt))
	}
	i.setResults(first, rest)
	b.InsertInstruction(i)
	return first, rest
}

// TableGet/TableSet/MemoryCopy/MemoryFill/MemoryInit/TableCopy/TableFill/
// TableInit/StructNew/StructGet/StructSet/ArrayNew/ArrayGet/ArraySet/
// ArrayLen/RefFunc follow the same flattened-field convention; only the
// ones exercised by the supplied test programs are wired in above, others
// are added the same way as the need arises (see Builder.emit1).
