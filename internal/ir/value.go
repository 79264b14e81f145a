package ir

import "fmt"

// Value represents an SSA value: either the result of an Instruction or a
// Block parameter. Exactly one definition exists for any given Value.
type Value uint64

// ValueID is the portion of a Value which uniquely identifies it within a
// Function, independent of its Type.
type ValueID uint32

// ValueInvalid is the zero Value, never produced by a real definition.
const ValueInvalid Value = 0

const valueIDInvalid ValueID = 1<<32 - 1

// Valid reports whether v refers to a real definition.
func (v Value) Valid() bool { return v != ValueInvalid }

// ID returns the ValueID portion of v.
func (v Value) ID() ValueID { return ValueID(v) }

// Type returns the Type carried by v.
func (v Value) Type() Type { return Type(v >> 32) }

func valueWithType(id ValueID, t Type) Value {
	return Value(id) | Value(t)<<32
}

// String implements fmt.Stringer, primarily for debug dumps.
func (v Value) String() string {
	if !v.Valid() {
		return "v_invalid"
	}
	return fmt.Sprintf("v%d", v.ID())
}

// Variable is a source-level local (or operand-stack slot) as tracked
// during SSA construction; it is retired once DefineVariable resolves
// every use to a concrete Value.
type Variable uint32

// VariableInvalid marks the absence of a variable.
const VariableInvalid Variable = 1<<32 - 1
