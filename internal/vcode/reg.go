// Package vcode implements the machine-near intermediate representation
// that sits between the IR lowerer and the AArch64 emitter: VCode
// instructions over virtual registers, later rewritten in place to
// physical registers by the register allocator.
package vcode

import "fmt"

// RegClass partitions registers into the two machine register files the
// lowerer and allocator care about.
type RegClass uint8

const (
	RegClassInt RegClass = iota
	RegClassFloat
	NumRegClass
)

func (c RegClass) String() string {
	if c == RegClassFloat {
		return "float"
	}
	return "int"
}

// VReg identifies a virtual register: an allocator input that has not yet
// been assigned a physical location. IDs are unique within one
// vcode.Function, scoped per RegClass.
type VReg struct {
	ID    uint32
	Class RegClass
}

// VRegInvalid (ID ^0) marks an absent optional operand (e.g. an
// instruction with fewer than its maximum operand count). It is not the
// zero VReg: VReg{} is integer vreg 0, which Valid reports as valid.
var VRegInvalid = VReg{ID: ^uint32(0), Class: RegClassInt}

// Valid reports whether v refers to a real virtual register.
func (v VReg) Valid() bool { return v.ID != ^uint32(0) }

func (v VReg) String() string {
	if !v.Valid() {
		return "_"
	}
	if v.Class == RegClassFloat {
		return fmt.Sprintf("%%f%d", v.ID)
	}
	return fmt.Sprintf("%%v%d", v.ID)
}

// RealReg is a physical AArch64 register number, 0-31 within its class.
// The allocator assigns these; the emitter encodes them directly into
// instruction bit fields.
type RealReg uint8

// RealRegInvalid marks "not yet assigned" / "no physical register" (e.g.
// for a VReg the allocator decided to keep entirely in a spill slot across
// its whole range, which does not occur in practice but is representable).
const RealRegInvalid RealReg = 0xff

// AArch64 integer register numbers used by the fixed ABI roles (spec §4.5).
const (
	RegZeroOrSP = RealReg(31) // XZR in most contexts, SP in load/store base position
	RegFP       = RealReg(29)
	RegLR       = RealReg(30)
	RegContext  = RealReg(19) // X19: JITContext pointer
	RegFuncTbl  = RealReg(20) // X20: cached func_table
	RegMemBase  = RealReg(21) // X21: cached memory_base
	RegMemSize  = RealReg(22) // X22: cached memory_size
	RegExtraRes = RealReg(23) // X23: extra-results buffer pointer
	RegIndirect = RealReg(24) // X24: cached indirect_table
	RegScratch0 = RealReg(16) // X16: emitter scratch, not allocatable
	RegScratch1 = RealReg(17) // X17: emitter scratch, not allocatable
)

// IntRegName / FloatRegName render AArch64 assembly-style register names
// for disassembly and golden-byte test failure messages.
func IntRegName(r RealReg, w64 bool) string {
	switch r {
	case RegZeroOrSP:
		if w64 {
			return "sp"
		}
		return "wsp"
	}
	if w64 {
		return fmt.Sprintf("x%d", r)
	}
	return fmt.Sprintf("w%d", r)
}

func FloatRegName(r RealReg, double bool) string {
	if double {
		return fmt.Sprintf("d%d", r)
	}
	return fmt.Sprintf("s%d", r)
}

// Assignment is the per-vreg allocation outcome produced by the register
// allocator: either a RealReg, or a spill-slot index (mutually exclusive;
// a vreg occupies exactly one storage location at any instant, but a
// single VReg id may be spilled/reloaded at different points of its live
// range via explicit SpillStore/SpillLoad instructions rather than a
// single static location).
type Assignment struct {
	Reg RealReg
	// SpillSlot is valid (>=0) when this particular program point's use
	// was served from the stack rather than a register.
	SpillSlot int
}

// RegEnv describes the allocatable register set for one RegClass: which
// real registers are available, partitioned into preferred (caller-saved
// scratch, tried first) and non-preferred (callee-saved) pools, per
// spec §4.4.
type RegEnv struct {
	Preferred    []RealReg
	NonPreferred []RealReg
}

// IntEnv is the AArch64 integer allocatable set. X19-X24 are reserved for
// JITContext caches (see the Reg* constants above); X16/X17 are emitter
// scratch; X29/X30/SP are frame registers. X0-X7 double as argument/return
// registers but remain in the preferred (caller-saved) pool since the ABI
// shuffles them at call boundaries, matching the allocator's call-clobber
// handling (spec §4.4 step 7).
var IntEnv = RegEnv{
	Preferred:    []RealReg{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	NonPreferred: []RealReg{25, 26, 27, 28},
}

// FloatEnv is the AArch64 float/vector allocatable set: D0-D7
// (params/returns, caller-saved) then extra caller-saved temps, then the
// callee-saved D8-D15. D31 is reserved as the emitter/allocator's float
// spill scratch register, mirroring X16/X17's role in the integer class.
var FloatEnv = RegEnv{
	Preferred:    []RealReg{0, 1, 2, 3, 4, 5, 6, 7, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30},
	NonPreferred: []RealReg{8, 9, 10, 11, 12, 13, 14, 15},
}

// FloatScratch is the reserved, non-allocatable float spill-reload register.
const FloatScratch = RealReg(31)

func (c RegClass) Env() RegEnv {
	if c == RegClassFloat {
		return FloatEnv
	}
	return IntEnv
}
