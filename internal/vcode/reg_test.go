package vcode

import "testing"

func TestVRegInvalid(t *testing.T) {
	if VRegInvalid.Valid() {
		t.Error("VRegInvalid should not be Valid")
	}
	if got := VRegInvalid.String(); got != "_" {
		t.Errorf("VRegInvalid.String() = %q, want _", got)
	}
}

func TestVRegString(t *testing.T) {
	iv := VReg{ID: 3, Class: RegClassInt}
	if got, want := iv.String(), "%v3"; got != want {
		t.Errorf("int VReg.String() = %q, want %q", got, want)
	}
	fv := VReg{ID: 5, Class: RegClassFloat}
	if got, want := fv.String(), "%f5"; got != want {
		t.Errorf("float VReg.String() = %q, want %q", got, want)
	}
	if !iv.Valid() || !fv.Valid() {
		t.Error("constructed VRegs should be valid")
	}
}

func TestRegClassString(t *testing.T) {
	if RegClassInt.String() != "int" {
		t.Errorf("RegClassInt.String() = %q", RegClassInt.String())
	}
	if RegClassFloat.String() != "float" {
		t.Errorf("RegClassFloat.String() = %q", RegClassFloat.String())
	}
}

func TestRegClassEnv(t *testing.T) {
	if len(RegClassInt.Env().Preferred) == 0 {
		t.Error("int preferred set should be non-empty")
	}
	if len(RegClassFloat.Env().NonPreferred) == 0 {
		t.Error("float non-preferred set should be non-empty")
	}
	// Reserved ABI registers must never appear in the allocatable set.
	reserved := map[RealReg]bool{
		RegContext: true, RegFuncTbl: true, RegMemBase: true,
		RegMemSize: true, RegExtraRes: true, RegIndirect: true,
		RegScratch0: true, RegScratch1: true, RegFP: true, RegLR: true, RegZeroOrSP: true,
	}
	for _, r := range append(append([]RealReg{}, IntEnv.Preferred...), IntEnv.NonPreferred...) {
		if reserved[r] {
			t.Errorf("reserved register X%d must not be in the integer allocatable set", r)
		}
	}
}

func TestIntRegName(t *testing.T) {
	if got := IntRegName(RegZeroOrSP, true); got != "sp" {
		t.Errorf("IntRegName(31, w64) = %q, want sp", got)
	}
	if got := IntRegName(RegZeroOrSP, false); got != "wsp" {
		t.Errorf("IntRegName(31, w32) = %q, want wsp", got)
	}
	if got := IntRegName(RealReg(3), true); got != "x3" {
		t.Errorf("IntRegName(3, w64) = %q, want x3", got)
	}
	if got := IntRegName(RealReg(3), false); got != "w3" {
		t.Errorf("IntRegName(3, w32) = %q, want w3", got)
	}
}

func TestFloatRegName(t *testing.T) {
	if got := FloatRegName(RealReg(4), true); got != "d4" {
		t.Errorf("FloatRegName(4, double) = %q, want d4", got)
	}
	if got := FloatRegName(RealReg(4), false); got != "s4" {
		t.Errorf("FloatRegName(4, single) = %q, want s4", got)
	}
}
