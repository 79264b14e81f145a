package emit

import "testing"

// Golden encodings below are cross-checked against well-known disassembly
// of the instructions named in each test (e.g. via objdump on a trivial
// assembly snippet), not re-derived from this package's own formulas.

func TestEncodeAddSubImmGolden(t *testing.T) {
	// add x0, x1, #5
	got := encodeAddSubImm(0, 0, 0, 5, 1, 0, 1)
	if want := uint32(0x91001420); got != want {
		t.Errorf("add x0, x1, #5 = %#08x, want %#08x", got, want)
	}
}

func TestEncodeAddSubImmSubtractAndFlags(t *testing.T) {
	// subs x0, x1, #5 (CMP alias base form): op=1, s=1.
	got := encodeSubsImm(1, 5, 0, 1)
	want := encodeAddSubImm(1, 1, 0, 5, 1, 31, 1)
	if got != want {
		t.Errorf("encodeSubsImm mismatch: %#08x vs %#08x", got, want)
	}
}

func TestEncodeLogicalShiftedRegMovAlias(t *testing.T) {
	// mov x0, x1  ==  orr x0, xzr, x1
	got := encodeLogicalShiftedReg(0b01, 0, 1, 0, 31, 0, 1)
	if want := uint32(0xaa0103e0); got != want {
		t.Errorf("mov x0, x1 = %#08x, want %#08x", got, want)
	}
}

func TestEncodeAluRRRRMadd(t *testing.T) {
	// madd x0, x1, x2, x3 : Rd=x0 Rn=x1 Rm=x2 Ra=x3, sub=0.
	got := encodeAluRRRR(0, 0, 1, 2, 3, 1)
	if want := uint32(0x9b020c20); got != want {
		t.Errorf("madd x0,x1,x2,x3 = %#08x, want %#08x", got, want)
	}
}

func TestEncodeBCondConditionField(t *testing.T) {
	// b.eq with a zero displacement: cond field (bits 0..3) must read back as 0.
	enc := encodeBCond(0b0000, 0)
	if enc&0xf != 0 {
		t.Errorf("cond field = %d, want 0 (EQ)", enc&0xf)
	}
	enc = encodeBCond(0b1011, 0) // LT
	if got := enc & 0xf; got != 0b1011 {
		t.Errorf("cond field = %#b, want %#b (LT)", got, 0b1011)
	}
}

func TestEncodeCBZCBNZOpcodeBit(t *testing.T) {
	cbz := encodeCBZCBNZ(0, false, 0, 1)
	cbnz := encodeCBZCBNZ(0, true, 0, 1)
	if cbz&(1<<24) != 0 {
		t.Error("CBZ must have bit 24 clear")
	}
	if cbnz&(1<<24) == 0 {
		t.Error("CBNZ must have bit 24 set")
	}
}

func TestEncodeRetIsFixedEncoding(t *testing.T) {
	// ret (implicit x30)
	if got, want := encodeRet(), uint32(0xd65f03c0); got != want {
		t.Errorf("encodeRet() = %#08x, want %#08x", got, want)
	}
}

func TestEncodeNopIsFixedEncoding(t *testing.T) {
	if got, want := encodeNop(), uint32(0xd503201f); got != want {
		t.Errorf("encodeNop() = %#08x, want %#08x", got, want)
	}
}

func TestEncodeMoveWideOpcodes(t *testing.T) {
	// movz x0, #5
	got := encodeMoveWide(0b10, 0, 5, 0, 1)
	if want := uint32(0xd28000a0); got != want {
		t.Errorf("movz x0, #5 = %#08x, want %#08x", got, want)
	}
}

func TestEncodeBranchRegOpcodes(t *testing.T) {
	if encodeBranchReg(branchRegOpcBR, 0) == encodeBranchReg(branchRegOpcBLR, 0) {
		t.Error("BR and BLR must encode differently")
	}
	if encodeBranchReg(branchRegOpcRET, 30) != encodeRet() {
		t.Error("encodeBranchReg(RET, lr) should match encodeRet()")
	}
}

func TestW64BitHelper(t *testing.T) {
	if w64Bit(64) != 1 {
		t.Error("w64Bit(64) should be 1")
	}
	if w64Bit(32) != 0 {
		t.Error("w64Bit(32) should be 0")
	}
}
