package emit

import "testing"

func TestEncodeLogicalImmediateRejectsAllZeroAllOnes(t *testing.T) {
	if _, _, _, ok := EncodeLogicalImmediate(0, 32); ok {
		t.Error("0 must not be encodable")
	}
	if _, _, _, ok := EncodeLogicalImmediate(0xffffffff, 32); ok {
		t.Error("all-ones 32-bit must not be encodable")
	}
	if _, _, _, ok := EncodeLogicalImmediate(^uint64(0), 64); ok {
		t.Error("all-ones 64-bit must not be encodable")
	}
}

func TestEncodeLogicalImmediateSimpleMask(t *testing.T) {
	// 0xff (low byte mask, 32-bit): the two 16-bit halves differ, so the
	// element stays 32 bits; 8 ones, no rotation.
	n, immr, imms, ok := EncodeLogicalImmediate(0xff, 32)
	if !ok {
		t.Fatal("0xff should be encodable")
	}
	if n != 0 {
		t.Errorf("n = %d, want 0 for a 32-bit immediate", n)
	}
	if immr != 0 {
		t.Errorf("immr = %d, want 0 (no rotation needed)", immr)
	}
	// sizeBit(32) = 0b000000, ones=8 -> imms = 0b000000 | (8-1) = 0b000111.
	if want := uint32(0b000111); imms != want {
		t.Errorf("imms = %#b, want %#b", imms, want)
	}
}

func TestEncodeLogicalImmediateSingleBit(t *testing.T) {
	// A single set bit is a contiguous run of length 1. Value 1 does not
	// replicate at any smaller element size, so it encodes as a one-bit
	// run in a 32-bit element.
	_, _, _, ok := EncodeLogicalImmediate(1, 32)
	if !ok {
		t.Fatal("1 should be encodable")
	}
}

func TestEncodeLogicalImmediateRejectsDiscontiguous(t *testing.T) {
	if _, _, _, ok := EncodeLogicalImmediate(0b1010, 32); ok {
		t.Error("0b1010 is not a valid bitmask-immediate pattern")
	}
}

func TestEncodeLogicalImmediate64BitSetsN(t *testing.T) {
	n, _, _, ok := EncodeLogicalImmediate(0xff, 64)
	if !ok {
		t.Fatal("0xff at width 64 should be encodable")
	}
	if n != 1 {
		t.Errorf("n = %d, want 1 for a 64-bit-element immediate", n)
	}
}
