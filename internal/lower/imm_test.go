package lower

import "testing"

func TestFitsAddImm12(t *testing.T) {
	cases := []struct {
		v    int64
		want bool
	}{
		{0, true},
		{1, true},
		{0xfff, true},
		{0x1000, true},     // low 12 bits clear, fits the LSL#12-shifted imm12 form
		{0xfff000, true},   // 0xfff << 12, fits shifted imm12
		{0x1000000, false}, // exceeds imm12 even shifted
		{-1, false},
	}
	for _, c := range cases {
		if got := fitsAddImm12(c.v); got != c.want {
			t.Errorf("fitsAddImm12(%#x) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestIsShiftAmountInRange(t *testing.T) {
	if !isShiftAmountInRange(0) || !isShiftAmountInRange(63) {
		t.Error("0 and 63 should be in range")
	}
	if isShiftAmountInRange(64) {
		t.Error("64 should be out of range")
	}
}

func TestLogicalImmEncodableRejectsAllZeroAllOne(t *testing.T) {
	if logicalImmEncodable(0, 32) {
		t.Error("0 should never be logical-imm encodable")
	}
	if logicalImmEncodable(0xffffffff, 32) {
		t.Error("all-ones (32-bit) should never be logical-imm encodable")
	}
	if logicalImmEncodable(^uint64(0), 64) {
		t.Error("all-ones (64-bit) should never be logical-imm encodable")
	}
}

func TestLogicalImmEncodableAcceptsContiguousRun(t *testing.T) {
	if !logicalImmEncodable(0xff, 32) {
		t.Error("0xff (low byte mask) should be encodable")
	}
	if !logicalImmEncodable(0xff00, 32) {
		t.Error("0xff00 (rotated byte mask) should be encodable")
	}
	if !logicalImmEncodable(1, 32) {
		t.Error("1 should be encodable")
	}
}

func TestLogicalImmEncodableRejectsDiscontiguous(t *testing.T) {
	if logicalImmEncodable(0b1010, 32) {
		t.Error("0b1010 is not a contiguous run and should not be encodable")
	}
}

func TestFitsLogicalImmMatchesHelperFunction(t *testing.T) {
	if fitsLogicalImm(0xff, 32) != logicalImmEncodable(0xff, 32) {
		t.Error("fitsLogicalImm should delegate directly to logicalImmEncodable")
	}
}
