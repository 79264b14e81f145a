package runtime

import "testing"

func TestTrapKindFromBRK(t *testing.T) {
	cases := []struct {
		imm  uint8
		want TrapKind
	}{
		{0, TrapUnreachable},
		{1, TrapMemoryOutOfBounds},
		{2, TrapIntegerDivisionByZero},
		{3, TrapIntegerOverflow},
		{4, TrapInvalidConversion},
		{5, TrapIndirectCallNull},
		{6, TrapIndirectCallTypeMismatch},
		{7, TrapTableOutOfBounds},
		{8, TrapStackOverflow},
		{99, TrapUnreachable}, // unknown code falls back to unreachable
	}
	for _, c := range cases {
		if got := trapKindFromBRK(c.imm); got != c.want {
			t.Errorf("trapKindFromBRK(%d) = %v, want %v", c.imm, got, c.want)
		}
	}
}

func TestTrapKindString(t *testing.T) {
	if got := TrapMemoryOutOfBounds.String(); got != "oob_mem" {
		t.Errorf("String() = %q, want oob_mem", got)
	}
	if got := TrapKind(250).String(); got == "" {
		t.Error("unknown TrapKind should still render a non-empty string")
	}
}

func TestBuildTrapReportWithoutResolver(t *testing.T) {
	SetResolver(nil)
	r := buildTrapReport(TrapIntegerDivisionByZero, "SIGTRAP", 0x1000, 0x2000, 0, 0, 2)
	if r.Kind != TrapIntegerDivisionByZero {
		t.Errorf("Kind = %v, want TrapIntegerDivisionByZero", r.Kind)
	}
	if r.Message != "div_zero" {
		t.Errorf("Message = %q, want div_zero", r.Message)
	}
	if r.Frames != nil {
		t.Error("Frames should be nil with no resolver installed")
	}
}

type stubResolver struct {
	idx  uint32
	name string
	off  uint32
}

func (s stubResolver) ResolveWasmOffset(pc uintptr) (uint32, string, uint32, bool) {
	return s.idx, s.name, s.off, true
}

func TestBuildTrapReportUsesResolver(t *testing.T) {
	SetResolver(stubResolver{idx: 3, name: "foo", off: 42})
	defer SetResolver(nil)

	r := buildTrapReport(TrapUnreachable, "SIGILL", 0x4000, 0, 0, 0, 0)
	if r.WasmFuncIdx != 3 || r.WasmFuncName != "foo" || r.WasmOffset != 42 {
		t.Errorf("resolver fields not applied: idx=%d name=%q off=%d", r.WasmFuncIdx, r.WasmFuncName, r.WasmOffset)
	}
}

func TestGetLastTrapReportClearsAfterRead(t *testing.T) {
	setLastTrapReport(&TrapReport{Kind: TrapStackOverflow})
	r := GetLastTrapReport()
	if r == nil || r.Kind != TrapStackOverflow {
		t.Fatalf("GetLastTrapReport() = %v, want TrapStackOverflow report", r)
	}
	if got := GetLastTrapReport(); got != nil {
		t.Error("a second GetLastTrapReport() call should return nil (cleared)")
	}
}
