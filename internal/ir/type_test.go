package ir

import "testing"

func TestTypeString(t *testing.T) {
	cases := []struct {
		typ  Type
		want string
	}{
		{TypeI32, "i32"},
		{TypeI64, "i64"},
		{TypeF32, "f32"},
		{TypeF64, "f64"},
		{TypeV128, "v128"},
		{TypeFuncref, "funcref"},
		{TypeExternref, "externref"},
		{TypeAnyGCRef, "anyref"},
		{typeInvalid, "invalid"},
	}
	for _, c := range cases {
		if got := c.typ.String(); got != c.want {
			t.Errorf("%v.String() = %q, want %q", c.typ, got, c.want)
		}
	}
}

func TestTypeClassification(t *testing.T) {
	if !TypeI32.IsInt() || !TypeI64.IsInt() {
		t.Error("i32/i64 should be IsInt")
	}
	if TypeF32.IsInt() || TypeV128.IsInt() {
		t.Error("f32/v128 should not be IsInt")
	}
	if !TypeF32.IsFloat() || !TypeF64.IsFloat() {
		t.Error("f32/f64 should be IsFloat")
	}
	if !TypeFuncref.IsRef() || !TypeExternref.IsRef() || !TypeAnyGCRef.IsRef() {
		t.Error("reference types should be IsRef")
	}
	if TypeI32.IsRef() {
		t.Error("i32 should not be IsRef")
	}
}

func TestTypeBitsAndSize(t *testing.T) {
	cases := []struct {
		typ       Type
		bits, sz  byte
	}{
		{TypeI32, 32, 4},
		{TypeF32, 32, 4},
		{TypeI64, 64, 8},
		{TypeF64, 64, 8},
		{TypeFuncref, 64, 8},
		{TypeExternref, 64, 8},
		{TypeAnyGCRef, 64, 8},
		{TypeV128, 128, 16},
	}
	for _, c := range cases {
		if got := c.typ.Bits(); got != c.bits {
			t.Errorf("%v.Bits() = %d, want %d", c.typ, got, c.bits)
		}
		if got := c.typ.Size(); got != c.sz {
			t.Errorf("%v.Size() = %d, want %d", c.typ, got, c.sz)
		}
	}
}

func TestTypeBitsPanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid type Bits()")
		}
	}()
	_ = typeInvalid.Bits()
}

func TestTypeValid(t *testing.T) {
	if !TypeI32.Valid() {
		t.Error("TypeI32 should be valid")
	}
	if typeInvalid.Valid() {
		t.Error("typeInvalid should not be valid")
	}
}
