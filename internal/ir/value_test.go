package ir

import "testing"

func TestValueInvalid(t *testing.T) {
	if ValueInvalid.Valid() {
		t.Error("ValueInvalid should not be Valid")
	}
	if got := ValueInvalid.String(); got != "v_invalid" {
		t.Errorf("ValueInvalid.String() = %q", got)
	}
}

func TestValueWithType(t *testing.T) {
	v := valueWithType(42, TypeI64)
	if !v.Valid() {
		t.Fatal("constructed value should be valid")
	}
	if got := v.ID(); got != 42 {
		t.Errorf("ID() = %d, want 42", got)
	}
	if got := v.Type(); got != TypeI64 {
		t.Errorf("Type() = %v, want i64", got)
	}
	if got := v.String(); got != "v42" {
		t.Errorf("String() = %q, want v42", got)
	}
}
