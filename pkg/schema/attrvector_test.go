package schema

import (
	"errors"
	"testing"

	"tpccstore/internal/terrors"
)

func testSchema() *Schema {
	return &Schema{
		Tag: "t",
		Slots: []Slot{
			{Name: "a", Type: Int},
			{Name: "b", Type: Real, Tolerance: 0.01},
			{Name: "c", Type: Enum, Cap: 10},
			{Name: "d", Type: Str, MaxLen: 8},
		},
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	s := testSchema()
	v := New(s)
	v.SetInt(0, 42)
	v.SetReal(1, 3.5)
	v.SetEnum(2, 7)
	v.SetStr(3, "hello")

	if v.GetInt(0) != 42 {
		t.Fatalf("GetInt(0) = %d, want 42", v.GetInt(0))
	}
	if v.GetReal(1) != 3.5 {
		t.Fatalf("GetReal(1) = %v, want 3.5", v.GetReal(1))
	}
	if v.GetEnum(2) != 7 {
		t.Fatalf("GetEnum(2) = %d, want 7", v.GetEnum(2))
	}
	if v.GetStr(3) != "hello" {
		t.Fatalf("GetStr(3) = %q, want hello", v.GetStr(3))
	}
}

func TestTypeMismatchPanicsSchemaViolation(t *testing.T) {
	s := testSchema()
	v := New(s)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a panic on type-mismatched access")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, terrors.ErrSchemaViolation) {
			t.Fatalf("panic value %v is not ErrSchemaViolation", r)
		}
	}()
	v.GetReal(0) // slot 0 is Int
}

func TestOutOfRangeIndexPanics(t *testing.T) {
	s := testSchema()
	v := New(s)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on out-of-range access")
		}
	}()
	v.GetInt(99)
}

func TestCloneIsIndependent(t *testing.T) {
	s := testSchema()
	v := New(s)
	v.SetInt(0, 1)
	cp := v.Clone()
	cp.SetInt(0, 2)
	if v.GetInt(0) != 1 {
		t.Fatalf("mutating the clone affected the original")
	}
}

func TestCopyFromCopiesOnlyPrefix(t *testing.T) {
	s := testSchema()
	src := New(s)
	src.SetInt(0, 10)
	src.SetReal(1, 1.5)

	dst := New(s)
	dst.SetEnum(2, 9) // should survive, outside the copied prefix

	dst.CopyFrom(src, 2)
	if dst.GetInt(0) != 10 || dst.GetReal(1) != 1.5 {
		t.Fatalf("CopyFrom did not copy the requested prefix")
	}
	if dst.GetEnum(2) != 9 {
		t.Fatalf("CopyFrom touched a slot outside the requested prefix")
	}
}

func TestArity(t *testing.T) {
	s := testSchema()
	if s.Arity() != 4 {
		t.Fatalf("Arity() = %d, want 4", s.Arity())
	}
}
