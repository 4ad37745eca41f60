package registry

import (
	"strings"
	"testing"
)

func TestRegisterAndGet(t *testing.T) {
	r := New[int]("widget")

	if err := r.Register("a", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("b", 2); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	v, ok := r.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) reported ok")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestDuplicateRegistration(t *testing.T) {
	r := New[string]("widget")
	if err := r.Register("a", "x"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := r.Register("a", "y")
	if err == nil {
		t.Fatal("duplicate Register did not fail")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmptyName(t *testing.T) {
	r := New[int]("widget")
	if err := r.Register("", 1); err == nil {
		t.Fatal("empty name accepted")
	}
}

func TestLookupError(t *testing.T) {
	r := New[int]("stage")
	r.MustRegister("infer", 1)
	r.MustRegister("train", 2)

	if _, err := r.Lookup("infer"); err != nil {
		t.Fatalf("Lookup(infer) failed: %v", err)
	}

	_, err := r.Lookup("export")
	if err == nil {
		t.Fatal("Lookup(export) did not fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "stage registry") || !strings.Contains(msg, "infer, train") {
		t.Errorf("error should name the registry and known entries, got: %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	r := New[int]("widget")
	r.MustRegister("zeta", 1)
	r.MustRegister("alpha", 2)
	r.MustRegister("mid", 3)

	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}

func TestMustRegisterPanics(t *testing.T) {
	r := New[int]("widget")
	r.MustRegister("a", 1)

	defer func() {
		if recover() == nil {
			t.Error("MustRegister on duplicate did not panic")
		}
	}()
	r.MustRegister("a", 2)
}
