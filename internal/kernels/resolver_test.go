package kernels

import (
	"errors"
	"testing"
)

func TestNewDefaultResolver(t *testing.T) {
	r := NewDefaultResolver()

	for _, op := range []string{"Gemm", "MatMul", "Relu", "Softmax", "Reshape"} {
		if _, ok := r.Find(op); !ok {
			t.Errorf("Expected kernel for %s to be registered", op)
		}
	}
	if got := len(r.Kinds()); got != MaxKernels {
		t.Errorf("Expected %d kinds, got %d", MaxKernels, got)
	}
}

func TestResolverFindUnknown(t *testing.T) {
	r := NewDefaultResolver()

	if _, ok := r.Find("Conv"); ok {
		t.Error("Expected Conv to not be found")
	}
}

func TestResolverCapacity(t *testing.T) {
	r := NewResolver(2)

	if err := r.AddAll(FullyConnected, ReLU); err != nil {
		t.Fatalf("AddAll failed: %v", err)
	}
	err := r.Add(Softmax)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("Expected ErrCapacity, got %v", err)
	}
	if _, ok := r.Find("Softmax"); ok {
		t.Error("Softmax registered despite capacity error")
	}
}

func TestResolverDuplicate(t *testing.T) {
	r := NewResolver(MaxKernels)

	if err := r.Add(ReLU); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(ReLU); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestResolverFrozen(t *testing.T) {
	r := NewResolver(MaxKernels)
	r.Freeze()

	if !r.Frozen() {
		t.Error("Expected resolver to report frozen")
	}
	if err := r.Add(ReLU); !errors.Is(err, ErrFrozen) {
		t.Errorf("Expected ErrFrozen, got %v", err)
	}
}

func TestResolverUnknownKind(t *testing.T) {
	r := NewResolver(MaxKernels)

	if err := r.Add(Kind(42)); err == nil {
		t.Error("Expected error for unknown kind")
	}
	if len(r.Kinds()) != 0 {
		t.Error("Unknown kind must not be recorded")
	}
}

func TestResolverMissing(t *testing.T) {
	r := NewResolver(MaxKernels)
	if err := r.AddAll(FullyConnected, ReLU); err != nil {
		t.Fatalf("AddAll failed: %v", err)
	}

	got := r.Missing([]string{"Gemm", "Relu", "Softmax", "Conv", "Softmax", "Reshape"})
	want := []string{"Softmax", "Conv", "Reshape"}
	if len(got) != len(want) {
		t.Fatalf("Missing() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Missing()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if m := NewDefaultResolver().Missing([]string{"Gemm", "Relu", "Softmax", "Reshape"}); len(m) != 0 {
		t.Errorf("Expected nothing missing, got %v", m)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"FullyConnected", FullyConnected},
		{"fullyconnected", FullyConnected},
		{"Gemm", FullyConnected},
		{"matmul", FullyConnected},
		{"relu", ReLU},
		{"SOFTMAX", Softmax},
		{"Reshape", Reshape},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Errorf("ParseKind(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKind("conv"); err == nil {
		t.Error("Expected error for unknown kind")
	}
	if _, err := ParseKinds([]string{"relu", "nope"}); err == nil {
		t.Error("Expected ParseKinds to fail on unknown entry")
	}
}

func TestKindString(t *testing.T) {
	if got := Kind(9).String(); got != "Kind(9)" {
		t.Errorf("String() = %q", got)
	}
	if got := Softmax.String(); got != "Softmax" {
		t.Errorf("String() = %q", got)
	}
}
