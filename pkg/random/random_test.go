package random

import "testing"

func TestMathRandRangeBounds(t *testing.T) {
	r := NewMathRand(1)
	for i := 0; i < 100; i++ {
		if v := r.Range(5); v < 0 || v >= 5 {
			t.Fatalf("Range(5) = %d; want [0,5)", v)
		}
	}
}

func TestMathRandInclusiveBounds(t *testing.T) {
	r := NewMathRand(1)
	for i := 0; i < 100; i++ {
		if v := r.Inclusive(5); v < 0 || v > 5 {
			t.Fatalf("Inclusive(5) = %d; want [0,5]", v)
		}
	}
}

func TestMathRandRangeZeroIsZero(t *testing.T) {
	r := NewMathRand(1)
	if v := r.Range(0); v != 0 {
		t.Fatalf("Range(0) = %d; want 0", v)
	}
}

func TestFixedClampsIntoRange(t *testing.T) {
	f := NewFixed(10)
	if v := f.Range(5); v != 4 {
		t.Fatalf("Range(5) = %d; want 4 (clamped to n-1)", v)
	}
	if v := f.Inclusive(5); v != 5 {
		t.Fatalf("Inclusive(5) = %d; want 5 (clamped to n)", v)
	}

	small := NewFixed(2)
	if v := small.Range(5); v != 2 {
		t.Fatalf("Range(5) = %d; want 2 (unclamped)", v)
	}
	if v := small.Inclusive(5); v != 2 {
		t.Fatalf("Inclusive(5) = %d; want 2 (unclamped)", v)
	}
}

func TestRegistryResolvesMathRand(t *testing.T) {
	src, ok := New("math/rand", 42)
	if !ok {
		t.Fatalf("expected \"math/rand\" to be registered")
	}
	if v := src.Range(10); v < 0 || v >= 10 {
		t.Fatalf("Range(10) = %d; want [0,10)", v)
	}
}

func TestRegistryUnknownName(t *testing.T) {
	if _, ok := New("no-such-source", 0); ok {
		t.Fatalf("expected lookup of an unregistered name to fail")
	}
}
