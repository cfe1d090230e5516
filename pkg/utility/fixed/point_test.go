package fixed

import (
	"testing"
)

func TestPoint_Arithmetic(t *testing.T) {
	a := FromInt(10, 0)
	b := FromInt(4, 0)

	if got := a.Add(b); !got.Eq(FromInt(14, 0)) {
		t.Errorf("Add: expected 14, got %s", got)
	}
	if got := a.Sub(b); !got.Eq(FromInt(6, 0)) {
		t.Errorf("Sub: expected 6, got %s", got)
	}
	if got := a.Mul(b); !got.Eq(FromInt(40, 0)) {
		t.Errorf("Mul: expected 40, got %s", got)
	}
	if got := a.Div(b); !got.Eq(MustParse("2.5")) {
		t.Errorf("Div: expected 2.5, got %s", got)
	}
}

func TestPoint_Pct(t *testing.T) {
	if got := FromInt(20, 0).Pct(); !got.Eq(MustParse("0.2")) {
		t.Errorf("expected 0.2, got %s", got)
	}
	if got := FromInt(100, 0).Pct(); !got.Eq(One) {
		t.Errorf("expected 1, got %s", got)
	}
}

func TestPoint_Comparisons(t *testing.T) {
	a := MustParse("1.5")
	b := MustParse("1.50")

	if !a.Eq(b) {
		t.Error("1.5 should equal 1.50")
	}
	if !a.Gte(b) || !a.Lte(b) {
		t.Error("equal values should satisfy Gte and Lte")
	}
	if !Zero.Lt(a) {
		t.Error("zero should be less than 1.5")
	}
}

func TestPoint_Signs(t *testing.T) {
	if !MustParse("-0.1").IsNeg() {
		t.Error("-0.1 should be negative")
	}
	if !MustParse("0.1").IsPos() {
		t.Error("0.1 should be positive")
	}
	if !Zero.IsZero() {
		t.Error("zero value should be zero")
	}
}

func TestPoint_Trunc(t *testing.T) {
	if got := MustParse("1.23456789").Trunc(4); !got.Eq(MustParse("1.2345")) {
		t.Errorf("Trunc: expected 1.2345, got %s", got)
	}
	// Truncation rounds toward zero, never away.
	if got := MustParse("-1.999").Trunc(2); !got.Eq(MustParse("-1.99")) {
		t.Errorf("Trunc: expected -1.99, got %s", got)
	}
	if got := FromInt(5, 0).Trunc(2); !got.Eq(FromInt(5, 0)) {
		t.Errorf("Trunc: expected 5, got %s", got)
	}
}

func TestPoint_MinMax(t *testing.T) {
	a := FromInt(3, 0)
	b := FromInt(7, 0)

	if got := Min(a, b); !got.Eq(a) {
		t.Errorf("Min: expected 3, got %s", got)
	}
	if got := Max(a, b); !got.Eq(b) {
		t.Errorf("Max: expected 7, got %s", got)
	}
}

func TestPoint_TextRoundTrip(t *testing.T) {
	p := MustParse("50000.12")

	data, err := p.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var q Point
	if err := q.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if !p.Eq(q) {
		t.Errorf("expected %s, got %s", p, q)
	}
}
