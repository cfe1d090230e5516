package fixed

import (
	"testing"
)

func TestRing_AddAndGet(t *testing.T) {
	r := NewRing(3)

	r.Add(FromInt(1, 0))
	r.Add(FromInt(2, 0))
	r.Add(FromInt(3, 0))

	if !r.IsFull() {
		t.Error("ring should be full")
	}
	if got := r.Latest(); !got.Eq(FromInt(3, 0)) {
		t.Errorf("Latest: expected 3, got %s", got)
	}
	if got := r.Oldest(); !got.Eq(FromInt(1, 0)) {
		t.Errorf("Oldest: expected 1, got %s", got)
	}
}

func TestRing_Wraps(t *testing.T) {
	r := NewRing(3)

	for i := 1; i <= 5; i++ {
		r.Add(FromInt(i, 0))
	}

	if got := r.Latest(); !got.Eq(FromInt(5, 0)) {
		t.Errorf("Latest: expected 5, got %s", got)
	}
	if got := r.Oldest(); !got.Eq(FromInt(3, 0)) {
		t.Errorf("Oldest: expected 3, got %s", got)
	}
	if r.Size() != 3 {
		t.Errorf("Size: expected 3, got %d", r.Size())
	}
}

func TestRing_Mean(t *testing.T) {
	r := NewRing(4)

	r.Add(FromInt(2, 0))
	r.Add(FromInt(4, 0))
	r.Add(FromInt(6, 0))
	r.Add(FromInt(8, 0))

	if got := r.Mean(); !got.Eq(FromInt(5, 0)) {
		t.Errorf("Mean: expected 5, got %s", got)
	}
	if got := r.MeanN(2); !got.Eq(FromInt(7, 0)) {
		t.Errorf("MeanN(2): expected 7, got %s", got)
	}
}

func TestRing_SampleStdDev(t *testing.T) {
	r := NewRing(4)

	r.Add(FromInt(2, 0))
	r.Add(FromInt(4, 0))
	r.Add(FromInt(4, 0))
	r.Add(FromInt(6, 0))

	// variance = ((2-4)^2 + 0 + 0 + (6-4)^2) / 3
	want := FromInt(8, 0).DivInt(3).Sqrt()
	if got := r.SampleStdDev(); !got.Eq(want) {
		t.Errorf("SampleStdDev: expected %s, got %s", want, got)
	}
}

func TestRing_MinMaxN(t *testing.T) {
	r := NewRing(5)

	for _, v := range []int{10, 3, 8, 1, 6} {
		r.Add(FromInt(v, 0))
	}

	if got := r.MaxN(5); !got.Eq(FromInt(10, 0)) {
		t.Errorf("MaxN: expected 10, got %s", got)
	}
	if got := r.MinN(5); !got.Eq(FromInt(1, 0)) {
		t.Errorf("MinN: expected 1, got %s", got)
	}
	if got := r.MaxN(2); !got.Eq(FromInt(6, 0)) {
		t.Errorf("MaxN(2): expected 6, got %s", got)
	}
}

func TestRing_Clear(t *testing.T) {
	r := NewRing(2)
	r.Add(One)
	r.Clear()

	if r.Size() != 0 {
		t.Errorf("Size after clear: expected 0, got %d", r.Size())
	}
}
