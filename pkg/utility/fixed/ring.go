package fixed

import "fmt"

// Ring is a fixed-capacity window over the most recent points. Index 0 is
// the latest value.
type Ring struct {
	buffer   []Point
	capacity int
	size     int
	tail     int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	return &Ring{
		buffer:   make([]Point, capacity),
		capacity: capacity,
	}
}

func (r *Ring) Size() int     { return r.size }
func (r *Ring) Capacity() int { return r.capacity }
func (r *Ring) IsFull() bool  { return r.size == r.capacity }

func (r *Ring) Clear() {
	r.size = 0
	r.tail = 0
}

func (r *Ring) Add(p Point) {
	r.buffer[r.tail] = p
	r.tail = (r.tail + 1) % r.capacity

	if r.size < r.capacity {
		r.size++
	}
}

func (r *Ring) Get(idx int) Point {
	if idx < 0 || idx >= r.size {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, r.size))
	}
	actualIdx := (r.tail - 1 - idx + r.capacity) % r.capacity
	return r.buffer[actualIdx]
}

func (r *Ring) Latest() Point {
	return r.Get(0)
}

func (r *Ring) Oldest() Point {
	return r.Get(r.size - 1)
}

// MeanN averages the latest n points. n must not exceed Size.
func (r *Ring) MeanN(n int) Point {
	sum := Zero
	for i := 0; i < n; i++ {
		sum = sum.Add(r.Get(i))
	}
	return sum.DivInt(n)
}

func (r *Ring) Mean() Point {
	if r.size == 0 {
		return Zero
	}
	return r.MeanN(r.size)
}

func (r *Ring) SampleStdDev() Point {
	if r.size <= 1 {
		return Zero
	}

	mean := r.Mean()
	sumSquaredDiff := Zero
	for i := 0; i < r.size; i++ {
		diff := r.Get(i).Sub(mean)
		sumSquaredDiff = sumSquaredDiff.Add(diff.Mul(diff))
	}
	return sumSquaredDiff.DivInt(r.size - 1).Sqrt()
}

// MaxN returns the highest of the latest n points.
func (r *Ring) MaxN(n int) Point {
	maxVal := r.Get(0)
	for i := 1; i < n; i++ {
		maxVal = Max(maxVal, r.Get(i))
	}
	return maxVal
}

// MinN returns the lowest of the latest n points.
func (r *Ring) MinN(n int) Point {
	minVal := r.Get(0)
	for i := 1; i < n; i++ {
		minVal = Min(minVal, r.Get(i))
	}
	return minVal
}
