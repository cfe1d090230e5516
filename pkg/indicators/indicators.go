package indicators

import (
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Indicators consume one price at a time. Update returns ok=false until the
// indicator has seen enough samples to warm up.

type SMA struct {
	ring *fixed.Ring
}

func NewSMA(period int) *SMA {
	return &SMA{ring: fixed.NewRing(period)}
}

func (s *SMA) Update(price fixed.Point) (fixed.Point, bool) {
	s.ring.Add(price)
	if !s.ring.IsFull() {
		return fixed.Zero, false
	}
	return s.ring.Mean(), true
}

type EMA struct {
	period int
	mult   fixed.Point
	seed   *fixed.Ring
	value  fixed.Point
	warm   bool
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		// standard smoothing factor 2 / (period + 1)
		mult: fixed.FromInt(2, 0).DivInt(period + 1),
		seed: fixed.NewRing(period),
	}
}

func (e *EMA) Update(price fixed.Point) (fixed.Point, bool) {
	if !e.warm {
		e.seed.Add(price)
		if !e.seed.IsFull() {
			return fixed.Zero, false
		}
		e.value = e.seed.Mean()
		e.warm = true
		return e.value, true
	}
	e.value = price.Sub(e.value).Mul(e.mult).Add(e.value)
	return e.value, true
}

type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

// Update returns the macd line, signal line and histogram.
func (m *MACD) Update(price fixed.Point) (macd, signal, histogram fixed.Point, ok bool) {
	fast, fastOk := m.fast.Update(price)
	slow, slowOk := m.slow.Update(price)
	if !fastOk || !slowOk {
		return fixed.Zero, fixed.Zero, fixed.Zero, false
	}
	macd = fast.Sub(slow)
	signal, ok = m.signal.Update(macd)
	if !ok {
		return fixed.Zero, fixed.Zero, fixed.Zero, false
	}
	return macd, signal, macd.Sub(signal), true
}

type Bollinger struct {
	ring  *fixed.Ring
	width fixed.Point
}

func NewBollinger(period int, width fixed.Point) *Bollinger {
	return &Bollinger{ring: fixed.NewRing(period), width: width}
}

func (b *Bollinger) Update(price fixed.Point) (middle, upper, lower fixed.Point, ok bool) {
	b.ring.Add(price)
	if !b.ring.IsFull() {
		return fixed.Zero, fixed.Zero, fixed.Zero, false
	}
	middle = b.ring.Mean()
	band := b.ring.SampleStdDev().Mul(b.width)
	return middle, middle.Add(band), middle.Sub(band), true
}

type Stochastic struct {
	ring   *fixed.Ring
	smooth *SMA
}

func NewStochastic(period, smooth int) *Stochastic {
	return &Stochastic{
		ring:   fixed.NewRing(period),
		smooth: NewSMA(smooth),
	}
}

// Update returns %K and its smoothed %D. A flat window reports %K = 50.
func (s *Stochastic) Update(price fixed.Point) (k, d fixed.Point, ok bool) {
	s.ring.Add(price)
	if !s.ring.IsFull() {
		return fixed.Zero, fixed.Zero, false
	}

	n := s.ring.Size()
	low := s.ring.MinN(n)
	high := s.ring.MaxN(n)
	spread := high.Sub(low)
	if spread.IsZero() {
		k = fixed.FromInt(50, 0)
	} else {
		k = price.Sub(low).Div(spread).Mul(fixed.Hundred)
	}

	d, ok = s.smooth.Update(k)
	if !ok {
		return fixed.Zero, fixed.Zero, false
	}
	return k, d, true
}

type ZScore struct {
	ring *fixed.Ring
}

func NewZScore(period int) *ZScore {
	return &ZScore{ring: fixed.NewRing(period)}
}

// Update returns how many standard deviations price sits from the window
// mean. Zero variance reports a zero score.
func (z *ZScore) Update(price fixed.Point) (fixed.Point, bool) {
	z.ring.Add(price)
	if !z.ring.IsFull() {
		return fixed.Zero, false
	}
	stdDev := z.ring.SampleStdDev()
	if stdDev.IsZero() {
		return fixed.Zero, true
	}
	return price.Sub(z.ring.Mean()).Div(stdDev), true
}
