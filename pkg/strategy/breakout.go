package strategy

import (
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Breakout trades range escapes: buy when price clears the lookback high,
// sell when it drops under the lookback low. The current tick is compared
// against the window before it is added.
type Breakout struct {
	name     string
	symbol   string
	lookback int
	window   *fixed.Ring
}

func NewBreakout(name, symbol string, lookback int) *Breakout {
	return &Breakout{
		name:     name,
		symbol:   symbol,
		lookback: lookback,
		window:   fixed.NewRing(lookback),
	}
}

func (s *Breakout) Name() string   { return s.name }
func (s *Breakout) Symbol() string { return s.symbol }

func (s *Breakout) OnTick(tick common.Tick) (Recommendation, bool) {
	if !s.window.IsFull() {
		s.window.Add(tick.Price)
		return Recommendation{}, false
	}

	high := s.window.MaxN(s.lookback)
	low := s.window.MinN(s.lookback)
	s.window.Add(tick.Price)

	switch {
	case tick.Price.Gt(high):
		return Recommendation{
			Side:       common.SideBuy,
			Confidence: fixed.FromInt(75, 2),
			Reason:     "price broke above range high",
		}, true
	case tick.Price.Lt(low):
		return Recommendation{
			Side:       common.SideSell,
			Confidence: fixed.FromInt(75, 2),
			Reason:     "price broke below range low",
		}, true
	default:
		return Recommendation{}, false
	}
}
