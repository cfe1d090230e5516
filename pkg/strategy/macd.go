package strategy

import (
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/indicators"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// MACDStrategy trades histogram sign changes: buy when the macd line rises
// through its signal line, sell when it falls through.
type MACDStrategy struct {
	name   string
	symbol string
	macd   *indicators.MACD

	histPositive bool
	warm         bool
}

func NewMACDStrategy(name, symbol string, fast, slow, signal int) *MACDStrategy {
	return &MACDStrategy{
		name:   name,
		symbol: symbol,
		macd:   indicators.NewMACD(fast, slow, signal),
	}
}

func (s *MACDStrategy) Name() string   { return s.name }
func (s *MACDStrategy) Symbol() string { return s.symbol }

func (s *MACDStrategy) OnTick(tick common.Tick) (Recommendation, bool) {
	_, _, histogram, ok := s.macd.Update(tick.Price)
	if !ok {
		return Recommendation{}, false
	}

	positive := histogram.IsPos()
	if !s.warm {
		s.warm = true
		s.histPositive = positive
		return Recommendation{}, false
	}
	if positive == s.histPositive {
		return Recommendation{}, false
	}
	s.histPositive = positive

	rec := Recommendation{Confidence: fixed.FromInt(65, 2)}
	if positive {
		rec.Side = common.SideBuy
		rec.Reason = "macd crossed above signal"
	} else {
		rec.Side = common.SideSell
		rec.Reason = "macd crossed below signal"
	}
	return rec, true
}
