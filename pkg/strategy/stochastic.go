package strategy

import (
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/indicators"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// StochasticStrategy buys oversold readings and sells overbought ones using
// the smoothed %D line.
type StochasticStrategy struct {
	name       string
	symbol     string
	oscillator *indicators.Stochastic
	oversold   fixed.Point
	overbought fixed.Point
}

func NewStochasticStrategy(name, symbol string, period, smooth int, oversold, overbought fixed.Point) *StochasticStrategy {
	return &StochasticStrategy{
		name:       name,
		symbol:     symbol,
		oscillator: indicators.NewStochastic(period, smooth),
		oversold:   oversold,
		overbought: overbought,
	}
}

func (s *StochasticStrategy) Name() string   { return s.name }
func (s *StochasticStrategy) Symbol() string { return s.symbol }

func (s *StochasticStrategy) OnTick(tick common.Tick) (Recommendation, bool) {
	_, d, ok := s.oscillator.Update(tick.Price)
	if !ok {
		return Recommendation{}, false
	}

	switch {
	case d.Lt(s.oversold):
		return Recommendation{
			Side:       common.SideBuy,
			Confidence: fixed.FromInt(6, 1),
			Reason:     "oscillator oversold",
		}, true
	case d.Gt(s.overbought):
		return Recommendation{
			Side:       common.SideSell,
			Confidence: fixed.FromInt(6, 1),
			Reason:     "oscillator overbought",
		}, true
	default:
		return Recommendation{}, false
	}
}
