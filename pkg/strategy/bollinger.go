package strategy

import (
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/indicators"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// BollingerStrategy fades band touches: buy below the lower band, sell above
// the upper band.
type BollingerStrategy struct {
	name   string
	symbol string
	bands  *indicators.Bollinger
}

func NewBollingerStrategy(name, symbol string, period int, width fixed.Point) *BollingerStrategy {
	return &BollingerStrategy{
		name:   name,
		symbol: symbol,
		bands:  indicators.NewBollinger(period, width),
	}
}

func (s *BollingerStrategy) Name() string   { return s.name }
func (s *BollingerStrategy) Symbol() string { return s.symbol }

func (s *BollingerStrategy) OnTick(tick common.Tick) (Recommendation, bool) {
	_, upper, lower, ok := s.bands.Update(tick.Price)
	if !ok {
		return Recommendation{}, false
	}

	switch {
	case tick.Price.Lt(lower):
		return Recommendation{
			Side:       common.SideBuy,
			Confidence: fixed.FromInt(6, 1),
			Reason:     "price below lower band",
		}, true
	case tick.Price.Gt(upper):
		return Recommendation{
			Side:       common.SideSell,
			Confidence: fixed.FromInt(6, 1),
			Reason:     "price above upper band",
		}, true
	default:
		return Recommendation{}, false
	}
}
