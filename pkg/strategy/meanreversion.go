package strategy

import (
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/indicators"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// MeanReversion trades z-score extremes: buy when price is threshold
// standard deviations below the window mean, sell when above.
type MeanReversion struct {
	name      string
	symbol    string
	score     *indicators.ZScore
	threshold fixed.Point
}

func NewMeanReversion(name, symbol string, period int, threshold fixed.Point) *MeanReversion {
	return &MeanReversion{
		name:      name,
		symbol:    symbol,
		score:     indicators.NewZScore(period),
		threshold: threshold,
	}
}

func (s *MeanReversion) Name() string   { return s.name }
func (s *MeanReversion) Symbol() string { return s.symbol }

func (s *MeanReversion) OnTick(tick common.Tick) (Recommendation, bool) {
	z, ok := s.score.Update(tick.Price)
	if !ok {
		return Recommendation{}, false
	}

	switch {
	case z.Lt(s.threshold.Neg()):
		return Recommendation{
			Side:       common.SideBuy,
			Confidence: confidenceFromScore(z),
			Reason:     "price stretched below mean",
		}, true
	case z.Gt(s.threshold):
		return Recommendation{
			Side:       common.SideSell,
			Confidence: confidenceFromScore(z),
			Reason:     "price stretched above mean",
		}, true
	default:
		return Recommendation{}, false
	}
}

// confidenceFromScore scales |z| into [0.5, 0.9].
func confidenceFromScore(z fixed.Point) fixed.Point {
	scaled := z.Abs().DivInt(10).Add(fixed.FromInt(5, 1))
	return fixed.Min(scaled, fixed.FromInt(9, 1))
}
