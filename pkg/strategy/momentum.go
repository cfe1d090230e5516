package strategy

import (
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/indicators"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Momentum trades moving average crossovers: buy when the short average
// moves above the long one, sell when it moves below.
type Momentum struct {
	name   string
	symbol string
	short  *indicators.SMA
	long   *indicators.SMA

	shortAbove bool
	warm       bool
}

func NewMomentum(name, symbol string, shortWindow, longWindow int) *Momentum {
	return &Momentum{
		name:   name,
		symbol: symbol,
		short:  indicators.NewSMA(shortWindow),
		long:   indicators.NewSMA(longWindow),
	}
}

func (m *Momentum) Name() string   { return m.name }
func (m *Momentum) Symbol() string { return m.symbol }

func (m *Momentum) OnTick(tick common.Tick) (Recommendation, bool) {
	short, shortOk := m.short.Update(tick.Price)
	long, longOk := m.long.Update(tick.Price)
	if !shortOk || !longOk {
		return Recommendation{}, false
	}

	above := short.Gt(long)
	if !m.warm {
		m.warm = true
		m.shortAbove = above
		return Recommendation{}, false
	}
	if above == m.shortAbove {
		return Recommendation{}, false
	}
	m.shortAbove = above

	rec := Recommendation{Confidence: fixed.FromInt(7, 1)}
	if above {
		rec.Side = common.SideBuy
		rec.Reason = "short ma crossed above long ma"
	} else {
		rec.Side = common.SideSell
		rec.Reason = "short ma crossed below long ma"
	}
	return rec, true
}
