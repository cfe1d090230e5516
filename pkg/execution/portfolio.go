package execution

import (
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Portfolio is one strategy's cash and holdings. Only the execution agent
// mutates it, under the agent's lock.
type Portfolio struct {
	Cash      fixed.Point
	Positions map[string]fixed.Point
}

func newPortfolio(cash fixed.Point) *Portfolio {
	return &Portfolio{
		Cash:      cash,
		Positions: make(map[string]fixed.Point),
	}
}

// Value is cash plus holdings marked at the given prices. Symbols without a
// known price contribute nothing.
func (p *Portfolio) Value(prices map[string]fixed.Point) fixed.Point {
	total := p.Cash
	for symbol, qty := range p.Positions {
		if price, ok := prices[symbol]; ok {
			total = total.Add(qty.Mul(price))
		}
	}
	return total
}
