package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

func fill(side common.Side, qty, price, fee string, at time.Time) common.Trade {
	return common.Trade{
		Strategy:  "momentum",
		Symbol:    "BTCUSDT",
		Side:      side,
		Quantity:  fixed.MustParse(qty),
		Price:     fixed.MustParse(price),
		Fee:       fixed.MustParse(fee),
		Mode:      common.TradeModePaper,
		TimeStamp: at,
	}
}

func TestComputeMetrics_RoundTrips(t *testing.T) {
	now := time.Now()
	trades := []common.Trade{
		// Buy 1 @ 100 (+1 fee), sell 1 @ 120 (-1 fee): pnl 120 - 101 - 1 = 18.
		fill(common.SideBuy, "1", "100", "1", now),
		fill(common.SideSell, "1", "120", "1", now.Add(time.Minute)),
		// Buy 1 @ 100 (+1 fee), sell 1 @ 90 (-1 fee): pnl 90 - 101 - 1 = -12.
		fill(common.SideBuy, "1", "100", "1", now.Add(2*time.Minute)),
		fill(common.SideSell, "1", "90", "1", now.Add(3*time.Minute)),
	}

	m := computeMetrics("momentum", trades)

	assert.Equal(t, 2, m.TradeCount)
	assert.True(t, m.TotalPnL.Eq(fixed.FromInt(6, 0)), "pnl: got %s", m.TotalPnL)
	assert.True(t, m.WinRate.Eq(fixed.FromInt(50, 0)), "win rate: got %s", m.WinRate)
	// Peak 18 then trough 6.
	assert.True(t, m.MaxDrawdown.Eq(fixed.FromInt(12, 0)), "drawdown: got %s", m.MaxDrawdown)
}

func TestComputeMetrics_PartialExitUsesAverageCost(t *testing.T) {
	now := time.Now()
	trades := []common.Trade{
		fill(common.SideBuy, "2", "100", "0", now),
		fill(common.SideBuy, "2", "200", "0", now.Add(time.Minute)),
		// Average cost is 150; selling 1 at 150 is flat.
		fill(common.SideSell, "1", "150", "0", now.Add(2*time.Minute)),
	}

	m := computeMetrics("momentum", trades)

	assert.True(t, m.TotalPnL.IsZero(), "pnl: got %s", m.TotalPnL)
	assert.Equal(t, 0, m.TradeCount, "flat exits count as neither win nor loss")
}

func TestComputeMetrics_SellWithoutPositionSkipped(t *testing.T) {
	trades := []common.Trade{
		fill(common.SideSell, "1", "100", "0", time.Now()),
	}

	m := computeMetrics("momentum", trades)
	assert.Equal(t, 0, m.TradeCount)
	assert.True(t, m.TotalPnL.IsZero())
}
