package common

import (
	"time"

	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// StrategyMetrics summarizes realized performance for one strategy over its
// closed round trips.
type StrategyMetrics struct {
	Strategy    string      `json:"strategy"`
	TotalPnL    fixed.Point `json:"total_pnl"`
	WinRate     fixed.Point `json:"win_rate"`
	SharpeRatio fixed.Point `json:"sharpe_ratio"`
	MaxDrawdown fixed.Point `json:"max_drawdown"`
	TradeCount  int         `json:"trade_count"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
