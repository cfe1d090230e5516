package execution

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

const performanceLookback = 7 * 24 * time.Hour

func (a *Agent) trackPerformance(ctx context.Context) error {
	a.mu.Lock()
	strategies := make([]string, 0, len(a.portfolios))
	for name := range a.portfolios {
		strategies = append(strategies, name)
	}
	a.mu.Unlock()

	for _, strategy := range strategies {
		if err := a.persistPerformance(ctx, strategy); err != nil {
			a.logger.Error("performance calculation failed",
				zap.String("strategy", strategy), zap.Error(err))
		}
	}
	return nil
}

func (a *Agent) persistPerformance(ctx context.Context, strategy string) error {
	trades, err := a.store.StrategyTradesSince(ctx, strategy, time.Now().Add(-performanceLookback))
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		return nil
	}

	metrics := computeMetrics(strategy, trades)
	if metrics.TradeCount == 0 {
		return nil
	}
	metrics.UpdatedAt = time.Now()

	if err := a.store.InsertMetrics(ctx, metrics); err != nil {
		return err
	}

	a.logger.Info("performance persisted",
		zap.String("strategy", strategy),
		zap.Int("trades", metrics.TradeCount),
		zap.String("pnl", metrics.TotalPnL.String()),
		zap.String("win_rate", metrics.WinRate.String()))
	return nil
}

// computeMetrics pairs sells against the running average cost of prior buys
// to produce round-trip results. Sells with no open position are skipped.
func computeMetrics(strategy string, trades []common.Trade) common.StrategyMetrics {
	var (
		positionCost fixed.Point
		positionQty  fixed.Point
		pnls         []fixed.Point
		totalPnL     fixed.Point
		wins         int
		losses       int
	)

	for _, trade := range trades {
		if trade.Side == common.SideBuy {
			positionCost = positionCost.Add(trade.Value().Add(trade.Fee))
			positionQty = positionQty.Add(trade.Quantity)
			continue
		}
		if !positionQty.IsPos() {
			continue
		}

		avgCost := positionCost.Div(positionQty)
		pnl := trade.Value().Sub(avgCost.Mul(trade.Quantity)).Sub(trade.Fee)
		pnls = append(pnls, pnl)
		totalPnL = totalPnL.Add(pnl)
		if pnl.IsPos() {
			wins++
		} else if pnl.IsNeg() {
			losses++
		}

		positionCost = positionCost.Sub(avgCost.Mul(trade.Quantity))
		positionQty = positionQty.Sub(trade.Quantity)
	}

	count := wins + losses
	metrics := common.StrategyMetrics{
		Strategy:   strategy,
		TotalPnL:   totalPnL,
		TradeCount: count,
	}
	if count > 0 {
		metrics.WinRate = fixed.FromInt(wins, 0).DivInt(count).Mul(fixed.Hundred)
	}
	metrics.MaxDrawdown = maxDrawdown(pnls)
	metrics.SharpeRatio = sharpe(pnls)
	return metrics
}

// maxDrawdown is the largest peak-to-trough drop of the cumulative pnl
// curve, in absolute terms.
func maxDrawdown(pnls []fixed.Point) fixed.Point {
	var cumulative, peak, worst fixed.Point
	for _, pnl := range pnls {
		cumulative = cumulative.Add(pnl)
		peak = fixed.Max(peak, cumulative)
		worst = fixed.Max(worst, peak.Sub(cumulative))
	}
	return worst
}

// sharpe is mean over sample standard deviation of per-trade pnl. Fewer
// than two closed trades, or zero variance, score zero.
func sharpe(pnls []fixed.Point) fixed.Point {
	if len(pnls) < 2 {
		return fixed.Zero
	}

	ring := fixed.NewRing(len(pnls))
	for _, pnl := range pnls {
		ring.Add(pnl)
	}
	stdDev := ring.SampleStdDev()
	if stdDev.IsZero() {
		return fixed.Zero
	}
	return ring.Mean().Div(stdDev)
}
