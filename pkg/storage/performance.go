package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/icarus-trading/icarus/pkg/common"
)

func (s *Store) InsertMetrics(ctx context.Context, m common.StrategyMetrics) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO strategy_performance
			(strategy, total_pnl, win_rate, sharpe_ratio, max_drawdown, trade_count, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.Strategy, m.TotalPnL, m.WinRate, m.SharpeRatio, m.MaxDrawdown,
		m.TradeCount, m.UpdatedAt)
	return err
}

// LatestMetrics returns the most recent performance row per strategy.
func (s *Store) LatestMetrics(ctx context.Context) (map[string]common.StrategyMetrics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT ON (strategy)
			strategy, total_pnl, win_rate, sharpe_ratio, max_drawdown, trade_count, updated_at
		 FROM strategy_performance ORDER BY strategy, updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]common.StrategyMetrics)
	for rows.Next() {
		var m common.StrategyMetrics
		if err := rows.Scan(&m.Strategy, &m.TotalPnL, &m.WinRate, &m.SharpeRatio,
			&m.MaxDrawdown, &m.TradeCount, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out[m.Strategy] = m
	}
	return out, rows.Err()
}

// StrategyMetrics returns the latest performance row for one strategy, or
// false when none exists yet.
func (s *Store) StrategyMetrics(ctx context.Context, strategy string) (common.StrategyMetrics, bool, error) {
	var m common.StrategyMetrics
	err := s.db.QueryRowContext(ctx,
		`SELECT strategy, total_pnl, win_rate, sharpe_ratio, max_drawdown, trade_count, updated_at
		 FROM strategy_performance WHERE strategy = $1
		 ORDER BY updated_at DESC LIMIT 1`, strategy).
		Scan(&m.Strategy, &m.TotalPnL, &m.WinRate, &m.SharpeRatio,
			&m.MaxDrawdown, &m.TradeCount, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return common.StrategyMetrics{}, false, nil
	}
	if err != nil {
		return common.StrategyMetrics{}, false, err
	}
	return m, true, nil
}
