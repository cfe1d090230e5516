package storage

import (
	"context"
	"time"

	"github.com/icarus-trading/icarus/pkg/common"
)

func (s *Store) InsertTrade(ctx context.Context, t common.Trade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (strategy, symbol, side, quantity, price, fee, mode, order_id, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.Strategy, t.Symbol, string(t.Side), t.Quantity, t.Price, t.Fee,
		string(t.Mode), t.OrderID, t.TimeStamp)
	return err
}

// TradesSince returns all fills at or after since, oldest first.
func (s *Store) TradesSince(ctx context.Context, since time.Time) ([]common.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy, symbol, side, quantity, price, fee, mode, order_id, ts
		 FROM trades WHERE ts >= $1 ORDER BY ts`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []common.Trade
	for rows.Next() {
		var t common.Trade
		var side, mode string
		if err := rows.Scan(&t.Strategy, &t.Symbol, &side, &t.Quantity,
			&t.Price, &t.Fee, &mode, &t.OrderID, &t.TimeStamp); err != nil {
			return nil, err
		}
		t.Side = common.Side(side)
		t.Mode = common.TradeMode(mode)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// StrategyTradesSince returns one strategy's fills at or after since, oldest
// first.
func (s *Store) StrategyTradesSince(ctx context.Context, strategy string, since time.Time) ([]common.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy, symbol, side, quantity, price, fee, mode, order_id, ts
		 FROM trades WHERE strategy = $1 AND ts >= $2 ORDER BY ts`, strategy, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []common.Trade
	for rows.Next() {
		var t common.Trade
		var side, mode string
		if err := rows.Scan(&t.Strategy, &t.Symbol, &side, &t.Quantity,
			&t.Price, &t.Fee, &mode, &t.OrderID, &t.TimeStamp); err != nil {
			return nil, err
		}
		t.Side = common.Side(side)
		t.Mode = common.TradeMode(mode)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
