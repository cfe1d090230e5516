package storage

import (
	"context"

	"github.com/icarus-trading/icarus/pkg/common"
)

func (s *Store) InsertTick(ctx context.Context, t common.Tick) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ticks (symbol, price, volume, source, ts)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.Symbol, t.Price, t.Volume, t.Source, t.TimeStamp)
	return err
}
