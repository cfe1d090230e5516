package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

// Historical replays recorded ticks from a duckdb file in timestamp order.
// Replay is as fast as the rows can be read; consumers see original
// timestamps.
type Historical struct {
	path   string
	symbol string
	from   time.Time
	to     time.Time

	db *sql.DB
}

func NewHistorical(path, symbol string, from, to time.Time) *Historical {
	return &Historical{path: path, symbol: symbol, from: from, to: to}
}

func (h *Historical) Name() string { return "historical" }

func (h *Historical) Open() error {
	db, err := sql.Open("duckdb", h.path)
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	h.db = db
	return nil
}

func (h *Historical) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

func (h *Historical) Stream(ctx context.Context, emit func(common.Tick) error) error {
	rows, err := h.db.QueryContext(ctx,
		`SELECT ts, price, volume FROM ticks
		 WHERE symbol = ? AND ts BETWEEN ? AND ? ORDER BY ts`,
		h.symbol, h.from, h.to)
	if err != nil {
		return fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ts     time.Time
			price  fixed.Point
			volume fixed.Point
		)
		if err := rows.Scan(&ts, &price, &volume); err != nil {
			return fmt.Errorf("scan tick: %w", err)
		}

		tick := common.Tick{
			Price:       price,
			Volume:      volume,
			Source:      h.Name(),
			Symbol:      h.symbol,
			ExecutionID: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   ts,
		}
		if err := emit(tick); err != nil {
			return err
		}
	}
	return rows.Err()
}
