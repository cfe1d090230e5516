package storage

import "context"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ticks (
		id         BIGSERIAL PRIMARY KEY,
		symbol     TEXT        NOT NULL,
		price      NUMERIC     NOT NULL,
		volume     NUMERIC     NOT NULL,
		source     TEXT        NOT NULL DEFAULT '',
		ts         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ticks_symbol_ts_idx ON ticks (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id         BIGSERIAL PRIMARY KEY,
		strategy   TEXT        NOT NULL,
		symbol     TEXT        NOT NULL,
		side       TEXT        NOT NULL,
		quantity   NUMERIC     NOT NULL,
		price      NUMERIC     NOT NULL,
		fee        NUMERIC     NOT NULL,
		mode       TEXT        NOT NULL,
		order_id   TEXT        NOT NULL DEFAULT '',
		ts         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS trades_strategy_ts_idx ON trades (strategy, ts)`,
	`CREATE TABLE IF NOT EXISTS strategy_performance (
		id           BIGSERIAL PRIMARY KEY,
		strategy     TEXT        NOT NULL,
		total_pnl    NUMERIC     NOT NULL,
		win_rate     NUMERIC     NOT NULL,
		sharpe_ratio NUMERIC     NOT NULL,
		max_drawdown NUMERIC     NOT NULL,
		trade_count  INTEGER     NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS strategy_performance_strategy_idx
		ON strategy_performance (strategy, updated_at)`,
	`CREATE TABLE IF NOT EXISTS forks (
		fork_id    TEXT PRIMARY KEY,
		agent      TEXT        NOT NULL,
		service_id TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the tables the system writes to. Statements are
// idempotent so startup can always run this.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
