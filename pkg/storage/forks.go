package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/common"
)

// Fork pools stay small. Each fork serves a single analysis job.
const (
	forkMinConns = 2
	forkMaxConns = 5
)

// ConnectFork opens a pool against a provisioned database fork. The fork's
// password comes from the environment, not from the provisioner output.
func ConnectFork(conn common.ForkConnection, password string, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		conn.Host, conn.Port, conn.Username, password, conn.Database)
	return open(dsn, forkMinConns, forkMaxConns, logger)
}

func (s *Store) InsertForkRecord(ctx context.Context, forkID, agent, serviceID string, createdAt, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forks (fork_id, agent, service_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		forkID, agent, serviceID, createdAt, expiresAt)
	return err
}

func (s *Store) DeleteForkRecord(ctx context.Context, forkID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM forks WHERE fork_id = $1`, forkID)
	return err
}
