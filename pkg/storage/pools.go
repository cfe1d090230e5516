package storage

import (
	"sync"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/common"
)

// ForkPools holds one connection pool per active database fork. Pools are
// opened when a fork is provisioned and closed when the fork is destroyed.
type ForkPools struct {
	password string
	logger   *zap.Logger

	mu    sync.Mutex
	pools map[string]*Store
}

func NewForkPools(password string, logger *zap.Logger) *ForkPools {
	return &ForkPools{
		password: password,
		logger:   logger,
		pools:    make(map[string]*Store),
	}
}

func (f *ForkPools) OpenFork(forkID string, conn common.ForkConnection) error {
	store, err := ConnectFork(conn, f.password, f.logger)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if old, ok := f.pools[forkID]; ok {
		_ = old.Close()
	}
	f.pools[forkID] = store
	f.mu.Unlock()
	return nil
}

// Get returns the pool for a fork, if one is open.
func (f *ForkPools) Get(forkID string) (*Store, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	store, ok := f.pools[forkID]
	return store, ok
}

func (f *ForkPools) CloseFork(forkID string) {
	f.mu.Lock()
	store, ok := f.pools[forkID]
	delete(f.pools, forkID)
	f.mu.Unlock()

	if ok {
		if err := store.Close(); err != nil {
			f.logger.Warn("fork pool close failed",
				zap.String("fork_id", forkID), zap.Error(err))
		}
	}
}

// CloseAll tears down every remaining pool.
func (f *ForkPools) CloseAll() {
	f.mu.Lock()
	pools := f.pools
	f.pools = make(map[string]*Store)
	f.mu.Unlock()

	for forkID, store := range pools {
		if err := store.Close(); err != nil {
			f.logger.Warn("fork pool close failed",
				zap.String("fork_id", forkID), zap.Error(err))
		}
	}
}
