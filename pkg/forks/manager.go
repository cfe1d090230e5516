package forks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/agent"
	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility"
)

// RecordStore persists fork tracking rows. A nil store keeps tracking
// in-memory only.
type RecordStore interface {
	InsertForkRecord(ctx context.Context, forkID, agent, serviceID string, createdAt, expiresAt time.Time) error
	DeleteForkRecord(ctx context.Context, forkID string) error
}

// PoolRegistry opens and closes connection pools against provisioned forks.
// A nil registry leaves pool management to the requesting agent.
type PoolRegistry interface {
	OpenFork(forkID string, conn common.ForkConnection) error
	CloseFork(forkID string)
}

type Config struct {
	ParentServiceID string
	MaxConcurrent   int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

type fork struct {
	id        string
	agent     string
	createdAt time.Time
	ttl       time.Duration
	conn      common.ForkConnection
}

// Manager provisions database forks on request, destroys them on completion
// or TTL expiry, and tears all of them down on shutdown. Requests beyond the
// concurrency cap are rejected, not queued.
type Manager struct {
	runner      *agent.Runner
	bus         *bus.Bus
	logger      *zap.Logger
	cfg         Config
	provisioner Provisioner
	store       RecordStore
	pools       PoolRegistry

	mu     sync.Mutex
	active map[string]*fork

	now func() time.Time
}

func NewManager(cfg Config, b *bus.Bus, provisioner Provisioner, store RecordStore, pools PoolRegistry, logger *zap.Logger) *Manager {
	m := &Manager{
		bus:         b,
		logger:      logger.With(zap.String("agent", "fork-manager")),
		cfg:         cfg,
		provisioner: provisioner,
		store:       store,
		pools:       pools,
		active:      make(map[string]*fork),
		now:         time.Now,
	}
	m.runner = &agent.Runner{
		AgentName: "fork-manager",
		Bus:       b,
		Logger:    logger,
		Start:     m.start,
		Cleanup:   m.destroyAll,
	}
	return m
}

func (m *Manager) Name() string { return "fork-manager" }

func (m *Manager) Run(ctx context.Context) error { return m.runner.Run(ctx) }

func (m *Manager) start(ctx context.Context) error {
	consumer := agent.NewConsumer(m.bus, m.logger)
	consumer.On(bus.ForkRequestEvent, m.onRequest)
	consumer.On(bus.ForkCompletedEvent, m.onCompleted)

	go func() {
		_ = agent.Periodic(ctx, m.cfg.CleanupInterval, m.logger, m.sweepExpired)
	}()

	return consumer.Run(ctx)
}

func (m *Manager) onRequest(ctx context.Context, ev bus.Event) error {
	request := ev.Data.(common.ForkRequest)

	m.mu.Lock()
	atCapacity := len(m.active) >= m.cfg.MaxConcurrent
	m.mu.Unlock()
	if atCapacity {
		// TODO: queue requests instead of dropping them once agents retry.
		m.logger.Warn("fork request rejected at capacity",
			zap.String("agent", request.RequestingAgent),
			zap.Int("max_concurrent", m.cfg.MaxConcurrent))
		return nil
	}

	ttl := request.TTL
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	m.logger.Info("creating fork",
		zap.String("agent", request.RequestingAgent),
		zap.String("purpose", request.Purpose))

	forkID, err := m.provisioner.Fork(ctx, m.cfg.ParentServiceID)
	if err != nil {
		m.logger.Error("fork provisioning failed", zap.Error(err))
		return nil
	}
	conn, err := m.provisioner.Describe(ctx, forkID)
	if err != nil {
		m.logger.Error("fork describe failed, destroying orphan",
			zap.String("fork_id", forkID), zap.Error(err))
		if derr := m.provisioner.Delete(ctx, forkID); derr != nil {
			m.logger.Error("orphan fork teardown failed", zap.Error(derr))
		}
		return nil
	}

	createdAt := m.now()
	m.mu.Lock()
	m.active[forkID] = &fork{
		id:        forkID,
		agent:     request.RequestingAgent,
		createdAt: createdAt,
		ttl:       ttl,
		conn:      conn,
	}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.InsertForkRecord(ctx, forkID, request.RequestingAgent,
			forkID, createdAt, createdAt.Add(ttl)); err != nil {
			// Non-fatal, the fork is still usable.
			m.logger.Error("fork record persistence failed", zap.Error(err))
		}
	}
	if m.pools != nil {
		if err := m.pools.OpenFork(forkID, conn); err != nil {
			// Non-fatal, agents can still connect with the published details.
			m.logger.Error("fork pool open failed",
				zap.String("fork_id", forkID), zap.Error(err))
		}
	}

	return m.bus.Publish(bus.ForkCreatedEvent, common.ForkCreated{
		ForkID:          forkID,
		RequestingAgent: request.RequestingAgent,
		Connection:      conn,
		Source:          "fork-manager",
		ExecutionID:     utility.GetExecutionID(),
		TraceID:         utility.CreateTraceID(),
		TimeStamp:       time.Now(),
	})
}

func (m *Manager) onCompleted(ctx context.Context, ev bus.Event) error {
	completed := ev.Data.(common.ForkCompleted)

	m.mu.Lock()
	_, known := m.active[completed.ForkID]
	m.mu.Unlock()
	if !known {
		m.logger.Warn("completion for unknown fork", zap.String("fork_id", completed.ForkID))
		return nil
	}

	m.logger.Info("fork completed, destroying",
		zap.String("fork_id", completed.ForkID),
		zap.String("agent", completed.RequestingAgent))
	m.destroy(ctx, completed.ForkID)
	return nil
}

// destroy tears a fork down. Tracking is released only after the external
// delete succeeds, so a failed teardown is retried by the next sweep.
func (m *Manager) destroy(ctx context.Context, forkID string) {
	m.mu.Lock()
	tracked, known := m.active[forkID]
	m.mu.Unlock()
	if !known {
		m.logger.Warn("destroy of unknown fork", zap.String("fork_id", forkID))
		return
	}

	if err := m.provisioner.Delete(ctx, forkID); err != nil {
		m.logger.Error("fork teardown failed", zap.String("fork_id", forkID), zap.Error(err))
		return
	}

	m.mu.Lock()
	delete(m.active, forkID)
	m.mu.Unlock()

	if m.pools != nil {
		m.pools.CloseFork(forkID)
	}
	if m.store != nil {
		if err := m.store.DeleteForkRecord(ctx, forkID); err != nil {
			m.logger.Error("fork record removal failed", zap.Error(err))
		}
	}
	m.logger.Info("fork destroyed",
		zap.String("fork_id", forkID), zap.String("agent", tracked.agent))
}

// sweepExpired destroys forks whose age strictly exceeds their TTL.
func (m *Manager) sweepExpired(ctx context.Context) error {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for forkID, tracked := range m.active {
		if now.Sub(tracked.createdAt) > tracked.ttl {
			expired = append(expired, forkID)
		}
	}
	m.mu.Unlock()

	for _, forkID := range expired {
		m.logger.Info("fork expired", zap.String("fork_id", forkID))
		m.destroy(ctx, forkID)
	}
	return nil
}

func (m *Manager) destroyAll(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.active))
	for forkID := range m.active {
		ids = append(ids, forkID)
	}
	m.mu.Unlock()

	if len(ids) > 0 {
		m.logger.Info("destroying all active forks", zap.Int("count", len(ids)))
	}
	for _, forkID := range ids {
		m.destroy(ctx, forkID)
	}
	return nil
}

// ActiveCount reports how many forks are currently tracked.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
